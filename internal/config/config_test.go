package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://api.spotify.com", cfg.Spotify.BaseURL)
	assert.True(t, cfg.Spotify.TreatForbiddenAsAuth)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.Gemini.BaseURL)
	assert.Equal(t, "moodqueue.db", cfg.Library.Path)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
library:
  path: /tmp/test.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.Library.Path)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv("MOODQUEUE_SERVER_ADDR", ":7070")
	t.Setenv("MOODQUEUE_SPOTIFY_CLIENT_ID", "abc123")
	t.Setenv("MOODQUEUE_GEMINI_API_KEY", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "abc123", cfg.Spotify.ClientID)
	assert.Equal(t, "secret", cfg.Gemini.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvToKey(t *testing.T) {
	cases := map[string]string{
		"MOODQUEUE_SERVER_ADDR":               "server.addr",
		"MOODQUEUE_SPOTIFY_CLIENT_ID":         "spotify.client_id",
		"MOODQUEUE_SPOTIFY_REFRESH_TOKEN":     "spotify.refresh_token",
		"MOODQUEUE_VIBE_DELEGATE_URL":         "vibe.delegate_url",
		"MOODQUEUE_LOG_LEVEL":                 "log.level",
		"MOODQUEUE_GEMINI_API_KEY":            "gemini.api_key",
		"MOODQUEUE_SPOTIFY_TREAT_FORBIDDEN_AS_AUTH": "spotify.treat_forbidden_as_auth",
	}
	for in, want := range cases {
		assert.Equal(t, want, envToKey(in), in)
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("nonsense"))
}
