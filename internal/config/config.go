// Package config loads configuration from an optional YAML file and
// MOODQUEUE_-prefixed environment variables, env winning.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "MOODQUEUE_"

// Config holds all configuration values.
type Config struct {
	Server struct {
		Addr string `koanf:"addr"`
	} `koanf:"server"`

	Spotify struct {
		BaseURL      string `koanf:"base_url"`
		AuthURL      string `koanf:"auth_url"`
		TokenURL     string `koanf:"token_url"`
		ClientID     string `koanf:"client_id"`
		ClientSecret string `koanf:"client_secret"`
		AccessToken  string `koanf:"access_token"`
		RefreshToken string `koanf:"refresh_token"`
		// 403 doubles as "token expired" on the reference upstream; turn
		// this off for deployments where it strictly means missing scope.
		TreatForbiddenAsAuth bool `koanf:"treat_forbidden_as_auth"`
	} `koanf:"spotify"`

	Gemini struct {
		BaseURL string `koanf:"base_url"`
		APIKey  string `koanf:"api_key"`
	} `koanf:"gemini"`

	Vibe struct {
		DelegateURL string `koanf:"delegate_url"`
	} `koanf:"vibe"`

	Library struct {
		Path string `koanf:"path"`
	} `koanf:"library"`

	Log struct {
		Level string `koanf:"level"`
		File  string `koanf:"file"`
	} `koanf:"log"`
}

func defaults() Config {
	var c Config
	c.Server.Addr = ":8080"
	c.Spotify.BaseURL = "https://api.spotify.com"
	c.Spotify.AuthURL = "https://accounts.spotify.com/authorize"
	c.Spotify.TokenURL = "https://accounts.spotify.com/api/token"
	c.Spotify.TreatForbiddenAsAuth = true
	c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	c.Library.Path = "moodqueue.db"
	c.Log.Level = "INFO"
	c.Log.File = "moodqueue.log"
	return c
}

// Load reads configuration. path may be empty to skip the file layer.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	// MOODQUEUE_SPOTIFY_CLIENT_ID -> spotify.client_id; the final two
	// underscore-separated words collapse into one key segment.
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}

// ParseLogLevel maps a config string to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
