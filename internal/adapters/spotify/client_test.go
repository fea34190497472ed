package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// fakeTokens is a scripted token manager for client tests.
type fakeTokens struct {
	token      string
	canRefresh bool
	refreshErr error
	refreshed  int
	persisted  int
}

func (f *fakeTokens) AccessToken(ctx context.Context) (string, error) {
	if f.token == "" {
		return "", domain.ErrCredentialMissing
	}
	return f.token, nil
}

func (f *fakeTokens) CanRefresh() bool { return f.canRefresh }

func (f *fakeTokens) Refresh(ctx context.Context) (domain.Credential, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return domain.Credential{}, f.refreshErr
	}
	f.token = "refreshed-token"
	return domain.Credential{AccessToken: f.token, RefreshToken: "r"}, nil
}

func (f *fakeTokens) Persist(ctx context.Context, cred domain.Credential) error {
	f.persisted++
	return nil
}

const savedTracksBody = `{
	"items": [
		{"track": {
			"id": "4uLU6hMCjMI75M1A2tKUQC",
			"name": "Test Track",
			"duration_ms": 200000,
			"preview_url": "http://p.example/1.mp3",
			"artists": [{"name": "Artist A"}, {"name": "Artist B"}],
			"album": {"name": "Test Album", "images": [{"url": "http://img.example/1.jpg"}]}
		}}
	],
	"total": 1,
	"next": ""
}`

func TestSavedTracks_RefreshOnUnauthorizedThenSucceed(t *testing.T) {
	var attempts int32
	var secondAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
			return
		}
		secondAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(savedTracksBody))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale-token", canRefresh: true}
	c := NewClient(srv.URL, tokens, nil)

	page, err := c.SavedTracks(context.Background(), 50, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(2), attempts)
	assert.Equal(t, 1, tokens.refreshed)
	assert.Equal(t, 1, tokens.persisted)
	assert.Equal(t, "Bearer refreshed-token", secondAuth)

	require.Len(t, page.Tracks, 1)
	assert.Equal(t, 1, page.Total)
	got := page.Tracks[0]
	assert.Equal(t, "4uLU6hMCjMI75M1A2tKUQC", got.ID)
	assert.Equal(t, "Test Track", got.Title)
	assert.Equal(t, "Artist A, Artist B", got.Artist)
	assert.Equal(t, "Test Album", got.Album)
	assert.Equal(t, "http://img.example/1.jpg", got.CoverURL)
	assert.Equal(t, 200000, got.DurationMs)
	assert.True(t, got.Features.IsZero())
}

func TestSavedTracks_SecondUnauthorizedIsTerminal(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":"nope"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale-token", canRefresh: true}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReauthRequired))

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)

	assert.Equal(t, int32(2), attempts)
	assert.Equal(t, 1, tokens.refreshed)
}

func TestSavedTracks_RejectedRefreshRequiresReauth(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	refreshErr := errors.New(`oauth2: "invalid_grant" refresh token revoked`)
	tokens := &fakeTokens{token: "stale-token", canRefresh: true, refreshErr: refreshErr}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReauthRequired))
	assert.True(t, errors.Is(err, refreshErr))

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)

	assert.Equal(t, int32(1), attempts)
	assert.Equal(t, 1, tokens.refreshed)
	assert.Equal(t, 0, tokens.persisted)
}

func TestSavedTracks_ForbiddenTreatedAsAuthByDefault(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			http.Error(w, `{"error":"expired"}`, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(savedTracksBody))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale-token", canRefresh: true}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.refreshed)
}

func TestSavedTracks_ForbiddenNotAuthWhenConfiguredOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"missing scope"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok", canRefresh: true}
	c := NewClient(srv.URL, tokens, nil, WithForbiddenAsAuth(false))

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrReauthRequired))

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, 0, tokens.refreshed)
}

func TestSavedTracks_NoRefreshCapability(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":"expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok", canRefresh: false}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrReauthRequired))
	assert.Equal(t, int32(1), attempts)
	assert.Equal(t, 0, tokens.refreshed)
}

func TestSavedTracks_ServerErrorIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok"}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestSavedTracks_NetworkFailureIsAPIErrorWithoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	tokens := &fakeTokens{token: "tok"}
	c := NewClient(srv.URL, tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.Status)
	assert.Error(t, apiErr.Err)
}

func TestSavedTracks_MissingCredential(t *testing.T) {
	tokens := &fakeTokens{}
	c := NewClient("http://localhost:0", tokens, nil)

	_, err := c.SavedTracks(context.Background(), 50, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCredentialMissing))
}

func TestTracksByID_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracks", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tracks": [
			{"id": "4uLU6hMCjMI75M1A2tKUQC", "name": "One", "artists": [{"name": "A"}], "album": {"name": "X"}},
			{"id": "", "name": "deleted"},
			{"id": "1301WleyT98MSxVHPZCA6M", "name": "Two", "artists": [{"name": "B"}], "album": {"name": "Y"}}
		]}`))
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok"}
	c := NewClient(srv.URL, tokens, nil)

	tracks, err := c.TracksByID(context.Background(), []string{"4uLU6hMCjMI75M1A2tKUQC", "1301WleyT98MSxVHPZCA6M"})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "One", tracks[0].Title)
	assert.Equal(t, "Two", tracks[1].Title)
}
