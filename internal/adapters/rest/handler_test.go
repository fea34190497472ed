package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
	"github.com/soundslike-labs/moodqueue/internal/core/rank"
	"github.com/soundslike-labs/moodqueue/internal/core/services"
)

type stubCatalog struct {
	tracks []domain.Track
	err    error
}

func (s *stubCatalog) SavedTracks(ctx context.Context, limit, offset int) (ports.SavedTracksPage, error) {
	if s.err != nil {
		return ports.SavedTracksPage{}, s.err
	}
	if offset > 0 {
		return ports.SavedTracksPage{Total: len(s.tracks)}, nil
	}
	return ports.SavedTracksPage{Tracks: s.tracks, Total: len(s.tracks)}, nil
}

func (s *stubCatalog) TracksByID(ctx context.Context, ids []string) ([]domain.Track, error) {
	return nil, nil
}

type stubTargets struct{}

func (stubTargets) Build(ctx context.Context, text string) domain.AudioFeatures {
	return domain.NeutralFeatures
}

func newTestHandler(catalog ports.CatalogProvider) *Handler {
	svc := services.NewOrchestrator(catalog, stubTargets{}, nil, nil, nil, nil,
		rank.NewSampler(rand.New(rand.NewSource(3))), nil)
	return NewHandler(svc, nil)
}

func catalogTracks(n int) []domain.Track {
	out := make([]domain.Track, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Track{
			ID:       fmt.Sprintf("%022d", i),
			Title:    fmt.Sprintf("Song %d", i),
			Artist:   "Artist",
			Features: domain.AudioFeatures{Energy: 0.6, Valence: 0.6, Tempo: 120},
		})
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(&stubCatalog{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateMix_OK(t *testing.T) {
	h := newTestHandler(&stubCatalog{tracks: catalogTracks(6)})

	body := strings.NewReader(`{"vibe_text": "rainy evening", "desired": 4}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mixes", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp mixResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "similarity", resp.RankSource)
	assert.Len(t, resp.Tracks, 4)
	assert.NotEmpty(t, resp.Tracks[0].Title)
}

func TestGenerateMix_BadBody(t *testing.T) {
	h := newTestHandler(&stubCatalog{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mixes", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMix_ReauthRequired(t *testing.T) {
	cases := []error{
		fmt.Errorf("spotify adapter: %w", &domain.AuthError{Status: 401}),
		fmt.Errorf("spotify adapter: %w", domain.ErrCredentialMissing),
	}
	for _, errCase := range cases {
		h := newTestHandler(&stubCatalog{err: errCase})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mixes", strings.NewReader(`{"vibe_text":"x"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "reauthentication required")
	}
}

func TestGenerateMix_NoSourceMaterial(t *testing.T) {
	h := newTestHandler(&stubCatalog{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mixes", strings.NewReader(`{"vibe_text":"x"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no source material")
}
