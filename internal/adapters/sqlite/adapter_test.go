package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func seedTracks(n int) []domain.Track {
	out := make([]domain.Track, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Track{
			ID:         fmt.Sprintf("%022d", i),
			Title:      fmt.Sprintf("Song %d", i),
			Artist:     "Artist",
			Album:      "Album",
			DurationMs: 180000,
		})
	}
	return out
}

func TestSaveTracks_UpsertPreservesFeatures(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	tracks := seedTracks(1)

	require.NoError(t, a.SaveTracks(ctx, tracks))
	require.NoError(t, a.UpdateFeatures(ctx, tracks[0].ID, domain.AudioFeatures{
		Energy: 0.9, Valence: 0.4, Tempo: 140,
	}))

	// Re-saving the same track must refresh metadata without wiping analysis.
	tracks[0].Title = "Song 0 (Remastered)"
	require.NoError(t, a.SaveTracks(ctx, tracks))

	missing, err := a.MissingFeatures(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	got, err := a.RandomSample(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Song 0 (Remastered)", got[0].Title)
	assert.InDelta(t, 0.9, got[0].Features.Energy, 1e-9)
	assert.InDelta(t, 140.0, got[0].Features.Tempo, 1e-9)
}

func TestSaveTracks_SkipsEmptyID(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.SaveTracks(ctx, []domain.Track{{Title: "no id"}}))

	got, err := a.RandomSample(ctx, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRandomSample_ExcludesIDs(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	tracks := seedTracks(5)
	require.NoError(t, a.SaveTracks(ctx, tracks))

	exclude := []string{tracks[0].ID, tracks[1].ID, tracks[2].ID}
	got, err := a.RandomSample(ctx, 10, exclude)
	require.NoError(t, err)
	require.Len(t, got, 2)

	excluded := map[string]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, tr := range got {
		assert.False(t, excluded[tr.ID], "excluded track %s returned", tr.ID)
	}
}

func TestRandomSample_ZeroOrNegative(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	require.NoError(t, a.SaveTracks(ctx, seedTracks(3)))

	got, err := a.RandomSample(ctx, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = a.RandomSample(ctx, -1, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMissingFeatures_HonorsLimit(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	tracks := seedTracks(4)
	require.NoError(t, a.SaveTracks(ctx, tracks))

	missing, err := a.MissingFeatures(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	require.NoError(t, a.UpdateFeatures(ctx, tracks[0].ID, domain.AudioFeatures{Energy: 0.5}))

	missing, err = a.MissingFeatures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, missing, 3)
	for _, tr := range missing {
		assert.NotEqual(t, tracks[0].ID, tr.ID)
	}
}

func TestUpdateFeatures_UnknownTrack(t *testing.T) {
	a := newTestAdapter(t)

	err := a.UpdateFeatures(context.Background(), "0000000000000000000000", domain.AudioFeatures{Energy: 0.5})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
