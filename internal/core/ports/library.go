package ports

import (
	"context"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// LocalLibrary is the secondary local track dataset used to top up a mix
// when the listener's own library runs short, and fed by the background
// enrichment worker.
type LocalLibrary interface {
	// SaveTracks upserts tracks into the store.
	SaveTracks(ctx context.Context, tracks []domain.Track) error

	// RandomSample returns up to n random tracks whose ids are not in exclude.
	RandomSample(ctx context.Context, n int, exclude []string) ([]domain.Track, error)

	// MissingFeatures lists up to limit tracks that have not been analyzed yet.
	MissingFeatures(ctx context.Context, limit int) ([]domain.Track, error)

	// UpdateFeatures stores analyzed features for one track.
	UpdateFeatures(ctx context.Context, trackID string, f domain.AudioFeatures) error
}
