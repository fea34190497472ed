package ports

import (
	"context"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// SavedTracksPage is one page of the listener's saved library.
type SavedTracksPage struct {
	Tracks []domain.Track
	Total  int
	Next   string // opaque upstream cursor, empty on the last page
}

// CatalogProvider is the authenticated upstream catalog API.
type CatalogProvider interface {
	// SavedTracks lists a page of the listener's saved library.
	SavedTracks(ctx context.Context, limit, offset int) (SavedTracksPage, error)

	// TracksByID fetches full track records for a batch of ids.
	TracksByID(ctx context.Context, ids []string) ([]domain.Track, error)
}

// TokenManager owns the catalog credential lifecycle. Refresh is called at
// most once per outbound request attempt; a successful refresh replaces the
// manager's in-memory credential, while durable persistence is delegated to
// Persist.
type TokenManager interface {
	AccessToken(ctx context.Context) (string, error)
	CanRefresh() bool
	Refresh(ctx context.Context) (domain.Credential, error)
	Persist(ctx context.Context, cred domain.Credential) error
}
