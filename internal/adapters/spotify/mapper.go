package spotify

import (
	"strings"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// mapTrackToDomain converts a raw catalog track to a clean domain track.
// The catalog does not return audio features here; Features stays zero and
// is filled later by the estimator.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	var artistNames []string
	for _, a := range st.Artists {
		artistNames = append(artistNames, a.Name)
	}

	coverURL := ""
	if len(st.Album.Images) > 0 {
		coverURL = st.Album.Images[0].URL
	}

	return domain.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artist:     strings.Join(artistNames, ", "),
		Album:      st.Album.Name,
		DurationMs: st.DurationMs,
		CoverURL:   coverURL,
		PreviewURL: st.PreviewURL,
	}
}
