package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

const estimateMaxTokens = 4096

// Estimator fills missing feature vectors from track metadata with one
// batched request. Enrichment is best-effort: every failure is swallowed and
// logged, never surfaced to the surrounding request.
type Estimator struct {
	client *Client
}

var _ ports.FeatureEstimator = (*Estimator)(nil)

// NewEstimator constructs an Estimator.
func NewEstimator(client *Client) *Estimator {
	return &Estimator{client: client}
}

// Estimate fills existing in place for tracks that have a valid id and no
// entry yet. Entries present before the call are never overwritten.
func (e *Estimator) Estimate(ctx context.Context, tracks []domain.Track, existing map[string]domain.AudioFeatures) {
	if !e.client.Configured() || existing == nil {
		return
	}

	var missing []domain.Track
	requested := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if !domain.ValidTrackID(t.ID) {
			continue
		}
		if _, ok := existing[t.ID]; ok {
			continue
		}
		missing = append(missing, t)
		requested[t.ID] = struct{}{}
	}
	if len(missing) == 0 {
		return
	}

	text, err := e.client.generate(ctx, apiVersions[0], fallbackModels[0],
		estimatePrompt(missing), estimateMaxTokens)
	if err != nil {
		e.client.logger.Warn("gemini: feature estimation failed", "error", err, "tracks", len(missing))
		return
	}

	entries := parseRanked(text)
	if len(entries) == 0 {
		e.client.logger.Warn("gemini: feature estimation unparseable", "tracks", len(missing))
		return
	}

	filled := 0
	for _, entry := range entries {
		// Only ids that were actually asked for; the service sometimes
		// hallucinates extras.
		if _, ok := requested[entry.ID]; !ok {
			continue
		}
		f := defaultFeatures()
		if entry.Features != nil {
			f = *entry.Features
		}
		existing[entry.ID] = f
		filled++
	}
	e.client.logger.Debug("gemini: estimated features", "requested", len(missing), "filled", filled)
}

func defaultFeatures() domain.AudioFeatures {
	return domain.AudioFeatures{
		Danceability:     defaultEnergy*0.7 + defaultValence*0.3,
		Energy:           defaultEnergy,
		Valence:          defaultValence,
		Acousticness:     defaultAcousticness,
		Instrumentalness: defaultInstrumentalness,
		Liveness:         defaultLiveness,
		Speechiness:      defaultSpeechiness,
		Tempo:            defaultTempo,
	}
}

func estimatePrompt(tracks []domain.Track) string {
	var sb strings.Builder
	sb.WriteString("Estimate audio features for each track below from its metadata.\n\nTracks:\n")
	for _, t := range tracks {
		fmt.Fprintf(&sb, "- id=%s title=%q artist=%q", t.ID, t.Title, t.Artist)
		if t.Genre != "" {
			fmt.Fprintf(&sb, " genre=%q", t.Genre)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nReturn ONLY a strict JSON array with one object per track:\n")
	sb.WriteString(`[{"id": "<track id>", "danceability": 0.0, "energy": 0.0, "valence": 0.0, "acousticness": 0.0, "instrumentalness": 0.0, "liveness": 0.0, "speechiness": 0.0, "tempo_bpm": 120}]` + "\n")
	sb.WriteString("All fractional fields are in [0,1]. No prose, no markdown.\n")
	return sb.String()
}
