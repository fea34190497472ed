package gemini

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

const (
	// maxPromptTracks bounds prompt size; the candidate pool is randomly
	// sampled down to this many summary lines.
	maxPromptTracks = 80

	rankMaxTokens  = 4096
	forceMaxTokens = 8192
)

// Ranker delegates track selection to the generative service across a
// sequential (version, model) retry matrix with best-partial-kept fallback.
type Ranker struct {
	client *Client
	rng    *rand.Rand
}

var _ ports.Ranker = (*Ranker)(nil)

// NewRanker constructs a Ranker. rng may be nil.
func NewRanker(client *Client, rng *rand.Rand) *Ranker {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) // #nosec G404 -- prompt sampling, not security
	}
	return &Ranker{client: client, rng: rng}
}

// Rank asks the service for desired ranked tracks drawn from tracks.
// (version, model) pairs are tried strictly sequentially so the short-circuit
// at >= desired ids stays meaningful and cost-bounded. When no attempt
// reaches desired, one stricter force attempt runs on the first pair and the
// best partial result seen wins. With no credential configured the result is
// empty, not an error.
func (r *Ranker) Rank(ctx context.Context, vibeText string, tracks []domain.Track, desired int) (ports.RankResult, error) {
	empty := ports.RankResult{Features: map[string]domain.AudioFeatures{}}
	if !r.client.Configured() || desired <= 0 || len(tracks) == 0 {
		return empty, nil
	}

	sampled := r.sampleTracks(tracks)
	prompt := rankPrompt(vibeText, sampled, desired, false)
	models := r.client.CandidateModels(ctx)
	if len(models) == 0 {
		return empty, nil
	}

	best := empty
	for _, version := range apiVersions {
		for _, model := range models {
			if err := ctx.Err(); err != nil {
				return best, err
			}

			result, ok := r.attempt(ctx, version, model, prompt, rankMaxTokens)
			if !ok {
				continue
			}
			if len(result.IDs) >= desired {
				return truncate(result, desired), nil
			}
			if len(result.IDs) > len(best.IDs) {
				best = result
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return best, err
	}

	// Force attempt: stricter instructions and a higher token budget on the
	// first pair.
	forcePrompt := rankPrompt(vibeText, sampled, desired, true)
	if result, ok := r.attempt(ctx, apiVersions[0], models[0], forcePrompt, forceMaxTokens); ok {
		if len(result.IDs) > len(best.IDs) {
			best = result
		}
	}
	return truncate(best, desired), nil
}

// attempt runs one (version, model) request through the tiered parser.
func (r *Ranker) attempt(ctx context.Context, version, model, prompt string, maxTokens int) (ports.RankResult, bool) {
	text, err := r.client.generate(ctx, version, model, prompt, maxTokens)
	if err != nil {
		r.client.logger.Debug("gemini: rank attempt failed",
			"version", version, "model", model, "error", err)
		return ports.RankResult{}, false
	}

	entries := parseRanked(text)
	if len(entries) == 0 {
		r.client.logger.Debug("gemini: rank attempt unparseable",
			"version", version, "model", model)
		return ports.RankResult{}, false
	}

	result := ports.RankResult{Features: map[string]domain.AudioFeatures{}}
	for _, e := range entries {
		result.IDs = append(result.IDs, e.ID)
		if e.Features != nil {
			result.Features[e.ID] = *e.Features
		}
	}
	return result, true
}

func (r *Ranker) sampleTracks(tracks []domain.Track) []domain.Track {
	if len(tracks) <= maxPromptTracks {
		return tracks
	}
	sampled := make([]domain.Track, 0, maxPromptTracks)
	for _, idx := range r.rng.Perm(len(tracks))[:maxPromptTracks] {
		sampled = append(sampled, tracks[idx])
	}
	return sampled
}

func rankPrompt(vibeText string, tracks []domain.Track, desired int, force bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a music curator. From the numbered library below, pick the %d tracks that best match this mood: %q.\n\n", desired, vibeText)
	sb.WriteString("Library:\n")
	for i, t := range tracks {
		fmt.Fprintf(&sb, "%d. id=%s title=%q artist=%q", i+1, t.ID, t.Title, t.Artist)
		if t.Album != "" {
			fmt.Fprintf(&sb, " album=%q", t.Album)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nReturn ONLY a JSON array of exactly %d objects, best match first, each shaped as\n", desired)
	sb.WriteString(`{"id": "<track id>", "energy": 0.0, "valence": 0.0, "danceability": 0.0, "acousticness": 0.0, "instrumentalness": 0.0, "tempo_bpm": 120}` + "\n")
	fmt.Fprintf(&sb, "Use only ids from the library. If fewer than %d tracks are strong matches, keep going with the next-closest tracks rather than returning fewer than %d.\n", desired, desired)
	if force {
		sb.WriteString("Do not add prose, markdown fences, or commentary of any kind. The response must start with '[' and end with ']' and contain nothing else.\n")
	}
	return sb.String()
}

func truncate(result ports.RankResult, desired int) ports.RankResult {
	if len(result.IDs) <= desired {
		return result
	}
	kept := result.IDs[:desired]
	features := make(map[string]domain.AudioFeatures, len(kept))
	for _, id := range kept {
		if f, ok := result.Features[id]; ok {
			features[id] = f
		}
	}
	return ports.RankResult{IDs: kept, Features: features}
}
