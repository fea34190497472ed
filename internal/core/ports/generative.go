package ports

import (
	"context"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// RankResult is the outcome of a generative ranking attempt. IDs are ordered
// best-first; Features carries whatever partial feature data the service
// volunteered alongside each id.
type RankResult struct {
	IDs      []string
	Features map[string]domain.AudioFeatures
}

// Ranker delegates candidate selection and ordering to a generative text
// service. An unconfigured ranker degrades to an empty result, not an error;
// callers must keep a non-generative fallback path.
type Ranker interface {
	Rank(ctx context.Context, vibeText string, tracks []domain.Track, desired int) (RankResult, error)
}

// FeatureEstimator fills missing feature vectors for tracks, keyed by track
// id. It mutates existing in place, never overwrites a present entry, and
// swallows failures; enrichment is best-effort.
type FeatureEstimator interface {
	Estimate(ctx context.Context, tracks []domain.Track, existing map[string]domain.AudioFeatures)
}

// SetDescriber produces a title card for a finished mix. It never fails;
// when the generative service is unavailable it returns fixed fallback text.
type SetDescriber interface {
	Describe(ctx context.Context, vibeText string, tracks []domain.Track) domain.SetDescription
}
