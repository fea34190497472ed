// Package services holds the core request pipeline. The orchestrator
// composes the catalog client, vibe builder, rankers, estimator, and local
// library into one generation flow with a designed fallback at every stage.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
	"github.com/soundslike-labs/moodqueue/internal/core/rank"
	"github.com/soundslike-labs/moodqueue/internal/core/vibe"
)

const (
	// libraryPageSize is the catalog page size; two pages are fetched
	// concurrently per request.
	libraryPageSize = 50

	defaultDesired = 20
)

// TargetBuilder builds a target vector from vibe text.
type TargetBuilder interface {
	Build(ctx context.Context, text string) domain.AudioFeatures
}

var _ TargetBuilder = (*vibe.Builder)(nil)

// Orchestrator coordinates one mix-generation request end to end.
type Orchestrator struct {
	catalog   ports.CatalogProvider
	targets   TargetBuilder
	ranker    ports.Ranker
	estimator ports.FeatureEstimator
	describer ports.SetDescriber
	library   ports.LocalLibrary
	sampler   *rank.Sampler
	logger    *slog.Logger
}

// NewOrchestrator constructs an Orchestrator. ranker, estimator, describer,
// and library may be nil; the corresponding stage then degrades.
func NewOrchestrator(
	catalog ports.CatalogProvider,
	targets TargetBuilder,
	ranker ports.Ranker,
	estimator ports.FeatureEstimator,
	describer ports.SetDescriber,
	library ports.LocalLibrary,
	sampler *rank.Sampler,
	logger *slog.Logger,
) *Orchestrator {
	if sampler == nil {
		sampler = rank.NewSampler(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		catalog:   catalog,
		targets:   targets,
		ranker:    ranker,
		estimator: estimator,
		describer: describer,
		library:   library,
		sampler:   sampler,
		logger:    logger,
	}
}

// GenerateMix runs the pipeline: fetch candidates, build the target vector,
// rank (generative first when possible, similarity otherwise), supplement
// from the local library, fill missing features, and assemble the result.
// Credential and auth failures propagate so the caller can trigger
// re-authentication; everything else degrades to a best-effort mix.
func (o *Orchestrator) GenerateMix(ctx context.Context, vibeText string, desired int) (domain.Mix, error) {
	if desired <= 0 {
		desired = defaultDesired
	}

	candidates, err := o.fetchCandidates(ctx)
	if err != nil {
		return domain.Mix{}, fmt.Errorf("service: fetch candidates: %w", err)
	}
	if len(candidates) == 0 {
		return domain.Mix{}, fmt.Errorf("service: %w", domain.ErrNoSourceMaterial)
	}

	target := o.targets.Build(ctx, vibeText)

	chosen, features, source := o.rankCandidates(ctx, vibeText, candidates, target, desired)

	chosen = o.supplement(ctx, chosen, desired)

	// Feature gap-filling runs over the full assembled list, supplemented
	// tracks included, so every track carries a usable, if approximate,
	// vector.
	if o.estimator != nil {
		o.estimator.Estimate(ctx, chosen, features)
	}
	for i := range chosen {
		if chosen[i].Features.IsZero() {
			if f, ok := features[chosen[i].ID]; ok {
				chosen[i].Features = f
			}
		}
	}

	desc := fallbackMixDescription()
	if o.describer != nil {
		desc = o.describer.Describe(ctx, vibeText, chosen)
	}

	return domain.Mix{
		ID:          uuid.NewString(),
		Title:       desc.Title,
		Description: desc.Description,
		Emoji:       desc.Emoji,
		VibeText:    vibeText,
		RankSource:  source,
		Tracks:      chosen,
	}, nil
}

// fetchCandidates pulls two pages of the saved library concurrently. A
// branch that fails with a non-auth error is treated as empty so it cannot
// corrupt the other branch; auth failures cancel the whole fetch.
func (o *Orchestrator) fetchCandidates(ctx context.Context) ([]domain.Track, error) {
	pages := make([][]domain.Track, 2)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			page, err := o.catalog.SavedTracks(gctx, libraryPageSize, i*libraryPageSize)
			if err != nil {
				if errors.Is(err, domain.ErrReauthRequired) || errors.Is(err, domain.ErrCredentialMissing) {
					return err
				}
				o.logger.Warn("service: saved-tracks page failed, continuing without it",
					"offset", i*libraryPageSize, "error", err)
				return nil
			}
			pages[i] = page.Tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var candidates []domain.Track
	for _, page := range pages {
		for _, t := range page {
			if t.ID == "" {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			candidates = append(candidates, t)
		}
	}
	return candidates, nil
}

// rankCandidates prefers the generative path when vibe text is present,
// falling back to weighted-cosine ranking with diversity sampling on any
// failure or empty result. The returned features map is seeded with every
// feature vector already known, ready for the estimator.
func (o *Orchestrator) rankCandidates(
	ctx context.Context,
	vibeText string,
	candidates []domain.Track,
	target domain.AudioFeatures,
	desired int,
) ([]domain.Track, map[string]domain.AudioFeatures, string) {
	byID := make(map[string]domain.Track, len(candidates))
	features := make(map[string]domain.AudioFeatures)
	for _, c := range candidates {
		byID[c.ID] = c
		if !c.Features.IsZero() {
			features[c.ID] = c.Features
		}
	}

	if o.ranker != nil && strings.TrimSpace(vibeText) != "" {
		result, err := o.ranker.Rank(ctx, vibeText, candidates, desired)
		if err != nil {
			o.logger.Warn("service: generative ranking failed, falling back to similarity", "error", err)
		} else if len(result.IDs) > 0 {
			var chosen []domain.Track
			for _, id := range result.IDs {
				t, ok := byID[id]
				if !ok {
					continue
				}
				if f, hasF := result.Features[id]; hasF {
					if _, known := features[id]; !known {
						features[id] = f
					}
				}
				chosen = append(chosen, t)
			}
			if len(chosen) > 0 {
				return chosen, features, "generative"
			}
			o.logger.Warn("service: generative ranking returned no known ids, falling back to similarity")
		}
	}

	ranked := rank.Score(candidates, target)
	chosen := o.sampler.Diverse(ranked, desired)
	return chosen, features, "similarity"
}

// supplement tops the mix up from the secondary local dataset until desired
// is reached or the dataset is exhausted.
func (o *Orchestrator) supplement(ctx context.Context, chosen []domain.Track, desired int) []domain.Track {
	if o.library == nil || len(chosen) >= desired {
		return chosen
	}

	exclude := make([]string, 0, len(chosen))
	for _, t := range chosen {
		exclude = append(exclude, t.ID)
	}

	extra, err := o.library.RandomSample(ctx, desired-len(chosen), exclude)
	if err != nil {
		o.logger.Warn("service: local library supplement failed", "error", err)
		return chosen
	}
	return append(chosen, extra...)
}

func fallbackMixDescription() domain.SetDescription {
	return domain.SetDescription{
		Title:       "Mood Mix",
		Description: "A hand-picked set to match your vibe.",
		Emoji:       "🎧",
	}
}
