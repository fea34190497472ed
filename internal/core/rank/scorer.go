// Package rank scores candidate tracks against a target feature vector and
// performs weighted random diversity sampling over the ranked set.
package rank

import (
	"math"
	"math/rand"
	"sort"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// poolCap bounds the sampling pool so variety never reaches deep into the
// long tail of weak matches.
const poolCap = 80

// sampleEpsilon keeps every pool member selectable even when its shifted
// weight is zero.
const sampleEpsilon = 1e-6

// Ranked is a candidate with its weighted cosine similarity to the target.
type Ranked struct {
	Track      domain.Track
	Similarity float64
}

// Score ranks candidates by weighted cosine similarity to target, descending.
// Candidates with no feature data are excluded: an all-zero vector is
// indistinguishable from "no data" and would otherwise match everything.
// Ordering is deterministic for identical inputs.
func Score(candidates []domain.Track, target domain.AudioFeatures) []Ranked {
	tv := target.Vector()

	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if c.Features.IsZero() {
			continue
		}
		ranked = append(ranked, Ranked{
			Track:      c,
			Similarity: WeightedCosine(c.Features.Vector(), tv, domain.FeatureWeights),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	return ranked
}

// WeightedCosine computes cosine similarity under per-dimension weights:
// sim(a,b) = Σ w·a·b / (‖a‖w · ‖b‖w). Zero if either weighted norm is zero.
func WeightedCosine(a, b, w [domain.VectorDim]float64) float64 {
	var dot, normA, normB float64
	for i := 0; i < domain.VectorDim; i++ {
		dot += w[i] * a[i] * b[i]
		normA += w[i] * a[i] * a[i]
		normB += w[i] * b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Sampler draws diverse subsets from a ranked candidate list.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler constructs a Sampler around the given source. A nil rng falls
// back to a time-seeded source.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) // #nosec G404 -- variety, not security
	}
	return &Sampler{rng: rng}
}

// Diverse picks up to desired tracks from the top of ranked by weighted
// random sampling without replacement, so repeated calls for the same target
// produce intentional variety rather than an identical top-N.
func (s *Sampler) Diverse(ranked []Ranked, desired int) []domain.Track {
	if desired <= 0 || len(ranked) == 0 {
		return nil
	}

	poolSize := len(ranked)
	if desired > poolSize {
		poolSize = desired
	}
	if poolSize > poolCap {
		poolSize = poolCap
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}
	pool := make([]Ranked, poolSize)
	copy(pool, ranked[:poolSize])

	minSim := pool[0].Similarity
	for _, r := range pool {
		if r.Similarity < minSim {
			minSim = r.Similarity
		}
	}

	weights := make([]float64, len(pool))
	total := 0.0
	for i, r := range pool {
		w := math.Max(0, r.Similarity) - minSim + sampleEpsilon
		weights[i] = w
		total += w
	}

	chosen := make([]domain.Track, 0, desired)
	for len(chosen) < desired && len(pool) > 0 {
		r := s.rng.Float64() * total
		idx := len(pool) - 1
		for i, w := range weights {
			r -= w
			if r <= 0 {
				idx = i
				break
			}
		}

		chosen = append(chosen, pool[idx].Track)
		total -= weights[idx]
		pool = append(pool[:idx], pool[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return chosen
}
