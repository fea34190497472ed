package domain

import "math"

// VectorDim is the dimensionality of a feature vector.
const VectorDim = 8

// maxTempoBPM is the tempo used to normalize raw BPM into [0,1].
const maxTempoBPM = 200.0

// AudioFeatures describes the mood-relevant attributes of a track.
// Tempo is kept in raw BPM; Vector() normalizes it. The zero value means
// "no feature data", see IsZero.
type AudioFeatures struct {
	Danceability     float64
	Energy           float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Speechiness      float64
	Tempo            float64
}

// FeatureWeights is the fixed per-dimension weight vector applied wherever
// weighted similarity is computed. Valence and energy dominate because they
// track free-text sentiment best.
var FeatureWeights = [VectorDim]float64{1, 2.0, 2.0, 0.8, 0.6, 0.3, 0.3, 0.4}

// NeutralFeatures is the target used for blank vibe text.
var NeutralFeatures = AudioFeatures{
	Danceability:     0.5,
	Energy:           0.5,
	Valence:          0.5,
	Acousticness:     0.5,
	Instrumentalness: 0.05,
	Liveness:         0.1,
	Speechiness:      0.05,
	Tempo:            125,
}

// Vector returns the ordered, normalized 8-tuple
// [danceability, energy, valence, acousticness, instrumentalness,
// liveness, speechiness, tempo/200], every component clamped to [0,1].
func (f AudioFeatures) Vector() [VectorDim]float64 {
	return [VectorDim]float64{
		Clamp01(f.Danceability),
		Clamp01(f.Energy),
		Clamp01(f.Valence),
		Clamp01(f.Acousticness),
		Clamp01(f.Instrumentalness),
		Clamp01(f.Liveness),
		Clamp01(f.Speechiness),
		Clamp01(f.Tempo / maxTempoBPM),
	}
}

// IsZero reports whether no feature data is present. An all-zero vector is
// indistinguishable from "no data" and must not take part in similarity math.
func (f AudioFeatures) IsZero() bool {
	return f == AudioFeatures{}
}

// Clamp01 clamps v to [0,1].
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
