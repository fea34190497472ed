// Package vibe translates freeform mood text into a target feature vector.
// It prefers a configured external sentiment delegate and falls back to a
// local keyword heuristic; building a target never fails.
package vibe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

const delegateTimeout = 5 * time.Second

// Builder builds target vectors from vibe text.
type Builder struct {
	delegateURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewBuilder constructs a Builder. delegateURL may be empty to disable the
// external sentiment delegate.
func NewBuilder(delegateURL string, httpClient *http.Client, logger *slog.Logger) *Builder {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: delegateTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		delegateURL: strings.TrimRight(delegateURL, "/"),
		httpClient:  httpClient,
		logger:      logger,
	}
}

// Build turns vibe text into a target vector. Blank text yields the fixed
// neutral target; delegate failures fall through to the local heuristic.
func (b *Builder) Build(ctx context.Context, text string) domain.AudioFeatures {
	if strings.TrimSpace(text) == "" {
		return domain.NeutralFeatures
	}

	if b.delegateURL != "" {
		if f, err := b.buildFromDelegate(ctx, text); err == nil {
			return f
		} else {
			b.logger.Warn("vibe: sentiment delegate failed, using local heuristic", "error", err)
		}
	}

	return b.buildFromKeywords(text)
}

type delegateRequest struct {
	Text string `json:"text"`
}

func (b *Builder) buildFromDelegate(ctx context.Context, text string) (domain.AudioFeatures, error) {
	body, err := json.Marshal(delegateRequest{Text: text})
	if err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, delegateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.delegateURL, bytes.NewReader(body))
	if err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: delegate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: delegate status %d", resp.StatusCode)
	}

	var fields map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: decode delegate response: %w", err)
	}

	valence, okV := firstField(fields, "valence", "happiness", "joy")
	energy, okE := firstField(fields, "energy", "activation")
	if !okV && !okE {
		return domain.AudioFeatures{}, fmt.Errorf("vibe: delegate response carries no usable fields")
	}
	if !okV {
		valence = 0.5
	}
	if !okE {
		energy = 0.5
	}

	opts := vectorOpts{valence: valence, energy: energy}
	if tempo, ok := firstField(fields, "tempo", "bpm"); ok {
		opts.tempo = &tempo
	}
	return buildVector(opts), nil
}

func firstField(fields map[string]float64, names ...string) (float64, bool) {
	for _, n := range names {
		if v, ok := fields[n]; ok {
			return v, true
		}
	}
	return 0, false
}

func (b *Builder) buildFromKeywords(text string) domain.AudioFeatures {
	words := tokenize(text)

	var pos, neg, highE, lowE, acoustic, instrumental, angry, fast, slow int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
		if _, ok := highEnergyWords[w]; ok {
			highE++
		}
		if _, ok := lowEnergyWords[w]; ok {
			lowE++
		}
		if _, ok := acousticWords[w]; ok {
			acoustic++
		}
		if _, ok := instrumentalWords[w]; ok {
			instrumental++
		}
		if _, ok := angryWords[w]; ok {
			angry++
		}
		if _, ok := tempoFastWords[w]; ok {
			fast++
		}
		if _, ok := tempoSlowWords[w]; ok {
			slow++
		}
	}

	// Sentiment comes strictly from positive/negative counts; a handful of
	// matches saturates the strength term.
	rawSentiment := 0.0
	if pos+neg > 0 {
		rawSentiment = float64(pos-neg) / float64(pos+neg)
		if rawSentiment > 1 {
			rawSentiment = 1
		}
		if rawSentiment < -1 {
			rawSentiment = -1
		}
	}
	strength := float64(pos+neg) / 4
	if strength > 1 {
		strength = 1
	}
	valence := (strength*rawSentiment + 1) / 2

	energy := 0.5 +
		float64(highE-lowE)*0.15 +
		float64(fast-slow)*0.12 +
		float64(angry)*0.15
	energy = domain.Clamp01(energy)

	tempo := 60 + energy*120 + float64(fast-slow)*20 - float64(acoustic)*10

	opts := vectorOpts{valence: valence, energy: energy, tempo: &tempo}
	if acoustic > 0 {
		v := 0.8
		opts.acousticness = &v
	}
	if instrumental > 0 {
		v := 0.6
		opts.instrumentalness = &v
	}
	return buildVector(opts)
}

// vectorOpts feeds the shared buildVector transform. Nil pointers take the
// energy-derived defaults.
type vectorOpts struct {
	valence          float64
	energy           float64
	tempo            *float64
	acousticness     *float64
	instrumentalness *float64
}

func buildVector(o vectorOpts) domain.AudioFeatures {
	valence := domain.Clamp01(o.valence)
	energy := domain.Clamp01(o.energy)

	acousticness := 1 - energy
	if o.acousticness != nil {
		acousticness = domain.Clamp01(*o.acousticness)
	}

	instrumentalness := 0.05
	if o.instrumentalness != nil {
		instrumentalness = domain.Clamp01(*o.instrumentalness)
	}

	tempo := 60 + energy*140
	if o.tempo != nil {
		tempo = *o.tempo
	}

	return domain.AudioFeatures{
		Danceability:     energy*0.7 + valence*0.3,
		Energy:           energy,
		Valence:          valence,
		Acousticness:     acousticness,
		Instrumentalness: instrumentalness,
		// Least recoverable from short text, so held constant.
		Liveness:    0.1,
		Speechiness: 0.05,
		Tempo:       tempo,
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
