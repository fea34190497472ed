package gemini

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
)

// The service does not reliably emit pure JSON, so extraction runs through a
// fixed ladder of progressively looser tiers, each total (never panics,
// never errors out of the ladder), composed with first-success semantics:
//
//	a. strip a fenced code block if present, else use the raw text
//	b. parse as a JSON array, or as {"track_ids": [...]}
//	c. substring between the first '[' and last ']'
//	d. first bracketed array substring by regex
//	e. individual {"id": ...} object fragments, parsed independently
//	f. bare 22-character alphanumeric tokens, ids only
//
// Ids failing the identifier shape are dropped at every tier, never retried.

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	arrayPattern       = regexp.MustCompile(`(?s)\[.*?\]`)
	objectPattern      = regexp.MustCompile(`(?s)\{[^{}]*\}`)
	bareIDPattern      = regexp.MustCompile(`\b[0-9A-Za-z]{22}\b`)
)

// rankedEntry is one parsed line of a ranking response. Features is nil when
// the tier that matched could not recover any feature data.
type rankedEntry struct {
	ID       string
	Features *domain.AudioFeatures
}

// wireRankedTrack is the shape the prompts ask for. Pointer fields separate
// "omitted" from zero so defaults can be substituted per-field.
type wireRankedTrack struct {
	ID               string   `json:"id"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Valence          *float64 `json:"valence"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Speechiness      *float64 `json:"speechiness"`
	TempoBPM         *float64 `json:"tempo_bpm"`
}

// parseRanked runs the full tier ladder over text.
func parseRanked(text string) []rankedEntry {
	body := stripFence(text)

	if entries := parseArray(body); len(entries) > 0 {
		return entries
	}
	if entries := parseTrackIDs(body); len(entries) > 0 {
		return entries
	}
	if entries := parseBracketSubstring(body); len(entries) > 0 {
		return entries
	}
	if entries := parseArrayRegex(body); len(entries) > 0 {
		return entries
	}
	if entries := parseObjectFragments(body); len(entries) > 0 {
		return entries
	}
	return parseBareIDs(body)
}

// stripFence returns the inside of the first fenced code block, or the raw
// text when no fence is present.
func stripFence(text string) string {
	if m := fencedBlockPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

func parseArray(body string) []rankedEntry {
	var wire []wireRankedTrack
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil
	}
	return toEntries(wire)
}

func parseTrackIDs(body string) []rankedEntry {
	var wrapper struct {
		TrackIDs []string `json:"track_ids"`
	}
	if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
		return nil
	}
	var entries []rankedEntry
	seen := make(map[string]struct{})
	for _, id := range wrapper.TrackIDs {
		if !domain.ValidTrackID(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, rankedEntry{ID: id})
	}
	return entries
}

func parseBracketSubstring(body string) []rankedEntry {
	start := strings.Index(body, "[")
	end := strings.LastIndex(body, "]")
	if start < 0 || end <= start {
		return nil
	}
	return parseArray(body[start : end+1])
}

func parseArrayRegex(body string) []rankedEntry {
	m := arrayPattern.FindString(body)
	if m == "" {
		return nil
	}
	return parseArray(m)
}

func parseObjectFragments(body string) []rankedEntry {
	var entries []rankedEntry
	seen := make(map[string]struct{})
	for _, frag := range objectPattern.FindAllString(body, -1) {
		var wire wireRankedTrack
		if err := json.Unmarshal([]byte(frag), &wire); err != nil {
			continue
		}
		if !domain.ValidTrackID(wire.ID) {
			continue
		}
		if _, dup := seen[wire.ID]; dup {
			continue
		}
		seen[wire.ID] = struct{}{}
		entries = append(entries, rankedEntry{ID: wire.ID, Features: wire.toFeatures()})
	}
	return entries
}

func parseBareIDs(body string) []rankedEntry {
	var entries []rankedEntry
	seen := make(map[string]struct{})
	for _, id := range bareIDPattern.FindAllString(body, -1) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, rankedEntry{ID: id})
	}
	return entries
}

func toEntries(wire []wireRankedTrack) []rankedEntry {
	var entries []rankedEntry
	seen := make(map[string]struct{})
	for _, w := range wire {
		if !domain.ValidTrackID(w.ID) {
			continue
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		entries = append(entries, rankedEntry{ID: w.ID, Features: w.toFeatures()})
	}
	return entries
}

// Per-field defaults substituted when the service omits a value.
const (
	defaultEnergy           = 0.5
	defaultValence          = 0.5
	defaultAcousticness     = 0.2
	defaultInstrumentalness = 0.05
	defaultLiveness         = 0.1
	defaultSpeechiness      = 0.05
	defaultTempo            = 100.0

	minTempoBPM = 40.0
	maxTempoBPM = 220.0
)

// toFeatures converts a wire record to domain features, clamping fractional
// fields to [0,1], tempo to a sane BPM range, and filling omitted fields
// with the defaults. Returns nil when no feature field was present at all.
func (w wireRankedTrack) toFeatures() *domain.AudioFeatures {
	if w.Danceability == nil && w.Energy == nil && w.Valence == nil &&
		w.Acousticness == nil && w.Instrumentalness == nil &&
		w.Liveness == nil && w.Speechiness == nil && w.TempoBPM == nil {
		return nil
	}

	energy := fraction(w.Energy, defaultEnergy)
	valence := fraction(w.Valence, defaultValence)

	f := domain.AudioFeatures{
		Danceability:     fraction(w.Danceability, energy*0.7+valence*0.3),
		Energy:           energy,
		Valence:          valence,
		Acousticness:     fraction(w.Acousticness, defaultAcousticness),
		Instrumentalness: fraction(w.Instrumentalness, defaultInstrumentalness),
		Liveness:         fraction(w.Liveness, defaultLiveness),
		Speechiness:      fraction(w.Speechiness, defaultSpeechiness),
		Tempo:            tempo(w.TempoBPM),
	}
	return &f
}

func fraction(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return domain.Clamp01(*v)
}

func tempo(v *float64) float64 {
	if v == nil {
		return defaultTempo
	}
	t := *v
	if t < minTempoBPM {
		return minTempoBPM
	}
	if t > maxTempoBPM {
		return maxTempoBPM
	}
	return t
}
