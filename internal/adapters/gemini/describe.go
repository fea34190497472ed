package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/ports"
)

const describeMaxTokens = 256

// fallbackDescription titles a mix when the service is unavailable.
var fallbackDescription = domain.SetDescription{
	Title:       "Mood Mix",
	Description: "A hand-picked set to match your vibe.",
	Emoji:       "🎧",
}

// Describer generates the title card for a finished mix.
type Describer struct {
	client *Client
}

var _ ports.SetDescriber = (*Describer)(nil)

// NewDescriber constructs a Describer.
func NewDescriber(client *Client) *Describer {
	return &Describer{client: client}
}

// Describe asks the service for a short title, description, and emoji for
// the set. Any failure yields the fixed fallback text.
func (d *Describer) Describe(ctx context.Context, vibeText string, tracks []domain.Track) domain.SetDescription {
	if !d.client.Configured() || len(tracks) == 0 {
		return fallbackDescription
	}

	text, err := d.client.generate(ctx, apiVersions[0], fallbackModels[0],
		describePrompt(vibeText, tracks), describeMaxTokens)
	if err != nil {
		d.client.logger.Warn("gemini: describe failed, using fallback", "error", err)
		return fallbackDescription
	}

	var parsed struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Emoji       string `json:"emoji"`
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &parsed); err != nil {
		d.client.logger.Warn("gemini: describe response unparseable, using fallback", "error", err)
		return fallbackDescription
	}
	if parsed.Title == "" {
		parsed.Title = fallbackDescription.Title
	}
	if parsed.Description == "" {
		parsed.Description = fallbackDescription.Description
	}
	if parsed.Emoji == "" {
		parsed.Emoji = fallbackDescription.Emoji
	}
	return domain.SetDescription{
		Title:       parsed.Title,
		Description: parsed.Description,
		Emoji:       parsed.Emoji,
	}
}

func describePrompt(vibeText string, tracks []domain.Track) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name this playlist. The listener asked for: %q.\nIt contains:\n", vibeText)
	limit := len(tracks)
	if limit > 10 {
		limit = 10
	}
	for _, t := range tracks[:limit] {
		fmt.Fprintf(&sb, "- %s — %s\n", t.Title, t.Artist)
	}
	sb.WriteString("\nReturn ONLY a JSON object: {\"title\": \"...\", \"description\": \"...\", \"emoji\": \"...\"}. Title under 6 words, description one sentence, emoji a single character.\n")
	return sb.String()
}
