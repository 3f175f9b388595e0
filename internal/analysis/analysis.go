// Package analysis validates the structured JSON the analysis model returns.
// The model's text is expected but not guaranteed to be parseable; malformed
// output is a first-class error here, never a crash downstream.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when the model's text cannot be parsed as
// the expected schema.
var ErrMalformedOutput = errors.New("analysis: malformed model output")

// Emotion is the named emotion of a behavior chain with its 1-10 intensity.
type Emotion struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
}

// Chain is the structured chain-analysis result. Missing nested fields
// default to empty strings/arrays/zero rather than failing the parse: partial
// analysis output degrades gracefully (the one documented defaulting step).
type Chain struct {
	Trigger               string   `json:"trigger"`
	Thought               string   `json:"thought"`
	Emotion               Emotion  `json:"emotion"`
	Action                string   `json:"action"`
	Consequence           string   `json:"consequence"`
	Patterns              []string `json:"patterns"`
	Goal                  string   `json:"goal"`
	IneffectivenessReason string   `json:"ineffectivenessReason"`
	HiddenNeed            string   `json:"hiddenNeed"`
	Alternatives          []string `json:"alternatives"`
	Physiology            string   `json:"physiology"`
	RawResponse           string   `json:"-"`
}

// ParseChain decodes raw model text into a Chain. The raw text (fences
// stripped) is preserved in RawResponse for report rendering.
func ParseChain(raw string) (*Chain, error) {
	body := stripFences(raw)
	var c Chain
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if c.Patterns == nil {
		c.Patterns = []string{}
	}
	if c.Alternatives == nil {
		c.Alternatives = []string{}
	}
	c.RawResponse = body
	return &c, nil
}

// JournalDraft is a candidate journal entry derived from one message.
type JournalDraft struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

// ParseJournal decodes a journal draft. An empty content field means the
// model decided there is nothing worth keeping; that is reported as
// (nil, nil), not an error.
func ParseJournal(raw string) (*JournalDraft, error) {
	var d JournalDraft
	if err := json.Unmarshal([]byte(stripFences(raw)), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	d.Content = strings.TrimSpace(d.Content)
	if d.Content == "" {
		return nil, nil
	}
	if d.Type == "" {
		d.Type = "INSIGHT"
	}
	d.Description = strings.TrimSpace(d.Description)
	return &d, nil
}

// Metrics are the per-message derived values feeding daily stats. Unlike
// Chain, every field is required: a stats update with missing values would
// break array parity downstream, so the whole parse fails instead.
type Metrics struct {
	PrimaryEmotion     string   `json:"primaryEmotion"`
	TopicTag           string   `json:"topicTag"`
	TyposCount         *float64 `json:"typosCount"`
	SentimentScore     *float64 `json:"sentimentScore"`
	EmotionalIntensity *float64 `json:"emotionalIntensity"`
}

// ParseMetrics decodes and validates daily-stat metrics.
func ParseMetrics(raw string) (*Metrics, error) {
	var m Metrics
	if err := json.Unmarshal([]byte(stripFences(raw)), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if m.PrimaryEmotion == "" || m.TopicTag == "" ||
		m.TyposCount == nil || m.SentimentScore == nil || m.EmotionalIntensity == nil {
		return nil, fmt.Errorf("%w: incomplete metrics", ErrMalformedOutput)
	}
	return &m, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// wrap around JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
