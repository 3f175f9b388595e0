// Package dedup decides whether a candidate message is a repeat of recent
// input. Two windows are used: a trailing-hour window guarding interaction
// creation and a calendar-day window guarding daily-stats updates.
package dedup

import (
	"context"
	"strings"
	"time"

	"github.com/reflectbot/reflectbot/internal/store"
)

// DefaultThreshold is the near-duplicate threshold. At 0.9 the containment
// check allows a length ratio of up to 1.2.
const DefaultThreshold = 0.9

const windowSize = 10

var punctReplacer = strings.NewReplacer(".", "", ",", "", "!", "", "?", "", ";", "", ":", "")

// Normalize lowercases the text, collapses whitespace runs to a single space
// and strips sentence punctuation, so that trivial variants of the same
// message compare equal.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = punctReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Similar reports whether two normalized strings are near-duplicates: the
// shorter must be fully contained in the longer, with the length ratio below
// the bound derived from threshold (1.2 at 0.9). This is a cheap containment
// heuristic, not edit-distance similarity: "i am tired" vs "i am tired and
// sad" is NOT similar (ratio 1.8), while "i am really tired today" vs
// "i am really tired today ok" is (ratio 1.13). Kept bit-compatible with the
// legacy formula; do not "fix" it to true similarity.
func Similar(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	maxRatio := 1 + 2*(1-threshold)
	return strings.Contains(longer, shorter) &&
		float64(len(longer))/float64(len(shorter)) < maxRatio
}

// duplicate applies both checks against one prior text.
func duplicate(candidate, prior string, threshold float64) bool {
	if candidate == prior {
		return true
	}
	return Similar(candidate, prior, threshold)
}

// MessageWindow is the slice of the store the checker reads.
type MessageWindow interface {
	UserMessagesBetween(ctx context.Context, userID int64, from, to time.Time, limit int) ([]store.Message, error)
}

// Checker runs the windowed duplicate checks. A hit means "skip the write";
// it is never an error.
type Checker struct {
	Messages  MessageWindow
	Threshold float64
}

// NewChecker builds a checker with the given threshold (0 means default).
func NewChecker(messages MessageWindow, threshold float64) *Checker {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Checker{Messages: messages, Threshold: threshold}
}

// IsDuplicateInteraction checks the candidate against the user's last 10
// user-sent messages in the hour trailing `at`, excluding the candidate row
// itself (excludeID).
func (c *Checker) IsDuplicateInteraction(ctx context.Context, userID int64, text string, at time.Time, excludeID string) (bool, error) {
	return c.check(ctx, userID, text, at.Add(-time.Hour), at, excludeID)
}

// IsDuplicateToday checks the candidate against the user's last 10 user-sent
// messages within the current UTC calendar day, excluding the candidate row
// itself (excludeID).
func (c *Checker) IsDuplicateToday(ctx context.Context, userID int64, text string, now time.Time, excludeID string) (bool, error) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	return c.check(ctx, userID, text, dayStart, dayStart.Add(24*time.Hour), excludeID)
}

func (c *Checker) check(ctx context.Context, userID int64, text string, from, to time.Time, excludeID string) (bool, error) {
	recent, err := c.Messages.UserMessagesBetween(ctx, userID, from, to, windowSize)
	if err != nil {
		return false, err
	}
	candidate := Normalize(text)
	for _, m := range recent {
		if m.ID == excludeID {
			continue
		}
		if duplicate(candidate, Normalize(m.Content), c.Threshold) {
			return true, nil
		}
	}
	return false, nil
}
