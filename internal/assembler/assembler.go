// Package assembler builds the bounded text blocks substituted into prompt
// templates. Pure read-and-format; each block renders a fixed sentinel when
// empty so templates always receive a well-formed substitution.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/reflectbot/reflectbot/internal/store"
)

// Empty-block sentinels.
const (
	NoMessages = "— no recent messages"
	NoEntries  = "— no entries"
	NoRules    = "NO_RULES"
)

// Store is the slice of persistence the assembler reads.
type Store interface {
	RecentUserMessages(ctx context.Context, userID int64, limit int) ([]store.Message, error)
	JournalEntries(ctx context.Context, userID int64, limit int) ([]store.JournalEntry, error)
	ActiveRules(ctx context.Context, userID int64) ([]store.Rule, error)
}

// Assembler formats context blocks for prompt construction.
type Assembler struct {
	DB Store
}

func New(db Store) *Assembler {
	return &Assembler{DB: db}
}

// RecentMessages renders the user's last n user-sent messages, oldest first,
// one "[timestamp] content" line each.
func (a *Assembler) RecentMessages(ctx context.Context, userID int64, n int) (string, error) {
	msgs, err := a.DB.RecentUserMessages(ctx, userID, n)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return NoMessages, nil
	}
	// Fetched newest-first; present oldest-first.
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		lines = append(lines, fmt.Sprintf("[%s] %s", m.CreatedAt.Format("2006-01-02 15:04"), m.Content))
	}
	return strings.Join(lines, "\n"), nil
}

// JournalBlock renders up to n journal entries, oldest first.
func (a *Assembler) JournalBlock(ctx context.Context, userID int64, n int) (string, error) {
	entries, err := a.DB.JournalEntries(ctx, userID, n)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return NoEntries, nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("[%s] [%s] %s", e.CreatedAt.Format("2006-01-02"), e.Type, e.Content)
		if e.Description != "" {
			line += "\n  → " + e.Description
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// RulesBlock renders the user's active rules as indexed RULE_n blocks with an
// optional context line each.
func (a *Assembler) RulesBlock(ctx context.Context, userID int64) (string, error) {
	rules, err := a.DB.ActiveRules(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(rules) == 0 {
		return NoRules, nil
	}
	blocks := make([]string, 0, len(rules))
	for i, r := range rules {
		parts := []string{fmt.Sprintf("RULE_%d: %q", i+1, r.Content)}
		if r.Description != "" {
			parts = append(parts, fmt.Sprintf("  CONTEXT: %q", r.Description))
		}
		blocks = append(blocks, strings.Join(parts, "\n"))
	}
	return strings.Join(blocks, "\n\n"), nil
}
