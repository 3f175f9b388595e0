// Package bot routes each inbound text through the user's current
// interaction mode and turns the outcome into reply chunks.
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/assembler"
	"github.com/reflectbot/reflectbot/internal/core"
	"github.com/reflectbot/reflectbot/internal/prompts"
	"github.com/reflectbot/reflectbot/internal/recorder"
	"github.com/reflectbot/reflectbot/internal/session"
	"github.com/reflectbot/reflectbot/internal/stats"
	"github.com/reflectbot/reflectbot/internal/store"
	"github.com/reflectbot/reflectbot/internal/tasks"
)

// User-visible fixed replies. Internal diagnostics never reach the user.
const (
	replyApology = "Sorry, something went wrong on my side. Please try again in a moment."

	replyGreeting = "Hi! Tell me about a situation that troubled you and I'll help you take it apart.\n\n" +
		"Commands:\n/talk — free conversation\n/add_rule — save a personal rule\n/rules — list your rules\n/report — behavior report\n/done — leave the current mode"

	replyHelp = "Describe a situation in your own words and I'll analyze the behavior chain behind it. " +
		"Use /talk for open conversation, /add_rule to teach me your personal rules, /report for a summary of saved analyses."

	replyRulePrompt       = "What rule should I remember? Send it as one message."
	replyRuleDescPrompt   = "Got it. Add a short context for the rule, or send \"-\" to skip."
	replyRuleSaved        = "Rule saved. I'll keep it in mind."
	replyRuleLost         = "I lost track of the rule you were adding. Please start again with /add_rule."
	replyCoreEntered      = "I'm listening. Say whatever is on your mind; /done to finish."
	replyModeLeft         = "Okay, back to regular mode."
	replyPostAnalysisHint = "\n\nYou can ask follow-up questions about this analysis, or send /done to finish."
)

// exitTokens end CoreMode and PostAnalysis, matched case-insensitively
// against the whole trimmed message.
var exitTokens = map[string]bool{
	"/done":  true,
	"done":   true,
	"stop":   true,
	"exit":   true,
	"enough": true,
}

// Bot wires the session router, the analysis pipeline and the background
// enrichment together. One instance serves all users.
type Bot struct {
	DB        *store.DB
	Sessions  *session.Manager
	Assembler *assembler.Assembler
	Recorder  *recorder.Recorder
	Stats     *stats.Aggregator
	Tasks     *tasks.Runner
	Client    core.LLMClient
	Prompts   *prompts.Registry
	Log       *zap.Logger

	// Context window sizes (messages / journal entries).
	RecentWindow  int
	JournalWindow int
}

// HandleText processes one inbound user text and returns the reply chunks,
// each already persisted as a bot message. Routing is a pure function of
// (current session, text): the first matching active mode handles the
// message, and no handler leaves more than one mode flag set.
func (b *Bot) HandleText(ctx context.Context, userID int64, username, firstName, lastName, text string) ([]string, error) {
	if err := b.DB.UpsertUser(ctx, userID, username, firstName, lastName); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	msg, err := b.DB.InsertMessage(ctx, userID, text, core.SenderUser)
	if err != nil {
		return nil, err
	}

	var reply string
	st := b.Sessions.Get(userID)
	switch st.Mode {
	case session.ModeRuleContent:
		reply = b.handleRuleContent(userID, text)
	case session.ModeRuleDescription:
		reply = b.handleRuleDescription(ctx, userID, st, text)
	case session.ModeCore:
		reply = b.handleCore(ctx, userID, msg, text)
	case session.ModePostAnalysis:
		reply = b.handlePostAnalysis(ctx, userID, st, msg, text)
	default:
		reply = b.handleRegular(ctx, userID, msg, text)
	}
	if reply == "" {
		return nil, nil
	}

	chunks := SplitMessage(reply, MaxChunkLen)
	for _, c := range chunks {
		if _, err := b.DB.InsertMessage(ctx, userID, c, core.SenderBot); err != nil {
			b.Log.Error("persisting bot reply failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return chunks, nil
}

// command dispatches slash commands shared by the non-wizard modes. Returns
// ("", false) when text is not a known command.
func (b *Bot) command(ctx context.Context, userID int64, text string) (string, bool) {
	cmd := strings.ToLower(strings.Fields(text)[0])
	switch cmd {
	case "/start":
		b.Sessions.Reset(userID)
		return replyGreeting, true
	case "/help":
		return replyHelp, true
	case "/add_rule":
		// Mode entry clears any core/post-analysis state and stale scratch.
		b.Sessions.Enter(userID, session.ModeRuleContent)
		return replyRulePrompt, true
	case "/rules":
		return b.listRules(ctx, userID), true
	case "/talk":
		b.Sessions.Enter(userID, session.ModeCore)
		return replyCoreEntered, true
	case "/report":
		return b.behaviorReport(ctx, userID), true
	case "/done":
		b.Sessions.Reset(userID)
		return replyModeLeft, true
	}
	return "", false
}

func isExitToken(text string) bool {
	return exitTokens[strings.ToLower(strings.TrimSpace(text))]
}

// enrich dispatches the detached journal and daily-stats tasks for one user
// message. Runs after the reply: their failures never reach the user.
func (b *Bot) enrich(userID int64, msg *store.Message) {
	b.Tasks.Go("journal", func(ctx context.Context) error {
		return b.deriveJournalEntry(ctx, userID, msg)
	})
	b.Tasks.Go("daily_stats", func(ctx context.Context) error {
		b.Stats.Process(ctx, userID, msg.ID, msg.Content)
		return nil
	})
}
