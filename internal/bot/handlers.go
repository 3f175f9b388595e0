package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/analysis"
	"github.com/reflectbot/reflectbot/internal/core"
	"github.com/reflectbot/reflectbot/internal/prompts"
	"github.com/reflectbot/reflectbot/internal/session"
	"github.com/reflectbot/reflectbot/internal/store"
)

// handleRegular runs the chain-analysis flow: context blocks -> analysis
// prompt -> parse -> record -> post-analysis mode. Analysis failures produce
// the apology reply and leave no interaction row for the turn.
func (b *Bot) handleRegular(ctx context.Context, userID int64, msg *store.Message, text string) string {
	if reply, ok := b.command(ctx, userID, text); ok {
		return reply
	}

	vars, err := b.contextVars(ctx, userID)
	if err != nil {
		b.Log.Error("context assembly failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	vars["MESSAGE"] = text

	prompt, err := b.Prompts.Render(prompts.Analysis, vars)
	if err != nil {
		b.Log.Error("analysis template unavailable", zap.Error(err))
		return replyApology
	}
	raw, err := b.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 1000, 0.9)
	if err != nil {
		b.Log.Error("analysis call failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	chain, err := analysis.ParseChain(raw)
	if err != nil {
		b.Log.Warn("analysis output unparsable", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}

	res, err := b.Recorder.Record(ctx, userID, chain, msg.ID)
	if err != nil {
		b.Log.Error("interaction recording failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	if !res.Created {
		b.Log.Debug("interaction skipped", zap.Int64("user_id", userID), zap.String("reason", res.Reason))
	}

	report := formatChainReport(chain)
	b.Sessions.Enter(userID, session.ModePostAnalysis, func(st *session.State) {
		st.LastReport = report
	})
	b.enrich(userID, msg)
	return report + replyPostAnalysisHint
}

// handleCore is the free-conversation mode.
func (b *Bot) handleCore(ctx context.Context, userID int64, msg *store.Message, text string) string {
	if isExitToken(text) {
		b.Sessions.Reset(userID)
		return replyModeLeft
	}
	if reply, ok := b.command(ctx, userID, text); ok {
		return reply
	}

	rules, err := b.Assembler.RulesBlock(ctx, userID)
	if err != nil {
		b.Log.Error("rules block failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	history, err := b.Assembler.RecentMessages(ctx, userID, b.RecentWindow)
	if err != nil {
		b.Log.Error("history block failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}

	prompt, err := b.Prompts.Render(prompts.Core, map[string]string{
		"USER_RULES": rules,
		"HISTORY":    history,
		"MESSAGE":    text,
	})
	if err != nil {
		b.Log.Error("core template unavailable", zap.Error(err))
		return replyApology
	}
	reply, err := b.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 1000, 0.95)
	if err != nil {
		b.Log.Error("core conversation call failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	b.enrich(userID, msg)
	return reply
}

// handlePostAnalysis answers follow-up questions grounded on the last report.
func (b *Bot) handlePostAnalysis(ctx context.Context, userID int64, st session.State, msg *store.Message, text string) string {
	if isExitToken(text) {
		b.Sessions.Reset(userID)
		return replyModeLeft
	}
	if reply, ok := b.command(ctx, userID, text); ok {
		return reply
	}

	vars, err := b.contextVars(ctx, userID)
	if err != nil {
		b.Log.Error("context assembly failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	vars["HISTORY"] = st.LastReport + "\n\nFollow-up question: " + text

	prompt, err := b.Prompts.Render(prompts.Behavior, vars)
	if err != nil {
		b.Log.Error("behavior template unavailable", zap.Error(err))
		return replyApology
	}
	reply, err := b.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 1000, 0.9)
	if err != nil {
		b.Log.Error("post-analysis call failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	b.enrich(userID, msg)
	return reply
}

// handleRuleContent is step one of the rule capture wizard: any non-empty
// input becomes the pending rule content, no validation beyond trimming.
func (b *Bot) handleRuleContent(userID int64, text string) string {
	content := strings.TrimSpace(text)
	if content == "" {
		return replyRulePrompt
	}
	b.Sessions.Enter(userID, session.ModeRuleDescription, func(st *session.State) {
		st.RuleContent = content
	})
	return replyRuleDescPrompt
}

// handleRuleDescription is step two: the next input always terminates the
// capture flow, whether the description is real, empty or the "-" skip
// sentinel. A missing scratch (restart mid-flow) recovers to regular mode.
func (b *Bot) handleRuleDescription(ctx context.Context, userID int64, st session.State, text string) string {
	defer b.Sessions.Reset(userID)

	if st.RuleContent == "" {
		return replyRuleLost
	}
	description := strings.TrimSpace(text)
	if description == "-" {
		description = ""
	}
	rule := &store.Rule{UserID: userID, Content: st.RuleContent, Description: description}
	if err := b.DB.InsertRule(ctx, rule); err != nil {
		b.Log.Error("rule insert failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	return replyRuleSaved
}

// listRules renders the /rules command output.
func (b *Bot) listRules(ctx context.Context, userID int64) string {
	rules, err := b.DB.ActiveRules(ctx, userID)
	if err != nil {
		b.Log.Error("listing rules failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	if len(rules) == 0 {
		return "You have no saved rules yet. Add one with /add_rule."
	}
	var sb strings.Builder
	sb.WriteString("Your rules:\n")
	for i, r := range rules {
		fmt.Fprintf(&sb, "%d. %s", i+1, r.Content)
		if r.Description != "" {
			fmt.Fprintf(&sb, " (%s)", r.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// behaviorReport renders the /report command: the last five saved analyses
// through the behavior template.
func (b *Bot) behaviorReport(ctx context.Context, userID int64) string {
	interactions, err := b.DB.RecentInteractions(ctx, userID, 5)
	if err != nil {
		b.Log.Error("loading interactions failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	if len(interactions) == 0 {
		return "No saved analyses yet. Describe a situation and I'll start the first one."
	}

	vars, err := b.contextVars(ctx, userID)
	if err != nil {
		b.Log.Error("context assembly failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	vars["HISTORY"] = formatInteractionsForReport(interactions)

	prompt, err := b.Prompts.Render(prompts.Behavior, vars)
	if err != nil {
		b.Log.Error("behavior template unavailable", zap.Error(err))
		return replyApology
	}
	reply, err := b.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 1000, 0.9)
	if err != nil {
		b.Log.Error("report call failed", zap.Int64("user_id", userID), zap.Error(err))
		return replyApology
	}
	return reply
}

// deriveJournalEntry is the detached journal derivation task. Best-effort:
// commands and empty drafts are silently skipped, all failures logged only.
func (b *Bot) deriveJournalEntry(ctx context.Context, userID int64, msg *store.Message) error {
	trimmed := strings.TrimSpace(msg.Content)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") {
		return nil
	}
	prompt, err := b.Prompts.Render(prompts.Journal, map[string]string{"MESSAGE": trimmed})
	if err != nil {
		return err
	}
	raw, err := b.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 400, 0.3)
	if err != nil {
		return err
	}
	draft, err := analysis.ParseJournal(raw)
	if err != nil {
		b.Log.Warn("journal output unparsable", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	if draft == nil {
		return nil
	}
	return b.DB.InsertJournalEntry(ctx, &store.JournalEntry{
		UserID:          userID,
		SourceMessageID: msg.ID,
		Type:            draft.Type,
		Content:         draft.Content,
		Description:     draft.Description,
	})
}

// contextVars builds the three standard context blocks.
func (b *Bot) contextVars(ctx context.Context, userID int64) (map[string]string, error) {
	recent, err := b.Assembler.RecentMessages(ctx, userID, b.RecentWindow)
	if err != nil {
		return nil, err
	}
	journal, err := b.Assembler.JournalBlock(ctx, userID, b.JournalWindow)
	if err != nil {
		return nil, err
	}
	rules, err := b.Assembler.RulesBlock(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"RECENT_MESSAGES": recent,
		"JOURNAL_ENTRIES": journal,
		"USER_RULES":      rules,
	}, nil
}

// formatChainReport renders a parsed chain as the user-facing report.
func formatChainReport(c *analysis.Chain) string {
	var sb strings.Builder
	sb.WriteString("Here's the chain I see:\n")
	writeLine := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&sb, "\n%s: %s", label, value)
		}
	}
	writeLine("Trigger", c.Trigger)
	writeLine("Thought", c.Thought)
	if c.Emotion.Name != "" {
		fmt.Fprintf(&sb, "\nEmotion: %s (%d/10)", c.Emotion.Name, int(c.Emotion.Intensity))
	}
	writeLine("Action", c.Action)
	writeLine("Consequence", c.Consequence)
	writeLine("Goal", c.Goal)
	writeLine("Why it didn't work", c.IneffectivenessReason)
	writeLine("Hidden need", c.HiddenNeed)
	writeLine("Body", c.Physiology)
	if len(c.Patterns) > 0 {
		fmt.Fprintf(&sb, "\nPatterns: %s", strings.Join(c.Patterns, "; "))
	}
	if len(c.Alternatives) > 0 {
		sb.WriteString("\n\nWhat could work instead:")
		for _, a := range c.Alternatives {
			fmt.Fprintf(&sb, "\n• %s", a)
		}
	}
	return sb.String()
}

// formatInteractionsForReport renders saved analyses for the report prompt.
func formatInteractionsForReport(interactions []store.Interaction) string {
	blocks := make([]string, 0, len(interactions))
	for i, it := range interactions {
		var pretty json.RawMessage
		if json.Unmarshal([]byte(it.RawResponse), &pretty) == nil {
			if formatted, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				blocks = append(blocks, fmt.Sprintf("Analysis #%d:\n%s", i+1, formatted))
				continue
			}
		}
		blocks = append(blocks, fmt.Sprintf("Analysis #%d: [unparsable]", i+1))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
