package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/assembler"
	"github.com/reflectbot/reflectbot/internal/core"
	"github.com/reflectbot/reflectbot/internal/dedup"
	"github.com/reflectbot/reflectbot/internal/prompts"
	"github.com/reflectbot/reflectbot/internal/recorder"
	"github.com/reflectbot/reflectbot/internal/session"
	"github.com/reflectbot/reflectbot/internal/stats"
	"github.com/reflectbot/reflectbot/internal/store"
	"github.com/reflectbot/reflectbot/internal/tasks"
)

const chainJSON = `{
	"trigger": "missed the bus",
	"thought": "the whole day is ruined",
	"emotion": {"name": "frustration", "intensity": 5},
	"action": "skipped the gym",
	"consequence": "felt worse",
	"patterns": ["all-or-nothing"],
	"goal": "regain control",
	"ineffectivenessReason": "gave up the day over one event",
	"hiddenNeed": "predictability",
	"alternatives": ["take the next bus"],
	"physiology": "clenched jaw"
}`

// stubLLM answers every call with the same text. Safe for the detached
// enrichment goroutines.
type stubLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (s *stubLLM) ChatCompletion(ctx context.Context, messages []core.Message, maxTokens int, temperature float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.response, s.err
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newBot(t *testing.T, llm core.LLMClient) (*Bot, *store.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := prompts.Load("")
	require.NoError(t, err)

	log := zap.NewNop()
	checker := dedup.NewChecker(db, 0)
	runner := tasks.NewRunner(log)
	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runner.Close(closeCtx)
	})

	return &Bot{
		DB:            db,
		Sessions:      session.NewManager(),
		Assembler:     assembler.New(db),
		Recorder:      recorder.New(db, checker, log),
		Stats:         stats.New(db, checker, llm, reg, log),
		Tasks:         runner,
		Client:        llm,
		Prompts:       reg,
		Log:           log,
		RecentWindow:  3,
		JournalWindow: 8,
	}, db
}

func handle(t *testing.T, b *Bot, userID int64, text string) []string {
	t.Helper()
	chunks, err := b.HandleText(context.Background(), userID, "tester", "Test", "", text)
	require.NoError(t, err)
	return chunks
}

func TestStartAndHelp(t *testing.T) {
	b, _ := newBot(t, &stubLLM{response: chainJSON})

	chunks := handle(t, b, 1, "/start")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyGreeting, chunks[0])

	chunks = handle(t, b, 1, "/help")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyHelp, chunks[0])
}

func TestEmptyInputIgnored(t *testing.T) {
	b, _ := newBot(t, &stubLLM{response: chainJSON})
	assert.Empty(t, handle(t, b, 1, "   "))
}

func TestRegularAnalysisFlow(t *testing.T) {
	llm := &stubLLM{response: chainJSON}
	b, db := newBot(t, llm)
	ctx := context.Background()

	chunks := handle(t, b, 1, "I missed the bus and everything fell apart")
	require.NotEmpty(t, chunks)
	reply := strings.Join(chunks, "\n")
	assert.Contains(t, reply, "Trigger: missed the bus")
	assert.Contains(t, reply, "Emotion: frustration (5/10)")
	assert.Contains(t, reply, "• take the next bus")
	assert.Contains(t, reply, "follow-up questions")

	// Exactly one interaction was recorded for the message.
	interactions, err := db.RecentInteractions(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, "frustration", interactions[0].EmotionName)

	// The user is now in post-analysis mode with the report retained.
	st := b.Sessions.Get(1)
	assert.Equal(t, session.ModePostAnalysis, st.Mode)
	assert.Contains(t, st.LastReport, "Trigger: missed the bus")

	// Reply chunks were persisted as bot messages.
	last, err := db.LastUserMessage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "I missed the bus and everything fell apart", last.Content)
}

func TestRegularAnalysisMalformedOutput(t *testing.T) {
	b, db := newBot(t, &stubLLM{response: "that's rough, buddy"})

	chunks := handle(t, b, 1, "something happened")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyApology, chunks[0])

	// No interaction row and no mode change on failure.
	interactions, err := db.RecentInteractions(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, interactions)
	assert.Equal(t, session.ModeRegular, b.Sessions.Get(1).Mode)
}

func TestPostAnalysisFollowUpAndExit(t *testing.T) {
	llm := &stubLLM{response: chainJSON}
	b, _ := newBot(t, llm)

	handle(t, b, 1, "I missed the bus")
	require.Equal(t, session.ModePostAnalysis, b.Sessions.Get(1).Mode)

	// Follow-up answers come straight from the model.
	llm.mu.Lock()
	llm.response = "It sounds like one setback colored the whole day."
	llm.mu.Unlock()
	chunks := handle(t, b, 1, "why did I react like that?")
	require.Len(t, chunks, 1)
	assert.Equal(t, "It sounds like one setback colored the whole day.", chunks[0])
	assert.Equal(t, session.ModePostAnalysis, b.Sessions.Get(1).Mode)

	chunks = handle(t, b, 1, "done")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyModeLeft, chunks[0])
	assert.Equal(t, session.ModeRegular, b.Sessions.Get(1).Mode)
}

func TestCoreModeConversation(t *testing.T) {
	llm := &stubLLM{response: "Tell me more about that."}
	b, _ := newBot(t, llm)

	chunks := handle(t, b, 1, "/talk")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyCoreEntered, chunks[0])
	assert.Equal(t, session.ModeCore, b.Sessions.Get(1).Mode)

	chunks = handle(t, b, 1, "lately I feel stuck")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Tell me more about that.", chunks[0])

	// Exit tokens are case-insensitive.
	chunks = handle(t, b, 1, "ENOUGH")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyModeLeft, chunks[0])
	assert.Equal(t, session.ModeRegular, b.Sessions.Get(1).Mode)
}

func TestRuleCaptureWizard(t *testing.T) {
	b, db := newBot(t, &stubLLM{response: chainJSON})
	ctx := context.Background()

	chunks := handle(t, b, 1, "/add_rule")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRulePrompt, chunks[0])
	assert.Equal(t, session.ModeRuleContent, b.Sessions.Get(1).Mode)

	chunks = handle(t, b, 1, "no phone in bed")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRuleDescPrompt, chunks[0])
	assert.Equal(t, session.ModeRuleDescription, b.Sessions.Get(1).Mode)

	// "-" skips the description.
	chunks = handle(t, b, 1, "-")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRuleSaved, chunks[0])
	assert.Equal(t, session.ModeRegular, b.Sessions.Get(1).Mode)

	rules, err := db.ActiveRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "no phone in bed", rules[0].Content)
	assert.Empty(t, rules[0].Description)
}

func TestRuleCaptureWithDescription(t *testing.T) {
	b, db := newBot(t, &stubLLM{response: chainJSON})

	handle(t, b, 1, "/add_rule")
	handle(t, b, 1, "one walk per day")
	chunks := handle(t, b, 1, "helps with rumination")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRuleSaved, chunks[0])

	rules, err := db.ActiveRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "helps with rumination", rules[0].Description)
}

func TestRuleCaptureLostScratch(t *testing.T) {
	b, db := newBot(t, &stubLLM{response: chainJSON})

	// Description mode without pending content, as after a restart.
	b.Sessions.Enter(1, session.ModeRuleDescription)
	chunks := handle(t, b, 1, "whatever")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRuleLost, chunks[0])
	assert.Equal(t, session.ModeRegular, b.Sessions.Get(1).Mode)

	rules, err := db.ActiveRules(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestAddRuleInterruptsCoreMode(t *testing.T) {
	b, _ := newBot(t, &stubLLM{response: "ok"})

	handle(t, b, 1, "/talk")
	chunks := handle(t, b, 1, "/add_rule")
	require.Len(t, chunks, 1)
	assert.Equal(t, replyRulePrompt, chunks[0])
	assert.Equal(t, session.ModeRuleContent, b.Sessions.Get(1).Mode)
}

func TestRulesCommand(t *testing.T) {
	b, db := newBot(t, &stubLLM{response: chainJSON})
	ctx := context.Background()

	chunks := handle(t, b, 1, "/rules")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "no saved rules yet")

	require.NoError(t, db.InsertRule(ctx, &store.Rule{UserID: 1, Content: "sleep by midnight", Description: "weekdays"}))
	chunks = handle(t, b, 1, "/rules")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "1. sleep by midnight (weekdays)")
}

func TestReportWithoutAnalyses(t *testing.T) {
	llm := &stubLLM{response: chainJSON}
	b, _ := newBot(t, llm)

	chunks := handle(t, b, 1, "/report")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "No saved analyses yet")
	assert.Zero(t, llm.callCount())
}

func TestLongReplyIsChunked(t *testing.T) {
	long := strings.Repeat("word ", 2000) // ~10000 chars
	b, _ := newBot(t, &stubLLM{response: strings.TrimSpace(long)})

	handle(t, b, 1, "/talk")
	chunks := handle(t, b, 1, "tell me something long")
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), MaxChunkLen)
	}
}
