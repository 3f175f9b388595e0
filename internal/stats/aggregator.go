// Package stats maintains the per-user daily statistics rows.
package stats

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/analysis"
	"github.com/reflectbot/reflectbot/internal/core"
	"github.com/reflectbot/reflectbot/internal/dedup"
	"github.com/reflectbot/reflectbot/internal/prompts"
	"github.com/reflectbot/reflectbot/internal/store"
)

var commandRe = regexp.MustCompile(`(?i)^/[a-z0-9_]+`)

// Store is the slice of persistence the aggregator needs.
type Store interface {
	GetDailyStats(ctx context.Context, userID int64, day string) (*store.DailyStats, error)
	InsertDailyStats(ctx context.Context, s *store.DailyStats) error
	UpdateDailyStats(ctx context.Context, s *store.DailyStats) error
}

// Aggregator appends one element per message to every parallel array of the
// user's daily row. It runs as a detached background task: every failure in
// Process (including the analysis call) is logged and swallowed so the
// user-visible reply can never be affected.
type Aggregator struct {
	DB      Store
	Checker *dedup.Checker
	Client  core.LLMClient
	Prompts *prompts.Registry
	Log     *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(db Store, checker *dedup.Checker, client core.LLMClient, reg *prompts.Registry, log *zap.Logger) *Aggregator {
	return &Aggregator{DB: db, Checker: checker, Client: client, Prompts: reg, Log: log, now: time.Now}
}

// Process runs the full background pipeline for one inbound message: filter,
// dedup, metrics call, update. It never returns an error to the caller.
func (a *Aggregator) Process(ctx context.Context, userID int64, messageID, rawText string) {
	trimmed := strings.TrimSpace(rawText)
	if trimmed == "" || commandRe.MatchString(trimmed) {
		return
	}

	dup, err := a.Checker.IsDuplicateToday(ctx, userID, trimmed, a.now(), messageID)
	if err != nil {
		a.Log.Error("daily stats dedup check failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if dup {
		a.Log.Debug("duplicate message, daily stats update skipped", zap.Int64("user_id", userID))
		return
	}

	prompt, err := a.Prompts.Render(prompts.Stats, map[string]string{"MESSAGE": trimmed})
	if err != nil {
		a.Log.Error("stats prompt unavailable", zap.Error(err))
		return
	}
	raw, err := a.Client.ChatCompletion(ctx, []core.Message{{Role: "user", Content: prompt}}, 400, 0.2)
	if err != nil {
		a.Log.Error("stats analysis call failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	metrics, err := analysis.ParseMetrics(raw)
	if err != nil {
		a.Log.Warn("stats analysis output unparsable", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	if err := a.Update(ctx, userID, trimmed, metrics); err != nil {
		a.Log.Error("daily stats update failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Update normalizes the derived metrics, computes the message-level metrics
// and appends to (or creates) the user's row for the current UTC day.
//
// The append is a read-modify-write with no concurrency guard: two
// concurrent updates for the same user can append to a stale array snapshot.
// Per-user handling is effectively sequential upstream, so this known race
// is accepted rather than locked around.
func (a *Aggregator) Update(ctx context.Context, userID int64, rawText string, m *analysis.Metrics) error {
	typos := int(math.Round(*m.TyposCount))
	if typos < 0 {
		typos = 0
	}
	intensity := int(math.Round(*m.EmotionalIntensity))
	if intensity < 1 {
		intensity = 1
	}
	if intensity > 10 {
		intensity = 10
	}
	sentiment := math.Round(*m.SentimentScore*10) / 10
	emotion := strings.ToLower(m.PrimaryEmotion)
	topic := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(m.TopicTag))), "_")

	charCount := utf8.RuneCountInString(rawText)
	wordCount := len(strings.Fields(rawText))
	now := a.now().UTC()
	timestamp := now.Format("15:04")
	day := store.StatsDay(now)

	row, err := a.DB.GetDailyStats(ctx, userID, day)
	if err != nil {
		return err
	}
	if row == nil {
		return a.DB.InsertDailyStats(ctx, &store.DailyStats{
			UserID:               userID,
			Date:                 day,
			MessageCount:         1,
			TotalMessageChars:    charCount,
			Emotions:             []string{emotion},
			Topics:               []string{topic},
			MessageTimestamps:    []string{timestamp},
			MessageWordCounts:    []int{wordCount},
			TyposPerMessage:      []int{typos},
			SentimentScores:      []float64{sentiment},
			EmotionalIntensities: []int{intensity},
		})
	}

	row.MessageCount++
	row.TotalMessageChars += charCount
	row.Emotions = append(row.Emotions, emotion)
	row.Topics = append(row.Topics, topic)
	row.MessageTimestamps = append(row.MessageTimestamps, timestamp)
	row.MessageWordCounts = append(row.MessageWordCounts, wordCount)
	row.TyposPerMessage = append(row.TyposPerMessage, typos)
	row.SentimentScores = append(row.SentimentScores, sentiment)
	row.EmotionalIntensities = append(row.EmotionalIntensities, intensity)
	return a.DB.UpdateDailyStats(ctx, row)
}
