package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DailyStats is one aggregate row per (user, UTC calendar day). The slice
// fields are parallel arrays: every message appends exactly one element to
// each of them, so their lengths always equal MessageCount.
type DailyStats struct {
	ID                   int64     `json:"id"`
	UserID               int64     `json:"user_id"`
	Date                 string    `json:"date"` // YYYY-MM-DD, UTC
	MessageCount         int       `json:"message_count"`
	TotalMessageChars    int       `json:"total_message_chars"`
	Emotions             []string  `json:"emotions"`
	Topics               []string  `json:"topics"`
	MessageTimestamps    []string  `json:"message_timestamps"` // "HH:MM", UTC
	MessageWordCounts    []int     `json:"message_word_counts"`
	TyposPerMessage      []int     `json:"typos_per_message"`
	SentimentScores      []float64 `json:"sentiment_scores"`
	EmotionalIntensities []int     `json:"emotional_intensities"`
}

// StatsDay formats a time as the UTC day key used by daily_stats.
func StatsDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// GetDailyStats returns the row for (userID, day), or nil when absent.
func (db *DB) GetDailyStats(ctx context.Context, userID int64, day string) (*DailyStats, error) {
	var s DailyStats
	var emotions, topics, timestamps, wordCounts, typos, sentiments, intensities string
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, date, message_count, total_message_chars,
		       emotions, topics, message_timestamps, message_word_counts,
		       typos_per_message, sentiment_scores, emotional_intensities
		FROM daily_stats WHERE user_id = ? AND date = ?`,
		userID, day,
	).Scan(&s.ID, &s.UserID, &s.Date, &s.MessageCount, &s.TotalMessageChars,
		&emotions, &topics, &timestamps, &wordCounts, &typos, &sentiments, &intensities)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw  string
		dest any
	}{
		{emotions, &s.Emotions},
		{topics, &s.Topics},
		{timestamps, &s.MessageTimestamps},
		{wordCounts, &s.MessageWordCounts},
		{typos, &s.TyposPerMessage},
		{sentiments, &s.SentimentScores},
		{intensities, &s.EmotionalIntensities},
	} {
		if err := json.Unmarshal([]byte(pair.raw), pair.dest); err != nil {
			return nil, fmt.Errorf("daily_stats row %d: %w", s.ID, err)
		}
	}
	return &s, nil
}

// InsertDailyStats creates the first row of the day.
func (db *DB) InsertDailyStats(ctx context.Context, s *DailyStats) error {
	cols, err := marshalStatsArrays(s)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO daily_stats (
			user_id, date, message_count, total_message_chars,
			emotions, topics, message_timestamps, message_word_counts,
			typos_per_message, sentiment_scores, emotional_intensities
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Date, s.MessageCount, s.TotalMessageChars,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], cols[6],
	)
	if err != nil {
		return err
	}
	s.ID, _ = res.LastInsertId()
	return nil
}

// UpdateDailyStats overwrites the counters and arrays of an existing row.
// Callers append to the arrays in memory first; this is the write half of the
// read-modify-write the aggregator performs, and it carries that pattern's
// known race for concurrent same-user updates.
func (db *DB) UpdateDailyStats(ctx context.Context, s *DailyStats) error {
	cols, err := marshalStatsArrays(s)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE daily_stats SET
			message_count = ?, total_message_chars = ?,
			emotions = ?, topics = ?, message_timestamps = ?, message_word_counts = ?,
			typos_per_message = ?, sentiment_scores = ?, emotional_intensities = ?
		WHERE id = ?`,
		s.MessageCount, s.TotalMessageChars,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], cols[6],
		s.ID,
	)
	return err
}

func marshalStatsArrays(s *DailyStats) ([7]string, error) {
	var out [7]string
	for i, v := range []any{
		orEmpty(s.Emotions), orEmpty(s.Topics), orEmpty(s.MessageTimestamps),
		orEmptyInts(s.MessageWordCounts), orEmptyInts(s.TyposPerMessage),
		orEmptyFloats(s.SentimentScores), orEmptyInts(s.EmotionalIntensities),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		out[i] = string(b)
	}
	return out, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

func orEmptyFloats(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}
