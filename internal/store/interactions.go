package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Interaction is one persisted structured behavioral analysis result tied to
// a triggering user message. Created once, never updated or deleted.
type Interaction struct {
	ID                    string    `json:"id"`
	UserID                int64     `json:"user_id"`
	UserMessageID         string    `json:"user_message_id,omitempty"`
	Trigger               string    `json:"trigger"`
	Thought               string    `json:"thought"`
	EmotionName           string    `json:"emotion_name"`
	EmotionIntensity      int       `json:"emotion_intensity"`
	Action                string    `json:"action"`
	Consequence           string    `json:"consequence"`
	Patterns              []string  `json:"patterns"`
	Goal                  string    `json:"goal"`
	IneffectivenessReason string    `json:"ineffectiveness_reason"`
	HiddenNeed            string    `json:"hidden_need"`
	Alternatives          []string  `json:"alternatives"`
	Physiology            string    `json:"physiology"`
	RawResponse           string    `json:"raw_response"`
	CreatedAt             time.Time `json:"created_at"`
}

// InsertInteraction inserts the interaction and fills its id and created_at.
func (db *DB) InsertInteraction(ctx context.Context, it *Interaction) error {
	it.ID = uuid.NewString()
	it.CreatedAt = time.Now().UTC()
	patterns, err := json.Marshal(emptyIfNil(it.Patterns))
	if err != nil {
		return err
	}
	alternatives, err := json.Marshal(emptyIfNil(it.Alternatives))
	if err != nil {
		return err
	}
	var msgID sql.NullString
	if it.UserMessageID != "" {
		msgID = sql.NullString{String: it.UserMessageID, Valid: true}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO interactions (
			id, user_id, user_message_id, "trigger", thought, emotion_name, emotion_intensity,
			action, consequence, patterns, goal, ineffectiveness_reason, hidden_need,
			alternatives, physiology, raw_response, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.UserID, msgID, it.Trigger, it.Thought, it.EmotionName, it.EmotionIntensity,
		it.Action, it.Consequence, string(patterns), it.Goal, it.IneffectivenessReason, it.HiddenNeed,
		string(alternatives), it.Physiology, it.RawResponse, it.CreatedAt,
	)
	return err
}

// InteractionForMessage returns the interaction referencing the given user
// message id, or nil when none exists. Backs the per-message idempotence
// check in the recorder.
func (db *DB) InteractionForMessage(ctx context.Context, userMessageID string) (*Interaction, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(user_message_id,''), "trigger", thought, emotion_name, emotion_intensity,
		       action, consequence, patterns, goal, ineffectiveness_reason, hidden_need,
		       alternatives, physiology, raw_response, created_at
		FROM interactions WHERE user_message_id = ? ORDER BY created_at DESC LIMIT 1`,
		userMessageID)
	it, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// RecentInteractions returns the user's last N interactions, newest first.
func (db *DB) RecentInteractions(ctx context.Context, userID int64, limit int) ([]Interaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(user_message_id,''), "trigger", thought, emotion_name, emotion_intensity,
		       action, consequence, patterns, goal, ineffectiveness_reason, hidden_need,
		       alternatives, physiology, raw_response, created_at
		FROM interactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Interaction
	for rows.Next() {
		it, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(row rowScanner) (*Interaction, error) {
	var it Interaction
	var patterns, alternatives string
	err := row.Scan(
		&it.ID, &it.UserID, &it.UserMessageID, &it.Trigger, &it.Thought, &it.EmotionName, &it.EmotionIntensity,
		&it.Action, &it.Consequence, &patterns, &it.Goal, &it.IneffectivenessReason, &it.HiddenNeed,
		&alternatives, &it.Physiology, &it.RawResponse, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(patterns), &it.Patterns); err != nil {
		it.Patterns = nil
	}
	if err := json.Unmarshal([]byte(alternatives), &it.Alternatives); err != nil {
		it.Alternatives = nil
	}
	return &it, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
