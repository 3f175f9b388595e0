package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Rule is a user-authored instruction for the assistant. Append-only with
// soft deactivation.
type Rule struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// InsertRule inserts an active rule and fills its id and created_at.
// description may be empty, which is stored as NULL.
func (db *DB) InsertRule(ctx context.Context, r *Rule) error {
	r.ID = uuid.NewString()
	r.IsActive = true
	r.CreatedAt = time.Now().UTC()
	var desc sql.NullString
	if r.Description != "" {
		desc = sql.NullString{String: r.Description, Valid: true}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO rules (id, user_id, content, description, is_active, created_at)
		 VALUES (?, ?, ?, ?, 1, ?)`,
		r.ID, r.UserID, r.Content, desc, r.CreatedAt,
	)
	return err
}

// ActiveRules returns the user's active rules, oldest first.
func (db *DB) ActiveRules(ctx context.Context, userID int64) ([]Rule, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, content, COALESCE(description,''), is_active, created_at
		 FROM rules WHERE user_id = ? AND is_active = 1 ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.UserID, &r.Content, &r.Description, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeactivateRule soft-deletes a rule. Rows are never removed.
func (db *DB) DeactivateRule(ctx context.Context, id string, userID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE rules SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	return err
}
