package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is a long-term note derived asynchronously from a message.
// Best-effort: absence is never an error.
type JournalEntry struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	SourceMessageID string    `json:"source_message_id"`
	Type            string    `json:"type"`
	Content         string    `json:"content"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// InsertJournalEntry inserts the entry and fills its id and created_at.
func (db *DB) InsertJournalEntry(ctx context.Context, e *JournalEntry) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	var desc sql.NullString
	if e.Description != "" {
		desc = sql.NullString{String: e.Description, Valid: true}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, user_id, source_message_id, type, content, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.SourceMessageID, e.Type, e.Content, desc, e.CreatedAt,
	)
	return err
}

// JournalEntries returns up to limit entries for the user, oldest first.
func (db *DB) JournalEntries(ctx context.Context, userID int64, limit int) ([]JournalEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, source_message_id, type, content, COALESCE(description,''), created_at
		 FROM journal_entries WHERE user_id = ? ORDER BY created_at ASC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SourceMessageID, &e.Type, &e.Content, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
