package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is an immutable chat message record. Written once, never mutated.
type Message struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // user, bot
	CreatedAt time.Time `json:"created_at"`
}

// InsertMessage inserts a message and returns the stored row.
func (db *DB) InsertMessage(ctx context.Context, userID int64, content, sender string) (*Message, error) {
	m := &Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Sender:    sender,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, content, sender, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Content, m.Sender, m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage retrieves a message by id.
func (db *DB) GetMessage(ctx context.Context, id string) (*Message, error) {
	var m Message
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, content, sender, created_at FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.UserID, &m.Content, &m.Sender, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecentUserMessages returns the user's last N user-sent messages,
// newest first.
func (db *DB) RecentUserMessages(ctx context.Context, userID int64, limit int) ([]Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, content, sender, created_at FROM messages
		 WHERE user_id = ? AND sender = 'user'
		 ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.Sender, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UserMessagesBetween returns up to limit user-sent messages within
// [from, to], newest first. Drives the dedup windows.
func (db *DB) UserMessagesBetween(ctx context.Context, userID int64, from, to time.Time, limit int) ([]Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, content, sender, created_at FROM messages
		 WHERE user_id = ? AND sender = 'user' AND created_at >= ? AND created_at <= ?
		 ORDER BY created_at DESC LIMIT ?`, userID, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &m.Sender, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LastUserMessage returns the most recent user-sent message, or nil when the
// user has none.
func (db *DB) LastUserMessage(ctx context.Context, userID int64) (*Message, error) {
	msgs, err := db.RecentUserMessages(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}
