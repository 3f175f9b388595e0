package store

import (
	"context"
	"time"
)

// User represents a chat user, created on first contact and never deleted.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// UpsertUser creates the user on first contact or refreshes display metadata
// and last_seen on repeat contact.
func (db *DB) UpsertUser(ctx context.Context, id int64, username, firstName, lastName string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_seen = CURRENT_TIMESTAMP`,
		id, username, firstName, lastName,
	)
	return err
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx,
		`SELECT id, COALESCE(username,''), COALESCE(first_name,''), COALESCE(last_name,''), created_at, last_seen
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt, &u.LastSeen)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ActiveUserIDs returns ids of users with at least one message since the
// given time. Used by the periodic check-in scheduler.
func (db *DB) ActiveUserIDs(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM messages WHERE created_at >= ? ORDER BY user_id`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
