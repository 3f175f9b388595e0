package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB for reflectbot storage. Schema is owned by the app.
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path and applies the schema. Creates the
// file if missing. Pass ":memory:" for tests.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.DB.Close()
}
