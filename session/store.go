package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	session_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	target_id  TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, name)
);
CREATE INDEX IF NOT EXISTS idx_pages_target ON pages(target_id);
`

// Record is a stored page name → target binding.
type Record struct {
	SessionID string
	Name      string
	TargetID  string
	CreatedAt time.Time
}

// Store persists page bindings in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path with WAL and
// busy_timeout set. ":memory:" gives a private in-memory store.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("session: store mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: store open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Insert binds name to targetID. ErrExists when the name is taken.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	err := retryBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO pages (session_id, name, target_id, created_at) VALUES (?, ?, ?, ?)`,
			rec.SessionID, rec.Name, rec.TargetID, rec.CreatedAt.UnixMilli())
		return err
	})
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %s", ErrExists, rec.Name)
		}
		return fmt.Errorf("session: insert page: %w", err)
	}
	return nil
}

// Get returns the binding of name in sessionID.
func (s *Store) Get(ctx context.Context, sessionID, name string) (Record, error) {
	rec := Record{SessionID: sessionID, Name: name}
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT target_id, created_at FROM pages WHERE session_id = ? AND name = ?`,
		sessionID, name).Scan(&rec.TargetID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: page %s", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("session: get page: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created)
	return rec, nil
}

// List returns the bindings of sessionID in creation order.
func (s *Store) List(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, target_id, created_at FROM pages WHERE session_id = ? ORDER BY created_at, name`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: list pages: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{SessionID: sessionID}
		var created int64
		if err := rows.Scan(&rec.Name, &rec.TargetID, &created); err != nil {
			return nil, fmt.Errorf("session: scan page: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a binding. ErrNotFound when there was none.
func (s *Store) Delete(ctx context.Context, sessionID, name string) error {
	var n int64
	err := retryBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM pages WHERE session_id = ? AND name = ?`, sessionID, name)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("session: delete page: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: page %s", ErrNotFound, name)
	}
	return nil
}

// Count returns the number of stored pages across sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("session: count pages: %w", err)
	}
	return n, nil
}

const busyRetries = 3

// retryBusy runs fn, retrying with 100/200 ms backoff while SQLite
// reports the database as locked.
func retryBusy(ctx context.Context, fn func() error) error {
	var err error
	for i := range busyRetries {
		if err = fn(); err == nil || !isBusy(err) || i == busyRetries-1 {
			return err
		}
		t := time.NewTimer(time.Duration(100*(i+1)) * time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "SQLITE_CONSTRAINT")
}
