package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Call is one audited tool dispatch.
type Call struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id,omitempty"`
	Tool      string        `json:"tool"`
	Code      string        `json:"code,omitempty"`
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration_ms"`
	CreatedAt time.Time     `json:"created_at"`
}

// Recorder persists tool calls.
type Recorder interface {
	Record(ctx context.Context, c Call) error
	Recent(ctx context.Context, limit int) ([]Call, error)
	Close() error
}

// Nop discards every call.
type Nop struct{}

func (Nop) Record(context.Context, Call) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Call, error) { return nil, nil }
func (Nop) Close() error                                { return nil }

// Store is a Recorder backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record inserts c, filling ID and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, c Call) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, request_id, tool, code, success, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RequestID, c.Tool, c.Code, c.Success, c.Duration.Milliseconds(),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", c.Tool, err)
	}
	return nil
}

// Recent returns up to limit calls, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Call, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, tool, code, success, duration_ms, created_at
		 FROM tool_calls ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query recent: %w", err)
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var (
			c       Call
			ms      int64
			created string
		)
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Tool, &c.Code, &c.Success, &ms, &created); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		c.Duration = time.Duration(ms) * time.Millisecond
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("audit: parse created_at %q: %w", created, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
