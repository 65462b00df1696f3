package watermark

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// Store persists the watermark between cycles and across restarts.
//
// Single-writer discipline: only one delivery cycle runs at a time (the
// pipeline serializes invocations), so Store implementations do not need
// their own optimistic locking.
type Store interface {
	// Load returns the current watermark. A store with no saved value yet
	// returns ok=false; the caller decides the initial policy.
	Load(ctx context.Context) (w Watermark, ok bool, err error)
	Save(ctx context.Context, w Watermark) error
}

// PostgresStore keeps the watermark in a single named row.
//
// Expected table:
//
//	CREATE TABLE watermarks (
//	    name         TEXT PRIMARY KEY,
//	    last_start   TIMESTAMPTZ NOT NULL,
//	    last_call_id TEXT NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db   *sql.DB
	name string
}

func NewPostgresStore(db *sql.DB, name string) *PostgresStore {
	if name == "" {
		name = "delivery"
	}
	return &PostgresStore{db: db, name: name}
}

func (s *PostgresStore) Load(ctx context.Context) (Watermark, bool, error) {
	const q = `
SELECT last_start, last_call_id
FROM watermarks
WHERE name = $1
`
	var w Watermark
	err := s.db.QueryRowContext(ctx, q, s.name).Scan(&w.LastStart, &w.LastCallID)
	if errors.Is(err, sql.ErrNoRows) {
		return Watermark{}, false, nil
	}
	if err != nil {
		return Watermark{}, false, err
	}
	w.LastStart = w.LastStart.UTC()
	return w, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, w Watermark) error {
	const q = `
INSERT INTO watermarks (name, last_start, last_call_id, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE
SET last_start = EXCLUDED.last_start,
    last_call_id = EXCLUDED.last_call_id,
    updated_at = EXCLUDED.updated_at
`
	_, err := s.db.ExecContext(ctx, q, s.name, w.LastStart.UTC(), w.LastCallID, time.Now().UTC())
	return err
}

// MemoryStore is an in-process store useful for tests.
type MemoryStore struct {
	mu  sync.Mutex
	w   Watermark
	set bool

	// SaveErr, when set, is returned by Save to simulate storage failures.
	SaveErr error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (Watermark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.set, nil
}

func (s *MemoryStore) Save(ctx context.Context, w Watermark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.w = w
	s.set = true
	return nil
}
