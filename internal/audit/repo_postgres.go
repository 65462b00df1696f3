package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo persists delivery events.
//
// It assumes the following table exists:
//
//	CREATE TABLE delivery_events (
//	    id         TEXT PRIMARY KEY,
//	    call_id    TEXT NOT NULL,
//	    outcome    TEXT NOT NULL,
//	    with_audio BOOLEAN NOT NULL,
//	    detail     TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//
// Rows are only ever inserted.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO delivery_events (id, call_id, outcome, with_audio, detail, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.CallID, string(e.Outcome), e.WithAudio, e.Detail, e.CreatedAt); err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return nil
}
