package audit

import "time"

// Event is an immutable, append-only record of one delivery attempt.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit writes are best-effort; delivery must not block on them.
//
// Storage recommendation (Postgres):
// - Table delivery_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	Outcome Outcome `json:"outcome" db:"outcome"`

	// WithAudio records whether an audio attachment reached the channel.
	WithAudio bool `json:"with_audio" db:"with_audio"`

	// Detail is a short human-readable note for internal ops, typically
	// the error that forced a fallback or failure.
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Outcome string

const (
	OutcomeDelivered    Outcome = "delivered"
	OutcomeTextFallback Outcome = "delivered_text_fallback"
	OutcomeFailed       Outcome = "failed"
)
