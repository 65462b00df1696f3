package watermark

import (
	"time"

	"pbx-notifier/internal/calls"
)

// Watermark marks the last call that was handed to the delivery pipeline.
// Everything at or below it is considered already delivered.
//
// It carries both the start time and the call ID so that several calls
// starting within the same second can still be told apart.
type Watermark struct {
	LastStart  time.Time `json:"last_start" db:"last_start"`
	LastCallID string    `json:"last_call_id" db:"last_call_id"`
}

func (w Watermark) IsZero() bool {
	return w.LastStart.IsZero() && w.LastCallID == ""
}

// FilterNew returns the candidates that are strictly after the watermark,
// preserving source order (oldest first).
//
// When the watermark's call ID appears among the candidates, everything up
// to and including it is dropped; this is exact and immune to second-level
// timestamp ties. Otherwise the filter falls back to a strict timestamp
// comparison.
//
// Idempotence: for unchanged source data and an unchanged watermark, the
// result is always the same set in the same order.
func FilterNew(candidates []calls.CallRecord, w Watermark) []calls.CallRecord {
	if w.LastCallID != "" {
		for i, r := range candidates {
			if r.ID == w.LastCallID {
				if i+1 >= len(candidates) {
					return nil
				}
				out := make([]calls.CallRecord, len(candidates)-i-1)
				copy(out, candidates[i+1:])
				return out
			}
		}
	}

	var out []calls.CallRecord
	for _, r := range candidates {
		if r.StartedAt.After(w.LastStart) {
			out = append(out, r)
		}
	}
	return out
}

// Advance returns the watermark moved past rec.
//
// Monotonic: if rec starts before the current mark, the watermark is
// returned unchanged. This defends against out-of-order source responses.
// A record starting in the same second as the mark still advances the
// call ID, so same-second successors are not re-delivered.
func Advance(w Watermark, rec calls.CallRecord) Watermark {
	if rec.StartedAt.Before(w.LastStart) {
		return w
	}
	return Watermark{LastStart: rec.StartedAt, LastCallID: rec.ID}
}
