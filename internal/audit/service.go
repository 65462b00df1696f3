package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for delivery audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records delivery outcomes. Callers should treat audit logging
// as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CallID == "" {
		return ErrInvalidEvent
	}
	if e.Outcome == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogDelivered records a successful delivery.
func (s *Service) LogDelivered(ctx context.Context, callID string, withAudio bool) error {
	return s.Append(ctx, Event{CallID: callID, Outcome: OutcomeDelivered, WithAudio: withAudio})
}

// LogTextFallback records a delivery that fell back to text-only.
func (s *Service) LogTextFallback(ctx context.Context, callID, reason string) error {
	return s.Append(ctx, Event{CallID: callID, Outcome: OutcomeTextFallback, Detail: reason})
}

// LogFailed records a delivery the channel refused entirely.
func (s *Service) LogFailed(ctx context.Context, callID, reason string) error {
	return s.Append(ctx, Event{CallID: callID, Outcome: OutcomeFailed, Detail: reason})
}
