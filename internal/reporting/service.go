package reporting

import (
	"context"
	"errors"
	"time"

	"pbx-notifier/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Source abstracts the call history lookup for reporting.
// Implementations must return records oldest first.
type Source interface {
	ListCallsRange(ctx context.Context, start, end time.Time) ([]calls.CallRecord, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service { return &Service{source: source} }

// Summary aggregates counts over one query range. Pure aggregation; no
// derived state is persisted.
type Summary struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	TotalCalls     int `json:"total_calls"`
	AnsweredCalls  int `json:"answered_calls"`
	MissedCalls    int `json:"missed_calls"`
	BusyCalls      int `json:"busy_calls"`
	FailedCalls    int `json:"failed_calls"`
	CancelledCalls int `json:"cancelled_calls"`

	InboundCalls  int `json:"inbound_calls"`
	OutboundCalls int `json:"outbound_calls"`

	RecordedCalls int `json:"recorded_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
	TotalTalkSeconds       int `json:"total_talk_seconds"`
}

// Summarize computes aggregate counts for calls in [from, to).
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (Summary, error) {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return Summary{}, ErrInvalidRequest
	}
	if s.source == nil {
		return Summary{}, errors.New("reporting: source not configured")
	}

	rows, err := s.source.ListCallsRange(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{From: from, To: to}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		out.TotalTalkSeconds += c.TalkSeconds
		if c.HasRecording() {
			out.RecordedCalls++
		}

		switch c.Status {
		case calls.CallStatusAnswered:
			out.AnsweredCalls++
		case calls.CallStatusMissed:
			out.MissedCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCancelled:
			out.CancelledCalls++
		case calls.CallStatusFailed, calls.CallStatusRejected:
			out.FailedCalls++
		}

		switch c.Direction {
		case calls.DirectionInbound:
			out.InboundCalls++
		case calls.DirectionOutbound:
			out.OutboundCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}
