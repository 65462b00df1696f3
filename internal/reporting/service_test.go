package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"pbx-notifier/internal/calls"
)

type fakeSource struct {
	rows []calls.CallRecord
	err  error
}

func (f fakeSource) ListCallsRange(ctx context.Context, start, end time.Time) ([]calls.CallRecord, error) {
	return f.rows, f.err
}

var (
	from = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
)

func TestSummarize_Counts(t *testing.T) {
	svc := NewService(fakeSource{rows: []calls.CallRecord{
		{ID: "1", Direction: calls.DirectionInbound, Status: calls.CallStatusAnswered, DurationSeconds: 60, TalkSeconds: 50, RecordingRef: "r"},
		{ID: "2", Direction: calls.DirectionInbound, Status: calls.CallStatusMissed},
		{ID: "3", Direction: calls.DirectionOutbound, Status: calls.CallStatusBusy, DurationSeconds: 10},
		{ID: "4", Direction: calls.DirectionOutbound, Status: calls.CallStatusFailed, DurationSeconds: 2},
		{ID: "5", Direction: calls.DirectionInternal, Status: calls.CallStatusAnswered, DurationSeconds: 30, TalkSeconds: 28},
	}})

	got, err := svc.Summarize(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if got.TotalCalls != 5 {
		t.Fatalf("total: got %d", got.TotalCalls)
	}
	if got.AnsweredCalls != 2 || got.MissedCalls != 1 || got.BusyCalls != 1 || got.FailedCalls != 1 {
		t.Fatalf("status counts wrong: %+v", got)
	}
	if got.InboundCalls != 2 || got.OutboundCalls != 2 {
		t.Fatalf("direction counts wrong: %+v", got)
	}
	if got.RecordedCalls != 1 {
		t.Fatalf("recorded: got %d", got.RecordedCalls)
	}
	if got.TotalDurationSeconds != 102 {
		t.Fatalf("total duration: got %d", got.TotalDurationSeconds)
	}
	if got.AverageDurationSeconds != 20 {
		t.Fatalf("avg duration: got %d", got.AverageDurationSeconds)
	}
	if got.TotalTalkSeconds != 78 {
		t.Fatalf("talk: got %d", got.TotalTalkSeconds)
	}
}

func TestSummarize_EmptyRangeIsZeroSummary(t *testing.T) {
	svc := NewService(fakeSource{})
	got, err := svc.Summarize(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.TotalCalls != 0 || got.AverageDurationSeconds != 0 {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestSummarize_InvalidRange(t *testing.T) {
	svc := NewService(fakeSource{})
	if _, err := svc.Summarize(context.Background(), to, from); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSummarize_PropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(fakeSource{err: boom})
	if _, err := svc.Summarize(context.Background(), from, to); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}
