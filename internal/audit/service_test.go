package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresCallAndOutcome(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Outcome: OutcomeDelivered}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{CallID: "call-1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_FillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogDelivered(context.Background(), "call-1", true); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].ID == "" {
		t.Fatalf("expected generated id")
	}
	if evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected timestamp")
	}
	if !evs[0].WithAudio {
		t.Fatalf("expected with_audio set")
	}
}

func TestService_RecordsFallbackAndFailure(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTextFallback(context.Background(), "call-1", "recording missing"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogFailed(context.Background(), "call-2", "channel rejected"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.ByCall("call-1")
	if len(evs) != 1 || evs[0].Outcome != OutcomeTextFallback {
		t.Fatalf("expected text fallback for call-1, got %+v", evs)
	}
	if evs[0].Detail != "recording missing" {
		t.Fatalf("expected detail captured")
	}

	evs = repo.ByCall("call-2")
	if len(evs) != 1 || evs[0].Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome for call-2, got %+v", evs)
	}
}
