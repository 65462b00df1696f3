package calls

import "testing"

func TestCallStatusValuesAreNonEmpty(t *testing.T) {
	statuses := []CallStatus{
		CallStatusAnswered,
		CallStatusMissed,
		CallStatusBusy,
		CallStatusFailed,
		CallStatusCancelled,
		CallStatusRejected,
	}
	for _, s := range statuses {
		if s == "" {
			t.Fatalf("expected non-empty status")
		}
	}
}

func TestCallRecord_HasRecording(t *testing.T) {
	if (CallRecord{}).HasRecording() {
		t.Fatalf("empty ref must mean no recording")
	}
	if !(CallRecord{RecordingRef: "rec-1"}).HasRecording() {
		t.Fatalf("expected recording present")
	}
}
