package pbx

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestParsePushEvent(t *testing.T) {
	form := url.Values{}
	form.Set("uuid", "abc-123")
	form.Set("caller_id_number", " +4917012345 ")
	form.Set("destination_number", "100")
	form.Set("accountcode", "inbound")
	form.Set("start_stamp", "1704067200")

	req := httptest.NewRequest("POST", "/webhooks/pbx/call", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	e, err := ParsePushEvent(req)
	if err != nil {
		t.Fatalf("ParsePushEvent: %v", err)
	}
	if e.CallID != "abc-123" {
		t.Fatalf("expected call id abc-123, got %q", e.CallID)
	}
	if e.Caller != "+4917012345" {
		t.Fatalf("expected trimmed caller, got %q", e.Caller)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !e.OccurredAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, e.OccurredAt)
	}
}

func TestParsePushEvent_MissingTimestampIsZero(t *testing.T) {
	req := httptest.NewRequest("POST", "/webhooks/pbx/call", strings.NewReader("uuid=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	e, err := ParsePushEvent(req)
	if err != nil {
		t.Fatalf("ParsePushEvent: %v", err)
	}
	if !e.OccurredAt.IsZero() {
		t.Fatalf("expected zero time, got %v", e.OccurredAt)
	}
}
