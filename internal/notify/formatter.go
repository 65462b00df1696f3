package notify

import (
	"fmt"
	"strings"
	"time"

	"pbx-notifier/internal/calls"
	"pbx-notifier/internal/reporting"
)

// Placeholder renders for any missing optional field. Fields are never
// silently omitted, so channel text stays assertable.
const Placeholder = "unknown"

// RecordingUnavailableNote is appended by the pipeline when a recording
// reference exists but the audio could not be fetched or sent.
const RecordingUnavailableNote = "⚠️ recording unavailable"

const timeLayout = "2006-01-02 15:04:05"

var directionIcons = map[calls.Direction]string{
	calls.DirectionInbound:  "📥",
	calls.DirectionOutbound: "📤",
	calls.DirectionInternal: "🔄",
	calls.DirectionUnknown:  "📞",
}

var directionLabels = map[calls.Direction]string{
	calls.DirectionInbound:  "Inbound call",
	calls.DirectionOutbound: "Outbound call",
	calls.DirectionInternal: "Internal call",
	calls.DirectionUnknown:  "Call",
}

var statusLabels = map[calls.CallStatus]string{
	calls.CallStatusAnswered:  "answered",
	calls.CallStatusMissed:    "missed",
	calls.CallStatusBusy:      "busy",
	calls.CallStatusFailed:    "failed",
	calls.CallStatusCancelled: "cancelled by caller",
	calls.CallStatusRejected:  "rejected",
}

// Formatter renders call records into channel text. Pure and
// deterministic: identical records produce byte-identical output.
// Formatting is locale-fixed; only the timezone is configurable.
type Formatter struct {
	loc *time.Location
}

func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{loc: loc}
}

// Format renders one call record.
func (f *Formatter) Format(rec calls.CallRecord) string {
	icon := directionIcons[rec.Direction]
	if icon == "" {
		icon = directionIcons[calls.DirectionUnknown]
	}
	label := directionLabels[rec.Direction]
	if label == "" {
		label = directionLabels[calls.DirectionUnknown]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", icon, label)
	fmt.Fprintf(&b, "Time: %s\n", rec.StartedAt.In(f.loc).Format(timeLayout))
	fmt.Fprintf(&b, "From: %s\n", orPlaceholder(rec.Caller))
	fmt.Fprintf(&b, "To: %s\n", orPlaceholder(rec.Destination))
	fmt.Fprintf(&b, "Gateway: %s\n", orPlaceholder(rec.Gateway))
	fmt.Fprintf(&b, "Duration: %s\n", FormatDuration(rec.DurationSeconds))
	fmt.Fprintf(&b, "Talk time: %s\n", FormatDuration(rec.TalkSeconds))
	fmt.Fprintf(&b, "Result: %s", f.statusLabel(rec.Status))
	return b.String()
}

func (f *Formatter) statusLabel(s calls.CallStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return Placeholder
}

// FormatStats renders an aggregate summary for the stats command.
func (f *Formatter) FormatStats(title string, s reporting.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Call statistics (%s)\n", title)
	fmt.Fprintf(&b, "Range: %s – %s\n",
		s.From.In(f.loc).Format(timeLayout),
		s.To.In(f.loc).Format(timeLayout))
	fmt.Fprintf(&b, "Total: %d\n", s.TotalCalls)
	fmt.Fprintf(&b, "Answered: %d\n", s.AnsweredCalls)
	fmt.Fprintf(&b, "Missed: %d\n", s.MissedCalls)
	fmt.Fprintf(&b, "Busy: %d\n", s.BusyCalls)
	fmt.Fprintf(&b, "Failed: %d\n", s.FailedCalls)
	fmt.Fprintf(&b, "Inbound/outbound: %d/%d\n", s.InboundCalls, s.OutboundCalls)
	fmt.Fprintf(&b, "Recorded: %d\n", s.RecordedCalls)
	fmt.Fprintf(&b, "Total duration: %s\n", FormatDuration(s.TotalDurationSeconds))
	fmt.Fprintf(&b, "Average duration: %s", FormatDuration(s.AverageDurationSeconds))
	return b.String()
}

// FormatDuration renders seconds as "12s", "3m 12s" or "1h 3m 12s".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	seconds %= 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes %= 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
