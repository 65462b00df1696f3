package calls

import "time"

// CallRecord is one completed call as reported by the PBX history API.
//
// Invariant: the ID uniquely determines every other field for the lifetime
// of the call. Records are immutable once returned by the source; the
// pipeline never mutates them.
//
// NOTE: This is a domain model only. Raw PBX payload fields (hangup_cause,
// accountcode) are normalized into Direction/Status at the client boundary,
// not carried here.

type CallRecord struct {
	ID string `json:"id" db:"id"`

	// StartedAt is the call start in UTC.
	StartedAt time.Time `json:"started_at" db:"started_at"`

	Direction Direction `json:"direction" db:"direction"`

	Caller      string `json:"caller" db:"caller"`
	Destination string `json:"destination" db:"destination"`

	// Gateway is the trunk the call traversed; may be empty.
	Gateway string `json:"gateway,omitempty" db:"gateway"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds covers the whole call; TalkSeconds only the connected part.
	DurationSeconds int `json:"duration" db:"duration"`
	TalkSeconds     int `json:"talk_seconds" db:"talk_seconds"`

	// RecordingRef is an opaque handle for fetching the call audio.
	// Empty means no recording exists, which is not an error condition.
	RecordingRef string `json:"recording_ref,omitempty" db:"recording_ref"`
}

// HasRecording reports whether a recording reference is present.
func (r CallRecord) HasRecording() bool { return r.RecordingRef != "" }

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionInternal Direction = "internal"
	DirectionUnknown  Direction = "unknown"
)

type CallStatus string

const (
	CallStatusAnswered  CallStatus = "answered"
	CallStatusMissed    CallStatus = "missed"
	CallStatusBusy      CallStatus = "busy"
	CallStatusFailed    CallStatus = "failed"
	CallStatusCancelled CallStatus = "cancelled"
	CallStatusRejected  CallStatus = "rejected"
)

// RecordingAsset is the binary audio payload for one call.
// Ownership is transient: the pipeline holds it for a single delivery
// attempt and discards it afterwards, success or not.
type RecordingAsset struct {
	Data        []byte
	ContentType string
	Size        int64

	// FileName is a channel-facing name, typically derived from the call ID.
	FileName string
}
