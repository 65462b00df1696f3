package pbx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// PushEvent captures the subset of PBX call-finished webhook fields we care
// about. The PBX posts application/x-www-form-urlencoded.
//
// Keep it minimal and adapter-only: the payload is informational. Delivery
// decisions stay with the pipeline, which re-reads history from the
// watermark regardless of what this event claims.

type PushEvent struct {
	CallID      string
	Caller      string
	Destination string
	AccountCode string
	OccurredAt  time.Time
}

func ParsePushEvent(r *http.Request) (PushEvent, error) {
	if err := r.ParseForm(); err != nil {
		return PushEvent{}, err
	}

	e := PushEvent{
		CallID:      r.PostFormValue("uuid"),
		Caller:      strings.TrimSpace(r.PostFormValue("caller_id_number")),
		Destination: strings.TrimSpace(r.PostFormValue("destination_number")),
		AccountCode: r.PostFormValue("accountcode"),
	}

	if raw := r.PostFormValue("start_stamp"); raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			e.OccurredAt = time.Unix(ts, 0).UTC()
		}
	}
	return e, nil
}
