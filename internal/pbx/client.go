package pbx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"pbx-notifier/internal/calls"
	"pbx-notifier/internal/watermark"
)

// ErrSourceUnavailable covers network, auth and protocol failures against
// the call-source API. Retryable: callers abort the cycle and try again on
// the next trigger, leaving the watermark untouched.
var ErrSourceUnavailable = errors.New("pbx: source unavailable")

// ErrRecordingUnavailable means a recording reference exists but the binary
// cannot be retrieved (expired, permission, transient 404). Distinct from
// "no recording", which is the absence of a reference and not an error.
var ErrRecordingUnavailable = errors.New("pbx: recording unavailable")

const authHeader = "x-pbx-authentication"

// maxRecordingBytes bounds a single recording download.
const maxRecordingBytes = 48 << 20

// Session is an authenticated API session. The PBX issues a key pair on
// login; subsequent requests carry both in one header.
type Session struct {
	Key   string `json:"key"`
	KeyID string `json:"key_id"`
}

func (s Session) header() string { return s.KeyID + ":" + s.Key }

// SessionCache stores sessions between cycles and restarts so every poll
// does not re-authenticate.
type SessionCache interface {
	Get(ctx context.Context) (Session, bool, error)
	Put(ctx context.Context, s Session) error
}

// Client queries the call-tracking service for call records and recording
// blobs. It has no side effects beyond outbound network calls.
type Client struct {
	authURL    string
	historyURL string
	authKey    string

	httpc    *http.Client
	sessions SessionCache

	mu      sync.Mutex
	session Session

	now func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithSessionCache wires a cross-restart session store.
func WithSessionCache(sc SessionCache) Option {
	return func(c *Client) { c.sessions = sc }
}

func NewClient(authURL, historyURL, authKey string, opts ...Option) *Client {
	c := &Client{
		authURL:    authURL,
		historyURL: historyURL,
		authKey:    authKey,
		httpc:      &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type authResponse struct {
	Status string  `json:"status"`
	Data   Session `json:"data"`
}

// Authenticate obtains a session key pair, reusing a cached session when
// one exists. Safe for concurrent use.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.sessionLocked(ctx)
	return err
}

func (c *Client) sessionLocked(ctx context.Context) (Session, error) {
	if c.session.Key != "" {
		return c.session, nil
	}
	if c.sessions != nil {
		if s, ok, err := c.sessions.Get(ctx); err == nil && ok {
			c.session = s
			return s, nil
		}
	}

	body, _ := json.Marshal(map[string]string{"auth_key": c.authKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("%w: auth request: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("%w: auth status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var ar authResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Session{}, fmt.Errorf("%w: auth decode: %v", ErrSourceUnavailable, err)
	}
	if ar.Status != "1" || ar.Data.Key == "" || ar.Data.KeyID == "" {
		return Session{}, fmt.Errorf("%w: auth rejected", ErrSourceUnavailable)
	}

	c.session = ar.Data
	if c.sessions != nil {
		_ = c.sessions.Put(ctx, ar.Data)
	}
	return ar.Data, nil
}

// invalidateSession drops the in-memory session so the next request
// re-authenticates. Called on 401s from the history API.
func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.session = Session{}
	c.mu.Unlock()
}

// rawRecord is the wire shape of one history row.
type rawRecord struct {
	UUID           string `json:"uuid"`
	StartStamp     int64  `json:"start_stamp"`
	Duration       int    `json:"duration"`
	UserTalkTime   int    `json:"user_talk_time"`
	AccountCode    string `json:"accountcode"`
	CallerIDNumber string `json:"caller_id_number"`
	DestNumber     string `json:"destination_number"`
	Gateway        string `json:"gateway"`
	HangupCause    string `json:"hangup_cause"`
	Recording      string `json:"recording,omitempty"`
}

type historyResponse struct {
	Status string      `json:"status"`
	Data   []rawRecord `json:"data"`
}

// ListCallsSince returns calls at or after the watermark second, oldest
// first. The range is inclusive at the watermark boundary so same-second
// calls are not lost; the watermark filter drops already-seen ones.
func (c *Client) ListCallsSince(ctx context.Context, w watermark.Watermark) ([]calls.CallRecord, error) {
	from := w.LastStart
	if from.IsZero() {
		from = c.now().UTC().Add(-24 * time.Hour)
	}
	return c.ListCallsRange(ctx, from, c.now().UTC())
}

// ListCallsRange returns calls with start times in [start, end), oldest first.
func (c *Client) ListCallsRange(ctx context.Context, start, end time.Time) ([]calls.CallRecord, error) {
	var hr historyResponse
	err := c.postHistory(ctx, map[string]any{
		"start_stamp_from": start.Unix(),
		"start_stamp_to":   end.Unix(),
	}, &hr)
	if err != nil {
		return nil, err
	}

	out := make([]calls.CallRecord, 0, len(hr.Data))
	for _, r := range hr.Data {
		out = append(out, normalize(r))
	}
	// The API is expected to return rows oldest first; sort stably so a
	// misbehaving page never reorders same-second calls.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (c *Client) postHistory(ctx context.Context, payload map[string]any, into *historyResponse) error {
	for attempt := 0; attempt < 2; attempt++ {
		c.mu.Lock()
		sess, err := c.sessionLocked(ctx)
		c.mu.Unlock()
		if err != nil {
			return err
		}

		body, _ := json.Marshal(payload)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.historyURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(authHeader, sess.header())

		resp, err := c.httpc.Do(req)
		if err != nil {
			return fmt.Errorf("%w: history request: %v", ErrSourceUnavailable, err)
		}

		if resp.StatusCode == http.StatusUnauthorized {
			// Session expired server-side; retry once with a fresh one.
			resp.Body.Close()
			c.invalidateSession()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("%w: history status %d", ErrSourceUnavailable, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(into)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: history decode: %v", ErrSourceUnavailable, err)
		}
		if into.Status != "1" {
			return fmt.Errorf("%w: history rejected", ErrSourceUnavailable)
		}
		return nil
	}
	return fmt.Errorf("%w: session rejected twice", ErrSourceUnavailable)
}

// FetchRecording downloads the audio for one recording reference.
func (c *Client) FetchRecording(ctx context.Context, ref string) (calls.RecordingAsset, error) {
	if ref == "" {
		return calls.RecordingAsset{}, fmt.Errorf("%w: empty reference", ErrRecordingUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return calls.RecordingAsset{}, fmt.Errorf("%w: %v", ErrRecordingUnavailable, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return calls.RecordingAsset{}, fmt.Errorf("%w: download: %v", ErrRecordingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return calls.RecordingAsset{}, fmt.Errorf("%w: download status %d", ErrRecordingUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordingBytes))
	if err != nil {
		return calls.RecordingAsset{}, fmt.Errorf("%w: read: %v", ErrRecordingUnavailable, err)
	}
	if len(data) == 0 {
		return calls.RecordingAsset{}, fmt.Errorf("%w: empty body", ErrRecordingUnavailable)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return calls.RecordingAsset{
		Data:        data,
		ContentType: ct,
		Size:        int64(len(data)),
	}, nil
}

func normalize(r rawRecord) calls.CallRecord {
	return calls.CallRecord{
		ID:              r.UUID,
		StartedAt:       time.Unix(r.StartStamp, 0).UTC(),
		Direction:       direction(r.AccountCode),
		Caller:          r.CallerIDNumber,
		Destination:     r.DestNumber,
		Gateway:         r.Gateway,
		Status:          outcome(r.HangupCause),
		DurationSeconds: r.Duration,
		TalkSeconds:     r.UserTalkTime,
		RecordingRef:    r.Recording,
	}
}

func direction(accountCode string) calls.Direction {
	switch accountCode {
	case "inbound":
		return calls.DirectionInbound
	case "outbound":
		return calls.DirectionOutbound
	case "internal":
		return calls.DirectionInternal
	default:
		return calls.DirectionUnknown
	}
}

// outcome maps PBX hangup causes onto call outcomes.
func outcome(hangupCause string) calls.CallStatus {
	switch hangupCause {
	case "NORMAL_CLEARING":
		return calls.CallStatusAnswered
	case "USER_BUSY":
		return calls.CallStatusBusy
	case "NO_ANSWER", "NO_USER_RESPONSE":
		return calls.CallStatusMissed
	case "ORIGINATOR_CANCEL":
		return calls.CallStatusCancelled
	case "CALL_REJECTED":
		return calls.CallStatusRejected
	default:
		return calls.CallStatusFailed
	}
}
