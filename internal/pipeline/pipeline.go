package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pbx-notifier/internal/audit"
	"pbx-notifier/internal/calls"
	"pbx-notifier/internal/notify"
	"pbx-notifier/internal/period"
	"pbx-notifier/internal/reporting"
	"pbx-notifier/internal/telegram"
	"pbx-notifier/internal/watermark"
)

// ErrBusy is returned when a delivery cycle is already in flight.
// Overlapping invocations are skipped, never queued, so a poll tick
// racing a webhook push cannot interleave on the watermark.
var ErrBusy = errors.New("pipeline: delivery cycle already running")

// Source is the call history side of the pipeline.
type Source interface {
	ListCallsSince(ctx context.Context, w watermark.Watermark) ([]calls.CallRecord, error)
	ListCallsRange(ctx context.Context, start, end time.Time) ([]calls.CallRecord, error)
	FetchRecording(ctx context.Context, ref string) (calls.RecordingAsset, error)
}

// Channel is the delivery side of the pipeline.
type Channel interface {
	SendText(ctx context.Context, text string) error
	SendAudio(ctx context.Context, text string, asset calls.RecordingAsset) error
}

type Pipeline struct {
	mu sync.Mutex

	source    Source
	channel   Channel
	store     watermark.Store
	formatter *notify.Formatter
	reports   *reporting.Service
	audits    *audit.Service
	log       *slog.Logger
	loc       *time.Location
	lookback  time.Duration
	clock     func() time.Time
}

type Params struct {
	Source    Source
	Channel   Channel
	Store     watermark.Store
	Formatter *notify.Formatter
	Reports   *reporting.Service
	Audits    *audit.Service
	Logger    *slog.Logger
	Location  *time.Location

	// Lookback bounds the first cycle when no watermark has been
	// persisted yet. Zero means 24 hours.
	Lookback time.Duration
}

func New(p Params) *Pipeline {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Location == nil {
		p.Location = time.UTC
	}
	if p.Lookback <= 0 {
		p.Lookback = 24 * time.Hour
	}
	return &Pipeline{
		source:    p.Source,
		channel:   p.Channel,
		store:     p.Store,
		formatter: p.Formatter,
		reports:   p.Reports,
		audits:    p.Audits,
		log:       p.Logger,
		loc:       p.Location,
		lookback:  p.Lookback,
		clock:     time.Now,
	}
}

// CycleResult summarizes one delivery cycle.
type CycleResult struct {
	Found     int
	Delivered int
	WithAudio int
	Fallbacks int
}

// RunDeliveryCycle fetches calls newer than the watermark and delivers
// one notification per call, oldest first. The watermark advances only
// after each delivery completes, so an aborted batch resumes from the
// stalled call on the next trigger. At-least-once: a crash between send
// and save may duplicate the last notification.
func (p *Pipeline) RunDeliveryCycle(ctx context.Context) (CycleResult, error) {
	if !p.mu.TryLock() {
		return CycleResult{}, ErrBusy
	}
	defer p.mu.Unlock()

	log := p.log.With(slog.String("op", "delivery_cycle"))

	w, ok, err := p.store.Load(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("load watermark: %w", err)
	}
	if !ok {
		w = watermark.Watermark{LastStart: p.clock().Add(-p.lookback)}
		log.Info("no watermark yet, starting from lookback window",
			slog.Time("last_start", w.LastStart))
	}

	records, err := p.source.ListCallsSince(ctx, w)
	if err != nil {
		// Watermark untouched, next trigger retries the same window.
		return CycleResult{}, fmt.Errorf("list calls: %w", err)
	}

	fresh := watermark.FilterNew(records, w)
	res := CycleResult{Found: len(fresh)}
	if len(fresh) == 0 {
		log.Debug("no new calls")
		return res, nil
	}
	log.Info("new calls found", slog.Int("count", len(fresh)))

	for _, rec := range fresh {
		withAudio, fellBack, err := p.deliverOne(ctx, rec)
		if err != nil {
			p.auditFailed(ctx, rec.ID, err)
			log.Error("delivery failed, stopping batch",
				slog.String("call_id", rec.ID), slog.Any("error", err))
			return res, fmt.Errorf("deliver call %s: %w", rec.ID, err)
		}

		res.Delivered++
		if withAudio {
			res.WithAudio++
		}
		if fellBack {
			res.Fallbacks++
		} else {
			p.auditDelivered(ctx, rec.ID, withAudio)
		}

		w = watermark.Advance(w, rec)
		if err := p.store.Save(ctx, w); err != nil {
			// The call was delivered but its position is not durable.
			// Abort so at most this one notification can repeat.
			return res, fmt.Errorf("save watermark after %s: %w", rec.ID, err)
		}
	}

	log.Info("cycle complete",
		slog.Int("delivered", res.Delivered),
		slog.Int("with_audio", res.WithAudio),
		slog.Int("fallbacks", res.Fallbacks))
	return res, nil
}

// deliverOne walks a single call through the delivery state machine.
// fellBack reports that the notification went out text-only although
// the call carried a recording reference.
func (p *Pipeline) deliverOne(ctx context.Context, rec calls.CallRecord) (withAudio, fellBack bool, err error) {
	state := statePending
	var text string
	var asset calls.RecordingAsset
	var fallbackReason string

	for {
		switch state {
		case statePending:
			text = p.formatter.Format(rec)
			state = stateFormatted

		case stateFormatted:
			if rec.HasRecording() {
				state = stateAudioAttempt
			} else {
				state = stateTextOnly
			}

		case stateAudioAttempt:
			asset, err = p.source.FetchRecording(ctx, rec.RecordingRef)
			if err != nil {
				fallbackReason = err.Error()
				state = stateAudioFailed
				break
			}
			if asset.FileName == "" {
				asset.FileName = rec.ID + ".mp3"
			}
			if err = p.channel.SendAudio(ctx, text, asset); err != nil {
				if errors.Is(err, telegram.ErrChannelRejected) {
					// One text-only retry before giving up on the batch.
					fallbackReason = err.Error()
					state = stateAudioFailed
					break
				}
				state = stateFailed
				break
			}
			state = stateAudioSent

		case stateAudioSent:
			withAudio = true
			state = stateDelivered

		case stateAudioFailed:
			state = stateTextFallback

		case stateTextFallback:
			msg := text + "\n" + notify.RecordingUnavailableNote
			if err = p.channel.SendText(ctx, msg); err != nil {
				state = stateFailed
				break
			}
			fellBack = true
			p.auditFallback(ctx, rec.ID, fallbackReason)
			state = stateDelivered

		case stateTextOnly:
			if err = p.channel.SendText(ctx, text); err != nil {
				state = stateFailed
				break
			}
			state = stateDelivered

		case stateDelivered:
			return withAudio, fellBack, nil

		case stateFailed:
			return false, false, err
		}
	}
}

// RunRangeQuery lists calls for a named period. Read-only, the
// watermark is not consulted or changed. An empty slice means no calls
// in range; a source error is surfaced as an error, never as empty.
func (p *Pipeline) RunRangeQuery(ctx context.Context, pd period.Period) ([]calls.CallRecord, error) {
	start, end, err := period.Range(pd, p.clock(), p.loc)
	if err != nil {
		return nil, err
	}
	records, err := p.source.ListCallsRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list calls for %s: %w", pd, err)
	}
	return records, nil
}

// RunStats aggregates counts for a named period. Read-only.
func (p *Pipeline) RunStats(ctx context.Context, pd period.Period) (reporting.Summary, error) {
	start, end, err := period.Range(pd, p.clock(), p.loc)
	if err != nil {
		return reporting.Summary{}, err
	}
	return p.reports.Summarize(ctx, start, end)
}

// Audit writes are best-effort and never block delivery.

func (p *Pipeline) auditDelivered(ctx context.Context, callID string, withAudio bool) {
	if p.audits == nil {
		return
	}
	if err := p.audits.LogDelivered(ctx, callID, withAudio); err != nil {
		p.log.Warn("audit write failed", slog.String("call_id", callID), slog.Any("error", err))
	}
}

func (p *Pipeline) auditFallback(ctx context.Context, callID, reason string) {
	if p.audits == nil {
		return
	}
	if err := p.audits.LogTextFallback(ctx, callID, reason); err != nil {
		p.log.Warn("audit write failed", slog.String("call_id", callID), slog.Any("error", err))
	}
}

func (p *Pipeline) auditFailed(ctx context.Context, callID string, cause error) {
	if p.audits == nil {
		return
	}
	if err := p.audits.LogFailed(ctx, callID, cause.Error()); err != nil {
		p.log.Warn("audit write failed", slog.String("call_id", callID), slog.Any("error", err))
	}
}
