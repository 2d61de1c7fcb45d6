// Package scheduler drives the poll cycle and decides how long to wait between cycles.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"adwatch/internal/extractor"
	"adwatch/internal/fetcher"
	"adwatch/internal/model"
	"adwatch/internal/notifier"
	"adwatch/internal/storage"
)

// Notifier delivers a batch of new ads.
type Notifier interface {
	Notify(ctx context.Context, ads []model.Ad) error
}

// State is the step of the cycle the scheduler is currently in.
type State string

// Cycle states.
const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateFiltering  State = "filtering"
	StateNotifying  State = "notifying"
	StatePersisting State = "persisting"
	StateBackoff    State = "backoff"
)

// Options controls cadence and ledger retention.
type Options struct {
	BaseInterval   time.Duration
	MaxInterval    time.Duration
	QuietUntilHour int
	QuietInterval  time.Duration
	// Retention evicts ledger entries older than this before each save.
	// Zero keeps entries forever.
	Retention time.Duration
}

// Scheduler runs fetch, extract, filter, notify and persist cycles forever.
type Scheduler struct {
	fetcher   *fetcher.Fetcher
	extractor *extractor.Extractor
	notifier  Notifier
	store     storage.Storage
	ledger    model.Ledger
	backoff   *Backoff
	opts      Options
	state     State
	log       *slog.Logger
	errLog    *slog.Logger
	now       func() time.Time
}

// New creates a Scheduler owning ledger.
func New(f *fetcher.Fetcher, e *extractor.Extractor, n Notifier, store storage.Storage,
	ledger model.Ledger, opts Options, log *slog.Logger,
) *Scheduler {
	if ledger == nil {
		ledger = model.NewLedger()
	}
	return &Scheduler{
		fetcher:   f,
		extractor: e,
		notifier:  n,
		store:     store,
		ledger:    ledger,
		backoff:   NewBackoff(opts.BaseInterval, opts.MaxInterval),
		opts:      opts,
		state:     StateIdle,
		log:       log,
		errLog:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
}

// SetErrorLog sets the logger that records each failed cycle with a stack trace.
func (s *Scheduler) SetErrorLog(l *slog.Logger) {
	s.errLog = l
}

// Ledger returns the committed ledger.
func (s *Scheduler) Ledger() model.Ledger {
	return s.ledger
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	return s.state
}

// MinWait returns the current backoff floor.
func (s *Scheduler) MinWait() time.Duration {
	return s.backoff.Min()
}

// Run executes cycles until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.RunCycle(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := s.NextWait()
		s.log.Info("waiting for next cycle", "wait", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// NextWait returns how long to sleep before the next cycle. During quiet
// hours it is the fixed quiet interval, otherwise the jittered backoff.
func (s *Scheduler) NextWait() time.Duration {
	if s.now().Hour() < s.opts.QuietUntilHour {
		return s.opts.QuietInterval
	}
	return s.backoff.Wait()
}

// RunCycle performs one full cycle and updates the backoff accordingly.
func (s *Scheduler) RunCycle(ctx context.Context) model.CycleOutcome {
	log := s.log.With("cycle_id", uuid.NewString())

	count, err := s.cycle(ctx, log)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		// Shutdown, not a failure of the source: leave the backoff alone.
		s.transition(log, StateIdle)
		log.Info("cycle interrupted", "error", err)
		return model.CycleOutcome{Kind: model.KindCanceled, Err: err}
	}
	if err != nil {
		kind := classify(err)
		s.backoff.Failure()
		s.transition(log, StateBackoff)
		log.Error("cycle failed", "kind", kind, "error", err, "min_wait", s.backoff.Min())
		s.errLog.Error("cycle failed",
			"kind", kind,
			"error", err.Error(),
			"stack", string(debug.Stack()),
		)
		return model.CycleOutcome{Kind: kind, Err: err}
	}

	s.backoff.Success()
	s.transition(log, StateIdle)
	if count > 0 {
		log.Info("sent notification", "new_ads", count)
	} else {
		log.Debug("no new ads")
	}
	return model.CycleOutcome{Success: true, NewAds: count, Kind: model.KindNone}
}

// cycle works on a copy of the ledger and commits it only after the
// notification went out and the copy was saved. Any earlier failure leaves
// the committed ledger untouched so the same ads are offered again.
func (s *Scheduler) cycle(ctx context.Context, log *slog.Logger) (int, error) {
	s.transition(log, StateFetching)
	listing, err := s.fetcher.FetchListing(ctx)
	if err != nil {
		return 0, err
	}

	s.transition(log, StateExtracting)
	ads, err := s.extractor.ListingAds(listing)
	if err != nil {
		return 0, err
	}

	s.transition(log, StateFiltering)
	pending := s.ledger.Clone()
	now := s.now()
	total := 0
	var fresh []model.Ad
	for ad := range ads {
		total++
		if !pending.MarkSeen(ad.ID, now) {
			continue
		}
		desc, err := s.describe(ctx, log, ad.ID)
		if err != nil {
			return 0, err
		}
		ad.Description = desc
		fresh = append(fresh, ad)
	}
	if total == 0 {
		return 0, &extractor.ParseError{Index: -1, Reason: "listing yielded no valid ads"}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	s.transition(log, StateNotifying)
	if err := s.notifier.Notify(ctx, fresh); err != nil {
		return 0, err
	}

	s.transition(log, StatePersisting)
	if s.opts.Retention > 0 {
		if n := pending.Evict(now.Add(-s.opts.Retention)); n > 0 {
			log.Info("evicted expired ledger entries", "count", n)
		}
	}
	if err := s.store.Save(ctx, pending); err != nil {
		return 0, err
	}
	s.ledger = pending
	return len(fresh), nil
}

// describe fetches the detail page of an ad. A page without a description
// is not fatal; the ad is sent with an empty one.
func (s *Scheduler) describe(ctx context.Context, log *slog.Logger, id string) (string, error) {
	page, err := s.fetcher.FetchDetail(ctx, id)
	if err != nil {
		return "", err
	}
	desc, err := s.extractor.Description(page)
	if err != nil {
		log.Warn("ad description unavailable", "ad_id", id, "error", err)
		return "", nil
	}
	return desc, nil
}

func (s *Scheduler) transition(log *slog.Logger, next State) {
	if s.state == next {
		return
	}
	log.Debug("state change", "from", s.state, "to", next)
	s.state = next
}

func classify(err error) model.ErrorKind {
	var (
		te *fetcher.TransportError
		pe *extractor.ParseError
		se *storage.PersistError
		ne *notifier.NotifyError
	)
	switch {
	case errors.As(err, &te):
		return model.KindTransport
	case errors.As(err, &pe):
		return model.KindParse
	case errors.As(err, &se):
		return model.KindPersist
	case errors.As(err, &ne):
		return model.KindNotify
	default:
		return model.KindUnknown
	}
}
