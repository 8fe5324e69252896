package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
	"github.com/JakeFAU/percent-page-viewed/internal/clock/system"
)

const (
	// DefaultTrackDelay is the quiet period before a scroll position counts as stable.
	DefaultTrackDelay = 1500 * time.Millisecond
	// DefaultPercentInterval is the default quantization granularity.
	DefaultPercentInterval = 25
	// DefaultStorageKey names the persisted record.
	DefaultStorageKey = "_bamPercentPageViewed"

	settleSlack = 25 * time.Millisecond
)

// ErrInvalidInterval is returned when PercentInterval is negative.
var ErrInvalidInterval = errors.New("percent interval must be > 0")

// Config controls a Tracker. Zero values fall back to the defaults.
//   - TrackDelay: settle delay after the last scroll (default 1500ms).
//   - PercentInterval: quantization step in percentage points (default 25).
//   - Callback: receives the previous page's Progress during Init.
//   - StorageKey: key of the persisted record (default _bamPercentPageViewed).
//   - Clock, Logger, Observer: optional collaborators.
//   - ID: label attached to log lines, useful when several trackers share a store.
type Config struct {
	TrackDelay      time.Duration
	PercentInterval int
	Callback        func(Progress)
	StorageKey      string
	Clock           clock.Clock
	Logger          *zap.Logger
	Observer        Observer
	ID              string
}

// Tracker follows scroll activity on one page and maintains the record.
// All public methods and timer callbacks are serialized.
type Tracker struct {
	cfg      Config
	host     Host
	store    *RecordStore
	logger   *zap.Logger
	observer Observer
	throttle *Throttle

	mu         sync.Mutex
	baseCtx    context.Context
	lastScroll time.Time
	nextID     uint64
	pending    map[uint64]clock.Timer
	closed     bool
}

// New builds a Tracker for host, persisting through storage.
func New(cfg Config, host Host, storage Storage) (*Tracker, error) {
	if host == nil || storage == nil {
		return nil, errors.New("host and storage are required")
	}
	if cfg.PercentInterval < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInterval, cfg.PercentInterval)
	}
	if cfg.TrackDelay < 0 {
		return nil, fmt.Errorf("track delay must be >= 0, got %v", cfg.TrackDelay)
	}
	if cfg.PercentInterval == 0 {
		cfg.PercentInterval = DefaultPercentInterval
	}
	if cfg.TrackDelay == 0 {
		cfg.TrackDelay = DefaultTrackDelay
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ID != "" {
		logger = logger.With(zap.String("tracker_id", cfg.ID))
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	t := &Tracker{
		cfg:      cfg,
		host:     host,
		store:    NewRecordStore(storage, cfg.StorageKey, cfg.Clock),
		logger:   logger,
		observer: observer,
		baseCtx:  context.Background(),
		pending:  make(map[uint64]clock.Timer),
	}
	t.throttle = NewThrottle(cfg.Clock, ThrottleWindow, t.scrolled)
	return t, nil
}

// Config returns the effective configuration after defaults were applied.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Init hands the previous page's progress to the configured callback, then
// records the current page's position right away. ctx becomes the base
// context for the scheduled write attempts. Init returns t for chaining.
func (t *Tracker) Init(ctx context.Context) *Tracker {
	t.mu.Lock()
	t.baseCtx = ctx
	t.mu.Unlock()

	if t.cfg.Callback != nil {
		if previous, ok := t.GetAndClear(ctx); ok {
			t.logger.Debug("delivering previous progress",
				zap.Int("scroll_percent", previous.ScrollPercent),
				zap.String("document_location", previous.DocumentLocation),
			)
			t.cfg.Callback(previous)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempt(ctx)
	return t
}

// GetAndClear returns the tracked record and resets it. ok is false when
// nothing usable was stored, in which case the record is left untouched.
func (t *Tracker) GetAndClear(ctx context.Context) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peek(ctx)
	if !ok {
		return Progress{}, false
	}
	if err := t.store.Clear(ctx); err != nil {
		t.logger.Warn("clear record failed", zap.Error(err))
	} else {
		t.observer.ObserveWrite(WriteReset, 0)
	}
	return p, true
}

// Peek returns the tracked record without resetting it.
func (t *Tracker) Peek(ctx context.Context) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peek(ctx)
}

// HandleScroll is the scroll notification entry point. It is safe to call
// from any goroutine at any rate.
func (t *Tracker) HandleScroll() {
	t.observer.ObserveScroll()
	t.throttle.Call()
}

// Close stops the throttle and every pending write attempt. It is safe to
// call more than once.
func (t *Tracker) Close() {
	t.throttle.Stop()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, timer := range t.pending {
		timer.Stop()
		delete(t.pending, id)
	}
}

func (t *Tracker) peek(ctx context.Context) (Progress, bool) {
	p, err := t.store.Read(ctx)
	if err != nil {
		t.logger.Warn("read record failed", zap.Error(err))
		return Progress{}, false
	}
	if !p.Tracked() {
		return Progress{}, false
	}
	return p, true
}

// scrolled runs once per throttle window.
func (t *Tracker) scrolled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.observer.ObserveThrottled()
	t.lastScroll = t.cfg.Clock.Now()
	t.nextID++
	id := t.nextID
	t.pending[id] = t.cfg.Clock.AfterFunc(t.cfg.TrackDelay+settleSlack, func() {
		t.scheduledAttempt(id)
	})
}

func (t *Tracker) scheduledAttempt(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
	if t.closed {
		return
	}
	t.attempt(t.baseCtx)
}

// attempt records the current position if scrolling has settled. Callers
// hold t.mu.
func (t *Tracker) attempt(ctx context.Context) {
	if !t.lastScroll.IsZero() && t.cfg.Clock.Now().Sub(t.lastScroll) < t.cfg.TrackDelay {
		t.observer.ObserveAttempt(AttemptUnsettled)
		return
	}
	if err := t.record(ctx); err != nil {
		t.observer.ObserveAttempt(AttemptFailed)
		t.logger.Debug("write attempt skipped", zap.Error(err))
		return
	}
	t.observer.ObserveAttempt(AttemptStable)
}

func (t *Tracker) record(ctx context.Context) error {
	layout, err := t.host.Layout(ctx)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	raw, err := ScrollPercent(layout)
	if err != nil {
		return err
	}
	location, err := t.host.Location(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	percent := Quantize(raw, t.cfg.PercentInterval)
	written, err := t.store.Write(ctx, percent, location, false)
	if err != nil {
		return err
	}
	if !written {
		t.observer.ObserveWrite(WriteSkipped, percent)
		return nil
	}
	t.observer.ObserveWrite(WriteStored, percent)
	t.logger.Debug("scroll progress stored",
		zap.Int("raw_percent", raw),
		zap.Int("scroll_percent", percent),
		zap.String("document_location", location),
	)
	return nil
}
