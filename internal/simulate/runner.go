// Package simulate replays a scroll plan in a browser and collects what the
// tracker hands over on each page transition.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/id/uuid"
	"github.com/JakeFAU/percent-page-viewed/internal/policy/ratelimit"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

const (
	defaultBurst        = 5
	defaultScrollRate   = 20.0
	defaultSettleMargin = 250 * time.Millisecond
)

// Browser is the page a Runner drives.
type Browser interface {
	tracker.Host
	Navigate(ctx context.Context, rawURL string) error
	ScrollTo(ctx context.Context, offset float64) error
	OnScroll(fn func())
}

// Options configures a Runner. SettleMargin is added on top of the throttle
// window and track delay when waiting for a scroll position to be recorded.
// OnPacingDelay is told whenever scroll pacing blocked.
type Options struct {
	Tracker          tracker.Config
	Targets          []int
	Burst            int
	ScrollsPerSecond float64
	SettleMargin     time.Duration
	OnPacingDelay    func(host string, d time.Duration)
}

// Report describes one visited page. Previous is the record handed to the
// callback on arrival, if any; Recorded is what the tracker stored for this
// page before leaving it.
type Report struct {
	Page      string
	TrackerID string
	Previous  tracker.Progress
	Delivered bool
	Recorded  tracker.Progress
}

// Runner visits pages in order, scrolling each one to the target percentages.
type Runner struct {
	browser Browser
	storage tracker.Storage
	opts    Options
	limiter *ratelimit.Limiter
	ids     uuid.Generator
	logger  *zap.Logger
}

// NewRunner validates opts and builds a Runner.
func NewRunner(browser Browser, storage tracker.Storage, opts Options, logger *zap.Logger) (*Runner, error) {
	if browser == nil || storage == nil {
		return nil, errors.New("browser and storage are required")
	}
	if opts.Burst < 0 || opts.ScrollsPerSecond < 0 || opts.SettleMargin < 0 {
		return nil, fmt.Errorf("burst, scroll rate and settle margin must be >= 0")
	}
	for _, target := range opts.Targets {
		if target < 0 {
			return nil, fmt.Errorf("scroll target must be >= 0, got %d", target)
		}
	}
	if opts.Burst == 0 {
		opts.Burst = defaultBurst
	}
	if opts.ScrollsPerSecond == 0 {
		opts.ScrollsPerSecond = defaultScrollRate
	}
	if opts.SettleMargin == 0 {
		opts.SettleMargin = defaultSettleMargin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		browser: browser,
		storage: storage,
		opts:    opts,
		limiter: ratelimit.New(ratelimit.Config{
			ScrollsPerSecond: opts.ScrollsPerSecond,
			Burst:            opts.Burst,
			OnDelay:          opts.OnPacingDelay,
		}),
		ids:     uuid.New(),
		logger:  logger,
	}, nil
}

// Run visits every page and returns one report per page. It stops at the
// first navigation or scroll failure.
func (r *Runner) Run(ctx context.Context, pages []string) ([]Report, error) {
	reports := make([]Report, 0, len(pages))
	for _, page := range pages {
		report, err := r.visit(ctx, page)
		if err != nil {
			return reports, fmt.Errorf("visit %s: %w", page, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Runner) visit(ctx context.Context, page string) (Report, error) {
	report := Report{Page: page, TrackerID: r.ids.Label(page)}
	if err := r.browser.Navigate(ctx, page); err != nil {
		return report, err
	}

	cfg := r.opts.Tracker
	cfg.ID = report.TrackerID
	cfg.Logger = r.logger.Named("tracker")
	userCallback := cfg.Callback
	cfg.Callback = func(p tracker.Progress) {
		report.Previous = p
		report.Delivered = true
		if userCallback != nil {
			userCallback(p)
		}
	}
	t, err := tracker.New(cfg, r.browser, r.storage)
	if err != nil {
		return report, fmt.Errorf("build tracker: %w", err)
	}
	defer func() {
		r.browser.OnScroll(nil)
		t.Close()
	}()
	r.browser.OnScroll(t.HandleScroll)
	t.Init(ctx)

	settle := tracker.ThrottleWindow + t.Config().TrackDelay + r.opts.SettleMargin
	for _, target := range r.opts.Targets {
		if err := r.scrollToPercent(ctx, page, target); err != nil {
			return report, err
		}
		if err := sleep(ctx, settle); err != nil {
			return report, err
		}
	}

	report.Recorded, _ = t.Peek(ctx)
	r.logger.Info("page visited",
		zap.String("page", page),
		zap.String("tracker_id", report.TrackerID),
		zap.Bool("delivered", report.Delivered),
		zap.Int("previous_percent", report.Previous.ScrollPercent),
		zap.String("previous_location", report.Previous.DocumentLocation),
		zap.Int("recorded_percent", report.Recorded.ScrollPercent),
	)
	return report, nil
}

// scrollToPercent moves toward the offset for target in Burst paced steps.
func (r *Runner) scrollToPercent(ctx context.Context, page string, target int) error {
	layout, err := r.browser.Layout(ctx)
	if err != nil {
		return fmt.Errorf("read layout: %w", err)
	}
	start := tracker.ScrollPosition(layout)
	end := OffsetForPercent(layout, target)
	for i := 1; i <= r.opts.Burst; i++ {
		if err := r.limiter.Wait(ctx, page); err != nil {
			return fmt.Errorf("wait for scroll slot: %w", err)
		}
		offset := start + (end-start)*float64(i)/float64(r.opts.Burst)
		if err := r.browser.ScrollTo(ctx, offset); err != nil {
			return fmt.Errorf("scroll to %.0f: %w", offset, err)
		}
	}
	return nil
}

// OffsetForPercent returns the scroll offset that puts the bottom of the
// viewport at percent of the page height, never less than 0.
func OffsetForPercent(layout tracker.Layout, percent int) float64 {
	offset := float64(percent)/100*tracker.PageHeight(layout) - tracker.ViewportHeight(layout)
	return max(offset, 0)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
