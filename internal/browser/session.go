// Package browser drives a headless Chrome tab as a tracker host.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

const (
	defaultNavigationTimeout = 45 * time.Second
	defaultActionTimeout     = 10 * time.Second
	scrollBinding            = "__percentPageViewedScroll"
)

// scrollHook forwards DOM scroll events to the runtime binding.
const scrollHook = `window.addEventListener('scroll', function () {
	if (typeof window.` + scrollBinding + ` === 'function') { window.` + scrollBinding + `(''); }
}, { passive: true });`

// layoutScript collects every metric tracker.Layout needs, reporting 0 for
// anything the page does not expose.
const layoutScript = `(function () {
	var b = document.body || {}, r = document.documentElement || {};
	return {
		bodyScrollHeight: b.scrollHeight || 0,
		rootScrollHeight: r.scrollHeight || 0,
		bodyOffsetHeight: b.offsetHeight || 0,
		rootOffsetHeight: r.offsetHeight || 0,
		bodyClientHeight: b.clientHeight || 0,
		rootClientHeight: r.clientHeight || 0,
		innerHeight: window.innerHeight || 0,
		pageYOffset: window.pageYOffset || 0,
		rootScrollTop: r.scrollTop || 0,
		rootClientTop: r.clientTop || 0
	};
})()`

// Config controls the browser session.
type Config struct {
	Headless          bool
	UserAgent         string
	ViewportWidth     int64
	ViewportHeight    int64
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
}

// Session is one Chrome tab. It implements tracker.Host and tracker.Storage,
// the latter backed by the tab's real cookie jar.
type Session struct {
	cfg         Config
	logger      *zap.Logger
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc

	mu       sync.RWMutex
	onScroll func()
}

var (
	_ tracker.Host    = (*Session)(nil)
	_ tracker.Storage = (*Session)(nil)
)

// NewSession launches Chrome and prepares a tab that reports scroll events.
func NewSession(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		logger:      logger,
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
	}
	chromedp.ListenTarget(tab, s.handleEvent)

	if err := chromedp.Run(tab, s.setupActions()...); err != nil {
		s.Close()
		return nil, fmt.Errorf("chromedp setup: %w", err)
	}
	logger.Info("browser session ready",
		zap.Bool("headless", cfg.Headless),
		zap.Int64("viewport_width", cfg.ViewportWidth),
		zap.Int64("viewport_height", cfg.ViewportHeight),
	)
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.tabCancel()
	s.allocCancel()
}

// OnScroll registers fn to run for every DOM scroll event on the tab. fn runs
// on its own goroutine.
func (s *Session) OnScroll(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onScroll = fn
}

// Navigate loads rawURL and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	return s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// ScrollTo moves the window to the given vertical offset.
func (s *Session) ScrollTo(ctx context.Context, offset float64) error {
	return s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(scrollScript(offset), nil))
}

// Layout reads the current document metrics.
func (s *Session) Layout(ctx context.Context) (tracker.Layout, error) {
	var layout tracker.Layout
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Evaluate(layoutScript, &layout)); err != nil {
		return tracker.Layout{}, err
	}
	return layout, nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Get reads a cookie visible to the current page.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, err
	}
	c := pickCookie(cookies, key)
	if c == nil {
		return "", false, nil
	}
	return c.Value, true, nil
}

// Set writes a cookie for the current page's origin.
func (s *Session) Set(ctx context.Context, key, value string, opts tracker.SetOptions) error {
	path := opts.Path
	if path == "" {
		path = tracker.RecordPath
	}
	var location string
	return s.run(ctx, s.cfg.ActionTimeout,
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			params := network.SetCookie(key, value).WithURL(location).WithPath(path)
			if !opts.Expires.IsZero() {
				expires := cdp.TimeSinceEpoch(opts.Expires)
				params = params.WithExpires(&expires)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %q: %w", key, err)
			}
			return nil
		}),
	)
}

func (s *Session) setupActions() []chromedp.Action {
	actions := []chromedp.Action{
		network.Enable(),
		runtime.Enable(),
		runtime.AddBinding(scrollBinding),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(scrollHook).Do(ctx); err != nil {
				return fmt.Errorf("install scroll hook: %w", err)
			}
			return nil
		}),
		chromedp.EmulateViewport(s.cfg.ViewportWidth, s.cfg.ViewportHeight),
	}
	if s.cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(s.cfg.UserAgent))
	}
	return actions
}

func (s *Session) handleEvent(ev any) {
	call, ok := ev.(*runtime.EventBindingCalled)
	if !ok || call.Name != scrollBinding {
		return
	}
	s.mu.RLock()
	fn := s.onScroll
	s.mu.RUnlock()
	if fn != nil {
		go fn()
	}
}

// run executes actions on the tab, bounded by timeout and canceled with ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("browser action canceled: %w", err)
	}
	taskCtx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func normalize(cfg Config) (Config, error) {
	if cfg.ViewportWidth < 0 || cfg.ViewportHeight < 0 {
		return Config{}, errors.New("viewport dimensions must be >= 0")
	}
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	return cfg, nil
}

func scrollScript(offset float64) string {
	return fmt.Sprintf("window.scrollTo(0, %.0f)", offset)
}

// pickCookie returns the cookie named key with the most specific path.
func pickCookie(cookies []*network.Cookie, key string) *network.Cookie {
	var best *network.Cookie
	for _, c := range cookies {
		if c == nil || c.Name != key {
			continue
		}
		if best == nil || len(c.Path) > len(best.Path) {
			best = c
		}
	}
	return best
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
