// Package main wires together the scroll tracking demo binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/browser"
	"github.com/JakeFAU/percent-page-viewed/internal/clock"
	"github.com/JakeFAU/percent-page-viewed/internal/clock/system"
	"github.com/JakeFAU/percent-page-viewed/internal/config"
	"github.com/JakeFAU/percent-page-viewed/internal/demo"
	"github.com/JakeFAU/percent-page-viewed/internal/logging"
	"github.com/JakeFAU/percent-page-viewed/internal/metrics"
	"github.com/JakeFAU/percent-page-viewed/internal/simulate"
	"github.com/JakeFAU/percent-page-viewed/internal/storage/memory"
	"github.com/JakeFAU/percent-page-viewed/internal/storage/postgres"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	serve := flag.Bool("serve", false, "Keep serving demo pages and metrics after the run until interrupted")
	flag.Parse()

	// A local .env may carry SCROLLTRACK_* overrides; it is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serve, logger); err != nil {
		logger.Error("scrolltrack failed", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, serve bool, logger *zap.Logger) error {
	clk := system.New()

	var observer tracker.Observer
	if cfg.Metrics.Enabled {
		observer = metrics.NewRecorder()
	}

	demoServer := demo.NewServer(demo.Options{
		StorageKey:    cfg.Tracker.StorageKey,
		DefaultHeight: cfg.Simulate.PageHeight,
		Metrics:       cfg.Metrics.Enabled,
		Clock:         clk,
	}, logger.Named("demo"))
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Server.Port, err)
	}
	srv := &http.Server{
		Handler:           demoServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
		logger.Info("shutdown complete")
	}()

	session, err := browser.NewSession(ctx, browser.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Browser.UserAgent,
		ViewportWidth:     cfg.Browser.ViewportWidth,
		ViewportHeight:    cfg.Browser.ViewportHeight,
		NavigationTimeout: cfg.NavigationTimeout(),
	}, logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer session.Close()

	storage, closeStorage, err := openStorage(ctx, cfg, session, clk)
	if err != nil {
		return err
	}
	defer closeStorage()

	runner, err := simulate.NewRunner(session, storage, simulate.Options{
		Tracker: tracker.Config{
			TrackDelay:      cfg.TrackDelay(),
			PercentInterval: cfg.Tracker.PercentInterval,
			StorageKey:      cfg.Tracker.StorageKey,
			Clock:           clk,
			Observer:        observer,
		},
		Targets:          cfg.Simulate.Targets,
		Burst:            cfg.Simulate.Burst,
		ScrollsPerSecond: cfg.Simulate.ScrollsPerS,
		OnPacingDelay:    pacingObserver(cfg.Metrics.Enabled),
	}, logger.Named("simulate"))
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	reports, err := runner.Run(ctx, pageURLs(baseURL, cfg.Simulate))
	for _, report := range reports {
		if !report.Delivered {
			continue
		}
		if cfg.Metrics.Enabled {
			metrics.ObserveReport()
		}
		logger.Info("previous page progress",
			zap.String("page", report.Page),
			zap.Int("scroll_percent", report.Previous.ScrollPercent),
			zap.String("document_location", report.Previous.DocumentLocation),
		)
	}
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	logger.Info("simulation finished", zap.Int("pages", len(reports)))

	if serve {
		<-ctx.Done()
		logger.Info("shutdown initiated")
	}
	return nil
}

func openStorage(
	ctx context.Context,
	cfg config.Config,
	session *browser.Session,
	clk clock.Clock,
) (tracker.Storage, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.NewStore(clk, "/"), func() {}, nil
	case config.BackendPostgres:
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:      cfg.Storage.Postgres.DSN,
			Table:    cfg.Storage.Postgres.Table,
			MaxConns: cfg.Storage.Postgres.MaxConns,
		}, clk)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return store, store.Close, nil
	default:
		return session, func() {}, nil
	}
}

func pacingObserver(enabled bool) func(string, time.Duration) {
	if !enabled {
		return nil
	}
	return metrics.ObserveScrollPacingDelay
}

// pageURLs resolves configured pages: absolute URLs pass through, anything
// else names a demo page.
func pageURLs(baseURL string, sim config.SimulateConfig) []string {
	urls := make([]string, 0, len(sim.Pages))
	for _, page := range sim.Pages {
		if strings.HasPrefix(page, "http://") || strings.HasPrefix(page, "https://") {
			urls = append(urls, page)
			continue
		}
		urls = append(urls, demo.PageURL(baseURL, page, sim.PageHeight))
	}
	return urls
}
