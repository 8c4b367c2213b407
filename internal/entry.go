// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/publiclogic/archieve/internal/api"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/sse"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/syncer"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel, os.Stdout)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.String("queue_path", cfg.Queue.Path),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("sync_confirm", cfg.Sync.Confirm),
		slog.String("log_level", cfg.App.LogLevel.String()))

	comps, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	bridgeEvents(comps, broker)

	apiRouter := api.NewRouter(api.Deps{
		Capture: comps.Capture,
		Queue:   comps.Queue,
		Syncer:  comps.Syncer,
		Conn:    comps.Conn,
		Cache:   comps.Cache,
		Tracker: comps.Tracker,
		Session: comps.Session,
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}
	// Streaming clients never go idle on their own.
	httpServer.RegisterOnShutdown(broker.Close)

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Token watcher, auto sync and calendar probe.
	for _, loop := range comps.Background() {
		g.Go(func() error {
			return loop(gCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so background loops stop with the server.
var errShutdown = errors.New("shutdown")

// bridgeEvents forwards core notifications to SSE clients.
func bridgeEvents(c *Components, broker *sse.Broker) {
	c.Queue.Subscribe(func(ch queue.Change) {
		broker.PublishQueueChanged(ch.Count, ch.Version)
	})
	c.Tracker.Subscribe(func(s status.State) {
		broker.PublishStatusChanged(string(s), s.Label())
	})
	c.Syncer.Subscribe(func(ev syncer.Event) {
		broker.PublishSync(ev.Kind, ev.Synced, ev.Message)
	})
	c.Cache.OnInvalidate(broker.PublishRecordsInvalidated)
}
