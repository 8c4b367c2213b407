package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/remote"
	"github.com/publiclogic/archieve/internal/session"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/syncer"
)

// Components is the wired core shared by the server, the MCP server and the
// one-shot CLI commands.
type Components struct {
	Config  *Config
	Logger  *slog.Logger
	Queue   *queue.Store
	Tracker *status.Tracker
	Conn    *remote.Connector
	Cache   *remote.ListingCache
	Capture *capture.Service
	Syncer  *syncer.Coordinator
	Session capture.Session

	// Bootstrap is nil when no record store is configured.
	Bootstrap *remote.Bootstrap
	// Probe is nil when no calendar health URL is configured.
	Probe *status.Probe

	backend queue.Backend
}

// NewLogger builds the JSON logger used by every entry point.
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Build opens the queue backend and wires the core components.
func Build(cfg *Config, logger *slog.Logger) (*Components, error) {
	backend, err := openBackend(cfg.Queue)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Config:  cfg,
		Logger:  logger,
		backend: backend,
		Queue:   queue.New(backend, cfg.Queue.Key, logger),
		Tracker: status.NewTracker(status.Signals{ShowcaseMode: cfg.App.ShowcaseMode}),
		Conn:    remote.NewConnector(),
		Session: session.File{Path: cfg.Session.Path},
	}
	c.Cache = remote.NewListingCache(c.Conn)
	c.Capture = capture.New(c.Queue, c.Conn, c.Cache,
		capture.WithTags(cfg.Capture.Environment, cfg.Capture.Module),
		capture.WithLogger(logger))
	c.Syncer = syncer.New(c.Queue, c.Conn, c.Cache,
		syncer.WithConfirmMode(syncer.ConfirmMode(cfg.Sync.Confirm)),
		syncer.WithLogger(logger))

	// A usable client handle means the identity side is connected.
	c.Conn.Subscribe(func(available bool) {
		c.Tracker.Update(func(s *status.Signals) {
			s.GraphConnected = available
			if available {
				s.GraphAuthLoading = false
				s.GraphAuthError = false
			}
		})
	})

	if cfg.Remote.Enabled() {
		baseURL, timeout := cfg.Remote.BaseURL, cfg.Remote.Timeout
		c.Bootstrap = remote.NewBootstrap(cfg.Remote.TokenFile, c.Conn, func(token string) (remote.RecordClient, error) {
			return remote.NewHTTPClient(baseURL, token, timeout)
		}, logger)
	}
	if cfg.Calendar.HealthURL != "" {
		c.Probe = status.NewProbe(cfg.Calendar.HealthURL, cfg.Calendar.PollInterval, c.Tracker, logger)
	}
	return c, nil
}

// ConnectOnce applies the current token file without watching it.
func (c *Components) ConnectOnce() {
	if c.Bootstrap != nil {
		c.Bootstrap.Reload()
	}
}

// Background returns the long-running loops every serving entry point runs:
// the token file watcher, automatic sync on reconnect and the calendar probe.
// Each returns when ctx is cancelled.
func (c *Components) Background() []func(ctx context.Context) error {
	var loops []func(ctx context.Context) error
	if c.Bootstrap != nil {
		loops = append(loops, c.Bootstrap.Run)
	}
	if c.Config.Sync.Auto {
		loops = append(loops, c.Syncer.Run)
	}
	if c.Probe != nil {
		loops = append(loops, c.Probe.Run)
	}
	return loops
}

// Close releases the queue backend.
func (c *Components) Close() error {
	return c.backend.Close()
}

func openBackend(cfg QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case QueueBackendFile:
		b, err := queue.NewFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init file queue: %w", err)
		}
		return b, nil
	default:
		b, err := queue.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite queue: %w", err)
		}
		return b, nil
	}
}
