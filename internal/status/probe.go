package status

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultProbeInterval = 30 * time.Second

// Probe polls a calendar health endpoint and mirrors its availability into
// the tracker's GraphServiceError signal.
type Probe struct {
	url      string
	interval time.Duration
	http     *http.Client
	tracker  *Tracker
	logger   *slog.Logger
}

// NewProbe builds a Probe for healthURL. A non-positive interval falls back to
// the default.
func NewProbe(healthURL string, interval time.Duration, tracker *Tracker, logger *slog.Logger) *Probe {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		url:      healthURL,
		interval: interval,
		http:     &http.Client{Timeout: 5 * time.Second},
		tracker:  tracker,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. It always returns nil.
func (p *Probe) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.refresh(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Probe) refresh(ctx context.Context) {
	err := p.check(ctx)
	if ctx.Err() != nil {
		return
	}
	failed := err != nil
	if failed {
		p.logger.Warn("calendar probe failed", slog.String("error", err.Error()))
	}
	p.tracker.Update(func(s *Signals) { s.GraphServiceError = failed })
}

func (p *Probe) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("calendar health returned status %d", resp.StatusCode)
	}
	return nil
}
