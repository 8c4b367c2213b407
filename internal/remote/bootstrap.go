package remote

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ClientFactory builds a RecordClient from an access token.
type ClientFactory func(token string) (RecordClient, error)

// Bootstrap connects and disconnects a Connector as an access-token file
// appears, changes, or disappears. Acquiring the token is someone else's job.
type Bootstrap struct {
	path    string
	conn    *Connector
	factory ClientFactory
	logger  *slog.Logger
	token   string
}

// NewBootstrap watches tokenFile on behalf of conn.
func NewBootstrap(tokenFile string, conn *Connector, factory ClientFactory, logger *slog.Logger) *Bootstrap {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrap{
		path:    filepath.Clean(tokenFile),
		conn:    conn,
		factory: factory,
		logger:  logger,
	}
}

// Run applies the current token file, then watches its directory until ctx is
// cancelled.
func (b *Bootstrap) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	b.logger.Info("bootstrap: watching token file", slog.String("path", b.path))
	b.Reload()

	// Editors often write a file in several steps; settle before reading.
	var settle *time.Timer
	var settleCh <-chan time.Time
	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(50 * time.Millisecond)
			settleCh = settle.C
		} else {
			settle.Reset(50 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			b.logger.Info("bootstrap: stopped")
			return nil

		case <-settleCh:
			b.Reload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != b.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			b.logger.Error("bootstrap: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// Reload reads the token file once and updates the connector to match.
func (b *Bootstrap) Reload() {
	data, err := os.ReadFile(b.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		b.logger.Warn("bootstrap: read token failed", slog.String("error", err.Error()))
	}
	token := strings.TrimSpace(string(data))

	if token == "" {
		if b.token != "" || b.conn.Available() {
			b.logger.Info("bootstrap: token removed, disconnecting")
		}
		b.token = ""
		b.conn.Disconnect()
		return
	}
	if token == b.token && b.conn.Available() {
		return
	}

	client, err := b.factory(token)
	if err != nil {
		b.logger.Error("bootstrap: build client failed", slog.String("error", err.Error()))
		b.token = ""
		b.conn.Disconnect()
		return
	}
	b.token = token
	b.conn.Connect(client)
	b.logger.Info("bootstrap: connected")
}
