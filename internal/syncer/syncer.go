// Package syncer drains the local capture queue into the remote record store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/remote"
)

// Event kinds.
const (
	EventCompleted = "sync.completed"
	EventFailed    = "sync.failed"
)

// Result summarizes one sync pass.
type Result struct {
	Synced    int `json:"synced"`
	Remaining int `json:"remaining"`
}

// Event is published after every pass that attempted at least one create.
type Event struct {
	Kind    string `json:"kind"`
	Synced  int    `json:"synced"`
	Message string `json:"message"`
}

// SyncError reports the first failed create of a pass.
type SyncError struct {
	// Index is the queue position that failed. It equals the number of
	// drained items when the remote writes succeeded but the local confirm
	// did not.
	Index int
	// Synced counts remote creates that succeeded before the failure.
	Synced int
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync: item %d: %v", e.Index, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{apperr.ErrSyncFailed, e.Err}
}

// Coordinator runs sync passes. At most one pass is in flight at a time.
type Coordinator struct {
	store  *queue.Store
	conn   *remote.Connector
	cache  *remote.ListingCache
	mode   ConfirmMode
	logger *slog.Logger

	running  atomic.Bool
	triggers chan struct{}

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New creates a Coordinator. cache may be nil.
func New(store *queue.Store, conn *remote.Connector, cache *remote.ListingCache, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		conn:     conn,
		cache:    cache,
		mode:     ConfirmBatch,
		logger:   slog.Default(),
		triggers: make(chan struct{}, 1),
		subs:     make(map[int]func(Event)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Mode returns the configured confirm mode.
func (c *Coordinator) Mode() ConfirmMode { return c.mode }

// Running reports whether a pass is in flight.
func (c *Coordinator) Running() bool { return c.running.Load() }

// SyncQueue sends every queued capture, oldest first, one create at a time.
// Without a client or with an empty queue it does nothing. A call made while
// another pass is in flight returns apperr.ErrSyncInProgress.
func (c *Coordinator) SyncQueue(ctx context.Context) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, apperr.ErrSyncInProgress
	}
	defer c.running.Store(false)

	client := c.conn.Current()
	if client == nil {
		return Result{}, nil
	}
	items := c.store.Load(ctx)
	if len(items) == 0 {
		return Result{}, nil
	}

	c.logger.Info("sync: started",
		slog.Int("items", len(items)),
		slog.String("mode", string(c.mode)))

	var (
		synced int
		err    error
	)
	if c.mode == ConfirmPerItem {
		synced, err = c.drainPerItem(ctx, client, items)
	} else {
		synced, err = c.drainBatch(ctx, client, items)
	}

	if synced > 0 && c.cache != nil {
		c.cache.Invalidate()
	}
	res := Result{Synced: synced, Remaining: c.store.Len(ctx)}
	if err != nil {
		c.logger.Warn("sync: failed",
			slog.Int("synced", synced),
			slog.String("error", err.Error()))
		if c.mode == ConfirmBatch {
			res.Synced = 0
		}
		c.publish(Event{Kind: EventFailed, Synced: res.Synced, Message: "Failed to sync offline queue"})
		return res, err
	}

	c.logger.Info("sync: completed", slog.Int("synced", synced))
	c.publish(Event{Kind: EventCompleted, Synced: synced, Message: fmt.Sprintf("Synced %d offline items", synced)})
	return res, nil
}

func (c *Coordinator) drainBatch(ctx context.Context, client remote.RecordClient, items []models.CaptureItem) (int, error) {
	drained := make(map[string]struct{}, len(items))
	for i, item := range items {
		if _, err := client.Create(ctx, item); err != nil {
			return i, &SyncError{Index: i, Synced: i, Err: err}
		}
		drained[item.ID] = struct{}{}
	}

	// Items enqueued while the pass ran are kept.
	if err := c.store.Replace(ctx, func(current []models.CaptureItem) []models.CaptureItem {
		return without(current, drained)
	}); err != nil {
		return len(items), &SyncError{Index: len(items), Synced: len(items), Err: err}
	}
	return len(items), nil
}

func (c *Coordinator) drainPerItem(ctx context.Context, client remote.RecordClient, items []models.CaptureItem) (int, error) {
	for i, item := range items {
		if _, err := client.Create(ctx, item); err != nil {
			return i, &SyncError{Index: i, Synced: i, Err: err}
		}
		id := item.ID
		if err := c.store.Replace(ctx, func(current []models.CaptureItem) []models.CaptureItem {
			return withoutFirst(current, id)
		}); err != nil {
			return i + 1, &SyncError{Index: i, Synced: i + 1, Err: err}
		}
	}
	return len(items), nil
}

func without(items []models.CaptureItem, ids map[string]struct{}) []models.CaptureItem {
	out := make([]models.CaptureItem, 0, len(items))
	for _, it := range items {
		if _, ok := ids[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// withoutFirst drops only the oldest item carrying id.
func withoutFirst(items []models.CaptureItem, id string) []models.CaptureItem {
	for i, it := range items {
		if it.ID == id {
			return append(items[:i:i], items[i+1:]...)
		}
	}
	return items
}

// Trigger requests an asynchronous pass from the Run loop. It never blocks.
func (c *Coordinator) Trigger() {
	select {
	case c.triggers <- struct{}{}:
	default:
	}
}

// Run watches the connector and syncs whenever the record store becomes
// available with captures waiting. It returns nil when ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	unsubscribe := c.conn.Subscribe(func(available bool) {
		if available {
			c.Trigger()
		}
	})
	defer unsubscribe()

	if c.conn.Available() {
		c.Trigger()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.triggers:
			if c.store.Len(ctx) == 0 {
				continue
			}
			if _, err := c.SyncQueue(ctx); err != nil {
				if errors.Is(err, apperr.ErrSyncInProgress) {
					c.logger.Debug("sync: trigger dropped, pass in flight")
				}
			}
		}
	}
}

// Subscribe registers fn for sync events and returns its unsubscribe func.
func (c *Coordinator) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) publish(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
