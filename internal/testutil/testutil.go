// Package testutil provides shared test helpers: temporary queue stores, a
// scriptable record client and a polling assertion.
package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/queue"
)

// ErrRemote is the failure FakeRecords returns for scripted failures.
var ErrRemote = errors.New("remote: simulated failure")

// QuietLogger returns a logger that discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// QueueStore creates a queue.Store on a temporary SQLite database that is
// automatically cleaned up.
func QueueStore(t *testing.T) *queue.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "archieve-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := queue.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return queue.New(db, "", QuietLogger())
}

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// FakeRecords is an in-memory record store client.
type FakeRecords struct {
	mu      sync.Mutex
	created []models.CaptureItem
	calls   int
	failAt  map[int]bool
	gate    chan struct{}

	// Listing is returned by List.
	Listing []models.Record
	// FailList makes List return ErrRemote.
	FailList bool
}

// FailOnCall makes the n-th Create call (1-based) return ErrRemote.
func (f *FakeRecords) FailOnCall(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == nil {
		f.failAt = make(map[int]bool)
	}
	f.failAt[n] = true
}

// Hold makes every Create block until Release is called.
func (f *FakeRecords) Hold() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

// Release unblocks held Create calls.
func (f *FakeRecords) Release() {
	f.mu.Lock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
	f.mu.Unlock()
}

// Create records item unless the call is scripted to fail.
func (f *FakeRecords) Create(ctx context.Context, item models.CaptureItem) (models.RecordHandle, error) {
	f.mu.Lock()
	gate := f.gate
	f.calls++
	call := f.calls
	fail := f.failAt[call]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.RecordHandle{}, ctx.Err()
		}
	}
	if fail {
		return models.RecordHandle{}, ErrRemote
	}

	f.mu.Lock()
	f.created = append(f.created, item)
	f.mu.Unlock()
	return models.RecordHandle{ItemID: item.ID, WebURL: "https://records.test/" + item.ID}, nil
}

// List returns Listing.
func (f *FakeRecords) List(ctx context.Context) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailList {
		return nil, ErrRemote
	}
	return append([]models.Record(nil), f.Listing...), nil
}

// Created returns the items successfully created so far, in call order.
func (f *FakeRecords) Created() []models.CaptureItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CaptureItem(nil), f.created...)
}

// Calls returns the number of Create calls made.
func (f *FakeRecords) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
