package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/session"
	"github.com/publiclogic/archieve/internal/sse"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Queue.Backend = QueueBackendFile
	cfg.Queue.Path = filepath.Join(dir, "queue")
	cfg.Session.Path = filepath.Join(dir, "session.toml")
	return cfg
}

func TestBuild_OfflineCaptureUsesSessionFile(t *testing.T) {
	cfg := testConfig(t)
	if err := session.Save(cfg.Session.Path, session.Snapshot{Actor: "dana"}); err != nil {
		t.Fatal(err)
	}

	comps, err := Build(cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer comps.Close()

	if comps.Bootstrap != nil || comps.Probe != nil {
		t.Error("remote and probe should be disabled by default")
	}

	outcome, item, err := comps.Capture.Capture(context.Background(), "Fix the gate latch", comps.Session)
	if err != nil || outcome != capture.OutcomeSavedLocally {
		t.Fatalf("outcome = %s err = %v", outcome, err)
	}
	if item.Actor != "dana" {
		t.Errorf("actor = %q, want dana", item.Actor)
	}
	if _, err := os.Stat(filepath.Join(cfg.Queue.Path, "archieve.local-queue.v1.json")); err != nil {
		t.Errorf("queue file missing: %v", err)
	}
}

func TestBuild_ConnectorDrivesGraphConnected(t *testing.T) {
	comps, err := Build(testConfig(t), testutil.QuietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer comps.Close()

	comps.Tracker.Update(func(s *status.Signals) { s.GraphAuthError = true })
	comps.Conn.Connect(&testutil.FakeRecords{})
	if got := comps.Tracker.State(); got != status.StateConnected {
		t.Errorf("state = %s, want connected", got)
	}
	comps.Conn.Disconnect()
	if got := comps.Tracker.State(); got != status.StateDisconnected {
		t.Errorf("state = %s, want disconnected", got)
	}
}

func TestBackground_AutoSyncOnReconnect(t *testing.T) {
	cfg := testConfig(t)
	comps, err := Build(cfg, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer comps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loops := comps.Background()
	if len(loops) != 1 {
		t.Fatalf("background loops = %d, want 1 (auto sync)", len(loops))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loops[0](ctx)
	}()

	if _, _, err := comps.Capture.Capture(ctx, "queued while offline", comps.Session); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	client := &testutil.FakeRecords{}
	comps.Conn.Connect(client)

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return comps.Queue.Len(ctx) == 0 && len(client.Created()) == 1
	}, "queue drained after reconnect")

	cancel()
	<-done

	cfg.Sync.Auto = false
	if n := len(comps.Background()); n != 0 {
		t.Errorf("background loops with auto sync off = %d, want 0", n)
	}
}

func TestBridgeEvents(t *testing.T) {
	comps, err := Build(testConfig(t), testutil.QuietLogger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer comps.Close()

	broker := sse.NewBroker(time.Millisecond)
	defer broker.Close()
	bridgeEvents(comps, broker)
	ch := broker.Subscribe()

	var mu sync.Mutex
	var got []string
	go func() {
		for msg := range ch {
			mu.Lock()
			got = append(got, string(msg))
			mu.Unlock()
		}
	}()

	client := &testutil.FakeRecords{}
	_, _, _ = comps.Capture.Capture(context.Background(), "one", nil)
	comps.Conn.Connect(client)
	_, _ = comps.Syncer.SyncQueue(context.Background())

	has := func(event string) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, m := range got {
				if strings.Contains(m, "event: "+event) {
					return true
				}
			}
			return false
		}
	}
	for _, ev := range []string{"queue.changed", "status.changed", "sync.completed", "records.invalidated"} {
		testutil.Eventually(t, time.Second, 10*time.Millisecond, has(ev), "missing SSE event "+ev)
	}
}
