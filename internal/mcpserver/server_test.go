package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/remote"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/syncer"
	"github.com/publiclogic/archieve/internal/testutil"
)

func testServer(t *testing.T) (*Server, Deps, *testutil.FakeRecords) {
	t.Helper()

	store := testutil.QueueStore(t)
	conn := remote.NewConnector()
	cache := remote.NewListingCache(conn)
	logger := testutil.QuietLogger()
	d := Deps{
		Capture: capture.New(store, conn, cache, capture.WithLogger(logger)),
		Queue:   store,
		Syncer:  syncer.New(store, conn, cache, syncer.WithLogger(logger)),
		Conn:    conn,
		Cache:   cache,
		Tracker: status.NewTracker(status.Signals{}),
		Session: capture.StaticSession{ActorID: "mcp-user"},
	}
	return New(d), d, &testutil.FakeRecords{}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "capture":
		result, err = srv.capture(ctx, req)
	case "queue_status":
		result, err = srv.queueStatus(ctx, req)
	case "sync_queue":
		result, err = srv.syncQueue(ctx, req)
	case "connection_status":
		result, err = srv.connectionStatus(ctx, req)
	case "recent_records":
		result, err = srv.recentRecords(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCaptureOfflineThenSync(t *testing.T) {
	srv, d, client := testServer(t)

	r := callTool(t, srv, "capture", map[string]interface{}{"text": "Fix the gate latch\nIt sticks in winter"})
	if text := resultText(r); !strings.HasPrefix(text, "Saved locally (offline): Fix the gate latch") {
		t.Errorf("capture result = %q", text)
	}

	r = callTool(t, srv, "queue_status", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"count": 1`) || !strings.Contains(text, `"actor": "mcp-user"`) {
		t.Errorf("queue_status = %q", text)
	}

	r = callTool(t, srv, "sync_queue", map[string]interface{}{})
	if !r.IsError {
		t.Error("sync without a client should be an error")
	}

	d.Conn.Connect(client)
	r = callTool(t, srv, "sync_queue", map[string]interface{}{})
	if text := resultText(r); text != "Synced 1 offline items" {
		t.Errorf("sync_queue = %q", text)
	}
	if d.Queue.Len(context.Background()) != 0 {
		t.Error("queue not drained")
	}
}

func TestCaptureWhitespace(t *testing.T) {
	srv, d, _ := testServer(t)
	r := callTool(t, srv, "capture", map[string]interface{}{"text": "   "})
	if r.IsError || resultText(r) != "nothing to capture" {
		t.Errorf("result = %+v", r)
	}
	if d.Queue.Len(context.Background()) != 0 {
		t.Error("whitespace capture reached the queue")
	}
}

func TestCaptureMissingText(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "capture", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing text")
	}
}

func TestCaptureDirectFailure(t *testing.T) {
	srv, d, client := testServer(t)
	client.FailOnCall(1)
	d.Conn.Connect(client)
	r := callTool(t, srv, "capture", map[string]interface{}{"text": "x"})
	if !r.IsError || resultText(r) != "Failed to record" {
		t.Errorf("result = %+v", r)
	}
}

func TestConnectionStatus(t *testing.T) {
	srv, d, _ := testServer(t)
	d.Tracker.Update(func(s *status.Signals) { s.ShowcaseMode = true; s.GraphConnected = true })
	r := callTool(t, srv, "connection_status", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"state": "showcase"`) || !strings.Contains(text, `"sync_allowed": false`) {
		t.Errorf("connection_status = %q", text)
	}
}

func TestRecentRecords(t *testing.T) {
	srv, d, client := testServer(t)
	r := callTool(t, srv, "recent_records", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without a client")
	}

	client.Listing = []models.Record{
		{Title: "old", Status: "ARCHIVED", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "new", Status: "INBOX", CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	d.Conn.Connect(client)
	r = callTool(t, srv, "recent_records", map[string]interface{}{"limit": float64(1)})
	text := resultText(r)
	if !strings.Contains(text, `"Title": "new"`) || strings.Contains(text, `"old"`) {
		t.Errorf("recent_records = %q", text)
	}
	if !strings.Contains(text, `"variant": "secondary"`) {
		t.Errorf("missing variant in %q", text)
	}
}
