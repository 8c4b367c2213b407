// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Archieve capture and queue tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/remote"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/syncer"
)

const queueResourceURI = "archieve://queue"

// Deps are the components the tools operate on.
type Deps struct {
	Capture *capture.Service
	Queue   *queue.Store
	Syncer  *syncer.Coordinator
	Conn    *remote.Connector
	Cache   *remote.ListingCache
	Tracker *status.Tracker
	Session capture.Session
}

// Server wraps the MCP server with Archieve tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all Archieve tools registered.
func New(d Deps) *Server {
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Archieve",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture",
		mcp.WithDescription("Capture a note. The first line becomes the title. "+
			"Recorded directly when the record store is reachable, otherwise saved locally for a later sync."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
		mcp.WithString("source_url", mcp.Description("Page the note refers to")),
	), s.capture)

	s.mcp.AddTool(mcp.NewTool("queue_status",
		mcp.WithDescription("List captures saved locally and waiting to be synced."),
	), s.queueStatus)

	s.mcp.AddTool(mcp.NewTool("sync_queue",
		mcp.WithDescription("Send every locally saved capture to the record store, oldest first."),
	), s.syncQueue)

	s.mcp.AddTool(mcp.NewTool("connection_status",
		mcp.WithDescription("Report the derived connection state and whether syncing is possible."),
	), s.connectionStatus)

	s.mcp.AddTool(mcp.NewTool("recent_records",
		mcp.WithDescription("List the most recently created records, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max records (default 5)")),
	), s.recentRecords)

	s.mcp.AddResource(
		mcp.NewResource(queueResourceURI, "Offline Queue",
			mcp.WithResourceDescription("Captures saved locally and waiting to be synced."),
			mcp.WithMIMEType("application/json"),
		),
		s.readQueueResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type staticSession struct {
	fallback capture.Session
	url      string
}

func (s staticSession) Actor() string {
	if s.fallback == nil {
		return ""
	}
	return s.fallback.Actor()
}

func (s staticSession) SourceURL() string {
	if s.url != "" || s.fallback == nil {
		return s.url
	}
	return s.fallback.SourceURL()
}

func (s *Server) capture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess := staticSession{fallback: s.d.Session, url: req.GetString("source_url", "")}

	outcome, item, err := s.d.Capture.Capture(ctx, text, sess)
	if err != nil {
		if errors.Is(err, apperr.ErrCaptureFailed) {
			return mcp.NewToolResultError("Failed to record"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if outcome == capture.OutcomeIgnored {
		return mcp.NewToolResultText("nothing to capture"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s (%s)", outcome.Message(), item.Title, item.ID)), nil
}

func (s *Server) queueJSON(ctx context.Context) string {
	items := s.d.Queue.Load(ctx)
	out, _ := json.MarshalIndent(map[string]any{
		"count":   len(items),
		"version": s.d.Queue.Version(ctx),
		"items":   items,
	}, "", "  ")
	return string(out)
}

func (s *Server) queueStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.queueJSON(ctx)), nil
}

func (s *Server) readQueueResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      queueResourceURI,
			MIMEType: "application/json",
			Text:     s.queueJSON(ctx),
		},
	}, nil
}

func (s *Server) syncQueue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.d.Conn.Available() {
		return mcp.NewToolResultError(apperr.ErrUnavailable.Error()), nil
	}
	res, err := s.d.Syncer.SyncQueue(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrSyncFailed) {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to sync offline queue (%d remaining)", res.Remaining)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Synced == 0 {
		return mcp.NewToolResultText("queue is empty"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Synced %d offline items", res.Synced)), nil
}

func (s *Server) connectionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signals := s.d.Tracker.Snapshot()
	state := status.Derive(signals)
	out, _ := json.MarshalIndent(map[string]any{
		"state":            state,
		"label":            state.Label(),
		"sync_allowed":     state.SyncAllowed(),
		"remote_available": s.d.Conn.Available(),
		"queue_count":      s.d.Queue.Len(ctx),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) recentRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}
	records, err := s.d.Cache.Recent(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type row struct {
		models.Record
		Variant string `json:"variant"`
	}
	rows := make([]row, 0, len(records))
	for _, r := range records {
		rows = append(rows, row{Record: r, Variant: models.StatusVariant(r.Status)})
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
