package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/remote"
	"github.com/publiclogic/archieve/internal/status"
	"github.com/publiclogic/archieve/internal/syncer"
)

// Deps are the components the API handlers operate on.
type Deps struct {
	Capture *capture.Service
	Queue   *queue.Store
	Syncer  *syncer.Coordinator
	Conn    *remote.Connector
	Cache   *remote.ListingCache
	Tracker *status.Tracker
	// Session supplies the actor and page when a request does not.
	Session capture.Session
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/captures", h.Capture)

	r.Get("/queue", h.Queue)
	r.Post("/queue/sync", h.SyncQueue)

	r.Get("/status", h.Status)
	r.Put("/status/signals", h.UpdateSignals)

	r.Get("/records", h.Records)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
