package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/capture"
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/status"
)

const defaultRecordsLimit = 5

// Handler holds API route handlers.
type Handler struct {
	d Deps
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{d: d}
}

// requestSession takes the actor from the request header and the page from
// the body, falling back to the configured session for either.
type requestSession struct {
	actor    string
	url      string
	fallback capture.Session
}

func (s requestSession) Actor() string {
	if a := strings.TrimSpace(s.actor); a != "" {
		return a
	}
	if s.fallback != nil {
		return s.fallback.Actor()
	}
	return ""
}

func (s requestSession) SourceURL() string {
	if s.url != "" {
		return s.url
	}
	if s.fallback != nil {
		return s.fallback.SourceURL()
	}
	return ""
}

// Capture handles POST /api/captures.
//
//	@Summary		Capture a note
//	@Tags			captures
//	@Accept			json
//	@Produce		json
//	@Param			X-Archieve-Actor	header	string			false	"Submitting user"
//	@Param			body				body	CaptureRequest	true	"Capture text"
//	@Success		201		{object}	CaptureResponse	"Recorded"
//	@Success		202		{object}	CaptureResponse	"Saved locally"
//	@Success		204		"Whitespace-only input, nothing done"
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/captures [post]
func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	sess := requestSession{actor: r.Header.Get(ActorHeader), url: req.SourceURL, fallback: h.d.Session}
	outcome, item, err := h.d.Capture.Capture(r.Context(), req.Text, sess)
	if err != nil {
		if errors.Is(err, apperr.ErrCaptureFailed) {
			writeJSON(w, http.StatusBadGateway, errorBody("Failed to record"))
		} else {
			slog.Error("capture failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	code := http.StatusCreated
	switch outcome {
	case capture.OutcomeIgnored:
		w.WriteHeader(http.StatusNoContent)
		return
	case capture.OutcomeSavedLocally:
		code = http.StatusAccepted
	}
	writeJSON(w, code, CaptureResponse{Outcome: string(outcome), Message: outcome.Message(), Item: item})
}

// Queue handles GET /api/queue.
//
//	@Summary		List captures waiting to be synced
//	@Tags			queue
//	@Produce		json
//	@Success		200	{object}	QueueResponse
//	@Security		BearerAuth
//	@Router			/queue [get]
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	items := h.d.Queue.Load(r.Context())
	writeJSON(w, http.StatusOK, QueueResponse{
		Items:   items,
		Count:   len(items),
		Version: h.d.Queue.Version(r.Context()),
	})
}

// SyncQueue handles POST /api/queue/sync.
//
//	@Summary		Sync the local queue now
//	@Tags			queue
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	SyncResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/queue/sync [post]
func (h *Handler) SyncQueue(w http.ResponseWriter, r *http.Request) {
	if !h.d.Conn.Available() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(apperr.ErrUnavailable.Error()))
		return
	}
	res, err := h.d.Syncer.SyncQueue(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrSyncInProgress):
			writeJSON(w, http.StatusConflict, errorBody(apperr.ErrSyncInProgress.Error()))
		case errors.Is(err, apperr.ErrSyncFailed):
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":     "Failed to sync offline queue",
				"synced":    res.Synced,
				"remaining": res.Remaining,
			})
		default:
			slog.Error("sync failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	resp := SyncResponse{Synced: res.Synced, Remaining: res.Remaining}
	if res.Synced > 0 {
		resp.Message = "Synced " + strconv.Itoa(res.Synced) + " offline items"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) statusBody(r *http.Request) StatusResponse {
	signals := h.d.Tracker.Snapshot()
	state := status.Derive(signals)
	return StatusResponse{
		State:           state,
		Label:           state.Label(),
		SyncAllowed:     state.SyncAllowed(),
		Signals:         signals,
		RemoteAvailable: h.d.Conn.Available(),
		QueueCount:      h.d.Queue.Len(r.Context()),
	}
}

// Status handles GET /api/status.
//
//	@Summary		Get the derived connection state
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusBody(r))
}

// UpdateSignals handles PUT /api/status/signals.
//
//	@Summary		Report external connection signals
//	@Tags			status
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SignalsUpdate	true	"Changed signals"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/status/signals [put]
func (h *Handler) UpdateSignals(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req SignalsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.d.Tracker.Update(req.apply)
	writeJSON(w, http.StatusOK, h.statusBody(r))
}

// Records handles GET /api/records.
//
//	@Summary		List the most recent records
//	@Tags			records
//	@Produce		json
//	@Param			limit	query		int	false	"Max records"	default(5)
//	@Success		200		{object}	RecordsResponse
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultRecordsLimit
	}
	records, err := h.d.Cache.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, apperr.ErrUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody(apperr.ErrUnavailable.Error()))
		} else {
			slog.Error("list records failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("failed to list records"))
		}
		return
	}
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, RecordView{Record: rec, Variant: models.StatusVariant(rec.Status)})
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: views})
}
