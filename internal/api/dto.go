package api

import (
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/status"
)

// ActorHeader carries the submitting user's identity on capture requests.
const ActorHeader = "X-Archieve-Actor"

// CaptureRequest is the request body for a new capture.
type CaptureRequest struct {
	Text      string `json:"text" example:"Fix the gate latch" validate:"required"`
	SourceURL string `json:"source_url,omitempty" example:"https://app.publiclogic.org/dashboard"`
}

// CaptureResponse reports what happened to a capture.
type CaptureResponse struct {
	Outcome string              `json:"outcome" example:"saved_locally" validate:"required"`
	Message string              `json:"message" example:"Saved locally (offline)"`
	Item    *models.CaptureItem `json:"item,omitempty"`
}

// QueueResponse is the local queue snapshot.
type QueueResponse struct {
	Items   []models.CaptureItem `json:"items" validate:"required"`
	Count   int                  `json:"count" example:"2"`
	Version int64                `json:"version" example:"7"`
}

// SyncResponse summarizes a manual sync pass.
type SyncResponse struct {
	Synced    int    `json:"synced" example:"3"`
	Remaining int    `json:"remaining" example:"0"`
	Message   string `json:"message,omitempty" example:"Synced 3 offline items"`
}

// StatusResponse is the derived connection state plus its inputs.
type StatusResponse struct {
	State           status.State   `json:"state" example:"connected"`
	Label           string         `json:"label" example:"Microsoft 365 connected"`
	SyncAllowed     bool           `json:"sync_allowed"`
	Signals         status.Signals `json:"signals"`
	RemoteAvailable bool           `json:"remote_available"`
	QueueCount      int            `json:"queue_count" example:"0"`
}

// SignalsUpdate is a partial update of the external signals. Nil fields are
// left unchanged.
type SignalsUpdate struct {
	ShowcaseMode      *bool `json:"showcase_mode,omitempty"`
	GraphAuthLoading  *bool `json:"graph_auth_loading,omitempty"`
	GraphConnected    *bool `json:"graph_connected,omitempty"`
	GraphAuthError    *bool `json:"graph_auth_error,omitempty"`
	GraphServiceError *bool `json:"graph_service_error,omitempty"`
}

func (u SignalsUpdate) apply(s *status.Signals) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.ShowcaseMode, u.ShowcaseMode)
	set(&s.GraphAuthLoading, u.GraphAuthLoading)
	set(&s.GraphConnected, u.GraphConnected)
	set(&s.GraphAuthError, u.GraphAuthError)
	set(&s.GraphServiceError, u.GraphServiceError)
}

// RecordView is a listed record with its badge variant.
type RecordView struct {
	models.Record
	Variant string `json:"variant" example:"secondary"`
}

// RecordsResponse wraps the recent records listing.
type RecordsResponse struct {
	Records []RecordView `json:"records" validate:"required"`
}
