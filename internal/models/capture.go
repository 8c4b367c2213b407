// Package models defines the domain types shared by the queue, the remote
// client and the capture surfaces.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Fixed capture tags.
const (
	RecordTypeCapture = "CAPTURE"
	StatusInbox       = "INBOX"

	UnknownActor   = "unknown"
	DefaultTitle   = "Capture"
	TitleMaxLength = 120
)

// CaptureItem is one user-submitted note destined for the remote record store.
type CaptureItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	RecordType  string    `json:"recordType"`
	Status      string    `json:"status"`
	Actor       string    `json:"actor"`
	Environment string    `json:"environment"`
	Module      string    `json:"module"`
	SourceURL   string    `json:"sourceUrl"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// Validate checks the invariants every queued or sent capture must hold.
func (c *CaptureItem) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required, validation.RuneLength(1, TitleMaxLength)),
		validation.Field(&c.Body, validation.Required),
		validation.Field(&c.RecordType, validation.Required, validation.In(RecordTypeCapture)),
		validation.Field(&c.Status, validation.Required, validation.In(StatusInbox)),
		validation.Field(&c.Actor, validation.Required),
	)
}
