package models

import (
	"sort"
	"time"
)

// Record is one entry returned by the remote store's listing.
type Record struct {
	ItemID     string    `json:"itemId,omitempty"`
	RecordID   string    `json:"RecordId,omitempty"`
	Title      string    `json:"Title,omitempty"`
	Status     string    `json:"Status,omitempty"`
	RecordType string    `json:"RecordType,omitempty"`
	CreatedAt  time.Time `json:"CreatedAt,omitempty"`
	Created    time.Time `json:"Created,omitempty"`
	WebURL     string    `json:"webUrl,omitempty"`
}

// RecordHandle identifies a record the remote store just created.
type RecordHandle struct {
	ItemID string `json:"itemId"`
	WebURL string `json:"webUrl,omitempty"`
}

// Timestamp returns CreatedAt, falling back to Created.
func (r Record) Timestamp() time.Time {
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.Created
}

// SortByCreated orders records newest first in place.
func SortByCreated(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp().After(records[j].Timestamp())
	})
}

// StatusVariant maps a record status to the badge variant shown next to it.
func StatusVariant(status string) string {
	switch status {
	case "SAVED", "ARCHIVED":
		return "default"
	case StatusInbox, "PENDING":
		return "secondary"
	default:
		return "outline"
	}
}
