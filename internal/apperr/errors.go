// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnavailable    = errors.New("remote record store unavailable")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrSyncFailed     = errors.New("failed to sync offline queue")
	ErrCaptureFailed  = errors.New("failed to record")
)
