package queue

import "context"

// Backend persists opaque payloads under well-known keys.
//
// Update must run the read-modify-write of a single key atomically with
// respect to every other Update on the same backend; returning an error from
// fn aborts the write.
type Backend interface {
	// Get returns the payload stored under key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Update replaces the payload under key with fn(old).
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
	// Close releases the backend's resources.
	Close() error
}
