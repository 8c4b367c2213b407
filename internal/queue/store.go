// Package queue implements the durable local queue of captures that have not
// yet been written to the remote record store.
package queue

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/publiclogic/archieve/internal/checksum"
	"github.com/publiclogic/archieve/internal/models"
)

// DefaultKey is the well-known key the queue is persisted under.
const DefaultKey = "archieve.local-queue.v1"

// Change is delivered to subscribers after every successful save.
type Change struct {
	Count   int   `json:"count"`
	Version int64 `json:"version"`
}

// envelope is the persisted layout. Items is kept raw so the checksum covers
// exactly the bytes on disk.
type envelope struct {
	Version  int64           `json:"version"`
	Checksum string          `json:"checksum"`
	Items    json.RawMessage `json:"items"`
}

// Store is the ordered, persisted sequence of pending captures.
//
// Every mutation is a whole-sequence replace executed inside one Backend
// Update, so an append and a drain never interleave within their own
// read-modify-write.
type Store struct {
	backend Backend
	key     string
	logger  *slog.Logger

	mu     sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New creates a Store persisting under key (DefaultKey when empty).
func New(backend Backend, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		key:     key,
		logger:  logger,
		subs:    make(map[int]func(Change)),
	}
}

// Load returns the persisted sequence, oldest first. Unreadable or absent
// storage is reported as an empty queue.
func (s *Store) Load(ctx context.Context) []models.CaptureItem {
	items, _ := s.read(ctx)
	return items
}

// Len returns the number of pending captures.
func (s *Store) Len(ctx context.Context) int {
	return len(s.Load(ctx))
}

// Version returns the current optimistic version tag of the persisted queue.
func (s *Store) Version(ctx context.Context) int64 {
	_, v := s.read(ctx)
	return v
}

// Save replaces the entire persisted sequence with items.
func (s *Store) Save(ctx context.Context, items []models.CaptureItem) error {
	return s.Replace(ctx, func([]models.CaptureItem) []models.CaptureItem {
		return items
	})
}

// Enqueue appends item to the end of the queue.
func (s *Store) Enqueue(ctx context.Context, item models.CaptureItem) error {
	return s.Replace(ctx, func(current []models.CaptureItem) []models.CaptureItem {
		return append(current, item)
	})
}

// Replace writes the literal sequence returned by fn, which receives a copy
// of the current sequence. Subscribers are notified once the write commits.
func (s *Store) Replace(ctx context.Context, fn func(current []models.CaptureItem) []models.CaptureItem) error {
	var change Change
	err := s.backend.Update(ctx, s.key, func(old []byte) ([]byte, error) {
		current, version := s.decode(old)
		next := fn(current)
		if next == nil {
			next = []models.CaptureItem{}
		}
		payload, err := encode(next, version+1)
		if err != nil {
			return nil, err
		}
		change = Change{Count: len(next), Version: version + 1}
		return payload, nil
	})
	if err != nil {
		return fmt.Errorf("queue: save: %w", err)
	}
	s.notify(change)
	return nil
}

// Subscribe registers fn to be called after every save. The returned func
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) notify(change Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (s *Store) read(ctx context.Context) ([]models.CaptureItem, int64) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("queue: load failed, treating as empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return []models.CaptureItem{}, 0
	}
	return s.decode(data)
}

// decode parses a persisted payload. A bare JSON array is accepted for
// payloads written without an envelope.
func (s *Store) decode(data []byte) ([]models.CaptureItem, int64) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.CaptureItem{}, 0
	}

	var (
		raw     []byte
		version int64
	)
	if trimmed[0] == '[' {
		raw = trimmed
	} else {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			s.logger.Warn("queue: corrupt payload, treating as empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()))
			return []models.CaptureItem{}, 0
		}
		if !checksum.Verify(env.Items, env.Checksum) {
			s.logger.Warn("queue: checksum mismatch, treating as empty", slog.String("key", s.key))
			return []models.CaptureItem{}, env.Version
		}
		raw = env.Items
		version = env.Version
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		s.logger.Warn("queue: corrupt items, treating as empty",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return []models.CaptureItem{}, version
	}
	items := make([]models.CaptureItem, 0, len(elems))
	for i, elem := range elems {
		var it models.CaptureItem
		if err := json.Unmarshal(elem, &it); err != nil {
			s.logger.Warn("queue: corrupt items, treating as empty",
				slog.String("key", s.key),
				slog.String("error", err.Error()))
			return []models.CaptureItem{}, version
		}
		if it.ID == "" {
			it.ID = derivedID(i, elem, it.CapturedAt)
		}
		items = append(items, it)
	}
	return items, version
}

// derivedID names an item persisted without an id. The result depends only
// on the stored bytes and the item's position, so every read of the same
// payload agrees, and the next write persists it.
func derivedID(pos int, elem []byte, capturedAt time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:", pos)
	h.Write(elem)
	var ms uint64
	if capturedAt.After(time.Unix(0, 0)) {
		ms = ulid.Timestamp(capturedAt)
	}
	return ulid.MustNew(ms, bytes.NewReader(h.Sum(nil))).String()
}

func encode(items []models.CaptureItem, version int64) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("queue: encode items: %w", err)
	}
	return json.Marshal(envelope{
		Version:  version,
		Checksum: checksum.Sum(raw),
		Items:    raw,
	})
}
