// Package capture turns raw user text into a CaptureItem and either records
// it directly or parks it in the local queue.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/publiclogic/archieve/internal/apperr"
	"github.com/publiclogic/archieve/internal/models"
	"github.com/publiclogic/archieve/internal/queue"
	"github.com/publiclogic/archieve/internal/remote"
)

// Session supplies the submitting user's identity and current page. It is
// read on every capture and never cached.
type Session interface {
	Actor() string
	SourceURL() string
}

// StaticSession is a fixed Session.
type StaticSession struct {
	ActorID string
	URL     string
}

func (s StaticSession) Actor() string     { return s.ActorID }
func (s StaticSession) SourceURL() string { return s.URL }

// Outcome reports what Capture did with the input.
type Outcome string

const (
	OutcomeIgnored      Outcome = "ignored"
	OutcomeRecorded     Outcome = "recorded"
	OutcomeSavedLocally Outcome = "saved_locally"
)

// Message is the short confirmation shown to the user.
func (o Outcome) Message() string {
	switch o {
	case OutcomeRecorded:
		return "Recorded"
	case OutcomeSavedLocally:
		return "Saved locally (offline)"
	default:
		return ""
	}
}

// CaptureError is returned when a direct create fails. The item is not queued.
type CaptureError struct {
	ItemID string
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("%v: %v", apperr.ErrCaptureFailed, e.Err)
}

func (e *CaptureError) Unwrap() []error {
	return []error{apperr.ErrCaptureFailed, e.Err}
}

// Default tags applied to every capture.
const (
	DefaultEnvironment = "PUBLICLOGIC"
	DefaultModule      = "DASHBOARD"
)

// Option configures a Service.
type Option func(*Service)

// WithTags overrides the environment and module tags.
func WithTags(environment, module string) Option {
	return func(s *Service) {
		if environment != "" {
			s.environment = environment
		}
		if module != "" {
			s.module = module
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the single entry point for user captures.
type Service struct {
	store       *queue.Store
	conn        *remote.Connector
	cache       *remote.ListingCache
	environment string
	module      string
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a Service. cache may be nil.
func New(store *queue.Store, conn *remote.Connector, cache *remote.ListingCache, opts ...Option) *Service {
	s := &Service{
		store:       store,
		conn:        conn,
		cache:       cache,
		environment: DefaultEnvironment,
		module:      DefaultModule,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Capture records raw. Whitespace-only input is ignored without side effects.
// With a client available the item is created directly; otherwise it is
// appended to the local queue.
func (s *Service) Capture(ctx context.Context, raw string, sess Session) (Outcome, *models.CaptureItem, error) {
	item, ok := BuildItem(raw, sess, s.environment, s.module, s.now())
	if !ok {
		return OutcomeIgnored, nil, nil
	}
	if err := item.Validate(); err != nil {
		return "", nil, fmt.Errorf("capture: invalid item: %w", err)
	}

	if client := s.conn.Current(); client != nil {
		if _, err := client.Create(ctx, item); err != nil {
			s.logger.Warn("capture: direct create failed",
				slog.String("id", item.ID),
				slog.String("error", err.Error()))
			return "", &item, &CaptureError{ItemID: item.ID, Err: err}
		}
		if s.cache != nil {
			s.cache.Invalidate()
		}
		s.logger.Info("capture: recorded", slog.String("id", item.ID))
		return OutcomeRecorded, &item, nil
	}

	if err := s.store.Enqueue(ctx, item); err != nil {
		return "", nil, fmt.Errorf("capture: %w", err)
	}
	s.logger.Info("capture: saved locally", slog.String("id", item.ID))
	return OutcomeSavedLocally, &item, nil
}

// BuildItem derives a CaptureItem from raw input. It reports false when raw
// is empty after trimming.
func BuildItem(raw string, sess Session, environment, module string, now time.Time) (models.CaptureItem, bool) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return models.CaptureItem{}, false
	}

	actor, sourceURL := models.UnknownActor, ""
	if sess != nil {
		if a := strings.TrimSpace(sess.Actor()); a != "" {
			actor = a
		}
		sourceURL = sess.SourceURL()
	}

	return models.CaptureItem{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Title:       title(body),
		Body:        body,
		RecordType:  models.RecordTypeCapture,
		Status:      models.StatusInbox,
		Actor:       actor,
		Environment: environment,
		Module:      module,
		SourceURL:   sourceURL,
		CapturedAt:  now.UTC(),
	}, true
}

// title is the first line of body, cut to TitleMaxLength runes.
func title(body string) string {
	line, _, _ := strings.Cut(body, "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > models.TitleMaxLength {
		line = strings.TrimSpace(string(r[:models.TitleMaxLength]))
	}
	if line == "" {
		return models.DefaultTitle
	}
	return line
}
