package activity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ListOptions filters and pages a user's entries.
type ListOptions struct {
	Types  []ActivityType
	Limit  int
	Offset int
}

// Observer receives failures the service swallows. op names the operation
// ("append", "load", "clear").
type Observer func(op string, err error)

// Option configures a Service.
type Option func(*Service)

// WithSlotKey sets the storage slot holding the log.
func WithSlotKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.slotKey = key
		}
	}
}

// WithMaxEntries sets the retention cap.
func WithMaxEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithRecentLimit sets how many raw entries a Summary carries.
func WithRecentLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithMaxWriteRetries bounds how often a conflicting write is retried.
func WithMaxWriteRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides entry ID generation.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithObserver registers a hook for swallowed storage failures.
func WithObserver(obs Observer) Option {
	return func(s *Service) {
		s.observer = obs
	}
}

// NewEntryID returns "<unix millis>-<9 random chars>".
func NewEntryID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
