package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/tally/internal/kv"
)

// Service is the activity log store. It keeps every user's entries in one
// JSON array under a single slot, newest first, and never fails its caller:
// storage problems are logged, passed to the observer and turned into empty
// results or dropped writes.
type Service struct {
	store       kv.SlotStore
	logger      *slog.Logger
	observer    Observer
	slotKey     string
	maxEntries  int
	recentLimit int
	maxRetries  int
	now         func() time.Time
	newID       func(time.Time) string
}

// NewService creates an activity service over store.
func NewService(store kv.SlotStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:       store,
		logger:      logger,
		slotKey:     DefaultSlotKey,
		maxEntries:  MaxActivities,
		recentLimit: RecentLimit,
		maxRetries:  3,
		now:         time.Now,
		newID:       NewEntryID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records an action for userID at the front of the log and trims the
// log to the retention cap. It reports false when the entry was dropped.
func (s *Service) Append(ctx context.Context, userID string, activityType ActivityType, data ActivityData) (ActivityEntry, bool) {
	if strings.TrimSpace(userID) == "" {
		s.report("append", fmt.Errorf("%w: user id is required", ErrInvalidInput))
		return ActivityEntry{}, false
	}
	if !activityType.Valid() {
		s.report("append", fmt.Errorf("%w: %q", ErrUnknownType, activityType))
		return ActivityEntry{}, false
	}

	corruptReported := false
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		entries, version, err := s.load(ctx)
		if err != nil {
			if !errors.Is(err, ErrCorruptLog) {
				s.report("append", err)
				return ActivityEntry{}, false
			}
			// A corrupt blob is overwritten; report it once per append.
			if !corruptReported {
				s.report("append", err)
				corruptReported = true
			}
			entries = nil
		}

		now := s.now()
		entry := ActivityEntry{
			ID:        s.newID(now),
			UserID:    userID,
			Type:      activityType,
			Timestamp: now.UnixMilli(),
			Seq:       nextSeq(entries),
			Data:      data,
		}

		next := make([]ActivityEntry, 0, min(len(entries)+1, s.maxEntries))
		next = append(next, entry)
		next = append(next, entries...)
		if len(next) > s.maxEntries {
			next = next[:s.maxEntries]
		}

		err = s.save(ctx, next, version)
		if errors.Is(err, kv.ErrVersionConflict) {
			s.logger.Debug("activity slot changed during append, retrying", "slot", s.slotKey, "attempt", attempt+1)
			continue
		}
		if err != nil {
			s.report("append", err)
			return ActivityEntry{}, false
		}
		return entry, true
	}

	s.report("append", fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, s.maxRetries+1))
	return ActivityEntry{}, false
}

// GetAllForUser returns userID's entries, newest first. Unreadable storage
// yields an empty list.
func (s *Service) GetAllForUser(ctx context.Context, userID string) []ActivityEntry {
	entries, _, err := s.load(ctx)
	if err != nil {
		s.report("load", err)
		return []ActivityEntry{}
	}
	return filterUser(entries, userID)
}

// List returns a filtered, paged view of userID's entries.
func (s *Service) List(ctx context.Context, userID string, opts ListOptions) []ActivityEntry {
	entries := s.GetAllForUser(ctx, userID)
	if len(opts.Types) > 0 {
		filtered := entries[:0]
		for _, entry := range entries {
			for _, t := range opts.Types {
				if entry.Type == t {
					filtered = append(filtered, entry)
					break
				}
			}
		}
		entries = filtered
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []ActivityEntry{}
		}
		entries = entries[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}
	return entries
}

// Summary replays userID's log into an engagement summary.
func (s *Service) Summary(ctx context.Context, userID string) Summary {
	return Replay(s.GetAllForUser(ctx, userID), s.recentLimit)
}

// ClearForUser deletes every entry owned by userID and returns how many were
// removed. Other users' entries are kept.
func (s *Service) ClearForUser(ctx context.Context, userID string) int {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		entries, version, err := s.load(ctx)
		if err != nil {
			s.report("clear", err)
			return 0
		}
		if len(entries) == 0 {
			return 0
		}

		kept := make([]ActivityEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.UserID != userID {
				kept = append(kept, entry)
			}
		}
		removed := len(entries) - len(kept)
		if removed == 0 {
			return 0
		}

		err = s.save(ctx, kept, version)
		if errors.Is(err, kv.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.report("clear", err)
			return 0
		}
		s.logger.Info("cleared user activity", "user_id", userID, "removed", removed)
		return removed
	}

	s.report("clear", fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, s.maxRetries+1))
	return 0
}

// ExportForUser renders userID's entries as indented JSON.
func (s *Service) ExportForUser(ctx context.Context, userID string) string {
	data, err := json.MarshalIndent(s.GetAllForUser(ctx, userID), "", "  ")
	if err != nil {
		s.report("export", err)
		return "[]"
	}
	return string(data)
}

// Stats describes the stored log across all users.
func (s *Service) Stats(ctx context.Context) LogStats {
	stats, err := s.ReadStats(ctx)
	if err != nil {
		s.report("load", err)
	}
	return stats
}

// ReadStats is Stats for background readers such as metric scrapes. It
// returns the read error instead of logging it or notifying the observer.
// On error the counts are zero.
func (s *Service) ReadStats(ctx context.Context) (LogStats, error) {
	stats := LogStats{MaxEntries: s.maxEntries}
	entries, _, err := s.load(ctx)
	if err != nil {
		return stats, err
	}
	users := make(map[string]struct{})
	for _, entry := range entries {
		users[entry.UserID] = struct{}{}
	}
	stats.Entries = len(entries)
	stats.Users = len(users)
	return stats, nil
}

func (s *Service) load(ctx context.Context) ([]ActivityEntry, int64, error) {
	slot, err := s.store.Get(ctx, s.slotKey)
	if err != nil {
		return nil, 0, fmt.Errorf("read slot %q: %w", s.slotKey, err)
	}
	if slot.Empty() {
		return nil, slot.Version, nil
	}
	var entries []ActivityEntry
	if err := json.Unmarshal(slot.Data, &entries); err != nil {
		return nil, slot.Version, fmt.Errorf("%w: %w", ErrCorruptLog, err)
	}
	return entries, slot.Version, nil
}

func (s *Service) save(ctx context.Context, entries []ActivityEntry, expectedVersion int64) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode activity log: %w", err)
	}
	if _, err := s.store.Put(ctx, s.slotKey, data, expectedVersion); err != nil {
		if errors.Is(err, kv.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("write slot %q: %w", s.slotKey, err)
	}
	return nil
}

func (s *Service) report(op string, err error) {
	s.logger.Warn("activity log operation failed", "op", op, "slot", s.slotKey, "error", err)
	if s.observer != nil {
		s.observer(op, err)
	}
}

func filterUser(entries []ActivityEntry, userID string) []ActivityEntry {
	out := make([]ActivityEntry, 0)
	for _, entry := range entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out
}

func nextSeq(entries []ActivityEntry) int64 {
	var highest int64
	for _, entry := range entries {
		if entry.Seq > highest {
			highest = entry.Seq
		}
	}
	return highest + 1
}
