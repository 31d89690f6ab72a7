package memory

import (
	"context"
	"sync"

	"github.com/rpggio/tally/internal/kv"
)

// Store is an in-memory kv.SlotStore. Closing it drops every slot.
type Store struct {
	mu     sync.Mutex
	slots  map[string]kv.Slot
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{slots: make(map[string]kv.Slot)}
}

func (s *Store) Get(_ context.Context, key string) (kv.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kv.Slot{}, kv.ErrClosed
	}
	slot, ok := s.slots[key]
	if !ok {
		return kv.Slot{}, nil
	}
	data := make([]byte, len(slot.Data))
	copy(data, slot.Data)
	return kv.Slot{Data: data, Version: slot.Version}, nil
}

func (s *Store) Put(_ context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, kv.ErrClosed
	}
	current := s.slots[key]
	if current.Version != expectedVersion {
		return 0, kv.ErrVersionConflict
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	next := current.Version + 1
	s.slots[key] = kv.Slot{Data: stored, Version: next}
	return next, nil
}

// Close releases all slots. Further calls fail with kv.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = nil
	s.closed = true
	return nil
}
