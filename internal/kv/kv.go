package kv

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict is returned when a slot was written by someone else
	// between the caller's read and its write.
	ErrVersionConflict = errors.New("slot version conflict")

	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("slot store closed")
)

// Slot is the persisted blob under one key together with its write version.
// Version 0 means the key holds nothing.
type Slot struct {
	Data    []byte
	Version int64
}

// Empty reports whether the slot holds no data.
func (s Slot) Empty() bool {
	return s.Version == 0 || len(s.Data) == 0
}

// SlotStore provides versioned single-key blob storage. A key's version only
// ever grows, so a writer holding an old version can never win.
type SlotStore interface {
	// Get returns the slot for key. A missing key yields Slot{} and no error.
	Get(ctx context.Context, key string) (Slot, error)
	// Put writes data when the stored version still equals expectedVersion
	// and returns the new version. Otherwise it returns ErrVersionConflict.
	Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
	Close() error
}
