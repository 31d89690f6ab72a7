package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/tally/internal/kv"
)

// SlotStore implements kv.SlotStore for SQLite
type SlotStore struct {
	db *DB
}

// NewSlotStore creates a new SlotStore. The store owns db and closes it.
func NewSlotStore(db *DB) *SlotStore {
	return &SlotStore{db: db}
}

// Get returns the slot stored under key
func (s *SlotStore) Get(ctx context.Context, key string) (kv.Slot, error) {
	var slot kv.Slot
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM kv_slots WHERE key = ?`, key,
	).Scan(&slot.Data, &slot.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Slot{}, nil
	}
	if err != nil {
		return kv.Slot{}, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

// Put writes data if the slot is still at expectedVersion
func (s *SlotStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := time.Now().UTC()

	var (
		result sql.Result
		err    error
	)
	if expectedVersion == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO kv_slots (key, value, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, data, now)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE kv_slots
			SET value = ?, version = version + 1, updated_at = ?
			WHERE key = ? AND version = ?
		`, data, now, key, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to put slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check put result: %w", err)
	}
	if rows == 0 {
		return 0, kv.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

// Close closes the underlying database
func (s *SlotStore) Close() error {
	return s.db.Close()
}
