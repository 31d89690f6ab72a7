package mocks

import (
	"context"

	"github.com/rpggio/tally/internal/kv"
	"github.com/stretchr/testify/mock"
)

// SlotStore is a mock for kv.SlotStore.
type SlotStore struct {
	mock.Mock
}

func (m *SlotStore) Get(ctx context.Context, key string) (kv.Slot, error) {
	args := m.Called(ctx, key)
	if slot, ok := args.Get(0).(kv.Slot); ok {
		return slot, args.Error(1)
	}
	return kv.Slot{}, args.Error(1)
}

func (m *SlotStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, key, data, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SlotStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
