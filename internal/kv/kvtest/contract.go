// Package kvtest holds behaviour tests shared by every kv.SlotStore backend.
package kvtest

import (
	"context"
	"testing"

	"github.com/rpggio/tally/internal/kv"
	"github.com/stretchr/testify/require"
)

// RunContract exercises the kv.SlotStore contract against stores built by
// newStore. Each subtest gets a fresh store.
func RunContract(t *testing.T, newStore func(t *testing.T) kv.SlotStore) {
	t.Helper()

	t.Run("missing key is empty", func(t *testing.T) {
		store := newStore(t)
		slot, err := store.Get(context.Background(), "missing")
		require.NoError(t, err)
		require.True(t, slot.Empty())
		require.Equal(t, int64(0), slot.Version)
	})

	t.Run("put then get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		version, err := store.Put(ctx, "k", []byte(`[1]`), 0)
		require.NoError(t, err)
		require.Equal(t, int64(1), version)

		slot, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte(`[1]`), slot.Data)
		require.Equal(t, int64(1), slot.Version)

		version, err = store.Put(ctx, "k", []byte(`[2]`), 1)
		require.NoError(t, err)
		require.Equal(t, int64(2), version)

		slot, err = store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte(`[2]`), slot.Data)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, "k", []byte(`a`), 0)
		require.NoError(t, err)

		_, err = store.Put(ctx, "k", []byte(`b`), 0)
		require.ErrorIs(t, err, kv.ErrVersionConflict)

		_, err = store.Put(ctx, "k", []byte(`b`), 5)
		require.ErrorIs(t, err, kv.ErrVersionConflict)

		slot, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte(`a`), slot.Data)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, "a", []byte(`A`), 0)
		require.NoError(t, err)
		_, err = store.Put(ctx, "b", []byte(`B`), 0)
		require.NoError(t, err)

		slot, err := store.Get(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, []byte(`A`), slot.Data)
	})

	t.Run("stale writer loses after later writes", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, "k", []byte(`v1`), 0)
		require.NoError(t, err)
		stale, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, int64(1), stale.Version)

		_, err = store.Put(ctx, "k", []byte(`v2`), 1)
		require.NoError(t, err)
		version, err := store.Put(ctx, "k", []byte(`v3`), 2)
		require.NoError(t, err)
		require.Equal(t, int64(3), version)

		_, err = store.Put(ctx, "k", []byte(`late`), stale.Version)
		require.ErrorIs(t, err, kv.ErrVersionConflict)
		_, err = store.Put(ctx, "k", []byte(`late`), 0)
		require.ErrorIs(t, err, kv.ErrVersionConflict)

		slot, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte(`v3`), slot.Data)
		require.Equal(t, int64(3), slot.Version)
	})
}
