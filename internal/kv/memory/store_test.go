package memory

import (
	"context"
	"testing"

	"github.com/rpggio/tally/internal/kv"
	"github.com/rpggio/tally/internal/kv/kvtest"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	kvtest.RunContract(t, func(t *testing.T) kv.SlotStore {
		store := New()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestStore_CloseDropsSlots(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Put(ctx, "k", []byte(`x`), 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, kv.ErrClosed)
	_, err = store.Put(ctx, "k", []byte(`y`), 0)
	require.ErrorIs(t, err, kv.ErrClosed)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Put(ctx, "k", []byte(`abc`), 0)
	require.NoError(t, err)

	slot, err := store.Get(ctx, "k")
	require.NoError(t, err)
	slot.Data[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte(`abc`), again.Data)
}
