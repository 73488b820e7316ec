package slotstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_Lifecycle(t *testing.T) {
	store := NewMemory(8, 4)
	ctx := context.Background()

	// 1. Missing slots report ErrNotFound
	_, err := store.Get(ctx, 0)
	require.ErrorIs(t, err, ErrNotFound)

	// 2. Put and read back
	page := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	err = store.Put(ctx, 0, page)
	require.NoError(t, err)

	got, err := store.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, page, got)
	require.Equal(t, 1, store.Len())

	// 3. Overwrite in place
	page2 := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	err = store.Put(ctx, 0, page2)
	require.NoError(t, err)

	got, err = store.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, page2, got)
	require.Equal(t, 1, store.Len())

	// 4. Delete frees the slot
	err = store.Delete(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())

	_, err = store.Get(ctx, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CopySemantics(t *testing.T) {
	store := NewMemory(4, 2)
	ctx := context.Background()

	original := []byte{1, 2, 3, 4}
	require.NoError(t, store.Put(ctx, 7, original))

	// Mutating the caller's slice after Put must not leak into the store.
	original[0] = 99
	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)

	// Mutating a returned slice must not leak back either.
	got[1] = 99
	again, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, again)
}

func TestMemory_SlotSizeEnforced(t *testing.T) {
	store := NewMemory(4, 2)
	ctx := context.Background()

	err := store.Put(ctx, 0, []byte{1, 2, 3})
	require.Error(t, err)

	var sizeErr *SlotSizeError
	require.ErrorAs(t, err, &sizeErr)
	require.Equal(t, byte(0), sizeErr.Key)
	require.Equal(t, 3, sizeErr.Got)
	require.Equal(t, 4, sizeErr.Want)
}

func TestMemory_QuotaEnforced(t *testing.T) {
	store := NewMemory(2, 2)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 0, []byte{0, 0}))
	require.NoError(t, store.Put(ctx, 1, []byte{1, 1}))

	// A third distinct key exceeds the quota.
	err := store.Put(ctx, 2, []byte{2, 2})
	var quotaErr *QuotaError
	require.ErrorAs(t, err, &quotaErr)
	require.Equal(t, byte(2), quotaErr.Key)
	require.Equal(t, 2, quotaErr.MaxSlots)

	// Overwriting an existing key is still allowed at the quota.
	require.NoError(t, store.Put(ctx, 1, []byte{3, 3}))

	// Deleting makes room again.
	require.NoError(t, store.Delete(ctx, 0))
	require.NoError(t, store.Put(ctx, 2, []byte{2, 2}))
}
