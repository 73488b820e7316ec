package slotstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.avkf")
	ctx := context.Background()

	store, err := OpenFile(path, 8, 4)
	require.NoError(t, err)

	// 1. Fresh file has no slots
	_, err = store.Get(ctx, 0)
	require.ErrorIs(t, err, ErrNotFound)

	// 2. Put, read back, overwrite
	page := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, store.Put(ctx, 0, page))

	got, err := store.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, page, got)

	page[0] = 42
	require.NoError(t, store.Put(ctx, 0, page))
	got, err = store.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, byte(42), got[0])

	// 3. Sync then close
	require.NoError(t, store.Put(ctx, 3, make([]byte, 8)))
	require.NoError(t, store.Sync())
	require.NoError(t, store.Close())

	// 4. Reopen and verify persistence
	store, err = OpenFile(path, 8, 4)
	require.NoError(t, err)
	defer store.Close()

	got, err = store.Get(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, byte(42), got[0])

	got, err = store.Get(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 8), got)

	// Unwritten keys stay missing across reopen.
	_, err = store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFile_HeaderMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.avkf")

	store, err := OpenFile(path, 8, 4)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening with a different slot size must fail, not corrupt.
	_, err = OpenFile(path, 16, 4)
	require.ErrorIs(t, err, ErrBadSlotFile)
}

func TestFile_QuotaAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.avkf")
	ctx := context.Background()

	store, err := OpenFile(path, 2, 2)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, 10, []byte{1, 1}))
	require.NoError(t, store.Put(ctx, 20, []byte{2, 2}))

	var quotaErr *QuotaError
	err = store.Put(ctx, 30, []byte{3, 3})
	require.ErrorAs(t, err, &quotaErr)

	// Overwrites never count against the quota.
	require.NoError(t, store.Put(ctx, 10, []byte{9, 9}))

	// Delete frees a slot and zeroes it on disk.
	require.NoError(t, store.Delete(ctx, 10))
	_, err = store.Get(ctx, 10)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, 30, []byte{3, 3}))
}

func TestFile_SlotSizeEnforced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.avkf")
	ctx := context.Background()

	store, err := OpenFile(path, 4, 4)
	require.NoError(t, err)
	defer store.Close()

	var sizeErr *SlotSizeError
	err = store.Put(ctx, 0, []byte{1})
	require.ErrorAs(t, err, &sizeErr)
	require.Equal(t, 4, sizeErr.Want)
}
