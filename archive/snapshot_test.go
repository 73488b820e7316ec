package archive

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/slotstore"
)

func TestCapture_SparseSkipsZeroAndMissing(t *testing.T) {
	ctx := context.Background()
	store := slotstore.NewMemory(8, 4)

	// Page 0 stays missing, page 1 holds data, page 2 is written all-zero,
	// page 3 stays missing.
	require.NoError(t, store.Put(ctx, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, store.Put(ctx, 2, make([]byte, 8)))

	snap, err := Capture(ctx, store, blob.Config{PageSize: 8, MaxKeys: 4}, "OWNER")
	require.NoError(t, err)

	assert.Equal(t, "OWNER", snap.Owner)
	assert.Equal(t, uint32(8), snap.PageSize)
	assert.Equal(t, []byte{0, 1, 2, 3}, snap.Keys)
	require.Len(t, snap.Pages, 1)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, snap.Pages[1])
}

func TestCapture_Validation(t *testing.T) {
	ctx := context.Background()
	store := slotstore.NewMemory(8, 4)

	tests := []struct {
		name string
		cfg  blob.Config
	}{
		{name: "zero page size", cfg: blob.Config{PageSize: 0, MaxKeys: 4}},
		{name: "zero max keys", cfg: blob.Config{PageSize: 8, MaxKeys: 0}},
		{name: "too many keys", cfg: blob.Config{PageSize: 8, MaxKeys: 257}},
		{name: "key count mismatch", cfg: blob.Config{PageSize: 8, MaxKeys: 4, Keys: []byte{9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Capture(ctx, store, tt.cfg, "OWNER")
			assert.ErrorIs(t, err, ErrBadSnapshot)
		})
	}
}

func TestCapture_PageSizeMismatch(t *testing.T) {
	ctx := context.Background()
	store := slotstore.NewMemory(3, 4)
	require.NoError(t, store.Put(ctx, 0, []byte{1, 2, 3}))

	_, err := Capture(ctx, store, blob.Config{PageSize: 8, MaxKeys: 4}, "OWNER")

	var sizeErr *blob.PageSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, uint32(0), sizeErr.Page)
	assert.Equal(t, 3, sizeErr.Got)
}

func TestCapture_CustomKeys(t *testing.T) {
	ctx := context.Background()
	store := slotstore.NewMemory(4, 16)
	require.NoError(t, store.Put(ctx, 9, []byte{0xAA, 0xBB, 0xCC, 0xDD}))

	cfg := blob.Config{PageSize: 4, MaxKeys: 3, Keys: []byte{7, 9, 11}}
	snap, err := Capture(ctx, store, cfg, "OWNER")
	require.NoError(t, err)

	assert.Equal(t, []byte{7, 9, 11}, snap.Keys)
	require.Len(t, snap.Pages, 1)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, snap.Pages[1], "page index follows key order, not key value")
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	src := slotstore.NewMemory(blob.DefaultPageSize, int(blob.LocalMaxKeys))
	b, err := blob.New(src)
	require.NoError(t, err)
	require.NoError(t, b.Zero(ctx))

	payload := bytes.Repeat([]byte("avm"), 100)
	require.NoError(t, b.Write(ctx, 100, payload))

	snap, err := Capture(ctx, src, b.Config(), "OWNER")
	require.NoError(t, err)

	// The destination starts out dirty to prove Restore overwrites
	// everything, including pages the snapshot does not carry.
	dst := slotstore.NewMemory(blob.DefaultPageSize, int(blob.LocalMaxKeys))
	junk := bytes.Repeat([]byte{0xFF}, blob.DefaultPageSize)
	for k := 0; k < int(blob.LocalMaxKeys); k++ {
		require.NoError(t, dst.Put(ctx, byte(k), junk))
	}

	require.NoError(t, snap.Restore(ctx, dst))

	restored, err := blob.New(dst)
	require.NoError(t, err)

	got, err := restored.Read(ctx, 0, restored.Capacity())
	require.NoError(t, err)
	want, err := b.Read(ctx, 0, b.Capacity())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestore_Validation(t *testing.T) {
	ctx := context.Background()
	store := slotstore.NewMemory(8, 4)

	snap := &Snapshot{
		Owner:    "OWNER",
		PageSize: 8,
		Keys:     []byte{0, 1, 2, 3},
		Pages:    map[uint32][]byte{1: {1, 2, 3}}, // wrong length
	}
	assert.ErrorIs(t, snap.Restore(ctx, store), ErrBadSnapshot)

	snap = &Snapshot{
		Owner:    "OWNER",
		PageSize: 8,
		Keys:     []byte{0, 1},
		Pages:    map[uint32][]byte{5: make([]byte, 8)}, // index outside key space
	}
	assert.ErrorIs(t, snap.Restore(ctx, store), ErrBadSnapshot)
}

func TestRestore_AbortsOnPutFailure(t *testing.T) {
	ctx := context.Background()

	// Slot size 4 in a store that enforces 8 makes every put fail.
	store := slotstore.NewMemory(8, 4)
	snap := &Snapshot{
		Owner:    "OWNER",
		PageSize: 4,
		Keys:     []byte{0, 1},
		Pages:    map[uint32][]byte{0: {1, 2, 3, 4}},
	}

	err := snap.Restore(ctx, store)
	var sizeErr *slotstore.SlotSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 0, store.Len())
}

func TestSnapshot_Config(t *testing.T) {
	snap := &Snapshot{
		Owner:    "OWNER",
		PageSize: 16,
		Keys:     []byte{3, 1, 2},
		Pages:    map[uint32][]byte{},
	}

	cfg := snap.Config()
	assert.Equal(t, uint32(16), cfg.PageSize)
	assert.Equal(t, uint32(3), cfg.MaxKeys)
	assert.Equal(t, []byte{3, 1, 2}, cfg.Keys)

	cfg.Keys[0] = 99
	assert.Equal(t, byte(3), snap.Keys[0], "Config must hand out a copy")
}
