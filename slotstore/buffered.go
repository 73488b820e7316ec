package slotstore

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Buffered is a write-coalescing decorator. Puts are staged in memory and
// the set of dirty keys is tracked in a bitmap; Flush writes each dirty
// slot to the wrapped store exactly once, in ascending key order.
//
// A single range write already touches each page at most once, but call
// sequences that revisit pages — byte-at-a-time mutation, several
// overlapping writes within one invocation — pay one slot Put per touched
// page instead of one per call. Gets read through staged values first, so
// a Buffered store is always self-consistent.
//
// Thread-safe. Flush and Discard define the batch boundary; the caller
// decides where that boundary sits (typically one host invocation).
type Buffered struct {
	inner Store

	mu     sync.Mutex
	staged map[byte][]byte
	dirty  *roaring.Bitmap
}

// NewBuffered wraps inner with write coalescing.
func NewBuffered(inner Store) *Buffered {
	return &Buffered{
		inner:  inner,
		staged: make(map[byte][]byte),
		dirty:  roaring.New(),
	}
}

// Get returns the staged value when the slot is dirty, otherwise reads
// through to the wrapped store.
func (b *Buffered) Get(ctx context.Context, key byte) ([]byte, error) {
	b.mu.Lock()
	if value, ok := b.staged[key]; ok {
		copied := make([]byte, len(value))
		copy(copied, value)
		b.mu.Unlock()
		return copied, nil
	}
	b.mu.Unlock()

	return b.inner.Get(ctx, key)
}

// Put stages the value without touching the wrapped store.
func (b *Buffered) Put(_ context.Context, key byte, value []byte) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	b.mu.Lock()
	b.staged[key] = copied
	b.dirty.Add(uint32(key))
	b.mu.Unlock()
	return nil
}

// Flush writes every staged slot to the wrapped store in ascending key
// order. Slots written successfully are unstaged as they go; on error the
// failing slot and any not yet flushed remain staged, so a caller may
// retry Flush or Discard the batch.
func (b *Buffered) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range b.dirty.ToArray() {
		key := byte(k)
		if err := b.inner.Put(ctx, key, b.staged[key]); err != nil {
			return err
		}
		delete(b.staged, key)
		b.dirty.Remove(k)
	}
	return nil
}

// Discard drops all staged writes without flushing them.
func (b *Buffered) Discard() {
	b.mu.Lock()
	b.staged = make(map[byte][]byte)
	b.dirty.Clear()
	b.mu.Unlock()
}

// Dirty returns the number of slots staged and not yet flushed.
func (b *Buffered) Dirty() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return int(b.dirty.GetCardinality())
}
