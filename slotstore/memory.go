package slotstore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store enforcing the host's slot-count and
// slot-size limits. Thread-safe for concurrent readers and writers.
type Memory struct {
	mu       sync.RWMutex
	slots    map[byte][]byte
	slotSize int
	maxSlots int
}

// NewMemory creates an empty in-memory store holding at most maxSlots
// slots of exactly slotSize bytes each.
func NewMemory(slotSize, maxSlots int) *Memory {
	return &Memory{
		slots:    make(map[byte][]byte, maxSlots),
		slotSize: slotSize,
		maxSlots: maxSlots,
	}
}

// Get returns a copy of the slot value, or ErrNotFound if the slot has
// never been written.
func (m *Memory) Get(_ context.Context, key byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.slots[key]
	if !ok {
		return nil, ErrNotFound
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Put writes a slot. It fails with a SlotSizeError when the value length
// does not match the configured slot size, and with a QuotaError when the
// key is new and the store already holds its maximum number of slots.
func (m *Memory) Put(_ context.Context, key byte, value []byte) error {
	if len(value) != m.slotSize {
		return &SlotSizeError{Key: key, Got: len(value), Want: m.slotSize}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.slots[key]; !exists && len(m.slots) >= m.maxSlots {
		return &QuotaError{Key: key, MaxSlots: m.maxSlots}
	}

	copied := make([]byte, len(value))
	copy(copied, value)
	m.slots[key] = copied
	return nil
}

// Delete removes a slot. Deleting a missing slot is a no-op.
func (m *Memory) Delete(_ context.Context, key byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.slots, key)
	return nil
}

// Len returns the number of slots currently written.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.slots)
}

// SlotSize returns the fixed value length this store enforces.
func (m *Memory) SlotSize() int { return m.slotSize }

// MaxSlots returns the slot quota this store enforces.
func (m *Memory) MaxSlots() int { return m.maxSlots }
