package slotstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when a slot has never been written.
	//
	// A missing slot is a legitimate state before a storage region has been
	// zero-initialized. Implementations must return an error satisfying
	// errors.Is(err, ErrNotFound) rather than fabricating an empty value, so
	// that callers can distinguish "never written" from "written empty".
	ErrNotFound = errors.New("slot not found")

	// ErrDeleteUnsupported is returned when a delete is requested against a
	// store that does not implement Deleter.
	ErrDeleteUnsupported = errors.New("store does not support delete")
)

// Store is one owning entity's view of the host's fixed-capacity slot
// storage: a small set of byte-keyed slots, each holding a single value of
// a fixed byte length.
//
// Get returns a copy that the caller may retain and modify. Put must
// complete the write before returning and must not retain value.
type Store interface {
	Get(ctx context.Context, key byte) ([]byte, error)
	Put(ctx context.Context, key byte, value []byte) error
}

// Deleter is an optional interface for stores that can remove a slot
// entirely, returning it to the never-written state.
type Deleter interface {
	Delete(ctx context.Context, key byte) error
}

// SlotSizeError reports a Put whose value length does not match the store's
// fixed slot size.
type SlotSizeError struct {
	Key  byte
	Got  int
	Want int
}

func (e *SlotSizeError) Error() string {
	return fmt.Sprintf("slot 0x%02x: value is %d bytes, store holds %d-byte slots", e.Key, e.Got, e.Want)
}

// QuotaError reports a Put to a previously unused key on a store whose slot
// quota is already exhausted.
type QuotaError struct {
	Key      byte
	MaxSlots int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("slot 0x%02x: quota of %d slots exhausted", e.Key, e.MaxSlots)
}
