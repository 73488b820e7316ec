package blob

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is matched (via errors.Is) by every RangeError. It is
	// reported before any slot-store I/O is issued.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidConfig is returned by New for configurations that can never
	// address a page correctly, such as a zero page size or duplicate keys.
	ErrInvalidConfig = errors.New("invalid blob config")
)

// RangeError reports an offset or byte range that falls outside the blob's
// logical capacity, or a range whose start lies after its end.
//
// errors.Is(err, ErrOutOfRange) returns true for every RangeError.
type RangeError struct {
	Op       string // "read", "write", "get byte", "set byte"
	Start    uint64
	End      uint64 // exclusive; Start+1 for single-byte ops
	Capacity uint64
}

func (e *RangeError) Error() string {
	if e.Start > e.End {
		return fmt.Sprintf("%s: start %d after end %d", e.Op, e.Start, e.End)
	}
	return fmt.Sprintf("%s: range [%d, %d) outside capacity %d", e.Op, e.Start, e.End, e.Capacity)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// KeyCountError reports a key space whose length disagrees with the
// configured number of keys.
type KeyCountError struct {
	Got  int
	Want int
}

func (e *KeyCountError) Error() string {
	return fmt.Sprintf("key space holds %d keys, config wants %d", e.Got, e.Want)
}

// PageSizeError reports a slot store that returned a page of the wrong
// length, which indicates a store misconfiguration rather than caller error.
type PageSizeError struct {
	Page uint32
	Got  int
	Want uint32
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("page %d: store returned %d bytes, want %d", e.Page, e.Got, e.Want)
}
