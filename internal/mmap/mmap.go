// Package mmap provides read-write shared file mappings for the slot file
// store.
//
// Only what the framework needs is implemented: map a whole file
// read-write, flush it, unmap it. On platforms without mmap support Map
// returns ErrUnsupported and callers fall back to plain file I/O.
package mmap

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrUnsupported is returned by Map on platforms without mmap support.
	ErrUnsupported = errors.New("mmap: not supported on this platform")
	// ErrInvalidSize is returned when the requested mapping size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// Mapping is a read-write shared mapping of a file.
// Writes through Bytes() land in the page cache; Flush forces them to disk.
type Mapping struct {
	data   []byte
	closed atomic.Bool

	flush func([]byte) error
	unmap func([]byte) error
}

// Bytes returns the mapped region. The slice is valid until Close; writing
// to it writes to the file.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Flush synchronously writes any modified pages back to the file.
func (m *Mapping) Flush() error {
	if m.closed.Load() || m.flush == nil {
		return nil
	}
	return m.flush(m.data)
}

// Close unmaps the region. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}
