package slotstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"sync"

	"github.com/hupe1980/avmkit/internal/mmap"
)

// File store layout. Slots are indexed by key value so no key directory is
// needed; the quota applies to how many of the 256 addressable slots are
// present at once.
//
//	[0:4]    magic "AVKF"
//	[4:8]    format version
//	[8:12]   slot size
//	[12:16]  slot quota
//	[16:48]  presence bitmap, bit k set when key k holds a value
//	[48:]    256 fixed-size slot payloads
const (
	fileMagic   = 0x41564b46 // "AVKF"
	fileVersion = 1

	fileHeaderSize   = 16
	filePresenceSize = 32
	fileDataOffset   = fileHeaderSize + filePresenceSize
	fileKeySpan      = 256
)

// ErrBadSlotFile is returned when opening a file whose header does not
// match the expected format or the configured limits.
var ErrBadSlotFile = errors.New("slot file: bad header")

// File is a persistent Store for a single owning entity, backed by one
// preallocated file. The file is memory-mapped read-write where the
// platform supports it; otherwise plain positional I/O is used.
//
// Writes become durable at the latest on Sync or Close.
type File struct {
	mu       sync.Mutex
	f        *os.File
	m        *mmap.Mapping // nil when mmap is unsupported
	presence [filePresenceSize]byte
	slotSize int
	maxSlots int
	closed   bool
}

// OpenFile opens or creates a slot file at path holding at most maxSlots
// slots of exactly slotSize bytes. Opening an existing file whose recorded
// slot size or quota differs fails with ErrBadSlotFile.
func OpenFile(path string, slotSize, maxSlots int) (*File, error) {
	if slotSize <= 0 || maxSlots <= 0 || maxSlots > fileKeySpan {
		return nil, fmt.Errorf("slot file: invalid limits (slot size %d, quota %d)", slotSize, maxSlots)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := int64(fileDataOffset + fileKeySpan*slotSize)
	fresh := fi.Size() == 0

	if fresh {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
		var header [fileHeaderSize]byte
		binary.LittleEndian.PutUint32(header[0:4], fileMagic)
		binary.LittleEndian.PutUint32(header[4:8], fileVersion)
		binary.LittleEndian.PutUint32(header[8:12], uint32(slotSize))
		binary.LittleEndian.PutUint32(header[12:16], uint32(maxSlots))
		if _, err := f.WriteAt(header[:], 0); err != nil {
			f.Close()
			return nil, err
		}
	} else if fi.Size() != size {
		f.Close()
		return nil, fmt.Errorf("%w: file is %d bytes, want %d", ErrBadSlotFile, fi.Size(), size)
	}

	s := &File{f: f, slotSize: slotSize, maxSlots: maxSlots}

	m, err := mmap.Map(f, int(size))
	switch {
	case err == nil:
		s.m = m
	case errors.Is(err, mmap.ErrUnsupported):
		// Plain file I/O fallback.
	default:
		f.Close()
		return nil, err
	}

	if !fresh {
		if err := s.validateHeader(); err != nil {
			s.Close()
			return nil, err
		}
	}
	if err := s.loadPresence(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *File) validateHeader() error {
	var header [fileHeaderSize]byte
	if err := s.readAt(header[:], 0); err != nil {
		return err
	}
	if binary.LittleEndian.Uint32(header[0:4]) != fileMagic {
		return fmt.Errorf("%w: bad magic", ErrBadSlotFile)
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != fileVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadSlotFile, v)
	}
	if n := binary.LittleEndian.Uint32(header[8:12]); int(n) != s.slotSize {
		return fmt.Errorf("%w: file has %d-byte slots, want %d", ErrBadSlotFile, n, s.slotSize)
	}
	if n := binary.LittleEndian.Uint32(header[12:16]); int(n) != s.maxSlots {
		return fmt.Errorf("%w: file has quota %d, want %d", ErrBadSlotFile, n, s.maxSlots)
	}
	return nil
}

func (s *File) loadPresence() error {
	return s.readAt(s.presence[:], fileHeaderSize)
}

func (s *File) readAt(p []byte, off int64) error {
	if s.m != nil {
		copy(p, s.m.Bytes()[off:])
		return nil
	}
	_, err := s.f.ReadAt(p, off)
	return err
}

func (s *File) writeAt(p []byte, off int64) error {
	if s.m != nil {
		copy(s.m.Bytes()[off:], p)
		return nil
	}
	_, err := s.f.WriteAt(p, off)
	return err
}

func (s *File) slotOffset(key byte) int64 {
	return fileDataOffset + int64(key)*int64(s.slotSize)
}

func (s *File) present(key byte) bool {
	return s.presence[key/8]&(1<<(key%8)) != 0
}

func (s *File) presentCount() int {
	n := 0
	for _, b := range s.presence {
		n += bits.OnesCount8(b)
	}
	return n
}

func (s *File) setPresent(key byte, on bool) error {
	if on {
		s.presence[key/8] |= 1 << (key % 8)
	} else {
		s.presence[key/8] &^= 1 << (key % 8)
	}
	return s.writeAt(s.presence[key/8:key/8+1], fileHeaderSize+int64(key/8))
}

// Get returns a copy of the slot value, or ErrNotFound if the slot has
// never been written.
func (s *File) Get(_ context.Context, key byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, os.ErrClosed
	}
	if !s.present(key) {
		return nil, ErrNotFound
	}

	value := make([]byte, s.slotSize)
	if err := s.readAt(value, s.slotOffset(key)); err != nil {
		return nil, err
	}
	return value, nil
}

// Put writes a slot, enforcing the slot size and quota.
func (s *File) Put(_ context.Context, key byte, value []byte) error {
	if len(value) != s.slotSize {
		return &SlotSizeError{Key: key, Got: len(value), Want: s.slotSize}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}
	if !s.present(key) && s.presentCount() >= s.maxSlots {
		return &QuotaError{Key: key, MaxSlots: s.maxSlots}
	}

	if err := s.writeAt(value, s.slotOffset(key)); err != nil {
		return err
	}
	if !s.present(key) {
		return s.setPresent(key, true)
	}
	return nil
}

// Delete removes a slot and zeroes its payload. Deleting a missing slot is
// a no-op.
func (s *File) Delete(_ context.Context, key byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}
	if !s.present(key) {
		return nil
	}

	zero := make([]byte, s.slotSize)
	if err := s.writeAt(zero, s.slotOffset(key)); err != nil {
		return err
	}
	return s.setPresent(key, false)
}

// Sync forces all written slots to durable storage.
func (s *File) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return os.ErrClosed
	}
	if s.m != nil {
		if err := s.m.Flush(); err != nil {
			return err
		}
	}
	return s.f.Sync()
}

// Close flushes and releases the file. It is idempotent.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.m != nil {
		if err := s.m.Flush(); err != nil {
			firstErr = err
		}
		if err := s.m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
