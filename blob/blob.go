package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/avmkit/slotstore"
)

// Platform profile defaults. A slot on the reference platform stores 128
// bytes per key of which one byte is reserved, leaving 127 usable; accounts
// hold 16 local and 64 global slots.
const (
	DefaultPageSize = 127
	LocalMaxKeys    = 16
	GlobalMaxKeys   = 64
	DefaultMaxKeys  = LocalMaxKeys

	// MaxKeySpace bounds MaxKeys: keys are single bytes, so at most 256
	// distinct pages are addressable.
	MaxKeySpace = 256
)

// Config describes a blob's fixed geometry. It is immutable once the blob
// is constructed.
type Config struct {
	// PageSize is the byte capacity of one underlying slot.
	PageSize uint32

	// MaxKeys is the number of slots the blob spans.
	MaxKeys uint32

	// Keys maps page index to slot key. Order is significant. When nil,
	// keys are the single bytes 0..MaxKeys-1.
	Keys []byte
}

// Capacity returns the logical buffer size in bytes.
func (c Config) Capacity() uint64 {
	return uint64(c.PageSize) * uint64(c.MaxKeys)
}

// KeySpace returns a copy of the concrete keys addressing each page,
// generating the default single-byte sequence when Keys is nil.
func (c Config) KeySpace() []byte {
	if c.Keys != nil {
		return append([]byte(nil), c.Keys...)
	}
	keys := make([]byte, c.MaxKeys)
	for i := range keys {
		keys[i] = byte(i)
	}
	return keys
}

type options struct {
	pageSize uint32
	maxKeys  uint32
	keys     []byte
}

// Option configures a Blob at construction time.
type Option func(*options)

// WithPageSize sets the byte capacity of one page. Defaults to
// DefaultPageSize.
func WithPageSize(n uint32) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// WithMaxKeys sets the number of slots the blob spans. Defaults to
// DefaultMaxKeys, or to len(keys) when WithKeys is given.
func WithMaxKeys(n uint32) Option {
	return func(o *options) {
		o.maxKeys = n
	}
}

// WithKeys sets the concrete slot keys, one per page in page-index order.
// Use it to place a blob beside other state that already occupies keys.
// When combined with WithMaxKeys the lengths must agree.
func WithKeys(keys []byte) Option {
	return func(o *options) {
		o.keys = keys
	}
}

// Blob emulates one contiguous byte buffer over a fixed set of fixed-size
// slots. It holds no mutable state of its own: every byte lives in the slot
// store, and each operation translates logical offsets into per-page slot
// reads and writes.
//
// A missing slot reads as an all-zero page, but callers should Zero a blob
// once before first use rather than rely on that.
type Blob struct {
	store    slotstore.Store
	pageSize uint32
	keys     []byte
	capacity uint64
}

// New builds a Blob over store.
//
// Example:
//
//	b, err := blob.New(store, blob.WithPageSize(127), blob.WithMaxKeys(16))
func New(store slotstore.Store, optFns ...Option) (*Blob, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidConfig)
	}

	o := options{pageSize: DefaultPageSize}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.maxKeys == 0 {
		if o.keys != nil {
			o.maxKeys = uint32(len(o.keys))
		} else {
			o.maxKeys = DefaultMaxKeys
		}
	}

	if o.pageSize == 0 {
		return nil, fmt.Errorf("%w: page size must be positive", ErrInvalidConfig)
	}
	if o.maxKeys == 0 || o.maxKeys > MaxKeySpace {
		return nil, fmt.Errorf("%w: max keys must be in [1, %d], got %d", ErrInvalidConfig, MaxKeySpace, o.maxKeys)
	}

	keys := o.keys
	if keys == nil {
		keys = Config{MaxKeys: o.maxKeys}.KeySpace()
	} else {
		if len(keys) != int(o.maxKeys) {
			return nil, &KeyCountError{Got: len(keys), Want: int(o.maxKeys)}
		}
		keys = append([]byte(nil), keys...)
		var seen [MaxKeySpace]bool
		for _, k := range keys {
			if seen[k] {
				return nil, fmt.Errorf("%w: duplicate key %d", ErrInvalidConfig, k)
			}
			seen[k] = true
		}
	}

	return &Blob{
		store:    store,
		pageSize: o.pageSize,
		keys:     keys,
		capacity: uint64(o.pageSize) * uint64(o.maxKeys),
	}, nil
}

// NewLocal builds a Blob spanning a full local-state scope
// (LocalMaxKeys pages of DefaultPageSize bytes).
func NewLocal(store slotstore.Store) (*Blob, error) {
	return New(store, WithMaxKeys(LocalMaxKeys))
}

// NewGlobal builds a Blob spanning a full global-state scope
// (GlobalMaxKeys pages of DefaultPageSize bytes).
func NewGlobal(store slotstore.Store) (*Blob, error) {
	return New(store, WithMaxKeys(GlobalMaxKeys))
}

// Capacity returns the logical buffer size in bytes.
func (b *Blob) Capacity() uint64 { return b.capacity }

// PageSize returns the byte capacity of one page.
func (b *Blob) PageSize() uint32 { return b.pageSize }

// MaxKeys returns the number of slots the blob spans.
func (b *Blob) MaxKeys() uint32 { return uint32(len(b.keys)) }

// Config returns a copy of the blob's geometry.
func (b *Blob) Config() Config {
	return Config{
		PageSize: b.pageSize,
		MaxKeys:  uint32(len(b.keys)),
		Keys:     append([]byte(nil), b.keys...),
	}
}

// EmptyPage returns a fresh all-zero page of the given size.
func EmptyPage(pageSize uint32) []byte {
	return make([]byte, pageSize)
}

// Address translation. Pure; offsets must be validated first.

func (b *Blob) pageIndex(off uint64) uint32 {
	return uint32(off / uint64(b.pageSize))
}

func (b *Blob) pageOffset(off uint64) uint32 {
	return uint32(off % uint64(b.pageSize))
}

func (b *Blob) keyAt(page uint32) byte {
	return b.keys[page]
}

// load fetches one page as a caller-owned slice. A slot the store has never
// seen loads as an empty page.
func (b *Blob) load(ctx context.Context, page uint32) ([]byte, error) {
	value, err := b.store.Get(ctx, b.keyAt(page))
	if err != nil {
		if errors.Is(err, slotstore.ErrNotFound) {
			return make([]byte, b.pageSize), nil
		}
		return nil, err
	}
	if len(value) != int(b.pageSize) {
		return nil, &PageSizeError{Page: page, Got: len(value), Want: b.pageSize}
	}
	return value, nil
}

// Zero writes the empty page to every key, ascending in key-space order.
// It initializes a fresh blob and resets a used one; all prior content is
// discarded. A failed put aborts the remaining keys.
func (b *Blob) Zero(ctx context.Context) error {
	empty := make([]byte, b.pageSize)
	for _, key := range b.keys {
		if err := b.store.Put(ctx, key, empty); err != nil {
			return err
		}
	}
	return nil
}

// GetByte returns the byte at logical offset off.
func (b *Blob) GetByte(ctx context.Context, off uint64) (byte, error) {
	if off >= b.capacity {
		return 0, &RangeError{Op: "get byte", Start: off, End: off + 1, Capacity: b.capacity}
	}
	page, err := b.load(ctx, b.pageIndex(off))
	if err != nil {
		return 0, err
	}
	return page[b.pageOffset(off)], nil
}

// SetByte sets the byte at logical offset off. The slot store only accepts
// whole pages, so this costs one page read and one page write.
func (b *Blob) SetByte(ctx context.Context, off uint64, value byte) error {
	if off >= b.capacity {
		return &RangeError{Op: "set byte", Start: off, End: off + 1, Capacity: b.capacity}
	}
	k := b.pageIndex(off)
	page, err := b.load(ctx, k)
	if err != nil {
		return err
	}
	page[b.pageOffset(off)] = value
	return b.store.Put(ctx, b.keyAt(k), page)
}

// Read returns the end-start bytes in the logical range [start, end).
// An empty range returns nil without touching the slot store.
func (b *Blob) Read(ctx context.Context, start, end uint64) ([]byte, error) {
	if start > end || end > b.capacity {
		return nil, &RangeError{Op: "read", Start: start, End: end, Capacity: b.capacity}
	}
	if start == end {
		return nil, nil
	}

	// end is exclusive: iterate only pages holding at least one in-range
	// byte, so a range ending exactly on a page boundary does not touch
	// the following page.
	first := b.pageIndex(start)
	last := b.pageIndex(end - 1)

	out := make([]byte, 0, end-start)
	for k := first; k <= last; k++ {
		lo := uint32(0)
		if k == first {
			lo = b.pageOffset(start)
		}
		hi := b.pageSize
		if k == last {
			hi = b.pageOffset(end-1) + 1
		}

		page, err := b.load(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, page[lo:hi]...)
	}
	return out, nil
}

// Write writes data starting at logical offset start. Pages only partially
// covered by the range are merged: bytes outside [start, start+len(data))
// keep their prior values. Fully covered pages are overwritten without
// reading the old page.
//
// A failed put surfaces the store's error unmodified and aborts the
// remaining pages; pages already written stay written. Callers needing
// atomicity across the whole call must rely on the host's outer
// transaction semantics.
func (b *Blob) Write(ctx context.Context, start uint64, data []byte) error {
	end := start + uint64(len(data))
	if end < start || end > b.capacity {
		return &RangeError{Op: "write", Start: start, End: end, Capacity: b.capacity}
	}
	if len(data) == 0 {
		return nil
	}

	first := b.pageIndex(start)
	last := b.pageIndex(end - 1)

	var written uint64
	for k := first; k <= last; k++ {
		lo := uint32(0)
		if k == first {
			lo = b.pageOffset(start)
		}
		hi := b.pageSize
		if k == last {
			hi = b.pageOffset(end-1) + 1
		}

		var page []byte
		if lo == 0 && hi == b.pageSize {
			// Fully covered: the store copies on Put, so the data slice
			// can be handed over directly.
			page = data[written : written+uint64(b.pageSize)]
		} else {
			var err error
			page, err = b.load(ctx, k)
			if err != nil {
				return err
			}
			copy(page[lo:hi], data[written:])
		}

		if err := b.store.Put(ctx, b.keyAt(k), page); err != nil {
			return err
		}
		written += uint64(hi - lo)
	}
	return nil
}
