// Package archive captures blob-backed slot state into portable snapshots
// and replays them into any slot store. A snapshot records the blob's
// geometry alongside the page contents, so a buffer exported from one
// backend (say, an in-memory ledger) can be restored into another (a file
// store, DynamoDB) without the destination knowing anything about the
// source.
//
// Snapshots are sparse: missing and all-zero pages are not captured, and
// Restore writes them back as zero pages. The binary encoding is defined
// in this package (see Encode/Decode) and the Exporter ships encoded
// snapshots to an ObjectStore together with a manifest.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/slotstore"
)

// ErrBadSnapshot is returned when a snapshot's geometry and page contents
// disagree, for example a page whose length differs from PageSize.
var ErrBadSnapshot = errors.New("archive: bad snapshot")

// Snapshot is the captured state of one blob: its geometry plus the
// non-zero pages, keyed by page index.
type Snapshot struct {
	// Owner identifies whose state this is. It is recorded verbatim and
	// has no meaning to the archive itself; ledger-backed callers use the
	// account address.
	Owner string

	// PageSize is the byte capacity of one page.
	PageSize uint32

	// Keys maps page index to slot key, in page-index order. Restore
	// replays pages under these keys.
	Keys []byte

	// Pages holds the captured page contents by page index. Absent
	// indexes are all-zero pages.
	Pages map[uint32][]byte
}

// MaxKeys returns the number of pages the snapshot spans.
func (s *Snapshot) MaxKeys() uint32 {
	return uint32(len(s.Keys))
}

// Config returns the blob geometry the snapshot was captured with.
func (s *Snapshot) Config() blob.Config {
	return blob.Config{
		PageSize: s.PageSize,
		MaxKeys:  s.MaxKeys(),
		Keys:     append([]byte(nil), s.Keys...),
	}
}

// pageIndexes returns the captured page indexes in ascending order.
func (s *Snapshot) pageIndexes() []uint32 {
	indexes := make([]uint32, 0, len(s.Pages))
	for k := range s.Pages {
		indexes = append(indexes, k)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	return indexes
}

// validate checks the snapshot's internal consistency before encoding or
// restoring it.
func (s *Snapshot) validate() error {
	if s.PageSize == 0 {
		return fmt.Errorf("%w: page size must be positive", ErrBadSnapshot)
	}
	if len(s.Keys) == 0 || len(s.Keys) > blob.MaxKeySpace {
		return fmt.Errorf("%w: key space must hold 1..%d keys, got %d", ErrBadSnapshot, blob.MaxKeySpace, len(s.Keys))
	}
	for k, page := range s.Pages {
		if k >= s.MaxKeys() {
			return fmt.Errorf("%w: page index %d outside key space of %d", ErrBadSnapshot, k, s.MaxKeys())
		}
		if uint32(len(page)) != s.PageSize {
			return fmt.Errorf("%w: page %d holds %d bytes, want %d", ErrBadSnapshot, k, len(page), s.PageSize)
		}
	}
	return nil
}

// Capture reads every page of the blob addressed by cfg out of store and
// returns a sparse snapshot. Missing slots and all-zero pages are skipped;
// a page of unexpected length fails with blob.PageSizeError, mirroring what
// the blob itself would report on read.
func Capture(ctx context.Context, store slotstore.Store, cfg blob.Config, owner string) (*Snapshot, error) {
	if cfg.PageSize == 0 || cfg.MaxKeys == 0 || cfg.MaxKeys > blob.MaxKeySpace {
		return nil, fmt.Errorf("%w: invalid geometry", ErrBadSnapshot)
	}

	keys := cfg.KeySpace()
	if uint32(len(keys)) != cfg.MaxKeys {
		return nil, fmt.Errorf("%w: %d keys for %d pages", ErrBadSnapshot, len(keys), cfg.MaxKeys)
	}

	snap := &Snapshot{
		Owner:    owner,
		PageSize: cfg.PageSize,
		Keys:     keys,
		Pages:    make(map[uint32][]byte),
	}

	for k := uint32(0); k < cfg.MaxKeys; k++ {
		page, err := store.Get(ctx, keys[k])
		if errors.Is(err, slotstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("capture page %d: %w", k, err)
		}
		if uint32(len(page)) != cfg.PageSize {
			return nil, &blob.PageSizeError{Page: k, Got: len(page), Want: cfg.PageSize}
		}
		if allZero(page) {
			continue
		}
		snap.Pages[k] = append([]byte(nil), page...)
	}

	return snap, nil
}

// Restore replays the snapshot into store, writing every page of the key
// space in ascending page order. Pages absent from the snapshot are written
// as zero pages, so restoring over existing state fully overwrites it. A
// failed put aborts the replay with the pages before it already written.
func (s *Snapshot) Restore(ctx context.Context, store slotstore.Store) error {
	if err := s.validate(); err != nil {
		return err
	}

	zero := make([]byte, s.PageSize)
	for k := uint32(0); k < s.MaxKeys(); k++ {
		page, ok := s.Pages[k]
		if !ok {
			page = zero
		}
		if err := store.Put(ctx, s.Keys[k], page); err != nil {
			return fmt.Errorf("restore page %d: %w", k, err)
		}
	}

	return nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
