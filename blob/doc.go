// Package blob emulates a single contiguous byte buffer on top of a fixed
// set of fixed-size key-value slots, the storage shape smart-contract
// platforms expose per account.
//
// A logical offset o maps to page o/PageSize at intra-page offset
// o%PageSize; page index i is stored under Keys[i]. The engine is a pure
// translation layer: it keeps no state besides its geometry, so every
// operation is a deterministic sequence of slot reads and writes.
//
// Writes merge at page boundaries. A page only partially covered by a
// write is read, patched in place and written back, so bytes outside the
// written range are never clobbered; fully covered pages skip the read.
//
// Usage:
//
//	store := slotstore.NewMemory(blob.DefaultPageSize, blob.LocalMaxKeys)
//	b, err := blob.NewLocal(store)
//	if err != nil { ... }
//
//	if err := b.Zero(ctx); err != nil { ... } // once, before first use
//	if err := b.Write(ctx, 130, payload); err != nil { ... }
//	data, err := b.Read(ctx, 130, 130+uint64(len(payload)))
package blob
