package state

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/avmkit/blob"
	"github.com/hupe1980/avmkit/slotstore"
)

// Scope binds a registry's declarations to one concrete slot store — an
// application's global store or one account's local store. All accessors
// go through it; nothing writes slots behind the declarations' back.
type Scope struct {
	reg   *Registry
	store slotstore.Store
}

// Bind attaches the registry to a store and returns typed accessors over
// it. The store must accept values of exactly SlotSize bytes.
func (r *Registry) Bind(store slotstore.Store) *Scope {
	return &Scope{reg: r, store: store}
}

// Registry returns the declarations behind the scope.
func (s *Scope) Registry() *Registry { return s.reg }

// Value looks up a named single-slot declaration.
func (s *Scope) Value(name string) (*ValueRef, error) {
	p, ok := s.reg.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: value %q", ErrUnknownDecl, name)
	}
	return &ValueRef{
		scope:    s,
		name:     p.name,
		kind:     p.kind,
		key:      p.key,
		static:   p.static,
		defUint:  p.defUint,
		defBytes: p.defBytes,
	}, nil
}

// Dynamic looks up a declared slot family.
func (s *Scope) Dynamic(name string) (*DynamicRef, error) {
	p, ok := s.reg.dynamics[name]
	if !ok {
		return nil, fmt.Errorf("%w: dynamic %q", ErrUnknownDecl, name)
	}
	return &DynamicRef{scope: s, placed: p}, nil
}

// Blob opens a declared paged blob over the scope's store.
func (s *Scope) Blob(name string) (*blob.Blob, error) {
	cfg, err := s.reg.BlobConfig(name)
	if err != nil {
		return nil, err
	}
	return blob.New(s.store,
		blob.WithPageSize(cfg.PageSize),
		blob.WithKeys(cfg.Keys),
	)
}

// ValueRef is a single declared slot bound to a store. Slots hold fixed
// cells of SlotSize bytes: integers as 8 big-endian bytes, byte strings
// length-prefixed with 2 big-endian bytes.
type ValueRef struct {
	scope    *Scope
	name     string
	kind     Kind
	key      byte
	static   bool
	defUint  uint64
	defBytes []byte
}

// Name returns the declaration name.
func (v *ValueRef) Name() string { return v.name }

// Key returns the resolved slot key.
func (v *ValueRef) Key() byte { return v.key }

// Exists reports whether the slot has been set.
func (v *ValueRef) Exists(ctx context.Context) (bool, error) {
	_, err := v.scope.store.Get(ctx, v.key)
	if errors.Is(err, slotstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Uint64 returns the stored integer, or the declared default before the
// first set.
func (v *ValueRef) Uint64(ctx context.Context) (uint64, error) {
	if v.kind != KindUint64 {
		return 0, &KindError{Name: v.name, Want: KindUint64, Got: v.kind}
	}
	cell, err := v.scope.store.Get(ctx, v.key)
	if errors.Is(err, slotstore.ErrNotFound) {
		return v.defUint, nil
	}
	if err != nil {
		return 0, err
	}
	if len(cell) < 8 {
		return 0, fmt.Errorf("value %q: cell too short for uint64", v.name)
	}
	return binary.BigEndian.Uint64(cell[:8]), nil
}

// SetUint64 stores an integer. Static values reject a second set.
func (v *ValueRef) SetUint64(ctx context.Context, u uint64) error {
	if v.kind != KindUint64 {
		return &KindError{Name: v.name, Want: KindUint64, Got: v.kind}
	}
	if err := v.checkStatic(ctx); err != nil {
		return err
	}
	cell := make([]byte, v.scope.reg.slotSize)
	binary.BigEndian.PutUint64(cell[:8], u)
	return v.scope.store.Put(ctx, v.key, cell)
}

// Bytes returns the stored byte string, or the declared default before the
// first set. The returned slice is caller-owned.
func (v *ValueRef) Bytes(ctx context.Context) ([]byte, error) {
	if v.kind != KindBytes {
		return nil, &KindError{Name: v.name, Want: KindBytes, Got: v.kind}
	}
	cell, err := v.scope.store.Get(ctx, v.key)
	if errors.Is(err, slotstore.ErrNotFound) {
		return append([]byte(nil), v.defBytes...), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBytesCell(v.name, cell)
}

// SetBytes stores a byte string of at most SlotSize-2 bytes. Static values
// reject a second set.
func (v *ValueRef) SetBytes(ctx context.Context, b []byte) error {
	if v.kind != KindBytes {
		return &KindError{Name: v.name, Want: KindBytes, Got: v.kind}
	}
	if err := v.checkStatic(ctx); err != nil {
		return err
	}
	cell, err := encodeBytesCell(v.name, b, v.scope.reg.slotSize)
	if err != nil {
		return err
	}
	return v.scope.store.Put(ctx, v.key, cell)
}

// Delete removes the slot so the value reads as its default again. The
// bound store must implement slotstore.Deleter.
func (v *ValueRef) Delete(ctx context.Context) error {
	d, ok := v.scope.store.(slotstore.Deleter)
	if !ok {
		return fmt.Errorf("%w: value %q", slotstore.ErrDeleteUnsupported, v.name)
	}
	return d.Delete(ctx, v.key)
}

func (v *ValueRef) checkStatic(ctx context.Context) error {
	if !v.static {
		return nil
	}
	exists, err := v.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return &StaticWriteError{Name: v.name}
	}
	return nil
}

// DynamicRef is a declared slot family bound to a store.
type DynamicRef struct {
	scope  *Scope
	placed *placedDynamic
}

// Name returns the declaration name.
func (d *DynamicRef) Name() string { return d.placed.name }

// Count returns the reservation size.
func (d *DynamicRef) Count() uint32 { return d.placed.count }

// For resolves the slot the key function picks for input. Indexes outside
// the reservation fail with DynamicIndexError.
func (d *DynamicRef) For(input []byte) (*ValueRef, error) {
	idx := d.placed.keyFunc(input)
	if idx >= d.placed.count {
		return nil, &DynamicIndexError{Name: d.placed.name, Index: idx, Count: d.placed.count}
	}
	return &ValueRef{
		scope: d.scope,
		name:  fmt.Sprintf("%s[%d]", d.placed.name, idx),
		kind:  d.placed.kind,
		key:   d.placed.base + byte(idx),
	}, nil
}

func encodeBytesCell(name string, b []byte, slotSize uint32) ([]byte, error) {
	max := int(slotSize) - 2
	if len(b) > max {
		return nil, &ValueSizeError{Name: name, Got: len(b), Max: max}
	}
	cell := make([]byte, slotSize)
	binary.BigEndian.PutUint16(cell[:2], uint16(len(b)))
	copy(cell[2:], b)
	return cell, nil
}

func decodeBytesCell(name string, cell []byte) ([]byte, error) {
	if len(cell) < 2 {
		return nil, fmt.Errorf("value %q: cell too short for length prefix", name)
	}
	n := int(binary.BigEndian.Uint16(cell[:2]))
	if n > len(cell)-2 {
		return nil, fmt.Errorf("value %q: cell claims %d bytes, holds %d", name, n, len(cell)-2)
	}
	return append([]byte(nil), cell[2:2+n]...), nil
}
