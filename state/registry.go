package state

import (
	"fmt"

	"github.com/hupe1980/avmkit/blob"
)

// minSlotSize keeps both cell encodings workable: integer cells need 8
// bytes, byte cells need a 2-byte length prefix.
const minSlotSize = 10

type registryOptions struct {
	slotSize uint32
}

// RegistryOption configures a Registry at construction time.
type RegistryOption func(*registryOptions)

// WithSlotSize overrides the byte capacity of one slot cell. Defaults to
// blob.DefaultPageSize, the reference platform's usable slot capacity.
// Smaller sizes are mainly useful in tests.
func WithSlotSize(n uint32) RegistryOption {
	return func(o *registryOptions) {
		o.slotSize = n
	}
}

type placedValue struct {
	Value
	key byte
}

type placedDynamic struct {
	Dynamic
	base byte
}

type placedBlob struct {
	BlobValue
	keys []byte
}

// Registry resolves a scope's declarations into concrete slot keys, checks
// them against the platform quota, and hands out bound accessors. It is
// built once, up front, from an explicit declaration list.
//
// Placement is deterministic: explicitly keyed declarations claim their
// keys first, then blobs and dynamics take the lowest free contiguous
// ranges in declaration order, then named values fill single keys from the
// top of the key space downward. Two declarations claiming one key fail
// with KeyCollisionError.
type Registry struct {
	kind     ScopeKind
	slotSize uint32
	decls    []Decl

	values   map[string]*placedValue
	dynamics map[string]*placedDynamic
	blobs    map[string]*placedBlob
	owner    map[byte]string
	schema   Schema
}

// NewRegistry places every declaration and validates the result.
func NewRegistry(kind ScopeKind, decls []Decl, optFns ...RegistryOption) (*Registry, error) {
	if kind != Local && kind != Global {
		return nil, fmt.Errorf("%w: unknown scope kind %d", ErrInvalidDecl, kind)
	}

	o := registryOptions{slotSize: blob.DefaultPageSize}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.slotSize < minSlotSize {
		return nil, fmt.Errorf("%w: slot size %d below minimum %d", ErrInvalidDecl, o.slotSize, minSlotSize)
	}

	r := &Registry{
		kind:     kind,
		slotSize: o.slotSize,
		decls:    decls,
		values:   make(map[string]*placedValue),
		dynamics: make(map[string]*placedDynamic),
		blobs:    make(map[string]*placedBlob),
		owner:    make(map[byte]string),
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	if err := r.place(); err != nil {
		return nil, err
	}

	for _, d := range decls {
		r.schema = r.schema.Add(d.declSchema())
	}
	if max := kind.MaxKeys(); r.schema.Total() > max {
		return nil, &SchemaError{Kind: kind, Schema: r.schema, Max: max}
	}

	return r, nil
}

func (r *Registry) validate() error {
	seen := make(map[string]struct{}, len(r.decls))

	for _, d := range r.decls {
		name := d.declName()
		if name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidDecl)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidDecl, name)
		}
		seen[name] = struct{}{}

		switch v := d.(type) {
		case Value:
			if v.kind != KindUint64 && v.kind != KindBytes {
				return fmt.Errorf("%w: %q has no kind; use Uint64 or Bytes", ErrInvalidDecl, name)
			}
			if v.kind == KindUint64 && v.defBytes != nil {
				return fmt.Errorf("%w: %q is uint64 but has a bytes default", ErrInvalidDecl, name)
			}
			if v.kind == KindBytes && v.defUint != 0 {
				return fmt.Errorf("%w: %q is bytes but has a uint64 default", ErrInvalidDecl, name)
			}
			if v.defBytes != nil && len(v.defBytes) > int(r.slotSize)-2 {
				return &ValueSizeError{Name: name, Got: len(v.defBytes), Max: int(r.slotSize) - 2}
			}
		case Dynamic:
			if v.count == 0 {
				return fmt.Errorf("%w: dynamic %q reserves zero slots", ErrInvalidDecl, name)
			}
			if v.keyFunc == nil {
				return fmt.Errorf("%w: dynamic %q has no key function", ErrInvalidDecl, name)
			}
			if v.base != nil && uint32(*v.base)+v.count > 256 {
				return fmt.Errorf("%w: dynamic %q: base %d + count %d exceeds key space", ErrInvalidDecl, name, *v.base, v.count)
			}
		case BlobValue:
			if v.maxKeys == 0 {
				return fmt.Errorf("%w: blob %q spans zero slots", ErrInvalidDecl, name)
			}
			if v.maxKeys > blob.MaxKeySpace {
				return fmt.Errorf("%w: blob %q spans %d slots, key space holds %d", ErrInvalidDecl, name, v.maxKeys, blob.MaxKeySpace)
			}
			if v.keys != nil && len(v.keys) != int(v.maxKeys) {
				return fmt.Errorf("%w: blob %q pins %d keys for %d pages", ErrInvalidDecl, name, len(v.keys), v.maxKeys)
			}
		default:
			return fmt.Errorf("%w: %q has unsupported declaration type %T", ErrInvalidDecl, name, d)
		}
	}
	return nil
}

func (r *Registry) claim(key byte, name string) error {
	if first, taken := r.owner[key]; taken {
		return &KeyCollisionError{Key: key, First: first, Second: name}
	}
	r.owner[key] = name
	return nil
}

// lowestRun finds the lowest free contiguous run of n keys.
func (r *Registry) lowestRun(n uint32) (byte, bool) {
	var run uint32
	for k := 0; k < 256; k++ {
		if _, taken := r.owner[byte(k)]; taken {
			run = 0
			continue
		}
		run++
		if run == n {
			return byte(k - int(n) + 1), true
		}
	}
	return 0, false
}

// highestFree finds the highest free single key.
func (r *Registry) highestFree() (byte, bool) {
	for k := 255; k >= 0; k-- {
		if _, taken := r.owner[byte(k)]; !taken {
			return byte(k), true
		}
	}
	return 0, false
}

func (r *Registry) place() error {
	// Pass 1: explicit claims.
	for _, d := range r.decls {
		switch v := d.(type) {
		case Value:
			if v.key == nil {
				continue
			}
			if err := r.claim(*v.key, v.name); err != nil {
				return err
			}
			r.values[v.name] = &placedValue{Value: v, key: *v.key}
		case Dynamic:
			if v.base == nil {
				continue
			}
			for i := uint32(0); i < v.count; i++ {
				if err := r.claim(*v.base+byte(i), v.name); err != nil {
					return err
				}
			}
			r.dynamics[v.name] = &placedDynamic{Dynamic: v, base: *v.base}
		case BlobValue:
			if v.keys == nil {
				continue
			}
			for _, k := range v.keys {
				if err := r.claim(k, v.name); err != nil {
					return err
				}
			}
			r.blobs[v.name] = &placedBlob{BlobValue: v, keys: v.keys}
		}
	}

	// Pass 2: auto-placed ranges (blobs, then dynamics), lowest free run
	// first, in declaration order.
	for _, d := range r.decls {
		if v, ok := d.(BlobValue); ok && v.keys == nil {
			base, found := r.lowestRun(v.maxKeys)
			if !found {
				return fmt.Errorf("%w: no free run of %d keys for blob %q", ErrKeySpaceExhausted, v.maxKeys, v.name)
			}
			keys := make([]byte, v.maxKeys)
			for i := range keys {
				keys[i] = base + byte(i)
				r.owner[keys[i]] = v.name
			}
			r.blobs[v.name] = &placedBlob{BlobValue: v, keys: keys}
		}
	}
	for _, d := range r.decls {
		if v, ok := d.(Dynamic); ok && v.base == nil {
			base, found := r.lowestRun(v.count)
			if !found {
				return fmt.Errorf("%w: no free run of %d keys for dynamic %q", ErrKeySpaceExhausted, v.count, v.name)
			}
			for i := uint32(0); i < v.count; i++ {
				r.owner[base+byte(i)] = v.name
			}
			r.dynamics[v.name] = &placedDynamic{Dynamic: v, base: base}
		}
	}

	// Pass 3: auto-placed named values, top of the key space downward so
	// the low range stays free for page runs.
	for _, d := range r.decls {
		if v, ok := d.(Value); ok && v.key == nil {
			key, found := r.highestFree()
			if !found {
				return fmt.Errorf("%w: no free key for value %q", ErrKeySpaceExhausted, v.name)
			}
			r.owner[key] = v.name
			r.values[v.name] = &placedValue{Value: v, key: key}
		}
	}

	return nil
}

// Kind returns the scope the registry describes.
func (r *Registry) Kind() ScopeKind { return r.kind }

// SlotSize returns the byte capacity of one slot cell.
func (r *Registry) SlotSize() uint32 { return r.slotSize }

// Schema returns the slot counts the declarations consume.
func (r *Registry) Schema() Schema { return r.schema }

// BlobConfig returns the resolved geometry of a declared blob.
func (r *Registry) BlobConfig(name string) (blob.Config, error) {
	p, ok := r.blobs[name]
	if !ok {
		return blob.Config{}, fmt.Errorf("%w: blob %q", ErrUnknownDecl, name)
	}
	return blob.Config{
		PageSize: r.slotSize,
		MaxKeys:  p.maxKeys,
		Keys:     append([]byte(nil), p.keys...),
	}, nil
}

// DeclInfo is the public description of one resolved declaration.
type DeclInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // uint64, bytes or blob
	Keys        []int  `json:"keys"`
	Count       uint32 `json:"count,omitempty"` // dynamics only
	Static      bool   `json:"static,omitempty"`
	Description string `json:"description,omitempty"`
}

// Describe returns the resolved declarations in declaration order, ready
// for inclusion in an application document.
func (r *Registry) Describe() []DeclInfo {
	out := make([]DeclInfo, 0, len(r.decls))
	for _, d := range r.decls {
		switch v := d.(type) {
		case Value:
			p := r.values[v.name]
			out = append(out, DeclInfo{
				Name:        v.name,
				Type:        v.kind.String(),
				Keys:        []int{int(p.key)},
				Static:      v.static,
				Description: v.descr,
			})
		case Dynamic:
			p := r.dynamics[v.name]
			keys := make([]int, v.count)
			for i := range keys {
				keys[i] = int(p.base) + i
			}
			out = append(out, DeclInfo{
				Name:        v.name,
				Type:        v.kind.String(),
				Keys:        keys,
				Count:       v.count,
				Description: v.descr,
			})
		case BlobValue:
			p := r.blobs[v.name]
			keys := make([]int, len(p.keys))
			for i, k := range p.keys {
				keys[i] = int(k)
			}
			out = append(out, DeclInfo{
				Name:        v.name,
				Type:        "blob",
				Keys:        keys,
				Description: v.descr,
			})
		}
	}
	return out
}
