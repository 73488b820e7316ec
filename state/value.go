package state

// Kind discriminates what a declared slot holds.
type Kind uint8

const (
	// KindUint64 holds an unsigned 64-bit integer.
	KindUint64 Kind = iota + 1
	// KindBytes holds a variable-length byte string.
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindUint64:
		return "uint64"
	case KindBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// Decl is one declaration inside a scope. Value, Dynamic and BlobValue
// implement it; a Registry is built from an explicit list of declarations
// and nothing else — there is no runtime discovery.
type Decl interface {
	declName() string
	declSchema() Schema
}

// Value declares a single named slot. Declarations are immutable: each
// chainable method returns an updated copy, so shared declarations cannot
// leak configuration into each other.
//
// Example:
//
//	admin := state.Bytes("administrator").Static()
//	basis := state.Uint64("royalty_basis").DefaultUint64(0)
type Value struct {
	name     string
	kind     Kind
	key      *byte
	static   bool
	descr    string
	defUint  uint64
	defBytes []byte
}

// Uint64 declares a named unsigned-integer slot.
func Uint64(name string) Value {
	return Value{name: name, kind: KindUint64}
}

// Bytes declares a named byte-string slot.
func Bytes(name string) Value {
	return Value{name: name, kind: KindBytes}
}

// Key pins the declaration to an explicit slot key. Without it the
// registry assigns a free key automatically.
func (v Value) Key(key byte) Value {
	k := key
	v.key = &k
	return v
}

// Static marks the value write-once: setting it a second time fails with
// StaticWriteError.
func (v Value) Static() Value {
	v.static = true
	return v
}

// Describe attaches a human-readable description, surfaced by
// Registry.Describe.
func (v Value) Describe(descr string) Value {
	v.descr = descr
	return v
}

// DefaultUint64 sets the value reported before the first set. Valid only
// on Uint64 declarations.
func (v Value) DefaultUint64(u uint64) Value {
	v.defUint = u
	return v
}

// DefaultBytes sets the value reported before the first set. Valid only
// on Bytes declarations.
func (v Value) DefaultBytes(b []byte) Value {
	v.defBytes = append([]byte(nil), b...)
	return v
}

func (v Value) declName() string { return v.name }

func (v Value) declSchema() Schema {
	if v.kind == KindUint64 {
		return Schema{NumUints: 1}
	}
	return Schema{NumByteSlices: 1}
}

// KeyFunc maps caller input to a slot index inside a Dynamic reservation.
// Returned indexes must be below the reserved count; accessors reject
// anything else, so a buggy function cannot escape its reservation.
type KeyFunc func(input []byte) uint32

// Dynamic declares a family of slots addressed through a key function
// captured at declaration time. The registry reserves a contiguous key
// range of the given count; the function only ever picks within it.
type Dynamic struct {
	name    string
	kind    Kind
	count   uint32
	keyFunc KeyFunc
	base    *byte
	descr   string
}

// DynamicUint64 declares count integer slots addressed via fn.
func DynamicUint64(name string, count uint32, fn KeyFunc) Dynamic {
	return Dynamic{name: name, kind: KindUint64, count: count, keyFunc: fn}
}

// DynamicBytes declares count byte-string slots addressed via fn.
func DynamicBytes(name string, count uint32, fn KeyFunc) Dynamic {
	return Dynamic{name: name, kind: KindBytes, count: count, keyFunc: fn}
}

// Base pins the reservation to start at an explicit key; it then occupies
// base..base+count-1.
func (d Dynamic) Base(key byte) Dynamic {
	k := key
	d.base = &k
	return d
}

// Describe attaches a human-readable description.
func (d Dynamic) Describe(descr string) Dynamic {
	d.descr = descr
	return d
}

func (d Dynamic) declName() string { return d.name }

func (d Dynamic) declSchema() Schema {
	if d.kind == KindUint64 {
		return Schema{NumUints: d.count}
	}
	return Schema{NumByteSlices: d.count}
}

// BlobValue declares a paged blob inside a scope. The registry reserves
// maxKeys slot keys for its pages; the page size is the scope's slot size.
type BlobValue struct {
	name    string
	maxKeys uint32
	keys    []byte
	descr   string
}

// Blob declares a paged blob spanning maxKeys slots.
func Blob(name string, maxKeys uint32) BlobValue {
	return BlobValue{name: name, maxKeys: maxKeys}
}

// Keys pins the blob's pages to explicit keys, one per page in page-index
// order. len(keys) must equal the declared maxKeys.
func (b BlobValue) Keys(keys []byte) BlobValue {
	b.keys = append([]byte(nil), keys...)
	return b
}

// Describe attaches a human-readable description.
func (b BlobValue) Describe(descr string) BlobValue {
	b.descr = descr
	return b
}

func (b BlobValue) declName() string { return b.name }

func (b BlobValue) declSchema() Schema {
	return Schema{NumByteSlices: b.maxKeys}
}
