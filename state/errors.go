package state

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDecl is returned when a scope lookup names a declaration
	// the registry never saw.
	ErrUnknownDecl = errors.New("unknown declaration")

	// ErrInvalidDecl is returned by NewRegistry for declarations that can
	// never be placed: empty names, duplicate names, zero counts, nil key
	// functions, defaults of the wrong kind.
	ErrInvalidDecl = errors.New("invalid declaration")

	// ErrKeySpaceExhausted is returned when no contiguous free key range
	// is left for an auto-placed reservation.
	ErrKeySpaceExhausted = errors.New("key space exhausted")
)

// KeyCollisionError reports two declarations claiming the same slot key.
type KeyCollisionError struct {
	Key    byte
	First  string
	Second string
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("key %d claimed by both %q and %q", e.Key, e.First, e.Second)
}

// SchemaError reports declarations that exceed the scope's slot quota.
type SchemaError struct {
	Kind   ScopeKind
	Schema Schema
	Max    uint32
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s scope needs %d slots (%d uints, %d byte slices), platform allows %d",
		e.Kind, e.Schema.Total(), e.Schema.NumUints, e.Schema.NumByteSlices, e.Max)
}

// StaticWriteError reports a second set on a write-once value.
type StaticWriteError struct {
	Name string
}

func (e *StaticWriteError) Error() string {
	return fmt.Sprintf("static value %q is already set", e.Name)
}

// KindError reports an accessor used against a declaration of another kind.
type KindError struct {
	Name string
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("value %q holds %s, not %s", e.Name, e.Got, e.Want)
}

// ValueSizeError reports a byte value too large for one slot cell.
type ValueSizeError struct {
	Name string
	Got  int
	Max  int
}

func (e *ValueSizeError) Error() string {
	return fmt.Sprintf("value %q is %d bytes, cell holds at most %d", e.Name, e.Got, e.Max)
}

// DynamicIndexError reports a key function picking an index outside its
// reservation.
type DynamicIndexError struct {
	Name  string
	Index uint32
	Count uint32
}

func (e *DynamicIndexError) Error() string {
	return fmt.Sprintf("dynamic %q: index %d outside reservation of %d", e.Name, e.Index, e.Count)
}
