package state

import "github.com/hupe1980/avmkit/blob"

// ScopeKind says which per-entity scope a registry describes.
type ScopeKind uint8

const (
	// Local is the per-account scope, available once an account opts in.
	Local ScopeKind = iota + 1
	// Global is the per-application scope.
	Global
)

func (k ScopeKind) String() string {
	switch k {
	case Local:
		return "local"
	case Global:
		return "global"
	default:
		return "unknown"
	}
}

// MaxKeys returns the platform slot quota for the scope.
func (k ScopeKind) MaxKeys() uint32 {
	switch k {
	case Local:
		return blob.LocalMaxKeys
	case Global:
		return blob.GlobalMaxKeys
	default:
		return 0
	}
}

// Schema counts declared slots by kind. The platform allocates scope
// storage from these counts at application create time, so they are part
// of the application's public description.
type Schema struct {
	NumUints      uint32 `json:"num_uints"`
	NumByteSlices uint32 `json:"num_byte_slices"`
}

// Add returns the element-wise sum of two schemas.
func (s Schema) Add(other Schema) Schema {
	return Schema{
		NumUints:      s.NumUints + other.NumUints,
		NumByteSlices: s.NumByteSlices + other.NumByteSlices,
	}
}

// Total returns the number of slots the schema consumes.
func (s Schema) Total() uint32 {
	return s.NumUints + s.NumByteSlices
}
