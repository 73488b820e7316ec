// Package state declares the slots a contract uses and resolves them into
// concrete keys ahead of time.
//
// Declarations are explicit values: Uint64 and Bytes for single named
// slots, DynamicUint64 and DynamicBytes for key-function-addressed slot
// families, and Blob for paged byte buffers. A Registry places all of a
// scope's declarations onto slot keys at construction time, rejects key
// collisions and quota overruns, and binds to a concrete store as a Scope
// with typed accessors. There is no runtime discovery of any kind: what
// the registry is given is all there is.
package state
