package archive

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("archive: object not found")

// ObjectStore is where encoded archives land. Object names are
// slash-separated paths ("royalty/local/ALICE.avks"); stores are free to
// map them onto buckets, directories, or flat key spaces.
type ObjectStore interface {
	// Put writes an object, replacing any previous version atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads an object in full.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all objects under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
