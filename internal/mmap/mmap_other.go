//go:build !unix

package mmap

import "os"

// Map is unavailable on this platform; callers fall back to plain file I/O.
func Map(*os.File, int) (*Mapping, error) {
	return nil, ErrUnsupported
}
