//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Map maps size bytes of f read-write and shared. The file must already be
// at least size bytes long.
func Map(f *os.File, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data: data,
		flush: func(b []byte) error {
			return unix.Msync(b, unix.MS_SYNC)
		},
		unmap: unix.Munmap,
	}, nil
}
