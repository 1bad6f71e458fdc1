//go:build unix

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap returns an Allocator backed by private anonymous mappings.
// The kernel supplies zero pages lazily, so untouched blocks cost no RSS.
func Mmap() Allocator {
	return mmap{}
}

type mmap struct{}

func (mmap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: %w: %d", ErrInvalidSize, size)
	}
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w: %w", size, ErrOutOfMemory, err)
	}
	return buf, nil
}

func (mmap) Free(buf []byte) error {
	if err := unix.Munmap(buf); err != nil {
		return fmt.Errorf("munmap: %w: %w", ErrForeign, err)
	}
	return nil
}
