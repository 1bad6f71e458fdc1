// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package arena provides the memory a block store is built on.
//
// An Allocator hands out zero-filled buffers and takes them back. Every
// buffer obtained from Alloc must be passed to Free of the same Allocator
// exactly once.
package arena

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInvalidSize = errors.New("invalid size")
	ErrOutOfMemory = errors.New("out of memory")
	ErrUnsupported = errors.New("unsupported")
	ErrForeign     = errors.New("foreign buffer")
)

type Allocator interface {
	// Alloc returns a zero-filled buffer of exactly size bytes.
	Alloc(size int) ([]byte, error)
	// Free returns buf to the allocator.
	Free(buf []byte) error
}

// Heap allocates from the Go heap. Free drops nothing but the reference.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("heap: %w: %d", ErrInvalidSize, size)
	}
	return make([]byte, size), nil
}

func (heap) Free([]byte) error {
	return nil
}

// Limit wraps parent with a budget of max live bytes.
// Allocations that would exceed the budget fail with ErrOutOfMemory.
func Limit(parent Allocator, max int) *Limited {
	return &Limited{parent: parent, max: max}
}

// Limited is safe for concurrent use.
type Limited struct {
	parent Allocator
	mutex  sync.Mutex
	max    int
	inuse  int
}

func (l *Limited) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("limit: %w: %d", ErrInvalidSize, size)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.inuse+size > l.max {
		return nil, fmt.Errorf("limit: %w: %d in use, %d requested, %d max", ErrOutOfMemory, l.inuse, size, l.max)
	}
	buf, err := l.parent.Alloc(size)
	if err != nil {
		return nil, err
	}
	l.inuse += size
	return buf, nil
}

func (l *Limited) Free(buf []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if len(buf) > l.inuse {
		return fmt.Errorf("limit: %w: %d bytes, %d in use", ErrForeign, len(buf), l.inuse)
	}
	if err := l.parent.Free(buf); err != nil {
		return err
	}
	l.inuse -= len(buf)
	return nil
}

// InUse returns the number of live bytes.
func (l *Limited) InUse() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.inuse
}
