// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package bitmap provides a fixed-length bit set laid over caller-owned memory.
//
// Bit i lives in byte i/8 under mask 1<<(i%8), so Bytes is directly usable
// as an on-disk serialization.
package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrInvalidLength = errors.New("invalid bitmap length")
	ErrShortBuffer   = errors.New("short bitmap buffer")
)

// Bitmap is not safe for concurrent use.
type Bitmap struct {
	bits []byte
	n    int
}

// Size returns the number of bytes needed to hold n bits.
func Size(n int) int {
	return (n + 7) / 8
}

// New lays a bitmap of n bits over buf and clears it.
// buf must hold at least Size(n) bytes; only that prefix is used.
func New(buf []byte, n int) (*Bitmap, error) {
	if n <= 0 {
		return nil, fmt.Errorf("bitmap.New(%d): %w", n, ErrInvalidLength)
	}
	size := Size(n)
	if len(buf) < size {
		return nil, fmt.Errorf("bitmap.New(%d): %w: %d < %d", n, ErrShortBuffer, len(buf), size)
	}
	m := &Bitmap{bits: buf[:size:size], n: n}
	clear(m.bits)
	return m, nil
}

func (m *Bitmap) Len() int {
	return m.n
}

func (m *Bitmap) check(i int) {
	if uint(i) >= uint(m.n) {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, m.n))
	}
}

func (m *Bitmap) Test(i int) bool {
	m.check(i)
	return m.bits[i>>3]&(1<<(i&7)) != 0
}

func (m *Bitmap) Set(i int) {
	m.check(i)
	m.bits[i>>3] |= 1 << (i & 7)
}

func (m *Bitmap) Reset(i int) {
	m.check(i)
	m.bits[i>>3] &^= 1 << (i & 7)
}

// SetRange sets bits [from, to).
func (m *Bitmap) SetRange(from, to int) {
	for i := from; i < to; i++ {
		m.Set(i)
	}
}

// FirstZero returns the lowest clear bit, or false when every bit is set.
func (m *Bitmap) FirstZero() (int, bool) {
	return m.FirstZeroFrom(0)
}

// FirstZeroFrom returns the lowest clear bit at or after from.
func (m *Bitmap) FirstZeroFrom(from int) (int, bool) {
	if from < 0 {
		from = 0
	}
	i := from
	// walk bit by bit up to a word boundary, then eight bytes at a time
	for ; i < m.n && i&63 != 0; i++ {
		if !m.Test(i) {
			return i, true
		}
	}
	for ; i+64 <= m.n; i += 64 {
		word := binary.LittleEndian.Uint64(m.bits[i>>3:])
		if word != ^uint64(0) {
			return i + bits.TrailingZeros64(^word), true
		}
	}
	for ; i < m.n; i++ {
		if !m.Test(i) {
			return i, true
		}
	}
	return 0, false
}

// Count returns the number of set bits.
func (m *Bitmap) Count() (count int) {
	full := m.n >> 3
	for _, b := range m.bits[:full] {
		count += bits.OnesCount8(b)
	}
	for i := full << 3; i < m.n; i++ {
		if m.Test(i) {
			count++
		}
	}
	return
}

// CountRange returns the number of set bits in [from, to).
func (m *Bitmap) CountRange(from, to int) (count int) {
	for i := from; i < to; i++ {
		if m.Test(i) {
			count++
		}
	}
	return
}

// Bytes exposes the backing storage. The slice aliases the bitmap.
func (m *Bitmap) Bytes() []byte {
	return m.bits
}

// Load replaces the bitmap contents with p, which must be exactly Size(Len()) bytes.
func (m *Bitmap) Load(p []byte) error {
	if len(p) != len(m.bits) {
		return fmt.Errorf("bitmap.Load: %w: %d != %d", ErrInvalidLength, len(p), len(m.bits))
	}
	copy(m.bits, p)
	return nil
}
