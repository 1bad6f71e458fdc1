package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newBitmap(t *testing.T, n int) *Bitmap {
	t.Helper()
	m, err := New(make([]byte, Size(n)), n)
	require.NoError(t, err, "bitmap.New")
	return m
}

func TestBitmapNew(t *testing.T) {
	_, err := New(nil, 0)
	require.ErrorIs(t, err, ErrInvalidLength)

	_, err = New(make([]byte, 3), 32)
	require.ErrorIs(t, err, ErrShortBuffer)

	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xAA}
	m, err := New(buf, 32)
	require.NoError(t, err)
	require.Equal(t, 32, m.Len())
	require.Len(t, m.Bytes(), 4)
	require.Equal(t, []byte{0, 0, 0, 0, 0xAA}, buf, "only the used prefix is cleared")
}

func TestBitmapSetTestReset(t *testing.T) {
	m := newBitmap(t, 511)

	for i := range 511 {
		require.False(t, m.Test(i), "bit %d should not be set initially", i)
	}

	for i := range 128 {
		m.Set(i * 2)
	}

	for i := range 511 {
		v := m.Test(i)
		switch {
		case i < 256 && i%2 == 0:
			require.True(t, v, "bit %d should be set", i)
		default:
			require.False(t, v, "bit %d should not be set", i)
		}
	}

	m.Reset(0)
	m.Reset(1)
	require.False(t, m.Test(0))
	require.False(t, m.Test(1))
	require.Equal(t, 127, m.Count())
}

func TestBitmapLayout(t *testing.T) {
	m := newBitmap(t, 16)
	m.Set(0)
	m.Set(3)
	m.Set(9)
	require.Equal(t, []byte{0b0000_1001, 0b0000_0010}, m.Bytes())
}

func TestBitmapOutOfRange(t *testing.T) {
	m := newBitmap(t, 10)
	require.Panics(t, func() { m.Test(10) })
	require.Panics(t, func() { m.Set(-1) })
	require.Panics(t, func() { m.Reset(16) })
}

func TestBitmapFirstZero(t *testing.T) {
	m := newBitmap(t, 32)

	m.Set(1)
	m.Set(2)
	m.Set(7)
	m.Set(31)

	i, ok := m.FirstZero()
	require.True(t, ok)
	require.Equal(t, 0, i)

	m.Set(0)
	i, ok = m.FirstZero()
	require.True(t, ok)
	require.Equal(t, 3, i)

	m.SetRange(3, 7)
	m.Set(9)
	i, ok = m.FirstZero()
	require.True(t, ok)
	require.Equal(t, 8, i)

	m.SetRange(8, 31)
	_, ok = m.FirstZero()
	require.False(t, ok)
}

func TestBitmapFirstZeroFrom(t *testing.T) {
	const n = 1 << 12
	m := newBitmap(t, n)
	m.SetRange(0, 8)

	i, ok := m.FirstZeroFrom(0)
	require.True(t, ok)
	require.Equal(t, 8, i)

	i, ok = m.FirstZeroFrom(100)
	require.True(t, ok)
	require.Equal(t, 100, i)

	// cross several full words
	m.SetRange(0, 1000)
	i, ok = m.FirstZeroFrom(3)
	require.True(t, ok)
	require.Equal(t, 1000, i)

	m.SetRange(1000, n-1)
	i, ok = m.FirstZeroFrom(0)
	require.True(t, ok)
	require.Equal(t, n-1, i)

	m.Set(n - 1)
	_, ok = m.FirstZeroFrom(0)
	require.False(t, ok)
	require.Equal(t, n, m.Count())
}

func TestBitmapFirstZeroOddLength(t *testing.T) {
	m := newBitmap(t, 70)
	m.SetRange(0, 69)
	i, ok := m.FirstZero()
	require.True(t, ok)
	require.Equal(t, 69, i)

	m.Set(69)
	_, ok = m.FirstZero()
	require.False(t, ok, "padding bits past Len must not be reported")
}

func TestBitmapLoad(t *testing.T) {
	m := newBitmap(t, 16)
	require.ErrorIs(t, m.Load([]byte{1}), ErrInvalidLength)

	require.NoError(t, m.Load([]byte{0x81, 0x01}))
	require.True(t, m.Test(0))
	require.True(t, m.Test(7))
	require.True(t, m.Test(8))
	require.Equal(t, 3, m.Count())
	require.Equal(t, 2, m.CountRange(0, 8))
}
