package blockstore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dacapoday/blockstore/arena"
	"github.com/dacapoday/blockstore/mem"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// populate allocates a few blocks, writes some of them and releases one.
func populate(t *testing.T, store *Store) {
	t.Helper()
	for i := range 32 {
		id, err := store.Allocate()
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = store.Write(id, bytes.Repeat([]byte{byte(i + 1)}, 64), Offset(i*8))
			require.NoError(t, err)
		}
	}
	_, err := store.Release(ReservedBlocks + 3)
	require.NoError(t, err)
	_, err = store.Write(BlockCount-1, []byte("tail"), BlockSize-4)
	require.ErrorIs(t, err, ErrMismatch)
}

func requireSameImage(t *testing.T, want, got *Store) {
	t.Helper()
	require.True(t, bytes.Equal(want.fbm.Bytes(), got.fbm.Bytes()), "free-block map differs")
	require.True(t, bytes.Equal(want.data, got.data), "data region differs")
}

func requireFreshDirtyMap(t *testing.T, store *Store) {
	t.Helper()
	fresh := newStore(t)
	require.Equal(t, fresh.dbm.Bytes(), store.dbm.Bytes())
	require.Zero(t, store.DirtyBlocks())
}

func TestExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.img")

	orig := newStore(t)
	populate(t, orig)
	require.NotZero(t, orig.DirtyBlocks())

	n, err := orig.Export(path)
	require.NoError(t, err)
	require.EqualValues(t, ImageSize, n)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, ImageSize, info.Size())

	imported, err := Import(path)
	require.NoError(t, err)
	t.Cleanup(func() { imported.Close() })

	requireSameImage(t, orig, imported)
	requireFreshDirtyMap(t, imported)
	require.Equal(t, orig.FreeBlocks(), imported.FreeBlocks())

	// allocation resumes at the lowest hole
	id, err := imported.Allocate()
	require.NoError(t, err)
	require.Equal(t, BlockID(ReservedBlocks+3), id)
}

func TestExportLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.img")

	store := newStore(t)
	id, err := store.Allocate()
	require.NoError(t, err)
	_, err = store.Write(id, []byte("abc"), 5)
	require.NoError(t, err)

	_, err = store.Export(path)
	require.NoError(t, err)

	img, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, img, ImageSize)

	// reserved blocks 0..7 plus block 8 are allocated
	require.Equal(t, byte(0xFF), img[0])
	require.Equal(t, byte(0x01), img[1])
	require.Equal(t, byte(0x00), img[2])
	require.Equal(t, "abc", string(img[fbmSize+5:fbmSize+8]))
}

func TestExportOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.img")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAB}, ImageSize+100), 0600))

	store := newStore(t)
	_, err := store.Export(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, ImageSize, info.Size(), "export truncates")
}

func TestExportErrors(t *testing.T) {
	store := newStore(t)

	_, err := store.Export("")
	require.ErrorIs(t, err, ErrParam)

	n, err := store.Export(filepath.Join(t.TempDir(), "missing", "dir", "x.img"))
	require.ErrorIs(t, err, ErrFileAccess)
	require.Zero(t, n)

	var e *Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, opExport, e.Op)
	require.NotEmpty(t, e.Path)
}

func TestExportFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.img")
	store := newStore(t, WithFileMode(0600))
	_, err := store.Export(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestImportErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Import("")
	require.ErrorIs(t, err, ErrParam)

	store, err := Import(filepath.Join(dir, "absent.img"))
	require.Nil(t, store)
	require.ErrorIs(t, err, ErrFileAccess)
	require.ErrorIs(t, err, os.ErrNotExist)

	for _, size := range []int{0, fbmSize, ImageSize - 1, ImageSize + 1} {
		path := filepath.Join(dir, "sized.img")
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0600))

		store, err := Import(path)
		require.Nil(t, store, "size %d", size)
		require.ErrorIs(t, err, ErrFileIO, "size %d", size)
		require.ErrorIs(t, err, ErrImageSize, "size %d", size)
	}
}

func TestImportCorruptReserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.img")

	img := make([]byte, ImageSize)
	img[0] = 0x7F // block 7 not marked in use
	require.NoError(t, os.WriteFile(path, img, 0600))

	limit := arena.Limit(arena.Heap, ImageSize+fbmSize)
	store, err := Import(path, WithAllocator(limit))
	require.Nil(t, store)
	require.ErrorIs(t, err, ErrFileIO)
	require.ErrorIs(t, err, ErrCorruptImage)
	require.Zero(t, limit.InUse(), "partially built store must be released")
}

func TestImportOutOfMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.img")
	store := newStore(t)
	_, err := store.Export(path)
	require.NoError(t, err)

	limit := arena.Limit(arena.Heap, ImageSize)
	imported, err := Import(path, WithAllocator(limit))
	require.Nil(t, imported)
	require.ErrorIs(t, err, ErrMemory)
	require.Zero(t, limit.InUse())
}

func TestWriteToLoad(t *testing.T) {
	orig := newStore(t)
	populate(t, orig)

	var file mem.File
	defer file.Close()

	n, err := orig.WriteTo(&file)
	require.NoError(t, err)
	require.EqualValues(t, ImageSize, n)
	require.EqualValues(t, ImageSize, file.Size())

	loaded, err := Load(io.NewSectionReader(&file, 0, file.Size()))
	require.NoError(t, err)
	t.Cleanup(func() { loaded.Close() })

	requireSameImage(t, orig, loaded)
	requireFreshDirtyMap(t, loaded)
}

func TestWriteToMatchesExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.img")
	store := newStore(t)
	populate(t, store)

	_, err := store.Export(path)
	require.NoError(t, err)
	img, err := os.ReadFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = store.WriteTo(&buf)
	require.NoError(t, err)
	require.True(t, bytes.Equal(img, buf.Bytes()))
}

type failingWriter struct{ budget int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.budget {
		n := w.budget
		w.budget = 0
		return n, io.ErrClosedPipe
	}
	w.budget -= len(p)
	return len(p), nil
}

func TestWriteToShort(t *testing.T) {
	store := newStore(t)

	n, err := store.WriteTo(&failingWriter{budget: fbmSize + 10})
	require.ErrorIs(t, err, ErrFileIO)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.EqualValues(t, fbmSize+10, n)
}

func TestLoadShort(t *testing.T) {
	limit := arena.Limit(arena.Heap, ImageSize+fbmSize)

	img := make([]byte, ImageSize-1)
	for i := range fbmSize {
		img[i] = 0xFF
	}
	store, err := Load(bytes.NewReader(img), WithAllocator(limit))
	require.Nil(t, store)
	require.ErrorIs(t, err, ErrFileIO)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Zero(t, limit.InUse(), "truncated data must not yield a store")

	store, err = Load(bytes.NewReader(nil))
	require.Nil(t, store)
	require.ErrorIs(t, err, io.EOF)
}

// stuckAllocator hands out heap memory but refuses to take it back.
type stuckAllocator struct{}

func (stuckAllocator) Alloc(size int) ([]byte, error) { return arena.Heap.Alloc(size) }
func (stuckAllocator) Free([]byte) error { return errors.New("unmap failed") }

func TestLoadLogsFailedRelease(t *testing.T) {
	log, hook := logtest.NewNullLogger()

	loaded, err := Load(bytes.NewReader(make([]byte, 100)), WithLogger(log), WithAllocator(stuckAllocator{}))
	require.Nil(t, loaded)
	require.ErrorIs(t, err, ErrFileIO)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.ErrorLevel, entry.Level)
	require.Equal(t, "release buffer", entry.Message)
	require.Equal(t, opLoad, entry.Data["op"])
	require.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), ErrInternal)
}
