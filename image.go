package blockstore

import (
	"fmt"
	"io"
	"os"

	"github.com/dacapoday/blockstore/internal/fileio"
	"github.com/sirupsen/logrus"
)

// sections returns the image in on-disk order. The slices alias the store.
func (store *Store) sections() [2][]byte {
	return [2][]byte{store.fbm.Bytes(), store.data}
}

// Export writes the whole store to path as a flat image of ImageSize bytes,
// replacing any existing file. The dirty map is not part of the image.
// It returns ImageSize, or 0 with an error.
func (store *Store) Export(path string) (n int64, err error) {
	if err = store.usable(opExport); err != nil {
		return 0, err
	}
	if path == "" {
		return 0, paramError(opExport, 0, ErrEmptyPath)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, store.mode)
	if err != nil {
		return 0, &Error{Op: opExport, Kind: KindFileAccess, Path: path, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			n, err = 0, &Error{Op: opExport, Kind: KindFileIO, Path: path, Err: cerr}
		}
	}()

	for _, section := range store.sections() {
		c, err := fileio.WriteFull(file, section)
		n += int64(c)
		if err != nil {
			store.log.WithFields(logrus.Fields{"op": opExport, "path": path, "bytes": n}).
				WithError(err).Error("image left incomplete")
			return 0, &Error{Op: opExport, Kind: KindFileIO, Path: path, Err: err}
		}
	}

	store.log.WithFields(logrus.Fields{"op": opExport, "path": path, "bytes": n}).Debug("image exported")
	return n, nil
}

// WriteTo streams the image to w. It implements io.WriterTo.
func (store *Store) WriteTo(w io.Writer) (n int64, err error) {
	if err = store.usable(opWriteTo); err != nil {
		return 0, err
	}
	for _, section := range store.sections() {
		c, err := w.Write(section)
		n += int64(c)
		if err == nil && c < len(section) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return n, &Error{Op: opWriteTo, Kind: KindFileIO, Err: err}
		}
	}
	return n, nil
}

// Import builds a store from an image written by Export. The image must be
// exactly ImageSize bytes and mark every reserved block allocated. The new
// store has no write history: only the reserved blocks are dirty.
func Import(path string, opts ...Option) (store *Store, err error) {
	if path == "" {
		return nil, paramError(opImport, 0, ErrEmptyPath)
	}
	cfg := newConfig(opts)

	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: opImport, Kind: KindFileAccess, Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &Error{Op: opImport, Kind: KindFileIO, Path: path, Err: err}
	}
	if size := info.Size(); size != ImageSize {
		return nil, &Error{Op: opImport, Kind: KindFileIO, Path: path,
			Err: fmt.Errorf("%w: %d bytes, want %d", ErrImageSize, size, ImageSize)}
	}

	store, err = load(opImport, cfg, func(p []byte) error {
		_, err := fileio.ReadFull(file, p)
		return err
	})
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = path
		}
		return nil, err
	}

	store.log.WithFields(logrus.Fields{"op": opImport, "path": path, "bytes": ImageSize}).Debug("image imported")
	return store, nil
}

// Load builds a store from the first ImageSize bytes of r, with the same
// checks as Import.
func Load(r io.Reader, opts ...Option) (*Store, error) {
	return load(opLoad, newConfig(opts), func(p []byte) error {
		_, err := io.ReadFull(r, p)
		return err
	})
}

func load(op string, cfg config, read func(p []byte) error) (store *Store, err error) {
	store, err = create(op, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if cerr := store.Close(); cerr != nil {
				store.log.WithField("op", op).WithError(cerr).Error("release buffer")
			}
			store = nil
		}
	}()

	// the fresh maps are overwritten in place; the dirty map stays as created
	for _, section := range store.sections() {
		if err = read(section); err != nil {
			return store, &Error{Op: op, Kind: KindFileIO, Err: err}
		}
	}
	if reserved := store.fbm.CountRange(0, ReservedBlocks); reserved != ReservedBlocks {
		return store, &Error{Op: op, Kind: KindFileIO,
			Err: fmt.Errorf("%w: %d of %d reserved blocks marked in use", ErrCorruptImage, reserved, ReservedBlocks)}
	}
	return store, nil
}
