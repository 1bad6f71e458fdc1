// Package mem provides an in-memory file that block store images can be
// streamed into and loaded back from without touching the disk.
package mem

import (
	"io"
	"sync"
)

// File is an in-memory, growable byte file.
// It is safe for concurrent use by multiple goroutines.
//
// File requires no initialization - just declare and use:
//
//	var f File
//	store.WriteTo(&f)
//	blockstore.Load(io.NewSectionReader(&f, 0, f.Size()))
type File struct {
	rw   sync.RWMutex
	data []byte
}

var (
	_ io.ReaderAt   = (*File)(nil)
	_ io.WriterAt   = (*File)(nil)
	_ io.Writer     = (*File)(nil)
	_ io.ReaderFrom = (*File)(nil)
	_ io.WriterTo   = (*File)(nil)
	_ io.Closer     = (*File)(nil)
)

// Close discards the contents. The file may be written again afterwards.
func (file *File) Close() error {
	file.rw.Lock()
	file.data = nil
	file.rw.Unlock()
	return nil
}

// Size returns the current size of the file in bytes.
func (file *File) Size() int64 {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return int64(len(file.data))
}

// Write appends p to the end of the file.
func (file *File) Write(p []byte) (n int, err error) {
	file.rw.Lock()
	file.data = append(file.data, p...)
	file.rw.Unlock()
	return len(p), nil
}

// WriteAt writes len(p) bytes from p at offset off, growing the file and
// zero-filling any gap. A negative offset returns io.ErrUnexpectedEOF.
func (file *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	file.rw.Lock()
	defer file.rw.Unlock()
	if end := off + int64(len(p)); end > int64(len(file.data)) {
		file.grow(end)
	}
	return copy(file.data[off:], p), nil
}

// ReadAt reads len(p) bytes at offset off. Fewer bytes come with io.EOF.
func (file *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	file.rw.RLock()
	defer file.rw.RUnlock()
	if off >= int64(len(file.data)) {
		return 0, io.EOF
	}
	n = copy(p, file.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}

// ReadFrom replaces the file contents with everything read from r.
// io.EOF from r is not reported.
func (file *File) ReadFrom(r io.Reader) (n int64, err error) {
	file.rw.Lock()
	defer file.rw.Unlock()

	file.data = file.data[:0]
	buf := make([]byte, 32*1024)
	for {
		c, err := r.Read(buf)
		if c > 0 {
			file.data = append(file.data, buf[:c]...)
			n += int64(c)
		}
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// WriteTo writes the whole file to w under a read lock.
func (file *File) WriteTo(w io.Writer) (n int64, err error) {
	file.rw.RLock()
	defer file.rw.RUnlock()
	c, err := w.Write(file.data)
	return int64(c), err
}

// Bytes returns the file contents. The slice aliases the file until the
// next write, Truncate or Close.
func (file *File) Bytes() []byte {
	file.rw.RLock()
	defer file.rw.RUnlock()
	return file.data
}

// Truncate changes the size of the file, zero-filling when it grows.
func (file *File) Truncate(size int64) error {
	if size < 0 {
		return io.ErrUnexpectedEOF
	}
	file.rw.Lock()
	defer file.rw.Unlock()
	if size <= int64(len(file.data)) {
		file.data = file.data[:size]
	} else {
		file.grow(size)
	}
	return nil
}

// Sync is a no-op.
func (file *File) Sync() error {
	return nil
}

// grow extends data to size bytes. Caller holds the write lock.
func (file *File) grow(size int64) {
	if size <= int64(cap(file.data)) {
		old := len(file.data)
		file.data = file.data[:size]
		clear(file.data[old:])
		return
	}
	data := make([]byte, size, size+size/4)
	copy(data, file.data)
	file.data = data
}
