// Package fileio moves exact byte counts between buffers and open files.
//
// Both directions retry transparently when the kernel interrupts the call
// and report the number of bytes actually transferred on failure.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrShortRead  = io.ErrUnexpectedEOF
	ErrShortWrite = io.ErrShortWrite
	ErrNilFile    = errors.New("nil file")
)

// ReadFull reads exactly len(p) bytes from the current position of file.
// n < len(p) is always accompanied by a non-nil error.
func ReadFull(file *os.File, p []byte) (n int, err error) {
	if file == nil {
		return 0, ErrNilFile
	}
	n, err = readFull(file, p)
	if err == nil && n < len(p) {
		err = ErrShortRead
	}
	if err != nil {
		err = fmt.Errorf("read %s: %d of %d bytes: %w", file.Name(), n, len(p), err)
	}
	return
}

// WriteFull writes all of p at the current position of file.
// n < len(p) is always accompanied by a non-nil error.
func WriteFull(file *os.File, p []byte) (n int, err error) {
	if file == nil {
		return 0, ErrNilFile
	}
	n, err = writeFull(file, p)
	if err == nil && n < len(p) {
		err = ErrShortWrite
	}
	if err != nil {
		err = fmt.Errorf("write %s: %d of %d bytes: %w", file.Name(), n, len(p), err)
	}
	return
}
