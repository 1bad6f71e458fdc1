//go:build !unix

package fileio

import (
	"errors"
	"io"
	"os"
)

// The os package already retries interrupted calls on these platforms.

func readFull(file *os.File, p []byte) (n int, err error) {
	n, err = io.ReadFull(file, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return
}

func writeFull(file *os.File, p []byte) (n int, err error) {
	for n < len(p) {
		c, err := file.Write(p[n:])
		n += c
		if err != nil {
			return n, err
		}
		if c == 0 {
			return n, nil
		}
	}
	return n, nil
}
