//go:build unix

package fileio

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func readFull(file *os.File, p []byte) (n int, err error) {
	fd := int(file.Fd())
	defer runtime.KeepAlive(file)
	for n < len(p) {
		c, err := unix.Read(fd, p[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, err
		}
		if c == 0 {
			// end of file
			return n, nil
		}
		n += c
	}
	return n, nil
}

func writeFull(file *os.File, p []byte) (n int, err error) {
	fd := int(file.Fd())
	defer runtime.KeepAlive(file)
	for n < len(p) {
		c, err := unix.Write(fd, p[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, err
		}
		if c == 0 {
			return n, nil
		}
		n += c
	}
	return n, nil
}
