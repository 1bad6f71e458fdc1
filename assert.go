//go:build debug

package blockstore

import "fmt"

// assertSpan panics if [pos, pos+n) leaves the data region.
// Only enabled with -tags debug.
func assertSpan(op string, pos, n int) {
	if pos < 0 || n < 0 || pos+n > dataSize {
		panic(fmt.Sprintf("%s: span [%d, %d) outside data region [0, %d)", op, pos, pos+n, dataSize))
	}
}
