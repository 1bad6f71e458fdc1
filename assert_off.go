//go:build !debug

package blockstore

// assertSpan is a no-op in production.
// Enable with -tags debug for runtime checks.
func assertSpan(string, int, int) {}
