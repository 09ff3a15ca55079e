// Package testutil provides helpers for examples and tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RemoveAll removes the path and any children. Errors are ignored.
// Use for defer cleanup in examples that spool bodies to disk.
//
// Usage:
//
//	defer testutil.RemoveAll(tmpDir)
func RemoveAll(path string) { _ = os.RemoveAll(path) }

// WriteTemp writes data to name inside a temp directory owned by tb and
// returns the file path.
func WriteTemp(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("writing %s: %v", path, err)
	}
	return path
}
