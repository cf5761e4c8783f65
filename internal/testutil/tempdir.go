package testutil

import "testing"

// TempDir returns a directory that is removed when the test ends.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}
