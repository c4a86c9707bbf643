package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDir creates a temporary directory for testing
func TempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "disktwo-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

// TempFile returns a path inside a fresh temporary directory. The file
// itself is not created; index files are created by the engine on open.
func TempFile(t *testing.T, name string) string {
	return filepath.Join(TempDir(t), name)
}
