// Package testutil builds Python source trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// WriteTree writes files under a fresh temp dir and returns the dir.
// Keys are slash-separated paths relative to the root.
func WriteTree(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

// RenamedPair returns two modules whose only function differs by
// identifier names: ast groups them, exact does not.
func RenamedPair() map[string]string {
	return map[string]string{
		"a.py": "def area(w, h):\n    return w * h\n",
		"b.py": "def size(width, height):\n    return width * height\n",
	}
}
