package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTree(t *testing.T) {
	dir := WriteTree(t, map[string]string{
		"a.py":         "x = 1\n",
		"pkg/sub/b.py": "y = 2\n",
	})

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "sub", "b.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "y = 2\n" {
		t.Errorf("content = %q", data)
	}
}

func TestRenamedPair(t *testing.T) {
	a := RenamedPair()
	a["c.py"] = ""
	if len(RenamedPair()) != 2 {
		t.Error("RenamedPair should return a fresh map")
	}
}
