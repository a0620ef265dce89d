package source

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSource(t *testing.T) {
	src := NewFilesystem()

	content, err := src.Read("../../go.mod")
	require.NoError(t, err)
	assert.Contains(t, string(content), "module github.com/panbanda/locus")

	_, err = src.Read("nonexistent.txt")
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	src := NewMemory(map[string]string{"a.py": "def f(): pass\n"})

	content, err := src.Read("a.py")
	require.NoError(t, err)
	assert.Equal(t, "def f(): pass\n", string(content))

	_, err = src.Read("missing.py")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	src.Put("b.py", []byte("x = 1\n"))
	content, err = src.Read("b.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
}

func TestMemorySource_Concurrent(t *testing.T) {
	src := NewMemory(nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Put("f.py", []byte{byte('a' + i)})
			_, _ = src.Read("f.py")
		}()
	}
	wg.Wait()

	_, err := src.Read("f.py")
	assert.NoError(t, err)
}
