// Package fileproc fans per-file work out over a bounded goroutine pool.
package fileproc

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/locus/pkg/parser"
	"github.com/panbanda/locus/pkg/source"
)

// ProgressFunc is called once per path, whether it succeeded or not.
type ProgressFunc func()

// ErrorFunc receives each failed path. A nil ErrorFunc drops failures.
type ErrorFunc func(path string, err error)

// ForEach runs fn for every path on at most workers goroutines (2x NumCPU
// when workers <= 0). Successful results come back in input order; a
// failed path is passed to onError and left out. Paths not yet started
// when ctx is done fail with ctx.Err().
func ForEach[T any](ctx context.Context, paths []string, workers int, fn func(string) (T, error), onProgress ProgressFunc, onError ErrorFunc) []T {
	if len(paths) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 2 * runtime.NumCPU()
	}

	values := make([]T, len(paths))
	done := make([]bool, len(paths))

	p := pool.New().WithMaxGoroutines(workers)
	for i, path := range paths {
		p.Go(func() {
			if onProgress != nil {
				defer onProgress()
			}
			v, err := run(ctx, path, fn)
			if err != nil {
				if onError != nil {
					onError(path, err)
				}
				return
			}
			values[i], done[i] = v, true
		})
	}
	p.Wait()

	out := values[:0]
	for i, ok := range done {
		if ok {
			out = append(out, values[i])
		}
	}
	return out
}

func run[T any](ctx context.Context, path string, fn func(string) (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return fn(path)
}

// MapFiles runs fn over loaded files, giving each task its own parser.
// The error collection is nil when every file succeeded.
func MapFiles[T any](ctx context.Context, files []source.File, fn func(*parser.Parser, source.File) (T, error)) ([]T, *ProcessingErrors) {
	byPath := make(map[string]source.File, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		paths = append(paths, f.Path)
	}

	errs := &ProcessingErrors{}
	results := ForEach(ctx, paths, 0, func(path string) (T, error) {
		psr := parser.New()
		defer psr.Close()
		return fn(psr, byPath[path])
	}, nil, errs.Add)
	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// LoadFiles reads paths through src, keeping their order. RelPath is
// relative to root with forward slashes. Unreadable files go to onError.
func LoadFiles(ctx context.Context, paths []string, root string, src source.ContentSource, onProgress ProgressFunc, onError ErrorFunc) []source.File {
	return ForEach(ctx, paths, 0, func(path string) (source.File, error) {
		content, err := src.Read(path)
		if err != nil {
			return source.File{}, err
		}
		return source.File{Path: path, RelPath: relativePath(root, path), Content: content}, nil
	}, onProgress, onError)
}

func relativePath(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
