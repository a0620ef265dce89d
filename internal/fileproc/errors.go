package fileproc

import (
	"fmt"
	"sync"
)

// ProcessingError ties a failure to the file that caused it.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors is a concurrency-safe list of per-file failures.
// Its Add method has the ErrorFunc signature.
type ProcessingErrors struct {
	mu     sync.Mutex
	Errors []ProcessingError
}

func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
}

// HasErrors is false for a nil or empty collection.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) != 0
}

func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch n := len(e.Errors); n {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d files failed, first was %v", n, e.Errors[0])
	}
}
