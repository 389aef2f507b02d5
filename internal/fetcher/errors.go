package fetcher

import (
	"errors"
	"fmt"
)

// ErrEmptyResult matches every *EmptyResultError.
var ErrEmptyResult = errors.New("empty result")

// StoreError wraps a failed store lookup with the path it was issued for.
type StoreError struct {
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store lookup %q: %v", e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// EmptyResultError reports a fine block that listed no items.
type EmptyResultError struct {
	Path string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("store lookup %q: no children", e.Path)
}

func (e *EmptyResultError) Is(target error) bool { return target == ErrEmptyResult }
