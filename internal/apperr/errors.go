// Package apperr holds the sentinel errors shared across daybook layers.
package apperr

import "errors"

var (
	// ErrInvalidInput marks malformed or missing user input (dates, entry text).
	ErrInvalidInput = errors.New("invalid input")
	// ErrIO marks a failure to read or write the journal or settings files.
	ErrIO = errors.New("i/o error")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a failed call to an external service.
	ErrUpstream = errors.New("upstream error")
)
