// Package storage defines the data-directory file abstraction.
package storage

import (
	"io"
	"time"
)

// FileInfo is the subset of file metadata callers need.
type FileInfo struct {
	Path      string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for data-directory file operations.
// All paths are relative to the data directory root.
type Provider interface {
	// Open returns a reader for the file at path. The caller must close it.
	Open(path string) (io.ReadCloser, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Append writes content to the end of path, creating it if needed,
	// and flushes it to disk before returning.
	Append(path string, content []byte) error
	// Write atomically replaces the content of path.
	Write(path string, content []byte) error
	// Stat returns metadata for path.
	Stat(path string) (FileInfo, error)
	// Abs resolves path to an absolute file-system path inside the root.
	Abs(path string) (string, error)
}
