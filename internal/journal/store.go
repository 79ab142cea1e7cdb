// Package journal implements the append-only flat-file journal.
package journal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/storage"
)

// DefaultFile is the journal file name inside the data directory.
const DefaultFile = "journal.txt"

// Store appends entries to, and lists entries from, a single journal file.
//
// Appends from one process are serialised. Writers in other processes are
// not coordinated with and may interleave.
type Store struct {
	files storage.Provider
	path  string
	now   func() time.Time

	mu sync.RWMutex
}

// NewStore creates a journal at path (relative to the provider root).
// now defaults to time.Now when nil.
func NewStore(files storage.Provider, path string, now func() time.Time) *Store {
	if path == "" {
		path = DefaultFile
	}
	if now == nil {
		now = time.Now
	}
	return &Store{files: files, path: path, now: now}
}

// Path returns the journal file path relative to the data directory.
func (s *Store) Path() string {
	return s.path
}

// Append stamps text with the current time and writes it to the end of the
// journal. The text is stored exactly as given; blank text is rejected with
// apperr.ErrInvalidInput.
func (s *Store) Append(ctx context.Context, text string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Entry{}, fmt.Errorf("journal: entry text is required: %w", apperr.ErrInvalidInput)
	}
	ts := s.now().Truncate(time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.files.Append(s.path, encodeLine(ts, text)); err != nil {
		return Entry{}, fmt.Errorf("journal: append: %w: %w", apperr.ErrIO, err)
	}
	return newEntry(ts, text), nil
}

// List returns every entry in write order. A missing journal is empty.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, err := s.files.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("journal: open: %w: %w", apperr.ErrIO, err)
	}
	defer rc.Close()

	entries := []Entry{}
	r := bufio.NewReader(rc)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, readErr := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			entries = append(entries, decodeLine(line))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("journal: read: %w: %w", apperr.ErrIO, readErr)
		}
	}
	return entries, nil
}

// Recent returns entries written within window of now, latest first.
// Entries without a timestamp are skipped.
func (s *Store) Recent(ctx context.Context, window time.Duration) ([]Entry, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-window)
	var out []Entry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if e.Time.IsZero() || e.Time.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
