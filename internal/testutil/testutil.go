// Package testutil provides shared test helpers for setting up data directories,
// journals, counters and index databases.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/storage"
)

// Now is the fixed instant test clocks start from.
var Now = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

// DefaultStart is the start date counters are created with.
var DefaultStart = time.Date(2025, 8, 4, 0, 6, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "daybook-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with a storage.Provider.
func TestDataDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// SteppingClock returns Now on the first call and one minute later on each
// following call.
func SteppingClock() func() time.Time {
	var mu sync.Mutex
	cur := Now
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(time.Minute)
		return t
	}
}

// TestJournal creates a journal store and a counter over fs using test clocks.
func TestJournal(t *testing.T, fs storage.Provider) (*journal.Store, *daycount.Counter) {
	t.Helper()
	j := journal.NewStore(fs, journal.DefaultFile, SteppingClock())
	c := daycount.NewCounter(fs, DefaultStart, daycount.FixedClock(Now))
	return j, c
}
