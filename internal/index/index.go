package index

// EntryIndex defines the interface for journal index operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type EntryIndex interface {
	Replace(rows []EntryRow, checksum string) error
	Checksum() (string, error)
	Count() (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Tags() ([]TagCount, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
