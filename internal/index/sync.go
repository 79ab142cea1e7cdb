package index

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/starford/daybook/internal/checksum"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/storage"
)

// Sync brings the index up to date with the journal file. It compares the
// file checksum with the one recorded at the last sync and rebuilds the
// index only when they differ. It reports whether a rebuild happened.
func Sync(ctx context.Context, db EntryIndex, j *journal.Store, files storage.Provider, logger *slog.Logger) (bool, error) {
	data, err := files.Read(j.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	cs := checksum.Sum(data)

	stored, err := db.Checksum()
	if err != nil {
		return false, err
	}
	if stored == cs {
		return false, nil
	}

	entries, err := j.List(ctx)
	if err != nil {
		return false, err
	}
	if err := db.Replace(Rows(entries), cs); err != nil {
		return false, err
	}
	logger.Debug("sync: index rebuilt", slog.Int("entries", len(entries)))
	return true, nil
}

// Rows converts journal entries to index rows, numbering them from 1 in file order.
func Rows(entries []journal.Entry) []EntryRow {
	rows := make([]EntryRow, len(entries))
	for i, e := range entries {
		rows[i] = EntryRow{
			Seq:   i + 1,
			Time:  e.Time,
			Title: e.Title,
			Body:  e.Text,
			Tags:  e.Tags,
		}
	}
	return rows
}
