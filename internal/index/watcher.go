package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/storage"
)

const debounce = 200 * time.Millisecond

// SyncCallback is called after a watcher-driven sync rebuilt the index.
type SyncCallback func()

// Watch watches the directory holding the journal file and resyncs the index
// whenever the journal is written, created, removed or renamed, until ctx is
// cancelled. Bursts of events are debounced into one sync.
//
// The directory is watched rather than the file so that editors replacing
// the file through a rename are still observed.
func Watch(ctx context.Context, db EntryIndex, j *journal.Store, files storage.Provider, logger *slog.Logger, cb SyncCallback) error {
	target, err := files.Abs(j.Path())
	if err != nil {
		return err
	}
	target = filepath.Clean(target)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("journal", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			changed, syncErr := Sync(ctx, db, j, files, logger)
			if syncErr != nil {
				logger.Warn("watcher: sync failed", slog.String("error", syncErr.Error()))
				continue
			}
			if changed {
				logger.Debug("watcher: journal resynced")
				if cb != nil {
					cb()
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
