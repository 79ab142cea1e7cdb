// Package journalservice coordinates the journal, the counter, the search
// index and the side channels (events, metrics, coaching) behind one API
// used by both the HTTP and MCP transports.
package journalservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/coach"
	"github.com/starford/daybook/internal/daycount"
	"github.com/starford/daybook/internal/index"
	"github.com/starford/daybook/internal/journal"
	"github.com/starford/daybook/internal/metrics"
	"github.com/starford/daybook/internal/sse"
	"github.com/starford/daybook/internal/storage"
)

// CoachWindow is how far back entries are handed to the coach.
const CoachWindow = 24 * time.Hour

// Publisher receives journal events for live clients.
type Publisher interface {
	PublishJournalEvent(kind string, data any)
}

// Suggester produces a coaching suggestion.
type Suggester interface {
	Suggest(ctx context.Context, cc coach.Context) (string, error)
}

type nopPublisher struct{}

func (nopPublisher) PublishJournalEvent(string, any) {}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event sink. Defaults to discarding events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithCoach enables suggestions for goal.
func WithCoach(c Suggester, goal string, maxTokens int) Option {
	return func(s *Service) {
		s.coach = c
		s.goal = goal
		s.maxTokens = maxTokens
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service is the application layer over the journal and the counter.
type Service struct {
	journal *journal.Store
	counter *daycount.Counter
	files   storage.Provider
	db      index.EntryIndex

	events    Publisher
	metrics   metrics.Recorder
	coach     Suggester
	goal      string
	maxTokens int
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(j *journal.Store, counter *daycount.Counter, files storage.Provider, db index.EntryIndex, opts ...Option) *Service {
	s := &Service{
		journal: j,
		counter: counter,
		files:   files,
		db:      db,
		events:  nopPublisher{},
		metrics: metrics.Noop{},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the counter state at the current instant.
func (s *Service) Snapshot(ctx context.Context) (daycount.Snapshot, error) {
	return s.counter.Snapshot(ctx)
}

// StartDate returns the active start date.
func (s *Service) StartDate(ctx context.Context) (time.Time, error) {
	return s.counter.StartDate(ctx)
}

// SetStartDate persists a new start date and notifies live clients.
func (s *Service) SetStartDate(ctx context.Context, raw string) (daycount.Snapshot, error) {
	if _, err := s.counter.SetStartDate(ctx, raw); err != nil {
		return daycount.Snapshot{}, err
	}
	snap, err := s.counter.Snapshot(ctx)
	if err != nil {
		return daycount.Snapshot{}, err
	}
	s.events.PublishJournalEvent(sse.TypeCounterChange, snap)
	return snap, nil
}

// DaysSince counts days from raw to today. An empty raw uses the start date.
func (s *Service) DaysSince(ctx context.Context, raw string) (int, time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		snap, err := s.counter.Snapshot(ctx)
		if err != nil {
			return 0, time.Time{}, err
		}
		return snap.Days, snap.StartDate, nil
	}
	return s.counter.DaysSince(raw)
}

// Append writes a journal entry, refreshes the index and publishes
// entry.created. An index failure is logged; the entry is already durable.
func (s *Service) Append(ctx context.Context, text string) (journal.Entry, error) {
	e, err := s.journal.Append(ctx, text)
	if err != nil {
		if !errors.Is(err, apperr.ErrInvalidInput) {
			s.metrics.IncJournalErrors("append")
		}
		return journal.Entry{}, err
	}
	s.metrics.IncJournalAppends()

	if _, err := s.Sync(ctx); err != nil {
		s.logger.Warn("index sync after append failed", slog.String("error", err.Error()))
	}
	s.events.PublishJournalEvent(sse.TypeEntryCreated, e)
	return e, nil
}

// Entries returns every entry in file order.
func (s *Service) Entries(ctx context.Context) ([]journal.Entry, error) {
	entries, err := s.journal.List(ctx)
	if err != nil {
		s.metrics.IncJournalErrors("list")
		return nil, err
	}
	return entries, nil
}

// Latest returns the last n entries in file order. n <= 0 returns all.
func (s *Service) Latest(ctx context.Context, n int) ([]journal.Entry, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Search queries the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("journalservice: search: %w: empty query", apperr.ErrInvalidInput)
	}
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}

// Tags returns tag counts across the journal.
func (s *Service) Tags(_ context.Context) ([]index.TagCount, error) {
	tags, err := s.db.Tags()
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []index.TagCount{}
	}
	return tags, nil
}

// Sync brings the index up to date with the journal file.
func (s *Service) Sync(ctx context.Context) (bool, error) {
	changed, err := index.Sync(ctx, s.db, s.journal, s.files, s.logger)
	if err != nil {
		s.metrics.IncJournalErrors("sync")
		return false, err
	}
	if changed {
		s.recordCount()
	}
	return changed, nil
}

// Resynced is the watcher callback for external edits of the journal file.
func (s *Service) Resynced() {
	n := s.recordCount()
	s.events.PublishJournalEvent(sse.TypeJournalSynced, map[string]int{"entries": n})
}

func (s *Service) recordCount() int {
	n, err := s.db.Count()
	if err != nil {
		s.logger.Warn("index count failed", slog.String("error", err.Error()))
		return 0
	}
	s.metrics.SetJournalEntries(n)
	return n
}

// Suggest asks the coach for a suggestion based on the last day of entries.
// Without a coach the placeholder text is returned.
func (s *Service) Suggest(ctx context.Context) (string, error) {
	if s.coach == nil {
		return coach.PlaceholderSuggestion, nil
	}
	recent, err := s.journal.Recent(ctx, CoachWindow)
	if err != nil {
		return "", err
	}
	return s.coach.Suggest(ctx, coach.Context{
		Goal:          s.goal,
		RecentEntries: FormatRecent(recent),
		JournalName:   s.journal.Path(),
		MaxTokens:     s.maxTokens,
	})
}

// FormatRecent renders entries as "[2006-01-02 15:04] text" lines.
func FormatRecent(entries []journal.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[")
		b.WriteString(e.Time.Format("2006-01-02 15:04"))
		b.WriteString("] ")
		b.WriteString(e.Text)
	}
	return b.String()
}

// Stats describes the journal file and its index.
type Stats struct {
	Entries   int       `json:"entries"`
	Bytes     int64     `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Stats reports the indexed entry count and the journal file's size and
// modification time. A journal that does not exist yet reports zeros.
func (s *Service) Stats(_ context.Context) (Stats, error) {
	n, err := s.db.Count()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Entries: n}
	info, err := s.files.Stat(s.journal.Path())
	switch {
	case err == nil:
		st.Bytes = info.Size
		st.UpdatedAt = info.UpdatedAt
	case errors.Is(err, os.ErrNotExist):
	default:
		return Stats{}, fmt.Errorf("journalservice: stat journal: %w: %w", apperr.ErrIO, err)
	}
	return st, nil
}

// Ready reports whether the index and the data directory are usable.
func (s *Service) Ready(_ context.Context) error {
	if _, err := s.db.Count(); err != nil {
		return fmt.Errorf("journalservice: index: %w", err)
	}
	if _, err := s.files.Abs(s.journal.Path()); err != nil {
		return fmt.Errorf("journalservice: storage: %w", err)
	}
	return nil
}
