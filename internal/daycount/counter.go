package daycount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/storage"
)

// SettingsFile is the data-directory file that holds the start date override.
const SettingsFile = "counter.yaml"

type settings struct {
	StartDate string `yaml:"start_date"`
}

// Snapshot is everything a page needs to render the counter.
type Snapshot struct {
	StartDate time.Time `json:"start_date"`
	Today     time.Time `json:"today"`
	Days      int       `json:"days"`
	Elapsed   Elapsed   `json:"elapsed"`
}

// Counter evaluates day counts against a start date that may be overridden
// at runtime and persisted next to the journal.
type Counter struct {
	store        storage.Provider
	clock        Clock
	loc          *time.Location
	defaultStart time.Time
}

// NewCounter creates a Counter. defaultStart's location is used to parse
// user input and to decide what "today" is.
func NewCounter(store storage.Provider, defaultStart time.Time, clock Clock) *Counter {
	if clock == nil {
		clock = RealClock{}
	}
	return &Counter{
		store:        store,
		clock:        clock,
		loc:          defaultStart.Location(),
		defaultStart: defaultStart,
	}
}

// Location returns the time zone used for calendar math.
func (c *Counter) Location() *time.Location {
	return c.loc
}

func (c *Counter) now() time.Time {
	return c.clock.Now().In(c.loc)
}

// StartDate returns the persisted start date, or the configured default
// when none has been saved.
func (c *Counter) StartDate(_ context.Context) (time.Time, error) {
	data, err := c.store.Read(SettingsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.defaultStart, nil
		}
		return time.Time{}, fmt.Errorf("daycount: %w: %w", apperr.ErrIO, err)
	}
	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return time.Time{}, fmt.Errorf("daycount: decode %s: %w: %w", SettingsFile, apperr.ErrIO, err)
	}
	if s.StartDate == "" {
		return c.defaultStart, nil
	}
	t, err := ParseDate(s.StartDate, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("daycount: stored start date: %w", err)
	}
	return t, nil
}

// SetStartDate parses raw and persists it as the new start date.
func (c *Counter) SetStartDate(_ context.Context, raw string) (time.Time, error) {
	t, err := ParseDate(raw, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	data, err := yaml.Marshal(settings{StartDate: t.Format(time.RFC3339)})
	if err != nil {
		return time.Time{}, fmt.Errorf("daycount: encode settings: %w", err)
	}
	if err := c.store.Write(SettingsFile, data); err != nil {
		return time.Time{}, fmt.Errorf("daycount: %w: %w", apperr.ErrIO, err)
	}
	return t, nil
}

// DaysSince parses raw and returns the day count from it to today.
func (c *Counter) DaysSince(raw string) (int, time.Time, error) {
	t, err := ParseDate(raw, c.loc)
	if err != nil {
		return 0, time.Time{}, err
	}
	return DaysSince(t, c.now()), t, nil
}

// Days returns the day count since the current start date.
func (c *Counter) Days(ctx context.Context) (int, error) {
	start, err := c.StartDate(ctx)
	if err != nil {
		return 0, err
	}
	return DaysSince(start, c.now()), nil
}

// Snapshot evaluates the start date, day count and elapsed breakdown at a
// single instant.
func (c *Counter) Snapshot(ctx context.Context) (Snapshot, error) {
	start, err := c.StartDate(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	now := c.now()
	return Snapshot{
		StartDate: start,
		Today:     now,
		Days:      DaysSince(start, now),
		Elapsed:   ElapsedBetween(start, now),
	}, nil
}
