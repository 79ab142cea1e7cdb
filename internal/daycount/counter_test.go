package daycount

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/daybook/internal/apperr"
	"github.com/starford/daybook/internal/storage"
)

func testCounter(t *testing.T, now time.Time) (*Counter, storage.Provider) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	def := time.Date(2025, 8, 4, 0, 6, 0, 0, time.UTC)
	return NewCounter(store, def, FixedClock(now)), store
}

func TestCounter_DefaultStartDate(t *testing.T) {
	c, _ := testCounter(t, time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	start, err := c.StartDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 4, 0, 6, 0, 0, time.UTC), start)

	days, err := c.Days(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, days)
}

func TestCounter_SetStartDatePersists(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	c, store := testCounter(t, now)
	ctx := context.Background()

	_, err := c.SetStartDate(ctx, "2026-01-01")
	require.NoError(t, err)

	// A fresh counter over the same storage sees the override.
	other := NewCounter(store, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), FixedClock(now))
	days, err := other.Days(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, days)
}

func TestCounter_SetStartDateRejectsMalformed(t *testing.T) {
	c, store := testCounter(t, time.Now())
	_, err := c.SetStartDate(context.Background(), "not a date")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, readErr := store.Read(SettingsFile)
	assert.Error(t, readErr, "nothing should be persisted on invalid input")
}

func TestCounter_CorruptSettingsIsIOError(t *testing.T) {
	c, store := testCounter(t, time.Now())
	require.NoError(t, store.Write(SettingsFile, []byte("start_date: [unterminated")))

	_, err := c.StartDate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrIO), "err = %v", err)
}

func TestCounter_DaysSinceFuture(t *testing.T) {
	c, _ := testCounter(t, time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC))
	days, target, err := c.DaysSince("2026-10-25")
	require.NoError(t, err)
	assert.Equal(t, -7, days)
	assert.Equal(t, 25, target.Day())
}

func TestCounter_Snapshot(t *testing.T) {
	now := time.Date(2025, 8, 5, 1, 7, 1, 0, time.UTC)
	c, _ := testCounter(t, now)

	snap, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Days)
	assert.Equal(t, Elapsed{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}, snap.Elapsed)
	assert.True(t, snap.Today.Equal(now))
}
