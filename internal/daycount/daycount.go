// Package daycount computes elapsed calendar days and the running
// days:hours:minutes:seconds breakdown since a start date.
package daycount

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/daybook/internal/apperr"
)

const secondsPerDay = 24 * 60 * 60

// Accepted input layouts, tried in order. The first three are read in the
// caller's location; RFC 3339 carries its own offset.
var localLayouts = []string{
	time.DateOnly,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseDate parses a user-supplied date. Empty or malformed input returns an
// error wrapping apperr.ErrInvalidInput.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("daycount: date is required: %w", apperr.ErrInvalidInput)
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("daycount: malformed date %q (want YYYY-MM-DD): %w", raw, apperr.ErrInvalidInput)
}

// DaysSince returns the number of whole calendar days from target's date to
// now's date. Each date is read in its own location: an input carrying an
// offset counts from the date it names, not from that instant converted to
// now's zone. A future target yields a negative count. Clock time within the
// day is ignored, so DST shifts cannot move it.
func DaysSince(target, now time.Time) int {
	ty, tm, td := target.Date()
	ny, nm, nd := now.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Unix()
	to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).Unix()
	return int((to - from) / secondsPerDay)
}

// Elapsed is the wall-clock distance between a start instant and now.
type Elapsed struct {
	Days    int64 `json:"days"`
	Hours   int   `json:"hours"`
	Minutes int   `json:"minutes"`
	Seconds int   `json:"seconds"`
	// Future is set when the start lies after now; the fields then count down.
	Future bool `json:"future"`
}

// String renders the breakdown as days:hours:minutes:seconds.
func (e Elapsed) String() string {
	sign := ""
	if e.Future {
		sign = "-"
	}
	return fmt.Sprintf("%s%d:%d:%d:%d", sign, e.Days, e.Hours, e.Minutes, e.Seconds)
}

// ElapsedBetween splits now-start into days, hours, minutes and seconds.
// Sub-second precision is dropped.
func ElapsedBetween(start, now time.Time) Elapsed {
	secs := now.Unix() - start.Unix()
	var e Elapsed
	if secs < 0 {
		e.Future = true
		secs = -secs
	}
	e.Days = secs / secondsPerDay
	rem := secs % secondsPerDay
	e.Hours = int(rem / 3600)
	rem %= 3600
	e.Minutes = int(rem / 60)
	e.Seconds = int(rem % 60)
	return e
}
