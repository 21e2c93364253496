// Package timeslot models half-open minute intervals within a single day.
package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a minute-of-day value; an
// interval may end exactly at midnight.
const MinutesPerDay = 24 * 60

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is the half-open range [Start, End) in minutes after local midnight.
type Interval struct {
	Start int
	End   int
}

// New validates and builds an interval.
func New(start, end int) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// FromDuration builds [start, start+duration).
func FromDuration(start int, duration time.Duration) (Interval, error) {
	return New(start, start+int(duration/time.Minute))
}

func (iv Interval) Validate() error {
	switch {
	case iv.Start < 0 || iv.Start >= MinutesPerDay:
		return fmt.Errorf("%w: start %d out of range", ErrInvalidInterval, iv.Start)
	case iv.End <= iv.Start:
		return fmt.Errorf("%w: end must be after start", ErrInvalidInterval)
	case iv.End > MinutesPerDay:
		return fmt.Errorf("%w: end %d past midnight", ErrInvalidInterval, iv.End)
	}
	return nil
}

// Minutes returns the interval length in minutes.
func (iv Interval) Minutes() int {
	return iv.End - iv.Start
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.Minutes()) * time.Minute
}

// Contains reports whether minute m falls inside [Start, End).
func (iv Interval) Contains(m int) bool {
	return iv.Start <= m && m < iv.End
}

// Overlaps reports whether two half-open intervals share any minute:
// [s1,e1) and [s2,e2) overlap iff s1 < e2 && s2 < e1.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// On anchors the interval to a calendar date in loc.
func (iv Interval) On(date time.Time, loc *time.Location) (time.Time, time.Time) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return midnight.Add(time.Duration(iv.Start) * time.Minute), midnight.Add(time.Duration(iv.End) * time.Minute)
}

func (iv Interval) String() string {
	return FormatClock(iv.Start) + "-" + FormatClock(iv.End)
}

// ParseClock parses "HH:MM" into minutes after midnight. "24:00" is accepted.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	hours, minutes, ok := strings.Cut(value, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	total := h*60 + m
	if h < 0 || total > MinutesPerDay {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return total, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
}

// FormatDate renders the storage form of a date.
func FormatDate(date time.Time) string {
	return date.Format(time.DateOnly)
}
