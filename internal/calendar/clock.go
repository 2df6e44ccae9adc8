// Package calendar provides the date and time-of-day primitives used by
// the scheduler: civil dates, HH:MM clock times, and weekday sets.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is a wall-clock time of day in minutes since midnight.
// The valid range is [0, EndOfDay]; EndOfDay renders as "24:00".
type Clock int

// EndOfDay is the latest representable clock time.
const EndOfDay Clock = 24 * 60

// NewClock returns the clock time for hour:minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses an "HH:MM" string. "24:00" is accepted as end of day.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %q: out of range", s)
	}
	c := NewClock(hour, minute)
	if c > EndOfDay {
		return 0, fmt.Errorf("invalid clock time %q: out of range", s)
	}
	return c, nil
}

// MustParseClock is like ParseClock but panics on error.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Add returns c advanced by minutes, clamped to [0, EndOfDay].
func (c Clock) Add(minutes int) Clock {
	n := int(c) + minutes
	if n > int(EndOfDay) {
		return EndOfDay
	}
	if n < 0 {
		return 0
	}
	return Clock(n)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int { return int(c) }

// Valid reports whether c lies within a single day.
func (c Clock) Valid() bool { return c >= 0 && c <= EndOfDay }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("clock %d out of range", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
