package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(now.In(loc))
}

// Weekday returns the day of week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}

// DateSet is a set of calendar dates.
type DateSet map[civil.Date]struct{}

// NewDateSet returns a set containing dates.
func NewDateSet(dates ...civil.Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Has reports whether d is in the set.
func (s DateSet) Has(d civil.Date) bool {
	_, ok := s[d]
	return ok
}
