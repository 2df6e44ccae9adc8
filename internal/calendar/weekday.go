package calendar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays, bit i set for time.Weekday(i).
type WeekdaySet uint8

// Weekdays is Monday through Friday.
const Weekdays = WeekdaySet(1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday)

// AllDays contains every day of the week.
const AllDays = WeekdaySet(1<<7 - 1)

// NewWeekdaySet returns a set containing days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d%7)
	}
	return s
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d%7)) != 0
}

// Empty reports whether the set has no days.
func (s WeekdaySet) Empty() bool { return s&AllDays == 0 }

// Days returns the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return strings.Join(names, ",")
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses a comma-separated list of day names ("mon,wed"),
// numbers 0..6 with Sunday as 0, or ranges of either ("mon-fri"). A range
// whose end precedes its start wraps past Saturday ("fri-mon"). The
// shorthands "weekdays", "weekends" and "all" are accepted.
func ParseWeekdays(s string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, part := range strings.Split(s, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		switch p {
		case "":
			continue
		case "weekdays":
			set |= Weekdays
			continue
		case "weekends":
			set |= NewWeekdaySet(time.Saturday, time.Sunday)
			continue
		case "all", "daily":
			set |= AllDays
			continue
		}
		if from, to, ok := strings.Cut(p, "-"); ok {
			start, okStart := parseWeekday(from)
			end, okEnd := parseWeekday(to)
			if !okStart || !okEnd {
				return 0, fmt.Errorf("invalid weekday range %q", part)
			}
			for d := start; ; d = (d + 1) % 7 {
				set |= NewWeekdaySet(d)
				if d == end {
					break
				}
			}
			continue
		}
		d, ok := parseWeekday(p)
		if !ok {
			return 0, fmt.Errorf("invalid weekday %q", part)
		}
		set |= NewWeekdaySet(d)
	}
	return set, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	if d, ok := weekdayNames[s]; ok {
		return d, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, false
	}
	return time.Weekday(n), true
}

// MarshalJSON encodes the set as an array of weekday numbers.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	days := s.Days()
	nums := make([]int, len(days))
	for i, d := range days {
		nums[i] = int(d)
	}
	return json.Marshal(nums)
}

// UnmarshalJSON decodes an array of weekday numbers.
func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var nums []int
	if err := json.Unmarshal(b, &nums); err != nil {
		return err
	}
	var set WeekdaySet
	for _, n := range nums {
		if n < 0 || n > 6 {
			return fmt.Errorf("invalid weekday %d", n)
		}
		set |= NewWeekdaySet(time.Weekday(n))
	}
	*s = set
	return nil
}
