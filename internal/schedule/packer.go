package schedule

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/abhisek/trackwise/internal/calendar"
	"github.com/abhisek/trackwise/internal/lesson"
)

// DefaultDayStart is the time the first session of a day begins.
var DefaultDayStart = calendar.NewClock(9, 0)

// Constraints bound a single schedule generation request.
type Constraints struct {
	AllowedWeekdays      calendar.WeekdaySet `json:"allowed_weekdays"`
	DailyCapacityMinutes int                 `json:"daily_capacity_minutes"`
	StartDate            civil.Date          `json:"start_date"`
	Deadline             *civil.Date         `json:"deadline,omitempty"`
	ExclusionDates       []civil.Date        `json:"exclusion_dates,omitempty"`
}

// Packer partitions ordered lesson units into dated sessions.
type Packer struct {
	DayStart calendar.Clock
}

// NewPacker returns a Packer whose sessions begin at dayStart.
func NewPacker(dayStart calendar.Clock) *Packer {
	return &Packer{DayStart: dayStart}
}

// Pack places units, in input order, into sessions on eligible days
// starting at c.StartDate. Each day takes units while their cumulative
// duration fits the daily capacity; an empty day always takes the next
// unit so an oversized unit gets a session of its own.
//
// If a deadline is set and units remain once it has passed, Pack returns
// the partial schedule together with a *CapacityExceededError. Invalid
// constraints yield a *ConstraintViolationError and no schedule.
func (p *Packer) Pack(ctx context.Context, units []lesson.Unit, c Constraints) (*Schedule, error) {
	if err := p.validate(units, c); err != nil {
		return nil, err
	}

	excluded := calendar.NewDateSet(c.ExclusionDates...)
	sched := &Schedule{StartDate: c.StartDate, EndDate: c.StartDate}

	next := 0
	for day := c.StartDate; next < len(units); day = day.AddDays(1) {
		if c.Deadline != nil && day.After(*c.Deadline) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.AllowedWeekdays.Has(calendar.Weekday(day)) || excluded.Has(day) {
			continue
		}

		used := 0
		var ids []string
		for next < len(units) {
			m := units[next].EstimatedMinutes
			if len(ids) > 0 && used+m > c.DailyCapacityMinutes {
				break
			}
			ids = append(ids, units[next].ID)
			used += m
			next++
		}

		sched.Sessions = append(sched.Sessions, &Session{
			ID:        uuid.NewString(),
			Date:      day,
			StartTime: p.DayStart,
			EndTime:   p.DayStart.Add(used),
			LessonIDs: ids,
		})
		sched.EndDate = day
		sched.TotalLessons += len(ids)
	}

	if next < len(units) {
		return sched, &CapacityExceededError{
			Deadline: *c.Deadline,
			Partial:  sched,
			Unplaced: lesson.IDs(units[next:]),
		}
	}
	return sched, nil
}

func (p *Packer) validate(units []lesson.Unit, c Constraints) error {
	if c.AllowedWeekdays.Empty() {
		return violation("no allowed weekdays")
	}
	if c.DailyCapacityMinutes <= 0 {
		return violation("daily capacity must be positive, got %d", c.DailyCapacityMinutes)
	}
	if !c.StartDate.IsValid() {
		return violation("invalid start date %s", c.StartDate)
	}
	if !p.DayStart.Valid() || p.DayStart.Minutes()+c.DailyCapacityMinutes > calendar.EndOfDay.Minutes() {
		return violation("daily capacity of %d minutes starting at %s runs past midnight", c.DailyCapacityMinutes, p.DayStart)
	}
	if c.Deadline != nil && c.Deadline.Before(c.StartDate) {
		return violation("deadline %s is before start date %s", *c.Deadline, c.StartDate)
	}

	all := make(map[string]bool, len(units))
	for _, u := range units {
		if u.ID == "" {
			return violation("unit with empty id")
		}
		if all[u.ID] {
			return violation("duplicate unit id %q", u.ID)
		}
		all[u.ID] = true
	}

	// Prerequisites must come earlier in the input; ones outside the
	// batch are considered already satisfied.
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if u.EstimatedMinutes <= 0 {
			return violation("unit %q has no duration estimate", u.ID)
		}
		for _, pre := range u.PrerequisiteIDs {
			if pre == u.ID {
				return violation("unit %q lists itself as a prerequisite", u.ID)
			}
			if all[pre] && !seen[pre] {
				return violation("unit %q is ordered before its prerequisite %q", u.ID, pre)
			}
		}
		seen[u.ID] = true
	}
	return nil
}
