package progress

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/abhisek/trackwise/internal/calendar"
)

// MaxEventMinutes caps the time a single event can contribute.
const MaxEventMinutes = 24 * 60

// Catalog lists the lessons and tests a track defines, so totals count
// items not yet attempted.
type Catalog struct {
	LessonIDs []string
	TestIDs   []string
}

// Stars counts distinct star awards per tier.
type Stars struct {
	Bronze int `json:"bronze"`
	Silver int `json:"silver"`
	Gold   int `json:"gold"`
}

// Total returns the number of stars across tiers.
func (s Stars) Total() int { return s.Bronze + s.Silver + s.Gold }

// Snapshot is the derived progress of a track.
type Snapshot struct {
	CompletedLessons      int         `json:"completed_lessons"`
	TotalLessons          int         `json:"total_lessons"`
	CompletedTests        int         `json:"completed_tests"`
	TotalTests            int         `json:"total_tests"`
	AverageScore          float64     `json:"average_score"`
	TotalTimeSpentMinutes int         `json:"total_time_spent_minutes"`
	StarsByTier           Stars       `json:"stars_by_tier"`
	CurrentStreakDays     int         `json:"current_streak_days"`
	LongestStreakDays     int         `json:"longest_streak_days"`
	LastActivityDate      *civil.Date `json:"last_activity_date,omitempty"`
}

// LessonPercent returns lesson completion as a percentage.
func (s Snapshot) LessonPercent() float64 {
	if s.TotalLessons == 0 {
		return 0
	}
	return float64(s.CompletedLessons) / float64(s.TotalLessons) * 100
}

// TestPercent returns test completion as a percentage.
func (s Snapshot) TestPercent() float64 {
	if s.TotalTests == 0 {
		return 0
	}
	return float64(s.CompletedTests) / float64(s.TotalTests) * 100
}

type starKey struct {
	award string
	tier  Tier
}

type scored struct {
	score float64
	at    time.Time
}

// Aggregate folds events into a Snapshot. It is a pure function of its
// inputs: events are deduplicated by ID, repeated completions of the same
// lesson or test count once, the latest submission of a test wins, and
// out-of-range scores and durations are clamped. Activity dates are taken
// in loc and days after today are ignored for streaks.
func Aggregate(events []Event, catalog Catalog, today civil.Date, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[string]bool, len(events))
	lessons := setOf(catalog.LessonIDs)
	tests := setOf(catalog.TestIDs)
	completedLessons := make(map[string]bool)
	scores := make(map[string]scored)
	stars := make(map[starKey]bool)
	activity := make(map[civil.Date]bool)
	var snap Snapshot

	for _, ev := range events {
		if ev.ID != "" {
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
		}
		day := calendar.Today(ev.OccurredAt, loc)

		switch ev.Kind {
		case KindLessonCompleted:
			if ev.LessonID == "" {
				continue
			}
			lessons[ev.LessonID] = true
			completedLessons[ev.LessonID] = true
			activity[day] = true

		case KindTestSubmitted:
			if ev.TestID == "" {
				continue
			}
			tests[ev.TestID] = true
			prev, ok := scores[ev.TestID]
			if !ok || !ev.OccurredAt.Before(prev.at) {
				scores[ev.TestID] = scored{score: clamp(ev.Score, 0, 100), at: ev.OccurredAt}
			}
			activity[day] = true

		case KindTimeSpent:
			m := min(max(ev.Minutes, 0), MaxEventMinutes)
			snap.TotalTimeSpentMinutes += m
			if m > 0 {
				activity[day] = true
			}

		case KindStarAwarded:
			if !ev.Tier.Valid() {
				continue
			}
			award := ev.AwardID
			if award == "" {
				award = ev.ID
			}
			key := starKey{award: award, tier: ev.Tier}
			if stars[key] {
				continue
			}
			stars[key] = true
			switch ev.Tier {
			case TierBronze:
				snap.StarsByTier.Bronze++
			case TierSilver:
				snap.StarsByTier.Silver++
			case TierGold:
				snap.StarsByTier.Gold++
			}
		}
	}

	snap.CompletedLessons = len(completedLessons)
	snap.TotalLessons = len(lessons)
	snap.CompletedTests = len(scores)
	snap.TotalTests = len(tests)
	if len(scores) > 0 {
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		var sum float64
		for _, id := range ids {
			sum += scores[id].score
		}
		snap.AverageScore = sum / float64(len(scores))
	}

	snap.CurrentStreakDays, snap.LongestStreakDays, snap.LastActivityDate = streaks(activity, today)
	return snap
}

// streaks returns the current and longest runs of consecutive activity
// days up to today. The current run only counts when its last day is
// today or yesterday; a day that has not ended yet does not break it.
func streaks(activity map[civil.Date]bool, today civil.Date) (current, longest int, last *civil.Date) {
	days := make([]civil.Date, 0, len(activity))
	for d := range activity {
		if !d.After(today) {
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return 0, 0, nil
	}
	slices.SortFunc(days, func(a, b civil.Date) int { return a.DaysSince(b) })

	run := 0
	for i, d := range days {
		if i > 0 && d.DaysSince(days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	lastDay := days[len(days)-1]
	if today.DaysSince(lastDay) <= 1 {
		current = run
	}
	return current, longest, &lastDay
}

func setOf(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			m[id] = true
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
