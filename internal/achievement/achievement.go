// Package achievement evaluates threshold achievements against progress
// snapshots. Unlocks are monotonic: once completed, an achievement stays
// completed whatever later snapshots report.
package achievement

import (
	"fmt"
	"slices"
	"time"

	"github.com/abhisek/trackwise/internal/progress"
)

// Category names the snapshot field an achievement tracks.
type Category string

const (
	CategoryLessonsCompleted Category = "lessons_completed"
	CategoryTestsCompleted   Category = "tests_completed"
	CategoryAverageScore     Category = "average_score"
	CategoryTimeSpent        Category = "time_spent_minutes"
	CategoryCurrentStreak    Category = "current_streak"
	CategoryLongestStreak    Category = "longest_streak"
	CategoryStarsTotal       Category = "stars_total"
	CategoryStarsGold        Category = "stars_gold"
)

// AllCategories returns the known categories in display order.
func AllCategories() []Category {
	return []Category{
		CategoryLessonsCompleted, CategoryTestsCompleted, CategoryAverageScore,
		CategoryTimeSpent, CategoryCurrentStreak, CategoryLongestStreak,
		CategoryStarsTotal, CategoryStarsGold,
	}
}

// Known reports whether the category has an evaluation rule.
func (c Category) Known() bool {
	_, ok := c.value(progress.Snapshot{})
	return ok
}

// DisplayName returns a human-readable label for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryLessonsCompleted:
		return "Lessons"
	case CategoryTestsCompleted:
		return "Tests"
	case CategoryAverageScore:
		return "Average score"
	case CategoryTimeSpent:
		return "Study time"
	case CategoryCurrentStreak:
		return "Streak"
	case CategoryLongestStreak:
		return "Best streak"
	case CategoryStarsTotal:
		return "Stars"
	case CategoryStarsGold:
		return "Gold stars"
	default:
		return string(c)
	}
}

// value reads the snapshot field for c.
func (c Category) value(s progress.Snapshot) (float64, bool) {
	switch c {
	case CategoryLessonsCompleted:
		return float64(s.CompletedLessons), true
	case CategoryTestsCompleted:
		return float64(s.CompletedTests), true
	case CategoryAverageScore:
		// An average over no tests is not an achievement.
		if s.CompletedTests == 0 {
			return 0, true
		}
		return s.AverageScore, true
	case CategoryTimeSpent:
		return float64(s.TotalTimeSpentMinutes), true
	case CategoryCurrentStreak:
		return float64(s.CurrentStreakDays), true
	case CategoryLongestStreak:
		return float64(s.LongestStreakDays), true
	case CategoryStarsTotal:
		return float64(s.StarsByTier.Total()), true
	case CategoryStarsGold:
		return float64(s.StarsByTier.Gold), true
	}
	return 0, false
}

// Achievement is a threshold on one snapshot field.
type Achievement struct {
	ID            string     `json:"id"`
	Category      Category   `json:"category"`
	Title         string     `json:"title"`
	RequiredValue float64    `json:"required_value"`
	CurrentValue  float64    `json:"current_value"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Progress returns completion toward the threshold in [0, 1].
func (a Achievement) Progress() float64 {
	if a.IsCompleted || a.RequiredValue <= 0 {
		return 1
	}
	return min(max(a.CurrentValue/a.RequiredValue, 0), 1)
}

// Evaluate refreshes CurrentValue of each achievement from snap and
// completes those whose threshold is reached, stamping CompletedAt with
// now. It returns the updated list and the achievements completed by this
// call. Achievements in unknown categories are returned unchanged. A
// completed achievement never reverts, and its CurrentValue is not
// lowered below RequiredValue.
func Evaluate(snap progress.Snapshot, list []Achievement, now time.Time) (updated, newlyUnlocked []Achievement) {
	updated = make([]Achievement, len(list))
	for i, a := range list {
		v, ok := a.Category.value(snap)
		if !ok {
			updated[i] = a
			continue
		}
		a.CurrentValue = v
		if a.IsCompleted {
			a.CurrentValue = max(v, a.RequiredValue)
		} else if v >= a.RequiredValue {
			a.IsCompleted = true
			at := now
			a.CompletedAt = &at
			newlyUnlocked = append(newlyUnlocked, a)
		}
		updated[i] = a
	}
	return updated, newlyUnlocked
}

// Merge returns stored followed by every catalog entry whose ID is not
// already stored, so records are created the first time they are
// evaluated.
func Merge(stored, catalog []Achievement) []Achievement {
	out := slices.Clone(stored)
	have := make(map[string]bool, len(stored))
	for _, a := range stored {
		have[a.ID] = true
	}
	for _, a := range catalog {
		if !have[a.ID] {
			out = append(out, a)
			have[a.ID] = true
		}
	}
	return out
}

// DefaultCatalog returns the built-in achievement rule table.
func DefaultCatalog() []Achievement {
	var out []Achievement
	add := func(c Category, required float64, title string) {
		out = append(out, Achievement{
			ID:            fmt.Sprintf("%s_%g", c, required),
			Category:      c,
			Title:         title,
			RequiredValue: required,
		})
	}
	add(CategoryLessonsCompleted, 1, "First Steps")
	add(CategoryLessonsCompleted, 10, "Getting Serious")
	add(CategoryLessonsCompleted, 50, "Scholar")
	add(CategoryTestsCompleted, 1, "Test Taker")
	add(CategoryTestsCompleted, 10, "Exam Veteran")
	add(CategoryAverageScore, 80, "Sharp Mind")
	add(CategoryAverageScore, 95, "Perfectionist")
	add(CategoryTimeSpent, 60, "First Hour")
	add(CategoryTimeSpent, 600, "Ten Hours In")
	add(CategoryCurrentStreak, 3, "On a Roll")
	add(CategoryCurrentStreak, 7, "Week Warrior")
	add(CategoryLongestStreak, 30, "Unstoppable")
	add(CategoryStarsTotal, 5, "Star Collector")
	add(CategoryStarsGold, 3, "Golden")
	return out
}
