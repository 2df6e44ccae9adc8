package achievement

import (
	"testing"
	"time"

	"github.com/abhisek/trackwise/internal/progress"
)

var now = time.Date(2025, 1, 15, 18, 0, 0, 0, time.UTC)

func TestEvaluateUnlocksOnce(t *testing.T) {
	list := []Achievement{{ID: "l5", Category: CategoryLessonsCompleted, RequiredValue: 5}}

	list, unlocked := Evaluate(progress.Snapshot{CompletedLessons: 3}, list, now)
	if len(unlocked) != 0 || list[0].IsCompleted {
		t.Fatal("unlocked below threshold")
	}
	if list[0].CurrentValue != 3 {
		t.Errorf("current = %v, want 3", list[0].CurrentValue)
	}

	list, unlocked = Evaluate(progress.Snapshot{CompletedLessons: 5}, list, now)
	if len(unlocked) != 1 || unlocked[0].ID != "l5" {
		t.Fatalf("unlocked = %+v, want l5", unlocked)
	}
	if !list[0].IsCompleted || list[0].CompletedAt == nil || !list[0].CompletedAt.Equal(now) {
		t.Errorf("completion not stamped: %+v", list[0])
	}

	later := now.Add(time.Hour)
	list, unlocked = Evaluate(progress.Snapshot{CompletedLessons: 9}, list, later)
	if len(unlocked) != 0 {
		t.Errorf("re-unlocked: %+v", unlocked)
	}
	if !list[0].CompletedAt.Equal(now) {
		t.Error("CompletedAt changed after unlock")
	}
	if list[0].CurrentValue != 9 {
		t.Errorf("current = %v, want 9", list[0].CurrentValue)
	}
}

func TestEvaluateMonotonic(t *testing.T) {
	list := []Achievement{{ID: "avg", Category: CategoryAverageScore, RequiredValue: 80}}
	list, _ = Evaluate(progress.Snapshot{CompletedTests: 2, AverageScore: 85}, list, now)
	if !list[0].IsCompleted {
		t.Fatal("expected unlock at 85")
	}

	// A score correction drops the average.
	list, unlocked := Evaluate(progress.Snapshot{CompletedTests: 2, AverageScore: 60}, list, now)
	if !list[0].IsCompleted || len(unlocked) != 0 {
		t.Error("achievement reverted after regression")
	}
	if list[0].CurrentValue < list[0].RequiredValue {
		t.Errorf("current %v fell below required %v", list[0].CurrentValue, list[0].RequiredValue)
	}
}

func TestEvaluateUnknownCategory(t *testing.T) {
	a := Achievement{ID: "x", Category: "future_metric", RequiredValue: 1, CurrentValue: 0.5}
	list, unlocked := Evaluate(progress.Snapshot{CompletedLessons: 100}, []Achievement{a}, now)
	if len(unlocked) != 0 || list[0] != a {
		t.Errorf("unknown category modified: %+v", list[0])
	}
	if Category("future_metric").Known() {
		t.Error("future_metric reported as known")
	}
}

func TestEvaluateAllCategories(t *testing.T) {
	snap := progress.Snapshot{
		CompletedLessons:      4,
		CompletedTests:        2,
		AverageScore:          70,
		TotalTimeSpentMinutes: 90,
		CurrentStreakDays:     3,
		LongestStreakDays:     5,
		StarsByTier:           progress.Stars{Bronze: 1, Silver: 2, Gold: 1},
	}
	want := map[Category]float64{
		CategoryLessonsCompleted: 4,
		CategoryTestsCompleted:   2,
		CategoryAverageScore:     70,
		CategoryTimeSpent:        90,
		CategoryCurrentStreak:    3,
		CategoryLongestStreak:    5,
		CategoryStarsTotal:       4,
		CategoryStarsGold:        1,
	}
	var list []Achievement
	for _, c := range AllCategories() {
		list = append(list, Achievement{ID: string(c), Category: c, RequiredValue: 1000})
	}
	list, _ = Evaluate(snap, list, now)
	for _, a := range list {
		if a.CurrentValue != want[a.Category] {
			t.Errorf("%s = %v, want %v", a.Category, a.CurrentValue, want[a.Category])
		}
	}
}

func TestAverageScoreNeedsTests(t *testing.T) {
	list := []Achievement{{ID: "avg", Category: CategoryAverageScore, RequiredValue: 50}}
	_, unlocked := Evaluate(progress.Snapshot{AverageScore: 99}, list, now)
	if len(unlocked) != 0 {
		t.Error("average unlocked without completed tests")
	}
}

func TestMerge(t *testing.T) {
	stored := []Achievement{{ID: "lessons_completed_1", Category: CategoryLessonsCompleted, RequiredValue: 1, IsCompleted: true}}
	merged := Merge(stored, DefaultCatalog())
	if len(merged) != len(DefaultCatalog()) {
		t.Fatalf("merged = %d, want %d", len(merged), len(DefaultCatalog()))
	}
	if !merged[0].IsCompleted {
		t.Error("stored record was replaced by catalog entry")
	}

	seen := map[string]bool{}
	for _, a := range merged {
		if seen[a.ID] {
			t.Errorf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestDefaultCatalogKnownCategories(t *testing.T) {
	for _, a := range DefaultCatalog() {
		if !a.Category.Known() {
			t.Errorf("%s has unknown category %s", a.ID, a.Category)
		}
		if a.RequiredValue <= 0 {
			t.Errorf("%s has non-positive threshold", a.ID)
		}
	}
}

func TestProgress(t *testing.T) {
	a := Achievement{RequiredValue: 10, CurrentValue: 4}
	if got := a.Progress(); got != 0.4 {
		t.Errorf("Progress = %v, want 0.4", got)
	}
	a.IsCompleted = true
	if a.Progress() != 1 {
		t.Error("completed progress should be 1")
	}
}
