package progress

import (
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

var today = civil.Date{Year: 2025, Month: time.January, Day: 15}

// at returns noon UTC on the day offset days from today.
func at(offset int) time.Time {
	return today.AddDays(offset).In(time.UTC).Add(12 * time.Hour)
}

func lessonEvent(id string, offset int) Event {
	return LessonCompleted("t1", id, at(offset))
}

func TestAggregateEmpty(t *testing.T) {
	snap := Aggregate(nil, Catalog{}, today, time.UTC)
	if !reflect.DeepEqual(snap, Snapshot{}) {
		t.Errorf("empty log snapshot = %+v, want zero value", snap)
	}
}

func TestAverageScore(t *testing.T) {
	events := []Event{
		TestSubmitted("t1", "q1", 60, at(0)),
		TestSubmitted("t1", "q2", 80, at(0)),
		TestSubmitted("t1", "q3", 100, at(0)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	if snap.CompletedTests != 3 {
		t.Errorf("completed tests = %d, want 3", snap.CompletedTests)
	}
	if snap.AverageScore != 80 {
		t.Errorf("average = %v, want 80", snap.AverageScore)
	}

	none := Aggregate([]Event{lessonEvent("l1", 0)}, Catalog{}, today, time.UTC)
	if none.AverageScore != 0 || math.IsNaN(none.AverageScore) {
		t.Errorf("average without tests = %v, want 0", none.AverageScore)
	}
}

func TestLatestSubmissionWins(t *testing.T) {
	events := []Event{
		TestSubmitted("t1", "q1", 40, at(-2)),
		TestSubmitted("t1", "q1", 90, at(-1)),
		TestSubmitted("t1", "q1", 10, at(-3)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	if snap.CompletedTests != 1 || snap.AverageScore != 90 {
		t.Errorf("got %d tests avg %v, want 1 test avg 90", snap.CompletedTests, snap.AverageScore)
	}
}

func TestScoresClamped(t *testing.T) {
	events := []Event{
		TestSubmitted("t1", "q1", 150, at(0)),
		TestSubmitted("t1", "q2", -20, at(0)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	if snap.AverageScore != 50 {
		t.Errorf("average = %v, want 50", snap.AverageScore)
	}
}

func TestDistinctCounts(t *testing.T) {
	dup := lessonEvent("l1", 0)
	events := []Event{
		dup, dup,
		lessonEvent("l1", 0),
		lessonEvent("l2", 0),
	}
	catalog := Catalog{LessonIDs: []string{"l1", "l2", "l3"}, TestIDs: []string{"q1"}}
	snap := Aggregate(events, catalog, today, time.UTC)
	if snap.CompletedLessons != 2 {
		t.Errorf("completed lessons = %d, want 2", snap.CompletedLessons)
	}
	if snap.TotalLessons != 3 || snap.TotalTests != 1 {
		t.Errorf("totals = %d/%d, want 3/1", snap.TotalLessons, snap.TotalTests)
	}
}

func TestTotalsIncludeObservedIDs(t *testing.T) {
	events := []Event{lessonEvent("retired", 0), TestSubmitted("t1", "q9", 70, at(0))}
	snap := Aggregate(events, Catalog{LessonIDs: []string{"l1"}}, today, time.UTC)
	if snap.TotalLessons != 2 || snap.TotalTests != 1 {
		t.Errorf("totals = %d/%d, want 2/1", snap.TotalLessons, snap.TotalTests)
	}
}

func TestTimeSpentClamped(t *testing.T) {
	events := []Event{
		TimeSpent("t1", "l1", 30, at(0)),
		TimeSpent("t1", "l1", 100000, at(0)),
		TimeSpent("t1", "l2", -50, at(0)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	if want := 30 + MaxEventMinutes; snap.TotalTimeSpentMinutes != want {
		t.Errorf("time = %d, want %d", snap.TotalTimeSpentMinutes, want)
	}
}

func TestStreakBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		offsets     []int
		wantCurrent int
		wantLongest int
	}{
		{"ends today", []int{-2, -1, 0}, 3, 3},
		{"ends yesterday", []int{-3, -2, -1}, 3, 3},
		{"ends two days ago", []int{-4, -3, -2}, 0, 3},
		{"gap breaks run", []int{-6, -5, -4, -3, -1, 0}, 2, 4},
		{"single day today", []int{0}, 1, 1},
		{"future ignored", []int{-1, 0, 1, 2}, 2, 2},
		{"only future", []int{3}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []Event
			for i, off := range tt.offsets {
				events = append(events, lessonEvent(fmt.Sprintf("l%d", i), off))
			}
			snap := Aggregate(events, Catalog{}, today, time.UTC)
			if snap.CurrentStreakDays != tt.wantCurrent {
				t.Errorf("current = %d, want %d", snap.CurrentStreakDays, tt.wantCurrent)
			}
			if snap.LongestStreakDays != tt.wantLongest {
				t.Errorf("longest = %d, want %d", snap.LongestStreakDays, tt.wantLongest)
			}
			if snap.LongestStreakDays < snap.CurrentStreakDays {
				t.Error("longest streak shorter than current")
			}
		})
	}
}

func TestStreakMultipleEventsPerDay(t *testing.T) {
	events := []Event{
		lessonEvent("a", -1), lessonEvent("b", -1),
		TimeSpent("t1", "a", 15, at(0)),
		TimeSpent("t1", "a", 0, at(1)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	if snap.CurrentStreakDays != 2 {
		t.Errorf("current = %d, want 2", snap.CurrentStreakDays)
	}
	if snap.LastActivityDate == nil || *snap.LastActivityDate != today {
		t.Errorf("last activity = %v, want %s", snap.LastActivityDate, today)
	}
}

func TestStreakUsesLocation(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in UTC+9.
	ev := LessonCompleted("t1", "l1", time.Date(2025, 1, 14, 23, 30, 0, 0, time.UTC))
	tokyo := time.FixedZone("JST", 9*60*60)
	snap := Aggregate([]Event{ev}, Catalog{}, today, tokyo)
	if *snap.LastActivityDate != today {
		t.Errorf("last activity = %s, want %s", snap.LastActivityDate, today)
	}
}

func TestStarsDeduplicated(t *testing.T) {
	events := []Event{
		StarAwarded("t1", "q1", TierGold, at(0)),
		StarAwarded("t1", "q1", TierGold, at(0)),
		StarAwarded("t1", "q1", TierSilver, at(0)),
		StarAwarded("t1", "q2", TierBronze, at(0)),
		StarAwarded("t1", "q3", Tier("platinum"), at(0)),
	}
	snap := Aggregate(events, Catalog{}, today, time.UTC)
	want := Stars{Bronze: 1, Silver: 1, Gold: 1}
	if snap.StarsByTier != want {
		t.Errorf("stars = %+v, want %+v", snap.StarsByTier, want)
	}
	if snap.StarsByTier.Total() != 3 {
		t.Errorf("total = %d", snap.StarsByTier.Total())
	}
	if snap.CurrentStreakDays != 0 {
		t.Error("star events should not count as activity")
	}
}

func TestStarTierForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
		ok    bool
	}{
		{100, TierGold, true},
		{90, TierGold, true},
		{89.9, TierSilver, true},
		{75, TierSilver, true},
		{50, TierBronze, true},
		{49.99, "", false},
		{0, "", false},
	}
	for _, tt := range tests {
		got, ok := StarTierForScore(tt.score)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StarTierForScore(%v) = %q, %v; want %q, %v", tt.score, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAggregateIsPure(t *testing.T) {
	var events []Event
	for i := 0; i < 12; i++ {
		events = append(events,
			lessonEvent(fmt.Sprintf("l%d", i), -i/2),
			TimeSpent("t1", fmt.Sprintf("l%d", i), 10+i, at(-i/2)),
		)
		if i%3 == 0 {
			events = append(events, TestSubmitted("t1", fmt.Sprintf("q%d", i), float64(50+i*3), at(-i)))
			events = append(events, StarAwarded("t1", fmt.Sprintf("q%d", i), TierBronze, at(-i)))
		}
	}
	catalog := Catalog{LessonIDs: []string{"l0", "l20"}, TestIDs: []string{"q0", "q99"}}

	first := Aggregate(events, catalog, today, time.UTC)
	if again := Aggregate(events, catalog, today, time.UTC); !reflect.DeepEqual(first, again) {
		t.Fatalf("replay differs:\n%+v\n%+v", first, again)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Aggregate(shuffled, catalog, today, time.UTC); !reflect.DeepEqual(first, got) {
			t.Fatalf("reordered log differs:\n%+v\n%+v", first, got)
		}
	}
}

func TestSevenConsecutiveCompletions(t *testing.T) {
	catalog := Catalog{}
	for i := 1; i <= 10; i++ {
		catalog.LessonIDs = append(catalog.LessonIDs, fmt.Sprintf("u%d", i))
	}
	var events []Event
	for i := 0; i < 7; i++ {
		events = append(events, lessonEvent(fmt.Sprintf("u%d", i+1), i-6))
	}

	snap := Aggregate(events, catalog, today, time.UTC)
	if snap.CompletedLessons != 7 || snap.TotalLessons != 10 {
		t.Errorf("lessons = %d/%d, want 7/10", snap.CompletedLessons, snap.TotalLessons)
	}
	if snap.CurrentStreakDays != 7 {
		t.Errorf("current streak = %d, want 7", snap.CurrentStreakDays)
	}
	if snap.LongestStreakDays < snap.CurrentStreakDays {
		t.Errorf("longest %d < current %d", snap.LongestStreakDays, snap.CurrentStreakDays)
	}
	if got := snap.LessonPercent(); got != 70 {
		t.Errorf("percent = %v, want 70", got)
	}
}
