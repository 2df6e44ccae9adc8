package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"entgo.io/ent/dialect"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.TrackRepo().Save(ctx, TrackRecord{ID: "go", Title: "Go"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	rec, err := s.TrackRepo().Get(ctx, "go")
	if err != nil || rec == nil {
		t.Fatalf("Get after reopen = %v, %v", rec, err)
	}
}

func TestSchemaVersionGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.DB().Exec(`UPDATE store_meta SET value = 'v9.0.0' WHERE key = 'schema_version'`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("Open err = %v, want ErrSchemaTooNew", err)
	}

	if err := CheckSchemaVersion("v1.7.3"); err != nil {
		t.Errorf("minor bump rejected: %v", err)
	}
	if err := CheckSchemaVersion("garbage"); err == nil {
		t.Error("invalid version accepted")
	}
}

func TestTrackRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.TrackRepo()
	ctx := context.Background()

	if rec, err := repo.Get(ctx, "missing"); err != nil || rec != nil {
		t.Fatalf("Get(missing) = %v, %v; want nil, nil", rec, err)
	}

	units := []UnitRecord{
		{ID: "a", Title: "Intro", EstimatedMinutes: 20, Type: "theory"},
		{ID: "b", Title: "Drill", EstimatedMinutes: 30, Type: "exercise", PrerequisiteIDs: []string{"a"}},
	}
	if err := repo.Save(ctx, TrackRecord{ID: "t2", Title: "Second", Units: units}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, TrackRecord{ID: "t1", Title: "First", Subject: "math", Units: units[:1]}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, "t2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Units) != 2 || got.Units[1].PrerequisiteIDs[0] != "a" {
		t.Errorf("units = %+v", got.Units)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	// Replace keeps the id unique.
	if err := repo.Save(ctx, TrackRecord{ID: "t2", Title: "Second v2", Units: units}); err != nil {
		t.Fatal(err)
	}
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "t1" || all[1].Title != "Second v2" {
		t.Errorf("List = %+v", all)
	}
}

func TestEventRepoAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()
	at := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

	events := []ProgressEventData{
		{ID: "e1", TrackID: "t1", Kind: "lesson_completed", LessonID: "a", OccurredAt: at},
		{ID: "e2", TrackID: "t1", Kind: "test_submitted", TestID: "b", Score: 87.5, OccurredAt: at.Add(time.Hour)},
		{ID: "e3", TrackID: "t2", Kind: "time_spent", LessonID: "x", Minutes: 15, OccurredAt: at},
	}
	if err := repo.Append(ctx, events...); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Duplicate ids are ignored.
	if err := repo.Append(ctx, events[0]); err != nil {
		t.Fatalf("Append duplicate: %v", err)
	}

	got, err := repo.Query(ctx, "t1", QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].Score != 87.5 {
		t.Errorf("events = %+v", got)
	}
	if got[0].Sequence >= got[1].Sequence {
		t.Error("sequence not increasing")
	}
	if !got[1].OccurredAt.Equal(at.Add(time.Hour)) {
		t.Errorf("occurred_at = %v", got[1].OccurredAt)
	}

	after, err := repo.Query(ctx, "t1", QueryOpts{After: got[0].Sequence})
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0].ID != "e2" {
		t.Errorf("After filter = %+v", after)
	}

	newest, err := repo.Query(ctx, "t1", QueryOpts{Newest: true, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(newest) != 1 || newest[0].ID != "e2" {
		t.Errorf("Newest = %+v", newest)
	}
}

func TestScheduleRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.ScheduleRepo()
	ctx := context.Background()

	if rec, err := repo.Load(ctx, "t1"); err != nil || rec != nil {
		t.Fatalf("Load(empty) = %v, %v", rec, err)
	}

	gen := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, ScheduleRecord{TrackID: "t1", Data: []byte(`{"v":1}`), GeneratedAt: gen}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, ScheduleRecord{TrackID: "t1", Data: []byte(`{"v":2}`), GeneratedAt: gen}); err != nil {
		t.Fatal(err)
	}
	rec, err := repo.Load(ctx, "t1")
	if err != nil || rec == nil {
		t.Fatalf("Load = %v, %v", rec, err)
	}
	if string(rec.Data) != `{"v":2}` || !rec.GeneratedAt.Equal(gen) {
		t.Errorf("record = %s @ %v", rec.Data, rec.GeneratedAt)
	}

	if err := repo.Delete(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if rec, _ := repo.Load(ctx, "t1"); rec != nil {
		t.Error("schedule still present after Delete")
	}
}

func TestAchievementRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.AchievementRepo()
	ctx := context.Background()
	done := time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)

	recs := []AchievementRecord{
		{TrackID: "t1", ID: "b", Category: "lessons_completed", RequiredValue: 10, CurrentValue: 3},
		{TrackID: "t1", ID: "a", Category: "lessons_completed", RequiredValue: 1, CurrentValue: 3, IsCompleted: true, CompletedAt: &done},
		{TrackID: "t2", ID: "a", Category: "lessons_completed", RequiredValue: 1},
	}
	if err := repo.SaveAll(ctx, recs); err != nil {
		t.Fatal(err)
	}
	recs[0].CurrentValue = 4
	if err := repo.SaveAll(ctx, recs[:1]); err != nil {
		t.Fatal(err)
	}

	got, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("achievements = %d, want 2", len(got))
	}
	if got[0].ID != "a" || !got[0].IsCompleted || got[0].CompletedAt == nil || !got[0].CompletedAt.Equal(done) {
		t.Errorf("a = %+v", got[0])
	}
	if got[1].CurrentValue != 4 || got[1].IsCompleted || got[1].CompletedAt != nil {
		t.Errorf("b = %+v", got[1])
	}
}

func TestLLMEventRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.LLMEventRepo()
	ctx := context.Background()

	data := []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "study-plan", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "mock", Model: "m1", Purpose: "study-plan", InputTokens: 10, LatencyMs: 100, ErrorMessage: "boom"},
		{Provider: "mock", Model: "m2", Purpose: "lesson-notes", InputTokens: 5, OutputTokens: 5, LatencyMs: 30, Success: true},
	}
	for _, d := range data {
		if err := repo.AppendLLMRequest(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Purpose != "lesson-notes" {
		t.Fatalf("events = %+v", events)
	}

	one, err := repo.GetLLMEvent(ctx, events[1].ID)
	if err != nil || one == nil {
		t.Fatalf("GetLLMEvent = %v, %v", one, err)
	}
	if one.Success || one.ErrorMessage != "boom" {
		t.Errorf("event = %+v", one)
	}
	if missing, err := repo.GetLLMEvent(ctx, 9999); err != nil || missing != nil {
		t.Errorf("GetLLMEvent(9999) = %v, %v", missing, err)
	}

	usage, err := repo.UsageBy(ctx, "purpose")
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage groups = %d, want 2", len(usage))
	}
	plan := usage[1]
	if plan.Key != "study-plan" || plan.Calls != 2 || plan.Failures != 1 || plan.InputTokens != 110 || plan.AvgLatencyMs != 150 {
		t.Errorf("study-plan usage = %+v", plan)
	}

	if _, err := repo.UsageBy(ctx, "provider; DROP TABLE x"); err == nil {
		t.Error("expected error for unsupported grouping")
	}
}

func TestQueriesPostgresPlaceholders(t *testing.T) {
	q := NewQueries(dialect.Postgres)
	query, args := q.SelectEvents("t1", QueryOpts{After: 5, Limit: 10})
	if !strings.Contains(query, "$1") || !strings.Contains(query, "$2") {
		t.Errorf("query = %s", query)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}

	query, _ = q.InsertEvent(1, ProgressEventData{ID: "e"})
	if !strings.Contains(query, "ON CONFLICT") || !strings.Contains(query, "DO NOTHING") {
		t.Errorf("insert = %s", query)
	}
}
