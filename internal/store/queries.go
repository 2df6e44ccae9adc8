package store

import (
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Table names.
const (
	TableTracks       = "tracks"
	TableEvents       = "progress_events"
	TableSchedules    = "schedules"
	TableAchievements = "achievements"
	TableLLMEvents    = "llm_request_events"
	TableMeta         = "store_meta"
)

var (
	trackColumns       = []string{"id", "title", "subject", "goal", "units", "created_at", "updated_at"}
	eventColumns       = []string{"sequence", "id", "track_id", "kind", "lesson_id", "test_id", "score", "minutes", "tier", "award_id", "occurred_at"}
	scheduleColumns    = []string{"track_id", "data", "generated_at", "updated_at"}
	achievementColumns = []string{"track_id", "id", "category", "title", "required_value", "current_value", "is_completed", "completed_at"}
	llmEventColumns    = []string{"sequence", "created_at", "provider", "model", "purpose", "input_tokens", "output_tokens", "latency_ms", "success", "error_message", "request_body", "response_body"}
)

// Scanner is implemented by both database/sql and pgx rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Queries builds the statements shared by the SQLite and Postgres
// backends. Times are stored as Unix nanoseconds and booleans as 0/1 so
// both dialects use the same column types.
type Queries struct {
	b *entsql.DialectBuilder
}

// NewQueries returns a statement builder for an ent dialect name.
func NewQueries(dialectName string) Queries {
	return Queries{b: entsql.Dialect(dialectName)}
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertTrack inserts or replaces a track.
func (q Queries) UpsertTrack(rec TrackRecord) (string, []any, error) {
	units, err := json.Marshal(rec.Units)
	if err != nil {
		return "", nil, fmt.Errorf("marshal units: %w", err)
	}
	query, args := q.b.Insert(TableTracks).
		Columns(trackColumns...).
		Values(rec.ID, rec.Title, rec.Subject, rec.Goal, string(units), unixNano(rec.CreatedAt), unixNano(rec.UpdatedAt)).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"title", "subject", "goal", "units", "updated_at"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()
	return query, args, nil
}

// SelectTracks selects every track, or the one with id when id is set.
func (q Queries) SelectTracks(id string) (string, []any) {
	s := q.b.Select(trackColumns...).From(q.b.Table(TableTracks)).OrderBy("id")
	if id != "" {
		s.Where(entsql.EQ("id", id))
	}
	return s.Query()
}

// ScanTrack reads a row selected by SelectTracks.
func ScanTrack(s Scanner) (TrackRecord, error) {
	var (
		rec              TrackRecord
		units            string
		created, updated int64
	)
	if err := s.Scan(&rec.ID, &rec.Title, &rec.Subject, &rec.Goal, &units, &created, &updated); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(units), &rec.Units); err != nil {
		return rec, fmt.Errorf("decode units of track %s: %w", rec.ID, err)
	}
	rec.CreatedAt = fromUnixNano(created)
	rec.UpdatedAt = fromUnixNano(updated)
	return rec, nil
}

// InsertEvent appends a progress event; an existing event id is ignored.
func (q Queries) InsertEvent(seq int64, e ProgressEventData) (string, []any) {
	return q.b.Insert(TableEvents).
		Columns(eventColumns...).
		Values(seq, e.ID, e.TrackID, e.Kind, e.LessonID, e.TestID, e.Score, e.Minutes, e.Tier, e.AwardID, unixNano(e.OccurredAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
}

// SelectEvents selects the events of a track.
func (q Queries) SelectEvents(trackID string, opts QueryOpts) (string, []any) {
	preds := []*entsql.Predicate{entsql.EQ("track_id", trackID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("occurred_at", opts.From.UnixNano()))
	}
	s := q.b.Select(eventColumns...).From(q.b.Table(TableEvents)).Where(entsql.And(preds...))
	if opts.Newest {
		s.OrderBy(entsql.Desc("sequence"))
	} else {
		s.OrderBy("sequence")
	}
	if opts.Limit > 0 {
		s.Limit(opts.Limit)
	}
	return s.Query()
}

// ScanEvent reads a row selected by SelectEvents.
func ScanEvent(s Scanner) (ProgressEventRecord, error) {
	var (
		rec ProgressEventRecord
		at  int64
	)
	err := s.Scan(&rec.Sequence, &rec.ID, &rec.TrackID, &rec.Kind, &rec.LessonID, &rec.TestID,
		&rec.Score, &rec.Minutes, &rec.Tier, &rec.AwardID, &at)
	rec.OccurredAt = fromUnixNano(at)
	return rec, err
}

// UpsertSchedule inserts or replaces a track's schedule.
func (q Queries) UpsertSchedule(rec ScheduleRecord) (string, []any) {
	return q.b.Insert(TableSchedules).
		Columns(scheduleColumns...).
		Values(rec.TrackID, string(rec.Data), unixNano(rec.GeneratedAt), unixNano(rec.UpdatedAt)).
		OnConflict(entsql.ConflictColumns("track_id"), entsql.ResolveWithNewValues()).
		Query()
}

// SelectSchedule selects the schedule of a track.
func (q Queries) SelectSchedule(trackID string) (string, []any) {
	return q.b.Select(scheduleColumns...).
		From(q.b.Table(TableSchedules)).
		Where(entsql.EQ("track_id", trackID)).
		Query()
}

// DeleteSchedule removes the schedule of a track.
func (q Queries) DeleteSchedule(trackID string) (string, []any) {
	return q.b.Delete(TableSchedules).Where(entsql.EQ("track_id", trackID)).Query()
}

// ScanSchedule reads a row selected by SelectSchedule.
func ScanSchedule(s Scanner) (ScheduleRecord, error) {
	var (
		rec                ScheduleRecord
		data               string
		generated, updated int64
	)
	err := s.Scan(&rec.TrackID, &data, &generated, &updated)
	rec.Data = []byte(data)
	rec.GeneratedAt = fromUnixNano(generated)
	rec.UpdatedAt = fromUnixNano(updated)
	return rec, err
}

// UpsertAchievement inserts or updates one achievement of a track.
func (q Queries) UpsertAchievement(rec AchievementRecord) (string, []any) {
	var completedAt int64
	if rec.CompletedAt != nil {
		completedAt = rec.CompletedAt.UnixNano()
	}
	return q.b.Insert(TableAchievements).
		Columns(achievementColumns...).
		Values(rec.TrackID, rec.ID, rec.Category, rec.Title, rec.RequiredValue, rec.CurrentValue, boolInt(rec.IsCompleted), completedAt).
		OnConflict(entsql.ConflictColumns("track_id", "id"), entsql.ResolveWithNewValues()).
		Query()
}

// SelectAchievements selects the achievements of a track.
func (q Queries) SelectAchievements(trackID string) (string, []any) {
	return q.b.Select(achievementColumns...).
		From(q.b.Table(TableAchievements)).
		Where(entsql.EQ("track_id", trackID)).
		OrderBy("id").
		Query()
}

// ScanAchievement reads a row selected by SelectAchievements.
func ScanAchievement(s Scanner) (AchievementRecord, error) {
	var (
		rec         AchievementRecord
		completed   int
		completedAt int64
	)
	err := s.Scan(&rec.TrackID, &rec.ID, &rec.Category, &rec.Title, &rec.RequiredValue, &rec.CurrentValue, &completed, &completedAt)
	rec.IsCompleted = completed != 0
	if completedAt != 0 {
		t := fromUnixNano(completedAt)
		rec.CompletedAt = &t
	}
	return rec, err
}

// InsertLLMEvent appends an LLM request event.
func (q Queries) InsertLLMEvent(seq int64, at time.Time, d LLMRequestEventData) (string, []any) {
	return q.b.Insert(TableLLMEvents).
		Columns(llmEventColumns...).
		Values(seq, unixNano(at), d.Provider, d.Model, d.Purpose, d.InputTokens, d.OutputTokens,
			d.LatencyMs, boolInt(d.Success), d.ErrorMessage, d.RequestBody, d.ResponseBody).
		Query()
}

// SelectLLMEvents selects LLM events, newest first. A positive id
// selects that event only.
func (q Queries) SelectLLMEvents(id int64, opts QueryOpts) (string, []any) {
	s := q.b.Select(llmEventColumns...).From(q.b.Table(TableLLMEvents)).OrderBy(entsql.Desc("sequence"))
	if id > 0 {
		s.Where(entsql.EQ("sequence", id))
	} else if opts.After > 0 {
		s.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Limit > 0 {
		s.Limit(opts.Limit)
	}
	return s.Query()
}

// ScanLLMEvent reads a row selected by SelectLLMEvents.
func ScanLLMEvent(s Scanner) (LLMRequestRecord, error) {
	var (
		rec     LLMRequestRecord
		at      int64
		success int
	)
	err := s.Scan(&rec.ID, &at, &rec.Provider, &rec.Model, &rec.Purpose, &rec.InputTokens, &rec.OutputTokens,
		&rec.LatencyMs, &success, &rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody)
	rec.Timestamp = fromUnixNano(at)
	rec.Success = success != 0
	return rec, err
}

// LLMUsageBy aggregates LLM events grouped by "purpose" or "model".
func (q Queries) LLMUsageBy(column string) (string, []any, error) {
	if column != "purpose" && column != "model" {
		return "", nil, fmt.Errorf("cannot group LLM usage by %q", column)
	}
	query, args := q.b.Select(
		column,
		entsql.Count("*"),
		entsql.Sum("success"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(q.b.Table(TableLLMEvents)).
		GroupBy(column).
		OrderBy(column).
		Query()
	return query, args, nil
}

// ScanLLMUsage reads a row selected by LLMUsageBy.
func ScanLLMUsage(s Scanner) (LLMUsage, error) {
	var (
		u         LLMUsage
		successes int64
		in, out   int64
		latency   float64
	)
	if err := s.Scan(&u.Key, &u.Calls, &successes, &in, &out, &latency); err != nil {
		return u, err
	}
	u.Failures = u.Calls - int(successes)
	u.InputTokens = int(in)
	u.OutputTokens = int(out)
	u.AvgLatencyMs = int64(latency)
	return u, nil
}
