package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type trackRepo struct{ s *Store }

func (r *trackRepo) Save(ctx context.Context, rec TrackRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query, args, err := r.s.q.UpsertTrack(rec)
	if err != nil {
		return err
	}
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save track %s: %w", rec.ID, err)
	}
	return nil
}

func (r *trackRepo) Get(ctx context.Context, id string) (*TrackRecord, error) {
	query, args := r.s.q.SelectTracks(id)
	rec, err := ScanTrack(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query track %s: %w", id, err)
	}
	return &rec, nil
}

func (r *trackRepo) List(ctx context.Context) ([]TrackRecord, error) {
	query, args := r.s.q.SelectTracks("")
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackRecord
	for rows.Next() {
		rec, err := ScanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type eventRepo struct{ s *Store }

func (r *eventRepo) Append(ctx context.Context, events ...ProgressEventData) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range events {
		seq, err := r.s.seq.NextIn(ctx, tx)
		if err != nil {
			return err
		}
		query, args := r.s.q.InsertEvent(seq, e)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save %s event: %w", e.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

func (r *eventRepo) Query(ctx context.Context, trackID string, opts QueryOpts) ([]ProgressEventRecord, error) {
	query, args := r.s.q.SelectEvents(trackID, opts)
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []ProgressEventRecord
	for rows.Next() {
		rec, err := ScanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scheduleRepo struct{ s *Store }

func (r *scheduleRepo) Save(ctx context.Context, rec ScheduleRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	query, args := r.s.q.UpsertSchedule(rec)
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save schedule %s: %w", rec.TrackID, err)
	}
	return nil
}

func (r *scheduleRepo) Load(ctx context.Context, trackID string) (*ScheduleRecord, error) {
	query, args := r.s.q.SelectSchedule(trackID)
	rec, err := ScanSchedule(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule %s: %w", trackID, err)
	}
	return &rec, nil
}

func (r *scheduleRepo) Delete(ctx context.Context, trackID string) error {
	query, args := r.s.q.DeleteSchedule(trackID)
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete schedule %s: %w", trackID, err)
	}
	return nil
}

type achievementRepo struct{ s *Store }

func (r *achievementRepo) List(ctx context.Context, trackID string) ([]AchievementRecord, error) {
	query, args := r.s.q.SelectAchievements(trackID)
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var out []AchievementRecord
	for rows.Next() {
		rec, err := ScanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *achievementRepo) SaveAll(ctx context.Context, recs []AchievementRecord) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		query, args := r.s.q.UpsertAchievement(rec)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save achievement %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit achievements: %w", err)
	}
	return nil
}

type llmEventRepo struct{ s *Store }

func (r *llmEventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seq, err := r.s.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := r.s.q.InsertLLMEvent(seq, time.Now(), data)
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *llmEventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error) {
	query, args := r.s.q.SelectLLMEvents(0, opts)
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestRecord
	for rows.Next() {
		rec, err := ScanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM event: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *llmEventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestRecord, error) {
	query, args := r.s.q.SelectLLMEvents(id, QueryOpts{})
	rec, err := ScanLLMEvent(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query LLM event %d: %w", id, err)
	}
	return &rec, nil
}

func (r *llmEventRepo) UsageBy(ctx context.Context, column string) ([]LLMUsage, error) {
	query, args, err := r.s.q.LLMUsageBy(column)
	if err != nil {
		return nil, err
	}
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		u, err := ScanLLMUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
