package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/abhisek/trackwise/internal/store"
)

// collect scans every row with scan.
func collect[T any](rows pgx.Rows, scan func(store.Scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type trackRepo struct{ b *Backend }

func (r *trackRepo) Save(ctx context.Context, rec store.TrackRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query, args, err := r.b.q.UpsertTrack(rec)
	if err != nil {
		return err
	}
	if _, err := r.b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save track %s: %w", rec.ID, err)
	}
	return nil
}

func (r *trackRepo) Get(ctx context.Context, id string) (*store.TrackRecord, error) {
	query, args := r.b.q.SelectTracks(id)
	rec, err := store.ScanTrack(r.b.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query track %s: %w", id, err)
	}
	return &rec, nil
}

func (r *trackRepo) List(ctx context.Context) ([]store.TrackRecord, error) {
	query, args := r.b.q.SelectTracks("")
	rows, err := r.b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	return collect(rows, store.ScanTrack)
}

type eventRepo struct{ b *Backend }

func (r *eventRepo) Append(ctx context.Context, events ...store.ProgressEventData) error {
	if len(events) == 0 {
		return nil
	}
	return r.b.withTx(ctx, func(tx pgx.Tx) error {
		for _, e := range events {
			seq, err := r.b.nextSequence(ctx, tx)
			if err != nil {
				return err
			}
			query, args := r.b.q.InsertEvent(seq, e)
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("save %s event: %w", e.Kind, err)
			}
		}
		return nil
	})
}

func (r *eventRepo) Query(ctx context.Context, trackID string, opts store.QueryOpts) ([]store.ProgressEventRecord, error) {
	query, args := r.b.q.SelectEvents(trackID, opts)
	rows, err := r.b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collect(rows, store.ScanEvent)
}

type scheduleRepo struct{ b *Backend }

func (r *scheduleRepo) Save(ctx context.Context, rec store.ScheduleRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	query, args := r.b.q.UpsertSchedule(rec)
	if _, err := r.b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save schedule %s: %w", rec.TrackID, err)
	}
	return nil
}

func (r *scheduleRepo) Load(ctx context.Context, trackID string) (*store.ScheduleRecord, error) {
	query, args := r.b.q.SelectSchedule(trackID)
	rec, err := store.ScanSchedule(r.b.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query schedule %s: %w", trackID, err)
	}
	return &rec, nil
}

func (r *scheduleRepo) Delete(ctx context.Context, trackID string) error {
	query, args := r.b.q.DeleteSchedule(trackID)
	if _, err := r.b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete schedule %s: %w", trackID, err)
	}
	return nil
}

type achievementRepo struct{ b *Backend }

func (r *achievementRepo) List(ctx context.Context, trackID string) ([]store.AchievementRecord, error) {
	query, args := r.b.q.SelectAchievements(trackID)
	rows, err := r.b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	return collect(rows, store.ScanAchievement)
}

func (r *achievementRepo) SaveAll(ctx context.Context, recs []store.AchievementRecord) error {
	return r.b.withTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range recs {
			query, args := r.b.q.UpsertAchievement(rec)
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("save achievement %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

type llmEventRepo struct{ b *Backend }

func (r *llmEventRepo) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	seq, err := r.b.nextSequence(ctx, r.b.pool)
	if err != nil {
		return err
	}
	query, args := r.b.q.InsertLLMEvent(seq, time.Now(), data)
	if _, err := r.b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *llmEventRepo) QueryLLMEvents(ctx context.Context, opts store.QueryOpts) ([]store.LLMRequestRecord, error) {
	query, args := r.b.q.SelectLLMEvents(0, opts)
	rows, err := r.b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return collect(rows, store.ScanLLMEvent)
}

func (r *llmEventRepo) GetLLMEvent(ctx context.Context, id int64) (*store.LLMRequestRecord, error) {
	query, args := r.b.q.SelectLLMEvents(id, store.QueryOpts{})
	rec, err := store.ScanLLMEvent(r.b.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query LLM event %d: %w", id, err)
	}
	return &rec, nil
}

func (r *llmEventRepo) UsageBy(ctx context.Context, column string) ([]store.LLMUsage, error) {
	query, args, err := r.b.q.LLMUsageBy(column)
	if err != nil {
		return nil, err
	}
	rows, err := r.b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	return collect(rows, store.ScanLLMUsage)
}
