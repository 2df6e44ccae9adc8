package track

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/trackwise/internal/achievement"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/progress"
	"github.com/abhisek/trackwise/internal/schedule"
	"github.com/abhisek/trackwise/internal/store"
)

// StoreAdapter implements the service ports on a store.Backend.
type StoreAdapter struct {
	b   store.Backend
	now func() time.Time
}

var (
	_ LessonSource    = (*StoreAdapter)(nil)
	_ TrackCatalog    = (*StoreAdapter)(nil)
	_ EventLog        = (*StoreAdapter)(nil)
	_ ScheduleRepo    = (*StoreAdapter)(nil)
	_ AchievementRepo = (*StoreAdapter)(nil)
)

// NewStoreAdapter wraps b.
func NewStoreAdapter(b store.Backend) *StoreAdapter {
	return &StoreAdapter{b: b, now: time.Now}
}

// Deps returns service dependencies backed by the adapter.
func (a *StoreAdapter) Deps() Deps {
	return Deps{Lessons: a, Catalog: a, Events: a, Schedules: a, Achievements: a}
}

// LessonUnits implements LessonSource.
func (a *StoreAdapter) LessonUnits(ctx context.Context, trackID string) ([]lesson.Unit, error) {
	rec, err := a.b.TrackRepo().Get(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("load track: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	return trackFromRecord(*rec).Units, nil
}

// SaveTrack implements TrackCatalog.
func (a *StoreAdapter) SaveTrack(ctx context.Context, t lesson.Track) error {
	rec := store.TrackRecord{
		ID:        t.ID,
		Title:     t.Title,
		Subject:   t.Subject,
		Goal:      t.Goal,
		Units:     make([]store.UnitRecord, len(t.Units)),
		UpdatedAt: a.now(),
	}
	for i, u := range t.Units {
		rec.Units[i] = store.UnitRecord{
			ID:               u.ID,
			Title:            u.Title,
			EstimatedMinutes: u.EstimatedMinutes,
			Type:             string(u.Type),
			PrerequisiteIDs:  u.PrerequisiteIDs,
		}
	}
	existing, err := a.b.TrackRepo().Get(ctx, t.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = rec.UpdatedAt
	}
	return a.b.TrackRepo().Save(ctx, rec)
}

// Tracks implements TrackCatalog.
func (a *StoreAdapter) Tracks(ctx context.Context) ([]lesson.Track, error) {
	recs, err := a.b.TrackRepo().List(ctx)
	if err != nil {
		return nil, err
	}
	tracks := make([]lesson.Track, len(recs))
	for i, r := range recs {
		tracks[i] = trackFromRecord(r)
	}
	return tracks, nil
}

func trackFromRecord(r store.TrackRecord) lesson.Track {
	t := lesson.Track{ID: r.ID, Title: r.Title, Subject: r.Subject, Goal: r.Goal}
	t.Units = make([]lesson.Unit, len(r.Units))
	for i, u := range r.Units {
		t.Units[i] = lesson.Unit{
			ID:               u.ID,
			Title:            u.Title,
			EstimatedMinutes: u.EstimatedMinutes,
			Type:             lesson.Type(u.Type),
			PrerequisiteIDs:  u.PrerequisiteIDs,
		}
	}
	return t
}

// AppendEvents implements EventLog.
func (a *StoreAdapter) AppendEvents(ctx context.Context, events ...progress.Event) error {
	data := make([]store.ProgressEventData, len(events))
	for i, e := range events {
		data[i] = store.ProgressEventData{
			ID:         e.ID,
			TrackID:    e.TrackID,
			Kind:       string(e.Kind),
			LessonID:   e.LessonID,
			TestID:     e.TestID,
			Score:      e.Score,
			Minutes:    e.Minutes,
			Tier:       string(e.Tier),
			AwardID:    e.AwardID,
			OccurredAt: e.OccurredAt,
		}
	}
	return a.b.EventRepo().Append(ctx, data...)
}

// ReadEvents implements EventLog.
func (a *StoreAdapter) ReadEvents(ctx context.Context, trackID string) ([]progress.Event, error) {
	recs, err := a.b.EventRepo().Query(ctx, trackID, store.QueryOpts{})
	if err != nil {
		return nil, err
	}
	events := make([]progress.Event, len(recs))
	for i, r := range recs {
		events[i] = progress.Event{
			ID:         r.ID,
			TrackID:    r.TrackID,
			Kind:       progress.Kind(r.Kind),
			LessonID:   r.LessonID,
			TestID:     r.TestID,
			Score:      r.Score,
			Minutes:    r.Minutes,
			Tier:       progress.Tier(r.Tier),
			AwardID:    r.AwardID,
			OccurredAt: r.OccurredAt,
		}
	}
	return events, nil
}

// SaveSchedule implements ScheduleRepo.
func (a *StoreAdapter) SaveSchedule(ctx context.Context, s *schedule.Schedule) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	return a.b.ScheduleRepo().Save(ctx, store.ScheduleRecord{
		TrackID:     s.TrackID,
		Data:        data,
		GeneratedAt: s.GeneratedAt,
		UpdatedAt:   a.now(),
	})
}

// LoadSchedule implements ScheduleRepo.
func (a *StoreAdapter) LoadSchedule(ctx context.Context, trackID string) (*schedule.Schedule, error) {
	rec, err := a.b.ScheduleRepo().Load(ctx, trackID)
	if err != nil || rec == nil {
		return nil, err
	}
	var s schedule.Schedule
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		return nil, fmt.Errorf("decode schedule of %s: %w", trackID, err)
	}
	return &s, nil
}

// Achievements implements AchievementRepo.
func (a *StoreAdapter) Achievements(ctx context.Context, trackID string) ([]achievement.Achievement, error) {
	recs, err := a.b.AchievementRepo().List(ctx, trackID)
	if err != nil {
		return nil, err
	}
	list := make([]achievement.Achievement, len(recs))
	for i, r := range recs {
		list[i] = achievement.Achievement{
			ID:            r.ID,
			Category:      achievement.Category(r.Category),
			Title:         r.Title,
			RequiredValue: r.RequiredValue,
			CurrentValue:  r.CurrentValue,
			IsCompleted:   r.IsCompleted,
			CompletedAt:   r.CompletedAt,
		}
	}
	return list, nil
}

// SaveAchievements implements AchievementRepo.
func (a *StoreAdapter) SaveAchievements(ctx context.Context, trackID string, list []achievement.Achievement) error {
	recs := make([]store.AchievementRecord, len(list))
	for i, ach := range list {
		recs[i] = store.AchievementRecord{
			TrackID:       trackID,
			ID:            ach.ID,
			Category:      string(ach.Category),
			Title:         ach.Title,
			RequiredValue: ach.RequiredValue,
			CurrentValue:  ach.CurrentValue,
			IsCompleted:   ach.IsCompleted,
			CompletedAt:   ach.CompletedAt,
		}
	}
	return a.b.AchievementRepo().SaveAll(ctx, recs)
}
