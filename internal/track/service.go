// Package track exposes the scheduling and progress operations of a
// learning track. Mutations of one track are serialized; reads of a track
// run concurrently with each other and never wait on other tracks.
package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"cloud.google.com/go/civil"

	"github.com/abhisek/trackwise/internal/achievement"
	"github.com/abhisek/trackwise/internal/calendar"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/progress"
	"github.com/abhisek/trackwise/internal/schedule"
)

// Config tunes the service.
type Config struct {
	// Location determines calendar days for streaks and missed sessions.
	Location *time.Location

	// DayStart is when the first session of a day begins.
	DayStart calendar.Clock

	// Estimator fills in missing unit durations.
	Estimator lesson.Estimator

	// Achievements is the rule table evaluated for every track.
	Achievements []achievement.Achievement
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		Location:     time.Local,
		DayStart:     schedule.DefaultDayStart,
		Estimator:    lesson.DefaultEstimator(),
		Achievements: achievement.DefaultCatalog(),
	}
}

// Deps are the collaborators of a Service. Notifier, Clock and Logger are
// optional.
type Deps struct {
	Lessons      LessonSource
	Catalog      TrackCatalog
	Events       EventLog
	Schedules    ScheduleRepo
	Achievements AchievementRepo
	Notifier     Notifier
	Clock        Clock
	Logger       *slog.Logger
}

// Service implements the track operations.
type Service struct {
	deps   Deps
	cfg    Config
	packer *schedule.Packer
	locks  trackLocks
}

// NewService creates a Service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		deps:   deps,
		cfg:    cfg,
		packer: schedule.NewPacker(cfg.DayStart),
	}
}

func (s *Service) today() civil.Date {
	return calendar.Today(s.deps.Clock.Now(), s.cfg.Location)
}

// ImportTrack validates t and stores it, replacing any track with the
// same id. Existing schedules and progress of the track are kept.
func (s *Service) ImportTrack(ctx context.Context, t lesson.Track) error {
	if err := t.Validate(); err != nil {
		return err
	}
	defer s.locks.write(t.ID)()

	if err := s.deps.Catalog.SaveTrack(ctx, t); err != nil {
		return fmt.Errorf("save track: %w", err)
	}
	s.deps.Logger.Info("track imported", "track_id", t.ID, "units", len(t.Units))
	return nil
}

// ListTracks returns all stored tracks.
func (s *Service) ListTracks(ctx context.Context) ([]lesson.Track, error) {
	return s.deps.Catalog.Tracks(ctx)
}

// Units returns the lesson units of a track.
func (s *Service) Units(ctx context.Context, trackID string) ([]lesson.Unit, error) {
	defer s.locks.read(trackID)()
	return s.deps.Lessons.LessonUnits(ctx, trackID)
}

// GenerateSchedule packs the track's not yet completed lessons under c
// and replaces the stored schedule. The schedule is computed in full
// before it is saved; on CapacityExceeded nothing is saved and the
// partial schedule is returned with the error.
func (s *Service) GenerateSchedule(ctx context.Context, trackID string, c schedule.Constraints) (*schedule.Schedule, error) {
	defer s.locks.write(trackID)()

	units, err := s.deps.Lessons.LessonUnits(ctx, trackID)
	if err != nil {
		return nil, err
	}
	events, err := s.deps.Events.ReadEvents(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	done := completedLessons(events)
	pending := units[:0:0]
	for _, u := range units {
		if !done[u.ID] {
			pending = append(pending, u)
		}
	}

	sched, err := s.packer.Pack(ctx, s.cfg.Estimator.Estimate(pending), c)
	if sched != nil {
		sched.TrackID = trackID
		sched.GeneratedAt = s.deps.Clock.Now()
		sched.SetLogger(s.deps.Logger)
	}
	if err != nil {
		return sched, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.deps.Schedules.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	s.deps.Logger.Info("schedule generated",
		"track_id", trackID, "sessions", len(sched.Sessions), "lessons", sched.TotalLessons,
		"skipped_completed", len(units)-len(pending))
	return sched.Clone(), nil
}

// MarkSessionItemCompleted completes a session or lesson and records a
// lesson_completed event for every lesson it newly completes.
func (s *Service) MarkSessionItemCompleted(ctx context.Context, trackID, itemID string) (*schedule.Schedule, error) {
	defer s.locks.write(trackID)()

	sched, err := s.load(ctx, trackID)
	if err != nil {
		return nil, err
	}
	newly, err := sched.MarkCompleted(itemID)
	if err != nil {
		return nil, err
	}
	if len(newly) == 0 {
		return s.view(sched), nil
	}

	now := s.deps.Clock.Now()
	events := make([]progress.Event, len(newly))
	for i, id := range newly {
		events[i] = progress.LessonCompleted(trackID, id, now)
	}
	// The event log is authoritative, so it is written first. A failed
	// schedule save is repaired by retrying: completion is idempotent and
	// duplicate completion events are deduplicated on aggregation.
	if err := s.deps.Events.AppendEvents(ctx, events...); err != nil {
		return nil, fmt.Errorf("append events: %w", err)
	}
	if err := s.deps.Schedules.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	return s.view(sched), nil
}

// RescheduleItem moves a lesson to a new date and time window.
func (s *Service) RescheduleItem(ctx context.Context, trackID, itemID string, date civil.Date, start, end calendar.Clock) (*schedule.Schedule, error) {
	defer s.locks.write(trackID)()

	sched, err := s.load(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if err := sched.Reschedule(itemID, date, start, end); err != nil {
		return nil, err
	}
	if err := s.deps.Schedules.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}
	return s.view(sched), nil
}

// GetSchedule returns the track's schedule with past, uncompleted
// sessions flagged as missed. The flag is computed on read and is not
// persisted.
func (s *Service) GetSchedule(ctx context.Context, trackID string) (*schedule.Schedule, error) {
	defer s.locks.read(trackID)()

	sched, err := s.load(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return s.view(sched), nil
}

// SubmitTest records a test score in [0, 100] and, when the score earns
// one, a star. It returns the tier awarded, or "" when none.
func (s *Service) SubmitTest(ctx context.Context, trackID, testID string, score float64) (progress.Tier, error) {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return "", fmt.Errorf("%w: score %v", ErrInvalidInput, score)
	}
	defer s.locks.write(trackID)()

	if err := s.requireUnit(ctx, trackID, testID); err != nil {
		return "", err
	}

	now := s.deps.Clock.Now()
	events := []progress.Event{progress.TestSubmitted(trackID, testID, score, now)}
	tier, ok := progress.StarTierForScore(score)
	if ok {
		events = append(events, progress.StarAwarded(trackID, testID, tier, now))
	}
	if err := s.deps.Events.AppendEvents(ctx, events...); err != nil {
		return "", fmt.Errorf("append events: %w", err)
	}
	return tier, nil
}

// LogTime records minutes spent on a lesson.
func (s *Service) LogTime(ctx context.Context, trackID, lessonID string, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: minutes must be positive, got %d", ErrInvalidInput, minutes)
	}
	defer s.locks.write(trackID)()

	if err := s.requireUnit(ctx, trackID, lessonID); err != nil {
		return err
	}
	ev := progress.TimeSpent(trackID, lessonID, minutes, s.deps.Clock.Now())
	if err := s.deps.Events.AppendEvents(ctx, ev); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

// GetProgress recomputes the track's progress from its event log.
func (s *Service) GetProgress(ctx context.Context, trackID string) (progress.Snapshot, error) {
	defer s.locks.read(trackID)()
	return s.snapshot(ctx, trackID)
}

// GetAchievements evaluates the track's achievements against its current
// progress, persists them and returns the full list together with the
// achievements unlocked by this call. Unlocks are also sent to the
// notifier; a notifier failure is logged and does not fail the call.
func (s *Service) GetAchievements(ctx context.Context, trackID string) (all, newlyUnlocked []achievement.Achievement, err error) {
	defer s.locks.write(trackID)()

	snap, err := s.snapshot(ctx, trackID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := s.deps.Achievements.Achievements(ctx, trackID)
	if err != nil {
		return nil, nil, fmt.Errorf("load achievements: %w", err)
	}

	all, newlyUnlocked = achievement.Evaluate(snap, achievement.Merge(stored, s.cfg.Achievements), s.deps.Clock.Now())
	if err := s.deps.Achievements.SaveAchievements(ctx, trackID, all); err != nil {
		return nil, nil, fmt.Errorf("save achievements: %w", err)
	}

	if len(newlyUnlocked) > 0 && s.deps.Notifier != nil {
		if err := s.deps.Notifier.AchievementsUnlocked(ctx, trackID, newlyUnlocked); err != nil {
			s.deps.Logger.Warn("failed to publish achievement unlocks", "track_id", trackID, "error", err)
		}
	}
	return all, newlyUnlocked, nil
}

func (s *Service) snapshot(ctx context.Context, trackID string) (progress.Snapshot, error) {
	units, err := s.deps.Lessons.LessonUnits(ctx, trackID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	events, err := s.deps.Events.ReadEvents(ctx, trackID)
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("read events: %w", err)
	}
	catalog := progress.Catalog{LessonIDs: lesson.IDs(units)}
	for _, u := range units {
		if u.IsTest() {
			catalog.TestIDs = append(catalog.TestIDs, u.ID)
		}
	}
	return progress.Aggregate(events, catalog, s.today(), s.cfg.Location), nil
}

func (s *Service) load(ctx context.Context, trackID string) (*schedule.Schedule, error) {
	sched, err := s.deps.Schedules.LoadSchedule(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	if sched == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSchedule, trackID)
	}
	sched.SetLogger(s.deps.Logger)
	return sched, nil
}

// view returns a copy of sched for callers, with missed sessions flagged.
func (s *Service) view(sched *schedule.Schedule) *schedule.Schedule {
	c := sched.Clone()
	c.SweepMissed(s.today())
	return c
}

func (s *Service) requireUnit(ctx context.Context, trackID, unitID string) error {
	units, err := s.deps.Lessons.LessonUnits(ctx, trackID)
	if err != nil {
		return err
	}
	for _, u := range units {
		if u.ID == unitID {
			return nil
		}
	}
	return fmt.Errorf("%w: %q in track %s", ErrUnknownItem, unitID, trackID)
}

func completedLessons(events []progress.Event) map[string]bool {
	done := make(map[string]bool)
	for _, ev := range events {
		if ev.Kind == progress.KindLessonCompleted {
			done[ev.LessonID] = true
		}
	}
	return done
}

// IsSchedulingError reports whether err is a constraint or capacity
// failure the caller can fix by changing the constraints.
func IsSchedulingError(err error) bool {
	return errors.Is(err, schedule.ErrConstraintViolation) || errors.Is(err, schedule.ErrCapacityExceeded)
}
