package track

import (
	"context"
	"time"

	"github.com/abhisek/trackwise/internal/achievement"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/progress"
	"github.com/abhisek/trackwise/internal/schedule"
)

// LessonSource provides the lesson units of a track.
type LessonSource interface {
	// LessonUnits returns the ordered units of a track, or
	// ErrTrackNotFound.
	LessonUnits(ctx context.Context, trackID string) ([]lesson.Unit, error)
}

// TrackCatalog stores track definitions.
type TrackCatalog interface {
	SaveTrack(ctx context.Context, t lesson.Track) error
	Tracks(ctx context.Context) ([]lesson.Track, error)
}

// EventLog is the append-only progress log.
type EventLog interface {
	AppendEvents(ctx context.Context, events ...progress.Event) error
	ReadEvents(ctx context.Context, trackID string) ([]progress.Event, error)
}

// ScheduleRepo persists the current schedule of each track.
type ScheduleRepo interface {
	SaveSchedule(ctx context.Context, s *schedule.Schedule) error

	// LoadSchedule returns nil when the track has no schedule.
	LoadSchedule(ctx context.Context, trackID string) (*schedule.Schedule, error)
}

// AchievementRepo persists achievement state per track.
type AchievementRepo interface {
	Achievements(ctx context.Context, trackID string) ([]achievement.Achievement, error)
	SaveAchievements(ctx context.Context, trackID string, list []achievement.Achievement) error
}

// Notifier receives newly unlocked achievements.
type Notifier interface {
	AchievementsUnlocked(ctx context.Context, trackID string, unlocked []achievement.Achievement) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
