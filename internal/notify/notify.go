// Package notify delivers achievement unlocks to observers outside the
// request path: the log, a Redis channel, or both.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abhisek/trackwise/internal/achievement"
)

// Unlock is the message published for one newly completed achievement.
type Unlock struct {
	TrackID       string               `json:"track_id"`
	AchievementID string               `json:"achievement_id"`
	Category      achievement.Category `json:"category"`
	Title         string               `json:"title"`
	RequiredValue float64              `json:"required_value"`
	UnlockedAt    time.Time            `json:"unlocked_at"`
}

// NewUnlock builds the message for a.
func NewUnlock(trackID string, a achievement.Achievement) Unlock {
	u := Unlock{
		TrackID:       trackID,
		AchievementID: a.ID,
		Category:      a.Category,
		Title:         a.Title,
		RequiredValue: a.RequiredValue,
	}
	if a.CompletedAt != nil {
		u.UnlockedAt = *a.CompletedAt
	}
	return u
}

// Log writes unlocks to a slog logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a notifier logging at info level to logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// AchievementsUnlocked logs one line per unlock.
func (l *Log) AchievementsUnlocked(ctx context.Context, trackID string, unlocked []achievement.Achievement) error {
	for _, a := range unlocked {
		l.logger.InfoContext(ctx, "achievement unlocked",
			"track_id", trackID,
			"achievement", a.ID,
			"title", a.Title,
			"category", string(a.Category),
		)
	}
	return nil
}

// Notifier receives achievement unlocks.
type Notifier interface {
	AchievementsUnlocked(ctx context.Context, trackID string, unlocked []achievement.Achievement) error
}

// Multi fans unlocks out to every notifier and joins their errors.
type Multi []Notifier

// AchievementsUnlocked implements Notifier.
func (m Multi) AchievementsUnlocked(ctx context.Context, trackID string, unlocked []achievement.Achievement) error {
	var errs []error
	for _, n := range m {
		if err := n.AchievementsUnlocked(ctx, trackID, unlocked); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
