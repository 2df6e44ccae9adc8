// Package progress derives progress snapshots from a track's event log.
package progress

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies what an event records.
type Kind string

const (
	KindLessonCompleted Kind = "lesson_completed"
	KindTestSubmitted   Kind = "test_submitted"
	KindTimeSpent       Kind = "time_spent"
	KindStarAwarded     Kind = "star_awarded"
)

// Tier is a star tier.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierBronze || t == TierSilver || t == TierGold
}

// Event is one entry of the append-only progress log.
type Event struct {
	ID         string    `json:"id"`
	TrackID    string    `json:"track_id"`
	Kind       Kind      `json:"kind"`
	LessonID   string    `json:"lesson_id,omitempty"`
	TestID     string    `json:"test_id,omitempty"`
	Score      float64   `json:"score,omitempty"`
	Minutes    int       `json:"minutes,omitempty"`
	Tier       Tier      `json:"tier,omitempty"`
	AwardID    string    `json:"award_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// LessonCompleted returns a new lesson completion event.
func LessonCompleted(trackID, lessonID string, at time.Time) Event {
	return Event{ID: uuid.NewString(), TrackID: trackID, Kind: KindLessonCompleted, LessonID: lessonID, OccurredAt: at}
}

// TestSubmitted returns a new test submission event.
func TestSubmitted(trackID, testID string, score float64, at time.Time) Event {
	return Event{ID: uuid.NewString(), TrackID: trackID, Kind: KindTestSubmitted, TestID: testID, Score: score, OccurredAt: at}
}

// TimeSpent returns a new time tracking event.
func TimeSpent(trackID, lessonID string, minutes int, at time.Time) Event {
	return Event{ID: uuid.NewString(), TrackID: trackID, Kind: KindTimeSpent, LessonID: lessonID, Minutes: minutes, OccurredAt: at}
}

// StarAwarded returns a new star event. awardID identifies what earned
// the star; the same award cannot earn the same tier twice.
func StarAwarded(trackID, awardID string, tier Tier, at time.Time) Event {
	return Event{ID: uuid.NewString(), TrackID: trackID, Kind: KindStarAwarded, AwardID: awardID, Tier: tier, OccurredAt: at}
}

// StarTierForScore maps a test score to the star tier it earns.
func StarTierForScore(score float64) (Tier, bool) {
	switch {
	case score >= 90:
		return TierGold, true
	case score >= 75:
		return TierSilver, true
	case score >= 50:
		return TierBronze, true
	default:
		return "", false
	}
}
