package store

import (
	"context"
	"errors"
	"time"
)

// ErrSchemaTooNew is returned when the database was written by a newer
// release with an incompatible schema.
var ErrSchemaTooNew = errors.New("database schema is newer than this build supports")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	From   time.Time // occurred >= From
	Newest bool      // newest first
}

// Backend is the persistence surface used by the track service.
// The SQLite Store and the Postgres backend both implement it.
type Backend interface {
	TrackRepo() TrackRepo
	EventRepo() EventRepo
	ScheduleRepo() ScheduleRepo
	AchievementRepo() AchievementRepo
	LLMEventRepo() LLMEventRepo
	Close() error
}

// UnitRecord is the stored form of a lesson unit.
type UnitRecord struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	Type             string   `json:"type"`
	PrerequisiteIDs  []string `json:"prerequisite_ids,omitempty"`
}

// TrackRecord is a learning track and its ordered lesson units.
type TrackRecord struct {
	ID        string
	Title     string
	Subject   string
	Goal      string
	Units     []UnitRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrackRepo stores track definitions.
type TrackRepo interface {
	// Save creates or replaces a track.
	Save(ctx context.Context, rec TrackRecord) error

	// Get returns the track with id, or nil if it does not exist.
	Get(ctx context.Context, id string) (*TrackRecord, error)

	// List returns all tracks ordered by id.
	List(ctx context.Context) ([]TrackRecord, error)
}

// ProgressEventData captures a single progress event.
type ProgressEventData struct {
	ID         string
	TrackID    string
	Kind       string
	LessonID   string
	TestID     string
	Score      float64
	Minutes    int
	Tier       string
	AwardID    string
	OccurredAt time.Time
}

// ProgressEventRecord is a stored progress event with its global sequence.
type ProgressEventRecord struct {
	Sequence int64
	ProgressEventData
}

// EventRepo provides append and query access to the progress event log.
type EventRepo interface {
	// Append records events in a single transaction. Events whose ID is
	// already stored are skipped.
	Append(ctx context.Context, events ...ProgressEventData) error

	// Query returns the events of a track in sequence order.
	Query(ctx context.Context, trackID string, opts QueryOpts) ([]ProgressEventRecord, error)
}

// ScheduleRecord is a serialized schedule.
type ScheduleRecord struct {
	TrackID     string
	Data        []byte
	GeneratedAt time.Time
	UpdatedAt   time.Time
}

// ScheduleRepo stores the current schedule of each track.
type ScheduleRepo interface {
	// Save replaces the track's schedule.
	Save(ctx context.Context, rec ScheduleRecord) error

	// Load returns the schedule of a track, or nil if none was generated.
	Load(ctx context.Context, trackID string) (*ScheduleRecord, error)

	// Delete removes the track's schedule.
	Delete(ctx context.Context, trackID string) error
}

// AchievementRecord is the stored state of one achievement of a track.
type AchievementRecord struct {
	TrackID       string
	ID            string
	Category      string
	Title         string
	RequiredValue float64
	CurrentValue  float64
	IsCompleted   bool
	CompletedAt   *time.Time
}

// AchievementRepo stores achievement state per track.
type AchievementRepo interface {
	// List returns the achievements of a track ordered by id.
	List(ctx context.Context, trackID string) ([]AchievementRecord, error)

	// SaveAll upserts the given records in one transaction.
	SaveAll(ctx context.Context, recs []AchievementRecord) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestRecord is a stored LLM request event.
type LLMRequestRecord struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM calls under one key (purpose or model).
type LLMUsage struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMEventRepo records and reports LLM API calls.
type LLMEventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns recorded requests.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error)

	// GetLLMEvent returns a single request by id, or nil.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestRecord, error)

	// UsageBy aggregates requests grouped by "purpose" or "model".
	UsageBy(ctx context.Context, column string) ([]LLMUsage, error)
}
