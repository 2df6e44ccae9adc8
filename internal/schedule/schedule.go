package schedule

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/abhisek/trackwise/internal/calendar"
)

// Session is a dated block of lessons studied together.
type Session struct {
	ID                 string         `json:"id"`
	Date               civil.Date     `json:"date"`
	StartTime          calendar.Clock `json:"start_time"`
	EndTime            calendar.Clock `json:"end_time"`
	LessonIDs          []string       `json:"lesson_ids"`
	CompletedLessonIDs []string       `json:"completed_lesson_ids,omitempty"`
	IsCompleted        bool           `json:"is_completed"`
	IsMissed           bool           `json:"is_missed"`
}

// HasLesson reports whether id is assigned to the session.
func (s *Session) HasLesson(id string) bool {
	return slices.Contains(s.LessonIDs, id)
}

// LessonDone reports whether lesson id in this session is completed.
func (s *Session) LessonDone(id string) bool {
	return slices.Contains(s.CompletedLessonIDs, id)
}

// Minutes returns the length of the session window.
func (s *Session) Minutes() int {
	return s.EndTime.Minutes() - s.StartTime.Minutes()
}

// complete marks lesson id done and reports whether it was newly done.
func (s *Session) complete(id string) bool {
	if s.LessonDone(id) {
		return false
	}
	s.CompletedLessonIDs = append(s.CompletedLessonIDs, id)
	return true
}

// settle derives IsCompleted from the per-lesson completion list.
// Completing a session clears a previous missed flag.
func (s *Session) settle() {
	done := len(s.LessonIDs) > 0
	for _, id := range s.LessonIDs {
		if !s.LessonDone(id) {
			done = false
			break
		}
	}
	s.IsCompleted = done
	if done {
		s.IsMissed = false
	}
}

func (s *Session) clone() *Session {
	c := *s
	c.LessonIDs = slices.Clone(s.LessonIDs)
	c.CompletedLessonIDs = slices.Clone(s.CompletedLessonIDs)
	return &c
}

// Schedule is the ordered list of sessions generated for a track.
// CompletedLessons is a cached count of the lessons inside completed
// sessions; it is re-validated after every mutation.
type Schedule struct {
	TrackID          string     `json:"track_id"`
	StartDate        civil.Date `json:"start_date"`
	EndDate          civil.Date `json:"end_date"`
	Sessions         []*Session `json:"sessions"`
	TotalLessons     int        `json:"total_lessons"`
	CompletedLessons int        `json:"completed_lessons"`
	GeneratedAt      time.Time  `json:"generated_at"`

	logger *slog.Logger
}

// SetLogger sets the logger used to report invariant violations.
func (s *Schedule) SetLogger(l *slog.Logger) { s.logger = l }

func (s *Schedule) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// LessonIDs returns every scheduled lesson id in session order.
func (s *Schedule) LessonIDs() []string {
	var ids []string
	for _, sess := range s.Sessions {
		ids = append(ids, sess.LessonIDs...)
	}
	return ids
}

// SessionByID returns the session with the given id, or nil.
func (s *Schedule) SessionByID(id string) *Session {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// SessionFor returns the session holding lesson id, or nil.
func (s *Schedule) SessionFor(lessonID string) *Session {
	for _, sess := range s.Sessions {
		if sess.HasLesson(lessonID) {
			return sess
		}
	}
	return nil
}

// MarkCompleted completes a session (every lesson in it) or a single
// lesson, and returns the lesson ids that were not completed before.
// Completing an already completed item is a no-op.
func (s *Schedule) MarkCompleted(id string) ([]string, error) {
	sess := s.SessionByID(id)
	lessons := []string{id}
	if sess != nil {
		lessons = slices.Clone(sess.LessonIDs)
	} else {
		sess = s.SessionFor(id)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, id)
	}

	var newly []string
	s.mutate(sess, func() {
		for _, l := range lessons {
			if sess.complete(l) {
				newly = append(newly, l)
			}
		}
	})
	s.check()
	return newly, nil
}

// Reschedule moves a lesson to date within [start, end). A session left
// empty is removed. An existing session on date absorbs the lesson and
// widens its window to cover [start, end); otherwise a new session is
// created. Daily capacity is not enforced.
func (s *Schedule) Reschedule(lessonID string, date civil.Date, start, end calendar.Clock) error {
	if !start.Valid() || !end.Valid() || end <= start {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	if !date.IsValid() {
		return fmt.Errorf("%w: invalid date %s", ErrInvalidTimeRange, date)
	}
	src := s.SessionFor(lessonID)
	if src == nil {
		return fmt.Errorf("%w: %q", ErrItemNotFound, lessonID)
	}
	done := src.LessonDone(lessonID)

	s.mutate(src, func() {
		src.LessonIDs = slices.DeleteFunc(src.LessonIDs, func(id string) bool { return id == lessonID })
		src.CompletedLessonIDs = slices.DeleteFunc(src.CompletedLessonIDs, func(id string) bool { return id == lessonID })
	})
	if len(src.LessonIDs) == 0 {
		s.Sessions = slices.DeleteFunc(s.Sessions, func(x *Session) bool { return x == src })
	}

	dst := s.sessionOn(date)
	if dst == nil {
		dst = &Session{ID: uuid.NewString(), Date: date, StartTime: start, EndTime: end}
		s.Sessions = append(s.Sessions, dst)
	} else {
		dst.StartTime = min(dst.StartTime, start)
		dst.EndTime = max(dst.EndTime, end)
	}
	s.mutate(dst, func() {
		dst.LessonIDs = append(dst.LessonIDs, lessonID)
		if done {
			dst.CompletedLessonIDs = append(dst.CompletedLessonIDs, lessonID)
		}
	})

	s.sortSessions()
	s.check()
	return nil
}

// SweepMissed flags every uncompleted session dated before today as
// missed and returns how many sessions were newly flagged.
func (s *Schedule) SweepMissed(today civil.Date) int {
	n := 0
	for _, sess := range s.Sessions {
		if sess.Date.Before(today) && !sess.IsCompleted && !sess.IsMissed {
			sess.IsMissed = true
			n++
		}
	}
	return n
}

// Validate checks the cached counters and session shape against the
// session contents.
func (s *Schedule) Validate() error {
	total, completed := 0, 0
	seen := make(map[string]bool)
	for i, sess := range s.Sessions {
		if len(sess.LessonIDs) == 0 {
			return fmt.Errorf("%w: session %s on %s has no lessons", ErrInvariantViolation, sess.ID, sess.Date)
		}
		if i > 0 && sess.Date.Before(s.Sessions[i-1].Date) {
			return fmt.Errorf("%w: sessions out of date order at %s", ErrInvariantViolation, sess.Date)
		}
		for _, id := range sess.LessonIDs {
			if seen[id] {
				return fmt.Errorf("%w: lesson %q scheduled twice", ErrInvariantViolation, id)
			}
			seen[id] = true
		}
		total += len(sess.LessonIDs)
		if sess.IsCompleted {
			completed += len(sess.LessonIDs)
		}
	}
	if total != s.TotalLessons {
		return fmt.Errorf("%w: total lessons cached %d, counted %d", ErrInvariantViolation, s.TotalLessons, total)
	}
	if completed != s.CompletedLessons {
		return fmt.Errorf("%w: completed lessons cached %d, counted %d", ErrInvariantViolation, s.CompletedLessons, completed)
	}
	return nil
}

// Reconcile rebuilds every derived field from the sessions: empty
// sessions are dropped, completion flags are re-derived and the cached
// counters are recomputed.
func (s *Schedule) Reconcile() {
	s.Sessions = slices.DeleteFunc(s.Sessions, func(x *Session) bool { return len(x.LessonIDs) == 0 })
	s.sortSessions()
	s.TotalLessons, s.CompletedLessons = 0, 0
	for _, sess := range s.Sessions {
		sess.CompletedLessonIDs = slices.DeleteFunc(sess.CompletedLessonIDs, func(id string) bool {
			return !sess.HasLesson(id)
		})
		sess.settle()
		s.TotalLessons += len(sess.LessonIDs)
		if sess.IsCompleted {
			s.CompletedLessons += len(sess.LessonIDs)
		}
	}
}

// Clone returns a deep copy of s.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	c := *s
	c.Sessions = make([]*Session, len(s.Sessions))
	for i, sess := range s.Sessions {
		c.Sessions[i] = sess.clone()
	}
	return &c
}

// mutate applies fn to sess, keeping CompletedLessons and TotalLessons
// in step with the session's completion flag.
func (s *Schedule) mutate(sess *Session, fn func()) {
	before := len(sess.LessonIDs)
	if sess.IsCompleted {
		s.CompletedLessons -= before
	}
	fn()
	sess.settle()
	s.TotalLessons += len(sess.LessonIDs) - before
	if sess.IsCompleted {
		s.CompletedLessons += len(sess.LessonIDs)
	}
}

// check logs and repairs an invariant violation.
func (s *Schedule) check() {
	if err := s.Validate(); err != nil {
		s.log().Error("schedule invariant violated, recomputing",
			"track_id", s.TrackID, "error", err)
		s.Reconcile()
	}
}

func (s *Schedule) sessionOn(date civil.Date) *Session {
	for _, sess := range s.Sessions {
		if sess.Date == date {
			return sess
		}
	}
	return nil
}

func (s *Schedule) sortSessions() {
	slices.SortStableFunc(s.Sessions, func(a, b *Session) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return a.StartTime.Minutes() - b.StartTime.Minutes()
	})
	if len(s.Sessions) > 0 {
		if first := s.Sessions[0].Date; first.Before(s.StartDate) {
			s.StartDate = first
		}
		s.EndDate = s.Sessions[len(s.Sessions)-1].Date
	}
}
