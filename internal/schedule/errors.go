package schedule

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

var (
	// ErrConstraintViolation is matched by *ConstraintViolationError.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrCapacityExceeded is matched by *CapacityExceededError.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvariantViolation signals that cached schedule state diverged
	// from the sessions it is derived from.
	ErrInvariantViolation = errors.New("schedule invariant violation")

	// ErrItemNotFound is returned when a session or lesson id is not
	// part of the schedule.
	ErrItemNotFound = errors.New("schedule item not found")

	// ErrInvalidTimeRange is returned when a session end is not after
	// its start.
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// ConstraintViolationError indicates the supplied constraints make
// scheduling impossible.
type ConstraintViolationError struct {
	Reason string
}

func (e *ConstraintViolationError) Error() string {
	return "constraint violation: " + e.Reason
}

func (e *ConstraintViolationError) Unwrap() error { return ErrConstraintViolation }

func violation(format string, args ...any) error {
	return &ConstraintViolationError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityExceededError indicates valid constraints that cannot fit
// every unit before the deadline. Partial holds what was placed.
type CapacityExceededError struct {
	Deadline civil.Date
	Partial  *Schedule
	Unplaced []string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: %d unit(s) do not fit by %s: %s",
		len(e.Unplaced), e.Deadline, strings.Join(e.Unplaced, ", "))
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }
