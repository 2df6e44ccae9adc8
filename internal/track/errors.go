package track

import "errors"

var (
	// ErrTrackNotFound is returned for an unknown track id.
	ErrTrackNotFound = errors.New("track not found")

	// ErrNoSchedule is returned when a track has no generated schedule.
	ErrNoSchedule = errors.New("no schedule generated for track")

	// ErrUnknownItem is returned when an id is not a unit of the track.
	ErrUnknownItem = errors.New("unknown track item")

	// ErrInvalidInput is returned for out-of-range scores or durations.
	ErrInvalidInput = errors.New("invalid input")
)
