package lesson

import (
	"errors"
	"fmt"
)

// ErrInvalidTrack is matched by track validation errors.
var ErrInvalidTrack = errors.New("invalid track")

// Track is a named, ordered collection of lesson units.
type Track struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Goal    string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Units   []Unit `json:"units" yaml:"units"`
}

// Validate checks that the track has an id, unit ids are unique and
// every prerequisite names an earlier unit of the same track.
func (t Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTrack)
	}
	seen := make(map[string]bool, len(t.Units))
	for i, u := range t.Units {
		if u.ID == "" {
			return fmt.Errorf("%w: unit %d has no id", ErrInvalidTrack, i+1)
		}
		if seen[u.ID] {
			return fmt.Errorf("%w: duplicate unit id %q", ErrInvalidTrack, u.ID)
		}
		if _, err := ParseType(string(u.Type)); err != nil {
			return fmt.Errorf("%w: unit %q: %v", ErrInvalidTrack, u.ID, err)
		}
		for _, pre := range u.PrerequisiteIDs {
			if !seen[pre] {
				return fmt.Errorf("%w: unit %q requires %q which does not come before it", ErrInvalidTrack, u.ID, pre)
			}
		}
		seen[u.ID] = true
	}
	return nil
}

// Unit returns the unit with id, if present.
func (t Track) Unit(id string) (Unit, bool) {
	for _, u := range t.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// TestIDs returns the ids of graded units.
func (t Track) TestIDs() []string {
	var ids []string
	for _, u := range t.Units {
		if u.IsTest() {
			ids = append(ids, u.ID)
		}
	}
	return ids
}
