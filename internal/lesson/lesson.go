// Package lesson defines the schedulable lesson unit and its duration
// estimator.
package lesson

import "fmt"

// Type distinguishes reading material from practice units.
type Type string

const (
	TypeTheory   Type = "theory"
	TypeExercise Type = "exercise"
)

// ParseType parses a unit type. Empty input defaults to theory.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "", TypeTheory:
		return TypeTheory, nil
	case TypeExercise:
		return TypeExercise, nil
	}
	return "", fmt.Errorf("unknown lesson type %q", s)
}

// Unit is an atomic schedulable piece of learning content.
// Exercise units double as tests: submitting a score completes them
// as tests in progress tracking.
type Unit struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	EstimatedMinutes int      `json:"estimated_minutes" yaml:"estimated_minutes"`
	Type             Type     `json:"type" yaml:"type"`
	PrerequisiteIDs  []string `json:"prerequisite_ids,omitempty" yaml:"prerequisites,omitempty"`
}

// IsTest reports whether the unit is graded.
func (u Unit) IsTest() bool { return u.Type == TypeExercise }

// IDs returns the ids of units in order.
func IDs(units []Unit) []string {
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids
}

// Estimator fills in missing durations from per-type defaults.
type Estimator struct {
	TheoryMinutes   int
	ExerciseMinutes int
}

// DefaultEstimator returns the built-in duration defaults.
func DefaultEstimator() Estimator {
	return Estimator{TheoryMinutes: 20, ExerciseMinutes: 30}
}

// Minutes returns the estimated duration of u.
func (e Estimator) Minutes(u Unit) int {
	if u.EstimatedMinutes > 0 {
		return u.EstimatedMinutes
	}
	if u.Type == TypeExercise {
		return e.ExerciseMinutes
	}
	return e.TheoryMinutes
}

// Estimate returns a copy of units with every non-positive duration
// replaced by the default for its type.
func (e Estimator) Estimate(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		u.EstimatedMinutes = e.Minutes(u)
		if u.Type == "" {
			u.Type = TypeTheory
		}
		out[i] = u
	}
	return out
}
