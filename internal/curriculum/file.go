// Package curriculum produces learning tracks: from YAML track files and
// from study plans generated by a language model.
package curriculum

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/trackwise/internal/lesson"
)

// ParseTrack decodes a YAML track definition:
//
//	id: go-basics
//	title: Go Basics
//	units:
//	  - id: vars
//	    title: Variables
//	    estimated_minutes: 20
//	  - id: quiz-1
//	    title: Variables quiz
//	    type: exercise
//	    prerequisites: [vars]
//
// Unknown keys are rejected. A missing type means theory.
func ParseTrack(r io.Reader) (lesson.Track, error) {
	var t lesson.Track
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return t, fmt.Errorf("%w: empty track file", lesson.ErrInvalidTrack)
		}
		return t, fmt.Errorf("decode track: %w", err)
	}
	for i := range t.Units {
		if t.Units[i].Type == "" {
			t.Units[i].Type = lesson.TypeTheory
		}
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// LoadTrackFile reads and validates the track at path.
func LoadTrackFile(path string) (lesson.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return lesson.Track{}, err
	}
	defer f.Close()

	t, err := ParseTrack(f)
	if err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteTrack encodes t as YAML.
func WriteTrack(w io.Writer, t lesson.Track) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}
