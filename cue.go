package encore

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

type (
	// Cue is one song/number of the show: a named, ordered collection of
	// stems that are always played together. The ID is assigned at import
	// time and never changes; Stems is the only field mutated afterwards
	// (reordering), and every mutation of the cue list is persisted by the
	// caller through the store.
	Cue struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Stems []Stem `yaml:"stems,omitempty"`
	}

	// Stem is a single instrumental or vocal track belonging to exactly one
	// cue. The audio payload itself lives in a file (either the originally
	// imported file or a copy owned by the store); it is read once, at
	// acquisition time, when the stem is materialized into a playable
	// handle.
	Stem struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
		Path string `yaml:"file"`
	}
)

// NewID returns a fresh stable identifier for a cue or a stem.
func NewID() string {
	return uuid.NewString()
}

func (c *Cue) Copy() Cue {
	stems := make([]Stem, len(c.Stems))
	copy(stems, c.Stems)
	return Cue{ID: c.ID, Name: c.Name, Stems: stems}
}

// StemIndex returns the position of the stem with the given id in the cue,
// or -1 if the cue has no such stem.
func (c *Cue) StemIndex(id string) int {
	for i, s := range c.Stems {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// StemNamed returns the first stem whose display name matches, or -1. Display
// names are not guaranteed unique; this is a convenience for command input.
func (c *Cue) StemNamed(name string) int {
	for i, s := range c.Stems {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ReadPayload reads the stem's encoded audio bytes from disk.
func (s *Stem) ReadPayload() ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading stem %q payload: %w", s.Name, err)
	}
	return b, nil
}

// CueIndex returns the position of the cue with the given id, or -1.
func CueIndex(cues []Cue, id string) int {
	for i, c := range cues {
		if c.ID == id {
			return i
		}
	}
	return -1
}
