/*
Package store is the durable stem library: it owns a copy of every imported
stem payload plus an index of the cue list, so a show survives between
sessions without the original import folder. The engine never touches the
store during playback; it is read once at startup and written after every
cue-list mutation.
*/
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	encore "github.com/beatrochee/encore-player"
)

const (
	indexFile = "index.yml"
	stemsDir  = "stems"
)

type Store struct {
	dir string
}

type index struct {
	Cues []encore.Cue `yaml:"cues"`
}

// New opens (or creates) the library at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, stemsDir), 0755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the per-user library location.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "encore", "library")
}

// Save persists the cue list. Stem payloads that do not live in the library
// yet (a fresh import) are copied in and the returned cues point at the
// copies; the originals can disappear afterwards. Payloads already owned by
// the library are left alone.
func (s *Store) Save(cues []encore.Cue) ([]encore.Cue, error) {
	saved := make([]encore.Cue, len(cues))
	for i, c := range cues {
		saved[i] = c.Copy()
		for j := range saved[i].Stems {
			if err := s.adopt(&saved[i].Stems[j]); err != nil {
				return nil, err
			}
		}
	}
	if err := s.writeIndex(index{Cues: relativize(saved, s.dir)}); err != nil {
		return nil, err
	}
	log.Debugf("library saved: %d cues", len(saved))
	return saved, nil
}

// LoadAll reads the persisted cue list; an absent index is an empty library.
func (s *Store) LoadAll() ([]encore.Cue, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading library index: %w", err)
	}
	var idx index
	if err := yaml.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("parsing library index: %w", err)
	}
	return absolutize(idx.Cues, s.dir), nil
}

// Remove deletes one cue and its payload files from the library.
func (s *Store) Remove(cueID string) error {
	cues, err := s.LoadAll()
	if err != nil {
		return err
	}
	i := encore.CueIndex(cues, cueID)
	if i < 0 {
		return nil
	}
	for _, stem := range cues[i].Stems {
		if s.owns(stem.Path) {
			os.Remove(stem.Path)
		}
	}
	cues = append(cues[:i], cues[i+1:]...)
	return s.writeIndex(index{Cues: relativize(cues, s.dir)})
}

// Clear empties the whole library.
func (s *Store) Clear() error {
	if err := os.RemoveAll(filepath.Join(s.dir, stemsDir)); err != nil {
		return fmt.Errorf("clearing library: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, stemsDir), 0755); err != nil {
		return fmt.Errorf("clearing library: %w", err)
	}
	return s.writeIndex(index{})
}

// adopt copies a stem payload into the library unless it is already there.
func (s *Store) adopt(stem *encore.Stem) error {
	if s.owns(stem.Path) {
		return nil
	}
	data, err := stem.ReadPayload()
	if err != nil {
		return err
	}
	target := filepath.Join(s.dir, stemsDir, stem.ID+strings.ToLower(filepath.Ext(stem.Path)))
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("copying stem %q into library: %w", stem.Name, err)
	}
	stem.Path = target
	return nil
}

func (s *Store) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	return err == nil && !strings.HasPrefix(rel, "..")
}

func (s *Store) writeIndex(idx index) error {
	b, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshaling library index: %w", err)
	}
	tmp := filepath.Join(s.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("writing library index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, indexFile)); err != nil {
		return fmt.Errorf("writing library index: %w", err)
	}
	return nil
}

// relativize strips the library prefix from owned payload paths so the
// library can be moved; absolutize restores it on load.
func relativize(cues []encore.Cue, dir string) []encore.Cue {
	out := make([]encore.Cue, len(cues))
	for i, c := range cues {
		out[i] = c.Copy()
		for j := range out[i].Stems {
			if rel, err := filepath.Rel(dir, out[i].Stems[j].Path); err == nil && !strings.HasPrefix(rel, "..") {
				out[i].Stems[j].Path = rel
			}
		}
	}
	return out
}

func absolutize(cues []encore.Cue, dir string) []encore.Cue {
	for i := range cues {
		for j := range cues[i].Stems {
			if !filepath.IsAbs(cues[i].Stems[j].Path) {
				cues[i].Stems[j].Path = filepath.Join(dir, cues[i].Stems[j].Path)
			}
		}
	}
	return cues
}
