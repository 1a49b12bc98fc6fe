package encore

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// audioExtensions are the payload formats the playable-handle provider can
// decode. Anything else in an imported folder is ignored.
var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
}

// IsAudioFile reports whether the path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Organize turns a list of files found under the show folder root into an
// ordered list of cues. Each immediate subfolder of root becomes one cue and
// every audio file inside it one stem; audio files directly under root are
// collected into a single cue named after the folder itself. The transform is
// pure apart from id generation: it never touches the filesystem.
//
// Cues and stems are ordered with a numeric-aware collation of their names,
// so "2 Overture" sorts before "10 Finale".
func Organize(files []string, root string) []Cue {
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	rootName := filepath.Base(filepath.Clean(root))

	groups := make(map[string][]Stem)
	var order []string
	for _, f := range files {
		if !IsAudioFile(f) {
			continue
		}
		rel, err := filepath.Rel(root, f)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		group := rootName
		if dir, _ := filepath.Split(rel); dir != "" {
			// only the first path element names the cue; deeper nesting
			// stays within the same cue
			group = strings.Split(filepath.ToSlash(dir), "/")[0]
		}
		if _, seen := groups[group]; !seen {
			order = append(order, group)
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		groups[group] = append(groups[group], Stem{ID: NewID(), Name: name, Path: f})
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return c.CompareString(a, b)
	})
	cues := make([]Cue, 0, len(order))
	for _, group := range order {
		stems := groups[group]
		slices.SortStableFunc(stems, func(a, b Stem) int {
			return c.CompareString(a.Name, b.Name)
		})
		cues = append(cues, Cue{ID: NewID(), Name: group, Stems: stems})
	}
	return cues
}
