// Package cuesheet renders the show's running order as a printable cue
// sheet for the stage crew.
package cuesheet

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"

	encore "github.com/beatrochee/encore-player"
)

// Entry is one cue of the sheet plus everything the template needs that the
// data model does not carry directly.
type Entry struct {
	Number   int
	Name     string
	Stems    []string
	Duration time.Duration
}

const defaultTemplate = `CUE SHEET — {{ .Show }}
{{ repeat 60 "=" }}
{{- range .Entries }}
{{ printf "%2d" .Number }}. {{ .Name }}{{ if gt .Duration 0 }} ({{ clock .Duration }}){{ end }}
    stems: {{ join ", " .Stems | default "none" }}
{{- end }}

{{ len .Entries }} cue(s) total.
`

// Render produces the cue sheet for the given cues. Durations are supplied
// by the caller per cue id (zero means unknown: a cue never yet loaded).
func Render(show string, cues []encore.Cue, durations map[string]time.Duration) (string, error) {
	tmpl, err := template.New("cuesheet").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"clock": clock,
	}).Parse(defaultTemplate)
	if err != nil {
		return "", fmt.Errorf("could not parse cue sheet template: %v", err)
	}
	entries := make([]Entry, len(cues))
	for i, c := range cues {
		names := make([]string, len(c.Stems))
		for j, s := range c.Stems {
			names[j] = s.Name
		}
		entries[i] = Entry{Number: i + 1, Name: c.Name, Stems: names, Duration: durations[c.ID]}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{"Show": show, "Entries": entries}); err != nil {
		return "", fmt.Errorf("could not execute cue sheet template: %v", err)
	}
	return buf.String(), nil
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
