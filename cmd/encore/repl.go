package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"

	encore "github.com/beatrochee/encore-player"
	"github.com/beatrochee/encore-player/config"
	"github.com/beatrochee/encore-player/cuesheet"
	"github.com/beatrochee/encore-player/engine"
	"github.com/beatrochee/encore-player/media"
	"github.com/beatrochee/encore-player/peaks"
	"github.com/beatrochee/encore-player/store"
)

const closeTimeout = 3 * time.Second

// ui is the line-based front end. It mirrors the engine's cue list and mixer
// state so that commands can be validated and the offline bounce can resolve
// gains without asking the engine; the engine remains the source of truth for
// the audible result.
type ui struct {
	broker *engine.Broker
	store  *store.Store
	cfg    *config.Config
	cache  *peaks.Cache
	show   string

	mu        sync.Mutex
	cues      []encore.Cue
	activeID  string
	snapshot  engine.MsgToUI
	durations map[string]time.Duration
	entries   map[string]encore.MixerEntry
	master    encore.MasterState
	repeat    bool
	advance   bool
}

func newUI(broker *engine.Broker, st *store.Store, cfg *config.Config, cues []encore.Cue) *ui {
	return &ui{
		broker:    broker,
		store:     st,
		cfg:       cfg,
		cache:     peaks.NewCache(),
		show:      "Encore",
		cues:      cues,
		durations: map[string]time.Duration{},
		entries:   map[string]encore.MixerEntry{},
		master:    encore.MasterState{Volume: cfg.MasterVolume},
		repeat:    cfg.Repeat,
		advance:   cfg.AutoAdvance,
	}
}

// watch consumes engine messages for the lifetime of the process. The
// snapshot messages just overwrite the previous one; only the boxed messages
// produce output.
func (u *ui) watch() {
	for msg := range u.broker.ToUI {
		u.mu.Lock()
		if msg.HasSnapshot {
			u.snapshot = msg
			if msg.Duration > 0 {
				u.durations[msg.CueID] = msg.Duration
			}
		}
		u.mu.Unlock()
		switch data := msg.Data.(type) {
		case engine.CueReadyMsg:
			u.onCueReady(data.CueID)
		case engine.CueFailedMsg:
			log.Errorf("cue failed to load: %v", data.Err)
		case engine.CuesChangedMsg:
			u.mu.Lock()
			u.cues = data.Cues
			u.mu.Unlock()
		case engine.Alert:
			switch data.Priority {
			case engine.Error:
				log.Errorf("%s", data.Message)
			case engine.Warning:
				log.Warnf("%s", data.Message)
			default:
				log.Infof("%s", data.Message)
			}
		}
	}
}

// onCueReady resets the mixer mirror to the fresh defaults the engine just
// installed for the new cue. Master is left alone; it spans cue switches.
func (u *ui) onCueReady(cueID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.activeID = cueID
	u.entries = map[string]encore.MixerEntry{}
	if i := encore.CueIndex(u.cues, cueID); i >= 0 {
		for _, s := range u.cues[i].Stems {
			u.entries[s.ID] = encore.DefaultMixerEntry()
		}
		fmt.Printf("cue ready: %s\n", u.cues[i].Name)
	}
}

func (u *ui) repl() error {
	if id, ok := u.pickCue(); ok {
		u.activate(id)
	}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(`type "help" for commands`)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := u.dispatch(fields[0], fields[1:])
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (u *ui) dispatch(cmd string, args []string) (quit bool, err error) {
	switch cmd {
	case "help":
		fmt.Print(helpText)
	case "cues":
		u.printCues()
	case "cue":
		if len(args) > 0 {
			var i int
			if i, err = u.cueArg(args[0]); err == nil {
				u.mu.Lock()
				id := u.cues[i].ID
				u.mu.Unlock()
				u.activate(id)
			}
		} else if id, ok := u.pickCue(); ok {
			u.activate(id)
		}
	case "play":
		u.send(engine.PlayMsg{})
	case "pause":
		u.send(engine.PauseMsg{})
	case "stop":
		u.send(engine.StopMsg{})
	case "seek":
		var secs float64
		if secs, err = floatArg(args, 0); err == nil {
			u.send(engine.SeekMsg{Target: time.Duration(secs * float64(time.Second))})
		}
	case "next":
		u.send(engine.NextCueMsg{})
	case "prev":
		u.send(engine.PrevCueMsg{})
	case "vol":
		var stem encore.Stem
		var v float64
		if stem, err = u.stemArg(args); err == nil {
			if v, err = floatArg(args, 1); err == nil {
				u.setEntry(stem.ID, func(e *encore.MixerEntry) { e.Volume = v })
				u.send(engine.SetStemVolumeMsg{StemID: stem.ID, Volume: v})
			}
		}
	case "mute", "unmute":
		var stem encore.Stem
		if stem, err = u.stemArg(args); err == nil {
			muted := cmd == "mute"
			u.setEntry(stem.ID, func(e *encore.MixerEntry) { e.Muted = muted })
			u.send(engine.SetStemMutedMsg{StemID: stem.ID, Muted: muted})
		}
	case "solo", "unsolo":
		var stem encore.Stem
		if stem, err = u.stemArg(args); err == nil {
			soloed := cmd == "solo"
			u.setEntry(stem.ID, func(e *encore.MixerEntry) { e.Soloed = soloed })
			u.send(engine.SetStemSoloedMsg{StemID: stem.ID, Soloed: soloed})
		}
	case "master":
		var v float64
		if v, err = floatArg(args, 0); err == nil {
			u.mu.Lock()
			u.master.Volume = v
			u.mu.Unlock()
			u.send(engine.SetMasterVolumeMsg{Volume: v})
		}
	case "mmute":
		u.mu.Lock()
		u.master.Muted = !u.master.Muted
		muted := u.master.Muted
		u.mu.Unlock()
		u.send(engine.SetMasterMutedMsg{Muted: muted})
		fmt.Printf("master mute %s\n", onOff(muted))
	case "repeat":
		u.mu.Lock()
		u.repeat = !u.repeat
		enabled := u.repeat
		u.mu.Unlock()
		u.send(engine.RepeatMsg{Enabled: enabled})
		fmt.Printf("repeat %s\n", onOff(enabled))
	case "advance":
		u.mu.Lock()
		u.advance = !u.advance
		enabled := u.advance
		u.mu.Unlock()
		u.send(engine.AutoAdvanceMsg{Enabled: enabled})
		fmt.Printf("auto-advance %s\n", onOff(enabled))
	case "status":
		u.printStatus()
	case "peaks":
		err = u.printPeaks(args)
	case "bounce":
		if len(args) < 1 {
			err = fmt.Errorf("usage: bounce <file.wav>")
		} else {
			err = u.bounce(args[0])
		}
	case "sheet":
		err = u.printSheet()
	case "move":
		err = u.moveCue(args)
	case "remove":
		var i int
		if len(args) < 1 {
			err = fmt.Errorf("usage: remove <cue#>")
		} else if i, err = u.cueArg(args[0]); err == nil {
			err = u.removeCue(i)
		}
	case "clear":
		err = u.clearLibrary()
	case "quit", "exit":
		return true, nil
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	return false, err
}

const helpText = `  cues                      list the cue library
  cue [#]                   activate a cue (interactive picker without #)
  play | pause | stop       transport
  seek <seconds>            jump all stems to a position
  next | prev               activate the neighboring cue
  vol <stem> <0..1>         stem volume
  mute | unmute <stem>      stem mute
  solo | unsolo <stem>      stem solo
  master <0..1>             master volume
  mmute                     toggle master mute
  repeat | advance          toggle repeat / auto-advance
  status                    transport state and stem levels
  peaks <stem>              waveform overview of a stem
  bounce <file.wav>         render the active cue offline with current gains
  sheet                     print the cue sheet
  move <cue#> up|down       reorder the cue list
  remove <cue#>             delete a cue from the library
  clear                     empty the whole library
  quit
`

func (u *ui) send(msg any) {
	if !engine.TrySend(u.broker.ToEngine, msg) {
		log.Errorf("engine is not accepting commands")
	}
}

func (u *ui) activate(cueID string) {
	u.send(engine.ActivateCueMsg{CueID: cueID})
	u.cache.Clear()
}

// pickCue runs the interactive cue selector. ok is false when the user
// aborted or the terminal is not interactive.
func (u *ui) pickCue() (id string, ok bool) {
	u.mu.Lock()
	opts := make([]huh.Option[string], len(u.cues))
	for i, c := range u.cues {
		opts[i] = huh.NewOption(fmt.Sprintf("%2d. %s (%d stems)", i+1, c.Name, len(c.Stems)), c.ID)
	}
	u.mu.Unlock()
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Cue").Options(opts...).Value(&id),
	)).Run()
	if err != nil {
		log.Debugf("cue picker: %v", err)
		return "", false
	}
	return id, true
}

func (u *ui) printCues() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, c := range u.cues {
		marker := "  "
		if c.ID == u.activeID {
			marker = "* "
		}
		fmt.Printf("%s%2d. %s (%d stems)\n", marker, i+1, c.Name, len(c.Stems))
	}
}

func (u *ui) printStatus() {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := u.snapshot
	fmt.Printf("phase: %v", snap.Phase)
	if i := encore.CueIndex(u.cues, u.activeID); i >= 0 {
		fmt.Printf("  cue: %s", u.cues[i].Name)
		if snap.Playing {
			fmt.Print("  [playing]")
		}
		fmt.Printf("  %v / %v\n", snap.Position.Round(time.Second), snap.Duration.Round(time.Second))
		for j, s := range u.cues[i].Stems {
			level := 0.0
			if j < len(snap.Levels) {
				level = snap.Levels[j]
			}
			e := u.entries[s.ID]
			flags := ""
			if e.Muted {
				flags += " M"
			}
			if e.Soloed {
				flags += " S"
			}
			fmt.Printf("    %-20s %.2f %s%s\n", s.Name, e.Volume, meter(level, 20), flags)
		}
	} else {
		fmt.Println()
	}
}

func meter(level float64, width int) string {
	n := int(level * float64(width))
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat("-", width-n) + "]"
}

func (u *ui) printPeaks(args []string) error {
	stem, err := u.stemArg(args)
	if err != nil {
		return err
	}
	p, err := u.cache.Get(stem, u.cfg.PeakColumns, 0)
	if err != nil {
		return err
	}
	ramp := []rune(" ▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, pk := range p {
		a := float64(pk.Max)
		if m := float64(-pk.Min); m > a {
			a = m
		}
		n := int(a * float64(len(ramp)-1))
		if n >= len(ramp) {
			n = len(ramp) - 1
		}
		b.WriteRune(ramp[n])
	}
	fmt.Printf("%s\n%s\n", stem.Name, b.String())
	return nil
}

// bounce renders the active cue from its stored payloads with the current
// mixer gains and writes a 16-bit wav. Decoding happens afresh here so the
// live transport is not disturbed.
func (u *ui) bounce(path string) error {
	u.mu.Lock()
	i := encore.CueIndex(u.cues, u.activeID)
	if i < 0 {
		u.mu.Unlock()
		return fmt.Errorf("no active cue")
	}
	cue := u.cues[i].Copy()
	gains := encore.ResolveGains(u.master, u.entries)
	u.mu.Unlock()

	provider := media.NewProvider(u.cfg.SampleRate)
	handles := make([]engine.Handle, 0, len(cue.Stems))
	for _, stem := range cue.Stems {
		h, err := provider.Acquire(stem)
		if err != nil {
			for _, acquired := range handles {
				acquired.Close()
			}
			return err
		}
		handles = append(handles, h)
	}
	var transport engine.Transport
	transport.Load(cue, handles)
	defer transport.Unload()
	transport.ApplyGains(gains)
	if err := transport.Play(); err != nil {
		return err
	}
	block := make([][2]float64, u.cfg.BlockFrames)
	out := make([]float32, 0, 2*u.cfg.BlockFrames)
	for {
		ended := transport.Mix(block)
		for _, frame := range block {
			out = append(out, float32(frame[0]), float32(frame[1]))
		}
		if ended {
			break
		}
	}
	data, err := encore.Wav(out, true, u.cfg.SampleRate)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %v: %w", path, err)
	}
	fmt.Printf("bounced %s (%v) to %s\n", cue.Name, transport.Duration().Round(time.Second), path)
	return nil
}

func (u *ui) printSheet() error {
	u.mu.Lock()
	cues := u.cues
	durations := make(map[string]time.Duration, len(u.durations))
	for k, v := range u.durations {
		durations[k] = v
	}
	show := u.show
	u.mu.Unlock()
	sheet, err := cuesheet.Render(show, cues, durations)
	if err != nil {
		return err
	}
	fmt.Print(sheet)
	return nil
}

func (u *ui) moveCue(args []string) error {
	if len(args) < 2 || (args[1] != "up" && args[1] != "down") {
		return fmt.Errorf("usage: move <cue#> up|down")
	}
	i, err := u.cueArg(args[0])
	if err != nil {
		return err
	}
	j := i + 1
	if args[1] == "up" {
		j = i - 1
	}
	u.mu.Lock()
	if j < 0 || j >= len(u.cues) {
		u.mu.Unlock()
		return nil
	}
	u.cues[i], u.cues[j] = u.cues[j], u.cues[i]
	cues := u.cues
	u.mu.Unlock()
	return u.saveCues(cues)
}

func (u *ui) removeCue(i int) error {
	u.mu.Lock()
	id := u.cues[i].ID
	u.cues = append(u.cues[:i], u.cues[i+1:]...)
	cues := u.cues
	u.mu.Unlock()
	if err := u.store.Remove(id); err != nil {
		return err
	}
	u.send(engine.SetCuesMsg{Cues: cues})
	return nil
}

func (u *ui) clearLibrary() error {
	if err := u.store.Clear(); err != nil {
		return err
	}
	u.mu.Lock()
	u.cues = nil
	u.mu.Unlock()
	u.send(engine.SetCuesMsg{})
	return nil
}

// saveCues persists the current cue list and pushes it to the engine.
func (u *ui) saveCues(cues []encore.Cue) error {
	saved, err := u.store.Save(cues)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.cues = saved
	u.mu.Unlock()
	u.send(engine.SetCuesMsg{Cues: saved})
	return nil
}

// cueArg resolves a 1-based cue number.
func (u *ui) cueArg(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err != nil || n < 1 || n > len(u.cues) {
		return 0, fmt.Errorf("no such cue %q", arg)
	}
	return n - 1, nil
}

// stemArg resolves a stem of the active cue by 1-based number or by name.
// The whole lookup happens under one lock, so the returned stem stays
// consistent even if the watch goroutine swaps the cue list right after.
func (u *ui) stemArg(args []string) (encore.Stem, error) {
	if len(args) < 1 {
		return encore.Stem{}, fmt.Errorf("stem name or number expected")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	i := encore.CueIndex(u.cues, u.activeID)
	if i < 0 {
		return encore.Stem{}, fmt.Errorf("no active cue")
	}
	cue := &u.cues[i]
	if n, err := strconv.Atoi(args[0]); err == nil && n >= 1 && n <= len(cue.Stems) {
		return cue.Stems[n-1], nil
	}
	if j := cue.StemNamed(args[0]); j >= 0 {
		return cue.Stems[j], nil
	}
	return encore.Stem{}, fmt.Errorf("no such stem %q", args[0])
}

func (u *ui) setEntry(stemID string, f func(*encore.MixerEntry)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.entries[stemID]
	if !ok {
		e = encore.DefaultMixerEntry()
	}
	f(&e)
	u.entries[stemID] = e
}

func floatArg(args []string, i int) (float64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("numeric argument expected")
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", args[i])
	}
	return v, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
