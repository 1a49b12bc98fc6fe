package engine

import (
	"github.com/charmbracelet/log"

	encore "github.com/beatrochee/encore-player"
)

type (
	// Engine is the playback runtime. All of its state - the cue list, the
	// active session, the transport and the mixer matrix - is owned by one
	// goroutine running Run; everything else talks to it through the broker.
	// The loop alternates between draining control messages and rendering
	// one block of audio, and the blocking device write is what paces it, so
	// every operation of the engine is serialized on the audio clock.
	Engine struct {
		broker   *Broker
		provider HandleProvider

		cues      []encore.Cue
		session   session
		transport Transport

		entries map[string]encore.MixerEntry
		master  encore.MasterState
		repeat  bool
		advance bool

		// done releases acquisition workers whose results nobody will ever
		// read; closed exactly once, at teardown.
		done chan struct{}
	}

	// Options seed the session-scoped parts of the engine state from the
	// player configuration. MasterVolume is a pointer so that an explicit
	// zero (start silent) is distinguishable from unset (start at default).
	Options struct {
		MasterVolume *float64
		Repeat       bool
		AutoAdvance  bool
	}
)

func NewEngine(broker *Broker, provider HandleProvider, opts Options) *Engine {
	master := encore.DefaultMasterState()
	if opts.MasterVolume != nil {
		master.Volume = *opts.MasterVolume
	}
	return &Engine{
		broker:   broker,
		provider: provider,
		entries:  map[string]encore.MixerEntry{},
		master:   master,
		repeat:   opts.Repeat,
		advance:  opts.AutoAdvance,
		done:     make(chan struct{}),
	}
}

// Run renders audio to the context's output until a close is requested via
// the broker. Intended to be the body of the engine goroutine.
func (e *Engine) Run(ctx encore.AudioContext, blockFrames int) {
	output := ctx.Output()
	defer output.Close()
	buf := make([][2]float64, blockFrames)
	flat := make([]float32, 2*blockFrames)
	for {
		select {
		case <-e.broker.CloseEngine:
			e.teardown()
			close(e.broker.FinishedEngine)
			return
		default:
		}
		e.Process(buf)
		for i := range buf {
			flat[2*i] = float32(buf[i][0])
			flat[2*i+1] = float32(buf[i][1])
		}
		if err := output.WriteAudio(flat); err != nil {
			log.Errorf("audio output failed, stopping engine: %v", err)
			e.teardown()
			close(e.broker.FinishedEngine)
			return
		}
	}
}

// Process applies all pending control messages and renders one block of
// mixed audio into buf (silence while paused or unloaded), then publishes a
// playback snapshot. It is the single mutation point of the engine state;
// tests drive it directly instead of going through Run.
func (e *Engine) Process(buf [][2]float64) {
	e.processMessages()
	ended := e.transport.Mix(buf)
	if ended {
		e.onEnded()
	}
	e.sendSnapshot()
}

func (e *Engine) processMessages() {
loop:
	for {
		select {
		case msg := <-e.broker.ToEngine:
			e.handleMessage(msg)
		default:
			break loop
		}
	}
}

func (e *Engine) handleMessage(msg any) {
	switch m := msg.(type) {
	case SetCuesMsg:
		e.setCues(m.Cues)
	case ActivateCueMsg:
		e.activate(m.CueID)
	case PlayMsg:
		e.play()
	case PauseMsg:
		e.transport.Pause()
	case StopMsg:
		e.transport.Stop()
	case SeekMsg:
		if err := e.transport.Seek(m.Target); err != nil {
			e.alert("Seek", err.Error(), Warning)
		}
	case NextCueMsg:
		e.activateNeighbor(1)
	case PrevCueMsg:
		e.activateNeighbor(-1)
	case SetStemVolumeMsg:
		if entry, ok := e.entries[m.StemID]; ok {
			entry.Volume = m.Volume
			e.entries[m.StemID] = entry
			e.applyGains()
		}
	case SetStemMutedMsg:
		if entry, ok := e.entries[m.StemID]; ok {
			entry.Muted = m.Muted
			e.entries[m.StemID] = entry
			e.applyGains()
		}
	case SetStemSoloedMsg:
		if entry, ok := e.entries[m.StemID]; ok {
			entry.Soloed = m.Soloed
			e.entries[m.StemID] = entry
			e.applyGains()
		}
	case SetMasterVolumeMsg:
		e.master.Volume = m.Volume
		e.applyGains()
	case SetMasterMutedMsg:
		e.master.Muted = m.Muted
		e.applyGains()
	case RepeatMsg:
		e.repeat = m.Enabled
	case AutoAdvanceMsg:
		e.advance = m.Enabled
	case stemAcquiredMsg:
		e.stemAcquired(m)
	case stemFailedMsg:
		e.stemFailed(m)
	default:
		// ignore unknown messages
	}
}

func (e *Engine) play() {
	if e.session.phase != Ready {
		e.alert("Play", "no cue is ready to play", Warning)
		return
	}
	if err := e.transport.Play(); err != nil {
		// retryable: a later attempt may satisfy the host's policy
		e.alert("Play", err.Error(), Warning)
	}
}

func (e *Engine) setCues(cues []encore.Cue) {
	e.cues = cues
	if e.session.phase != Idle && encore.CueIndex(cues, e.session.cue.ID) < 0 {
		// the active cue was removed from under us
		e.dropSession()
	}
	TrySend(e.broker.ToUI, MsgToUI{Data: CuesChangedMsg{Cues: cues}})
}

// applyGains resolves the mixer matrix and pushes it to the transport, in
// that order, synchronously on every mutation.
func (e *Engine) applyGains() {
	e.transport.ApplyGains(encore.ResolveGains(e.master, e.entries))
}

func (e *Engine) sendSnapshot() {
	// the transport reuses its levels slice every block; the UI keeps
	// snapshots around, so it gets a copy
	levels := append([]float64(nil), e.transport.Levels()...)
	TrySend(e.broker.ToUI, MsgToUI{
		HasSnapshot: true,
		Phase:       e.session.phase,
		CueID:       e.session.cue.ID,
		Playing:     e.transport.Playing(),
		Position:    e.transport.Pos(),
		Duration:    e.transport.Duration(),
		Levels:      levels,
	})
}

func (e *Engine) alert(name, message string, priority AlertPriority) {
	TrySend(e.broker.ToUI, MsgToUI{Data: Alert{Name: name, Message: message, Priority: priority}})
}

func (e *Engine) teardown() {
	e.transport.Unload()
	e.session = session{generation: e.session.generation}
	close(e.done)
}
