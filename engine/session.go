package engine

import (
	"github.com/charmbracelet/log"

	encore "github.com/beatrochee/encore-player"
)

// Phase is the cue session state: idle → loading → {ready | failed}, and any
// phase goes back to loading when a new activation starts. Sessions are
// superseded, never completed.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// session tracks one cue activation. generation increases by exactly one per
// activation attempt; every asynchronous result arising from the attempt
// carries the generation it was issued under and is dropped if the ambient
// generation has moved on. At most one generation's results ever reach the
// transport or the mixer state.
type session struct {
	generation uint64
	phase      Phase
	cue        encore.Cue
	pending    []Handle
	acquired   int
}

// activate switches the active cue: a new generation, synchronous teardown
// of the previous transport and any handles that already arrived, fresh
// default mixer entries for the new cue's stems, and parallel acquisition of
// one handle per stem.
func (e *Engine) activate(cueID string) {
	i := encore.CueIndex(e.cues, cueID)
	if i < 0 {
		e.alert("Activate", "unknown cue", Warning)
		return
	}
	cue := e.cues[i].Copy()

	e.session.generation++
	e.releasePending()
	e.transport.Unload()

	e.entries = make(map[string]encore.MixerEntry, len(cue.Stems))
	for _, s := range cue.Stems {
		e.entries[s.ID] = encore.DefaultMixerEntry()
	}

	e.session = session{
		generation: e.session.generation,
		phase:      Loading,
		cue:        cue,
		pending:    make([]Handle, len(cue.Stems)),
	}
	log.Debugf("activating cue %q (%d stems, generation %d)", cue.Name, len(cue.Stems), e.session.generation)
	for i, stem := range cue.Stems {
		go e.acquireStem(e.session.generation, i, stem)
	}
	if len(cue.Stems) == 0 {
		e.sessionFailed(&AcquisitionError{Stem: cue.Name, Err: errEmptyCue})
	}
}

// activateNeighbor activates the cue delta steps away from the active one in
// the running order. A no-op past either end of the list.
func (e *Engine) activateNeighbor(delta int) {
	if e.session.phase == Idle {
		return
	}
	i := encore.CueIndex(e.cues, e.session.cue.ID)
	if i < 0 {
		return
	}
	if j := i + delta; j >= 0 && j < len(e.cues) {
		e.activate(e.cues[j].ID)
	}
}

// acquireStem runs on a worker goroutine. Its only interaction with the
// engine is one generation-tagged message; if the engine is gone, the handle
// is released right here so late acquisitions cannot leak.
func (e *Engine) acquireStem(generation uint64, index int, stem encore.Stem) {
	var msg any
	h, err := e.provider.Acquire(stem)
	if err != nil {
		msg = stemFailedMsg{generation: generation, index: index, err: &AcquisitionError{Stem: stem.Name, Err: err}}
	} else {
		msg = stemAcquiredMsg{generation: generation, index: index, handle: h}
	}
	select {
	case e.broker.ToEngine <- msg:
	case <-e.done:
		if h != nil {
			h.Close()
		}
	}
}

func (e *Engine) stemAcquired(m stemAcquiredMsg) {
	if m.generation != e.session.generation || e.session.phase != Loading {
		// stale: the target state was already torn down; release and drop
		log.Debugf("dropping stale stem handle (generation %d, current %d)", m.generation, e.session.generation)
		m.handle.Close()
		return
	}
	e.session.pending[m.index] = m.handle
	e.session.acquired++
	if e.session.acquired < len(e.session.cue.Stems) {
		return
	}
	e.transport.Load(e.session.cue, e.session.pending)
	e.session.pending = nil
	e.session.phase = Ready
	e.applyGains()
	log.Infof("cue %q ready", e.session.cue.Name)
	TrySend(e.broker.ToUI, MsgToUI{Data: CueReadyMsg{CueID: e.session.cue.ID}})
}

func (e *Engine) stemFailed(m stemFailedMsg) {
	if m.generation != e.session.generation || e.session.phase != Loading {
		log.Debugf("dropping stale stem failure (generation %d, current %d)", m.generation, e.session.generation)
		return
	}
	e.sessionFailed(m.err)
}

// sessionFailed aborts the activation: partial progress is discarded and the
// transport stays empty, so playback controls are disabled until another
// activation succeeds.
func (e *Engine) sessionFailed(err error) {
	e.releasePending()
	e.session.phase = Failed
	log.Errorf("cue %q failed to load: %v", e.session.cue.Name, err)
	TrySend(e.broker.ToUI, MsgToUI{Data: CueFailedMsg{CueID: e.session.cue.ID, Err: err}})
	e.alert("CueLoad", err.Error(), Error)
}

// dropSession tears the active session down to idle without starting a new
// activation (active cue removed, clear-all).
func (e *Engine) dropSession() {
	e.session.generation++
	e.releasePending()
	e.transport.Unload()
	e.entries = map[string]encore.MixerEntry{}
	e.session = session{generation: e.session.generation}
}

func (e *Engine) releasePending() {
	for _, h := range e.session.pending {
		if h != nil {
			h.Close()
		}
	}
	e.session.pending = nil
	e.session.acquired = 0
}

// onEnded implements the repeat/advance policy when the reference handle
// reaches its end: exactly one of restart-in-place or advance-to-next fires,
// never both.
func (e *Engine) onEnded() {
	if e.repeat {
		if err := e.transport.Seek(0); err != nil {
			e.alert("Repeat", err.Error(), Warning)
			e.transport.Stop()
			return
		}
		if err := e.transport.Play(); err != nil {
			e.alert("Repeat", err.Error(), Warning)
		}
		return
	}
	e.transport.Stop()
	if e.advance {
		e.activateNeighbor(1)
	}
}
