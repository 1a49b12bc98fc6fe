package engine

import (
	"time"

	encore "github.com/beatrochee/encore-player"
)

// Control messages, sent by the front end (CLI, MIDI remote) to the engine
// loop via Broker.ToEngine. Each is applied synchronously by the loop between
// audio blocks, so the UI never observes a half-applied state.
type (
	// SetCuesMsg replaces the engine's cue list (import, reorder, remove,
	// clear). It does not touch the active cue; activate separately.
	SetCuesMsg struct{ Cues []encore.Cue }

	// ActivateCueMsg starts a new cue activation: a new generation,
	// synchronous teardown of the previous transport, fresh mixer state and
	// parallel stem acquisition.
	ActivateCueMsg struct{ CueID string }

	PlayMsg  struct{}
	PauseMsg struct{}
	StopMsg  struct{}
	SeekMsg  struct{ Target time.Duration }

	NextCueMsg struct{}
	PrevCueMsg struct{}

	SetStemVolumeMsg struct {
		StemID string
		Volume float64
	}
	SetStemMutedMsg struct {
		StemID string
		Muted  bool
	}
	SetStemSoloedMsg struct {
		StemID string
		Soloed bool
	}
	SetMasterVolumeMsg struct{ Volume float64 }
	SetMasterMutedMsg  struct{ Muted bool }

	RepeatMsg      struct{ Enabled bool }
	AutoAdvanceMsg struct{ Enabled bool }

	// stemAcquiredMsg and stemFailedMsg are internal: acquisition workers
	// post them back to the engine loop. Both carry the generation they were
	// issued under; the loop drops any result from a superseded generation
	// without mutating state, only releasing the late handle.
	stemAcquiredMsg struct {
		generation uint64
		index      int
		handle     Handle
	}
	stemFailedMsg struct {
		generation uint64
		index      int
		err        error
	}
)

// Messages boxed into MsgToUI.Data.
type (
	// CueReadyMsg is emitted when the last stem of an activation has
	// arrived and the transport is loaded.
	CueReadyMsg struct{ CueID string }

	// CueFailedMsg is emitted when an activation aborts; playback controls
	// must stay disabled until another activation succeeds.
	CueFailedMsg struct {
		CueID string
		Err   error
	}

	// CuesChangedMsg is emitted after the cue list itself changed, so the
	// front end can re-render and persist.
	CuesChangedMsg struct{ Cues []encore.Cue }

	Alert struct {
		Name     string
		Message  string
		Priority AlertPriority
	}

	AlertPriority int
)

const (
	Info AlertPriority = iota
	Warning
	Error
)
