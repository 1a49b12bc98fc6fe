package engine_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	encore "github.com/beatrochee/encore-player"
	"github.com/beatrochee/encore-player/engine"
)

// fakeHandle is a handle whose "audio" is a constant level scaled by the
// current gain. One frame is one millisecond, so positions and durations are
// easy to reason about in tests.
type fakeHandle struct {
	name    string
	length  int // frames
	playErr error

	playing bool
	closed  bool
	gain    float64
	pos     int
	seeks   []time.Duration
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) Stream(samples [][2]float64) (int, bool) {
	if !h.playing {
		for i := range samples {
			samples[i] = [2]float64{}
		}
		return len(samples), true
	}
	n := len(samples)
	if remaining := h.length - h.pos; remaining < n {
		n = remaining
	}
	for i := 0; i < n; i++ {
		samples[i] = [2]float64{0.5 * h.gain, 0.5 * h.gain}
	}
	h.pos += n
	return n, h.pos < h.length
}

func (h *fakeHandle) Err() error { return nil }

func (h *fakeHandle) Play() error {
	if h.playErr != nil {
		return h.playErr
	}
	h.playing = true
	return nil
}

func (h *fakeHandle) Pause() { h.playing = false }

func (h *fakeHandle) Seek(t time.Duration) error {
	h.seeks = append(h.seeks, t)
	h.pos = int(t / time.Millisecond)
	if h.pos > h.length {
		h.pos = h.length
	}
	return nil
}

func (h *fakeHandle) Pos() time.Duration      { return time.Duration(h.pos) * time.Millisecond }
func (h *fakeHandle) Duration() time.Duration { return time.Duration(h.length) * time.Millisecond }
func (h *fakeHandle) SetGain(gain float64)    { h.gain = gain }
func (h *fakeHandle) Gain() float64           { return h.gain }

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// fakeProvider builds fakeHandles, optionally gated so the test controls when
// acquisitions complete, and records everything it handed out.
type fakeProvider struct {
	mu      sync.Mutex
	lengths map[string]int   // by stem name; default 100 frames
	errs    map[string]error // by stem name
	gate    chan struct{}    // acquisitions block on this when non-nil
	created []*fakeHandle
}

func (p *fakeProvider) Acquire(stem encore.Stem) (engine.Handle, error) {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.errs[stem.Name]; err != nil {
		return nil, err
	}
	length := p.lengths[stem.Name]
	if length == 0 {
		length = 100
	}
	h := &fakeHandle{name: stem.Name, length: length}
	p.created = append(p.created, h)
	return h, nil
}

func (p *fakeProvider) handles(names ...string) []*fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*fakeHandle
	for _, h := range p.created {
		for _, n := range names {
			if h.name == n {
				out = append(out, h)
			}
		}
	}
	return out
}

func makeCue(name string, stemNames ...string) encore.Cue {
	c := encore.Cue{ID: "cue-" + name, Name: name}
	for _, n := range stemNames {
		c.Stems = append(c.Stems, encore.Stem{ID: "stem-" + name + "-" + n, Name: n})
	}
	return c
}

// pumpUntil drives the engine loop by hand, one block per iteration, draining
// the UI channel, until cond accepts a message.
func pumpUntil(t *testing.T, e *engine.Engine, broker *engine.Broker, cond func(engine.MsgToUI) bool) engine.MsgToUI {
	t.Helper()
	buf := make([][2]float64, 16)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		e.Process(buf)
		drained := false
		for !drained {
			select {
			case msg := <-broker.ToUI:
				if cond(msg) {
					return msg
				}
			default:
				drained = true
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for engine condition")
	return engine.MsgToUI{}
}

func waitReady(t *testing.T, e *engine.Engine, broker *engine.Broker) {
	t.Helper()
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.CueReadyMsg)
		return ok
	})
}

func snapshot(t *testing.T, e *engine.Engine, broker *engine.Broker) engine.MsgToUI {
	t.Helper()
	return pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot })
}

func newTestEngine(p *fakeProvider, cues ...encore.Cue) (*engine.Engine, *engine.Broker) {
	broker := engine.NewBroker()
	e := engine.NewEngine(broker, p, engine.Options{})
	broker.ToEngine <- engine.SetCuesMsg{Cues: cues}
	return e, broker
}

func TestActivateAndPlay(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)

	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	snap := snapshot(t, e, broker)
	if snap.Phase != engine.Ready {
		t.Fatalf("expected ready phase, got %v", snap.Phase)
	}
	if snap.CueID != cue.ID {
		t.Errorf("expected active cue %v, got %v", cue.ID, snap.CueID)
	}
	if snap.Playing {
		t.Errorf("activation must not start playback")
	}
	for _, h := range p.handles("drums", "bass") {
		if h.gain != 1 {
			t.Errorf("stem %v: expected unity gain after activation, got %v", h.name, h.gain)
		}
	}

	broker.ToEngine <- engine.PlayMsg{}
	snap = pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Playing })
	if len(snap.Levels) != 2 {
		t.Errorf("expected 2 stem levels, got %d", len(snap.Levels))
	}
	for i, level := range snap.Levels {
		if level == 0 {
			t.Errorf("stem %d: expected audio in the mix while playing", i)
		}
	}
}

func TestPlayWithoutReadyCueIsRejected(t *testing.T) {
	p := &fakeProvider{}
	e, broker := newTestEngine(p, makeCue("opener", "drums"))

	broker.ToEngine <- engine.PlayMsg{}
	msg := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.Alert)
		return ok
	})
	if msg.Data.(engine.Alert).Priority != engine.Warning {
		t.Errorf("expected a warning alert")
	}
	if snap := snapshot(t, e, broker); snap.Playing {
		t.Errorf("engine must not play without a ready cue")
	}
}

func TestReactivationDropsStaleHandles(t *testing.T) {
	gate := make(chan struct{})
	p := &fakeProvider{gate: gate}
	first := makeCue("first", "drums", "bass")
	second := makeCue("second", "keys", "voice")
	e, broker := newTestEngine(p, first, second)

	// both activations start while every acquisition is still in flight
	broker.ToEngine <- engine.ActivateCueMsg{CueID: first.ID}
	buf := make([][2]float64, 16)
	e.Process(buf)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: second.ID}
	e.Process(buf)
	close(gate)

	ready := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.CueReadyMsg)
		return ok
	})
	if got := ready.Data.(engine.CueReadyMsg).CueID; got != second.ID {
		t.Fatalf("expected the later activation to win, got cue %v", got)
	}
	// the superseded generation's handles must have been released untouched
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		for _, h := range p.handles("drums", "bass") {
			if !h.closed {
				return false
			}
		}
		return m.HasSnapshot
	})
	for _, h := range p.handles("keys", "voice") {
		if h.closed {
			t.Errorf("stem %v of the winning cue must stay open", h.name)
		}
	}
}

func TestAcquisitionFailureAbortsWholeCue(t *testing.T) {
	p := &fakeProvider{errs: map[string]error{"bass": errors.New("corrupt file")}}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)

	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	failed := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.CueFailedMsg)
		return ok
	})
	var acqErr *engine.AcquisitionError
	if !errors.As(failed.Data.(engine.CueFailedMsg).Err, &acqErr) {
		t.Errorf("expected an acquisition error, got %v", failed.Data.(engine.CueFailedMsg).Err)
	}
	// the stem that did load must not leak
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		for _, h := range p.handles("drums") {
			if !h.closed {
				return false
			}
		}
		return m.HasSnapshot
	})
	broker.ToEngine <- engine.PlayMsg{}
	if snap := snapshot(t, e, broker); snap.Playing {
		t.Errorf("playback must stay disabled after a failed activation")
	}
}

func TestEmptyCueFailsActivation(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("empty")
	e, broker := newTestEngine(p, cue)

	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.CueFailedMsg)
		return ok
	})
	if snap := snapshot(t, e, broker); snap.Phase != engine.Failed {
		t.Errorf("expected failed phase, got %v", snap.Phase)
	}
}

func TestPlayIsAllOrNothing(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	blocked := p.handles("bass")[0]
	blocked.playErr = fmt.Errorf("%w: output suspended", engine.ErrPlaybackBlocked)
	broker.ToEngine <- engine.PlayMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		_, ok := m.Data.(engine.Alert)
		return ok
	})
	for _, h := range p.handles("drums", "bass") {
		if h.playing {
			t.Errorf("stem %v: no stem may play after a partial start", h.name)
		}
	}

	// the condition is retryable: clearing it makes the same request succeed
	blocked.playErr = nil
	broker.ToEngine <- engine.PlayMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Playing })
}

func TestStopRewindsToZero(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	broker.ToEngine <- engine.PlayMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Position > 0 })

	broker.ToEngine <- engine.StopMsg{}
	snap := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && !m.Playing })
	if snap.Position != 0 {
		t.Errorf("stop must rewind to zero, got %v", snap.Position)
	}
	for _, h := range p.handles("drums", "bass") {
		if h.pos != 0 {
			t.Errorf("stem %v: expected position 0 after stop, got %v", h.name, h.pos)
		}
	}
}

func TestSeekClampsAndIsIdempotent(t *testing.T) {
	p := &fakeProvider{lengths: map[string]int{"drums": 100, "bass": 200}}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	// past the reference handle's end: clamped to its duration
	broker.ToEngine <- engine.SeekMsg{Target: time.Hour}
	snap := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Position > 0 })
	if snap.Position != snap.Duration {
		t.Errorf("expected position clamped to %v, got %v", snap.Duration, snap.Position)
	}

	target := 50 * time.Millisecond
	broker.ToEngine <- engine.SeekMsg{Target: target}
	broker.ToEngine <- engine.SeekMsg{Target: target}
	snap = pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Position == target })
	for _, h := range p.handles("drums", "bass") {
		if h.Pos() != target {
			t.Errorf("stem %v: expected position %v, got %v", h.name, target, h.Pos())
		}
	}

	broker.ToEngine <- engine.SeekMsg{Target: -time.Second}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Position == 0 })
}

func TestMixerMessagesReachHandles(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums", "bass")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)
	drums := p.handles("drums")[0]
	bass := p.handles("bass")[0]
	drumsID := cue.Stems[0].ID
	bassID := cue.Stems[1].ID

	broker.ToEngine <- engine.SetStemVolumeMsg{StemID: drumsID, Volume: 0.5}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return drums.gain == 0.5 })

	broker.ToEngine <- engine.SetStemSoloedMsg{StemID: bassID, Soloed: true}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return drums.gain == 0 && bass.gain == 1 })

	broker.ToEngine <- engine.SetStemMutedMsg{StemID: bassID, Muted: true}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return bass.gain == 0 })

	broker.ToEngine <- engine.SetStemMutedMsg{StemID: bassID, Muted: false}
	broker.ToEngine <- engine.SetStemSoloedMsg{StemID: bassID, Soloed: false}
	broker.ToEngine <- engine.SetMasterVolumeMsg{Volume: 0.5}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return drums.gain == 0.25 && bass.gain == 0.5 })

	broker.ToEngine <- engine.SetMasterMutedMsg{Muted: true}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return drums.gain == 0 && bass.gain == 0 })
}

func TestMasterVolumeOptionSeedsMaster(t *testing.T) {
	zero, half := 0.0, 0.5
	for _, tc := range []struct {
		name   string
		volume *float64
		want   float64
	}{
		{"unset keeps the default", nil, 1},
		{"half", &half, 0.5},
		{"explicit zero starts silent", &zero, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{}
			cue := makeCue("opener", "drums")
			broker := engine.NewBroker()
			e := engine.NewEngine(broker, p, engine.Options{MasterVolume: tc.volume})
			broker.ToEngine <- engine.SetCuesMsg{Cues: []encore.Cue{cue}}
			broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
			waitReady(t, e, broker)
			if got := p.handles("drums")[0].gain; got != tc.want {
				t.Errorf("expected gain %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMixerStateResetsOnActivation(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)
	broker.ToEngine <- engine.SetStemMutedMsg{StemID: cue.Stems[0].ID, Muted: true}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return p.handles("drums")[0].gain == 0 })

	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)
	fresh := p.handles("drums")
	if fresh[len(fresh)-1].gain != 1 {
		t.Errorf("reactivation must reset the mixer to defaults, got gain %v", fresh[len(fresh)-1].gain)
	}
}

func TestRepeatRestartsAtEnd(t *testing.T) {
	p := &fakeProvider{lengths: map[string]int{"drums": 40}}
	cue := makeCue("loop", "drums")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.RepeatMsg{Enabled: true}
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)
	h := p.handles("drums")[0]

	broker.ToEngine <- engine.PlayMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		return m.HasSnapshot && m.Playing && len(h.seeks) > 0 && h.seeks[len(h.seeks)-1] == 0
	})
	if !h.playing {
		t.Errorf("repeat must keep the cue playing after the restart")
	}
}

func TestAutoAdvanceActivatesNextCue(t *testing.T) {
	p := &fakeProvider{lengths: map[string]int{"drums": 40}}
	first := makeCue("first", "drums")
	second := makeCue("second", "keys")
	e, broker := newTestEngine(p, first, second)
	broker.ToEngine <- engine.AutoAdvanceMsg{Enabled: true}
	broker.ToEngine <- engine.ActivateCueMsg{CueID: first.ID}
	waitReady(t, e, broker)

	broker.ToEngine <- engine.PlayMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		r, ok := m.Data.(engine.CueReadyMsg)
		return ok && r.CueID == second.ID
	})
	snap := snapshot(t, e, broker)
	if snap.CueID != second.ID {
		t.Errorf("expected the next cue active, got %v", snap.CueID)
	}
	if snap.Playing {
		t.Errorf("auto-advance arms the next cue but must not start it")
	}
}

func TestNextPrevNavigateRunningOrder(t *testing.T) {
	p := &fakeProvider{}
	first := makeCue("first", "a")
	second := makeCue("second", "b")
	e, broker := newTestEngine(p, first, second)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: first.ID}
	waitReady(t, e, broker)

	broker.ToEngine <- engine.NextCueMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		r, ok := m.Data.(engine.CueReadyMsg)
		return ok && r.CueID == second.ID
	})

	// past the end of the list: a no-op, the cue stays active
	broker.ToEngine <- engine.NextCueMsg{}
	if snap := snapshot(t, e, broker); snap.CueID != second.ID {
		t.Errorf("next past the end must not change the cue, got %v", snap.CueID)
	}

	broker.ToEngine <- engine.PrevCueMsg{}
	pumpUntil(t, e, broker, func(m engine.MsgToUI) bool {
		r, ok := m.Data.(engine.CueReadyMsg)
		return ok && r.CueID == first.ID
	})
}

func TestRemovingActiveCueDropsSession(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums")
	keep := makeCue("other", "keys")
	e, broker := newTestEngine(p, cue, keep)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	broker.ToEngine <- engine.SetCuesMsg{Cues: []encore.Cue{keep}}
	snap := pumpUntil(t, e, broker, func(m engine.MsgToUI) bool { return m.HasSnapshot && m.Phase == engine.Idle })
	if snap.Playing || snap.Duration != 0 {
		t.Errorf("dropped session must leave the transport empty")
	}
	for _, h := range p.handles("drums") {
		if !h.closed {
			t.Errorf("handles of the removed cue must be released")
		}
	}
}

func TestPausedTransportMixesSilence(t *testing.T) {
	p := &fakeProvider{}
	cue := makeCue("opener", "drums")
	e, broker := newTestEngine(p, cue)
	broker.ToEngine <- engine.ActivateCueMsg{CueID: cue.ID}
	waitReady(t, e, broker)

	buf := make([][2]float64, 16)
	for i := range buf {
		buf[i] = [2]float64{1, 1} // stale garbage that must be overwritten
	}
	e.Process(buf)
	for i, frame := range buf {
		if frame[0] != 0 || frame[1] != 0 {
			t.Fatalf("frame %d: expected silence while paused, got %v", i, frame)
		}
	}
}
