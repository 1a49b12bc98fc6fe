package engine

import (
	"fmt"
	"math"
	"time"

	encore "github.com/beatrochee/encore-player"
)

// Transport owns the set of playable handles of the active cue and operates
// on them strictly as a unit: all stems sound, or none do. The first loaded
// handle is the reference handle: the externally observed position and the
// end-of-cue condition derive from it alone.
type Transport struct {
	stems   []encore.Stem
	handles []Handle
	playing bool

	scratch []([2]float64)
	levels  []float64
}

// Load hands a full set of freshly acquired handles to the transport, one
// per stem of the cue, in stem order. Only the cue session manager calls
// this; any previously held handles must have been released through Unload
// before.
func (t *Transport) Load(cue encore.Cue, handles []Handle) {
	t.stems = cue.Stems
	t.handles = handles
	t.playing = false
	t.levels = make([]float64, len(handles))
}

// Unload pauses and closes every handle and leaves the transport empty.
func (t *Transport) Unload() {
	for _, h := range t.handles {
		h.Pause()
		h.Close()
	}
	t.stems = nil
	t.handles = nil
	t.playing = false
	t.levels = nil
}

func (t *Transport) Loaded() bool  { return len(t.handles) > 0 }
func (t *Transport) Playing() bool { return t.playing }

// Play requests playback start on every handle, issuing all start requests
// before inspecting any outcome. If any handle refuses, the whole transport
// reverts to paused; no partial-play state is retained.
func (t *Transport) Play() error {
	if !t.Loaded() {
		return fmt.Errorf("%w: no cue loaded", ErrPlaybackBlocked)
	}
	errs := make([]error, len(t.handles))
	for i, h := range t.handles {
		errs[i] = h.Play()
	}
	for _, err := range errs {
		if err != nil {
			t.Pause()
			return fmt.Errorf("%w: %v", ErrPlaybackBlocked, err)
		}
	}
	t.playing = true
	return nil
}

// Pause pauses every handle. Always succeeds.
func (t *Transport) Pause() {
	for _, h := range t.handles {
		h.Pause()
	}
	t.playing = false
}

// Stop pauses every handle and rewinds everything, including the observed
// current time, to zero.
func (t *Transport) Stop() {
	t.Pause()
	for _, h := range t.handles {
		h.Seek(0)
	}
}

// Seek sets every handle's position to target directly, clamped to the
// reference handle's duration. No interpolation; seeking twice to the same
// target is the same as seeking once.
func (t *Transport) Seek(target time.Duration) error {
	if !t.Loaded() {
		return nil
	}
	if target < 0 {
		target = 0
	}
	if d := t.Duration(); target > d {
		target = d
	}
	for i, h := range t.handles {
		if err := h.Seek(target); err != nil {
			return fmt.Errorf("seeking stem %q: %w", t.stems[i].Name, err)
		}
	}
	return nil
}

// Pos returns the reference handle's position; one single source of truth
// for the displayed time, instead of polling every handle.
func (t *Transport) Pos() time.Duration {
	if !t.Loaded() {
		return 0
	}
	return t.handles[0].Pos()
}

func (t *Transport) Duration() time.Duration {
	if !t.Loaded() {
		return 0
	}
	return t.handles[0].Duration()
}

// ApplyGains pushes resolved per-stem gains to the live handles. A write is
// skipped when the change is within the deadband; correctness does not
// depend on this, it only avoids needless writes.
func (t *Transport) ApplyGains(gains map[string]float64) {
	for i, h := range t.handles {
		g := gains[t.stems[i].ID]
		if math.Abs(g-h.Gain()) > encore.GainDeadband {
			h.SetGain(g)
		}
	}
}

// Mix renders one block of summed stem audio into buf and reports whether
// the reference handle reached its end during this block. While paused or
// empty the block is silence and ended is never reported. The returned
// levels slice (per-stem block peak, stem order) is reused between calls.
func (t *Transport) Mix(buf [][2]float64) (ended bool) {
	for i := range buf {
		buf[i] = [2]float64{}
	}
	if !t.playing || !t.Loaded() {
		return false
	}
	if cap(t.scratch) < len(buf) {
		t.scratch = make([][2]float64, len(buf))
	}
	scratch := t.scratch[:len(buf)]
	for i, h := range t.handles {
		n, ok := h.Stream(scratch)
		peak := 0.0
		for j := 0; j < n; j++ {
			buf[j][0] += scratch[j][0]
			buf[j][1] += scratch[j][1]
			if a := math.Abs(scratch[j][0]); a > peak {
				peak = a
			}
			if a := math.Abs(scratch[j][1]); a > peak {
				peak = a
			}
		}
		t.levels[i] = peak
		if i == 0 && !ok {
			ended = true
		}
	}
	return ended
}

// Levels returns the per-stem peak levels of the last mixed block. The slice
// is owned by the transport and overwritten on every block; consumers must
// not retain it.
func (t *Transport) Levels() []float64 { return t.levels }
