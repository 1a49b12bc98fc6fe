package media

import (
	"errors"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// resampleQuality trades CPU for resampling accuracy; 4 is beep's
// recommended middle ground.
const resampleQuality = 4

// Track is one stem materialized into playable form; it implements
// engine.Handle. Position and duration always derive from the decoder at
// the file's native rate, so resampling does not skew the reported time.
type Track struct {
	name   string
	base   beep.StreamSeekCloser
	format beep.Format
	rate   beep.SampleRate // device rate

	ctrl   *beep.Ctrl
	gainer *effects.Gain
	closed bool
}

var errTrackClosed = errors.New("track already closed")

// NewTrack wraps a decoded stream into a Track playing at the given device
// rate. The track starts paused, at position zero, at unity gain.
func NewTrack(name string, base beep.StreamSeekCloser, format beep.Format, rate beep.SampleRate) *Track {
	t := &Track{name: name, base: base, format: format, rate: rate}
	t.ctrl = &beep.Ctrl{Paused: true}
	t.relink()
	t.gainer = &effects.Gain{Streamer: t.ctrl, Gain: 0}
	return t
}

// relink rebuilds the streamer chain above the decoder. The resampler keeps
// an internal read-ahead buffer, so it has to be thrown away after every
// seek of the underlying stream or a few stale milliseconds would play.
func (t *Track) relink() {
	if t.format.SampleRate == t.rate {
		t.ctrl.Streamer = t.base
		return
	}
	t.ctrl.Streamer = beep.Resample(resampleQuality, t.format.SampleRate, t.rate, t.base)
}

func (t *Track) Name() string { return t.name }

func (t *Track) Stream(samples [][2]float64) (n int, ok bool) {
	if t.closed {
		return 0, false
	}
	return t.gainer.Stream(samples)
}

func (t *Track) Err() error {
	if t.closed {
		return nil
	}
	return t.base.Err()
}

// Play unpauses the track. The device backend cannot refuse a start, so the
// error is only ever non-nil for a closed track; the signature exists
// because the transport must treat a refusal as all-stems-or-nothing.
func (t *Track) Play() error {
	if t.closed {
		return errTrackClosed
	}
	t.ctrl.Paused = false
	return nil
}

func (t *Track) Pause() {
	if t.closed {
		return
	}
	t.ctrl.Paused = true
}

func (t *Track) Seek(target time.Duration) error {
	if t.closed {
		return errTrackClosed
	}
	n := t.format.SampleRate.N(target)
	if l := t.base.Len(); n > l {
		n = l
	}
	if n < 0 {
		n = 0
	}
	if err := t.base.Seek(n); err != nil {
		return err
	}
	t.relink()
	return nil
}

func (t *Track) Pos() time.Duration {
	if t.closed {
		return 0
	}
	return t.format.SampleRate.D(t.base.Position())
}

func (t *Track) Duration() time.Duration {
	return t.format.SampleRate.D(t.base.Len())
}

// SetGain sets the linear gain in [0, 1]; the underlying gain stage is
// offset-based, hence the -1.
func (t *Track) SetGain(gain float64) { t.gainer.Gain = gain - 1 }
func (t *Track) Gain() float64        { return t.gainer.Gain + 1 }

func (t *Track) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.base.Close()
}
