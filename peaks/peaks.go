/*
Package peaks extracts the visual amplitude representation of a stem: a
fixed number of (min, max) sample pairs, one per display column, used for
waveform rendering and for mapping a click on the waveform to a playback
position. Extraction is deterministic and keeps no shared state; a Cache can
memoize results per stem for the lifetime of the loaded cue.
*/
package peaks

import (
	"errors"
	"fmt"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/beatrochee/encore-player/media"
)

// ErrDecode marks a stem whose payload could not be decoded for display.
// The failure is local to the visual surface: playback of the stem is
// unaffected and the consumer renders a flat placeholder instead.
var ErrDecode = errors.New("peak extraction failed")

// Peak is the (min, max) amplitude of one time window of a decoded stem.
type Peak struct {
	Min float32
	Max float32
}

// Extract decodes the payload and reduces the chosen channel to exactly
// columns (min, max) pairs. The sample sequence is partitioned into columns
// contiguous windows of ceil(n/columns) samples; windows past the end of a
// short stem come out as silence.
func Extract(data []byte, path string, columns, channel int) ([]Peak, error) {
	if columns <= 0 {
		return nil, fmt.Errorf("%w: column count %d", ErrDecode, columns)
	}
	if channel < 0 || channel > 1 {
		return nil, fmt.Errorf("%w: channel %d out of range", ErrDecode, channel)
	}
	samples, err := decodeChannel(data, path, channel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrDecode)
	}
	window := (len(samples) + columns - 1) / columns
	out := make([]Peak, columns)
	for c := 0; c < columns; c++ {
		lo := c * window
		if lo >= len(samples) {
			break
		}
		hi := lo + window
		if hi > len(samples) {
			hi = len(samples)
		}
		out[c] = Peak{Min: vek32.Min(samples[lo:hi]), Max: vek32.Max(samples[lo:hi])}
	}
	return out, nil
}

func decodeChannel(data []byte, path string, channel int) ([]float32, error) {
	s, _, err := media.Decode(data, path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	samples := make([]float32, 0, s.Len())
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, float32(buf[i][channel]))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// ClickTime maps a click/drag x position on a waveform of the given display
// width linearly to playback time, clamped to [0, duration].
func ClickTime(x, width int, duration time.Duration) time.Duration {
	if width <= 0 {
		return 0
	}
	t := time.Duration(float64(duration) * float64(x) / float64(width))
	if t < 0 {
		return 0
	}
	if t > duration {
		return duration
	}
	return t
}
