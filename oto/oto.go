// Package oto implements the playback device on top of the oto library.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	encore "github.com/beatrochee/encore-player"
)

// Context is the oto-backed playback device. oto permits only one context
// per process, so the sample rate is fixed for the player's lifetime.
type Context struct {
	ctx  *oto.Context
	rate int
}

var _ encore.AudioContext = (*Context)(nil)

// NewContext opens the playback device at the given sample rate, with
// roughly bufferMillis of device-side buffering. It blocks until the device
// is ready.
func NewContext(sampleRate, bufferMillis int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(bufferMillis) * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, rate: sampleRate}, nil
}

func (c *Context) SampleRate() int { return c.rate }

// Close suspends the device; oto contexts cannot be destroyed.
func (c *Context) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Output starts a device player fed through a pipe. WriteAudio blocks until
// the device has consumed the buffer, which paces the engine loop.
func (c *Context) Output() encore.AudioSink {
	pr, pw := io.Pipe()
	player := c.ctx.NewPlayer(pr)
	player.Play()
	return &Output{player: player, pw: pw, tmpBuffer: make([]byte, 0)}
}

type Output struct {
	player    *oto.Player
	pw        *io.PipeWriter
	tmpBuffer []byte
}

func (o *Output) WriteAudio(floatBuffer []float32) error {
	// we reuse the old capacity of tmpBuffer by setting its length to zero,
	// then save the returned slice so we can reuse it next time
	o.tmpBuffer = Float32To16BitLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.pw.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	o.pw.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
