// Package midi is the optional MIDI remote: note-on messages from a
// hardware controller drive the transport and cue navigation, so the
// operator can run the show without touching the terminal.
package midi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/beatrochee/encore-player/engine"
)

// Fixed note mapping, one octave around middle C. Velocity-0 note-ons are
// treated as note-offs and ignored.
const (
	NotePlay  = 60
	NotePause = 61
	NoteStop  = 62
	NotePrev  = 63
	NoteNext  = 64
)

type Remote struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
	broker *engine.Broker
}

// NewRemote opens the MIDI driver. A missing driver is not an error here;
// it surfaces when opening an input.
func NewRemote(broker *engine.Broker) *Remote {
	r := &Remote{broker: broker}
	r.driver, _ = rtmididrv.New()
	return r
}

// OpenByPrefix connects the first input device whose name starts with
// prefix and starts listening.
func (r *Remote) OpenByPrefix(prefix string) error {
	if r.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := r.driver.Ins()
	if err != nil {
		return fmt.Errorf("listing MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		if err := in.Open(); err != nil {
			return fmt.Errorf("opening MIDI input %q: %w", in.String(), err)
		}
		stop, err := midi.ListenTo(in, r.handleMessage)
		if err != nil {
			in.Close()
			return fmt.Errorf("listening on MIDI input %q: %w", in.String(), err)
		}
		r.in, r.stop = in, stop
		log.Infof("MIDI remote on %q", in.String())
		return nil
	}
	return fmt.Errorf("no MIDI input device found with prefix %q", prefix)
}

func (r *Remote) handleMessage(msg midi.Message, timestampms int32) {
	var ch, key, vel uint8
	if !msg.GetNoteOn(&ch, &key, &vel) || vel == 0 {
		return
	}
	var out any
	switch key {
	case NotePlay:
		out = engine.PlayMsg{}
	case NotePause:
		out = engine.PauseMsg{}
	case NoteStop:
		out = engine.StopMsg{}
	case NotePrev:
		out = engine.PrevCueMsg{}
	case NoteNext:
		out = engine.NextCueMsg{}
	default:
		return
	}
	// non-blocking: a flooded engine drops remote presses rather than
	// stalling the MIDI callback
	engine.TrySend(r.broker.ToEngine, out)
}

func (r *Remote) Close() {
	if r.stop != nil {
		r.stop()
	}
	if r.in != nil {
		r.in.Close()
	}
	if r.driver != nil {
		r.driver.Close()
	}
}
