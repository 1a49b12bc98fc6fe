package engine

import (
	"time"

	encore "github.com/beatrochee/encore-player"
)

type (
	// Handle is one stem materialized into playable form. The Transport is
	// written against this narrow capability surface only; nothing outside
	// the engine's owner is permitted to construct or destroy handles.
	//
	// Handles are pull-driven: Stream fills a block of stereo samples with
	// the stem's audio at its current gain, emitting silence while paused.
	// All handles of a cue are pulled from the same mix callback, one block
	// at a time, which is what keeps them phase-locked: there is no second
	// clock that could drift against the first.
	Handle interface {
		Name() string

		// Stream fills samples with up to len(samples) stereo frames and
		// reports how many were written. ok turns false once the stem has
		// drained past its end (and stays false until the next Seek).
		Stream(samples [][2]float64) (n int, ok bool)
		Err() error

		// Play requests playback start. The error is the host refusing to
		// start (playbackBlocked); it must leave the handle paused.
		Play() error
		Pause()

		Seek(t time.Duration) error
		Pos() time.Duration
		Duration() time.Duration

		SetGain(gain float64)
		Gain() float64

		Close() error
	}

	// HandleProvider materializes a stem's payload into a Handle. Acquire is
	// the only engine operation that is allowed to block for a long time; it
	// runs on a worker goroutine, one per stem, and its result is delivered
	// to the engine loop as a generation-tagged message.
	HandleProvider interface {
		Acquire(stem encore.Stem) (Handle, error)
	}
)
