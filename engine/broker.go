package engine

import (
	"time"
)

type (
	// Broker is the centralized message broker for the player. It is used to
	// communicate between the engine loop, the front end and the
	// asynchronous stem acquisitions. The communication is many-to-one: one
	// channel per recipient, and every send from the engine loop is
	// non-blocking so that the audio thread can never deadlock on a slow
	// consumer.
	//
	// For closing the engine goroutine there are two channels: CloseEngine
	// has a capacity of 1, so requesting closure never blocks; if the
	// channel is already full someone else has already requested it and
	// dropping the message is fine. FinishedEngine is closed (never sent to)
	// once the engine has torn down its transport and released the device
	// output, so "<-FinishedEngine" waits for a clean shutdown, preferably
	// combined with a timeout.
	Broker struct {
		ToEngine chan any
		ToUI     chan MsgToUI

		CloseEngine    chan struct{}
		FinishedEngine chan struct{}
	}

	// MsgToUI is a message sent to the front end. The frequently refreshed
	// playback snapshot travels unboxed to avoid allocations on the audio
	// path; everything infrequent (alerts, peak data, state transitions) is
	// boxed in Data.
	MsgToUI struct {
		HasSnapshot bool
		Phase       Phase
		CueID       string
		Playing     bool
		Position    time.Duration
		Duration    time.Duration
		Levels      []float64 // per-stem block levels, in stem order

		Data any
	}
)

func NewBroker() *Broker {
	return &Broker{
		ToEngine:       make(chan any, 1024),
		ToUI:           make(chan MsgToUI, 1024),
		CloseEngine:    make(chan struct{}, 1),
		FinishedEngine: make(chan struct{}),
	}
}

// TrySend is a helper function to send a value to a channel if it is not
// full. It is guaranteed to be non-blocking. Returns true if the value was
// sent, false otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value is received from a channel, or until t
// has passed. ok is false on timeout or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
