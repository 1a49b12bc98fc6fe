package engine

import (
	"errors"
	"fmt"
)

// ErrPlaybackBlocked is returned by Transport.Play when any handle refuses to
// start. The transport reverts to paused as a whole; retrying is expected to
// succeed once the host's playback-permission condition is satisfied.
var ErrPlaybackBlocked = errors.New("playback blocked by host")

// errEmptyCue aborts activation of a cue with no stems at all; there is
// nothing the transport could hold, so ready would be a lie.
var errEmptyCue = errors.New("cue has no stems")

// AcquisitionError reports a stem whose playable handle could not be built
// (corrupt file, unsupported codec). It aborts the whole cue activation:
// silently playing with a missing stem would be musically wrong.
type AcquisitionError struct {
	Stem string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquiring stem %q: %v", e.Stem, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
