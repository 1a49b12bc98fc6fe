// Package media materializes stem payloads into playable handles for the
// engine, backed by the beep streamer library. One Track per stem: decoder →
// resampler (when the file's rate differs from the device) → pause gate →
// gain stage. Tracks are pull-driven; the engine's mix callback is the only
// clock they ever follow.
package media

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Decode turns a stem's encoded payload into a seekable sample stream. The
// container format is chosen by the file extension of path; the bytes are
// decoded from memory, so the original file can disappear after import.
func Decode(data []byte, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Decode(bytes.NewReader(data))
	case ".mp3":
		return mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".flac":
		return flac.Decode(bytes.NewReader(data))
	case ".ogg":
		return vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}
