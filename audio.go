package encore

// AudioSink is where the engine pushes rendered audio. The buffer is
// interleaved stereo float32 frames; WriteAudio blocks until the device has
// consumed the buffer, which is what paces the engine loop.
type AudioSink interface {
	WriteAudio(buffer []float32) error
	Close() error
}

// AudioContext is the playback device. SampleRate is fixed for the lifetime
// of the context; stems recorded at other rates are resampled on acquisition.
type AudioContext interface {
	Output() AudioSink
	SampleRate() int
	Close() error
}
