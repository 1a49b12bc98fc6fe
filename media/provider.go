package media

import (
	"fmt"

	"github.com/gopxl/beep/v2"

	encore "github.com/beatrochee/encore-player"
	"github.com/beatrochee/encore-player/engine"
)

// Provider builds playable handles from stem payloads. It implements
// engine.HandleProvider; Acquire runs on the engine's acquisition workers
// and is the only place in the player where decoding for playback happens.
type Provider struct {
	rate beep.SampleRate
}

var _ engine.HandleProvider = (*Provider)(nil)

func NewProvider(sampleRate int) *Provider {
	return &Provider{rate: beep.SampleRate(sampleRate)}
}

func (p *Provider) Acquire(stem encore.Stem) (engine.Handle, error) {
	data, err := stem.ReadPayload()
	if err != nil {
		return nil, err
	}
	base, format, err := Decode(data, stem.Path)
	if err != nil {
		return nil, fmt.Errorf("decoding stem %q: %w", stem.Name, err)
	}
	return NewTrack(stem.Name, base, format, p.rate), nil
}
