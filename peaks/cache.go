package peaks

import (
	"sync"

	encore "github.com/beatrochee/encore-player"
)

// Cache memoizes extracted peaks per stem id. Recomputing on demand would be
// correct too; the cache only saves re-decoding when the waveforms of a
// loaded cue are redrawn. Clear it on every cue switch.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]Peak
}

func NewCache() *Cache {
	return &Cache{entries: map[string][]Peak{}}
}

// Get returns the cached peaks for the stem, extracting them on first use.
// Failed extractions are not cached, so a transient read error does not
// pin a flat waveform for the rest of the cue.
func (c *Cache) Get(stem encore.Stem, columns, channel int) ([]Peak, error) {
	c.mu.Lock()
	p, ok := c.entries[stem.ID]
	c.mu.Unlock()
	if ok {
		return p, nil
	}
	data, err := stem.ReadPayload()
	if err != nil {
		return nil, err
	}
	p, err = Extract(data, stem.Path, columns, channel)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[stem.ID] = p
	c.mu.Unlock()
	return p, nil
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[string][]Peak{}
	c.mu.Unlock()
}
