// Package config loads the player configuration from a yaml file, falling
// back to compiled-in defaults for anything unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// SampleRate is the playback device rate; stems at other rates are
	// resampled on acquisition.
	SampleRate   int `yaml:"sample_rate"`
	BufferMillis int `yaml:"buffer_millis"`
	// BlockFrames is the engine render block size in stereo frames; it sets
	// the control latency (messages apply between blocks).
	BlockFrames int `yaml:"block_frames"`

	PeakColumns int `yaml:"peak_columns"`

	Repeat       bool    `yaml:"repeat"`
	AutoAdvance  bool    `yaml:"auto_advance"`
	MasterVolume float64 `yaml:"master_volume"`

	// MIDIInput selects the remote-control input by device name prefix;
	// empty disables MIDI.
	MIDIInput string `yaml:"midi_input"`

	LibraryDir string `yaml:"library_dir"`
}

func Default() Config {
	return Config{
		SampleRate:   44100,
		BufferMillis: 50,
		BlockFrames:  1024,
		PeakColumns:  200,
		MasterVolume: 1,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "encore", "config.yml")
}

// Load reads the config at path (DefaultPath when empty). A missing file is
// not an error: you get the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	c := Default()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.BlockFrames <= 0 {
		return fmt.Errorf("block_frames must be positive, got %d", c.BlockFrames)
	}
	if c.PeakColumns <= 0 {
		return fmt.Errorf("peak_columns must be positive, got %d", c.PeakColumns)
	}
	if c.MasterVolume < 0 || c.MasterVolume > 1 {
		return fmt.Errorf("master_volume must be within [0, 1], got %g", c.MasterVolume)
	}
	return nil
}
