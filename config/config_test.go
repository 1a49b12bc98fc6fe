package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beatrochee/encore-player/config"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c != config.Default() {
		t.Errorf("expected the defaults, got %+v", c)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "sample_rate: 48000\nrepeat: true\nmidi_input: \"APC\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.SampleRate != 48000 {
		t.Errorf("expected sample_rate 48000, got %d", c.SampleRate)
	}
	if !c.Repeat {
		t.Errorf("expected repeat enabled")
	}
	if c.MIDIInput != "APC" {
		t.Errorf("expected midi_input APC, got %q", c.MIDIInput)
	}
	// unset fields keep their defaults
	if c.BlockFrames != config.Default().BlockFrames {
		t.Errorf("expected the default block_frames, got %d", c.BlockFrames)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, content := range []string{
		"sample_rate: -1\n",
		"block_frames: 0\n",
		"peak_columns: -5\n",
		"master_volume: 1.5\n",
	} {
		path := filepath.Join(t.TempDir(), "config.yml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
		if _, err := config.Load(path); err == nil {
			t.Errorf("expected %q to be rejected", content)
		}
	}
}
