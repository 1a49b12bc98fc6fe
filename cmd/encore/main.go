// Command encore is a stem player for live shows: it imports a folder of
// audio files where every subfolder is one cue and every file one stem of
// that cue, keeps the stems of the active cue phase-locked through
// play/pause/seek/stop, and gives the operator per-stem volume/mute/solo
// control from the terminal or a MIDI controller.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	encore "github.com/beatrochee/encore-player"
	"github.com/beatrochee/encore-player/config"
	"github.com/beatrochee/encore-player/engine"
	"github.com/beatrochee/encore-player/media"
	"github.com/beatrochee/encore-player/midi"
	"github.com/beatrochee/encore-player/oto"
	"github.com/beatrochee/encore-player/store"
	"github.com/beatrochee/encore-player/version"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file. Defaults to the per-user config.")
	libraryDir := flag.String("library", "", "Path to the stem library. Defaults to the per-user library.")
	midiInput := flag.String("midi-input", "", "Connect the MIDI remote to a matching device name prefix.")
	verbose := flag.Bool("verbose", false, "Enable debug logging.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	dir := cfg.LibraryDir
	if *libraryDir != "" {
		dir = *libraryDir
	}
	if dir == "" {
		dir = store.DefaultDir()
	}
	st, err := store.New(dir)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cues, err := st.LoadAll()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if folder := flag.Arg(0); folder != "" {
		imported, err := importFolder(folder)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cues, err = st.Save(append(cues, imported...))
		if err != nil {
			log.Fatalf("%v", err)
		}
		log.Infof("imported %d cue(s) from %s", len(imported), folder)
	}
	if len(cues) == 0 {
		fmt.Fprintln(os.Stderr, "the stem library is empty; pass a show folder to import")
		os.Exit(1)
	}

	audioContext, err := oto.NewContext(cfg.SampleRate, cfg.BufferMillis)
	if err != nil {
		log.Fatalf("could not acquire audio device: %v", err)
	}
	defer audioContext.Close()

	broker := engine.NewBroker()
	eng := engine.NewEngine(broker, media.NewProvider(cfg.SampleRate), engine.Options{
		MasterVolume: &cfg.MasterVolume,
		Repeat:       cfg.Repeat,
		AutoAdvance:  cfg.AutoAdvance,
	})
	go eng.Run(audioContext, cfg.BlockFrames)
	defer func() {
		engine.TrySend(broker.CloseEngine, struct{}{})
		engine.TimeoutReceive(broker.FinishedEngine, closeTimeout)
	}()

	if prefix := firstNonEmpty(*midiInput, cfg.MIDIInput); prefix != "" {
		remote := midi.NewRemote(broker)
		if err := remote.OpenByPrefix(prefix); err != nil {
			log.Errorf("%v", err)
		} else {
			defer remote.Close()
		}
	}

	front := newUI(broker, st, &cfg, cues)
	go front.watch()
	broker.ToEngine <- engine.SetCuesMsg{Cues: cues}
	if err := front.repl(); err != nil {
		log.Fatalf("%v", err)
	}
}

// importFolder collects the audio files under the show folder and organizes
// them into cues, one per subfolder.
func importFolder(folder string) ([]encore.Cue, error) {
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %v: %w", folder, err)
	}
	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && encore.IsAudioFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan %v: %w", folder, err)
	}
	cues := encore.Organize(files, root)
	if len(cues) == 0 {
		return nil, fmt.Errorf("no audio files found under %v", folder)
	}
	return cues, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Stem player for live shows.\nUsage: %s [flags] [showfolder]\n", os.Args[0])
	flag.PrintDefaults()
}
