package encore

type (
	// MixerEntry is the per-stem mixer state: fader volume, mute and solo.
	// Entries are scoped to one loaded cue and rebuilt to defaults on every
	// cue activation; they are never persisted.
	MixerEntry struct {
		Volume float64
		Muted  bool
		Soloed bool
	}

	// MasterState is the master fader and master mute. It is scoped to the
	// whole session: it survives cue switches, but is not persisted.
	MasterState struct {
		Volume float64
		Muted  bool
	}
)

// GainDeadband is the minimum change in effective gain worth pushing to a
// live handle. Purely an optimization to skip needless writes; resolution is
// correct without it.
const GainDeadband = 1e-3

// DefaultMixerEntry is the state every stem starts in when its cue becomes
// active: unity volume, not muted, not soloed.
func DefaultMixerEntry() MixerEntry {
	return MixerEntry{Volume: 1}
}

// DefaultMasterState is full volume, not muted.
func DefaultMasterState() MasterState {
	return MasterState{Volume: 1}
}

// ResolveGains maps the mixer matrix to the effective linear gain of every
// stem. The precedence order is load-bearing: master mute silences
// everything; an explicit stem mute wins over that stem's own solo; a solo
// anywhere in the cue silences every non-soloed stem; otherwise the gain is
// the product of the stem fader and the master fader.
func ResolveGains(master MasterState, entries map[string]MixerEntry) map[string]float64 {
	gains := make(map[string]float64, len(entries))
	anySolo := false
	for _, e := range entries {
		if e.Soloed {
			anySolo = true
			break
		}
	}
	for id, e := range entries {
		switch {
		case master.Muted:
			gains[id] = 0
		case e.Muted:
			gains[id] = 0
		case anySolo && !e.Soloed:
			gains[id] = 0
		default:
			gains[id] = clamp01(e.Volume) * clamp01(master.Volume)
		}
	}
	return gains
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
