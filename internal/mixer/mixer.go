/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mixer implements the six-channel summing bus from spec.md §4.3:
// per-channel fader/mute into a stereo master, with peak VU metering
// floored at -96 dBFS. Grounded on the teacher's channel-strip summing
// loop in internal/mediaengine/mixer.go, generalized from the teacher's
// fixed two-deck sum to the spec's six-channel bus.
package mixer

import "math"

// NumChannels is the fixed channel count of the mixer bus: the six
// decks of spec.md §3 (DeckA, DeckB, SoundFx, Aux1, Aux2, VoiceFx), one
// per channel.
const NumChannels = 6

// FloorDBFS is the metering floor applied to silence and muted channels.
const FloorDBFS = -96.0

// Channel is one input strip on the mixer bus.
type Channel struct {
	Fader float64 // linear gain in [0, 1], applied to every sample
	Muted bool

	vuLeftDB  float64
	vuRightDB float64
}

// VULeftDB returns the channel's last-computed left peak level in dBFS.
func (c *Channel) VULeftDB() float64 { return c.vuLeftDB }

// VURightDB returns the channel's last-computed right peak level in dBFS.
func (c *Channel) VURightDB() float64 { return c.vuRightDB }

// Mixer sums NumChannels interleaved stereo buffers into one master
// buffer, applying each channel's fader/mute and a master gain, and
// tracks peak VU per channel plus the master.
type Mixer struct {
	Channels   [NumChannels]Channel
	MasterGain float64

	masterLeftDB  float64
	masterRightDB float64
}

// New returns a Mixer with unity fader on every channel and unity master
// gain.
func New() *Mixer {
	m := &Mixer{MasterGain: 1}
	for i := range m.Channels {
		m.Channels[i].Fader = 1
	}
	return m
}

// MasterLeftDB returns the last-computed master left peak in dBFS.
func (m *Mixer) MasterLeftDB() float64 { return m.masterLeftDB }

// MasterRightDB returns the last-computed master right peak in dBFS.
func (m *Mixer) MasterRightDB() float64 { return m.masterRightDB }

// Mix sums inputs[0..NumChannels) into out, all interleaved stereo
// buffers of identical length. out is zeroed first. Channel and master
// VU levels are updated as a side effect. inputs entries may be nil,
// treated as silence (and metered at the floor, same as muted).
func (m *Mixer) Mix(inputs [NumChannels][]float32, out []float32) {
	for i := range out {
		out[i] = 0
	}

	for ch := 0; ch < NumChannels; ch++ {
		strip := &m.Channels[ch]
		in := inputs[ch]

		if strip.Muted || in == nil {
			strip.vuLeftDB = FloorDBFS
			strip.vuRightDB = FloorDBFS
			continue
		}

		var peakL, peakR float32
		fader := float32(strip.Fader)
		n := len(in)
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n; i++ {
			s := in[i] * fader
			out[i] += s
			abs := s
			if abs < 0 {
				abs = -abs
			}
			if i%2 == 0 {
				if abs > peakL {
					peakL = abs
				}
			} else {
				if abs > peakR {
					peakR = abs
				}
			}
		}

		strip.vuLeftDB = peakToDB(peakL)
		strip.vuRightDB = peakToDB(peakR)
	}

	gain := float32(m.MasterGain)
	var masterPeakL, masterPeakR float32
	for i := range out {
		out[i] *= gain
		abs := out[i]
		if abs < 0 {
			abs = -abs
		}
		if i%2 == 0 {
			if abs > masterPeakL {
				masterPeakL = abs
			}
		} else if abs > masterPeakR {
			masterPeakR = abs
		}
	}

	m.masterLeftDB = peakToDB(masterPeakL)
	m.masterRightDB = peakToDB(masterPeakR)
}

func peakToDB(peak float32) float64 {
	if peak <= 0 {
		return FloorDBFS
	}
	db := 20 * math.Log10(float64(peak))
	if db < FloorDBFS {
		return FloorDBFS
	}
	return db
}
