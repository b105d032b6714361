// This file is part of Tonelang.
//
// Tonelang is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tonelang is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tonelang.  If not, see <https://www.gnu.org/licenses/>.

// Package prog defines the intermediate representation produced by the
// program builder and consumed by the generator: a flat, time-ordered list of
// events carrying parameter changes for voices and operators, all identified
// by small dense ids.
//
// A Program is immutable once built. It can be shared by any number of
// generators, for example to render the same material at two different sample
// rates.
package prog

import (
	"github.com/tonelang/tonelang/synth/ramp"
)

// MaxID is the ceiling on voice and operator id allocation. Exceeding it is a
// fatal build error.
const MaxID = 0xffff

// OpParam is a bitmask recording which operator parameters an event changes.
// The generator applies only the parameters that are present, which keeps
// update events small.
type OpParam uint16

// List of valid OpParam values.
const (
	OpTime OpParam = 1 << iota
	OpSilence
	OpFreq
	OpFreq2
	OpPhase
	OpAmp
	OpAmp2
	OpMode
	OpFMods
	OpPMods
	OpAMods
	OpCMods
)

// OpAdjcs masks the parameters that record an adjacency change.
const OpAdjcs = OpFMods | OpPMods | OpAMods | OpCMods

// VoiceParam is a bitmask recording which voice parameters an event changes.
type VoiceParam uint8

// List of valid VoiceParam values.
const (
	VoicePan VoiceParam = 1 << iota
	VoiceGraph
)

// Time is an operator's duration. Pure modulators can be given an infinite
// duration, meaning they sound for as long as their carrier does.
type Time struct {
	Ms       int
	Infinite bool
}

// Event is one timestamped bundle of parameter changes, applied atomically
// when its scheduled position is reached. WaitMs is the delay since the
// previous event in the list, not an absolute timestamp.
type Event struct {
	WaitMs int
	Voice  uint16

	// nil if the event does not touch voice state
	VoiceData *VoiceData

	// operator changes, in dependency order: an operator's modulators appear
	// before the operator itself
	Ops []*OpData
}

// VoiceData carries the voice-level changes of an event.
type VoiceData struct {
	Params VoiceParam

	// pan position: -1 full left, 0 centre, 1 full right. ratio flags unused
	Pan ramp.Ramp

	// ids of the voice's top-level (carrier) operators. only valid when
	// Params has VoiceGraph set; an unchanged graph is never re-emitted
	Graph []uint16
}

// OpData carries the operator-level changes of an event. Only the fields
// whose bit is set in Params are meaningful.
type OpData struct {
	ID     uint16
	Params OpParam

	Time      Time
	SilenceMs int

	Freq  ramp.Ramp
	Freq2 ramp.Ramp
	Amp   ramp.Ramp
	Amp2  ramp.Ramp

	// phase offset in cycles, [0, 1)
	Phase float32

	Mode Mode

	// modulator adjacency lists by role. a nil list with the corresponding
	// Params bit clear means "unchanged"; a non-nil (possibly empty) list
	// with the bit set replaces the previous list
	FMods []uint16
	PMods []uint16
	AMods []uint16
	CMods []uint16
}

// Program is the immutable result of a build: everything the generator needs
// to render the script.
type Program struct {
	Events []*Event

	VoiceCount int
	OpCount    int

	// total duration of the script
	DurationMs int

	// global amplitude multiplier, applied at the final mix
	Ampl float32
}
