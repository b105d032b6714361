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

// Package script parses Tonelang scripts into the event/operator tree
// consumed by the program builder.
//
// The tree is transient: the builder walks it once, allocating ids and
// emitting the flat program, after which the tree can be discarded. Nodes
// refer to each other directly; id allocation is entirely the builder's
// business and no part of it leaks back into this package.
package script

import (
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
)

// Script is the parsed form of one source text.
type Script struct {
	// head of the time-ordered event list
	First *Event

	// global amplitude multiplier
	Ampl float32
}

// TimeKind describes how an operator's duration was written in the script.
type TimeKind int

// List of valid TimeKind values.
const (
	// no duration was written; the builder fills a default
	TimeDefault TimeKind = iota

	// explicit duration in milliseconds
	TimeSet

	// "ti": sounds for as long as the carrier does. only meaningful for
	// modulators
	TimeInfinite

	// "tg": fit to the longest duration in the enclosing timing group
	TimeGroup
)

// Time is an operator duration as written in the script.
type Time struct {
	Kind TimeKind
	Ms   int
}

// RoleSet is a bitmask of the modulator roles an operator node sets. A role
// not in the set means "unchanged from the predecessor", which is different
// from setting an empty list.
type RoleSet uint8

// List of valid RoleSet values.
const (
	SetFMods RoleSet = 1 << iota
	SetPMods
	SetAMods
	SetCMods
)

// Event is one node of the time-ordered event list.
type Event struct {
	Next *Event

	// delay before this event acts, in milliseconds, relative to the
	// previous event
	WaitMs int

	// add the longest operator duration of the previous event to WaitMs
	// (implicit chaining, the "\+" wait form)
	WaitForPrev bool

	// top-level operator nodes introduced or updated by this event
	Ops []*Op

	// voice pan change, nil if untouched
	Pan *ramp.Ramp

	// chain of composite sub-events, linked through their Next fields.
	// scheduled relative to this event, strictly after the operator's own
	// duration
	Composite *Event

	// non-nil on the last event of a timing group, pointing back at the
	// first event of the group
	GroupFrom *Event
}

// Op is one operator node: a new operator definition, or an update to an
// earlier one (Prev not nil). Parameter fields are pointers so that "not
// written" is distinct from any written value.
type Op struct {
	// the operator node this one updates. nil for a new operator
	Prev *Op

	// label bound to this operator, if any
	Label string

	// an unresolved "@name" reference. the builder reports it and skips the
	// node
	Ref string

	Time      Time
	SilenceMs int

	Freq  *ramp.Ramp
	Freq2 *ramp.Ramp
	Amp   *ramp.Ramp
	Amp2  *ramp.Ramp

	// phase offset in cycles
	Phase *float32

	// nil means the mode is unchanged (updates) or defaulted (new operators
	// always have one; the parser guarantees it)
	Mode prog.Mode

	// which modulator lists this node sets
	Mods RoleSet

	FMods []*Op
	PMods []*Op
	AMods []*Op
	CMods []*Op
}
