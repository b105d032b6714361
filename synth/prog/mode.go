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

package prog

import (
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/synth/wavetable"
)

// Mode is the tagged variant selecting an operator's synthesis family. The
// generator switches exhaustively on the concrete type; there is no common
// behaviour to express here beyond the marker method.
type Mode interface {
	mode()
}

// WaveMode is a wavetable oscillator.
type WaveMode struct {
	Wave wavetable.Wave

	// cubic-Hermite rather than linear table interpolation
	Hermite bool

	// differenced lookup of the pre-integrated table, for reduced aliasing
	Integrated bool
}

func (WaveMode) mode() {}

// NoiseType enumerates the parametric noise colours.
type NoiseType int

// List of valid NoiseType values.
const (
	NoiseWhite NoiseType = iota
	NoisePink
	NoiseRed
	NoiseViolet
	NoiseBlue
	NumNoiseTypes
)

// names as they appear in scripts.
var noiseNames = []string{"wh", "pk", "rd", "vi", "bl"}

func (n NoiseType) String() string {
	if n < 0 || n >= NumNoiseTypes {
		return "unknown"
	}
	return noiseNames[n]
}

// NoiseByName returns the NoiseType for a script-level noise colour name.
func NoiseByName(name string) (NoiseType, bool) {
	for i, s := range noiseNames {
		if s == name {
			return NoiseType(i), true
		}
	}
	return NoiseWhite, false
}

// NoiseMode is a parametric noise generator.
type NoiseMode struct {
	Noise NoiseType
	Seed  uint32
}

func (NoiseMode) mode() {}

// SegFunc enumerates how the random-segment generator picks its endpoint
// values, one per frequency-driven cycle.
type SegFunc int

// List of valid SegFunc values.
const (
	// uniform pseudo-random in [-1, 1]
	SegUniform SegFunc = iota

	// pseudo-random sign, full level
	SegBinary

	// pseudo-random choice of -1, 0 or 1
	SegTernary

	// deterministic alternation between 1 and -1, giving a plain
	// oscillation at the cycle rate
	SegFixed

	NumSegFuncs
)

// names as they appear in scripts.
var segNames = []string{"uni", "bin", "trn", "fix"}

func (f SegFunc) String() string {
	if f < 0 || f >= NumSegFuncs {
		return "unknown"
	}
	return segNames[f]
}

// SegByName returns the SegFunc for a script-level segment function name.
func SegByName(name string) (SegFunc, bool) {
	for i, s := range segNames {
		if s == name {
			return SegFunc(i), true
		}
	}
	return SegUniform, false
}

// SegMode is a random-segment generator: endpoint values chosen per cycle by
// Func, travelled between with the given ramp curve shape.
type SegMode struct {
	Func  SegFunc
	Shape ramp.Shape
	Seed  uint32

	// map endpoint values into the positive half range [0, 1]
	Half bool

	// run the output through a one-pole/one-zero smoothing pair, which
	// suppresses discontinuity artifacts when the generator modulates
	// itself
	Smooth bool
}

func (SegMode) mode() {}
