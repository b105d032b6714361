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

package wavetable_test

import (
	"testing"

	"github.com/tonelang/tonelang/synth/wavetable"
	"github.com/tonelang/tonelang/test"
)

func TestNames(t *testing.T) {
	w, ok := wavetable.WaveByName("sin")
	test.Equate(t, ok, true)
	test.Equate(t, int(w), int(wavetable.WaveSine))

	w, ok = wavetable.WaveByName("saw")
	test.Equate(t, ok, true)
	test.Equate(t, int(w), int(wavetable.WaveSaw))

	_, ok = wavetable.WaveByName("xyz")
	test.Equate(t, ok, false)

	test.Equate(t, wavetable.WaveTriangle.String(), "tri")
}

func TestSine(t *testing.T) {
	tbl := wavetable.Tables().Lookup(wavetable.WaveSine)

	// cardinal points of the cycle. a quarter cycle in 32bit phase is 1<<30,
	// which lands exactly on a table sample
	test.ApproxEquate(t, tbl.Linear(0), 0.0, 1e-6)
	test.ApproxEquate(t, tbl.Linear(1<<30), 1.0, 1e-6)
	test.ApproxEquate(t, tbl.Linear(2<<30), 0.0, 1e-5)
	test.ApproxEquate(t, tbl.Linear(3<<30), -1.0, 1e-6)

	// interpolation between samples stays close to the ideal waveform
	test.ApproxEquate(t, tbl.Hermite(1<<30), 1.0, 1e-5)
}

func TestSquare(t *testing.T) {
	tbl := wavetable.Tables().Lookup(wavetable.WaveSquare)
	test.ApproxEquate(t, tbl.Linear(1<<30), 1.0, 1e-6)
	test.ApproxEquate(t, tbl.Linear(3<<30), -1.0, 1e-6)
}

func TestIntegralIsPeriodic(t *testing.T) {
	tbl := wavetable.Tables().Lookup(wavetable.WaveSaw)

	// the integral of the mean-removed waveform returns to its start over a
	// full cycle
	test.ApproxEquate(t, tbl.IntegLinear(0), tbl.IntegLinear(0xffffffff), 1e-3)
}

func TestCustom(t *testing.T) {
	s := wavetable.Tables()

	// unloaded custom slot falls back to sine
	s.SetCustom(nil)
	tbl := s.Lookup(wavetable.WaveCustom)
	test.ApproxEquate(t, tbl.Linear(1<<30), 1.0, 1e-6)

	s.SetCustom([]float32{0, 1, 0, -1})
	tbl = s.Lookup(wavetable.WaveCustom)
	test.ApproxEquate(t, tbl.Linear(1<<30), 1.0, 1e-6)
	test.ApproxEquate(t, tbl.Linear(3<<30), -1.0, 1e-6)

	s.SetCustom(nil)
}
