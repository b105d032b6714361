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

// Package wavetable holds the single-cycle waveform tables used by the wave
// oscillators. Tables are built once, by an explicit and idempotent
// initialisation, and shared read-only by every generator in the process.
//
// Each table is stored twice: the waveform itself, and its running integral.
// The integral form is used by the oscillator for differenced lookup, which
// suppresses much of the aliasing of the raw waveform at high frequencies.
package wavetable

import (
	"math"
	"sync"
)

// TableBits is the log2 of the number of samples in one table.
const TableBits = 11

// TableLen is the number of samples in one table.
const TableLen = 1 << TableBits

// mask and shift for converting a 32bit phase to a table index.
const (
	indexShift = 32 - TableBits
	fracMask   = (1 << indexShift) - 1
	fracScale  = 1.0 / (1 << indexShift)
)

// Wave enumerates the available waveforms.
type Wave int

// List of valid Wave values. WaveCustom is empty until a waveform is loaded
// into it with Set.SetCustom().
const (
	WaveSine Wave = iota
	WaveSquare
	WaveTriangle
	WaveSaw
	WaveHalfSine
	WaveParabola
	WaveCustom
	NumWaves
)

// names as they appear in scripts.
var waveNames = []string{"sin", "sqr", "tri", "saw", "hsr", "par", "usr"}

func (w Wave) String() string {
	if w < 0 || w >= NumWaves {
		return "unknown"
	}
	return waveNames[w]
}

// WaveByName returns the Wave for a script-level waveform name. The second
// return value is false if the name is not recognised.
func WaveByName(name string) (Wave, bool) {
	for i, n := range waveNames {
		if n == name {
			return Wave(i), true
		}
	}
	return WaveSine, false
}

// Table is one single-cycle waveform.
type Table struct {
	// the waveform, nominally in the range [-1, 1]
	Data []float32

	// running integral of the mean-removed waveform, in units of cycles.
	// periodic: the integral over one full cycle is zero
	Integ []float32
}

// Set is the collection of waveform tables handed to a generator.
type Set struct {
	tables [NumWaves]*Table
}

var buildOnce sync.Once
var tables *Set

// Tables returns the shared waveform table set, building it on first call.
// Subsequent calls return the same Set.
func Tables() *Set {
	buildOnce.Do(func() {
		tables = build()
	})
	return tables
}

// Lookup returns the table for the given waveform. An unloaded WaveCustom
// falls back to WaveSine.
func (s *Set) Lookup(w Wave) *Table {
	if w < 0 || w >= NumWaves || s.tables[w] == nil {
		return s.tables[WaveSine]
	}
	return s.tables[w]
}

// SetCustom installs a user-supplied single-cycle waveform in the WaveCustom
// slot, resampling it to the table length. An empty slice clears the slot.
func (s *Set) SetCustom(data []float32) {
	if len(data) == 0 {
		s.tables[WaveCustom] = nil
		return
	}

	t := &Table{Data: make([]float32, TableLen)}
	step := float64(len(data)) / TableLen
	for i := 0; i < TableLen; i++ {
		// linear resampling is adequate for a single-cycle source
		x := float64(i) * step
		j := int(x)
		f := float32(x - float64(j))
		k := (j + 1) % len(data)
		t.Data[i] = data[j]*(1-f) + data[k]*f
	}
	t.integrate()
	s.tables[WaveCustom] = t
}

func build() *Set {
	s := &Set{}

	for w := WaveSine; w < WaveCustom; w++ {
		t := &Table{Data: make([]float32, TableLen)}
		for i := 0; i < TableLen; i++ {
			x := float64(i) / TableLen
			t.Data[i] = float32(sample(w, x))
		}
		t.integrate()
		s.tables[w] = t
	}

	return s
}

// sample the ideal waveform at cycle position x in [0, 1).
func sample(w Wave, x float64) float64 {
	switch w {
	case WaveSquare:
		if x < 0.5 {
			return 1
		}
		return -1

	case WaveTriangle:
		if x < 0.25 {
			return 4 * x
		}
		if x < 0.75 {
			return 2 - 4*x
		}
		return 4*x - 4

	case WaveSaw:
		// descending, so that a rising phase gives the common "buzz" with
		// negative-going resets
		return 1 - 2*x

	case WaveHalfSine:
		if x < 0.5 {
			return math.Sin(2 * math.Pi * x)
		}
		return 0

	case WaveParabola:
		// single hump, zero at cycle edges
		return 1 - 4*(x-0.5)*(x-0.5)
	}

	return math.Sin(2 * math.Pi * x)
}

// integrate fills in the Integ table from Data. the mean of the waveform is
// removed first so that the integral is periodic.
func (t *Table) integrate() {
	t.Integ = make([]float32, TableLen)

	var mean float64
	for _, v := range t.Data {
		mean += float64(v)
	}
	mean /= TableLen

	var sum float64
	for i := 0; i < TableLen; i++ {
		t.Integ[i] = float32(sum)
		sum += (float64(t.Data[i]) - mean) / TableLen
	}
}

// Linear returns the waveform value for a 32bit phase using linear
// interpolation between table samples.
func (t *Table) Linear(phase uint32) float32 {
	i := phase >> indexShift
	f := float32(phase&fracMask) * fracScale
	j := (i + 1) & (TableLen - 1)
	return t.Data[i]*(1-f) + t.Data[j]*f
}

// Hermite returns the waveform value for a 32bit phase using 4-point
// cubic-Hermite interpolation between table samples.
func (t *Table) Hermite(phase uint32) float32 {
	i1 := phase >> indexShift
	f := float32(phase&fracMask) * fracScale

	i0 := (i1 - 1) & (TableLen - 1)
	i2 := (i1 + 1) & (TableLen - 1)
	i3 := (i1 + 2) & (TableLen - 1)

	y0 := t.Data[i0]
	y1 := t.Data[i1]
	y2 := t.Data[i2]
	y3 := t.Data[i3]

	c1 := 0.5 * (y2 - y0)
	c2 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	c3 := 0.5*(y3-y0) + 1.5*(y1-y2)

	return ((c3*f+c2)*f+c1)*f + y1
}

// IntegLinear returns the integral-table value for a 32bit phase using linear
// interpolation, in units of cycles.
func (t *Table) IntegLinear(phase uint32) float32 {
	i := phase >> indexShift
	f := float32(phase&fracMask) * fracScale
	j := (i + 1) & (TableLen - 1)
	return t.Integ[i]*(1-f) + t.Integ[j]*f
}
