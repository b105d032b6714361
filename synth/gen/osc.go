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

package gen

import (
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/synth/rnd"
	"github.com/tonelang/tonelang/synth/wavetable"
)

type family int

const (
	familyWave family = iota
	familyNoise
	familySeg
)

// operator is the live state behind one program operator ID.
type operator struct {
	time     int
	silence  int
	infinite bool

	freq  ramp.Ramp
	freq2 ramp.Ramp
	amp   ramp.Ramp
	amp2  ramp.Ramp

	// 32bit phase accumulator. one full cycle spans the whole uint32 range
	// so advancement wraps for free
	phase uint32

	fmods []uint16
	pmods []uint16
	amods []uint16
	cmods []uint16

	// cycle guard for graph evaluation
	visiting bool

	family family

	// wave family
	wave       *wavetable.Table
	hermite    bool
	integrated bool
	prevInteg  float32
	haveInteg  bool

	noise noiseState
	seg   segState
}

func (op *operator) setMode(m prog.Mode, tables *wavetable.Set) {
	switch m := m.(type) {
	case prog.WaveMode:
		op.family = familyWave
		op.wave = tables.Lookup(m.Wave)
		op.hermite = m.Hermite
		op.integrated = m.Integrated
		op.haveInteg = false
	case prog.NoiseMode:
		op.family = familyNoise
		op.noise = noiseState{typ: m.Noise, seed: m.Seed}
	case prog.SegMode:
		op.family = familySeg
		op.seg = segState{
			fn:     m.Func,
			shape:  m.Shape,
			seed:   m.Seed,
			half:   m.Half,
			smooth: m.Smooth,
		}
	}
}

// one full cycle per unit in 32bit phase terms.
const phaseRange = 4294967296.0

func phaseDelta(freq float32, scale float64) uint32 {
	return uint32(int64(float64(freq) * scale))
}

// phase modulator output is scaled so a unit amplitude swings half a cycle
// either way.
func pmPhase(s float32) uint32 {
	return uint32(int64(float64(s) * (phaseRange / 2)))
}

// runOsc produces avail samples from the operator's synthesis family. freq
// and amp are per-sample parameter tracks; pm, when not nil, offsets the
// lookup phase. waveEnv maps the output into [0, 1] scaled by amplitude,
// the form frequency and amplitude modulators feed their parents.
func (op *operator) runOsc(out []float32, freq []float32, pm []float32, amp []float32, waveEnv bool, acc bool, rate int) {
	scale := phaseRange / float64(rate)

	switch op.family {
	case familyWave:
		for i := range out {
			ph := op.phase
			if pm != nil {
				ph += pmPhase(pm[i])
			}
			dlt := phaseDelta(freq[i], scale)

			var s float32
			switch {
			case op.integrated:
				iv := op.wave.IntegLinear(ph)
				if op.haveInteg && dlt != 0 {
					s = (iv - op.prevInteg) * (phaseRange / float32(dlt))
				} else {
					s = op.wave.Linear(ph)
				}
				op.prevInteg = iv
				op.haveInteg = true
			case op.hermite:
				s = op.wave.Hermite(ph)
			default:
				s = op.wave.Linear(ph)
			}

			emit(out, i, s, amp[i], waveEnv, acc)
			op.phase += dlt
		}

	case familyNoise:
		// noise ignores the frequency track and phase modulation; it
		// advances one position per sample
		for i := range out {
			emit(out, i, op.noise.next(), amp[i], waveEnv, acc)
		}

	case familySeg:
		if !op.seg.inited {
			op.seg.start()
		}
		for i := range out {
			ph := op.phase
			if pm != nil {
				ph += pmPhase(pm[i])
			}
			x := float32(float64(ph) * (1.0 / phaseRange))
			v := op.seg.a + (op.seg.b-op.seg.a)*op.seg.shape.Map(x)
			if op.seg.smooth {
				v = op.seg.smoothed(v)
			}
			emit(out, i, v, amp[i], waveEnv, acc)

			dlt := phaseDelta(freq[i], scale)
			nph := op.phase + dlt
			if nph < op.phase {
				op.seg.advance()
			}
			op.phase = nph
		}
	}
}

func emit(out []float32, i int, s float32, amp float32, waveEnv bool, acc bool) {
	var v float32
	if waveEnv {
		v = (s + 1) * 0.5 * amp
	} else {
		v = s * amp
	}
	if acc {
		out[i] += v
	} else {
		out[i] = v
	}
}

type noiseState struct {
	typ  prog.NoiseType
	seed uint32
	pos  uint32

	// previous raw value, for the differencing colours
	prev float32

	// leaky integrator state for red noise
	red float32
}

const pinkOctaves = 8

func (ns *noiseState) next() float32 {
	pos := ns.pos
	ns.pos++

	switch ns.typ {
	case prog.NoisePink:
		return ns.pink(pos)
	case prog.NoiseRed:
		w := rnd.FloatSigned(pos ^ ns.seed)
		ns.red = ns.red*0.98 + w*0.15
		return ns.red
	case prog.NoiseViolet:
		w := rnd.FloatSigned(pos ^ ns.seed)
		s := (w - ns.prev) * 0.5
		ns.prev = w
		return s
	case prog.NoiseBlue:
		p := ns.pink(pos)
		s := (p - ns.prev) * 2
		ns.prev = p
		return s
	}
	return rnd.FloatSigned(pos ^ ns.seed)
}

// pink sums octave-spaced value streams, each octave holding its value twice
// as long as the one before. Being a pure function of position it needs no
// stored rows.
func (ns *noiseState) pink(pos uint32) float32 {
	var s float32
	for j := uint32(0); j < pinkOctaves; j++ {
		s += rnd.FloatSigned((pos >> j) ^ (ns.seed + j*2654435761))
	}
	return s * 0.25
}

type segState struct {
	fn     prog.SegFunc
	shape  ramp.Shape
	seed   uint32
	half   bool
	smooth bool

	inited bool
	a, b   float32
	next   uint32

	// one-zero then one-pole smoothing state
	z0 float32
	z1 float32
}

func (sg *segState) start() {
	sg.a = sg.endpoint(0)
	sg.b = sg.endpoint(1)
	sg.next = 2
	sg.inited = true
}

func (sg *segState) advance() {
	sg.a = sg.b
	sg.b = sg.endpoint(sg.next)
	sg.next++
}

func (sg *segState) endpoint(cycle uint32) float32 {
	var v float32
	switch sg.fn {
	case prog.SegBinary:
		if rnd.Float(cycle^sg.seed) < 0.5 {
			v = -1
		} else {
			v = 1
		}
	case prog.SegTernary:
		v = float32(rnd.Hash32(cycle^sg.seed)%3) - 1
	case prog.SegFixed:
		if cycle&1 == 0 {
			v = 1
		} else {
			v = -1
		}
	default:
		v = rnd.FloatSigned(cycle ^ sg.seed)
	}
	if sg.half {
		v = (v + 1) * 0.5
	}
	return v
}

func (sg *segState) smoothed(v float32) float32 {
	oz := (v + sg.z0) * 0.5
	sg.z0 = v
	sg.z1 += (oz - sg.z1) * 0.5
	return sg.z1
}
