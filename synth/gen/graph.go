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

// runBlock renders n uninterrupted frames, converting the float mix to
// interleaved int16 with clamping. No event falls inside the block; the
// caller has split at event boundaries already.
func (g *Generator) runBlock(out []int16, n int) {
	for c := 0; c < g.channels; c++ {
		if len(g.mix[c]) < n {
			g.mix[c] = make([]float32, n)
		}
		mix := g.mix[c][:n]
		for i := range mix {
			mix[i] = 0
		}
	}

	for i := range g.voices {
		if g.voices[i].active {
			g.runVoice(&g.voices[i], n)
		}
	}

	ampl := g.prg.Ampl
	if g.channels == 1 {
		mix := g.mix[0]
		for i := 0; i < n; i++ {
			out[i] = clamp16(mix[i] * ampl)
		}
		return
	}
	l := g.mix[0]
	r := g.mix[1]
	for i := 0; i < n; i++ {
		out[i*2] = clamp16(l[i] * ampl)
		out[i*2+1] = clamp16(r[i] * ampl)
	}
}

// runVoice evaluates the voice's operator graph for up to n frames and pans
// the summed carriers into the mix accumulators.
func (g *Generator) runVoice(v *voice, n int) {
	rem := g.voiceRemaining(v)
	if rem <= 0 {
		v.active = false
		return
	}
	if rem < n {
		n = rem
	}

	acc := g.buf(0, n)
	first := true
	for _, id := range v.graph {
		g.runOp(id, acc, n, nil, false, !first, 0)
		first = false
	}
	if first {
		return
	}

	pan := g.buf(1, n)
	v.pan.Run(pan, g.rate, nil)

	// channel mix modulators add to the pan track
	for _, id := range v.graph {
		for _, cid := range g.ops[id].cmods {
			g.runOp(cid, pan, n, nil, false, true, 0)
		}
	}

	if g.channels == 1 {
		mix := g.mix[0]
		for i := 0; i < n; i++ {
			mix[i] += acc[i]
		}
		return
	}
	l := g.mix[0]
	r := g.mix[1]
	for i := 0; i < n; i++ {
		p := pan[i]
		if p < -1 {
			p = -1
		} else if p > 1 {
			p = 1
		}
		l[i] += acc[i] * 0.5 * (1 - p)
		r[i] += acc[i] * 0.5 * (1 + p)
	}
}

// runOp evaluates one operator for n frames into out. parentFreq, when not
// nil, carries the parent's frequency track for ratio-valued parameters.
// waveEnv selects the [0,1] envelope output used by frequency and amplitude
// modulators; acc adds into out instead of overwriting it.
//
// An operator already being evaluated higher up the call chain contributes
// silence, so a cycle in the adjacency lists cannot recurse forever.
func (g *Generator) runOp(id uint16, out []float32, n int, parentFreq []float32, waveEnv bool, acc bool, depth int) {
	op := &g.ops[id]

	if op.visiting {
		if !acc {
			zero(out[:n])
		}
		return
	}
	op.visiting = true
	defer func() { op.visiting = false }()

	// silence consumes the start of the block. ramps are skipped over it so
	// a timed sweep resumes where it would have been
	i0 := 0
	if op.silence > 0 {
		sil := op.silence
		if sil > n {
			sil = n
		}
		op.freq.Skip(sil, g.rate)
		op.freq2.Skip(sil, g.rate)
		op.amp.Skip(sil, g.rate)
		op.amp2.Skip(sil, g.rate)
		op.silence -= sil
		if !acc {
			zero(out[:sil])
		}
		i0 = sil
	}

	avail := n - i0
	if !op.infinite {
		if op.time < avail {
			avail = op.time
		}
		op.time -= avail
	}
	if avail <= 0 {
		if !acc {
			zero(out[i0:n])
		}
		return
	}

	buf := out[i0 : i0+avail]
	var pf []float32
	if parentFreq != nil {
		pf = parentFreq[i0 : i0+avail]
	}

	base := opBufBase + depth*bufsPerOp
	freq := g.buf(base, avail)
	aux := g.buf(base+1, avail)
	pm := g.buf(base+2, avail)
	amp := g.buf(base+3, avail)
	aux2 := g.buf(base+4, avail)

	op.freq.Run(freq, g.rate, pf)

	if len(op.fmods) > 0 {
		op.freq2.Run(aux, g.rate, pf)
		for k, mid := range op.fmods {
			g.runOp(mid, aux2, avail, freq, true, k > 0, depth+1)
		}
		for i := range freq {
			freq[i] += (aux[i] - freq[i]) * aux2[i]
		}
	}

	havePM := len(op.pmods) > 0
	if havePM {
		for k, mid := range op.pmods {
			g.runOp(mid, pm, avail, freq, false, k > 0, depth+1)
		}
	}

	op.amp.Run(amp, g.rate, nil)
	if len(op.amods) > 0 {
		op.amp2.Run(aux, g.rate, nil)
		for k, mid := range op.amods {
			g.runOp(mid, aux2, avail, freq, true, k > 0, depth+1)
		}
		for i := range amp {
			amp[i] += (aux[i] - amp[i]) * aux2[i]
		}
	}

	if !havePM {
		pm = nil
	}
	op.runOsc(buf, freq, pm, amp, waveEnv, acc, g.rate)

	if i0+avail < n && !acc {
		zero(out[i0+avail : n])
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func clamp16(v float32) int16 {
	// clamp before converting. float to int conversion of an out of range
	// value is implementation specific in Go
	if v >= 1.0 {
		return 32767
	}
	if v <= -1.0 {
		return -32768
	}
	return int16(v * 32767.0)
}
