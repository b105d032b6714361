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

// Package gen renders a Program into interleaved 16bit PCM.
//
// The generator is pull-based and single threaded: the caller asks for a
// number of frames and the generator produces up to that many, fewer only at
// the end of the signal. Event application is sample accurate; a block is
// split wherever an event falls inside it, so no voice is ever rendered past
// a pending state change.
//
// The sample rate is fixed for the lifetime of a Generator. Rendering the
// same Program at two rates takes two Generator instances, which is safe:
// the Program is read-only.
package gen

import (
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/synth/wavetable"
)

type genState int

const (
	stateIdle genState = iota
	stateRunning
	stateDrained
)

// Generator renders one Program at one sample rate. Not safe for concurrent
// use; its state is owned by the render call sequence.
type Generator struct {
	prg      *prog.Program
	rate     int
	channels int
	tables   *wavetable.Set

	state genState

	// scheduling cursor
	evIdx  int
	evWait int

	// rounding carry for ms→samples conversions, accumulated over the
	// whole render so repeated short waits drift by at most one sample
	msCarry int

	voices []voice
	ops    []operator

	// scratch buffer arena for graph evaluation. grows with graph depth,
	// reused across calls
	bufs [][]float32

	// per-channel mix accumulators
	mix [][]float32
}

// number of scratch buffers a single operator evaluation needs.
const bufsPerOp = 5

// arena indices 0 and 1 are the voice accumulator and the pan track.
const opBufBase = 2

type voice struct {
	active bool
	graph  []uint16
	pan    ramp.Ramp
}

// NewGenerator is the preferred method of initialisation for the Generator
// type. The channels argument must be 1 or 2.
func NewGenerator(prg *prog.Program, rate int, channels int) *Generator {
	if channels < 1 {
		channels = 1
	} else if channels > 2 {
		channels = 2
	}

	g := &Generator{
		prg:      prg,
		rate:     rate,
		channels: channels,
		tables:   wavetable.Tables(),
		voices:   make([]voice, prg.VoiceCount),
		ops:      make([]operator, prg.OpCount),
		mix:      make([][]float32, channels),
	}
	return g
}

// Rate returns the generator's sample rate.
func (g *Generator) Rate() int {
	return g.rate
}

// Channels returns the generator's channel count.
func (g *Generator) Channels() int {
	return g.channels
}

// Render produces up to frames frames of interleaved signed 16bit PCM into
// out, which must hold at least frames*channels values. It returns the
// number of frames written and whether there is more signal to come.
//
// Fewer frames than requested are returned only at the end of the signal;
// once the signal is exhausted further calls return (0, false) with the
// requested length zero-filled.
func (g *Generator) Render(out []int16, frames int) (int, bool) {
	if frames*g.channels > len(out) {
		frames = len(out) / g.channels
	}
	for i := 0; i < frames*g.channels; i++ {
		out[i] = 0
	}

	if g.state == stateIdle {
		if len(g.prg.Events) > 0 {
			g.evWait = ramp.SamplesFromMs(g.prg.Events[0].WaitMs, g.rate, &g.msCarry)
		}
		g.state = stateRunning
	}

	if g.state == stateDrained {
		return 0, false
	}

	pos := 0
	for pos < frames {
		// apply every event that is due before any synthesis
		for g.evIdx < len(g.prg.Events) && g.evWait == 0 {
			g.apply(g.prg.Events[g.evIdx])
			g.evIdx++
			if g.evIdx < len(g.prg.Events) {
				g.evWait = ramp.SamplesFromMs(g.prg.Events[g.evIdx].WaitMs, g.rate, &g.msCarry)
			}
		}

		// split the block at the next pending event. with no events
		// pending the signal ends when the last voice expires, so the
		// block is clamped there and never padded
		n := frames - pos
		if g.evIdx < len(g.prg.Events) {
			if g.evWait < n {
				n = g.evWait
			}
		} else {
			rem := g.remaining()
			if rem == 0 {
				g.state = stateDrained
				break
			}
			if rem < n {
				n = rem
			}
		}
		if n == 0 {
			continue
		}

		g.runBlock(out[pos*g.channels:], n)

		if g.evIdx < len(g.prg.Events) {
			g.evWait -= n
		}
		pos += n
	}

	more := g.state != stateDrained
	return pos, more
}

// apply copies an event's changes into live voice and operator state, in
// list order.
func (g *Generator) apply(ev *prog.Event) {
	v := &g.voices[ev.Voice]

	for _, od := range ev.Ops {
		g.applyOp(od)
	}

	if ev.VoiceData != nil {
		if ev.VoiceData.Params&prog.VoiceGraph != 0 {
			v.graph = ev.VoiceData.Graph
		}
		if ev.VoiceData.Params&prog.VoicePan != 0 {
			v.pan.Apply(ev.VoiceData.Pan)
		}
		v.active = true
	}
	if len(v.graph) > 0 {
		v.active = true
	}
}

func (g *Generator) applyOp(od *prog.OpData) {
	op := &g.ops[od.ID]

	if od.Params&prog.OpMode != 0 {
		op.setMode(od.Mode, g.tables)
	}
	if od.Params&prog.OpTime != 0 {
		op.infinite = od.Time.Infinite
		if !op.infinite {
			op.time = ramp.SamplesFromMs(od.Time.Ms, g.rate, &g.msCarry)
		}
	}
	if od.Params&prog.OpSilence != 0 {
		op.silence = ramp.SamplesFromMs(od.SilenceMs, g.rate, &g.msCarry)
	}

	if od.Params&prog.OpFreq != 0 {
		op.freq.Apply(od.Freq)
	}
	if od.Params&prog.OpFreq2 != 0 {
		op.freq2.Apply(od.Freq2)
	}
	if od.Params&prog.OpAmp != 0 {
		op.amp.Apply(od.Amp)
	}
	if od.Params&prog.OpAmp2 != 0 {
		op.amp2.Apply(od.Amp2)
	}

	if od.Params&prog.OpPhase != 0 {
		op.phase = phaseFromCycles(od.Phase)
	}

	if od.Params&prog.OpFMods != 0 {
		op.fmods = od.FMods
	}
	if od.Params&prog.OpPMods != 0 {
		op.pmods = od.PMods
	}
	if od.Params&prog.OpAMods != 0 {
		op.amods = od.AMods
	}
	if od.Params&prog.OpCMods != 0 {
		op.cmods = od.CMods
	}
}

// remaining is the longest remaining duration, in samples, over all active
// voices. Zero means the signal is exhausted.
func (g *Generator) remaining() int {
	rem := 0
	for i := range g.voices {
		if !g.voices[i].active {
			continue
		}
		if r := g.voiceRemaining(&g.voices[i]); r > rem {
			rem = r
		}
	}
	return rem
}

// voiceRemaining is the longest remaining duration, in samples, among the
// voice's top-level operators.
func (g *Generator) voiceRemaining(v *voice) int {
	rem := 0
	for _, id := range v.graph {
		op := &g.ops[id]
		r := op.time + op.silence
		if op.infinite {
			// a top-level operator should never be infinite; the builder
			// rejects it. treat as expired rather than render forever
			r = 0
		}
		if r > rem {
			rem = r
		}
	}
	return rem
}

// buf returns scratch buffer i from the arena, growing the arena and the
// buffer as needed. Every buffer is at least n samples long.
func (g *Generator) buf(i int, n int) []float32 {
	for len(g.bufs) <= i {
		g.bufs = append(g.bufs, nil)
	}
	if len(g.bufs[i]) < n {
		g.bufs[i] = make([]float32, n)
	}
	return g.bufs[i][:n]
}

func phaseFromCycles(c float32) uint32 {
	// wrap into [0, 1) cycles
	c -= float32(int(c))
	if c < 0 {
		c += 1
	}
	return uint32(float64(c) * 4294967296.0)
}
