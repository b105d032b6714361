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

package gen_test

import (
	"testing"

	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/builder"
	"github.com/tonelang/tonelang/synth/gen"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/test"
)

// a low sample rate keeps the arithmetic in these tests legible. timing is
// exact at any rate
const testRate = 1000

func build(t *testing.T, src string) *prog.Program {
	t.Helper()

	sc, err := script.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, err := builder.Build(sc, true)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return p
}

// drain the generator completely, returning every frame produced.
func drain(t *testing.T, g *gen.Generator, blockFrames int) []int16 {
	t.Helper()

	var out []int16
	buf := make([]int16, blockFrames*g.Channels())
	for {
		n, more := g.Render(buf, blockFrames)
		out = append(out, buf[:n*g.Channels()]...)
		if !more {
			return out
		}
	}
}

func TestSingleTone(t *testing.T) {
	p := build(t, "W sin f100 a1 t1000")
	g := gen.NewGenerator(p, testRate, 1)

	out := drain(t, g, 256)
	test.Equate(t, len(out), 1000)

	// phase starts at zero so the first sample is zero; the second is a
	// tenth of a cycle in
	test.Equate(t, int(out[0]), 0)
	test.ApproxEquate(t, float64(out[1])/32767.0, 0.5878, 1e-3)

	// something audible happened
	var peak int16
	for _, s := range out {
		if s > peak {
			peak = s
		}
	}
	if peak < 30000 {
		t.Errorf("peak amplitude %d; expected a full scale tone", peak)
	}

	// drained. further calls produce zero-filled silence
	n, more := g.Render(make([]int16, 64), 64)
	test.Equate(t, n, 0)
	test.Equate(t, more, false)
}

func TestZeroAmplitude(t *testing.T) {
	p := build(t, "W sin f100 a0 t100")
	g := gen.NewGenerator(p, testRate, 1)

	out := drain(t, g, 64)
	test.Equate(t, len(out), 100)
	for _, s := range out {
		test.Equate(t, int(s), 0)
	}
}

func TestEventTiming(t *testing.T) {
	// two tones, the second starting at 100ms. total signal is 200ms
	// whatever block size the caller uses
	for _, block := range []int{1, 33, 256} {
		p := build(t, "W sin f100 t100 \\100 W sin f100 t100")
		g := gen.NewGenerator(p, testRate, 1)

		out := drain(t, g, block)
		test.Equate(t, len(out), 200)
	}
}

func TestSilence(t *testing.T) {
	p := build(t, "W sin f100 a1 t100 s50")
	g := gen.NewGenerator(p, testRate, 1)

	out := drain(t, g, 64)
	test.Equate(t, len(out), 150)

	for i := 0; i < 50; i++ {
		test.Equate(t, int(out[i]), 0)
	}

	var sum int
	for _, s := range out[50:] {
		if s < 0 {
			sum -= int(s)
		} else {
			sum += int(s)
		}
	}
	if sum == 0 {
		t.Error("expected the tone to sound after the silence")
	}
}

func TestFrequencyModulation(t *testing.T) {
	p := build(t, "W sin f100 f2{v:200} a1 t100 f[W sin r1 a1]")
	g := gen.NewGenerator(p, testRate, 1)

	out := drain(t, g, 64)
	test.Equate(t, len(out), 100)

	var peak int16
	for _, s := range out {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Error("expected a modulated tone, got silence")
	}
}

func TestStereoPanning(t *testing.T) {
	// pan hard right: the left channel stays silent
	p := build(t, "W sin f100 a1 t100 c1")
	g := gen.NewGenerator(p, testRate, 2)

	out := drain(t, g, 64)
	test.Equate(t, len(out), 200)

	var left, right int
	for i := 0; i < len(out); i += 2 {
		if out[i] < 0 {
			left -= int(out[i])
		} else {
			left += int(out[i])
		}
		if out[i+1] < 0 {
			right -= int(out[i+1])
		} else {
			right += int(out[i+1])
		}
	}
	test.Equate(t, left, 0)
	if right == 0 {
		t.Error("expected signal in the right channel")
	}
}

func TestNoiseIsDeterministic(t *testing.T) {
	render := func() []int16 {
		p := build(t, "N wh a1 t100")
		g := gen.NewGenerator(p, testRate, 1)
		return drain(t, g, 64)
	}

	a := render()
	b := render()
	test.Equate(t, len(a), 100)
	for i := range a {
		test.Equate(t, int(a[i]), int(b[i]))
	}
}

func TestModulationCycleIsSafe(t *testing.T) {
	// an operator modulating its own phase. the graph evaluator must
	// substitute silence for the inner reference rather than recurse
	od := &prog.OpData{
		ID: 0,
		Params: prog.OpTime | prog.OpFreq | prog.OpFreq2 | prog.OpAmp |
			prog.OpAmp2 | prog.OpPhase | prog.OpMode | prog.OpPMods,
		Time:  prog.Time{Ms: 100},
		Freq:  ramp.Ramp{V0: 100},
		Amp:   ramp.Ramp{V0: 1},
		Mode:  prog.WaveMode{},
		PMods: []uint16{0},
	}
	ev := &prog.Event{
		VoiceData: &prog.VoiceData{Params: prog.VoiceGraph, Graph: []uint16{0}},
		Ops:       []*prog.OpData{od},
	}
	p := &prog.Program{
		Events:     []*prog.Event{ev},
		VoiceCount: 1,
		OpCount:    1,
		DurationMs: 100,
		Ampl:       1,
	}

	g := gen.NewGenerator(p, testRate, 1)
	out := drain(t, g, 64)
	test.Equate(t, len(out), 100)
}

func TestGeneratorIndependence(t *testing.T) {
	// two generators over the same program do not share state
	p := build(t, "W sin f100 a1 t100")

	g1 := gen.NewGenerator(p, testRate, 1)
	g2 := gen.NewGenerator(p, testRate, 1)

	a := drain(t, g1, 64)
	b := drain(t, g2, 64)

	test.Equate(t, len(a), len(b))
	for i := range a {
		test.Equate(t, int(a[i]), int(b[i]))
	}
}

func TestFinalBlockIsPartial(t *testing.T) {
	// the last block is clamped to the end of the signal and reports that
	// there is nothing more to come. no trailing padding is written
	p := build(t, "W sin f100 a1 t100")
	g := gen.NewGenerator(p, testRate, 1)

	buf := make([]int16, 64)
	n, more := g.Render(buf, 64)
	test.Equate(t, n, 64)
	test.Equate(t, more, true)

	n, more = g.Render(buf, 64)
	test.Equate(t, n, 36)
	test.Equate(t, more, false)
}

func TestOverdrivenMixClamps(t *testing.T) {
	// four samples per cycle at this rate: 0, 1, 0, -1 before amplification
	p := build(t, "W sin f250 a100000 t20")
	g := gen.NewGenerator(p, testRate, 1)

	out := drain(t, g, 64)
	test.Equate(t, len(out), 20)
	test.Equate(t, int(out[1]), 32767)
	test.Equate(t, int(out[3]), -32768)
}

func TestSegmentCurveShape(t *testing.T) {
	// same seed, same endpoints, different travel curve. the cosine travel
	// must diverge from the linear one between endpoints
	render := func(src string) []int16 {
		g := gen.NewGenerator(build(t, src), testRate, 1)
		return drain(t, g, 64)
	}

	lin := render("R uni f100 a1 t100")
	cos := render("R uni l cos f100 a1 t100")
	test.Equate(t, len(lin), len(cos))

	differs := false
	for i := range lin {
		if lin[i] != cos[i] {
			differs = true
			break
		}
	}
	test.Equate(t, differs, true)
}
