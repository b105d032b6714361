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

package builder_test

import (
	"testing"

	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/builder"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/test"
)

func mustBuild(t *testing.T, src string) *prog.Program {
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

func TestSingleTone(t *testing.T) {
	p := mustBuild(t, "W sin f440 t1000")

	test.Equate(t, len(p.Events), 1)
	test.Equate(t, p.VoiceCount, 1)
	test.Equate(t, p.OpCount, 1)
	test.Equate(t, p.DurationMs, 1000)

	ev := p.Events[0]
	test.Equate(t, ev.Voice, 0)
	test.Equate(t, len(ev.Ops), 1)

	od := ev.Ops[0]
	test.Equate(t, od.ID, 0)
	test.ApproxEquate(t, od.Freq.V0, 440.0, 1e-6)
	test.Equate(t, od.Time.Ms, 1000)

	// a newly defined operator carries every parameter
	test.Equate(t, od.Params&prog.OpAmp != 0, true)
	test.Equate(t, od.Params&prog.OpMode != 0, true)

	if ev.VoiceData == nil {
		t.Fatal("expected voice data on a fresh voice")
	}
	test.Equate(t, ev.VoiceData.Params&prog.VoiceGraph != 0, true)
	test.Equate(t, len(ev.VoiceData.Graph), 1)
	test.Equate(t, ev.VoiceData.Graph[0], 0)
}

func TestDefaults(t *testing.T) {
	p := mustBuild(t, "W sin")

	od := p.Events[0].Ops[0]
	test.ApproxEquate(t, od.Freq.V0, builder.DefaultFreq, 1e-6)
	test.ApproxEquate(t, od.Amp.V0, builder.DefaultAmp, 1e-6)
	test.Equate(t, od.Time.Ms, builder.DefaultTimeMs)
	test.Equate(t, p.DurationMs, builder.DefaultTimeMs)
}

func TestVoiceReuse(t *testing.T) {
	// the second tone starts after the first has ended, so the voice is
	// reused
	p := mustBuild(t, "W sin t100 \\200 W sin t100")
	test.Equate(t, p.VoiceCount, 1)
	test.Equate(t, p.Events[0].Voice, 0)
	test.Equate(t, p.Events[1].Voice, 0)

	// overlapping tones need two voices
	p = mustBuild(t, "W sin t1000 \\100 W sin t1000")
	test.Equate(t, p.VoiceCount, 2)
	test.Equate(t, p.Events[1].Voice, 1)
}

func TestLabelReservesVoice(t *testing.T) {
	// a labelled operator may be updated later, so its voice is never
	// reused even after the operator has ended
	p := mustBuild(t, "'x W sin t100 \\200 W sin t100")
	test.Equate(t, p.VoiceCount, 2)
}

func TestOperatorUpdate(t *testing.T) {
	p := mustBuild(t, "'x W sin t100 \\100 @x f220 t100")

	test.Equate(t, p.OpCount, 1)
	test.Equate(t, len(p.Events), 2)
	test.Equate(t, p.Events[1].Ops[0].ID, 0)

	// an update carries only the written parameters
	od := p.Events[1].Ops[0]
	test.Equate(t, od.Params&prog.OpFreq != 0, true)
	test.Equate(t, od.Params&prog.OpTime != 0, true)
	test.Equate(t, od.Params&prog.OpAmp != 0, false)
	test.ApproxEquate(t, od.Freq.V0, 220.0, 1e-6)

	test.Equate(t, p.DurationMs, 200)
}

func TestModulatorOrder(t *testing.T) {
	p := mustBuild(t, "W sin f440[W sin r2] t1000")

	test.Equate(t, p.OpCount, 2)

	ev := p.Events[0]
	test.Equate(t, len(ev.Ops), 2)

	// the modulator's record precedes its carrier's
	mod := ev.Ops[0]
	carrier := ev.Ops[1]
	test.Equate(t, mod.ID, 1)
	test.Equate(t, carrier.ID, 0)

	test.Equate(t, carrier.Params&prog.OpFMods != 0, true)
	test.Equate(t, len(carrier.FMods), 1)
	test.Equate(t, carrier.FMods[0], 1)

	// modulators default to a 1/1 frequency ratio and infinite duration
	test.Equate(t, mod.Freq.V0Ratio, true)
	test.ApproxEquate(t, mod.Freq.V0, 2.0, 1e-6)
	test.Equate(t, mod.Time.Infinite, true)

	// only the carrier appears in the voice graph
	test.Equate(t, len(ev.VoiceData.Graph), 1)
	test.Equate(t, ev.VoiceData.Graph[0], 0)
}

func TestGroupTiming(t *testing.T) {
	p := mustBuild(t, "< W sin t100 \\100 W sin tg \\100 W sin t300 >")

	// the group's longest member ends at 200+300=500ms. the fit operator
	// starts at 100ms so its duration is 400ms
	test.Equate(t, p.Events[1].Ops[0].Time.Ms, 400)
	test.Equate(t, p.DurationMs, 500)
}

func TestCompositeFlattening(t *testing.T) {
	p := mustBuild(t, "W sin f440 t100 ; f220 t200 \\50 W sqr t100")

	// the sub-event acts 100ms in, after the 50ms wait of the unrelated
	// event. the flattened sequence holds all three in time order
	test.Equate(t, len(p.Events), 3)
	test.Equate(t, p.Events[0].WaitMs, 0)
	test.Equate(t, p.Events[1].WaitMs, 50)
	test.Equate(t, p.Events[2].WaitMs, 50)

	// the second event is the unrelated voice; the third is the sub-event
	// updating the carrier
	test.Equate(t, p.Events[1].Voice, 1)
	test.Equate(t, p.Events[2].Voice, 0)
	test.Equate(t, p.Events[2].Ops[0].ID, p.Events[0].Ops[0].ID)

	test.Equate(t, p.DurationMs, 300)
}

func TestCompositeInheritsDuration(t *testing.T) {
	// a sub-event with no duration of its own repeats the previous
	// segment's, extending the tone
	p := mustBuild(t, "W sin t100 ; f220")

	test.Equate(t, len(p.Events), 2)
	test.Equate(t, p.Events[1].WaitMs, 100)
	test.Equate(t, p.Events[1].Ops[0].Time.Ms, 100)
	test.Equate(t, p.DurationMs, 200)
}

func TestUndefinedReferenceSkipped(t *testing.T) {
	// an update of an undefined label builds to an empty program, not an
	// error
	p := mustBuild(t, "@nope f220")
	test.Equate(t, len(p.Events), 0)
	test.Equate(t, p.DurationMs, 0)
}

func TestInfiniteCarrierRejected(t *testing.T) {
	// infinite duration is only meaningful for modulators; a top-level
	// operator falls back to the default duration
	p := mustBuild(t, "W sin ti")
	test.Equate(t, p.Events[0].Ops[0].Time.Infinite, false)
	test.Equate(t, p.Events[0].Ops[0].Time.Ms, builder.DefaultTimeMs)
}

func TestZeroSeed(t *testing.T) {
	p := mustBuild(t, "N wh t100")

	m, ok := p.Events[0].Ops[0].Mode.(prog.NoiseMode)
	test.Equate(t, ok, true)
	test.Equate(t, m.Seed, 0)
}

func TestSilenceExtendsDuration(t *testing.T) {
	p := mustBuild(t, "W sin t100 s50")
	test.Equate(t, p.DurationMs, 150)
}
