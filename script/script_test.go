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

package script_test

import (
	"testing"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/test"
)

func TestSimpleTone(t *testing.T) {
	sc, err := script.Parse("W sin f440 a1 t1000")
	test.ExpectedSuccess(t, err)

	e := sc.First
	if e == nil {
		t.Fatal("expected an event")
	}
	test.Equate(t, e.Next == nil, true)
	test.Equate(t, len(e.Ops), 1)

	op := e.Ops[0]
	m, ok := op.Mode.(prog.WaveMode)
	test.Equate(t, ok, true)
	test.Equate(t, m.Wave.String(), "sin")

	test.ApproxEquate(t, op.Freq.V0, 440.0, 1e-6)
	test.ApproxEquate(t, op.Amp.V0, 1.0, 1e-6)
	test.Equate(t, int(op.Time.Kind), int(script.TimeSet))
	test.Equate(t, op.Time.Ms, 1000)
}

func TestComments(t *testing.T) {
	_, err := script.Parse("# a comment\nW sin t100 # trailing\n")
	test.ExpectedSuccess(t, err)
}

func TestWait(t *testing.T) {
	sc, err := script.Parse("W sin t100 \\100 W sqr t100")
	test.ExpectedSuccess(t, err)

	test.Equate(t, sc.First.WaitMs, 0)
	test.Equate(t, sc.First.Next.WaitMs, 100)
}

func TestWaitForPrev(t *testing.T) {
	sc, err := script.Parse("W sin t100 \\+ W sqr t100")
	test.ExpectedSuccess(t, err)

	test.Equate(t, sc.First.Next.WaitForPrev, true)
}

func TestLabelsAndReferences(t *testing.T) {
	sc, err := script.Parse("'x W sin t100 \\100 @x f220")
	test.ExpectedSuccess(t, err)

	def := sc.First.Ops[0]
	test.Equate(t, def.Label, "x")

	ref := sc.First.Next.Ops[0]
	test.Equate(t, ref.Prev == def, true)
	test.ApproxEquate(t, ref.Freq.V0, 220.0, 1e-6)
}

func TestUndefinedReference(t *testing.T) {
	// an undefined label is not a parse error. the builder diagnoses it
	sc, err := script.Parse("@nope f220")
	test.ExpectedSuccess(t, err)

	test.Equate(t, sc.First.Ops[0].Ref, "nope")
	test.Equate(t, sc.First.Ops[0].Prev == nil, true)
}

func TestModulatorList(t *testing.T) {
	sc, err := script.Parse("W sin f440[W sin r2 a0.5] t1000")
	test.ExpectedSuccess(t, err)

	op := sc.First.Ops[0]
	test.Equate(t, len(op.FMods), 1)
	test.Equate(t, op.Mods&script.SetFMods != 0, true)

	mod := op.FMods[0]
	test.ApproxEquate(t, mod.Freq.V0, 2.0, 1e-6)
	test.Equate(t, mod.Freq.V0Ratio, true)
	test.ApproxEquate(t, mod.Amp.V0, 0.5, 1e-6)
}

func TestRampDescription(t *testing.T) {
	sc, err := script.Parse("W sin f{v:100, g:200, t:500, c:exp} t1000")
	test.ExpectedSuccess(t, err)

	f := sc.First.Ops[0].Freq
	test.ApproxEquate(t, f.V0, 100.0, 1e-6)
	test.ApproxEquate(t, f.Goal, 200.0, 1e-6)
	test.Equate(t, f.HasGoal, true)
	test.Equate(t, f.TimeMs, 500)
	test.Equate(t, f.TimeImplicit, false)
	test.Equate(t, f.Shape.String(), "exp")
}

func TestGoalOnlyRamp(t *testing.T) {
	sc, err := script.Parse("W sin f{g:200}")
	test.ExpectedSuccess(t, err)

	f := sc.First.Ops[0].Freq
	test.Equate(t, f.HasGoal, true)
	test.Equate(t, f.V0Implicit, true)
	test.Equate(t, f.TimeImplicit, true)
}

func TestComposite(t *testing.T) {
	sc, err := script.Parse("W sin f440 t100 ; f220 t200")
	test.ExpectedSuccess(t, err)

	e := sc.First
	if e.Composite == nil {
		t.Fatal("expected a composite sub-event")
	}

	sub := e.Composite.Ops[0]
	test.Equate(t, sub.Prev == e.Ops[0], true)
	test.Equate(t, sub.Time.Ms, 200)
	test.ApproxEquate(t, sub.Freq.V0, 220.0, 1e-6)
}

func TestBoundOperators(t *testing.T) {
	sc, err := script.Parse("W sin t100 & W sqr t100")
	test.ExpectedSuccess(t, err)

	test.Equate(t, len(sc.First.Ops), 2)
	test.Equate(t, sc.First.Next == nil, true)
}

func TestTimingGroup(t *testing.T) {
	sc, err := script.Parse("< W sin t100 \\100 W sqr tg >")
	test.ExpectedSuccess(t, err)

	last := sc.First.Next
	test.Equate(t, last.GroupFrom == sc.First, true)
	test.Equate(t, int(last.Ops[0].Time.Kind), int(script.TimeGroup))
}

func TestGlobalAmplitude(t *testing.T) {
	sc, err := script.Parse("A 0.5 W sin t100")
	test.ExpectedSuccess(t, err)
	test.ApproxEquate(t, sc.Ampl, 0.5, 1e-6)
}

func TestNoiseAndSegmentOperators(t *testing.T) {
	sc, err := script.Parse("N pk a0.5 t100 \\100 R uni h m f10 t100")
	test.ExpectedSuccess(t, err)

	n, ok := sc.First.Ops[0].Mode.(prog.NoiseMode)
	test.Equate(t, ok, true)
	test.Equate(t, n.Noise.String(), "pk")

	r, ok := sc.First.Next.Ops[0].Mode.(prog.SegMode)
	test.Equate(t, ok, true)
	test.Equate(t, r.Func.String(), "uni")
	test.Equate(t, r.Half, true)
	test.Equate(t, r.Smooth, true)
}

func TestParseErrors(t *testing.T) {
	_, err := script.Parse("W xyz")
	if test.ExpectedFailure(t, err) {
		test.Equate(t, curated.Is(err, script.ParseError), true)
	}

	_, err = script.Parse("\n\nQ")
	if test.ExpectedFailure(t, err) {
		// error messages carry the line number
		test.Equate(t, err.Error(), "script: line 3: unexpected character \"Q\"")
	}

	_, err = script.Parse("W sin r2")
	test.ExpectedFailure(t, err)

	_, err = script.Parse("< W sin t100")
	test.ExpectedFailure(t, err)

	_, err = script.Parse("W sin f[W sin r2")
	test.ExpectedFailure(t, err)
}

func TestSecondaryParameterValues(t *testing.T) {
	// a value beginning with the digit 2 is a value. the secondary target
	// is only selected when the 2 is followed by a ramp brace or a
	// modulator list
	sc, err := script.Parse("W sin f220 f2{v:880} a0.25 a2{v:0.5} t100")
	test.ExpectedSuccess(t, err)

	op := sc.First.Ops[0]
	test.ApproxEquate(t, op.Freq.V0, 220.0, 1e-6)
	test.ApproxEquate(t, op.Freq2.V0, 880.0, 1e-6)
	test.ApproxEquate(t, op.Amp.V0, 0.25, 1e-6)
	test.ApproxEquate(t, op.Amp2.V0, 0.5, 1e-6)

	// a modulator ratio of 2 is also a value
	sc, err = script.Parse("W sin f440[W sin r2] t100")
	test.ExpectedSuccess(t, err)

	mod := sc.First.Ops[0].FMods[0]
	test.ApproxEquate(t, mod.Freq.V0, 2.0, 1e-6)
	test.Equate(t, mod.Freq.V0Ratio, true)
}

func TestSegmentCurveOption(t *testing.T) {
	sc, err := script.Parse("R uni l cos f10 t100")
	test.ExpectedSuccess(t, err)

	m, ok := sc.First.Ops[0].Mode.(prog.SegMode)
	test.Equate(t, ok, true)
	test.Equate(t, m.Shape.String(), "cos")

	// 'l' belongs to the segment family only
	_, err = script.Parse("W sin l cos t100")
	test.ExpectedFailure(t, err)

	// the noise curve has no positional travel
	_, err = script.Parse("R uni l uwh t100")
	test.ExpectedFailure(t, err)
}
