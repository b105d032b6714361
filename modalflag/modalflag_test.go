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

package modalflag_test

import (
	"os"
	"testing"

	"github.com/tonelang/tonelang/modalflag"
	"github.com/tonelang/tonelang/test"
)

func TestNoModesNoFlags(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{})

	p, err := md.Parse()
	if p != modalflag.ParseContinue {
		t.Error("expected ParseContinue")
	}
	if err != nil {
		t.Errorf("did not expect error: %s", err)
	}
	if md.Mode() != "" {
		t.Errorf("did not expect to see mode as result of Parse()")
	}
	if md.Path() != "" {
		t.Errorf("did not expect to see modes in mode path")
	}
}

func TestNoModes(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"-test", "1", "2"})
	testFlag := md.AddBool("test", false, "test flag")

	if *testFlag != false {
		t.Error("expected *testFlag to be false before Parse()")
	}

	p, err := md.Parse()
	if p != modalflag.ParseContinue {
		t.Error("expected ParseContinue")
	}
	if err != nil {
		t.Errorf("did not expect error: %s", err)
	}

	if *testFlag != true {
		t.Error("expected *testFlag to be true after Parse()")
	}

	if len(md.RemainingArgs()) != 2 {
		t.Error("expected number of RemainingArgs() to be 2 after Parse()")
	}
}

func TestHelpFlags(t *testing.T) {
	tw := &test.CompareWriter{}

	md := modalflag.Modes{Output: tw}
	md.NewArgs([]string{"-help"})
	md.AddBool("test", true, "test flag")

	p, _ := md.Parse()
	if p != modalflag.ParseHelp {
		t.Error("expected ParseHelp return value from Parse()")
	}

	expectedHelp := "  -test\n" +
		"    	test flag (default true)\n"

	if !tw.Compare(expectedHelp) {
		t.Errorf("unexpected help message (%s)", tw.String())
	}
}

func TestHelpModes(t *testing.T) {
	tw := &test.CompareWriter{}

	md := modalflag.Modes{Output: tw}
	md.NewArgs([]string{"-help"})
	md.AddSubModes("A", "B", "C")

	p, _ := md.Parse()
	if p != modalflag.ParseHelp {
		t.Error("expected ParseHelp return value from Parse()")
	}

	expectedHelp := "sub-modes: A, B, C (default: A)\n"

	if !tw.Compare(expectedHelp) {
		t.Errorf("unexpected help message (%s)", tw.String())
	}
}

func TestSubModeSelection(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"b", "-x", "10"})
	md.AddSubModes("A", "B", "C")

	p, err := md.Parse()
	test.ExpectedSuccess(t, err)
	if p != modalflag.ParseContinue {
		t.Error("expected ParseContinue")
	}
	test.Equate(t, md.Mode(), "B")

	md.NewMode()
	x := md.AddInt("x", 0, "test value")

	p, err = md.Parse()
	test.ExpectedSuccess(t, err)
	if p != modalflag.ParseContinue {
		t.Error("expected ParseContinue")
	}
	test.Equate(t, *x, 10)
	test.Equate(t, len(md.RemainingArgs()), 0)
}

func TestDefaultSubMode(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"somefile"})
	md.AddSubModes("A", "B", "C")

	_, err := md.Parse()
	test.ExpectedSuccess(t, err)

	// an argument that is not a sub-mode selects the default and is left in
	// the remaining arguments
	test.Equate(t, md.Mode(), "A")
	test.Equate(t, len(md.RemainingArgs()), 1)
	test.Equate(t, md.GetArg(0), "somefile")
}

func TestModePath(t *testing.T) {
	md := modalflag.Modes{Output: os.Stdout}
	md.NewArgs([]string{"b", "z"})
	md.AddSubModes("A", "B")

	_, err := md.Parse()
	test.ExpectedSuccess(t, err)

	md.NewMode()
	md.AddSubModes("Y", "Z")

	_, err = md.Parse()
	test.ExpectedSuccess(t, err)

	test.Equate(t, md.Path(), "B/Z")
	test.Equate(t, md.Mode(), "Z")
}
