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

package curated_test

import (
	"errors"
	"testing"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/test"
)

const testError = "test error: %v"
const otherError = "other error: %v"

func TestMessage(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	test.Equate(t, e.Error(), "test error: foo")

	// wrapping an error of the same pattern in itself causes the duplicate
	// message part to be dropped
	f := curated.Errorf(testError, e)
	test.Equate(t, f.Error(), "test error: foo")

	// different patterns chain normally
	g := curated.Errorf(otherError, e)
	test.Equate(t, g.Error(), "other error: test error: foo")
}

func TestIdentity(t *testing.T) {
	e := curated.Errorf(testError, "foo")

	test.Equate(t, curated.IsAny(e), true)
	test.Equate(t, curated.Is(e, testError), true)
	test.Equate(t, curated.Is(e, otherError), false)

	test.Equate(t, curated.IsAny(nil), false)
	test.Equate(t, curated.Is(nil, testError), false)

	// plain errors are not curated
	p := errors.New("plain")
	test.Equate(t, curated.IsAny(p), false)
	test.Equate(t, curated.Is(p, testError), false)
}

func TestHas(t *testing.T) {
	e := curated.Errorf(testError, "foo")
	f := curated.Errorf(otherError, e)

	// Is() only looks at the outermost pattern; Has() searches the chain
	test.Equate(t, curated.Is(f, testError), false)
	test.Equate(t, curated.Has(f, testError), true)
	test.Equate(t, curated.Has(f, otherError), true)
	test.Equate(t, curated.Has(e, otherError), false)
}
