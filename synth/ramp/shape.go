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

package ramp

import (
	"math"

	"github.com/tonelang/tonelang/synth/rnd"
)

// Shape selects the curve used to travel from the current value of a ramp to
// its goal. The same shapes are used by the random-segment oscillator to
// travel between its segment endpoints.
type Shape int

// List of valid Shape values. ShapeLinear is the default.
const (
	ShapeLinear Shape = iota
	ShapeHold
	ShapeCosine
	ShapeExponential
	ShapeLogarithmic
	ShapeSmoothstep
	ShapeNoise
	NumShapes
)

// names as they appear in scripts.
var shapeNames = []string{"lin", "hold", "cos", "exp", "log", "sms", "uwh"}

func (s Shape) String() string {
	if s < 0 || s >= NumShapes {
		return "unknown"
	}
	return shapeNames[s]
}

// ShapeByName returns the Shape for a script-level curve name. The second
// return value is false if the name is not recognised.
func ShapeByName(name string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), true
		}
	}
	return ShapeLinear, false
}

// Map converts a normalised position x in the range [0, 1] to a normalised
// progression in the same range. The travelled value at x is then:
//
//	v = v0 + (goal-v0) * shape.Map(x)
//
// ShapeNoise is not a positional curve and is not handled here; callers that
// support it must test for it explicitly.
func (s Shape) Map(x float32) float32 {
	switch s {
	case ShapeHold:
		if x < 1 {
			return 0
		}
		return 1

	case ShapeCosine:
		return 0.5 - 0.5*float32(math.Cos(float64(x)*math.Pi))

	case ShapeExponential:
		return expMap(x)

	case ShapeLogarithmic:
		return 1 - expMap(1-x)

	case ShapeSmoothstep:
		return x * x * (3 - 2*x)
	}

	return x
}

// polynomial stand-in for a true exponential. a true exponential curve never
// reaches its endpoint; this polynomial does, while keeping the slow-start
// fast-finish character that sounds natural for pitch slides and amplitude
// swells. the logarithmic shape is its mirror image.
func expMap(x float32) float32 {
	return x * x * x * (x*x - x + 1)
}

// noiseValue is the per-sample value for ShapeNoise: uniform white noise
// between v0 and goal, a pure function of position and seed.
func noiseValue(v0, goal float32, pos uint32, seed uint32) float32 {
	return v0 + (goal-v0)*rnd.Float(pos^seed)
}
