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

// Package rnd provides the fast hashed pseudo-random functions used by the
// noise oscillators, the random-segment generator and the noise-shaped ramp
// curves. Randomness is a pure function of an integer position, meaning a
// generator can be advanced, rewound or evaluated out of order and still
// produce the same stream for the same seed.
package rnd

import (
	"time"
)

// the base seed for all wall-clock seeded randomness in the program. a
// process-wide value so that two generators created in the same process
// do not accidentally correlate with each other through the clock.
var baseSeed uint32

func init() {
	baseSeed = uint32(time.Now().UnixNano())
}

// Seed returns a seed for a new generator. The zeroSeed argument selects a
// fixed seed of zero, for reproducible output.
func Seed(zeroSeed bool) uint32 {
	if zeroSeed {
		return 0
	}
	baseSeed += 0x9e3779b9
	return baseSeed
}

// Hash32 scrambles a 32bit position into a 32bit pseudo-random value. This is
// the finalising step of the murmur3 hash, which is cheap and distributes
// well enough for audio purposes.
func Hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x85ebca6b
	x ^= x >> 13
	x *= 0xc2b2ae35
	x ^= x >> 16
	return x
}

// Float returns a pseudo-random value in the range [0, 1) for the given
// position.
func Float(pos uint32) float32 {
	return float32(Hash32(pos)) * (1.0 / 4294967296.0)
}

// FloatSigned returns a pseudo-random value in the range [-1, 1) for the
// given position.
func FloatSigned(pos uint32) float32 {
	return float32(int32(Hash32(pos))) * (1.0 / 2147483648.0)
}
