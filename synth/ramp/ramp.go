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

// Package ramp implements the interpolated parameter tracks used throughout
// the synthesiser. A Ramp holds a current value and, optionally, a goal to
// travel to over a duration, following one of several curve shapes. The
// program builder uses ramps to default and inherit parameter state; the
// generator runs them to produce per-sample frequency, amplitude and panning
// tracks.
//
// A goal is consumed exactly once: when the travel completes the goal value
// becomes the new current value and the ramp is constant again.
package ramp

// SamplesFromMs converts a duration in milliseconds to a number of samples at
// the given sample rate. The fractional remainder of the division is not
// dropped: it accumulates in *carry (in units of 1/1000th of a sample) and is
// folded into a later conversion, so that a run of short durations drifts
// from the ideal by no more than one sample. A nil carry discards the
// remainder.
func SamplesFromMs(ms int, rate int, carry *int) int {
	n := ms * rate
	if carry != nil {
		n += *carry
		*carry = n % 1000
	}
	return n / 1000
}

// Ramp is a parameter track: a current value V0 and, if HasGoal is set, a
// goal to travel to over TimeMs following the curve selected by Shape.
//
// The ratio flags mark V0 and Goal as being expressed relative to a parent
// operator's frequency rather than in absolute units. If the two flags
// disagree when the goal starts running, V0 is rescaled once so that both
// ends of the interpolation are in the same unit.
type Ramp struct {
	V0      float32
	Goal    float32
	HasGoal bool

	// the script wrote a goal without a starting value. V0 is inherited
	// from the live state of the parameter when the change is applied; see
	// Apply()
	V0Implicit bool

	// travel duration. TimeImplicit means the duration was not written in
	// the script and the builder is expected to fill it from the owning
	// operator before the ramp reaches the generator
	TimeMs       int
	TimeImplicit bool

	Shape Shape

	// seed for ShapeNoise travel
	Seed uint32

	V0Ratio   bool
	GoalRatio bool

	// travel state. valid while running is true
	running bool
	pos     int
	time    int
}

// Apply replaces the live state of a parameter with a change carried by an
// event. A change whose starting value is implicit keeps the parameter's
// current value and unit, adopting only the goal and travel description.
func (rp *Ramp) Apply(next Ramp) {
	if next.V0Implicit {
		next.V0 = rp.V0
		next.V0Ratio = rp.V0Ratio
		next.V0Implicit = false
	}
	*rp = next
}

// Run fills buf with successive values of the ramp, advancing the ramp's
// position by len(buf) samples. If the ramp is constant, or if the goal is
// reached within this call, the remainder of buf is filled with the constant
// value.
//
// The mul buffer, if not nil, is the per-sample ratio multiplier (the parent
// operator's frequency track); values flagged as ratios are scaled by it.
// When given, it must be at least as long as buf.
//
// Returns true if the goal is still pending after this call. A zero-length
// buf never mutates state.
func (rp *Ramp) Run(buf []float32, rate int, mul []float32) bool {
	if len(buf) == 0 {
		return rp.HasGoal
	}

	if !rp.HasGoal {
		rp.constant(buf, mul)
		return false
	}

	rp.begin(rate, mul)

	n := rp.time - rp.pos
	if n > len(buf) {
		n = len(buf)
	}

	if n > 0 {
		inv := float32(1) / float32(rp.time)
		if rp.Shape == ShapeNoise {
			for i := 0; i < n; i++ {
				buf[i] = noiseValue(rp.V0, rp.Goal, uint32(rp.pos+i), rp.Seed)
			}
		} else {
			d := rp.Goal - rp.V0
			for i := 0; i < n; i++ {
				x := float32(rp.pos+i+1) * inv
				buf[i] = rp.V0 + d*rp.Shape.Map(x)
			}
		}
		if rp.V0Ratio && mul != nil {
			for i := 0; i < n; i++ {
				buf[i] *= mul[i]
			}
		}
		rp.pos += n
	}

	if rp.pos >= rp.time {
		// goal reached. the goal becomes the new constant value
		rp.V0 = rp.Goal
		rp.HasGoal = false
		rp.running = false
		rp.pos = 0

		if n < len(buf) {
			var tail []float32
			if mul != nil {
				tail = mul[n:]
			}
			rp.constant(buf[n:], tail)
		}
		return false
	}

	return true
}

// Skip advances the ramp by n samples exactly as Run() would, without writing
// any output. Used to fast-forward over silence.
func (rp *Ramp) Skip(n int, rate int) {
	if n <= 0 || !rp.HasGoal {
		return
	}

	rp.begin(rate, nil)

	rp.pos += n
	if rp.pos >= rp.time {
		rp.V0 = rp.Goal
		rp.HasGoal = false
		rp.running = false
		rp.pos = 0
	}
}

// begin travelling towards the goal if not already doing so.
func (rp *Ramp) begin(rate int, mul []float32) {
	if rp.running {
		return
	}

	rp.time = SamplesFromMs(rp.TimeMs, rate, nil)
	rp.pos = 0

	// reconcile units before interpolating. the goal's flag wins
	if mul != nil && rp.V0Ratio != rp.GoalRatio {
		if rp.GoalRatio {
			rp.V0 /= mul[0]
		} else {
			rp.V0 *= mul[0]
		}
		rp.V0Ratio = rp.GoalRatio
	}

	rp.running = true
}

// fill buf with the constant value of the ramp.
func (rp *Ramp) constant(buf []float32, mul []float32) {
	if rp.V0Ratio && mul != nil {
		for i := range buf {
			buf[i] = rp.V0 * mul[i]
		}
		return
	}
	for i := range buf {
		buf[i] = rp.V0
	}
}
