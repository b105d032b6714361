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

package builder

import (
	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/prog"
)

// pass two: per-event time fill. Resolves each operator's current duration,
// defaults ramp travel times from it, converts composite chains from "after
// the previous segment" to explicit wait times, and applies implicit
// chaining to event waits.

func (b *build) fillTimes() {
	prevDur := 0
	for n := b.head; n != nil; n = n.next {
		if n.waitForPrev {
			n.ev.WaitMs += prevDur
		}
		prevDur = b.fillEvent(n)
	}
}

func (b *build) fillEvent(n *evNode) int {
	fit := make(map[*prog.OpData]bool, len(n.fit))
	for _, od := range n.fit {
		fit[od] = true
	}

	b.applyTimes(n.ev.Ops, fit)
	for _, od := range n.ev.Ops {
		if !fit[od] {
			b.fillOpRamps(od)
		}
	}

	// event duration: the longest effective duration among the top-level
	// operators
	dur := 0
	for _, od := range n.top {
		if d := b.effDur(od); d > dur {
			dur = d
		}
	}

	// a pan ramp with no written travel time takes the event duration
	if n.ev.VoiceData != nil && n.ev.VoiceData.Params&prog.VoicePan != 0 {
		pan := &n.ev.VoiceData.Pan
		if pan.TimeImplicit {
			pan.TimeMs = dur
			if pan.TimeMs <= 0 {
				pan.TimeMs = DefaultTimeMs
			}
			pan.TimeImplicit = false
		}
	}

	// composite sub-events wait for the previous segment's duration. a
	// sub-event that does not set a duration of its own repeats the
	// previous segment's, extending the operator by the same amount
	if n.composite != nil && len(n.top) > 0 {
		prevSeg := b.effDur(n.top[0])

		for c := n.composite; c != nil; c = c.next {
			c.ev.WaitMs += prevSeg

			if len(c.top) > 0 {
				top := c.top[0]
				if top.Params&prog.OpTime == 0 {
					ms := b.opTime[top.ID]
					if ms < 0 {
						ms = DefaultTimeMs
					}
					top.Params |= prog.OpTime
					top.Time = prog.Time{Ms: ms}
				}
			}

			b.applyTimes(c.ev.Ops, nil)
			for _, od := range c.ev.Ops {
				b.fillOpRamps(od)
			}

			if len(c.top) > 0 {
				prevSeg = b.effDur(c.top[0])
			}
		}
	}

	return dur
}

// applyTimes folds the duration changes of a run of data records into the
// per-operator duration table.
func (b *build) applyTimes(ods []*prog.OpData, fit map[*prog.OpData]bool) {
	for _, od := range ods {
		if od.Params&prog.OpTime == 0 || fit[od] {
			continue
		}
		if od.Time.Infinite {
			b.opTime[od.ID] = -1
		} else {
			b.opTime[od.ID] = od.Time.Ms
		}
	}
}

// effDur is the effective duration of an operator at this event: its current
// sounding time plus any silence queued by the event. The silence is counted
// here, exactly once; it is never folded into the duration table.
func (b *build) effDur(od *prog.OpData) int {
	t := b.opTime[od.ID]
	if t < 0 {
		t = 0
	}
	if od.Params&prog.OpSilence != 0 {
		t += od.SilenceMs
	}
	return t
}

// fillOpRamps defaults the travel time of every ramp the record carries to
// the operator's current duration.
func (b *build) fillOpRamps(od *prog.OpData) {
	t := b.opTime[od.ID]
	if t <= 0 {
		t = DefaultTimeMs
	}

	if od.Params&prog.OpFreq != 0 && od.Freq.TimeImplicit {
		od.Freq.TimeMs = t
		od.Freq.TimeImplicit = false
	}
	if od.Params&prog.OpFreq2 != 0 && od.Freq2.TimeImplicit {
		od.Freq2.TimeMs = t
		od.Freq2.TimeImplicit = false
	}
	if od.Params&prog.OpAmp != 0 && od.Amp.TimeImplicit {
		od.Amp.TimeMs = t
		od.Amp.TimeImplicit = false
	}
	if od.Params&prog.OpAmp2 != 0 && od.Amp2.TimeImplicit {
		od.Amp2.TimeMs = t
		od.Amp2.TimeImplicit = false
	}
}

// pass three: group timing. For each timing group, operators marked
// fit-to-group are assigned whatever duration makes them end together with
// the longest-lasting member of the group.

func (b *build) resolveGroups() {
	for n := b.head; n != nil; n = n.next {
		if n.groupFrom == nil {
			continue
		}

		// longest end position of any explicit-duration operator, counting
		// from the first event of the group
		offset := 0
		maxEnd := 0
		for g := n.groupFrom; g != nil; g = g.next {
			if g != n.groupFrom {
				offset += g.ev.WaitMs
			}
			fit := make(map[*prog.OpData]bool, len(g.fit))
			for _, od := range g.fit {
				fit[od] = true
			}
			for _, od := range g.top {
				if fit[od] {
					continue
				}
				if end := offset + b.effDur(od); end > maxEnd {
					maxEnd = end
				}
			}
			if g == n {
				break
			}
		}

		offset = 0
		for g := n.groupFrom; g != nil; g = g.next {
			if g != n.groupFrom {
				offset += g.ev.WaitMs
			}
			for _, od := range g.fit {
				dur := maxEnd - offset
				if od.Params&prog.OpSilence != 0 {
					dur -= od.SilenceMs
				}
				if dur < 0 {
					dur = 0
				}
				od.Time = prog.Time{Ms: dur}
				b.opTime[od.ID] = dur
				b.fillOpRamps(od)
			}
			g.fit = nil
			if g == n {
				break
			}
		}
	}
}

// pass four: composite flattening. Each carrier's chain of sub-events is
// merged into the main chronological sequence: a time-ordered merge of two
// sorted sequences, rebasing wait times at each splice.

func (b *build) flatten() {
	for n := b.head; n != nil; n = n.next {
		if n.composite != nil {
			b.splice(n)
		}
	}

	b.tail = b.head
	for b.tail != nil && b.tail.next != nil {
		b.tail = b.tail.next
	}
}

func (b *build) splice(carrier *evNode) {
	sub := carrier.composite
	carrier.composite = nil

	at := carrier
	for sub != nil {
		next := sub.next

		// how far ahead of the current splice point this sub-event acts
		remaining := sub.ev.WaitMs

		// advance along the main sequence while the next main event acts
		// strictly earlier. a tie goes to the sub-event
		for at.next != nil && at.next.ev.WaitMs < remaining {
			remaining -= at.next.ev.WaitMs
			at = at.next
		}

		// splice in, debiting what remains from the following event
		sub.ev.WaitMs = remaining
		if at.next != nil {
			at.next.ev.WaitMs -= remaining
		}
		sub.next = at.next
		at.next = sub
		at = sub

		sub = next
	}
}

// finish collects the flattened list into the immutable Program.
func (b *build) finish(sc *script.Script) *prog.Program {
	p := &prog.Program{
		VoiceCount: b.va.count(),
		OpCount:    b.oa.count(),
		Ampl:       sc.Ampl,
	}

	abs := 0
	total := 0
	for n := b.head; n != nil; n = n.next {
		abs += n.ev.WaitMs
		for _, od := range n.ev.Ops {
			if od.Params&prog.OpTime == 0 || od.Time.Infinite {
				continue
			}
			end := abs + od.Time.Ms
			if od.Params&prog.OpSilence != 0 {
				end += od.SilenceMs
			}
			if end > total {
				total = end
			}
		}
		p.Events = append(p.Events, n.ev)
	}
	p.DurationMs = total

	return p
}
