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
	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/prog"
)

// voiceSlot is the allocation record for one voice id. The table exists only
// for the duration of the build pass; nothing of it survives into the
// Program.
type voiceSlot struct {
	// remaining duration, in event-time milliseconds, of the longest
	// top-level operator last assigned to this slot. durations not yet
	// known (fit-to-group and the like) count as zero
	durationMs int

	// a script label can reach back to this voice at any later time, so
	// the slot can never be re-used for an unrelated voice
	reserved bool
}

// voiceAllocator decides voice id assignment: reuse of an expired slot where
// possible, a fresh monotonically increasing id otherwise.
type voiceAllocator struct {
	slots []voiceSlot
}

// advance the table by a period of event time, expiring slots whose voices
// have run their course.
func (va *voiceAllocator) advance(waitMs int) {
	for i := range va.slots {
		va.slots[i].durationMs -= waitMs
		if va.slots[i].durationMs < 0 {
			va.slots[i].durationMs = 0
		}
	}
}

// alloc returns a voice id for an event with no predecessor: the first
// expired unreserved slot, or a new id.
func (va *voiceAllocator) alloc() (uint16, error) {
	for i := range va.slots {
		if va.slots[i].durationMs == 0 && !va.slots[i].reserved {
			return uint16(i), nil
		}
	}

	if len(va.slots) > prog.MaxID {
		return 0, curated.Errorf(IDSpaceError, "voices", prog.MaxID+1)
	}
	va.slots = append(va.slots, voiceSlot{})
	return uint16(len(va.slots) - 1), nil
}

// update the slot after an event has been assigned to it.
func (va *voiceAllocator) update(id uint16, durationMs int, reserved bool) {
	if durationMs > va.slots[id].durationMs {
		va.slots[id].durationMs = durationMs
	}
	if reserved {
		va.slots[id].reserved = true
	}
}

func (va *voiceAllocator) count() int {
	return len(va.slots)
}

// opAllocator assigns operator ids. Unlike voices there is no free-slot
// search: an operator is identified by its lexical position in the script,
// so reuse happens only through an explicit predecessor link.
type opAllocator struct {
	// operator node to allocated id. update nodes are entered under the
	// same id as their predecessor
	ids map[*script.Op]uint16

	next int
}

func newOpAllocator() *opAllocator {
	return &opAllocator{ids: make(map[*script.Op]uint16)}
}

// alloc returns the id for an operator node: the predecessor's id for an
// update node, a fresh id otherwise. The second return value is true for a
// fresh allocation.
func (oa *opAllocator) alloc(op *script.Op) (uint16, bool, error) {
	if op.Prev != nil {
		id, ok := oa.ids[op.Prev]
		if !ok {
			// the tree guarantees predecessors are walked first; reaching
			// here means the predecessor itself was skipped
			return 0, false, curated.Errorf("predecessor not built")
		}
		oa.ids[op] = id
		return id, false, nil
	}

	if oa.next > prog.MaxID {
		return 0, false, curated.Errorf(IDSpaceError, "operators", prog.MaxID+1)
	}

	id := uint16(oa.next)
	oa.next++
	oa.ids[op] = id
	return id, true, nil
}

func (oa *opAllocator) count() int {
	return oa.next
}
