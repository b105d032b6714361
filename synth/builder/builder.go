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

// Package builder compiles the parsed event/operator tree into a Program:
// the flat, id-indexed intermediate representation consumed by the
// generator.
//
// The build is a one-shot, single threaded transformation. It allocates
// voice and operator ids (reusing ids across non-overlapping lifetimes),
// constructs the modulator adjacency graph in dependency order, resolves
// event timing, and flattens composite sub-events into the main
// chronological sequence.
//
// Constructs the builder cannot support are reported to the central log as
// warnings and skipped; the build continues. Running out of representable
// ids is the only fatal error.
package builder

import (
	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/logger"
	"github.com/tonelang/tonelang/script"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/synth/rnd"
)

// tag for all builder entries in the central log.
const logTag = "builder"

// sentinal error pattern for id space exhaustion.
const IDSpaceError = "too many %s (max %d)"

// the duration given to a top-level operator when the script does not say.
const DefaultTimeMs = 1000

// parameter defaults for newly defined operators.
const (
	DefaultFreq = 440.0
	DefaultAmp  = 1.0
)

// Build compiles a parsed script into a Program. The zeroSeed argument
// selects fixed seeding of every pseudo-random element, for reproducible
// output.
//
// Warnings raised during the build are reported through the central log;
// they never affect the returned values. A non-nil error means no Program
// was produced.
func Build(sc *script.Script, zeroSeed bool) (*prog.Program, error) {
	b := &build{
		zeroSeed:  zeroSeed,
		oa:        newOpAllocator(),
		voiceOf:   make(map[*script.Op]uint16),
		graphs:    make(map[uint16][]uint16),
		nodeOf:    make(map[*script.Event]*evNode),
		opTime:    make(map[uint16]int),
		opSilence: make(map[uint16]int),
		seedOf:    make(map[uint16]uint32),
	}

	b.buildEvents(sc)
	if b.err != nil {
		return nil, curated.Errorf("builder: %v", b.err)
	}

	b.fillTimes()
	b.resolveGroups()
	b.flatten()

	return b.finish(sc), nil
}

// evNode wraps a built event with the bookkeeping the timing passes need.
// Discarded once the Program is finished.
type evNode struct {
	next      *evNode
	composite *evNode
	groupFrom *evNode

	ev    *prog.Event
	voice uint16

	// add the previous event's duration to this event's wait (implicit
	// chaining)
	waitForPrev bool

	// data records of this event's top-level operators
	top []*prog.OpData

	// top-level operators awaiting fit-to-group duration resolution
	fit []*prog.OpData
}

type build struct {
	zeroSeed bool

	va voiceAllocator
	oa *opAllocator

	// voice assignment per operator node; the explicit symbol table that
	// replaces late-bound pointer patching
	voiceOf map[*script.Op]uint16

	// current top-level graph per voice id
	graphs map[uint16][]uint16

	nodeOf map[*script.Event]*evNode

	// current duration per operator id: sounding time in ms, or -1 for
	// infinite
	opTime map[uint16]int

	// silence queued before the operator sounds, per id
	opSilence map[uint16]int

	// PRNG seed per operator id. assigned once, kept across updates
	seedOf map[uint16]uint32

	head *evNode
	tail *evNode

	err error
}

// pass one: walk the source events in time order, allocating ids and
// emitting event data records.

func (b *build) buildEvents(sc *script.Script) {
	for se := sc.First; se != nil; se = se.Next {
		b.va.advance(se.WaitMs)

		n := b.buildEvent(se, -1)
		if b.err != nil {
			return
		}
		if n == nil {
			// nothing usable in the event. its wait time must not be
			// lost; push it onto the next event
			if se.Next != nil {
				se.Next.WaitMs += se.WaitMs
			}
			continue
		}

		if b.tail == nil {
			b.head = n
		} else {
			b.tail.next = n
		}
		b.tail = n
		b.nodeOf[se] = n

		if se.GroupFrom != nil {
			if gf, ok := b.nodeOf[se.GroupFrom]; ok {
				n.groupFrom = gf
			}
		}

		// composite sub-events belong to the carrier's voice
		var ctail *evNode
		for cse := se.Composite; cse != nil; cse = cse.Next {
			cn := b.buildEvent(cse, int(n.voice))
			if b.err != nil {
				return
			}
			if cn == nil {
				continue
			}
			if ctail == nil {
				n.composite = cn
			} else {
				ctail.next = cn
			}
			ctail = cn
		}
	}
}

// buildEvent turns one source event into an evNode. The forceVoice argument
// is the carrier's voice for composite sub-events, or -1. Returns nil if the
// event contains nothing the builder can use.
func (b *build) buildEvent(se *script.Event, forceVoice int) *evNode {
	composite := forceVoice >= 0

	// drop unresolvable operators up front
	ops := make([]*script.Op, 0, len(se.Ops))
	for _, op := range se.Ops {
		if op.Ref != "" {
			logger.Logf(logTag, "reference to undefined label '%s'; skipped", op.Ref)
			continue
		}
		ops = append(ops, op)
	}

	if composite && len(ops) > 1 {
		logger.Log(logTag, "multiple simultaneous carriers in composite event; extras skipped")
		ops = ops[:1]
	}

	if len(ops) == 0 && se.Pan == nil {
		return nil
	}

	ev := &prog.Event{WaitMs: se.WaitMs}
	n := &evNode{ev: ev, waitForPrev: se.WaitForPrev}

	// voice assignment
	var voice uint16
	fresh := false
	switch {
	case composite:
		voice = uint16(forceVoice)

	default:
		prev := -1
		for _, op := range ops {
			if op.Prev != nil {
				if v, ok := b.voiceOf[op.Prev]; ok {
					prev = int(v)
					break
				}
			}
		}
		if prev >= 0 {
			voice = uint16(prev)
		} else {
			var err error
			voice, err = b.va.alloc()
			if err != nil {
				b.err = err
				return nil
			}
			fresh = true
		}
	}
	n.voice = voice
	ev.Voice = voice

	// operator data, in dependency order
	out := make([]*prog.OpData, 0, len(ops))
	topIDs := make([]uint16, 0, len(ops))
	newIDs := make([]uint16, 0, len(ops))
	reserved := false

	for _, op := range ops {
		id, isNew, ok := b.walkOp(op, false, &out)
		if !ok {
			if b.err != nil {
				return nil
			}
			continue
		}
		b.voiceOf[op] = voice
		topIDs = append(topIDs, id)
		if isNew {
			newIDs = append(newIDs, id)
		}
		if op.Label != "" {
			reserved = true
		}

		// top-level data records are the ones that end each op's emit run
		n.top = append(n.top, out[len(out)-1])

		if op.Time.Kind == script.TimeGroup {
			n.fit = append(n.fit, out[len(out)-1])
		}
	}
	ev.Ops = out

	// voice data: pan and/or graph change
	var vd *prog.VoiceData
	if se.Pan != nil {
		vd = &prog.VoiceData{}
		vd.Params |= prog.VoicePan
		vd.Pan = b.rampValue(se.Pan)
	}

	if !composite {
		var graph []uint16
		switch {
		case fresh:
			graph = topIDs
		case len(newIDs) > 0:
			graph = append(append([]uint16{}, b.graphs[voice]...), newIDs...)
		}
		if len(graph) > 0 {
			if vd == nil {
				vd = &prog.VoiceData{}
			}
			vd.Params |= prog.VoiceGraph
			vd.Graph = graph
			b.graphs[voice] = graph
		}
	}
	ev.VoiceData = vd

	// rough lifetime for the allocation table. durations not yet known
	// count as zero; the timing passes refine actual event times but the
	// table is only ever used for the reuse decision
	if !composite {
		extent := 0
		for _, op := range ops {
			d := roughDuration(op)
			if d > extent {
				extent = d
			}
		}
		for cse := se.Composite; cse != nil; cse = cse.Next {
			extent += cse.WaitMs
			for _, op := range cse.Ops {
				extent += roughDuration(op)
				break
			}
		}
		b.va.update(voice, extent, reserved)
	}

	return n
}

// roughDuration is the duration of an operator as far as it is knowable
// before the timing passes run.
func roughDuration(op *script.Op) int {
	switch op.Time.Kind {
	case script.TimeSet:
		return op.Time.Ms + op.SilenceMs
	case script.TimeDefault:
		if op.Prev != nil {
			// an update leaves duration alone; it contributes nothing new
			return 0
		}
		return DefaultTimeMs + op.SilenceMs
	}
	return 0
}

// walkOp allocates an id for the operator node, walks its modulator lists
// depth-first, and appends the node's data record to out. Modulator records
// are appended before their parent's, so a record never references an id
// that has no earlier record in the same build.
func (b *build) walkOp(node *script.Op, nested bool, out *[]*prog.OpData) (uint16, bool, bool) {
	id, isNew, err := b.oa.alloc(node)
	if err != nil {
		if curated.Is(err, IDSpaceError) {
			b.err = err
			return 0, false, false
		}
		logger.Logf(logTag, "operator update dropped: %v", err)
		return 0, false, false
	}

	od := &prog.OpData{ID: id}

	// modulator adjacency. only emitted when this event actually changes a
	// list; unchanged adjacency is never re-emitted
	b.walkMods(node, isNew, od, out)
	if b.err != nil {
		return 0, false, false
	}

	if isNew {
		b.newOpData(node, nested, od)
	} else {
		b.updateOpData(node, od)
	}

	*out = append(*out, od)
	return id, isNew, true
}

func (b *build) walkMods(node *script.Op, isNew bool, od *prog.OpData, out *[]*prog.OpData) {
	walk := func(list []*script.Op) []uint16 {
		ids := make([]uint16, 0, len(list))
		for _, m := range list {
			id, _, ok := b.walkOp(m, true, out)
			if !ok {
				if b.err != nil {
					return nil
				}
				continue
			}
			ids = append(ids, id)
		}
		return ids
	}

	if node.Mods&script.SetFMods != 0 || isNew && len(node.FMods) > 0 {
		od.FMods = walk(node.FMods)
		od.Params |= prog.OpFMods
	}
	if b.err != nil {
		return
	}
	if node.Mods&script.SetPMods != 0 || isNew && len(node.PMods) > 0 {
		od.PMods = walk(node.PMods)
		od.Params |= prog.OpPMods
	}
	if b.err != nil {
		return
	}
	if node.Mods&script.SetAMods != 0 || isNew && len(node.AMods) > 0 {
		od.AMods = walk(node.AMods)
		od.Params |= prog.OpAMods
	}
	if b.err != nil {
		return
	}
	if node.Mods&script.SetCMods != 0 || isNew && len(node.CMods) > 0 {
		od.CMods = walk(node.CMods)
		od.Params |= prog.OpCMods
	}
}

// newOpData fills the data record for a newly defined operator: every
// parameter is present, defaulted where the script is silent.
func (b *build) newOpData(node *script.Op, nested bool, od *prog.OpData) {
	// duration
	od.Params |= prog.OpTime
	switch node.Time.Kind {
	case script.TimeSet:
		od.Time = prog.Time{Ms: node.Time.Ms}
	case script.TimeInfinite:
		if nested {
			od.Time = prog.Time{Infinite: true}
		} else {
			logger.Log(logTag, "a top-level operator cannot have infinite duration; default used")
			od.Time = prog.Time{Ms: DefaultTimeMs}
		}
	case script.TimeGroup:
		// treated as zero until the group timing pass resolves it
		od.Time = prog.Time{}
	default:
		if nested {
			od.Time = prog.Time{Infinite: true}
		} else {
			od.Time = prog.Time{Ms: DefaultTimeMs}
		}
	}

	if node.SilenceMs > 0 {
		od.Params |= prog.OpSilence
		od.SilenceMs = node.SilenceMs
	}

	// frequency. modulators default to a 1/1 ratio of their parent
	od.Params |= prog.OpFreq | prog.OpFreq2
	if node.Freq != nil {
		od.Freq = b.rampValue(node.Freq)
	} else if nested {
		od.Freq = ramp.Ramp{V0: 1, V0Ratio: true}
	} else {
		od.Freq = ramp.Ramp{V0: DefaultFreq}
	}
	if node.Freq2 != nil {
		od.Freq2 = b.rampValue(node.Freq2)
	} else {
		// second frequency defaults to the first: frequency modulation has
		// no range until the script gives it one
		od.Freq2 = ramp.Ramp{V0: od.Freq.V0, V0Ratio: od.Freq.V0Ratio}
	}

	// amplitude. the second amplitude defaults to zero, the far bound of
	// amplitude modulation
	od.Params |= prog.OpAmp | prog.OpAmp2
	if node.Amp != nil {
		od.Amp = b.rampValue(node.Amp)
	} else {
		od.Amp = ramp.Ramp{V0: DefaultAmp}
	}
	if node.Amp2 != nil {
		od.Amp2 = b.rampValue(node.Amp2)
	} else {
		od.Amp2 = ramp.Ramp{}
	}

	od.Params |= prog.OpPhase
	if node.Phase != nil {
		od.Phase = *node.Phase
	}

	od.Params |= prog.OpMode
	od.Mode = b.seedMode(node.Mode, od.ID)
}

// updateOpData fills the data record for an operator update: only the
// parameters the script wrote are present.
func (b *build) updateOpData(node *script.Op, od *prog.OpData) {
	switch node.Time.Kind {
	case script.TimeSet:
		od.Params |= prog.OpTime
		od.Time = prog.Time{Ms: node.Time.Ms}
	case script.TimeInfinite:
		od.Params |= prog.OpTime
		od.Time = prog.Time{Infinite: true}
	case script.TimeGroup:
		od.Params |= prog.OpTime
		od.Time = prog.Time{}
	}

	if node.SilenceMs > 0 {
		od.Params |= prog.OpSilence
		od.SilenceMs = node.SilenceMs
	}

	if node.Freq != nil {
		od.Params |= prog.OpFreq
		od.Freq = b.rampValue(node.Freq)
	}
	if node.Freq2 != nil {
		od.Params |= prog.OpFreq2
		od.Freq2 = b.rampValue(node.Freq2)
	}
	if node.Amp != nil {
		od.Params |= prog.OpAmp
		od.Amp = b.rampValue(node.Amp)
	}
	if node.Amp2 != nil {
		od.Params |= prog.OpAmp2
		od.Amp2 = b.rampValue(node.Amp2)
	}

	if node.Phase != nil {
		od.Params |= prog.OpPhase
		od.Phase = *node.Phase
	}

	if node.Mode != nil {
		od.Params |= prog.OpMode
		od.Mode = b.seedMode(node.Mode, od.ID)
	}
}

// rampValue converts a script-level ramp into a program value, seeding a
// noise-shaped curve.
func (b *build) rampValue(src *ramp.Ramp) ramp.Ramp {
	rp := *src
	if rp.Shape == ramp.ShapeNoise && rp.Seed == 0 {
		rp.Seed = rnd.Seed(b.zeroSeed)
	}
	return rp
}

// seedMode gives a mode value its PRNG seed. The seed is allocated on first
// sight of the operator and survives later mode updates.
func (b *build) seedMode(m prog.Mode, id uint16) prog.Mode {
	seed, ok := b.seedOf[id]
	if !ok {
		seed = rnd.Seed(b.zeroSeed)
		b.seedOf[id] = seed
	}

	switch m := m.(type) {
	case prog.NoiseMode:
		m.Seed = seed
		return m
	case prog.SegMode:
		m.Seed = seed
		if m.Shape == ramp.ShapeNoise {
			// the segment travel reuses the curve machinery; a noise
			// travel needs its own seed stream
			m.Shape = ramp.ShapeLinear
		}
		return m
	}
	return m
}
