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

package script

import (
	"strings"

	"github.com/tonelang/tonelang/curated"
	"github.com/tonelang/tonelang/synth/prog"
	"github.com/tonelang/tonelang/synth/ramp"
	"github.com/tonelang/tonelang/synth/wavetable"
)

// sentinal error pattern for all parse errors.
const ParseError = "script: line %d: %v"

// Parse a source text into the event/operator tree consumed by the program
// builder. Parse errors are fatal; anything the parser accepts is a valid
// tree (the builder still diagnoses constructs it cannot build, but it never
// re-validates syntax).
func Parse(src string) (*Script, error) {
	p := &parser{
		src:    src,
		line:   1,
		sc:     &Script{Ampl: 1},
		labels: make(map[string]*Op),
	}

	if err := p.run(); err != nil {
		return nil, err
	}
	return p.sc, nil
}

type parser struct {
	src  string
	pos  int
	line int

	sc *Script

	// tail of the main event list
	last *Event

	// the event op definitions currently attach to. this is a composite
	// sub-event after a ';'
	cur *Event

	// the most recent operator definition, for ';' and '&'
	curOp *Op

	labels map[string]*Op

	// label waiting to be bound to the next operator definition
	pendingLabel string

	// wait time accumulated for the next event
	pendingWait     int
	pendingWaitPrev bool

	// first event of the currently open timing group. groupOpen is true
	// between '<' and '>'
	groupOpen  bool
	groupFirst *Event
}

func (p *parser) errorf(pattern string, values ...interface{}) error {
	return curated.Errorf(ParseError, p.line, curated.Errorf(pattern, values...))
}

// scanning primitives

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// secondary reports whether an upcoming '2' selects a parameter's secondary
// target rather than starting a numeric value. the selector is only
// recognised immediately before a ramp brace or a modulator list, so f2{v:200}
// selects the goal frequency while f220 is a frequency of 220.
func (p *parser) secondary() bool {
	if p.peek() != '2' || p.pos+1 >= len(p.src) {
		return false
	}
	c := p.src[p.pos+1]
	return c == '{' || c == '['
}

func (p *parser) next() byte {
	c := p.peek()
	p.pos++
	if c == '\n' {
		p.line++
	}
	return c
}

// skipSpace skips whitespace and comments. comments run from '#' to the end
// of the line.
func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.peek()
		if c == '#' {
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
			continue
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return
		}
		p.next()
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// name reads a run of letters, digits and underscores.
func (p *parser) name() string {
	s := strings.Builder{}
	for !p.eof() {
		c := p.peek()
		if !isAlpha(c) && !isDigit(c) {
			break
		}
		s.WriteByte(p.next())
	}
	return s.String()
}

// number reads a decimal value with optional sign and fraction.
func (p *parser) number() (float64, error) {
	start := p.pos

	if p.peek() == '-' || p.peek() == '+' {
		p.pos++
	}
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.peek() == '.' {
		p.pos++
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
		}
	}

	s := p.src[start:p.pos]
	if s == "" || s == "-" || s == "+" || s == "." {
		return 0, p.errorf("number expected")
	}

	var v float64
	var frac float64
	neg := false
	seenPoint := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '-':
			neg = true
		case s[i] == '+':
		case s[i] == '.':
			seenPoint = true
			frac = 1
		default:
			if seenPoint {
				frac *= 0.1
				v += float64(s[i]-'0') * frac
			} else {
				v = v*10 + float64(s[i]-'0')
			}
		}
	}
	if neg {
		v = -v
	}
	return v, nil
}

func (p *parser) intNumber() (int, error) {
	v, err := p.number()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// statement level

func (p *parser) run() error {
	for {
		p.skipSpace()
		if p.eof() {
			break
		}

		c := p.next()
		switch c {
		case 'W', 'N', 'R':
			op, err := p.defOp(c)
			if err != nil {
				return err
			}
			e := p.newEvent()
			e.Ops = append(e.Ops, op)
			if err := p.opParams(op, e, false); err != nil {
				return err
			}

		case '@':
			op, err := p.refOp()
			if err != nil {
				return err
			}
			e := p.newEvent()
			e.Ops = append(e.Ops, op)
			if err := p.opParams(op, e, false); err != nil {
				return err
			}

		case '&':
			// bind a further operator into the current event
			if p.cur == nil {
				return p.errorf("'&' without a preceding operator")
			}
			p.skipSpace()
			k := p.next()
			var op *Op
			var err error
			switch k {
			case 'W', 'N', 'R':
				op, err = p.defOp(k)
			case '@':
				op, err = p.refOp()
			default:
				return p.errorf("operator expected after '&'")
			}
			if err != nil {
				return err
			}
			p.cur.Ops = append(p.cur.Ops, op)
			if err := p.opParams(op, p.cur, false); err != nil {
				return err
			}

		case ';':
			if err := p.composite(); err != nil {
				return err
			}

		case '\\':
			if p.peek() == '+' {
				p.next()
				p.pendingWaitPrev = true
				continue
			}
			ms, err := p.intNumber()
			if err != nil {
				return err
			}
			if ms < 0 {
				return p.errorf("negative wait time")
			}
			p.pendingWait += ms

		case '\'':
			label := p.name()
			if label == "" {
				return p.errorf("label name expected")
			}
			p.pendingLabel = label

		case '<':
			if p.groupOpen {
				return p.errorf("timing groups do not nest")
			}
			p.groupOpen = true
			p.groupFirst = nil

		case '>':
			if !p.groupOpen {
				return p.errorf("'>' without '<'")
			}
			if p.groupFirst != nil && p.last != nil {
				p.last.GroupFrom = p.groupFirst
			}
			p.groupOpen = false
			p.groupFirst = nil

		case 'A':
			v, err := p.number()
			if err != nil {
				return err
			}
			p.sc.Ampl = float32(v)

		default:
			return p.errorf("unexpected character %q", string(c))
		}
	}

	if p.groupOpen {
		return p.errorf("unterminated timing group")
	}
	return nil
}

// newEvent appends a fresh event to the main list, consuming any pending
// wait time.
func (p *parser) newEvent() *Event {
	e := &Event{
		WaitMs:      p.pendingWait,
		WaitForPrev: p.pendingWaitPrev,
	}
	p.pendingWait = 0
	p.pendingWaitPrev = false

	if p.last == nil {
		p.sc.First = e
	} else {
		p.last.Next = e
	}
	p.last = e
	p.cur = e

	if p.groupOpen && p.groupFirst == nil {
		p.groupFirst = e
	}
	return e
}

// defOp parses the argument of a W/N/R keyword and returns a new operator
// node with its mode set.
func (p *parser) defOp(kind byte) (*Op, error) {
	p.skipSpace()
	arg := p.name()

	op := &Op{}
	switch kind {
	case 'W':
		w, ok := wavetable.WaveByName(arg)
		if !ok {
			return nil, p.errorf("unknown waveform %q", arg)
		}
		op.Mode = prog.WaveMode{Wave: w}

	case 'N':
		n, ok := prog.NoiseByName(arg)
		if !ok {
			return nil, p.errorf("unknown noise colour %q", arg)
		}
		op.Mode = prog.NoiseMode{Noise: n}

	case 'R':
		f, ok := prog.SegByName(arg)
		if !ok {
			return nil, p.errorf("unknown segment function %q", arg)
		}
		op.Mode = prog.SegMode{Func: f, Shape: ramp.ShapeLinear}
	}

	if p.pendingLabel != "" {
		op.Label = p.pendingLabel
		p.labels[p.pendingLabel] = op
		p.pendingLabel = ""
	}
	return op, nil
}

// refOp parses a "@name" reference and returns an update node for the
// referenced operator. An undefined label still yields a node; diagnosing it
// is the builder's job.
func (p *parser) refOp() (*Op, error) {
	label := p.name()
	if label == "" {
		return nil, p.errorf("label name expected after '@'")
	}

	op := &Op{}
	if prev, ok := p.labels[label]; ok {
		op.Prev = prev
		// the label follows the operator to its newest node
		p.labels[label] = op
	} else {
		op.Ref = label
	}
	return op, nil
}

// composite parses a ';' sub-event: an in-place update of the current
// operator, scheduled after the operator's own duration.
func (p *parser) composite() error {
	if p.curOp == nil {
		return p.errorf("';' without a preceding operator")
	}

	sub := &Event{}

	p.skipSpace()
	if p.peek() == '\\' {
		p.next()
		ms, err := p.intNumber()
		if err != nil {
			return err
		}
		sub.WaitMs = ms
	}

	op := &Op{Prev: p.curOp}
	if p.curOp.Label != "" {
		p.labels[p.curOp.Label] = op
	}
	sub.Ops = append(sub.Ops, op)

	// append to the carrier event's composite chain. the carrier is the
	// last main-list event
	if p.last.Composite == nil {
		p.last.Composite = sub
	} else {
		t := p.last.Composite
		for t.Next != nil {
			t = t.Next
		}
		t.Next = sub
	}

	p.cur = sub
	return p.opParams(op, sub, false)
}

// opParams parses the parameter list of an operator, up to the next
// statement or the ']' that closes a modulator list.
func (p *parser) opParams(op *Op, e *Event, nested bool) error {
	p.curOp = op

	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}

		c := p.peek()
		switch c {
		case 'f', 'r':
			p.next()
			ratio := c == 'r'
			if ratio && !nested {
				return p.errorf("ratio frequency is only valid for a modulator")
			}
			target := &op.Freq
			if p.secondary() {
				p.next()
				target = &op.Freq2
			}
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.FMods = mods
				op.Mods |= SetFMods
				continue
			}
			rp, err := p.rampArg(ratio)
			if err != nil {
				return err
			}
			*target = rp
			// a value followed by a list: f440[...]
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.FMods = mods
				op.Mods |= SetFMods
			}

		case 'a':
			p.next()
			target := &op.Amp
			if p.secondary() {
				p.next()
				target = &op.Amp2
			}
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.AMods = mods
				op.Mods |= SetAMods
				continue
			}
			rp, err := p.rampArg(false)
			if err != nil {
				return err
			}
			*target = rp
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.AMods = mods
				op.Mods |= SetAMods
			}

		case 'p':
			p.next()
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.PMods = mods
				op.Mods |= SetPMods
				continue
			}
			v, err := p.number()
			if err != nil {
				return err
			}
			ph := float32(v)
			op.Phase = &ph

		case 'c':
			p.next()
			if p.peek() == '[' {
				p.next()
				mods, err := p.modList()
				if err != nil {
					return err
				}
				op.CMods = mods
				op.Mods |= SetCMods
				continue
			}
			rp, err := p.rampArg(false)
			if err != nil {
				return err
			}
			if nested {
				return p.errorf("pan is a voice parameter; not valid for a modulator")
			}
			e.Pan = rp

		case 't':
			p.next()
			switch p.peek() {
			case 'i':
				p.next()
				op.Time = Time{Kind: TimeInfinite}
			case 'g':
				p.next()
				op.Time = Time{Kind: TimeGroup}
			default:
				ms, err := p.intNumber()
				if err != nil {
					return err
				}
				if ms < 0 {
					return p.errorf("negative duration")
				}
				op.Time = Time{Kind: TimeSet, Ms: ms}
			}

		case 's':
			p.next()
			ms, err := p.intNumber()
			if err != nil {
				return err
			}
			if ms < 0 {
				return p.errorf("negative silence time")
			}
			op.SilenceMs = ms

		case 'h', 'i', 'm':
			p.next()
			if err := p.modeOption(op, c); err != nil {
				return err
			}

		case 'w':
			p.next()
			p.skipSpace()
			arg := p.name()
			w, ok := wavetable.WaveByName(arg)
			if !ok {
				return p.errorf("unknown waveform %q", arg)
			}
			m, ok := p.waveMode(op)
			if !ok {
				return p.errorf("'w' is only valid for a wave operator")
			}
			m.Wave = w
			op.Mode = *m

		case 'l':
			p.next()
			p.skipSpace()
			arg := p.name()
			s, ok := ramp.ShapeByName(arg)
			if !ok {
				return p.errorf("unknown curve %q", arg)
			}
			if s == ramp.ShapeNoise {
				return p.errorf("curve %q is not valid for segment travel", arg)
			}
			m, ok := p.segMode(op)
			if !ok {
				return p.errorf("'l' is only valid for a segment operator")
			}
			m.Shape = s
			op.Mode = *m

		default:
			if nested {
				return nil
			}
			// end of this operator's parameters; back to statements
			return nil
		}
	}
}

// waveMode returns the operator's WaveMode, following the predecessor chain
// for update nodes that have not set a mode of their own.
func (p *parser) waveMode(op *Op) (*prog.WaveMode, bool) {
	n := op
	for n != nil {
		if n.Mode != nil {
			if m, ok := n.Mode.(prog.WaveMode); ok {
				return &m, true
			}
			return nil, false
		}
		n = n.Prev
	}
	return nil, false
}

// segMode returns the operator's SegMode, following the predecessor chain
// for update nodes that have not set a mode of their own.
func (p *parser) segMode(op *Op) (*prog.SegMode, bool) {
	n := op
	for n != nil {
		if n.Mode != nil {
			if m, ok := n.Mode.(prog.SegMode); ok {
				return &m, true
			}
			return nil, false
		}
		n = n.Prev
	}
	return nil, false
}

// modeOption applies a single-letter mode option. The same letters mean
// different things for different operator families.
func (p *parser) modeOption(op *Op, c byte) error {
	n := op
	for n != nil && n.Mode == nil {
		n = n.Prev
	}
	if n == nil {
		return p.errorf("mode option %q without an operator mode", string(c))
	}

	switch m := n.Mode.(type) {
	case prog.WaveMode:
		switch c {
		case 'h':
			m.Hermite = true
		case 'i':
			m.Integrated = true
		default:
			return p.errorf("option %q is not valid for a wave operator", string(c))
		}
		op.Mode = m

	case prog.SegMode:
		switch c {
		case 'h':
			m.Half = true
		case 'm':
			m.Smooth = true
		default:
			return p.errorf("option %q is not valid for a segment operator", string(c))
		}
		op.Mode = m

	default:
		return p.errorf("option %q is not valid for this operator", string(c))
	}
	return nil
}

// modList parses the operators of a modulator list, up to the closing ']'.
func (p *parser) modList() ([]*Op, error) {
	mods := []*Op{}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated modulator list")
		}

		c := p.next()
		if c == ']' {
			return mods, nil
		}

		var op *Op
		var err error
		switch c {
		case 'W', 'N', 'R':
			op, err = p.defOp(c)
		case '@':
			op, err = p.refOp()
		default:
			return nil, p.errorf("operator expected in modulator list")
		}
		if err != nil {
			return nil, err
		}

		if err := p.opParams(op, nil, true); err != nil {
			return nil, err
		}
		mods = append(mods, op)
	}
}

// rampArg parses a parameter value: either a plain number or a braced ramp
// description {v:a, g:b, t:ms, c:shape}.
func (p *parser) rampArg(ratio bool) (*ramp.Ramp, error) {
	rp := &ramp.Ramp{TimeImplicit: true}

	if p.peek() != '{' {
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		rp.V0 = float32(v)
		rp.V0Ratio = ratio
		return rp, nil
	}

	p.next() // consume '{'
	rp.V0Ratio = ratio
	haveV0 := false

	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated ramp description")
		}
		if p.peek() == '}' {
			p.next()
			break
		}
		if p.peek() == ',' {
			p.next()
			continue
		}

		key := p.name()
		p.skipSpace()
		if p.next() != ':' {
			return nil, p.errorf("':' expected after ramp key %q", key)
		}
		p.skipSpace()

		switch key {
		case "v":
			v, err := p.number()
			if err != nil {
				return nil, err
			}
			rp.V0 = float32(v)
			haveV0 = true

		case "g":
			v, err := p.number()
			if err != nil {
				return nil, err
			}
			rp.Goal = float32(v)
			rp.GoalRatio = ratio
			rp.HasGoal = true

		case "t":
			ms, err := p.intNumber()
			if err != nil {
				return nil, err
			}
			if ms < 0 {
				return nil, p.errorf("negative ramp time")
			}
			rp.TimeMs = ms
			rp.TimeImplicit = false

		case "c":
			arg := p.name()
			s, ok := ramp.ShapeByName(arg)
			if !ok {
				return nil, p.errorf("unknown curve shape %q", arg)
			}
			rp.Shape = s

		default:
			return nil, p.errorf("unknown ramp key %q", key)
		}
	}

	// a goal with no starting value inherits the parameter's current value
	// when the change is applied
	if !haveV0 && rp.HasGoal {
		rp.V0Implicit = true
		rp.V0Ratio = rp.GoalRatio
	}
	return rp, nil
}
