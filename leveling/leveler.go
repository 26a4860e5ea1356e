// Package leveling turns a gate stream in production order into topological
// levels of mutually independent gates.
//
// The leveler keeps a single open level. A gate's level is one past the
// deeper of its two inputs, so it either lands in the open level or forces
// it closed and opens the next one; it can never skip ahead, and a gate that
// computes a level below the open one is a structural error. Within-level
// positions are handed out when a level closes: the XOR block first, then
// the AND block.
//
// Wire bookkeeping is credit driven. Every live wire has a location table
// entry holding its remaining consumer count; each read spends one credit
// and the entry is dropped the moment the count reaches zero, which keeps
// the table bounded by the number of concurrently live wires instead of the
// circuit size. Zero-credit wires (declared outputs) and the permanent level
// 0 wires are never dropped.
package leveling

import (
	"errors"
	"fmt"
	"math"

	"github.com/cktfmt/ckt/circuit"
	"github.com/cktfmt/ckt/leveled"
)

var (
	// ErrForwardReference reports a gate reading a wire at or past its own
	// output.
	ErrForwardReference = errors.New("forward wire reference")
	// ErrCreditUnderflow reports a read of a wire whose credits were already
	// spent and whose entry was reclaimed.
	ErrCreditUnderflow = errors.New("credit underflow")
	// ErrLevelRegression reports a gate whose computed level falls below the
	// open level, which the single open level cannot host.
	ErrLevelRegression = errors.New("level regression")
)

type entry struct {
	loc     leveled.WireLocation
	credits circuit.Credits
	pinned  bool
}

type pending struct {
	out  circuit.WireID
	gate leveled.Gate
}

// Leveler assigns levels and within-level positions to a gate stream fed in
// production order.
type Leveler struct {
	firstGate circuit.WireID
	nextWire  circuit.WireID
	table     map[circuit.WireID]*entry
	openLevel uint32
	pendXor   []pending
	pendAnd   []pending
	done      []*leveled.Level
}

// New returns a leveler for a circuit with the given number of primary
// inputs. Wires below 2+primaryInputs live on level 0 with their id as index
// and carry no credits.
func New(primaryInputs uint64) *Leveler {
	return &Leveler{
		firstGate: 2 + primaryInputs,
		nextWire:  2 + primaryInputs,
		table:     make(map[circuit.WireID]*entry),
		openLevel: 1,
	}
}

// AddGate places the next gate of the stream. outputCredits is the consumer
// count of the produced wire; zero pins it for the whole evaluation. The
// assigned level is returned.
func (lv *Leveler) AddGate(typ circuit.GateType, in1, in2 circuit.WireID, outputCredits circuit.Credits) (uint32, error) {
	out := lv.nextWire
	l1, err := lv.levelOf(in1, out)
	if err != nil {
		return 0, err
	}
	l2, err := lv.levelOf(in2, out)
	if err != nil {
		return 0, err
	}
	level := 1 + l1
	if l2 > l1 {
		level = 1 + l2
	}
	if level < lv.openLevel {
		return 0, fmt.Errorf("%w: wire %d computes level %d below open level %d",
			ErrLevelRegression, out, level, lv.openLevel)
	}
	if level > lv.openLevel {
		lv.closeOpen()
		lv.openLevel = level
	}

	loc1, err := lv.consume(in1)
	if err != nil {
		return 0, err
	}
	loc2, err := lv.consume(in2)
	if err != nil {
		return 0, err
	}
	p := pending{out: out, gate: leveled.Gate{In1: loc1, In2: loc2}}
	if typ == circuit.AND {
		lv.pendAnd = append(lv.pendAnd, p)
	} else {
		lv.pendXor = append(lv.pendXor, p)
	}
	lv.table[out] = &entry{
		loc:     leveled.WireLocation{Level: level},
		credits: outputCredits,
		pinned:  outputCredits == 0,
	}
	lv.nextWire++
	return level, nil
}

func (lv *Leveler) levelOf(in, out circuit.WireID) (uint32, error) {
	if in >= out {
		return 0, fmt.Errorf("%w: wire %d read by gate producing wire %d", ErrForwardReference, in, out)
	}
	if in < lv.firstGate {
		return 0, nil
	}
	e, ok := lv.table[in]
	if !ok {
		return 0, fmt.Errorf("%w: wire %d already reclaimed", ErrCreditUnderflow, in)
	}
	return e.loc.Level, nil
}

func (lv *Leveler) consume(in circuit.WireID) (leveled.WireLocation, error) {
	if in < lv.firstGate {
		if in > math.MaxUint32 {
			return leveled.WireLocation{}, fmt.Errorf("%w: input wire %d exceeds the level 0 index range",
				circuit.ErrInvalidCircuit, in)
		}
		return leveled.WireLocation{Level: 0, Index: uint32(in)}, nil
	}
	e, ok := lv.table[in]
	if !ok {
		return leveled.WireLocation{}, fmt.Errorf("%w: wire %d already reclaimed", ErrCreditUnderflow, in)
	}
	if !e.pinned {
		e.credits--
		if e.credits == 0 {
			delete(lv.table, in)
		}
	}
	return e.loc, nil
}

// closeOpen seals the open level: positions are assigned XOR block first,
// then AND block, and written back into the location table.
func (lv *Leveler) closeOpen() {
	n := len(lv.pendXor) + len(lv.pendAnd)
	if n == 0 {
		return
	}
	l := &leveled.Level{ID: lv.openLevel}
	idx := uint32(0)
	for _, p := range lv.pendXor {
		l.XorGates = append(l.XorGates, p.gate)
		lv.table[p.out].loc.Index = idx
		idx++
	}
	for _, p := range lv.pendAnd {
		l.AndGates = append(l.AndGates, p.gate)
		lv.table[p.out].loc.Index = idx
		idx++
	}
	lv.pendXor = lv.pendXor[:0]
	lv.pendAnd = lv.pendAnd[:0]
	lv.done = append(lv.done, l)
}

// TakeLevels drains the levels completed so far, in order. It may be called
// repeatedly while feeding gates to keep memory flat on deep circuits.
func (lv *Leveler) TakeLevels() []*leveled.Level {
	out := lv.done
	lv.done = nil
	return out
}

// Finish seals the open level and drains the remainder. The leveler must not
// be fed after Finish.
func (lv *Leveler) Finish() []*leveled.Level {
	lv.closeOpen()
	return lv.TakeLevels()
}

// Locate reports the final location of a wire. It answers for level 0 wires,
// pinned wires, and any wire whose credits are not yet spent; positions in
// the still open level are not final and report false.
func (lv *Leveler) Locate(w circuit.WireID) (leveled.WireLocation, bool) {
	if w < lv.firstGate {
		if w > math.MaxUint32 {
			return leveled.WireLocation{}, false
		}
		return leveled.WireLocation{Level: 0, Index: uint32(w)}, true
	}
	e, ok := lv.table[w]
	if !ok || e.loc.Level == lv.openLevel && (len(lv.pendXor) > 0 || len(lv.pendAnd) > 0) {
		return leveled.WireLocation{}, false
	}
	return e.loc, true
}
