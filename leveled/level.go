// Package leveled holds the compiled circuit forms produced by the leveler
// and the allocator, together with their compact byte encodings.
//
// A Level is the unit of parallel evaluation: all gates inside one level are
// mutually independent. Gates are split into an XOR list and an AND list, so
// the gate type is positional and never stored per gate. A wire's
// within-level index counts XOR gates first, then AND gates.
package leveled

import "github.com/cktfmt/ckt/circuit"

// WireLocation addresses a wire by topological level and position inside
// that level. Level 0 holds the two constants and the primary inputs, whose
// index equals their wire id.
type WireLocation struct {
	Level uint32
	Index uint32
}

// Gate references its two inputs by location. Its own location is implicit
// from its position in the level.
type Gate struct {
	In1 WireLocation
	In2 WireLocation
}

// Level is an ordered batch of independent gates.
type Level struct {
	ID       uint32
	XorGates []Gate
	AndGates []Gate
}

// Size returns the number of gates in the level.
func (l *Level) Size() int {
	return len(l.XorGates) + len(l.AndGates)
}

// AddrGate is a gate with fully resolved scratch-space addresses. Credits is
// the consumer count of the output wire; zero means the output is pinned.
type AddrGate struct {
	In1     uint64
	In2     uint64
	Out     uint64
	Credits circuit.Credits
}

// AddrLevel mirrors Level after address assignment.
type AddrLevel struct {
	ID       uint32
	XorGates []AddrGate
	AndGates []AddrGate
}

func (l *AddrLevel) Size() int {
	return len(l.XorGates) + len(l.AndGates)
}
