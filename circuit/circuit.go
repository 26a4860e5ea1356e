// Package circuit defines the raw boolean circuit representation consumed by
// the compiler: a gate stream in production order plus the declared primary
// inputs and outputs.
//
// Wire numbering: wire 0 is the false constant, wire 1 the true constant,
// wires 2..2+PrimaryInputs are the primary inputs, and every gate's output is
// the next unused identifier after that.
package circuit

import (
	"errors"
	"fmt"
)

// WireID identifies a wire by its position in production order.
type WireID = uint64

type GateType uint8

const (
	XOR GateType = iota
	AND
)

func (t GateType) String() string {
	if t == AND {
		return "AND"
	}
	return "XOR"
}

// Gate is a binary operation over two earlier wires. Its output wire is
// implicit: the i-th gate of a circuit produces wire FirstGateWire()+i.
type Gate struct {
	In1 WireID
	In2 WireID
}

// Credits counts the remaining consumers of a wire. Permanent marks wires
// that are never reclaimed (constants and primary inputs). A value of zero on
// a gate output marks a declared circuit output, which is pinned as well.
type Credits = uint32

const Permanent Credits = ^Credits(0)

// Circuit is a gate stream in production order. Types runs parallel to Gates.
type Circuit struct {
	PrimaryInputs uint64
	Gates         []Gate
	Types         []GateType
	Outputs       []WireID
}

// FirstGateWire returns the output wire of the first gate.
func (c *Circuit) FirstGateWire() WireID {
	return 2 + c.PrimaryInputs
}

// NumWires returns the total number of wires including the two constants.
func (c *Circuit) NumWires() uint64 {
	return 2 + c.PrimaryInputs + uint64(len(c.Gates))
}

var ErrInvalidCircuit = errors.New("invalid circuit")

// Validate checks the structural invariants of the gate stream: every input
// references a strictly earlier wire, the type slice matches the gate slice,
// and every declared output is actually produced.
func (c *Circuit) Validate() error {
	if len(c.Types) != len(c.Gates) {
		return fmt.Errorf("%w: %d gates but %d gate types", ErrInvalidCircuit, len(c.Gates), len(c.Types))
	}
	first := c.FirstGateWire()
	for i, g := range c.Gates {
		out := first + uint64(i)
		if g.In1 >= out || g.In2 >= out {
			return fmt.Errorf("%w: gate %d inputs (%d, %d) must precede output %d",
				ErrInvalidCircuit, i, g.In1, g.In2, out)
		}
	}
	n := c.NumWires()
	for _, o := range c.Outputs {
		if o >= n {
			return fmt.Errorf("%w: output wire %d never produced (circuit has %d wires)",
				ErrInvalidCircuit, o, n)
		}
	}
	return nil
}
