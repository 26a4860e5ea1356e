// Package adder generates ripple carry adder circuits, the standard workload
// for exercising the compiler end to end: the carry chain forces one level
// per bit, and every intermediate wire has a small, known consumer count.
package adder

import "github.com/cktfmt/ckt/circuit"

// Generate builds an nBits ripple carry adder. The first operand occupies
// primary inputs 0..nBits-1 (wires 2..), the second the next nBits, both
// least significant bit first. Outputs are the nBits sum bits followed by
// the carry out.
//
// Each bit costs five gates: sum = a XOR b XOR c, and the carry out is
// (a AND b) XOR ((a XOR b) AND c), which never double counts because both
// terms cannot be one at once. The carry into bit 0 is the false constant on
// wire 0.
func Generate(nBits int) *circuit.Circuit {
	c := &circuit.Circuit{
		PrimaryInputs: uint64(2 * nBits),
		Gates:         make([]circuit.Gate, 0, 5*nBits),
		Types:         make([]circuit.GateType, 0, 5*nBits),
		Outputs:       make([]circuit.WireID, 0, nBits+1),
	}
	next := c.FirstGateWire()
	gate := func(typ circuit.GateType, in1, in2 circuit.WireID) circuit.WireID {
		c.Gates = append(c.Gates, circuit.Gate{In1: in1, In2: in2})
		c.Types = append(c.Types, typ)
		out := next
		next++
		return out
	}

	carry := circuit.WireID(0)
	for i := 0; i < nBits; i++ {
		a := 2 + circuit.WireID(i)
		b := 2 + circuit.WireID(nBits+i)
		axb := gate(circuit.XOR, a, b)
		sum := gate(circuit.XOR, axb, carry)
		ab := gate(circuit.AND, a, b)
		pc := gate(circuit.AND, axb, carry)
		carry = gate(circuit.XOR, ab, pc)
		c.Outputs = append(c.Outputs, sum)
	}
	c.Outputs = append(c.Outputs, carry)
	return c
}

// Inputs packs two operands into the primary input order Generate expects.
func Inputs(nBits int, a, b uint64) []bool {
	in := make([]bool, 2*nBits)
	for i := 0; i < nBits; i++ {
		in[i] = a>>i&1 == 1
		in[nBits+i] = b>>i&1 == 1
	}
	return in
}

// Sum decodes the output bit vector back into an integer, carry included.
func Sum(out []bool) uint64 {
	var v uint64
	for i, b := range out {
		if b {
			v |= 1 << i
		}
	}
	return v
}
