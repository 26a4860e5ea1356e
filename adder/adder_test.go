package adder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cktfmt/ckt/circuit"
)

// evalWires runs the gate stream directly over a wire value table.
func evalWires(c *circuit.Circuit, inputs []bool) []bool {
	wires := make([]bool, c.NumWires())
	wires[1] = true
	copy(wires[2:], inputs)
	first := c.FirstGateWire()
	for i, g := range c.Gates {
		a, b := wires[g.In1], wires[g.In2]
		if c.Types[i] == circuit.AND {
			wires[first+uint64(i)] = a && b
		} else {
			wires[first+uint64(i)] = a != b
		}
	}
	out := make([]bool, len(c.Outputs))
	for i, o := range c.Outputs {
		out[i] = wires[o]
	}
	return out
}

func TestGenerateShape(t *testing.T) {
	c := Generate(32)
	require.NoError(t, c.Validate())
	assert.Equal(t, uint64(64), c.PrimaryInputs)
	assert.Len(t, c.Gates, 5*32)
	assert.Len(t, c.Outputs, 33)

	var xor, and int
	for _, typ := range c.Types {
		if typ == circuit.AND {
			and++
		} else {
			xor++
		}
	}
	assert.Equal(t, 3*32, xor)
	assert.Equal(t, 2*32, and)
}

func TestAdderMatchesNativeAddition(t *testing.T) {
	c := Generate(32)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		a := uint64(r.Uint32())
		b := uint64(r.Uint32())
		out := evalWires(c, Inputs(32, a, b))
		assert.Equal(t, a+b, Sum(out), "%d + %d", a, b)
	}
}

func TestAdderCornerCases(t *testing.T) {
	c := Generate(8)
	for _, tc := range [][2]uint64{
		{0, 0},
		{255, 1}, // carry ripples through every bit
		{255, 255},
		{128, 128},
	} {
		out := evalWires(c, Inputs(8, tc[0], tc[1]))
		assert.Equal(t, tc[0]+tc[1], Sum(out), "%d + %d", tc[0], tc[1])
	}
}

func TestAdderCredits(t *testing.T) {
	c := Generate(4)
	credits, err := circuit.DeriveCredits(c)
	require.NoError(t, err)

	first := c.FirstGateWire()
	for bit := 0; bit < 4; bit++ {
		base := first + uint64(5*bit)
		assert.Equal(t, circuit.Credits(2), credits[base], "a XOR b feeds sum and carry")
		assert.Equal(t, circuit.Credits(0), credits[base+1], "sum bit is a pinned output")
		assert.Equal(t, circuit.Credits(1), credits[base+2])
		assert.Equal(t, circuit.Credits(1), credits[base+3])
	}
	assert.Equal(t, circuit.Credits(0), credits[first+19], "carry out is a pinned output")
}
