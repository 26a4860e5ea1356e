package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halfAdder builds the 2-bit half adder used throughout the format docs:
// inputs on wires 2 and 3, XOR(2,3)->4, AND(2,3)->5, XOR(4,5)->6 (output).
func halfAdder() *Circuit {
	return &Circuit{
		PrimaryInputs: 2,
		Gates: []Gate{
			{In1: 2, In2: 3},
			{In1: 2, In2: 3},
			{In1: 4, In2: 5},
		},
		Types:   []GateType{XOR, AND, XOR},
		Outputs: []WireID{6},
	}
}

func TestDeriveCredits(t *testing.T) {
	c := halfAdder()
	credits, err := DeriveCredits(c)
	require.NoError(t, err)
	require.Len(t, credits, 7)

	assert.Equal(t, Permanent, credits[0])
	assert.Equal(t, Permanent, credits[1])
	assert.Equal(t, Permanent, credits[2])
	assert.Equal(t, Permanent, credits[3])
	assert.Equal(t, Credits(1), credits[4])
	assert.Equal(t, Credits(1), credits[5])
	assert.Equal(t, Credits(0), credits[6], "declared output is pinned")
}

func TestDeriveCreditsOutputWithConsumers(t *testing.T) {
	// wire 4 is both a declared output and an input of gate 1; it must still
	// end up pinned.
	c := &Circuit{
		PrimaryInputs: 2,
		Gates: []Gate{
			{In1: 2, In2: 3},
			{In1: 4, In2: 2},
		},
		Types:   []GateType{XOR, AND},
		Outputs: []WireID{4, 5},
	}
	credits, err := DeriveCredits(c)
	require.NoError(t, err)
	assert.Equal(t, Credits(0), credits[4])
	assert.Equal(t, Credits(0), credits[5])
}

func TestValidateForwardReference(t *testing.T) {
	c := &Circuit{
		PrimaryInputs: 2,
		Gates:         []Gate{{In1: 2, In2: 4}}, // wire 4 is this gate's own output
		Types:         []GateType{XOR},
	}
	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalidCircuit)

	c.Gates[0].In2 = 9 // produced even later
	assert.ErrorIs(t, c.Validate(), ErrInvalidCircuit)
}

func TestValidateUnproducedOutput(t *testing.T) {
	c := halfAdder()
	c.Outputs = []WireID{42}
	assert.ErrorIs(t, c.Validate(), ErrInvalidCircuit)
}

func TestValidateCredits(t *testing.T) {
	c := halfAdder()
	credits, err := DeriveCredits(c)
	require.NoError(t, err)
	require.NoError(t, ValidateCredits(c, credits))

	credits[4] = 7
	assert.ErrorIs(t, ValidateCredits(c, credits), ErrInvalidCircuit)

	assert.ErrorIs(t, ValidateCredits(c, credits[:3]), ErrInvalidCircuit)
}
