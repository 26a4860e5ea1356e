package ckt

import (
	"context"
	"fmt"

	"github.com/cktfmt/ckt/circuit"
	"github.com/cktfmt/ckt/eval"
	"github.com/cktfmt/ckt/leveled"
)

// Plan is a compiled circuit: the location-form levels, the address-resolved
// execution stream, and where in the scratch buffer the declared outputs end
// up after evaluation.
type Plan struct {
	PrimaryInputs uint64
	Levels        []*leveled.Level
	Exec          []*leveled.AddrLevel
	Outputs       []uint64
	ScratchSize   uint64
	Stats         leveled.Stats
}

func (p *Plan) base() uint64 {
	return 2 + p.PrimaryInputs
}

// Evaluate runs the plan over the given primary input bits.
func (p *Plan) Evaluate(ctx context.Context, inputs []bool) ([]bool, error) {
	if uint64(len(inputs)) != p.PrimaryInputs {
		return nil, fmt.Errorf("%w: %d inputs, circuit declares %d",
			circuit.ErrInvalidCircuit, len(inputs), p.PrimaryInputs)
	}
	return eval.Run(ctx, p.Exec, p.ScratchSize, inputs, p.Outputs)
}

// EncodeLevels serializes the location-form levels.
func (p *Plan) EncodeLevels() ([]byte, error) {
	return leveled.EncodeLevels(p.Levels)
}

// DecodeLevels parses a level stream into the plan.
func (p *Plan) DecodeLevels(data []byte) error {
	levels, err := leveled.DecodeLevels(data, p.PrimaryInputs)
	if err != nil {
		return err
	}
	p.Levels = levels
	return nil
}

// EncodeStream serializes the address-resolved execution stream.
func (p *Plan) EncodeStream() ([]byte, error) {
	return leveled.EncodeStream(p.base(), p.Exec)
}

// DecodeStream parses an execution stream into the plan.
func (p *Plan) DecodeStream(data []byte) error {
	exec, err := leveled.DecodeStream(data, p.base())
	if err != nil {
		return err
	}
	p.Exec = exec
	return nil
}
