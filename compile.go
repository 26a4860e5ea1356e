// Package ckt compiles boolean gate circuits into a leveled, address
// resolved execution plan. The pipeline derives per-wire consumer credits,
// groups the gate stream into topological levels, and assigns every gate
// output a slot in a scratch buffer sized by the peak number of wires alive
// at once rather than by the circuit size.
package ckt

import (
	"fmt"

	"github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/cktfmt/ckt/circuit"
	"github.com/cktfmt/ckt/leveled"
	"github.com/cktfmt/ckt/leveling"
	"github.com/cktfmt/ckt/slab"
)

type config struct {
	maxAddresses uint64
	log          zerolog.Logger
}

type Option func(*config)

// WithAddressCap bounds the scratch address space. Zero keeps the default.
func WithAddressCap(n uint64) Option {
	return func(c *config) { c.maxAddresses = n }
}

// WithLogger replaces the default logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// Compile runs the full pipeline. The result is deterministic: the same
// circuit always yields the same plan and the same encoded bytes.
func Compile(c *circuit.Circuit, opts ...Option) (*Plan, error) {
	cfg := config{log: logger.Logger()}
	for _, o := range opts {
		o(&cfg)
	}

	credits, err := circuit.DeriveCredits(c)
	if err != nil {
		return nil, err
	}

	first := c.FirstGateWire()
	lv := leveling.New(c.PrimaryInputs)
	for i, g := range c.Gates {
		if _, err := lv.AddGate(c.Types[i], g.In1, g.In2, credits[first+uint64(i)]); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	levels := lv.Finish()

	// Flat wire ids: cumulative level bases. Level 0 spans the permanents,
	// so a level 0 id equals the original wire id.
	bases := make([]uint64, len(levels)+2)
	bases[1] = first
	for i, l := range levels {
		bases[i+2] = bases[i+1] + uint64(l.Size())
	}
	flatID := func(loc leveled.WireLocation) uint64 {
		return bases[loc.Level] + uint64(loc.Index)
	}

	flatCredits := deriveFlatCredits(c, lv, levels, bases, flatID)

	alloc := slab.New(cfg.maxAddresses)
	if err := alloc.AllocatePermanent(first); err != nil {
		return nil, err
	}
	exec := make([]*leveled.AddrLevel, 0, len(levels))
	for _, l := range levels {
		al := &leveled.AddrLevel{ID: l.ID}
		out := bases[l.ID]
		for _, g := range l.XorGates {
			ag, err := placeGate(alloc, g, out, flatCredits[out], flatID)
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", l.ID, err)
			}
			al.XorGates = append(al.XorGates, ag)
			out++
		}
		for _, g := range l.AndGates {
			ag, err := placeGate(alloc, g, out, flatCredits[out], flatID)
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", l.ID, err)
			}
			al.AndGates = append(al.AndGates, ag)
			out++
		}
		if err := alloc.EndLevel(); err != nil {
			return nil, fmt.Errorf("level %d: %w", l.ID, err)
		}
		exec = append(exec, al)
	}

	outputs := make([]uint64, len(c.Outputs))
	for i, w := range c.Outputs {
		loc, ok := lv.Locate(w)
		if !ok {
			return nil, fmt.Errorf("output wire %d: %w", w, slab.ErrUnknownWire)
		}
		if outputs[i], err = alloc.Lookup(flatID(loc)); err != nil {
			return nil, fmt.Errorf("output wire %d: %w", w, err)
		}
	}

	stats := leveled.CollectStats(c.PrimaryInputs, exec, alloc.PeakUsage())
	stats.Outputs = uint64(len(c.Outputs))

	cfg.log.Info().
		Uint64("gates", stats.TotalGates()).
		Int("levels", len(levels)).
		Uint64("wires", c.NumWires()).
		Uint64("scratch", stats.ScratchSize).
		Msg("compiled")

	return &Plan{
		PrimaryInputs: c.PrimaryInputs,
		Levels:        levels,
		Exec:          exec,
		Outputs:       outputs,
		ScratchSize:   stats.ScratchSize,
		Stats:         stats,
	}, nil
}

// deriveFlatCredits recounts consumers in flat id space. The counts match
// the per-wire credits fed to the leveler, reordered by level position.
func deriveFlatCredits(c *circuit.Circuit, lv *leveling.Leveler, levels []*leveled.Level,
	bases []uint64, flatID func(leveled.WireLocation) uint64) []circuit.Credits {
	flat := make([]circuit.Credits, bases[len(levels)+1])
	for id := uint64(0); id < c.FirstGateWire(); id++ {
		flat[id] = circuit.Permanent
	}
	count := func(g leveled.Gate) {
		for _, loc := range [2]leveled.WireLocation{g.In1, g.In2} {
			if id := flatID(loc); flat[id] != circuit.Permanent {
				flat[id]++
			}
		}
	}
	for _, l := range levels {
		for _, g := range l.XorGates {
			count(g)
		}
		for _, g := range l.AndGates {
			count(g)
		}
	}
	for _, w := range c.Outputs {
		if loc, ok := lv.Locate(w); ok {
			if id := flatID(loc); flat[id] != circuit.Permanent {
				flat[id] = 0
			}
		}
	}
	return flat
}

func placeGate(alloc *slab.Allocator, g leveled.Gate, out uint64, credits circuit.Credits,
	flatID func(leveled.WireLocation) uint64) (leveled.AddrGate, error) {
	in1, err := alloc.Consume(flatID(g.In1))
	if err != nil {
		return leveled.AddrGate{}, err
	}
	in2, err := alloc.Consume(flatID(g.In2))
	if err != nil {
		return leveled.AddrGate{}, err
	}
	addr, err := alloc.Allocate(out, credits)
	if err != nil {
		return leveled.AddrGate{}, err
	}
	return leveled.AddrGate{In1: in1, In2: in2, Out: addr, Credits: credits}, nil
}
