// Package eval runs an address-resolved level stream over a flat scratch
// buffer. One byte per slot: slot 0 holds the false constant, slot 1 true,
// the primary inputs follow, and gate outputs land wherever the allocator
// put them.
package eval

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cktfmt/ckt/leveled"
)

// ErrBadAddress reports a gate or output address outside the scratch buffer.
var ErrBadAddress = errors.New("address outside scratch space")

// parallelThreshold is the level size below which fanning out goroutines
// costs more than it saves.
const parallelThreshold = 4096

// Run evaluates the levels and returns the values at outputAddrs. The
// scratch buffer is scratchSize bytes; gates inside one level write disjoint
// addresses and never read an address recycled in the same level, so wide
// levels are sharded across the available CPUs.
func Run(ctx context.Context, levels []*leveled.AddrLevel, scratchSize uint64, inputs []bool, outputAddrs []uint64) ([]bool, error) {
	base := uint64(2 + len(inputs))
	if scratchSize < base {
		return nil, fmt.Errorf("%w: scratch of %d below %d permanent slots", ErrBadAddress, scratchSize, base)
	}
	scratch := make([]byte, scratchSize)
	scratch[1] = 1
	for i, b := range inputs {
		if b {
			scratch[2+i] = 1
		}
	}

	for _, l := range levels {
		if err := runLevel(ctx, scratch, l); err != nil {
			return nil, fmt.Errorf("level %d: %w", l.ID, err)
		}
	}

	out := make([]bool, len(outputAddrs))
	for i, addr := range outputAddrs {
		if addr >= scratchSize {
			return nil, fmt.Errorf("%w: output %d at %d", ErrBadAddress, i, addr)
		}
		out[i] = scratch[addr] != 0
	}
	return out, nil
}

func runLevel(ctx context.Context, scratch []byte, l *leveled.AddrLevel) error {
	if l.Size() < parallelThreshold {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := applyXor(scratch, l.XorGates); err != nil {
			return err
		}
		return applyAnd(scratch, l.AndGates)
	}

	g, ctx := errgroup.WithContext(ctx)
	workers := runtime.GOMAXPROCS(0)
	for _, chunk := range split(l.XorGates, workers) {
		chunk := chunk
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return applyXor(scratch, chunk)
		})
	}
	for _, chunk := range split(l.AndGates, workers) {
		chunk := chunk
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return applyAnd(scratch, chunk)
		})
	}
	return g.Wait()
}

func split(gates []leveled.AddrGate, workers int) [][]leveled.AddrGate {
	if len(gates) == 0 {
		return nil
	}
	per := (len(gates) + workers - 1) / workers
	var chunks [][]leveled.AddrGate
	for off := 0; off < len(gates); off += per {
		end := off + per
		if end > len(gates) {
			end = len(gates)
		}
		chunks = append(chunks, gates[off:end])
	}
	return chunks
}

func applyXor(scratch []byte, gates []leveled.AddrGate) error {
	n := uint64(len(scratch))
	for _, g := range gates {
		if g.In1 >= n || g.In2 >= n || g.Out >= n {
			return fmt.Errorf("%w: gate (%d, %d) -> %d in scratch of %d", ErrBadAddress, g.In1, g.In2, g.Out, n)
		}
		scratch[g.Out] = scratch[g.In1] ^ scratch[g.In2]
	}
	return nil
}

func applyAnd(scratch []byte, gates []leveled.AddrGate) error {
	n := uint64(len(scratch))
	for _, g := range gates {
		if g.In1 >= n || g.In2 >= n || g.Out >= n {
			return fmt.Errorf("%w: gate (%d, %d) -> %d in scratch of %d", ErrBadAddress, g.In1, g.In2, g.Out, n)
		}
		scratch[g.Out] = scratch[g.In1] & scratch[g.In2]
	}
	return nil
}
