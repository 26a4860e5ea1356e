// Package slab assigns scratch-space addresses to wires so that a circuit of
// millions of gates evaluates inside a buffer sized by its peak number of
// concurrently live wires.
//
// Addresses are recycled through a free list, but never inside the level
// that released them: a wire read for the last time goes to a pending list
// and its address only becomes reusable at the next EndLevel call. Gates in
// one level may run in any order, so an address must not be handed to a new
// output while a sibling gate could still read the old value.
package slab

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/cktfmt/ckt/circuit"
)

// DefaultMaxAddresses bounds the scratch space at 16 GiB of single-byte
// wire values.
const DefaultMaxAddresses = 1 << 34

var (
	// ErrUnknownWire reports a wire with no live allocation.
	ErrUnknownWire = errors.New("unknown wire")
	// ErrDoubleFree reports an address released twice.
	ErrDoubleFree = errors.New("address double free")
	// ErrAddressOverflow reports a circuit whose live set outgrows the
	// configured address space.
	ErrAddressOverflow = errors.New("address space exhausted")
)

type slot struct {
	addr    uint64
	credits circuit.Credits
	pinned  bool
}

// Allocator maps live wires to scratch addresses.
type Allocator struct {
	maxAddresses uint64
	permanents   uint64
	next         uint64
	table        map[uint64]*slot
	free         []uint64
	pendingFree  []uint64
	live         *bitset.BitSet
}

// New returns an allocator bounded to maxAddresses scratch slots; zero
// selects DefaultMaxAddresses.
func New(maxAddresses uint64) *Allocator {
	if maxAddresses == 0 {
		maxAddresses = DefaultMaxAddresses
	}
	return &Allocator{
		maxAddresses: maxAddresses,
		table:        make(map[uint64]*slot),
		live:         bitset.New(0),
	}
}

// AllocatePermanent reserves the first count addresses for the constants and
// primary inputs. These wires are identity mapped and never released. It
// must be called before any Allocate.
func (a *Allocator) AllocatePermanent(count uint64) error {
	if a.next != 0 || len(a.table) != 0 {
		return fmt.Errorf("permanent block must be allocated first")
	}
	if count > a.maxAddresses {
		return fmt.Errorf("%w: %d permanent wires, %d addresses", ErrAddressOverflow, count, a.maxAddresses)
	}
	a.permanents = count
	a.next = count
	return nil
}

// Allocate binds a fresh output wire to an address, preferring a recycled
// slot over growing the scratch space. credits is the wire's consumer count;
// zero pins the address until the end of the evaluation.
func (a *Allocator) Allocate(wire uint64, credits circuit.Credits) (uint64, error) {
	if _, ok := a.table[wire]; ok {
		return 0, fmt.Errorf("%w: wire %d allocated twice", ErrDoubleFree, wire)
	}
	var addr uint64
	if n := len(a.free); n > 0 {
		addr = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if a.next >= a.maxAddresses {
			return 0, fmt.Errorf("%w: %d addresses in use", ErrAddressOverflow, a.next)
		}
		addr = a.next
		a.next++
	}
	a.live.Set(uint(addr))
	a.table[wire] = &slot{addr: addr, credits: credits, pinned: credits == 0}
	return addr, nil
}

// Consume resolves a wire to its address and spends one credit. The address
// of a wire read for the last time is queued for recycling at the next
// EndLevel. Permanent wires resolve to themselves.
func (a *Allocator) Consume(wire uint64) (uint64, error) {
	if wire < a.permanents {
		return wire, nil
	}
	s, ok := a.table[wire]
	if !ok {
		return 0, fmt.Errorf("%w: wire %d", ErrUnknownWire, wire)
	}
	if !s.pinned {
		s.credits--
		if s.credits == 0 {
			a.pendingFree = append(a.pendingFree, s.addr)
			delete(a.table, wire)
		}
	}
	return s.addr, nil
}

// EndLevel releases every address whose last read happened inside the level
// just finished.
func (a *Allocator) EndLevel() error {
	for _, addr := range a.pendingFree {
		if !a.live.Test(uint(addr)) {
			return fmt.Errorf("%w: address %d", ErrDoubleFree, addr)
		}
		a.live.Clear(uint(addr))
		a.free = append(a.free, addr)
	}
	a.pendingFree = a.pendingFree[:0]
	return nil
}

// Lookup resolves a wire without spending a credit.
func (a *Allocator) Lookup(wire uint64) (uint64, error) {
	if wire < a.permanents {
		return wire, nil
	}
	s, ok := a.table[wire]
	if !ok {
		return 0, fmt.Errorf("%w: wire %d", ErrUnknownWire, wire)
	}
	return s.addr, nil
}

// PeakUsage returns the scratch size the evaluation needs: one past the
// highest address ever handed out, permanents included.
func (a *Allocator) PeakUsage() uint64 {
	return a.next
}

// LiveCount returns the number of wires currently holding an address,
// permanents excluded.
func (a *Allocator) LiveCount() int {
	return len(a.table)
}
