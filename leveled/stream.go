package leveled

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/icza/bitio"

	"github.com/cktfmt/ckt/circuit"
	"github.com/cktfmt/ckt/varint"
)

// ErrBadWireRef reports a relative address that reaches past the decoder's
// running counter, or a field that does not fit its target type.
var ErrBadWireRef = errors.New("bad wire reference")

const batchSize = 64

// EncodeStream serializes the address-resolved gate stream. The layout is a
// plain varint level count, the per-level gate counts, then the gates in
// batches of up to 64. Each batch carries a gate count, a type bitmap (one
// bit per gate, set for AND) and the gate bodies: both inputs and the output
// as flagged varints, credits as a plain varint.
//
// Addresses are encoded against a running counter that starts at base (the
// number of permanent wires) and tracks the scratch extent: flag set means
// the value is counter minus the address, flag clear an absolute address.
// The shorter encoding wins; absolute wins ties, so a stream of small
// circuits stays byte stable.
func EncodeStream(base uint64, levels []*AddrLevel) ([]byte, error) {
	o := varint.OutputBuf{}
	if err := o.AppendUvarint(uint64(len(levels))); err != nil {
		return nil, err
	}
	var gates []AddrGate
	var isAnd []bool
	for _, l := range levels {
		if err := o.AppendUvarint(uint64(l.Size())); err != nil {
			return nil, err
		}
		gates = append(gates, l.XorGates...)
		for range l.XorGates {
			isAnd = append(isAnd, false)
		}
		gates = append(gates, l.AndGates...)
		for range l.AndGates {
			isAnd = append(isAnd, true)
		}
	}

	counter := base
	for off := 0; off < len(gates); off += batchSize {
		end := off + batchSize
		if end > len(gates) {
			end = len(gates)
		}
		n := end - off
		if err := o.AppendUvarint(uint64(n)); err != nil {
			return nil, err
		}
		var bm bytes.Buffer
		w := bitio.NewWriter(&bm)
		for _, and := range isAnd[off:end] {
			if err := w.WriteBool(and); err != nil {
				return nil, err
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		o.AppendBytes(bm.Bytes())

		for _, g := range gates[off:end] {
			if err := o.AppendWireRef(g.In1, counter); err != nil {
				return nil, err
			}
			if err := o.AppendWireRef(g.In2, counter); err != nil {
				return nil, err
			}
			if err := o.AppendWireRef(g.Out, counter); err != nil {
				return nil, err
			}
			if err := o.AppendUvarint(uint64(g.Credits)); err != nil {
				return nil, err
			}
			if g.Out+1 > counter {
				counter = g.Out + 1
			}
		}
	}
	return o.Bytes(), nil
}

// DecodeStream parses a stream produced by EncodeStream, reassembling the
// per-level XOR and AND gate lists from the type bitmaps.
func DecodeStream(data []byte, base uint64) ([]*AddrLevel, error) {
	in := varint.NewInputBuf(data)
	nLevels, err := in.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("level count: %w", err)
	}
	if nLevels > uint64(in.Remaining()) {
		return nil, fmt.Errorf("stream declares %d levels: %w", nLevels, varint.ErrTruncated)
	}
	sizes := make([]uint64, nLevels)
	var total uint64
	for i := range sizes {
		if sizes[i], err = in.ReadUvarint(); err != nil {
			return nil, fmt.Errorf("level %d size: %w", i+1, err)
		}
		total += sizes[i]
	}
	// a gate body is at least four bytes
	if total > uint64(in.Remaining())/4 {
		return nil, fmt.Errorf("stream declares %d gates: %w", total, varint.ErrTruncated)
	}

	levels := make([]*AddrLevel, nLevels)
	for i := range levels {
		levels[i] = &AddrLevel{ID: uint32(i + 1)}
	}

	counter := base
	level := 0
	var filled uint64
	for done := uint64(0); done < total; {
		n, err := in.ReadUvarint()
		if err != nil {
			return nil, fmt.Errorf("batch header: %w", err)
		}
		if n == 0 || n > batchSize || n > total-done {
			return nil, fmt.Errorf("%w: batch of %d gates, %d expected", ErrBadWireRef, n, total-done)
		}
		bm, err := in.ReadBytes(int((n + 7) / 8))
		if err != nil {
			return nil, fmt.Errorf("type bitmap: %w", err)
		}
		r := bitio.NewReader(bytes.NewReader(bm))

		for i := uint64(0); i < n; i++ {
			and, err := r.ReadBool()
			if err != nil {
				return nil, fmt.Errorf("type bitmap: %w", err)
			}
			g, err := readAddrGate(in, counter)
			if err != nil {
				return nil, fmt.Errorf("gate %d: %w", done+i, err)
			}
			for filled == sizes[level] {
				level++
				filled = 0
			}
			if and {
				levels[level].AndGates = append(levels[level].AndGates, g)
			} else {
				levels[level].XorGates = append(levels[level].XorGates, g)
			}
			filled++
			if g.Out+1 > counter {
				counter = g.Out + 1
			}
		}
		done += n
	}
	return levels, nil
}

func readAddrGate(in *varint.InputBuf, counter uint64) (AddrGate, error) {
	in1, err := readAddr(in, counter)
	if err != nil {
		return AddrGate{}, err
	}
	in2, err := readAddr(in, counter)
	if err != nil {
		return AddrGate{}, err
	}
	out, err := readAddr(in, counter)
	if err != nil {
		return AddrGate{}, err
	}
	cr, err := in.ReadUvarint()
	if err != nil {
		return AddrGate{}, err
	}
	if cr > math.MaxUint32 {
		return AddrGate{}, fmt.Errorf("%w: credits %d overflow", ErrBadWireRef, cr)
	}
	return AddrGate{In1: in1, In2: in2, Out: out, Credits: circuit.Credits(cr)}, nil
}

func readAddr(in *varint.InputBuf, counter uint64) (uint64, error) {
	v, relative, err := in.ReadFlagged()
	if err != nil {
		return 0, err
	}
	if !relative {
		return v, nil
	}
	if v > counter {
		return 0, fmt.Errorf("%w: offset %d behind counter %d", ErrBadWireRef, v, counter)
	}
	return counter - v, nil
}
