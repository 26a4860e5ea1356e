package leveled

import (
	"errors"
	"fmt"
	"math"

	"github.com/cktfmt/ckt/varint"
)

// ErrBadLevelRef reports a wire location that does not resolve to an earlier
// level, or whose index falls outside the referenced level.
var ErrBadLevelRef = errors.New("bad level reference")

// EncodeLevels serializes levels in order. Each level starts with a flagged
// varint holding the XOR gate count, with the flag announcing the presence of
// AND gates; the AND count follows as a plain varint only when the flag is
// set. Gate input locations come after, XOR block first.
//
// A location whose level is exactly the previous one is encoded as a single
// flagged varint: flag set, value the within-level index. Anything further
// back pays a flagged zero marker, then the level itself: flag set means a
// distance relative to the current level, flag clear an absolute level id,
// whichever is shorter (absolute wins ties). The index follows as a plain
// varint.
func EncodeLevels(levels []*Level) ([]byte, error) {
	o := varint.OutputBuf{}
	for i, l := range levels {
		cur := uint32(i + 1)
		hasAnd := len(l.AndGates) > 0
		if err := o.AppendFlagged(uint64(len(l.XorGates)), hasAnd); err != nil {
			return nil, err
		}
		if hasAnd {
			if err := o.AppendUvarint(uint64(len(l.AndGates))); err != nil {
				return nil, err
			}
		}
		for _, g := range l.XorGates {
			if err := appendLocation(&o, g.In1, cur); err != nil {
				return nil, err
			}
			if err := appendLocation(&o, g.In2, cur); err != nil {
				return nil, err
			}
		}
		for _, g := range l.AndGates {
			if err := appendLocation(&o, g.In1, cur); err != nil {
				return nil, err
			}
			if err := appendLocation(&o, g.In2, cur); err != nil {
				return nil, err
			}
		}
	}
	return o.Bytes(), nil
}

func appendLocation(o *varint.OutputBuf, loc WireLocation, cur uint32) error {
	if loc.Level >= cur {
		return fmt.Errorf("%w: location level %d inside level %d", ErrBadLevelRef, loc.Level, cur)
	}
	if loc.Level == cur-1 {
		return o.AppendFlagged(uint64(loc.Index), true)
	}
	if err := o.AppendFlagged(0, false); err != nil {
		return err
	}
	distance := uint64(cur - loc.Level)
	if distance < uint64(loc.Level) {
		if err := o.AppendFlagged(distance, true); err != nil {
			return err
		}
	} else {
		if err := o.AppendFlagged(uint64(loc.Level), false); err != nil {
			return err
		}
	}
	return o.AppendUvarint(uint64(loc.Index))
}

// DecodeLevels parses a stream produced by EncodeLevels until the buffer is
// exhausted. primaryInputs sizes level 0 (two constants plus the inputs) so
// previous-level indexes can be bounds checked with a single rolling counter.
// Indexes into levels further back are not validated here; resolving them is
// the consumer's job.
func DecodeLevels(data []byte, primaryInputs uint64) ([]*Level, error) {
	in := varint.NewInputBuf(data)
	var levels []*Level
	cur := uint32(1)
	prevSize := 2 + primaryInputs
	for in.Remaining() > 0 {
		nXor, hasAnd, err := in.ReadFlagged()
		if err != nil {
			return nil, fmt.Errorf("level %d header: %w", cur, err)
		}
		var nAnd uint64
		if hasAnd {
			if nAnd, err = in.ReadUvarint(); err != nil {
				return nil, fmt.Errorf("level %d AND count: %w", cur, err)
			}
		}
		// every gate takes at least two bytes, one per input location
		if nXor+nAnd > uint64(in.Remaining())/2 {
			return nil, fmt.Errorf("level %d declares %d gates: %w", cur, nXor+nAnd, varint.ErrTruncated)
		}
		l := &Level{ID: cur}
		if nXor > 0 {
			l.XorGates = make([]Gate, nXor)
		}
		if nAnd > 0 {
			l.AndGates = make([]Gate, nAnd)
		}
		for i := range l.XorGates {
			if l.XorGates[i], err = readGate(in, cur, prevSize); err != nil {
				return nil, fmt.Errorf("level %d XOR gate %d: %w", cur, i, err)
			}
		}
		for i := range l.AndGates {
			if l.AndGates[i], err = readGate(in, cur, prevSize); err != nil {
				return nil, fmt.Errorf("level %d AND gate %d: %w", cur, i, err)
			}
		}
		levels = append(levels, l)
		prevSize = nXor + nAnd
		cur++
	}
	return levels, nil
}

func readGate(in *varint.InputBuf, cur uint32, prevSize uint64) (Gate, error) {
	in1, err := readLocation(in, cur, prevSize)
	if err != nil {
		return Gate{}, err
	}
	in2, err := readLocation(in, cur, prevSize)
	if err != nil {
		return Gate{}, err
	}
	return Gate{In1: in1, In2: in2}, nil
}

func readLocation(in *varint.InputBuf, cur uint32, prevSize uint64) (WireLocation, error) {
	v, prev, err := in.ReadFlagged()
	if err != nil {
		return WireLocation{}, err
	}
	if prev {
		if v >= prevSize {
			return WireLocation{}, fmt.Errorf("%w: index %d in previous level of size %d",
				ErrBadLevelRef, v, prevSize)
		}
		return WireLocation{Level: cur - 1, Index: uint32(v)}, nil
	}
	if v != 0 {
		return WireLocation{}, fmt.Errorf("%w: nonzero location marker %d", ErrBadLevelRef, v)
	}
	lv, relative, err := in.ReadFlagged()
	if err != nil {
		return WireLocation{}, err
	}
	var level uint32
	if relative {
		if lv == 0 || lv > uint64(cur) {
			return WireLocation{}, fmt.Errorf("%w: distance %d from level %d", ErrBadLevelRef, lv, cur)
		}
		level = cur - uint32(lv)
	} else {
		if lv >= uint64(cur) {
			return WireLocation{}, fmt.Errorf("%w: level %d referenced from level %d", ErrBadLevelRef, lv, cur)
		}
		level = uint32(lv)
	}
	idx, err := in.ReadUvarint()
	if err != nil {
		return WireLocation{}, err
	}
	if idx > math.MaxUint32 {
		return WireLocation{}, fmt.Errorf("%w: index %d overflows", ErrBadLevelRef, idx)
	}
	return WireLocation{Level: level, Index: uint32(idx)}, nil
}
