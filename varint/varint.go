// Package varint implements the two variable-length integer encodings used
// by the circuit formats: a plain QUIC-style varint for counts and sizes,
// and a flagged variant that steals one payload bit to carry a context
// dependent boolean.
package varint

import (
	"errors"
	"fmt"
)

const (
	// MaxValue is the largest value a plain varint can hold (62 payload bits).
	MaxValue = 1<<62 - 1
	// MaxFlaggedValue is the largest value a flagged varint can hold (61 payload bits).
	MaxFlaggedValue = 1<<61 - 1
)

var (
	ErrTruncated     = errors.New("truncated varint")
	ErrValueTooLarge = errors.New("value exceeds varint range")
)

// Size returns the encoded size in bytes of v as a plain varint.
// The first byte's top two bits select the total length: 00=1, 01=2, 10=4, 11=8.
func Size(v uint64) int {
	switch {
	case v < 1<<6:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<30:
		return 4
	default:
		return 8
	}
}

// FlaggedSize returns the encoded size in bytes of v as a flagged varint.
// The flag bit reduces the payload to 5/13/29/61 bits per size class.
func FlaggedSize(v uint64) int {
	switch {
	case v < 1<<5:
		return 1
	case v < 1<<13:
		return 2
	case v < 1<<29:
		return 4
	default:
		return 8
	}
}

func appendUvarint(buf []byte, v uint64) ([]byte, error) {
	switch {
	case v < 1<<6:
		return append(buf, byte(v)), nil
	case v < 1<<14:
		return append(buf, 0x40|byte(v>>8), byte(v)), nil
	case v < 1<<30:
		return append(buf, 0x80|byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	case v <= MaxValue:
		return append(buf, 0xC0|byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return buf, fmt.Errorf("%w: %d > %d", ErrValueTooLarge, v, uint64(MaxValue))
	}
}

func appendFlagged(buf []byte, v uint64, flag bool) ([]byte, error) {
	var f byte
	if flag {
		f = 1 << 5
	}
	switch {
	case v < 1<<5:
		return append(buf, f|byte(v)), nil
	case v < 1<<13:
		return append(buf, 0x40|f|byte(v>>8), byte(v)), nil
	case v < 1<<29:
		return append(buf, 0x80|f|byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	case v <= MaxFlaggedValue:
		return append(buf, 0xC0|f|byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
	default:
		return buf, fmt.Errorf("%w: %d > %d", ErrValueTooLarge, v, uint64(MaxFlaggedValue))
	}
}

func decodeUvarint(buf []byte) (uint64, int, error) {
	if len(buf) == 0 {
		return 0, 0, ErrTruncated
	}
	first := buf[0]
	length := 1 << (first >> 6)
	if len(buf) < length {
		return 0, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, length, len(buf))
	}
	v := uint64(first & 0x3F)
	for _, b := range buf[1:length] {
		v = v<<8 | uint64(b)
	}
	return v, length, nil
}

func decodeFlagged(buf []byte) (uint64, bool, int, error) {
	if len(buf) == 0 {
		return 0, false, 0, ErrTruncated
	}
	first := buf[0]
	length := 1 << (first >> 6)
	if len(buf) < length {
		return 0, false, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, length, len(buf))
	}
	flag := first&(1<<5) != 0
	v := uint64(first & 0x1F)
	for _, b := range buf[1:length] {
		v = v<<8 | uint64(b)
	}
	return v, flag, length, nil
}
