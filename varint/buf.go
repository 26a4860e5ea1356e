package varint

import (
	"encoding/binary"
	"fmt"
)

// OutputBuf accumulates an encoded byte stream.
type OutputBuf struct {
	buf []byte
}

func (o *OutputBuf) AppendUint32(x uint32) {
	o.buf = binary.LittleEndian.AppendUint32(o.buf, x)
}

func (o *OutputBuf) AppendUint64(x uint64) {
	o.buf = binary.LittleEndian.AppendUint64(o.buf, x)
}

func (o *OutputBuf) AppendByte(b byte) {
	o.buf = append(o.buf, b)
}

func (o *OutputBuf) AppendBytes(b []byte) {
	o.buf = append(o.buf, b...)
}

// AppendUvarint appends x as a plain varint.
func (o *OutputBuf) AppendUvarint(x uint64) error {
	b, err := appendUvarint(o.buf, x)
	if err != nil {
		return err
	}
	o.buf = b
	return nil
}

// AppendFlagged appends x as a flagged varint carrying flag.
func (o *OutputBuf) AppendFlagged(x uint64, flag bool) error {
	b, err := appendFlagged(o.buf, x, flag)
	if err != nil {
		return err
	}
	o.buf = b
	return nil
}

// AppendWireRef encodes id against a running counter as a flagged varint:
// flag clear carries the absolute id, flag set the distance counter-id.
// The shorter form wins and absolute wins ties, so the choice is a pure
// function of the two values.
func (o *OutputBuf) AppendWireRef(id, counter uint64) error {
	if id > counter {
		return o.AppendFlagged(id, false)
	}
	rel := counter - id
	if FlaggedSize(id) <= FlaggedSize(rel) {
		return o.AppendFlagged(id, false)
	}
	return o.AppendFlagged(rel, true)
}

func (o *OutputBuf) Len() int {
	return len(o.buf)
}

func (o *OutputBuf) Bytes() []byte {
	return o.buf
}

// InputBuf consumes an encoded byte stream. All reads are bounds checked and
// fail with ErrTruncated instead of reading past the end.
type InputBuf struct {
	buf []byte
}

func NewInputBuf(buf []byte) *InputBuf {
	return &InputBuf{buf: buf}
}

func (i *InputBuf) ReadUint32() (uint32, error) {
	if len(i.buf) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrTruncated, len(i.buf))
	}
	x := binary.LittleEndian.Uint32(i.buf[:4])
	i.buf = i.buf[4:]
	return x, nil
}

func (i *InputBuf) ReadUint64() (uint64, error) {
	if len(i.buf) < 8 {
		return 0, fmt.Errorf("%w: need 8 bytes, have %d", ErrTruncated, len(i.buf))
	}
	x := binary.LittleEndian.Uint64(i.buf[:8])
	i.buf = i.buf[8:]
	return x, nil
}

// ReadUvarint consumes a plain varint.
func (i *InputBuf) ReadUvarint() (uint64, error) {
	v, n, err := decodeUvarint(i.buf)
	if err != nil {
		return 0, err
	}
	i.buf = i.buf[n:]
	return v, nil
}

// ReadFlagged consumes a flagged varint and returns the value and its flag.
func (i *InputBuf) ReadFlagged() (uint64, bool, error) {
	v, flag, n, err := decodeFlagged(i.buf)
	if err != nil {
		return 0, false, err
	}
	i.buf = i.buf[n:]
	return v, flag, nil
}

// ReadBytes consumes exactly n bytes. The returned slice aliases the input.
func (i *InputBuf) ReadBytes(n int) ([]byte, error) {
	if len(i.buf) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(i.buf))
	}
	b := i.buf[:n]
	i.buf = i.buf[n:]
	return b, nil
}

func (i *InputBuf) Remaining() int {
	return len(i.buf)
}
