package varint

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUvarintBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		size  int
	}{
		{0, 1},
		{1, 1},
		{63, 1},
		{64, 2},
		{16383, 2},
		{16384, 4},
		{1073741823, 4},
		{1073741824, 8},
		{MaxValue, 8},
	}
	for _, c := range cases {
		o := OutputBuf{}
		require.NoError(t, o.AppendUvarint(c.value))
		assert.Equal(t, c.size, o.Len(), "value %d", c.value)
		assert.Equal(t, c.size, Size(c.value))

		in := NewInputBuf(o.Bytes())
		v, err := in.ReadUvarint()
		require.NoError(t, err)
		assert.Equal(t, c.value, v)
		assert.Equal(t, 0, in.Remaining())
	}
}

func TestFlaggedBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		size  int
	}{
		{0, 1},
		{31, 1},
		{32, 2},
		{8191, 2},
		{8192, 4},
		{536870911, 4},
		{536870912, 8},
		{MaxFlaggedValue, 8},
	}
	for _, c := range cases {
		for _, flag := range []bool{false, true} {
			o := OutputBuf{}
			require.NoError(t, o.AppendFlagged(c.value, flag))
			assert.Equal(t, c.size, o.Len(), "value %d flag %v", c.value, flag)
			assert.Equal(t, c.size, FlaggedSize(c.value))

			in := NewInputBuf(o.Bytes())
			v, f, err := in.ReadFlagged()
			require.NoError(t, err)
			assert.Equal(t, c.value, v)
			assert.Equal(t, flag, f)
		}
	}
}

func TestValueTooLarge(t *testing.T) {
	o := OutputBuf{}
	err := o.AppendUvarint(MaxValue + 1)
	assert.ErrorIs(t, err, ErrValueTooLarge)
	err = o.AppendFlagged(MaxFlaggedValue+1, true)
	assert.ErrorIs(t, err, ErrValueTooLarge)
	assert.Equal(t, 0, o.Len())
}

func TestTruncated(t *testing.T) {
	o := OutputBuf{}
	require.NoError(t, o.AppendUvarint(1 << 20))
	for n := 0; n < o.Len(); n++ {
		in := NewInputBuf(o.Bytes()[:n])
		_, err := in.ReadUvarint()
		assert.ErrorIs(t, err, ErrTruncated, "prefix of %d bytes", n)
	}

	in := NewInputBuf(nil)
	_, _, err := in.ReadFlagged()
	assert.True(t, errors.Is(err, ErrTruncated))
	_, err = in.ReadUint64()
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestRoundTripProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 1000
	properties := gopter.NewProperties(params)

	properties.Property("plain varint round trips", prop.ForAll(
		func(v uint64) bool {
			o := OutputBuf{}
			if err := o.AppendUvarint(v); err != nil {
				return false
			}
			got, err := NewInputBuf(o.Bytes()).ReadUvarint()
			return err == nil && got == v && o.Len() == Size(v)
		},
		gen.UInt64Range(0, MaxValue),
	))

	properties.Property("flagged varint round trips with flag intact", prop.ForAll(
		func(v uint64, flag bool) bool {
			o := OutputBuf{}
			if err := o.AppendFlagged(v, flag); err != nil {
				return false
			}
			got, f, err := NewInputBuf(o.Bytes()).ReadFlagged()
			return err == nil && got == v && f == flag
		},
		gen.UInt64Range(0, MaxFlaggedValue),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
