package vint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnsignedRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 127, 128, 255, 256, 1 << 13, 1 << 20, 1 << 34, 1 << 48, 1 << 56, math.MaxUint64}
	for _, v := range cases {
		enc := EncodeU(v)
		require.Equal(t, LengthU(v), len(enc))
		got, n, err := DecodeU(enc)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(enc), n)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 1000, -1000, math.MaxInt64, math.MinInt64}
	for _, v := range cases {
		enc := EncodeI(v)
		got, n, err := DecodeI(enc)
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(enc), n)
	}
}

func TestTruncatedInput(t *testing.T) {
	enc := EncodeU(1 << 40) // needs several extra bytes
	_, _, err := DecodeU(enc[:1])
	require.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	_, _, err := DecodeU(nil)
	require.Error(t, err)
}

func TestReaderSequence(t *testing.T) {
	var buf []byte
	buf = AppendU(buf, 42)
	buf = AppendI(buf, -7)
	buf = append(buf, []byte("hi")...)

	r := NewReader(buf)
	u, err := r.ReadU()
	require.NoError(t, err)
	require.Equal(t, uint64(42), u)

	i, err := r.ReadI()
	require.NoError(t, err)
	require.Equal(t, int64(-7), i)

	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, "hi", string(b))
	require.Equal(t, 0, r.Remaining())
}

func TestPrefixCountsLeadingOnes(t *testing.T) {
	// A single-byte vint with no continuation (leading bit clear).
	enc := EncodeU(100)
	require.Len(t, enc, 1)
	require.Equal(t, 0, leadingOnes(enc[0]))
}
