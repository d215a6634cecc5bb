package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FormatVersion:  "oa",
		Flags:          FlagCompression | FlagBloomFilter,
		PartitionCount: 7,
		MinTimestamp:   -5,
		MaxTimestamp:   1000,
	}
	enc := EncodeHeader(h)
	require.Len(t, enc, HeaderLen)
	require.True(t, HasHeader(enc))

	got, err := DecodeHeader(enc)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	buf := make([]byte, HeaderLen)
	_, err := DecodeHeader(buf)
	require.Error(t, err)
}

func TestHasHeaderFalseOnBareData(t *testing.T) {
	require.False(t, HasHeader([]byte{0, 0, 0, 3, 'k', 'e', 'y'}))
}

func TestFooterRoundTrip(t *testing.T) {
	f := Footer{IndexOffset: 12345}
	enc := EncodeFooter(f)
	require.Len(t, enc, FooterLen)

	got, err := DecodeFooter(enc)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestDecodeFooterBadMagic(t *testing.T) {
	buf := make([]byte, FooterLen)
	_, err := DecodeFooter(buf)
	require.Error(t, err)
}
