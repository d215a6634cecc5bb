package reader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomFilterRoundTrip(t *testing.T) {
	keys := [][]byte{[]byte("alice"), []byte("bob"), []byte("carol")}
	payload := BuildBloomFilter(keys, 10)

	bf, err := parseBloomFilter(payload)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, bf.mayContain(k))
	}
}

func TestBloomFilterAbsentKeyLikelyMisses(t *testing.T) {
	keys := [][]byte{[]byte("alice")}
	payload := BuildBloomFilter(keys, 10)
	bf, err := parseBloomFilter(payload)
	require.NoError(t, err)

	// Not a guarantee (false positives are allowed by design), but a single
	// very different key at this density should almost always miss.
	require.False(t, bf.mayContain([]byte("a-completely-different-key-zzz")))
}

func TestParseBloomFilterTooShort(t *testing.T) {
	_, err := parseBloomFilter([]byte{1, 2})
	require.Error(t, err)
}

func TestParseStatisticsRoundTrip(t *testing.T) {
	st := Statistics{RowCount: 42, MinTimestamp: 100, MaxTimestamp: 900, CompressionRatio: 0.5}
	enc := EncodeStatistics(st)
	got, err := parseStatistics(enc)
	require.NoError(t, err)
	require.Equal(t, st, got)
}

func TestParseStatisticsTooShort(t *testing.T) {
	_, err := parseStatistics([]byte{1, 2, 3})
	require.Error(t, err)
}
