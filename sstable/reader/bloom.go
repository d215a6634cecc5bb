package reader

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// bloomFilter is a minimal k-probe Bloom filter over Filter.db's bit array,
// hashed with xxh3 (spec §4.8: "Bloom filter is consulted before Index.db
// for point lookups"; Filter.db parsing is explicitly best-effort per
// §6.1). Grounded on the teacher's own bloom filter shape
// (rockyardkv internal/filter: bits-per-key-sized array, AddKey/Finish,
// xxh3-hashed probes) generalized from its RocksDB FastLocalBloom
// cache-line layout to a plain double-hashed k-probe filter, since
// Cassandra's on-disk Filter.db format is Murmur3-specific and this core
// only needs best-effort gating, not bit-exact Cassandra compatibility.
type bloomFilter struct {
	bits      []byte
	numProbes int
}

// filterHeaderLen is the fixed metadata suffix this reader expects trailing
// the bit array: a 4-byte BE probe count.
const filterHeaderLen = 4

func parseBloomFilter(data []byte) (*bloomFilter, error) {
	if len(data) < filterHeaderLen {
		return nil, xerrors.Corrupt("reader.parseBloomFilter", "too_short")
	}
	bits := data[:len(data)-filterHeaderLen]
	numProbes := int(binary.BigEndian.Uint32(data[len(data)-filterHeaderLen:]))
	if numProbes <= 0 || len(bits) == 0 {
		return nil, xerrors.Corrupt("reader.parseBloomFilter", "invalid header")
	}
	return &bloomFilter{bits: bits, numProbes: numProbes}, nil
}

// mayContain reports whether key might be present. false is a definitive
// answer (spec §4.8: "a bloom miss returns NotFound without touching the
// index"); true requires falling through to the real index lookup.
func (b *bloomFilter) mayContain(key []byte) bool {
	h1, h2 := splitHash(xxh3.Hash(key))
	nbits := uint64(len(b.bits)) * 8
	for i := 0; i < b.numProbes; i++ {
		bitIndex := (h1 + uint64(i)*h2) % nbits
		byteIdx := bitIndex / 8
		bitOff := bitIndex % 8
		if b.bits[byteIdx]&(1<<bitOff) == 0 {
			return false
		}
	}
	return true
}

func splitHash(h uint64) (uint64, uint64) {
	h1 := h
	h2 := (h >> 32) | (h << 32)
	if h2 == 0 {
		h2 = 1
	}
	return h1, h2
}

// BuildBloomFilter constructs a Filter.db payload for keys, at the given
// bits-per-key density, for use by the fixture writer.
func BuildBloomFilter(keys [][]byte, bitsPerKey int) []byte {
	if bitsPerKey < 1 {
		bitsPerKey = 10
	}
	numBits := len(keys) * bitsPerKey
	if numBits < 64 {
		numBits = 64
	}
	numProbes := 4
	bits := make([]byte, (numBits+7)/8)
	nbits := uint64(len(bits)) * 8
	for _, k := range keys {
		h1, h2 := splitHash(xxh3.Hash(k))
		for i := 0; i < numProbes; i++ {
			bitIndex := (h1 + uint64(i)*h2) % nbits
			bits[bitIndex/8] |= 1 << (bitIndex % 8)
		}
	}
	var header [filterHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(numProbes))
	return append(bits, header[:]...)
}
