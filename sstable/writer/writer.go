// Package writer produces SSTable component files for tests and golden
// fixtures (spec.md treats writing as fixture-only: "writers exist only to
// generate fixtures for the reader/query layers", §9). It is the inverse of
// sstable/reader: the same Data.db/Index.db/CompressionInfo.db/
// Statistics.db/Filter.db layouts reader.Open expects.
//
// Grounded on rockyardkv's table/builder.go (sequential Add, footer/index
// written at Close) for the overall "accumulate then flush" shape.
package writer

import (
	"encoding/binary"
	"os"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/sstable/block"
	"github.com/cqlsst/cqlsst/sstable/compression"
	"github.com/cqlsst/cqlsst/sstable/format"
	"github.com/cqlsst/cqlsst/sstable/reader"
)

// Partition is one partition's worth of pre-encoded row bytes, keyed by its
// raw (length-prefix-free) partition-key bytes.
type Partition struct {
	KeyBytes     []byte
	MinTimestamp int64
	Body         []byte // concatenated row.Encoder output for this partition
}

// Options controls which optional companion files Write produces.
type Options struct {
	// Compression, if not AlgorithmNone, chunk-compresses Data.db and emits
	// CompressionInfo.db. ChunkLength must be set (>0) in that case.
	Compression compression.Algorithm
	ChunkLength uint32

	// BloomBitsPerKey, if >0, emits Filter.db over every partition's
	// KeyBytes.
	BloomBitsPerKey int

	// Statistics, if non-nil, is encoded verbatim into Statistics.db.
	Statistics *reader.Statistics
}

// Write emits Data.db, Index.db, and (per Options) CompressionInfo.db,
// Filter.db, and Statistics.db into dir, named by the
// "<baseName>-<generation>-<formatTag>-<Component>.db" grammar
// sstable/format parses (spec §4.3). It returns the parsed SSTableInfo of
// the Data.db component, ready to hand to reader.Open.
func Write(dir, baseName string, generation int64, formatTag string, partitions []Partition, opts Options) (format.SSTableInfo, error) {
	const op = "writer.Write"

	info := format.SSTableInfo{
		Dir:        dir,
		BaseName:   baseName,
		Generation: generation,
		FormatTag:  formatTag,
		Component:  format.ComponentData,
	}

	logical, indexEntries := buildDataAndIndex(partitions)

	var span []byte
	if opts.Compression == compression.AlgorithmNone {
		span = logical
	} else {
		if opts.ChunkLength == 0 {
			return format.SSTableInfo{}, xerrors.New(xerrors.KindInvalidState, op).WithWhere("ChunkLength must be set when Compression is enabled")
		}
		physical, ci, err := compressChunks(logical, opts.Compression, opts.ChunkLength)
		if err != nil {
			return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
		}
		span = physical
		if err := os.WriteFile(info.CompanionPath(format.ComponentCompressionInfo), compression.EncodeInfo(ci), 0o644); err != nil {
			return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
		}
	}

	physicalData := wrapWithHeaderFooter(span, formatTag, partitions, opts)
	if err := os.WriteFile(info.DataPath(), physicalData, 0o644); err != nil {
		return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
	}

	if err := os.WriteFile(info.CompanionPath(format.ComponentIndex), encodeIndex(indexEntries), 0o644); err != nil {
		return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
	}

	if opts.BloomBitsPerKey > 0 {
		keys := make([][]byte, len(partitions))
		for i, p := range partitions {
			keys[i] = p.KeyBytes
		}
		payload := reader.BuildBloomFilter(keys, opts.BloomBitsPerKey)
		if err := os.WriteFile(info.CompanionPath(format.ComponentFilter), payload, 0o644); err != nil {
			return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
		}
	}

	if opts.Statistics != nil {
		payload := reader.EncodeStatistics(*opts.Statistics)
		if err := os.WriteFile(info.CompanionPath(format.ComponentStatistics), payload, 0o644); err != nil {
			return format.SSTableInfo{}, xerrors.Wrap(xerrors.KindInvalidState, op, err)
		}
	}

	return info, nil
}

// wrapWithHeaderFooter prepends the §6.1 round-trip header and appends its
// footer around span (span being either the plain or chunk-compressed
// partition-record bytes); reader.Open detects and skips this wrapper via
// block.HasHeader.
func wrapWithHeaderFooter(span []byte, formatTag string, partitions []Partition, opts Options) []byte {
	var flags uint32
	if opts.Compression != compression.AlgorithmNone {
		flags |= block.FlagCompression
	}
	if opts.BloomBitsPerKey > 0 {
		flags |= block.FlagBloomFilter
	}

	minTs, maxTs := int64(0), int64(0)
	for i, p := range partitions {
		if i == 0 || p.MinTimestamp < minTs {
			minTs = p.MinTimestamp
		}
		if i == 0 || p.MinTimestamp > maxTs {
			maxTs = p.MinTimestamp
		}
	}

	header := block.EncodeHeader(block.Header{
		FormatVersion:  formatTag,
		Flags:          flags,
		PartitionCount: uint64(len(partitions)),
		MinTimestamp:   minTs,
		MaxTimestamp:   maxTs,
	})
	footer := block.EncodeFooter(block.Footer{IndexOffset: uint64(len(span))})

	out := make([]byte, 0, len(header)+len(span)+len(footer))
	out = append(out, header...)
	out = append(out, span...)
	out = append(out, footer...)
	return out
}

// indexEntry is one Index.db record prior to serialization.
type indexEntry struct {
	keyBytes []byte
	offset   int64
}

// buildDataAndIndex concatenates each partition's header (spec §6.1:
// 4-byte BE key length + key bytes + 8-byte BE signed min timestamp) and
// body into one logical Data.db byte stream, recording each partition's
// logical start offset for Index.db.
func buildDataAndIndex(partitions []Partition) ([]byte, []indexEntry) {
	var logical []byte
	entries := make([]indexEntry, 0, len(partitions))
	for _, p := range partitions {
		offset := int64(len(logical))
		logical = appendBE32(logical, uint32(len(p.KeyBytes)))
		logical = append(logical, p.KeyBytes...)
		logical = appendBE64(logical, uint64(p.MinTimestamp))
		logical = append(logical, p.Body...)
		entries = append(entries, indexEntry{keyBytes: p.KeyBytes, offset: offset})
	}
	return logical, entries
}

// encodeIndex serializes entries in the exact layout reader.parseIndex
// expects: key_len:u32 BE, key, offset:u64 BE, repeated (spec §6.1).
func encodeIndex(entries []indexEntry) []byte {
	var buf []byte
	for _, e := range entries {
		buf = appendBE32(buf, uint32(len(e.keyBytes)))
		buf = append(buf, e.keyBytes...)
		buf = appendBE64(buf, uint64(e.offset))
	}
	return buf
}

// compressChunks splits logical into chunkLength-sized pieces, compresses
// each independently, and concatenates the compressed output, recording
// each chunk's starting physical offset (spec §4.4, §6.1).
func compressChunks(logical []byte, algo compression.Algorithm, chunkLength uint32) ([]byte, compression.Info, error) {
	var physical []byte
	var offsets []uint64
	for start := 0; start < len(logical); start += int(chunkLength) {
		end := start + int(chunkLength)
		if end > len(logical) {
			end = len(logical)
		}
		compressed, err := compression.Compress(algo, logical[start:end])
		if err != nil {
			return nil, compression.Info{}, err
		}
		offsets = append(offsets, uint64(len(physical)))
		physical = append(physical, compressed...)
	}
	if len(logical) == 0 {
		offsets = []uint64{0}
	}
	return physical, compression.Info{
		Algorithm:    algo,
		ChunkLength:  chunkLength,
		DataLength:   uint64(len(logical)),
		ChunkOffsets: offsets,
	}, nil
}

func appendBE32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendBE64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// EnsureDir creates dir (and parents) if it does not already exist, for
// test setup convenience.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
