// Package compression parses a CompressionInfo.db component and provides
// random-access, chunk-cached reads over the paired Data.db (spec §3.5,
// §4.4).
//
// Reference: Cassandra org.apache.cassandra.io.compress.CompressionMetadata.
// Algorithm dispatch follows the teacher's own compression package
// (rockyardkv internal/compression), generalized from RocksDB's per-block
// compression type byte to Cassandra's per-file CompressionInfo.db.
package compression

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/cqlsst/cqlsst/internal/xerrors"

	"github.com/golang/snappy"
)

// Algorithm identifies the compressor used for a file's chunks (spec §3.5).
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmLZ4
	AlgorithmSnappy
	AlgorithmDeflate
	AlgorithmZstd
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "None"
	case AlgorithmLZ4:
		return "LZ4"
	case AlgorithmSnappy:
		return "Snappy"
	case AlgorithmDeflate:
		return "Deflate"
	case AlgorithmZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}

// Info is the parsed contents of CompressionInfo.db (spec §3.5).
type Info struct {
	Algorithm    Algorithm
	ChunkLength  uint32
	DataLength   uint64
	ChunkOffsets []uint64
}

// chunkCount returns the number of chunks DataLength implies.
func (ci Info) chunkCount() int {
	if ci.ChunkLength == 0 {
		return 0
	}
	n := ci.DataLength / uint64(ci.ChunkLength)
	if ci.DataLength%uint64(ci.ChunkLength) != 0 {
		n++
	}
	return int(n)
}

// uncompressedSizeOf returns the expected uncompressed size of chunk i,
// which is ChunkLength for every chunk except possibly a shorter final one
// (spec §4.4).
func (ci Info) uncompressedSizeOf(i int) int {
	if i < ci.chunkCount()-1 {
		return int(ci.ChunkLength)
	}
	rem := ci.DataLength % uint64(ci.ChunkLength)
	if rem == 0 {
		return int(ci.ChunkLength)
	}
	return int(rem)
}

// compressedSizeOf returns the number of on-disk bytes for chunk i, derived
// from consecutive chunk offsets (or DataLength's backing file size for the
// last chunk, tracked separately by the reader since CompressionInfo.db
// alone doesn't carry the trailing checksum-exclusive length).
func (ci Info) compressedSizeOf(i int, dataFileLen int64) int64 {
	start := int64(ci.ChunkOffsets[i])
	if i+1 < len(ci.ChunkOffsets) {
		return int64(ci.ChunkOffsets[i+1]) - start
	}
	return dataFileLen - start
}

// ChunkDecompressor serves random-access reads over a compressed Data.db,
// caching decompressed chunks by index (spec §4.4). The zero value is not
// usable; construct with NewChunkDecompressor.
type ChunkDecompressor struct {
	info   Info
	source ChunkSource
	cache  *lru.Cache[int, []byte]
}

// ChunkSource supplies the raw compressed bytes of one chunk; the reader
// package implements this over an mmap'd Data.db.
type ChunkSource interface {
	ReadChunk(offset, length int64) ([]byte, error)
	Size() int64
}

// NewChunkDecompressor builds a decompressor with an LRU cache holding up to
// cacheEntries decompressed chunks (spec §4.4: "capacity is configurable,
// entries not bytes").
func NewChunkDecompressor(info Info, source ChunkSource, cacheEntries int) (*ChunkDecompressor, error) {
	if cacheEntries <= 0 {
		cacheEntries = 1
	}
	c, err := lru.New[int, []byte](cacheEntries)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindInvalidState, "compression.NewChunkDecompressor", err)
	}
	return &ChunkDecompressor{info: info, source: source, cache: c}, nil
}

// ReadAll decompresses every chunk and concatenates them (spec §4.4).
func (d *ChunkDecompressor) ReadAll() ([]byte, error) {
	return d.Read(0, int64(d.info.DataLength))
}

// Read returns the `len` logical (uncompressed) bytes starting at the
// logical `offset`, spanning as many compressed chunks as needed (spec
// §4.4). Safe for concurrent use; the underlying cache is internally
// synchronized.
func (d *ChunkDecompressor) Read(offset, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset < 0 || length < 0 || uint64(offset+length) > d.info.DataLength {
		return nil, xerrors.New(xerrors.KindInvalidState, "compression.Read").WithWhere("range out of bounds")
	}

	chunkLen := int64(d.info.ChunkLength)
	firstChunk := int(offset / chunkLen)
	lastChunk := int((offset + length - 1) / chunkLen)

	out := make([]byte, 0, length)
	for i := firstChunk; i <= lastChunk; i++ {
		chunk, err := d.chunk(i)
		if err != nil {
			return nil, err
		}
		chunkStart := int64(i) * chunkLen
		lo := int64(0)
		if offset > chunkStart {
			lo = offset - chunkStart
		}
		hi := int64(len(chunk))
		if end := offset + length; end < chunkStart+int64(len(chunk)) {
			hi = end - chunkStart
		}
		if lo > hi || lo > int64(len(chunk)) {
			return nil, xerrors.Corrupt("compression.Read", "chunk shorter than expected")
		}
		out = append(out, chunk[lo:hi]...)
	}
	return out, nil
}

// chunk returns the decompressed bytes of chunk i, populating the cache on
// miss.
func (d *ChunkDecompressor) chunk(i int) ([]byte, error) {
	if v, ok := d.cache.Get(i); ok {
		return v, nil
	}
	if i < 0 || i >= len(d.info.ChunkOffsets) {
		return nil, xerrors.New(xerrors.KindInvalidState, "compression.chunk").WithWhere("chunk index out of range")
	}
	compressedLen := d.info.compressedSizeOf(i, d.source.Size())
	raw, err := d.source.ReadChunk(int64(d.info.ChunkOffsets[i]), compressedLen)
	if err != nil {
		return nil, err
	}
	decompressed, err := decompress(d.info.Algorithm, raw, d.info.uncompressedSizeOf(i))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindCorrupt, "compression.chunk", err)
	}
	d.cache.Add(i, decompressed)
	return decompressed, nil
}

// Compress dispatches to the algorithm-specific compressor, mirroring the
// teacher's own Type-keyed Compress (rockyardkv internal/compression.Compress).
// Used only by the fixture writer; the reader never compresses.
func Compress(a Algorithm, data []byte) ([]byte, error) {
	switch a {
	case AlgorithmNone:
		return data, nil
	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil
	case AlgorithmDeflate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case AlgorithmZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

// decompress dispatches to the algorithm-specific decompressor, mirroring
// the teacher's own Type-keyed switch (rockyardkv internal/compression.Decompress).
func decompress(a Algorithm, data []byte, expectedSize int) ([]byte, error) {
	switch a {
	case AlgorithmNone:
		return data, nil
	case AlgorithmSnappy:
		return snappy.Decode(nil, data)
	case AlgorithmDeflate:
		r := flate.NewReader(bytes.NewReader(data))
		defer func() { _ = r.Close() }()
		return io.ReadAll(r)
	case AlgorithmLZ4:
		return decompressLZ4(data)
	case AlgorithmZstd:
		return decompressZstd(data)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
}

func decompressLZ4(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("lz4 frame decode: %w", err)
	}
	return out, nil
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
