// Package reader implements the read-only SSTable reader (spec §4.8):
// mmaps an SSTable's Data.db and Index.db, builds an in-memory partition index,
// and serves point lookups and partition/range/table iterators over
// schema-decoded rows.
//
// Self-referential mmap + parsed index (spec §9 DESIGN NOTES): the Reader
// owns the mmaps and an index that points into them; parsed keys are
// copied out of the mmap during index build so the index outlives any
// re-mapping, mirroring rockyardkv's own internal-key ownership discipline
// in its table cache.
package reader

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/cqlsst/cqlsst/internal/logging"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/block"
	"github.com/cqlsst/cqlsst/sstable/compression"
	"github.com/cqlsst/cqlsst/sstable/format"
)

// Reader is an opened, read-only view of one SSTable's components. Its
// mmaps live for the Reader's lifetime; Close unmaps them. A Reader must
// not be used after Close.
type Reader struct {
	info   format.SSTableInfo
	schema *schema.TableSchema
	log    logging.Logger

	dataMmap  mmap.MMap
	indexMmap mmap.MMap

	dataFile  *os.File
	indexFile *os.File

	decompressor *compression.ChunkDecompressor // nil if Data.db is uncompressed
	dataLen      int64                          // logical (uncompressed) length of the partition-record span
	dataStart    int64                          // physical offset of the first partition record (0, or block.HeaderLen if wrapped)
	dataSpanLen  int64                          // physical length of the partition-record span, excluding any header/footer
	header       *block.Header                  // non-nil if Data.db carries a writer-produced header/footer

	index      []indexEntry // sorted by PartitionKeyBytes, built at Open
	statistics Statistics   // best-effort; zero value if Statistics.db missing/unparseable

	bloom *bloomFilter // nil if Filter.db missing
}

// indexEntry is one parsed Index.db record, copied out of the mmap (spec
// §4.8 step 4, §9 DESIGN NOTES).
type indexEntry struct {
	PartitionKeyBytes []byte
	DataOffset        int64
}

// Open identifies path's format family, mmaps Data.db and Index.db (the
// other companions are read with os.ReadFile), builds the compressed-read
// path if CompressionInfo.db is present, parses
// Index.db into memory, and best-effort-parses Statistics.db and Filter.db
// (spec §4.8 steps 1–5).
func Open(path string, s *schema.TableSchema, log logging.Logger) (*Reader, error) {
	const op = "reader.Open"
	log = logging.OrDefault(log)

	info, err := format.Parse(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{info: info, schema: s, log: log}

	dataPath := info.DataPath()
	dataFile, dataMmap, err := openMmap(dataPath)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	r.dataFile, r.dataMmap = dataFile, dataMmap

	r.dataStart = 0
	r.dataSpanLen = int64(len(r.dataMmap))
	if block.HasHeader(r.dataMmap) {
		hdr, err := block.DecodeHeader(r.dataMmap)
		if err != nil {
			r.Close()
			return nil, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		r.header = &hdr
		r.dataStart = block.HeaderLen
		r.dataSpanLen = int64(len(r.dataMmap)) - block.HeaderLen - block.FooterLen
		if r.dataSpanLen < 0 {
			r.Close()
			return nil, xerrors.Corrupt(op, "truncated header/footer wrapper")
		}
		ftr, err := block.DecodeFooter(r.dataMmap)
		if err != nil {
			log.Warnf(logging.NSReader+"best-effort Data.db footer parse failed: %v", err)
		} else if int64(ftr.IndexOffset) != r.dataSpanLen {
			log.Warnf(logging.NSReader+"Data.db footer index offset %d does not match partition span length %d", ftr.IndexOffset, r.dataSpanLen)
		}
	}

	if info.Family.SupportsCompression() {
		ciPath := info.CompanionPath(format.ComponentCompressionInfo)
		if raw, err := os.ReadFile(ciPath); err == nil {
			ci, err := compression.ParseInfo(raw)
			if err != nil {
				r.Close()
				return nil, xerrors.Wrap(xerrors.KindCorrupt, op, err)
			}
			dec, err := compression.NewChunkDecompressor(ci, (*dataMmapSource)(r), 256)
			if err != nil {
				r.Close()
				return nil, err
			}
			r.decompressor = dec
			r.dataLen = int64(ci.DataLength)
		}
	}
	if r.decompressor == nil {
		r.dataLen = r.dataSpanLen
	}

	indexPath := info.CompanionPath(format.ComponentIndex)
	indexFile, indexMmap, err := openMmap(indexPath)
	if err != nil {
		r.Close()
		return nil, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	r.indexFile, r.indexMmap = indexFile, indexMmap

	idx, err := parseIndex(r.indexMmap)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.index = idx

	if raw, err := os.ReadFile(info.CompanionPath(format.ComponentStatistics)); err == nil {
		if st, err := parseStatistics(raw); err == nil {
			r.statistics = st
		} else {
			log.Warnf(logging.NSReader+"best-effort Statistics.db parse failed: %v", err)
		}
	}

	if raw, err := os.ReadFile(info.CompanionPath(format.ComponentFilter)); err == nil {
		if bf, err := parseBloomFilter(raw); err == nil {
			r.bloom = bf
		} else {
			log.Warnf(logging.NSReader+"best-effort Filter.db parse failed: %v", err)
		}
	}

	return r, nil
}

func openMmap(path string) (*os.File, mmap.MMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, m, nil
}

// Close unmaps every mmap this Reader holds and closes the underlying
// files. Any write to the underlying files after Open invalidates these
// mmaps regardless of Close (spec §4.8: "Any write to an opened file
// invalidates that reader's mmaps").
func (r *Reader) Close() error {
	var firstErr error
	if r.dataMmap != nil {
		if err := r.dataMmap.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.indexMmap != nil {
		if err := r.indexMmap.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.dataFile != nil {
		r.dataFile.Close()
	}
	if r.indexFile != nil {
		r.indexFile.Close()
	}
	return firstErr
}

// Statistics returns the best-effort-parsed Statistics.db contents (the
// zero value if that component was missing or unparseable).
func (r *Reader) Statistics() Statistics { return r.statistics }

// Info returns this reader's parsed SSTableInfo.
func (r *Reader) Info() format.SSTableInfo { return r.info }

// HasBloomFilter reports whether Filter.db was present and parsed, for the
// planner's index-scan-vs-table-scan heuristic (spec §4.10: "Index scan:
// WHERE is compatible with an index (bloom filter present); otherwise fall
// back to table scan").
func (r *Reader) HasBloomFilter() bool { return r.bloom != nil }

// Schema returns the TableSchema this Reader was opened against.
func (r *Reader) Schema() *schema.TableSchema { return r.schema }

// dataMmapSource adapts a Reader's data mmap (and, transparently, its
// length) to compression.ChunkSource for the ChunkDecompressor.
type dataMmapSource Reader

// ReadChunk and Size operate on physical offsets/lengths within the
// partition-record span only — callers never see the header/footer wrapper
// (spec §6.1), which dataStart/dataSpanLen account for.
func (s *dataMmapSource) ReadChunk(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > s.dataSpanLen {
		return nil, xerrors.New(xerrors.KindCorrupt, "reader.dataMmapSource.ReadChunk").WithWhere("range out of bounds")
	}
	base := s.dataStart
	return s.dataMmap[base+offset : base+offset+length], nil
}

func (s *dataMmapSource) Size() int64 { return s.dataSpanLen }

// readLogical returns `length` logical (uncompressed) bytes at logical
// offset `offset` from the partition-record span, going through the chunk
// decompressor if one exists, or reading the mmap directly otherwise.
func (r *Reader) readLogical(offset, length int64) ([]byte, error) {
	if r.decompressor != nil {
		return r.decompressor.Read(offset, length)
	}
	if offset < 0 || length < 0 || offset+length > r.dataSpanLen {
		return nil, xerrors.New(xerrors.KindCorrupt, "reader.readLogical").WithWhere("range out of bounds")
	}
	base := r.dataStart
	return r.dataMmap[base+offset : base+offset+length], nil
}
