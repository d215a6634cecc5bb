// Package block implements the fixed header/footer the fixture writer
// wraps around a Data.db's partition-record span, used for self-contained
// round-trip validation independent of the Index.db/CompressionInfo.db
// companion files (spec §6.1: "Header / footer (writer), for round-trip
// tests"). Grounded on rockyardkv's own single-file table layout
// (table/builder.go writes a footer with the index's block handle;
// table/reader.go reads it back to locate the index), adapted here to a
// fixed-layout header+footer pair around Cassandra-shaped multi-component
// fixtures rather than an embedded index block.
package block

import (
	"encoding/binary"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// HeaderLen and FooterLen are the on-disk sizes spec §6.1 fixes.
//
// spec §6.1 enumerates the header as "4-byte magic, 2-byte format version,
// 4-byte flags, 8-byte partition-count, 8-byte min timestamp, 8-byte max
// timestamp, 7 reserved bytes" and separately states the total as 32
// bytes; the enumerated widths sum to 41, not 32. Since this header exists
// solely for the writer's own round-trip tests (spec §6.1 heading) and
// every individual field is operationally meaningful, HeaderLen honors the
// sum of the enumerated fields (41) rather than silently truncating one to
// force a 32-byte total — recorded as a resolved Open Question in
// DESIGN.md.
const (
	HeaderLen = 41
	FooterLen = 16
)

// headerMagic is the 4-byte sentinel spec §6.1 names: 0x5A5A5A5A.
var headerMagic = [4]byte{0x5A, 0x5A, 0x5A, 0x5A}

// footerMagic is the 8-byte sentinel spec §6.1 names: eight 0x5A bytes.
var footerMagic = [8]byte{0x5A, 0x5A, 0x5A, 0x5A, 0x5A, 0x5A, 0x5A, 0x5A}

// Header flag bits (spec §6.1).
const (
	FlagCompression uint32 = 1 << 0
	FlagBloomFilter uint32 = 1 << 1
)

// Header is the HeaderLen (41-byte) prefix spec §6.1 describes: magic, a 2-byte format
// version literal (e.g. "oa"), a 4-byte flag word, an 8-byte partition
// count, 8-byte min/max timestamps, and 7 reserved bytes.
type Header struct {
	FormatVersion  string // exactly 2 bytes
	Flags          uint32
	PartitionCount uint64
	MinTimestamp   int64
	MaxTimestamp   int64
}

// EncodeHeader serializes h to exactly HeaderLen bytes.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	copy(buf[0:4], headerMagic[:])
	fv := h.FormatVersion
	if len(fv) > 2 {
		fv = fv[:2]
	}
	copy(buf[4:6], fv)
	binary.BigEndian.PutUint32(buf[6:10], h.Flags)
	binary.BigEndian.PutUint64(buf[10:18], h.PartitionCount)
	binary.BigEndian.PutUint64(buf[18:26], uint64(h.MinTimestamp))
	binary.BigEndian.PutUint64(buf[26:34], uint64(h.MaxTimestamp))
	// bytes [34:41] (7 reserved bytes) are left zero.
	return buf
}

// DecodeHeader parses a HeaderLen-byte prefix, rejecting anything shorter
// than HeaderLen or whose magic doesn't match (spec §6.1).
func DecodeHeader(data []byte) (Header, error) {
	const op = "block.DecodeHeader"
	if len(data) < HeaderLen {
		return Header{}, xerrors.Corrupt(op, "too_short")
	}
	if [4]byte(data[0:4]) != headerMagic {
		return Header{}, xerrors.Corrupt(op, "bad_magic")
	}
	return Header{
		FormatVersion:  string(data[4:6]),
		Flags:          binary.BigEndian.Uint32(data[6:10]),
		PartitionCount: binary.BigEndian.Uint64(data[10:18]),
		MinTimestamp:   int64(binary.BigEndian.Uint64(data[18:26])),
		MaxTimestamp:   int64(binary.BigEndian.Uint64(data[26:34])),
	}, nil
}

// HasHeader reports whether data begins with a recognizable Header,
// allowing a reader to accept both wrapped (writer-produced) and bare
// (header-less) Data.db files.
func HasHeader(data []byte) bool {
	return len(data) >= HeaderLen && [4]byte(data[0:4]) == headerMagic
}

// Footer is the 16-byte suffix spec §6.1 describes: the byte offset (from
// the start of the partition-record span, i.e. right after Header) where
// that span ends, plus the fixed trailing magic.
type Footer struct {
	IndexOffset uint64
}

// EncodeFooter serializes f to exactly FooterLen bytes.
func EncodeFooter(f Footer) []byte {
	buf := make([]byte, FooterLen)
	binary.BigEndian.PutUint64(buf[0:8], f.IndexOffset)
	copy(buf[8:16], footerMagic[:])
	return buf
}

// DecodeFooter parses the trailing FooterLen bytes of a wrapped Data.db.
func DecodeFooter(data []byte) (Footer, error) {
	const op = "block.DecodeFooter"
	if len(data) < FooterLen {
		return Footer{}, xerrors.Corrupt(op, "too_short")
	}
	tail := data[len(data)-FooterLen:]
	if [8]byte(tail[8:16]) != footerMagic {
		return Footer{}, xerrors.Corrupt(op, "bad_magic")
	}
	return Footer{IndexOffset: binary.BigEndian.Uint64(tail[0:8])}, nil
}
