// Package row decodes a single partition's row stream into typed Rows (spec
// §4.7): the row header (flags, timestamp delta, optional TTL/deletion
// time, column count, presence bitmask), the clustering key, and the cell
// stream, and surfaces range tombstones as Tombstone-carrying Rows.
//
// Reference: spec §4.7; grounded on rockyardkv's `internal/rangedel`
// (tombstone Contains/Covers shape) adapted from RocksDB's
// sequence-numbered internal keys to Cassandra's clustering-range
// tombstones, and cqlite-core's `storage/reader.rs` for the flag-byte/
// VInt-delta/bitmask row layout.
package row

import (
	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
	"github.com/cqlsst/cqlsst/vint"
)

// Row header flag bits (spec §4.7).
const (
	flagHasTTL           = 0x01
	flagHasDeletionTime  = 0x02
	flagIsRangeTombstone = 0x04
)

// Row is one decoded logical row: either data cells, or — when Tombstone is
// non-nil and RangeStart/RangeEnd set — a surfaced range-tombstone marker
// (spec §4.7).
type Row struct {
	PartitionKey  value.PartitionKey
	ClusteringKey *value.ClusteringKey // nil for a partition with no clustering columns
	Cells         map[string]value.Value
	Timestamp     *int64
	TTL           *int64

	Tombstone *value.Tombstone // non-nil if this Row is a surfaced tombstone marker
}

// IsTombstone reports whether this Row is a tombstone marker rather than
// data.
func (r Row) IsTombstone() bool { return r.Tombstone != nil }

// Decoder decodes rows for one partition against a fixed TableSchema.
type Decoder struct {
	schema             *schema.TableSchema
	partitionMinTstamp int64
}

// NewDecoder builds a Decoder for schema s; partitionMinTstamp is the
// partition-level minimum timestamp each row's VInt delta is relative to
// (spec §4.7 step 1).
func NewDecoder(s *schema.TableSchema, partitionMinTstamp int64) *Decoder {
	return &Decoder{schema: s, partitionMinTstamp: partitionMinTstamp}
}

// DecodeRow decodes one row from the front of src given the already-known
// partitionKey, returning the Row and the number of bytes consumed (spec
// §4.7).
func (d *Decoder) DecodeRow(partitionKey value.PartitionKey, src []byte) (Row, int, error) {
	const op = "row.DecodeRow"
	if len(src) < 1 {
		return Row{}, 0, xerrors.Corrupt(op, "too_short")
	}
	flags := src[0]
	r := vint.NewReader(src[1:])

	tsDelta, err := r.ReadI()
	if err != nil {
		return Row{}, 0, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	timestamp := d.partitionMinTstamp + tsDelta

	var ttl *int64
	if flags&flagHasTTL != 0 {
		v, err := r.ReadI()
		if err != nil {
			return Row{}, 0, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		ttl = &v
	}

	var deletionTime *int64
	if flags&flagHasDeletionTime != 0 {
		v, err := r.ReadI()
		if err != nil {
			return Row{}, 0, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		deletionTime = &v
	}

	clusteringCols := d.schema.OrderedClusteringKeys()
	ck, n, err := parseClusteringKey(clusteringCols, src[1+r.Pos():])
	if err != nil {
		return Row{}, 0, err
	}
	r2 := vint.NewReader(src[1+r.Pos()+n:])

	if flags&flagIsRangeTombstone != 0 {
		endCk, n2, err := parseClusteringKey(clusteringCols, src[1+r.Pos()+n:])
		if err != nil {
			return Row{}, 0, err
		}
		startBytes := value.RowKey(flattenClusteringKey(ck))
		endBytes := value.RowKey(flattenClusteringKey(endCk))
		tomb := &value.Tombstone{
			DeletionTime: valueOr(deletionTime, timestamp),
			Kind:         value.TombstoneRange,
			RangeStart:   &startBytes,
			RangeEnd:     &endBytes,
		}
		total := 1 + r.Pos() + n + n2
		return Row{PartitionKey: partitionKey, Tombstone: tomb}, total, nil
	}

	colCount, err := r2.ReadU()
	if err != nil {
		return Row{}, 0, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	maskLen := int((colCount + 7) / 8)
	maskOffset := 1 + r.Pos() + n + r2.Pos()
	if len(src)-maskOffset < maskLen {
		return Row{}, 0, xerrors.Corrupt(op, "truncated presence bitmask")
	}
	mask := src[maskOffset : maskOffset+maskLen]
	pos := maskOffset + maskLen

	nonKeyCols := d.schema.NonKeyColumns()
	cells := make(map[string]value.Value, colCount)
	for i := uint64(0); i < colCount; i++ {
		if i >= uint64(len(nonKeyCols)) {
			return Row{}, 0, xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("column count exceeds schema")
		}
		present := mask[i/8]&(1<<(i%8)) != 0
		col := nonKeyCols[i]
		if !present {
			cells[col.Name] = value.Null
			continue
		}
		v, consumed, err := codec.ParseValue(col.Type, src[pos:])
		if err != nil {
			return Row{}, 0, err
		}
		cells[col.Name] = v
		pos += consumed
	}

	out := Row{
		PartitionKey: partitionKey,
		Cells:        cells,
		Timestamp:    &timestamp,
		TTL:          ttl,
	}
	if len(clusteringCols) > 0 {
		out.ClusteringKey = &ck
	}
	if deletionTime != nil {
		out.Tombstone = &value.Tombstone{DeletionTime: *deletionTime, Kind: value.TombstoneRow}
	} else if ttl != nil {
		// TTL expiry is a property checked at read time (value.IsExpired),
		// not surfaced as a tombstone row here; the cell values themselves
		// carry TTL semantics via Row.TTL.
	}

	return out, pos, nil
}

func valueOr(p *int64, def int64) int64 {
	if p != nil {
		return *p
	}
	return def
}

// parseClusteringKey reads one clustering key: for each declared clustering
// column, a 4-byte BE signed length (negative = null) followed by the
// component bytes (spec §4.7 step 2).
func parseClusteringKey(cols []schema.KeyColumn, src []byte) (value.ClusteringKey, int, error) {
	const op = "row.parseClusteringKey"
	pos := 0
	vals := make([]value.Value, len(cols))
	dirs := make([]value.Direction, len(cols))
	for i, col := range cols {
		if len(src)-pos < 4 {
			return value.ClusteringKey{}, 0, xerrors.Corrupt(op, "too_short")
		}
		length := int32(be32(src[pos:]))
		pos += 4
		dirs[i] = col.Direction
		if length < 0 {
			vals[i] = value.Null
			continue
		}
		if len(src)-pos < int(length) {
			return value.ClusteringKey{}, 0, xerrors.Corrupt(op, "too_short")
		}
		v, _, err := codec.ParseValue(col.Type, src[pos:pos+int(length)])
		if err != nil {
			return value.ClusteringKey{}, 0, err
		}
		vals[i] = v
		pos += int(length)
	}
	return value.ClusteringKey{Values: vals, Directions: dirs}, pos, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// flattenClusteringKey renders a clustering key as an opaque,
// length-prefixed byte sequence for use as a RowKey range-tombstone bound.
// Every component is serialized through its scalar codec, length-prefixed
// so component boundaries never bleed into each other, and byte-inverted
// when its column is DESC so that RowKey's plain lexicographic Compare
// still orders it correctly relative to rows flattened the same way.
func flattenClusteringKey(ck value.ClusteringKey) []byte {
	var buf []byte
	for i, v := range ck.Values {
		enc, err := codec.SerializeValue(codec.Scalar(scalarKindToType(v.Kind())), v)
		if err != nil {
			enc = v.Bytes()
		}
		if i < len(ck.Directions) && ck.Directions[i] == value.Desc {
			inverted := make([]byte, len(enc))
			for j, b := range enc {
				inverted[j] = ^b
			}
			enc = inverted
		}
		buf = append(buf, be32Bytes(uint32(len(enc)))...)
		buf = append(buf, enc...)
	}
	return buf
}

func be32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// scalarKindToType maps a value.Kind back to the CqlType its codec uses;
// only needed for re-serializing an already-decoded clustering component,
// so collection/tuple/udt/frozen kinds (never valid clustering types) are
// not handled.
func scalarKindToType(k value.Kind) codec.CqlType {
	switch k {
	case value.KindBoolean:
		return codec.TypeBoolean
	case value.KindTinyInt:
		return codec.TypeTinyInt
	case value.KindSmallInt:
		return codec.TypeSmallInt
	case value.KindInt:
		return codec.TypeInt
	case value.KindBigInt:
		return codec.TypeBigInt
	case value.KindFloat:
		return codec.TypeFloat
	case value.KindDouble:
		return codec.TypeDouble
	case value.KindText:
		return codec.TypeText
	case value.KindAscii:
		return codec.TypeAscii
	case value.KindBlob:
		return codec.TypeBlob
	case value.KindTimestamp:
		return codec.TypeTimestamp
	case value.KindDate:
		return codec.TypeDate
	case value.KindTime:
		return codec.TypeTime
	case value.KindUuid:
		return codec.TypeUuid
	case value.KindTimeUuid:
		return codec.TypeTimeUuid
	case value.KindInet:
		return codec.TypeInet
	case value.KindDuration:
		return codec.TypeDuration
	case value.KindDecimal:
		return codec.TypeDecimal
	default:
		return codec.TypeBlob
	}
}
