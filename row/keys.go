package row

import (
	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
)

// EncodePartitionKey renders pk as the opaque byte sequence Index.db and
// Data.db's partition-key field store (spec §3.2, §6.1 leave the exact
// composite-key byte format unspecified beyond "opaque, ordered bytes").
// A single-column partition key serializes as that column's raw scalar
// bytes, matching Cassandra's own single-component convention; a composite
// key concatenates each component's 4-byte BE length-prefixed bytes, the
// same scheme flattenClusteringKey uses for clustering keys, so callers get
// one consistent encoding discipline across both key kinds.
func EncodePartitionKey(s *schema.TableSchema, pk value.PartitionKey) ([]byte, error) {
	const op = "row.EncodePartitionKey"
	cols := s.OrderedPartitionKeys()
	if len(cols) != len(pk.Values) {
		return nil, xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("partition key arity mismatch")
	}
	if len(cols) == 1 {
		return codec.SerializeValue(cols[0].Type, pk.Values[0])
	}
	var buf []byte
	for i, col := range cols {
		enc, err := codec.SerializeValue(col.Type, pk.Values[i])
		if err != nil {
			return nil, err
		}
		buf = append(buf, be32Bytes(uint32(len(enc)))...)
		buf = append(buf, enc...)
	}
	return buf, nil
}

// DecodePartitionKey is EncodePartitionKey's inverse, used to recover a
// typed PartitionKey from Index.db's raw key bytes during table scans.
func DecodePartitionKey(s *schema.TableSchema, raw []byte) (value.PartitionKey, error) {
	const op = "row.DecodePartitionKey"
	cols := s.OrderedPartitionKeys()
	if len(cols) == 1 {
		v, _, err := codec.ParseValue(cols[0].Type, raw)
		if err != nil {
			return value.PartitionKey{}, err
		}
		return value.PartitionKey{Values: []value.Value{v}}, nil
	}
	vals := make([]value.Value, len(cols))
	pos := 0
	for i, col := range cols {
		if len(raw)-pos < 4 {
			return value.PartitionKey{}, xerrors.Corrupt(op, "too_short")
		}
		length := int(be32(raw[pos:]))
		pos += 4
		if length < 0 || len(raw)-pos < length {
			return value.PartitionKey{}, xerrors.Corrupt(op, "too_short")
		}
		v, _, err := codec.ParseValue(col.Type, raw[pos:pos+length])
		if err != nil {
			return value.PartitionKey{}, err
		}
		vals[i] = v
		pos += length
	}
	return value.PartitionKey{Values: vals}, nil
}

// RowKey renders a row's identity as an opaque, ordered byte sequence for
// QueryRow.RowKey (spec §6.3): the partition key's raw bytes, followed by
// the clustering key's flattened bytes when the table has one.
func RowKey(pkBytes []byte, ck *value.ClusteringKey) value.RowKey {
	if ck == nil {
		return value.RowKey(pkBytes)
	}
	out := append([]byte(nil), pkBytes...)
	out = append(out, flattenClusteringKey(*ck)...)
	return value.RowKey(out)
}
