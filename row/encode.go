package row

import (
	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
	"github.com/cqlsst/cqlsst/vint"
)

// Encoder writes rows in the exact byte layout Decoder.DecodeRow expects
// (spec §4.7), for the fixture writer (sstable/writer) and for round-trip
// tests. It mirrors rockyardkv's table/builder.go writing records in the
// same format its table/reader.go parses.
type Encoder struct {
	schema             *schema.TableSchema
	partitionMinTstamp int64
}

// NewEncoder builds an Encoder for schema s; partitionMinTstamp must match
// the value a Decoder reading these rows back will be constructed with.
func NewEncoder(s *schema.TableSchema, partitionMinTstamp int64) *Encoder {
	return &Encoder{schema: s, partitionMinTstamp: partitionMinTstamp}
}

// RowInput is one logical data row to encode: clustering component values
// in declared-column order (a shorter slice pads with null), and cell
// values keyed by non-key column name (an absent or null entry encodes as
// not-present in the presence bitmask).
type RowInput struct {
	ClusteringValues []value.Value
	Cells            map[string]value.Value
	Timestamp        int64
	TTL              *int64
	Deleted          bool // true encodes a row-level tombstone (deletion time = Timestamp)
}

// EncodeRow appends one data (or row-tombstone) record.
func (e *Encoder) EncodeRow(in RowInput) ([]byte, error) {
	var flags byte
	if in.TTL != nil {
		flags |= flagHasTTL
	}
	if in.Deleted {
		flags |= flagHasDeletionTime
	}

	buf := []byte{flags}
	buf = vint.AppendI(buf, in.Timestamp-e.partitionMinTstamp)
	if in.TTL != nil {
		buf = vint.AppendI(buf, *in.TTL)
	}
	if in.Deleted {
		buf = vint.AppendI(buf, in.Timestamp)
	}

	clusteringCols := e.schema.OrderedClusteringKeys()
	for i, col := range clusteringCols {
		v := value.Null
		if i < len(in.ClusteringValues) {
			v = in.ClusteringValues[i]
		}
		enc, err := encodeClusteringComponent(col.Type, v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}

	nonKeyCols := e.schema.NonKeyColumns()
	buf = vint.AppendU(buf, uint64(len(nonKeyCols)))
	mask := make([]byte, (len(nonKeyCols)+7)/8)
	var cellBytes []byte
	for i, col := range nonKeyCols {
		v, ok := in.Cells[col.Name]
		if !ok || v.IsNull() {
			continue
		}
		mask[i/8] |= 1 << uint(i%8)
		enc, err := codec.SerializeValue(col.Type, v)
		if err != nil {
			return nil, err
		}
		cellBytes = append(cellBytes, enc...)
	}
	buf = append(buf, mask...)
	buf = append(buf, cellBytes...)
	return buf, nil
}

// EncodeRangeTombstone appends a range-tombstone record covering
// [start, end] in the declared clustering columns (either bound may be
// shorter than the full clustering key, padding with null = unbounded on
// that trailing component).
func (e *Encoder) EncodeRangeTombstone(start, end []value.Value, deletionTime int64) ([]byte, error) {
	flags := byte(flagIsRangeTombstone | flagHasDeletionTime)
	buf := []byte{flags}
	buf = vint.AppendI(buf, deletionTime-e.partitionMinTstamp)
	buf = vint.AppendI(buf, deletionTime)

	clusteringCols := e.schema.OrderedClusteringKeys()
	for _, bound := range [][]value.Value{start, end} {
		for i, col := range clusteringCols {
			v := value.Null
			if i < len(bound) {
				v = bound[i]
			}
			enc, err := encodeClusteringComponent(col.Type, v)
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)
		}
	}
	return buf, nil
}

// encodeClusteringComponent writes one clustering-key component: a 4-byte
// BE signed length (negative = null) followed by its serialized bytes
// (spec §4.7 step 2).
func encodeClusteringComponent(t codec.TypeDesc, v value.Value) ([]byte, error) {
	if v.IsNull() {
		return be32Bytes(uint32(int32(-1))), nil
	}
	enc, err := codec.SerializeValue(t, v)
	if err != nil {
		return nil, err
	}
	out := be32Bytes(uint32(len(enc)))
	return append(out, enc...), nil
}
