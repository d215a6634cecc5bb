package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/row"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
	"github.com/cqlsst/cqlsst/vint"
)

func TestParsePartitionHeader(t *testing.T) {
	buf := []byte{0, 0, 0, 3, 'k', 'e', 'y'}
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 100) // min ts = 100, BE i64
	hdr, err := parsePartitionHeader(buf)
	require.NoError(t, err)
	require.Equal(t, "key", string(hdr.KeyBytes))
	require.Equal(t, int64(100), hdr.MinTimestamp)
	require.Equal(t, len(buf), hdr.HeaderLen)
}

func TestParsePartitionHeaderTruncated(t *testing.T) {
	_, err := parsePartitionHeader([]byte{0, 0, 0, 3, 'k'})
	require.Error(t, err)
}

func simpleEventsSchema() *schema.TableSchema {
	return &schema.TableSchema{
		PartitionKeys:  []schema.KeyColumn{{Name: "user", Type: codec.Scalar(codec.TypeInt)}},
		ClusteringKeys: []schema.KeyColumn{{Name: "ts", Type: codec.Scalar(codec.TypeInt)}},
		Columns: []schema.Column{
			{Name: "user", Type: codec.Scalar(codec.TypeInt)},
			{Name: "ts", Type: codec.Scalar(codec.TypeInt)},
		},
	}
}

func encodeSimpleRow(t *testing.T, ts int32) []byte {
	t.Helper()
	buf := []byte{0} // no flags
	buf = vint.AppendI(buf, 0)
	enc, err := codec.SerializeScalar(codec.TypeInt, value.NewInt(ts))
	require.NoError(t, err)
	buf = append(buf, byte(len(enc)>>24), byte(len(enc)>>16), byte(len(enc)>>8), byte(len(enc)))
	buf = append(buf, enc...)
	buf = vint.AppendU(buf, 0) // zero non-key columns
	return buf
}

func TestPartitionIteratorYieldsAllRows(t *testing.T) {
	dec := row.NewDecoder(simpleEventsSchema(), 0)
	var body []byte
	body = append(body, encodeSimpleRow(t, 100)...)
	body = append(body, encodeSimpleRow(t, 200)...)

	it := &partitionIterator{dec: dec, pk: value.PartitionKey{}, buf: body}
	var got []int64
	for {
		r, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r.ClusteringKey.Values[0].Int64())
	}
	require.Equal(t, []int64{100, 200}, got)
}

func TestRangeFilterIteratorBounds(t *testing.T) {
	dec := row.NewDecoder(simpleEventsSchema(), 0)
	var body []byte
	for _, ts := range []int32{100, 200, 300, 400} {
		body = append(body, encodeSimpleRow(t, ts)...)
	}
	inner := &partitionIterator{dec: dec, pk: value.PartitionKey{}, buf: body}
	start := &value.ClusteringKey{Values: []value.Value{value.NewInt(200)}}
	end := &value.ClusteringKey{Values: []value.Value{value.NewInt(300)}}
	it := &rangeFilterIterator{inner: inner, start: start, end: end}

	var got []int64
	for {
		r, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r.ClusteringKey.Values[0].Int64())
	}
	require.Equal(t, []int64{200, 300}, got)
}

func TestPartitionIteratorCancellation(t *testing.T) {
	dec := row.NewDecoder(simpleEventsSchema(), 0)
	it := &partitionIterator{dec: dec, pk: value.PartitionKey{}, buf: encodeSimpleRow(t, 1)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := it.Next(ctx)
	require.Error(t, err)
}
