package row

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/value"
)

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	s := testSchema()
	enc := NewEncoder(s, 1000)
	dec := NewDecoder(s, 1000)

	ttl := int64(60)
	buf, err := enc.EncodeRow(RowInput{
		ClusteringValues: []value.Value{value.NewInt(7)},
		Cells:            map[string]value.Value{"msg": value.NewText("hi")},
		Timestamp:        1050,
		TTL:              &ttl,
	})
	require.NoError(t, err)

	pk := value.PartitionKey{Values: []value.Value{value.NewInt(1)}}
	r, n, err := dec.DecodeRow(pk, buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, int64(1050), *r.Timestamp)
	require.Equal(t, int64(60), *r.TTL)
	require.Equal(t, int64(7), r.ClusteringKey.Values[0].Int64())
	require.Equal(t, "hi", r.Cells["msg"].Text())
}

func TestEncodeDecodeRowNullCellRoundTrip(t *testing.T) {
	s := testSchema()
	enc := NewEncoder(s, 0)
	dec := NewDecoder(s, 0)

	buf, err := enc.EncodeRow(RowInput{
		ClusteringValues: []value.Value{value.NewInt(1)},
		Timestamp:        0,
	})
	require.NoError(t, err)

	pk := value.PartitionKey{Values: []value.Value{value.NewInt(1)}}
	r, _, err := dec.DecodeRow(pk, buf)
	require.NoError(t, err)
	require.True(t, r.Cells["msg"].IsNull())
}

func TestEncodeDecodeRowDeletedRoundTrip(t *testing.T) {
	s := testSchema()
	enc := NewEncoder(s, 0)
	dec := NewDecoder(s, 0)

	buf, err := enc.EncodeRow(RowInput{
		ClusteringValues: []value.Value{value.NewInt(1)},
		Timestamp:        42,
		Deleted:          true,
	})
	require.NoError(t, err)

	pk := value.PartitionKey{Values: []value.Value{value.NewInt(1)}}
	r, _, err := dec.DecodeRow(pk, buf)
	require.NoError(t, err)
	require.True(t, r.IsTombstone())
	require.Equal(t, value.TombstoneRow, r.Tombstone.Kind)
	require.Equal(t, int64(42), r.Tombstone.DeletionTime)
}

func TestEncodeDecodeRangeTombstoneRoundTrip(t *testing.T) {
	s := testSchema()
	enc := NewEncoder(s, 0)
	dec := NewDecoder(s, 0)

	buf, err := enc.EncodeRangeTombstone(
		[]value.Value{value.NewInt(10)},
		[]value.Value{value.NewInt(20)},
		5,
	)
	require.NoError(t, err)

	pk := value.PartitionKey{Values: []value.Value{value.NewInt(1)}}
	r, n, err := dec.DecodeRow(pk, buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.True(t, r.IsTombstone())
	require.Equal(t, value.TombstoneRange, r.Tombstone.Kind)
	require.Equal(t, int64(5), r.Tombstone.DeletionTime)
}
