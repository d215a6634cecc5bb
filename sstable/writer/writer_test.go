package writer_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/row"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/compression"
	"github.com/cqlsst/cqlsst/sstable/reader"
	"github.com/cqlsst/cqlsst/sstable/writer"
	"github.com/cqlsst/cqlsst/value"
)

func eventsSchema() *schema.TableSchema {
	return &schema.TableSchema{
		Keyspace: "ks",
		Name:     "events",
		PartitionKeys: []schema.KeyColumn{
			{Name: "user", Type: codec.Scalar(codec.TypeInt)},
		},
		ClusteringKeys: []schema.KeyColumn{
			{Name: "seq", Type: codec.Scalar(codec.TypeInt)},
		},
		Columns: []schema.Column{
			{Name: "user", Type: codec.Scalar(codec.TypeInt)},
			{Name: "seq", Type: codec.Scalar(codec.TypeInt)},
			{Name: "msg", Type: codec.Scalar(codec.TypeText), Nullable: true},
		},
	}
}

func encodePartitionKey(t *testing.T, id int32) []byte {
	t.Helper()
	enc, err := codec.SerializeScalar(codec.TypeInt, value.NewInt(id))
	require.NoError(t, err)
	return enc
}

func TestWriteThenReadUncompressed(t *testing.T) {
	s := eventsSchema()
	enc := row.NewEncoder(s, 0)

	row1, err := enc.EncodeRow(row.RowInput{
		ClusteringValues: []value.Value{value.NewInt(1)},
		Cells:            map[string]value.Value{"msg": value.NewText("hi")},
		Timestamp:        10,
	})
	require.NoError(t, err)
	row2, err := enc.EncodeRow(row.RowInput{
		ClusteringValues: []value.Value{value.NewInt(2)},
		Cells:            map[string]value.Value{"msg": value.NewText("bye")},
		Timestamp:        20,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	partitions := []writer.Partition{
		{KeyBytes: encodePartitionKey(t, 1), MinTimestamp: 0, Body: append(row1, row2...)},
	}
	info, err := writer.Write(dir, "", 1, "oa", partitions, writer.Options{})
	require.NoError(t, err)

	r, err := reader.Open(info.DataPath(), s, nil)
	require.NoError(t, err)
	defer r.Close()

	dec := row.NewDecoder(s, 0)
	pk := value.PartitionKey{Values: []value.Value{value.NewInt(1)}}
	got, err := r.GetPartition(context.Background(), pk, partitions[0].KeyBytes, dec)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "hi", got[0].Cells["msg"].Text())
	require.Equal(t, "bye", got[1].Cells["msg"].Text())
}

func TestWriteThenReadCompressed(t *testing.T) {
	s := eventsSchema()
	enc := row.NewEncoder(s, 0)

	rowBytes, err := enc.EncodeRow(row.RowInput{
		ClusteringValues: []value.Value{value.NewInt(1)},
		Cells:            map[string]value.Value{"msg": value.NewText("compressed payload")},
		Timestamp:        5,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	partitions := []writer.Partition{
		{KeyBytes: encodePartitionKey(t, 42), MinTimestamp: 0, Body: rowBytes},
	}
	info, err := writer.Write(dir, "", 1, "oa", partitions, writer.Options{
		Compression: compression.AlgorithmLZ4,
		ChunkLength: 16,
	})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "1-oa-CompressionInfo.db"))

	r, err := reader.Open(info.DataPath(), s, nil)
	require.NoError(t, err)
	defer r.Close()

	dec := row.NewDecoder(s, 0)
	pk := value.PartitionKey{Values: []value.Value{value.NewInt(42)}}
	got, err := r.GetPartition(context.Background(), pk, partitions[0].KeyBytes, dec)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "compressed payload", got[0].Cells["msg"].Text())
}

func TestWriteWithBloomFilterGatesMiss(t *testing.T) {
	s := eventsSchema()
	enc := row.NewEncoder(s, 0)
	rowBytes, err := enc.EncodeRow(row.RowInput{
		ClusteringValues: []value.Value{value.NewInt(1)},
		Timestamp:        1,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	partitions := []writer.Partition{
		{KeyBytes: encodePartitionKey(t, 1), MinTimestamp: 0, Body: rowBytes},
	}
	info, err := writer.Write(dir, "", 1, "oa", partitions, writer.Options{BloomBitsPerKey: 10})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "1-oa-Filter.db"))

	r, err := reader.Open(info.DataPath(), s, nil)
	require.NoError(t, err)
	defer r.Close()

	dec := row.NewDecoder(s, 0)
	missingKey := encodePartitionKey(t, 9999)
	_, err = r.ScanPartition(value.PartitionKey{}, missingKey, dec)
	require.Error(t, err)
}

func TestWriteStatistics(t *testing.T) {
	dir := t.TempDir()
	stats := reader.Statistics{RowCount: 3, MinTimestamp: 1, MaxTimestamp: 100, CompressionRatio: 1.0}
	info, err := writer.Write(dir, "", 1, "oa", nil, writer.Options{Statistics: &stats})
	require.NoError(t, err)

	r, err := reader.Open(info.DataPath(), eventsSchema(), nil)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, stats, r.Statistics())
}
