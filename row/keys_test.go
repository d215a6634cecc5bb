package row

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
)

func TestEncodeDecodePartitionKeySingleColumn(t *testing.T) {
	s := testSchema()
	pk := value.PartitionKey{Values: []value.Value{value.NewInt(42)}}

	enc, err := EncodePartitionKey(s, pk)
	require.NoError(t, err)

	got, err := DecodePartitionKey(s, enc)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.Values[0].Int64())
}

func compositeKeySchema() *schema.TableSchema {
	return &schema.TableSchema{
		Keyspace: "ks",
		Name:     "multi_pk",
		PartitionKeys: []schema.KeyColumn{
			{Name: "tenant", Type: codec.Scalar(codec.TypeText)},
			{Name: "shard", Type: codec.Scalar(codec.TypeInt)},
		},
		Columns: []schema.Column{
			{Name: "tenant", Type: codec.Scalar(codec.TypeText)},
			{Name: "shard", Type: codec.Scalar(codec.TypeInt)},
		},
	}
}

func TestEncodeDecodePartitionKeyComposite(t *testing.T) {
	s := compositeKeySchema()
	pk := value.PartitionKey{Values: []value.Value{value.NewText("acme"), value.NewInt(7)}}

	enc, err := EncodePartitionKey(s, pk)
	require.NoError(t, err)

	got, err := DecodePartitionKey(s, enc)
	require.NoError(t, err)
	require.Equal(t, "acme", got.Values[0].Text())
	require.Equal(t, int64(7), got.Values[1].Int64())
}

func TestEncodePartitionKeyArityMismatch(t *testing.T) {
	s := testSchema()
	_, err := EncodePartitionKey(s, value.PartitionKey{})
	require.Error(t, err)
}
