package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/engine"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/row"
	"github.com/cqlsst/cqlsst/schema"
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

func openEngine(t *testing.T, opts engine.Options) (*engine.Engine, *schema.TableSchema) {
	t.Helper()
	s := eventsSchema()
	enc := row.NewEncoder(s, 0)

	var body []byte
	for seq := 0; seq < 3; seq++ {
		b, err := enc.EncodeRow(row.RowInput{
			ClusteringValues: []value.Value{value.NewInt(int32(seq))},
			Cells:            map[string]value.Value{"msg": value.NewText("m")},
			Timestamp:        int64(seq),
		})
		require.NoError(t, err)
		body = append(body, b...)
	}

	pkBytes, err := codec.SerializeScalar(codec.TypeInt, value.NewInt(1))
	require.NoError(t, err)

	dir := t.TempDir()
	info, err := writer.Write(dir, "", 1, "oa", []writer.Partition{
		{KeyBytes: pkBytes, MinTimestamp: 0, Body: body},
	}, writer.Options{})
	require.NoError(t, err)

	e := engine.New(opts)
	require.NoError(t, e.Open(info.DataPath(), s))
	t.Cleanup(func() { e.Close() })

	return e, s
}

func pointLookup(s *schema.TableSchema) *ast.SelectStatement {
	return &ast.SelectStatement{
		Select: ast.SelectClause{Star: true},
		From:   ast.From{Table: &ast.TableRef{Keyspace: s.Keyspace, Table: s.Name}},
		Where:  ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
	}
}

func TestEngineSelectCachesPlanAndResult(t *testing.T) {
	e, s := openEngine(t, engine.Options{})
	stmt := pointLookup(s)

	res1, err := e.Select(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, res1.Rows, 3)

	res2, err := e.Select(context.Background(), stmt)
	require.NoError(t, err)
	require.Equal(t, res1, res2)
}

func TestEngineSelectRejectsUnopenedTable(t *testing.T) {
	e, s := openEngine(t, engine.Options{})
	stmt := pointLookup(s)
	stmt.From.Table.Table = "missing"

	_, err := e.Select(context.Background(), stmt)
	require.Error(t, err)
}

func TestEngineSelectParallelModeMatchesSequential(t *testing.T) {
	e, s := openEngine(t, engine.Options{Parallel: true, MaxConcurrency: 2})
	stmt := pointLookup(s)

	res, err := e.Select(context.Background(), stmt)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	require.Equal(t, "PointLookup", res.Metadata.PlanInfo.PlanType)
}
