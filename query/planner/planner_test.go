package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/schema"
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

func selectStar() ast.SelectClause { return ast.SelectClause{Star: true} }

func TestPlanPointLookup(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where:  ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{HasBloomFilter: true})
	require.NoError(t, err)

	scan := plan.Stages[0].(*SSTableScan)
	require.Equal(t, ScanPointLookup, scan.Mode)
	require.True(t, scan.UsedBloomFilter)
	require.Equal(t, int64(1), scan.PartitionKeys[0].Values[0].Int64())

	// No Filter stage: the equality was fully pushed down.
	require.Equal(t, StageProject, plan.Stages[len(plan.Stages)-1].Kind())
	for _, s := range plan.Stages {
		require.NotEqual(t, StageFilter, s.Kind())
	}
}

func TestPlanRangeScan(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where: ast.And(
			ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
			ast.And(
				ast.Cmp(ast.OpGte, ast.Column("seq"), ast.Literal(value.NewInt(10))),
				ast.Cmp(ast.OpLte, ast.Column("seq"), ast.Literal(value.NewInt(20))),
			),
		),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)

	scan := plan.Stages[0].(*SSTableScan)
	require.Equal(t, ScanRange, scan.Mode)
	require.Equal(t, int64(10), scan.ClusteringStart.Values[0].Int64())
	require.Equal(t, int64(20), scan.ClusteringEnd.Values[0].Int64())

	for _, s := range plan.Stages {
		require.NotEqual(t, StageFilter, s.Kind())
	}
}

func TestPlanInLookup(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where: ast.Cmp(ast.OpIn, ast.Column("user"),
			ast.Literal(value.NewInt(1)), ast.Literal(value.NewInt(2)), ast.Literal(value.NewInt(3))),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)

	scan := plan.Stages[0].(*SSTableScan)
	require.Equal(t, ScanInLookup, scan.Mode)
	require.Len(t, scan.PartitionKeys, 3)
}

func TestPlanTableScanRequiresAllowFiltering(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where:  ast.Cmp(ast.OpEq, ast.Column("msg"), ast.Literal(value.NewText("hi"))),
	}
	_, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, xerrors.KindFilteringRequired))

	stmt.AllowFiltering = true
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)
	scan := plan.Stages[0].(*SSTableScan)
	require.Equal(t, ScanTable, scan.Mode)

	hasFilter := false
	for _, s := range plan.Stages {
		if s.Kind() == StageFilter {
			hasFilter = true
		}
	}
	require.True(t, hasFilter)
}

func TestPlanRejectsJoin(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		From:   ast.From{Join: &ast.Join{}},
	}
	_, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, xerrors.KindUnsupportedFeature))
}

func TestPlanAggregateStage(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: ast.SelectClause{Exprs: []ast.Expr{ast.Alias(ast.Aggregate(ast.AggCount, nil), "cnt")}},
		Where:  ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)

	found := false
	for _, s := range plan.Stages {
		if agg, ok := s.(*Aggregate); ok {
			found = true
			require.Len(t, agg.Items, 1)
			require.Equal(t, ast.AggCount, agg.Items[0].Func)
		}
	}
	require.True(t, found)
}

func TestPlanAggregateCarriesHaving(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select:  ast.SelectClause{Exprs: []ast.Expr{ast.Alias(ast.Aggregate(ast.AggCount, nil), "cnt")}},
		Where:   ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
		GroupBy: []ast.Expr{ast.Column("user")},
		Having:  ast.Cmp(ast.OpGt, ast.Column("cnt"), ast.Literal(value.NewInt(5))),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)
	var agg *Aggregate
	for _, s := range plan.Stages {
		if a, ok := s.(*Aggregate); ok {
			agg = a
		}
	}
	require.NotNil(t, agg)
	require.NotNil(t, agg.Having)
}

func TestPlanOrderByElidedWhenMatchingClusteringOrder(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select:  selectStar(),
		Where:   ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
		OrderBy: []ast.OrderItem{{Expr: ast.Column("seq"), Descending: false}},
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)
	for _, s := range plan.Stages {
		require.NotEqual(t, StageSort, s.Kind())
	}
}

func TestPlanOrderByRequiresSortWhenMismatched(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select:  selectStar(),
		Where:   ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
		OrderBy: []ast.OrderItem{{Expr: ast.Column("seq"), Descending: true}},
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)
	hasSort := false
	for _, s := range plan.Stages {
		if s.Kind() == StageSort {
			hasSort = true
		}
	}
	require.True(t, hasSort)
}

func TestPlanLimitOffsetStage(t *testing.T) {
	limit := uint64(5)
	offset := uint64(2)
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where:  ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
		Limit:  &limit,
		Offset: &offset,
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)

	var l *Limit
	for _, s := range plan.Stages {
		if x, ok := s.(*Limit); ok {
			l = x
		}
	}
	require.NotNil(t, l)
	require.True(t, l.HasCount)
	require.Equal(t, uint64(5), l.Count)
	require.Equal(t, uint64(2), l.Offset)
}

func TestPlanStepsRendersEachStage(t *testing.T) {
	stmt := &ast.SelectStatement{
		Select: selectStar(),
		Where:  ast.Cmp(ast.OpEq, ast.Column("user"), ast.Literal(value.NewInt(1))),
	}
	plan, err := Plan(stmt, eventsSchema(), ReaderCapabilities{})
	require.NoError(t, err)
	steps := plan.Steps()
	require.Len(t, steps, len(plan.Stages))
	require.Contains(t, steps[0], "point_lookup")
}
