package planner

import (
	"fmt"
	"sort"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/value"
)

// ReaderCapabilities is the subset of a reader's state the planner needs to
// pick a scan mode without depending on sstable/reader directly (keeping
// query/planner a pure AST+schema transform, per spec §4.10's "pure
// function" framing).
type ReaderCapabilities struct {
	HasBloomFilter bool
}

// Plan compiles stmt against s into an ordered stage pipeline (spec §4.10).
// It returns FilteringRequired if the only viable access path is a table
// scan combined with non-key predicates and stmt.AllowFiltering is false,
// and UnsupportedFeature if stmt declares a JOIN (spec §4.9: "JOIN is
// declared but rejected by the planner").
func Plan(stmt *ast.SelectStatement, s *schema.TableSchema, caps ReaderCapabilities) (*Plan, error) {
	const op = "planner.Plan"

	if stmt.From.Join != nil {
		return nil, xerrors.New(xerrors.KindUnsupportedFeature, op).WithWhere("JOIN")
	}

	leaves, conjunctive := flattenConjunction(stmt.Where)
	pk := partitionPredicates(leaves, s)
	ck := clusteringPredicates(leaves, s)

	scan, pushed, tableScan, err := chooseScan(pk, ck, s, caps)
	if err != nil {
		return nil, err
	}

	remaining := remainingLeaves(leaves, pushed)
	needsFilterStage := !conjunctive || len(remaining) > 0

	if tableScan && needsFilterStage && !stmt.AllowFiltering {
		return nil, xerrors.New(xerrors.KindFilteringRequired, op)
	}

	plan := &Plan{AllowFiltering: stmt.AllowFiltering}
	plan.Stages = append(plan.Stages, scan)

	if !conjunctive {
		// OR/NOT trees are never partially pushed down: the whole tree
		// becomes a single Filter stage evaluated after the scan.
		plan.Stages = append(plan.Stages, &Filter{Expr: stmt.Where})
	} else if len(remaining) > 0 {
		plan.Stages = append(plan.Stages, &Filter{Expr: rebuildConjunction(remaining)})
	}

	if len(stmt.GroupBy) > 0 || hasAggregate(stmt.Select.Exprs) {
		plan.Stages = append(plan.Stages, buildAggregate(stmt))
	}

	if len(stmt.OrderBy) > 0 && !orderMatchesScan(stmt.OrderBy, scan, s) {
		plan.Stages = append(plan.Stages, &Sort{Items: stmt.OrderBy})
	}

	if stmt.Limit != nil || stmt.Offset != nil {
		l := &Limit{}
		if stmt.Limit != nil {
			l.HasCount = true
			l.Count = *stmt.Limit
		}
		if stmt.Offset != nil {
			l.Offset = *stmt.Offset
		}
		plan.Stages = append(plan.Stages, l)
	}

	plan.Stages = append(plan.Stages, &Project{Exprs: stmt.Select.Exprs, Star: stmt.Select.Star})

	return plan, nil
}

// leaf is one extracted comparison, tagged with the column it binds so the
// pushdown logic can group them by partition/clustering role.
type leaf struct {
	column string
	expr   *ast.WhereExpr
}

// flattenConjunction walks w, collecting every leaf comparison if w is a
// pure AND-tree (no OR/NOT anywhere); conjunctive is false otherwise, in
// which case the caller must treat w as one opaque Filter.
func flattenConjunction(w *ast.WhereExpr) ([]leaf, bool) {
	if w == nil {
		return nil, true
	}
	var leaves []leaf
	var walk func(n *ast.WhereExpr) bool
	walk = func(n *ast.WhereExpr) bool {
		if n.Kind == ast.WhereComparison {
			leaves = append(leaves, leaf{column: n.Column.Column, expr: n})
			return true
		}
		if n.BoolOp != ast.BoolAnd {
			return false
		}
		return walk(n.Left) && walk(n.Right)
	}
	if !walk(w) {
		return nil, false
	}
	return leaves, true
}

func remainingLeaves(all []leaf, pushed map[*ast.WhereExpr]bool) []*ast.WhereExpr {
	var out []*ast.WhereExpr
	for _, l := range all {
		if !pushed[l.expr] {
			out = append(out, l.expr)
		}
	}
	return out
}

func rebuildConjunction(leaves []*ast.WhereExpr) *ast.WhereExpr {
	acc := leaves[0]
	for _, l := range leaves[1:] {
		acc = ast.And(acc, l)
	}
	return acc
}

// predicateSet groups the leaves bound to key columns, indexed by column
// name, preserving which ast node each came from for pushed-set bookkeeping.
type predicateSet map[string][]leaf

func partitionPredicates(leaves []leaf, s *schema.TableSchema) predicateSet {
	return predicatesFor(leaves, keyNames(s.OrderedPartitionKeys()))
}

func clusteringPredicates(leaves []leaf, s *schema.TableSchema) predicateSet {
	return predicatesFor(leaves, keyNames(s.OrderedClusteringKeys()))
}

func keyNames(cols []schema.KeyColumn) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c.Name] = true
	}
	return m
}

func predicatesFor(leaves []leaf, names map[string]bool) predicateSet {
	out := predicateSet{}
	for _, l := range leaves {
		if names[l.column] && allArgsLiteral(l.expr.Args) {
			out[l.column] = append(out[l.column], l)
		}
	}
	return out
}

// allArgsLiteral reports whether every comparison operand is a literal
// value, the only shape this planner pushes down — a column-to-column or
// computed-expression comparison stays in a Filter stage instead.
func allArgsLiteral(args []ast.Expr) bool {
	for _, a := range args {
		if a.Kind != ast.ExprLiteral {
			return false
		}
	}
	return true
}

// chooseScan implements spec §4.10's plan-choice heuristics. It returns the
// compiled SSTableScan stage, the set of leaf ast nodes it consumed (so the
// caller can compute what's "remaining" for a Filter stage), and whether
// the chosen mode is an unbounded table scan.
func chooseScan(pk, ck predicateSet, s *schema.TableSchema, caps ReaderCapabilities) (*SSTableScan, map[*ast.WhereExpr]bool, bool, error) {
	const op = "planner.chooseScan"
	pkCols := s.OrderedPartitionKeys()

	pushed := map[*ast.WhereExpr]bool{}

	// Every partition-key column bound by exactly one equality leaf, or by
	// exactly one IN leaf (at most one column may use IN; spec §11
	// supplement #2).
	var equalityVals []value.Value
	var inColumn string
	var inLeaf leaf
	fullyBound := true
	for _, col := range pkCols {
		ls := pk[col.Name]
		eq := findOp(ls, ast.OpEq)
		in := findOp(ls, ast.OpIn)
		switch {
		case eq != nil:
			equalityVals = append(equalityVals, eq.expr.Args[0].Literal)
			pushed[eq.expr] = true
		case in != nil && inColumn == "":
			inColumn = col.Name
			inLeaf = *in
			equalityVals = append(equalityVals, value.Null) // placeholder, replaced per IN value below
			pushed[in.expr] = true
		default:
			fullyBound = false
		}
	}

	if fullyBound {
		if inColumn != "" {
			keys := make([]value.PartitionKey, 0, len(inLeaf.expr.Args))
			for _, arg := range inLeaf.expr.Args {
				vals := make([]value.Value, len(equalityVals))
				copy(vals, equalityVals)
				for i, col := range pkCols {
					if col.Name == inColumn {
						vals[i] = arg.Literal
					}
				}
				keys = append(keys, value.PartitionKey{Values: vals})
			}
			scan := &SSTableScan{Mode: ScanInLookup, PartitionKeys: keys, PredicatesPushed: predicateNames(pushed)}
			return scan, pushed, false, nil
		}

		pkVal := value.PartitionKey{Values: equalityVals}
		start, end, ckPushed := clusteringBounds(ck, s)
		for k := range ckPushed {
			pushed[k] = true
		}
		if start != nil || end != nil {
			scan := &SSTableScan{
				Mode:             ScanRange,
				PartitionKeys:    []value.PartitionKey{pkVal},
				ClusteringStart:  start,
				ClusteringEnd:    end,
				PredicatesPushed: predicateNames(pushed),
			}
			return scan, pushed, false, nil
		}

		scan := &SSTableScan{
			Mode:             ScanPointLookup,
			PartitionKeys:    []value.PartitionKey{pkVal},
			PredicatesPushed: predicateNames(pushed),
			UsedBloomFilter:  caps.HasBloomFilter,
		}
		return scan, pushed, false, nil
	}

	if len(pkCols) == 0 {
		return nil, nil, false, xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("table has no partition key")
	}

	// A partially bound partition key can't be looked up, so any equality or
	// IN leaves collected above stay in the Filter stage.
	scan := &SSTableScan{Mode: ScanTable}
	return scan, map[*ast.WhereExpr]bool{}, true, nil
}

func findOp(ls []leaf, op ast.ComparisonOp) *leaf {
	for i := range ls {
		if ls[i].expr.Comparison == op {
			return &ls[i]
		}
	}
	return nil
}

// clusteringBounds derives an inclusive [start, end] clustering range from
// equality/comparison/BETWEEN leaves on a prefix of the declared clustering
// columns (spec §4.10: "Range scan: WHERE gives clustering bounds on a
// single partition").
func clusteringBounds(ck predicateSet, s *schema.TableSchema) (start, end *value.ClusteringKey, pushed map[*ast.WhereExpr]bool) {
	pushed = map[*ast.WhereExpr]bool{}
	cols := s.OrderedClusteringKeys()
	var startVals, endVals []value.Value
	var dirs []value.Direction
	for _, col := range cols {
		ls := ck[col.Name]
		if len(ls) == 0 {
			break
		}
		dirs = append(dirs, col.Direction)
		if eq := findOp(ls, ast.OpEq); eq != nil {
			startVals = append(startVals, eq.expr.Args[0].Literal)
			endVals = append(endVals, eq.expr.Args[0].Literal)
			pushed[eq.expr] = true
			continue
		}
		n := len(startVals) // == len(endVals): equalities append to both
		matched := false
		if between := findOp(ls, ast.OpBetween); between != nil {
			startVals = append(startVals, between.expr.Args[0].Literal)
			endVals = append(endVals, between.expr.Args[1].Literal)
			pushed[between.expr] = true
			matched = true
		} else {
			if gte := findOp(ls, ast.OpGte); gte != nil {
				startVals = append(startVals, gte.expr.Args[0].Literal)
				pushed[gte.expr] = true
				matched = true
			} else if gt := findOp(ls, ast.OpGt); gt != nil {
				// The bound is inclusive, so the strict leaf is not marked
				// pushed and the Filter stage still drops the equal row.
				startVals = append(startVals, gt.expr.Args[0].Literal)
				matched = true
			}
			if lte := findOp(ls, ast.OpLte); lte != nil {
				endVals = append(endVals, lte.expr.Args[0].Literal)
				pushed[lte.expr] = true
				matched = true
			} else if lt := findOp(ls, ast.OpLt); lt != nil {
				endVals = append(endVals, lt.expr.Args[0].Literal) // strict: left to Filter, as above
				matched = true
			}
		}
		if matched && col.Direction == value.Desc {
			// A DESC column emits larger values first, so its value-order
			// lower bound is the clustering-order end and vice versa.
			lo, hi := startVals[n:], endVals[n:]
			startVals = append(startVals[:n:n], hi...)
			endVals = append(endVals[:n:n], lo...)
		}
		// A range predicate on this column ends the prefix: deeper
		// clustering columns can't be bounded without it being an
		// equality, which was handled above.
		if !matched {
			dirs = dirs[:len(dirs)-1]
			break
		}
		break
	}
	if len(startVals) > 0 {
		start = &value.ClusteringKey{Values: startVals, Directions: dirs[:len(startVals)]}
	}
	if len(endVals) > 0 {
		end = &value.ClusteringKey{Values: endVals, Directions: dirs[:len(endVals)]}
	}
	return start, end, pushed
}

func predicateNames(pushed map[*ast.WhereExpr]bool) []string {
	out := make([]string, 0, len(pushed))
	for w := range pushed {
		out = append(out, w.Column.Column+" "+w.Comparison.String())
	}
	sort.Strings(out)
	return out
}

func hasAggregate(exprs []ast.Expr) bool {
	for _, e := range exprs {
		if exprContainsAggregate(e) {
			return true
		}
	}
	return false
}

func exprContainsAggregate(e ast.Expr) bool {
	switch e.Kind {
	case ast.ExprAggregate:
		return true
	case ast.ExprAlias:
		return exprContainsAggregate(*e.Inner)
	case ast.ExprArith:
		return exprContainsAggregate(*e.Left) || exprContainsAggregate(*e.Right)
	default:
		return false
	}
}

func buildAggregate(stmt *ast.SelectStatement) *Aggregate {
	agg := &Aggregate{GroupBy: stmt.GroupBy, Having: stmt.Having}
	for i, e := range stmt.Select.Exprs {
		name := fmt.Sprintf("col_%d", i)
		inner := e
		if e.Kind == ast.ExprAlias {
			name = e.As
			inner = *e.Inner
		}
		if inner.Kind == ast.ExprAggregate {
			agg.Items = append(agg.Items, AggregateItem{Func: inner.AggFunc, Arg: inner.AggArg, Alias: name})
		}
	}
	return agg
}

// orderMatchesScan reports whether orderBy is already satisfied by the
// reader's natural emission order for the chosen scan (spec §4.10: "ORDER
// BY that matches the clustering order is elided"; spec §5: "across
// partitions, the reader emits rows in index-file order... a subsequent
// Sort stage must be inserted if ORDER BY requires it").
func orderMatchesScan(orderBy []ast.OrderItem, scan *SSTableScan, s *schema.TableSchema) bool {
	if scan.Mode == ScanTable || scan.Mode == ScanInLookup {
		// No cross-partition ordering guarantee (spec §5).
		return false
	}
	cols := s.OrderedClusteringKeys()
	if len(orderBy) > len(cols) {
		return false
	}
	for i, item := range orderBy {
		if item.Expr.Kind != ast.ExprColumn || item.Expr.Column != cols[i].Name {
			return false
		}
		wantDesc := cols[i].Direction == value.Desc
		if item.Descending != wantDesc {
			return false
		}
	}
	return true
}
