package exec

import (
	"fmt"

	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/value"
)

// runProject recomputes each row's output values from a planner.Project
// stage's expression list (spec §4.11), or passes every existing column
// through unchanged for SELECT *. A row whose projection fails to evaluate
// (e.g. references a column no earlier stage produced) is dropped and
// counted as skipped rather than failing the whole query, matching spec
// §7's "aborts the current row" rule for schema-class errors.
func runProject(stage *planner.Project, rows []QueryRow) ([]QueryRow, uint64) {
	if stage.Star {
		return rows, 0
	}

	out := make([]QueryRow, 0, len(rows))
	var skipped uint64
	for _, row := range rows {
		values := make(map[string]value.Value, len(stage.Exprs))
		failed := false
		for i := range stage.Exprs {
			e := &stage.Exprs[i]
			name := projectedName(e, i)

			var v value.Value
			var err error
			if rootsInAggregate(e) {
				// An earlier Aggregate stage already computed and named this
				// column (query/planner's buildAggregate uses the identical
				// naming rule); re-evaluating the aggregate expression itself
				// would fail since evalExpr never executes AggregateFuncs.
				var ok bool
				v, ok = row.Values[name]
				if !ok {
					err = fmt.Errorf("aggregate column not found: %s", name)
				}
			} else {
				v, err = evalExpr(&row, e)
			}
			if err != nil {
				failed = true
				break
			}
			values[name] = v
		}
		if failed {
			skipped++
			continue
		}
		out = append(out, QueryRow{RowKey: row.RowKey, Values: values})
	}
	return out, skipped
}

// rootsInAggregate reports whether e is an aggregate call, possibly behind
// a single alias wrapper.
func rootsInAggregate(e *ast.Expr) bool {
	if e.Kind == ast.ExprAlias {
		return e.Inner.Kind == ast.ExprAggregate
	}
	return e.Kind == ast.ExprAggregate
}

// projectedName picks the output column name for one projected expression:
// its column name, its alias, or a positional fallback for anything else
// (arithmetic, bare collection access), matching cqlite-core's
// execute_projection default-naming rule.
func projectedName(e *ast.Expr, i int) string {
	switch e.Kind {
	case ast.ExprColumn:
		return e.Column
	case ast.ExprAlias:
		return e.As
	default:
		return fmt.Sprintf("col_%d", i)
	}
}
