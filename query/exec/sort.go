package exec

import (
	"sort"

	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/value"
)

// runSort stable-sorts rows by a planner.Sort stage's order items (spec
// §4.10, §4.11), evaluating each item's expression per row and comparing
// with value.CompareValues, which already sorts null low and falls back to
// a total order across mismatched kinds. Grounded on cqlite-core's
// execute_sort, which does the same multi-key stable sort over evaluated
// expressions rather than raw columns.
func runSort(stage *planner.Sort, rows []QueryRow) []QueryRow {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, item := range stage.Items {
			a, errA := evalExpr(&rows[i], &item.Expr)
			b, errB := evalExpr(&rows[j], &item.Expr)
			if errA != nil {
				a = value.Null
			}
			if errB != nil {
				b = value.Null
			}
			c := value.CompareValues(a, b)
			if item.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return rows
}
