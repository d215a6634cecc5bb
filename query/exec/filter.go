package exec

import "github.com/cqlsst/cqlsst/query/planner"

// runFilter applies a planner.Filter stage (spec §4.10, §4.11): rows for
// which the expression evaluates false, or which fail to evaluate at all
// (an unreadable comparison, e.g. §7's schema-class errors), are dropped
// and counted rather than aborting the whole query.
func runFilter(stage *planner.Filter, rows []QueryRow) ([]QueryRow, uint64) {
	out := rows[:0]
	var skipped uint64
	for _, row := range rows {
		row := row
		ok, err := evalWhere(&row, stage.Expr)
		if err != nil || !ok {
			skipped++
			continue
		}
		out = append(out, row)
	}
	return out, skipped
}
