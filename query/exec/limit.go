package exec

import "github.com/cqlsst/cqlsst/query/planner"

// runLimit drops Offset rows then truncates to Count (spec §4.11),
// grounded on cqlite-core's execute_limit (drain-then-truncate).
func runLimit(stage *planner.Limit, rows []QueryRow) []QueryRow {
	offset := int(stage.Offset)
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if !stage.HasCount {
		return rows
	}
	if int(stage.Count) < len(rows) {
		rows = rows[:stage.Count]
	}
	return rows
}
