// Package exec runs a query/planner Plan against a sstable/reader Reader
// and produces a QueryResult (spec §4.11, §6.3): it pulls rows from the
// plan's scan stage, then threads them through Filter/Aggregate/Sort/
// Limit/Project in order, each stage a pure slice-to-slice transform —
// the same shape cqlite-core's select_executor.rs runs its
// ExecutionStep::* match arms over, adapted from its per-row async streams
// to materialized Go slices since a plan's intermediate row count is
// already bounded by the scan stage before it ever reaches Filter.
package exec

import "github.com/cqlsst/cqlsst/value"

// QueryRow is one result row (spec §6.3): a stable identity (RowKey) plus
// the column values a SELECT's projection or any earlier stage produced.
type QueryRow struct {
	RowKey value.RowKey
	Values map[string]value.Value
}

// ColumnInfo describes one output column for QueryMetadata.Columns (spec
// §6.3).
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// PlanInfo surfaces the chosen plan shape and its human-readable stage
// trace (spec §6.3, §11 supplement #4).
type PlanInfo struct {
	PlanType        string // "PointLookup" | "InLookup" | "RangeScan" | "TableScan"
	EstimatedCost   float64
	ActualCost      float64
	Steps           []string
	Parallelization int // always 1 as set by buildPlanInfo; the parallel scan's worker count is not recorded
}

// QueryMetadata is QueryResult's metadata field (spec §6.3). SkippedRows
// counts rows dropped for recoverable reasons (a Filter rejection, a group
// rejected by HAVING, or a row whose projection failed to evaluate) — spec
// §7's "executor records per-query counts of skipped rows." A row that fails
// to decode is not counted: the decode error fails the query.
type QueryMetadata struct {
	Columns     []ColumnInfo
	TotalRows   *uint64
	PlanInfo    *PlanInfo
	SkippedRows uint64
}

// QueryResult is the top-level value a SELECT evaluates to (spec §6.3).
type QueryResult struct {
	Rows            []QueryRow
	RowsAffected    uint64
	ExecutionTimeMs uint64
	Metadata        QueryMetadata
}
