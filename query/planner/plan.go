// Package planner turns a parsed ast.SelectStatement into an ordered
// pipeline of execution stages (spec §4.10): pure, data-only descriptions
// of what query/exec must run, with predicate pushdown already decided.
//
// Grounded on cqlite-core's optimized_executor.rs for the plan-choice
// heuristics (point lookup vs. index scan vs. range scan vs. table scan,
// IN-list pushdown as merged point lookups) and rockyardkv's
// internal/table index-driven scan planning style, where the decision
// between a point get and a range iterator already lives ahead of the
// actual I/O.
package planner

import (
	"fmt"
	"strings"

	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/value"
)

// StageKind tags the variant a Stage holds.
type StageKind uint8

const (
	StageSSTableScan StageKind = iota
	StageFilter
	StageAggregate
	StageSort
	StageLimit
	StageProject
)

// Stage is one pipeline step (spec §4.10: "each stage is a pure function
// seq<Row> -> seq<Row> plus metadata"). query/exec picks the execution
// function with a type switch on the concrete stage type; String is used
// for plan_info.steps (spec
// §11 supplement).
type Stage interface {
	Kind() StageKind
	fmt.Stringer
}

// ScanMode is the access pattern query/exec uses to pull rows from the
// reader (spec §4.10 plan-choice heuristics).
type ScanMode uint8

const (
	// ScanPointLookup: WHERE pins every partition-key column to a single
	// equality value.
	ScanPointLookup ScanMode = iota
	// ScanInLookup: one partition-key column is bound by an IN-list (the
	// rest, if any, by equality); executed as N point lookups merged in
	// index order (spec §11 supplement #2).
	ScanInLookup
	// ScanRange: the partition key is pinned (as in ScanPointLookup) and
	// WHERE additionally gives clustering-key bounds.
	ScanRange
	// ScanTable: no usable partition-key predicate; every partition is
	// visited in index order.
	ScanTable
)

func (m ScanMode) String() string {
	switch m {
	case ScanPointLookup:
		return "point_lookup"
	case ScanInLookup:
		return "in_lookup"
	case ScanRange:
		return "range_scan"
	case ScanTable:
		return "table_scan"
	default:
		return "unknown_scan"
	}
}

// SSTableScan is the pipeline's source stage (spec §4.10).
type SSTableScan struct {
	Mode ScanMode

	// PartitionKeys holds one entry for ScanPointLookup/ScanRange, and N
	// entries (one per IN-list value merged with the equality columns) for
	// ScanInLookup.
	PartitionKeys []value.PartitionKey

	// ClusteringStart/ClusteringEnd bound a ScanRange scan; both nil means
	// the whole partition.
	ClusteringStart, ClusteringEnd *value.ClusteringKey

	// PredicatesPushed names the WHERE leaves folded into this stage,
	// purely for plan_info.steps reporting.
	PredicatesPushed []string

	// ProjectionHint names the columns a projection needs; nil means "all
	// columns." Plan leaves it nil and query/exec does not read it, so every
	// column is always decoded.
	ProjectionHint []string

	// UsedBloomFilter records whether Filter.db gated this scan, for
	// plan_info reporting.
	UsedBloomFilter bool
}

func (s *SSTableScan) Kind() StageKind { return StageSSTableScan }
func (s *SSTableScan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SSTableScan(mode=%s", s.Mode)
	if len(s.PredicatesPushed) > 0 {
		fmt.Fprintf(&b, ", pushed=[%s]", strings.Join(s.PredicatesPushed, ", "))
	}
	if s.UsedBloomFilter {
		b.WriteString(", bloom=true")
	}
	b.WriteString(")")
	return b.String()
}

// Filter evaluates expr against each row; rows for which it is false (or
// null, per spec §4.11's collapsed three-valued logic) are dropped.
type Filter struct {
	Expr *ast.WhereExpr
}

func (f *Filter) Kind() StageKind { return StageFilter }
func (f *Filter) String() string  { return "Filter(" + whereString(f.Expr) + ")" }

// AggregateItem is one requested aggregate column (spec §4.11).
type AggregateItem struct {
	Func  ast.AggregateFunc
	Arg   *ast.Expr // nil for COUNT(*)
	Alias string
}

// Aggregate groups rows by GroupBy and computes Items per group (spec
// §4.10, §4.11). Having, if set, filters completed groups — it can only be
// evaluated once every row in a group has been folded in, so it travels
// with the Aggregate stage rather than becoming a separate Filter.
type Aggregate struct {
	GroupBy     []ast.Expr
	Items       []AggregateItem
	Having      *ast.WhereExpr
	MemoryLimit int64 // bytes; 0 means use the executor's default
}

func (a *Aggregate) Kind() StageKind { return StageAggregate }
func (a *Aggregate) String() string {
	return fmt.Sprintf("Aggregate(group_by=%d cols, aggregates=%d)", len(a.GroupBy), len(a.Items))
}

// Sort orders rows by Items (spec §4.10, §4.11). Omitted entirely when
// ORDER BY already matches the scan's clustering order.
type Sort struct {
	Items []ast.OrderItem
}

func (s *Sort) Kind() StageKind { return StageSort }
func (s *Sort) String() string  { return fmt.Sprintf("Sort(%d keys)", len(s.Items)) }

// Limit discards Offset rows then truncates to Count (spec §4.11). HasCount
// false means unlimited.
type Limit struct {
	HasCount bool
	Count    uint64
	Offset   uint64
}

func (l *Limit) Kind() StageKind { return StageLimit }
func (l *Limit) String() string {
	if !l.HasCount {
		return fmt.Sprintf("Limit(offset=%d)", l.Offset)
	}
	return fmt.Sprintf("Limit(count=%d, offset=%d)", l.Count, l.Offset)
}

// Project recomputes the output row using Exprs (spec §4.11). The final
// stage of every plan.
type Project struct {
	Exprs []ast.Expr
	Star  bool
}

func (p *Project) Kind() StageKind { return StageProject }
func (p *Project) String() string {
	if p.Star {
		return "Project(*)"
	}
	return fmt.Sprintf("Project(%d exprs)", len(p.Exprs))
}

// Plan is the ordered pipeline a statement compiles to, plus the metadata
// spec §6.3's plan_info surfaces.
type Plan struct {
	Stages         []Stage
	AllowFiltering bool
}

// Steps renders each stage's String() in order, for
// QueryResult.metadata.plan_info.steps (spec §11 supplement #4).
func (p *Plan) Steps() []string {
	out := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		out[i] = s.String()
	}
	return out
}

func whereString(w *ast.WhereExpr) string {
	if w == nil {
		return "true"
	}
	if w.Kind == ast.WhereBool {
		switch w.BoolOp {
		case ast.BoolNot:
			return "NOT " + whereString(w.Left)
		case ast.BoolOr:
			return whereString(w.Left) + " OR " + whereString(w.Right)
		default:
			return whereString(w.Left) + " AND " + whereString(w.Right)
		}
	}
	return fmt.Sprintf("%s %s", w.Column.Column, w.Comparison)
}
