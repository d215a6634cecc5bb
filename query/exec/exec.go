package exec

import (
	"context"
	"time"

	"github.com/cqlsst/cqlsst/internal/logging"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/reader"
)

// Execute runs plan against r and returns the assembled result (spec
// §4.11). stmt is the original statement, needed only for the output
// column metadata (SELECT * vs. an explicit projection list).
func Execute(ctx context.Context, plan *planner.Plan, stmt *ast.SelectStatement, s *schema.TableSchema, r *reader.Reader, log logging.Logger) (QueryResult, error) {
	log = logging.OrDefault(log)
	start := time.Now()

	var rows []QueryRow
	var skipped uint64
	var err error
	for _, stage := range plan.Stages {
		if scan, ok := stage.(*planner.SSTableScan); ok {
			if err = ctx.Err(); err != nil {
				return QueryResult{}, xerrors.Wrap(xerrors.KindCancelled, "exec.Execute", err)
			}
			rows, err = runScan(ctx, scan, s, r)
			if err != nil {
				return QueryResult{}, err
			}
			log.Debugf(logging.NSExec+"scan %s produced %d rows", scan.Mode, len(rows))
			continue
		}
		rows, skipped, err = runOneStage(ctx, stage, rows, skipped)
		if err != nil {
			return QueryResult{}, err
		}
	}

	return assembleResult(rows, skipped, start, plan, stmt, s), nil
}

// ExecuteStages runs plan.Stages[1:] starting from rows — rows a caller
// already produced by some other means for plan's scan stage (e.g.
// query/parallel's worker-pool scan) — and assembles the same
// QueryResult shape Execute returns, including plan_info built from the
// real plan rather than a synthetic one.
func ExecuteStages(ctx context.Context, plan *planner.Plan, rows []QueryRow, stmt *ast.SelectStatement, s *schema.TableSchema, log logging.Logger) (QueryResult, error) {
	log = logging.OrDefault(log)
	start := time.Now()

	var skipped uint64
	var err error
	for _, stage := range plan.Stages[1:] {
		rows, skipped, err = runOneStage(ctx, stage, rows, skipped)
		if err != nil {
			return QueryResult{}, err
		}
	}

	return assembleResult(rows, skipped, start, plan, stmt, s), nil
}

// runOneStage dispatches every non-scan stage kind, threading the
// accumulated skip count (spec §11 supplement #5's metadata.skipped_rows).
func runOneStage(ctx context.Context, stage planner.Stage, rows []QueryRow, skipped uint64) ([]QueryRow, uint64, error) {
	const op = "exec.runOneStage"

	if err := ctx.Err(); err != nil {
		return nil, 0, xerrors.Wrap(xerrors.KindCancelled, op, err)
	}

	switch st := stage.(type) {
	case *planner.Filter:
		var n uint64
		rows, n = runFilter(st, rows)
		return rows, skipped + n, nil

	case *planner.Aggregate:
		out, n, err := runAggregate(st, rows)
		if err != nil {
			return nil, 0, err
		}
		return out, skipped + n, nil

	case *planner.Sort:
		return runSort(st, rows), skipped, nil

	case *planner.Limit:
		return runLimit(st, rows), skipped, nil

	case *planner.Project:
		var n uint64
		rows, n = runProject(st, rows)
		return rows, skipped + n, nil

	default:
		return nil, 0, xerrors.New(xerrors.KindUnsupportedFeature, op).WithWhere("unknown stage")
	}
}

func assembleResult(rows []QueryRow, skipped uint64, start time.Time, plan *planner.Plan, stmt *ast.SelectStatement, s *schema.TableSchema) QueryResult {
	total := uint64(len(rows))
	meta := QueryMetadata{
		Columns:     resultColumns(stmt, s),
		TotalRows:   &total,
		PlanInfo:    buildPlanInfo(plan),
		SkippedRows: skipped,
	}

	return QueryResult{
		Rows:            rows,
		RowsAffected:    0,
		ExecutionTimeMs: uint64(time.Since(start).Milliseconds()),
		Metadata:        meta,
	}
}

// planTypeName renders a scan mode as the CamelCase identifier spec
// §8.4 names in plan_info.plan_type, grounded on cqlite-core's PlanType
// enum (PointLookup/IndexScan/RangeScan/TableScan/...), rendered via its
// Debug derive. This is deliberately distinct from ScanMode.String(),
// which is lower_snake_case and feeds Plan.Steps()'s human-readable trace.
func planTypeName(m planner.ScanMode) string {
	switch m {
	case planner.ScanPointLookup:
		return "PointLookup"
	case planner.ScanInLookup:
		return "InLookup"
	case planner.ScanRange:
		return "RangeScan"
	case planner.ScanTable:
		return "TableScan"
	default:
		return "TableScan"
	}
}

func buildPlanInfo(plan *planner.Plan) *PlanInfo {
	scan, _ := plan.Stages[0].(*planner.SSTableScan)
	planType := "TableScan"
	if scan != nil {
		planType = planTypeName(scan.Mode)
	}
	return &PlanInfo{
		PlanType:        planType,
		Steps:           plan.Steps(),
		Parallelization: 1,
	}
}

// resultColumns derives the output column metadata (spec §6.3). For
// SELECT *, every declared table column is surfaced in schema order; for an
// explicit projection list, each expression's name is resolved the same
// way runProject names its output map keys, and typed when it resolves to
// a single declared column.
func resultColumns(stmt *ast.SelectStatement, s *schema.TableSchema) []ColumnInfo {
	if stmt.Select.Star {
		out := make([]ColumnInfo, len(s.Columns))
		for i, c := range s.Columns {
			out[i] = ColumnInfo{Name: c.Name, Type: c.Type.Kind.String(), Nullable: c.Nullable, Position: i}
		}
		return out
	}

	out := make([]ColumnInfo, len(stmt.Select.Exprs))
	for i := range stmt.Select.Exprs {
		e := &stmt.Select.Exprs[i]
		name := projectedName(e, i)
		col := ColumnInfo{Name: name, Nullable: true, Position: i}
		if ref, ok := columnRef(e); ok {
			if c, found := s.ColumnByName(ref); found {
				col.Type = c.Type.Kind.String()
				col.Nullable = c.Nullable
			}
		}
		out[i] = col
	}
	return out
}

// columnRef unwraps an alias to find the plain column name underneath, if
// any — used to look up a projected expression's declared type.
func columnRef(e *ast.Expr) (string, bool) {
	if e.Kind == ast.ExprAlias {
		return columnRef(e.Inner)
	}
	if e.Kind == ast.ExprColumn {
		return e.Column, true
	}
	return "", false
}
