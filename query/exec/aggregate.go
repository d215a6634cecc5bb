package exec

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/value"
)

// defaultAggregateMemoryLimit is used when a planner.Aggregate stage leaves
// MemoryLimit unset (spec §4.11's "configurable memory limit").
const defaultAggregateMemoryLimit = 64 * 1024 * 1024

// estimatedAggregateRowBytes is the rough per-row accounting cost, matching
// cqlite-core's execute_aggregation ("memory_usage_bytes += 100; // Rough
// estimate per row") rather than tracking each Value's real size.
const estimatedAggregateRowBytes = 100

// aggAcc accumulates one AggregateItem across every row of a group.
// Grounded on cqlite-core's AggregateValue enum (Count/Sum/Avg/Min/Max),
// generalized to hold both a float64 accumulator (ordinary numeric
// columns) and a shopspring/decimal accumulator (CQL DECIMAL columns),
// switching to the latter the first time a Decimal value is seen.
type aggAcc struct {
	fn ast.AggregateFunc

	count uint64

	sum        float64
	decSum     decimal.Decimal
	hasDecimal bool

	avgCount uint64

	min, max   value.Value
	haveMinMax bool
}

func (a *aggAcc) update(v value.Value) {
	switch a.fn {
	case ast.AggCount:
		a.count++
	case ast.AggSum:
		a.addNumeric(v)
	case ast.AggAvg:
		if a.addNumeric(v) {
			a.avgCount++
		}
	case ast.AggMin:
		if !v.IsNull() && (!a.haveMinMax || value.CompareValues(v, a.min) < 0) {
			a.min, a.haveMinMax = v, true
		}
	case ast.AggMax:
		if !v.IsNull() && (!a.haveMinMax || value.CompareValues(v, a.max) > 0) {
			a.max, a.haveMinMax = v, true
		}
	}
}

// addNumeric folds v into the running sum, silently skipping non-numeric or
// null values (matching cqlite-core's `if let Some(num_val) = ...as_f64()`
// skip-on-failure behavior rather than erroring the whole query over one
// bad cell).
func (a *aggAcc) addNumeric(v value.Value) bool {
	v = v.Unwrap()
	if v.IsNull() {
		return false
	}
	if v.Kind() == value.KindDecimal {
		a.hasDecimal = true
		a.decSum = a.decSum.Add(v.Decimal().ToShopspring())
		return true
	}
	if f, ok := numericFloat(v); ok {
		a.sum += f
		return true
	}
	return false
}

func numericFloat(v value.Value) (float64, bool) {
	switch {
	case isIntKind(v.Kind()):
		return float64(v.Int64()), true
	case isFloatKind(v.Kind()):
		return floatOf(v), true
	default:
		return 0, false
	}
}

func (a *aggAcc) result() value.Value {
	switch a.fn {
	case ast.AggCount:
		return value.NewBigInt(int64(a.count))
	case ast.AggSum:
		if a.hasDecimal {
			return value.NewDecimal(value.DecimalFromShopspring(a.decSum))
		}
		return value.NewDouble(a.sum)
	case ast.AggAvg:
		if a.avgCount == 0 {
			return value.Null
		}
		if a.hasDecimal {
			return value.NewDecimal(value.DecimalFromShopspring(a.decSum.Div(decimal.NewFromInt(int64(a.avgCount)))))
		}
		return value.NewDouble(a.sum / float64(a.avgCount))
	case ast.AggMin:
		if !a.haveMinMax {
			return value.Null
		}
		return a.min
	case ast.AggMax:
		if !a.haveMinMax {
			return value.Null
		}
		return a.max
	default:
		return value.Null
	}
}

// aggGroup is one GROUP BY bucket: the group-key values plus one
// accumulator per requested aggregate item.
type aggGroup struct {
	keyVals []value.Value
	accs    []*aggAcc
}

// runAggregate executes a planner.Aggregate stage (spec §4.10, §4.11):
// hash-group-by through a map keyed by groupFingerprint's stable string
// rendering of the group key (cqlite-core's AggregationState uses a
// Vec-based linear scan instead, noting "Value doesn't implement Hash"; Go's
// Value can't be a map key either since it embeds slices, hence the string).
// Having, if set, filters completed groups.
func runAggregate(stage *planner.Aggregate, rows []QueryRow) ([]QueryRow, uint64, error) {
	const op = "exec.runAggregate"

	limit := stage.MemoryLimit
	if limit <= 0 {
		limit = defaultAggregateMemoryLimit
	}

	var groups []*aggGroup
	index := make(map[string]int)
	var memUsed int64

	for _, row := range rows {
		keyVals := make([]value.Value, len(stage.GroupBy))
		for i := range stage.GroupBy {
			v, err := evalExpr(&row, &stage.GroupBy[i])
			if err != nil {
				v = value.Null
			}
			keyVals[i] = v
		}
		fp := groupFingerprint(keyVals)

		gi, ok := index[fp]
		if !ok {
			g := &aggGroup{keyVals: keyVals, accs: make([]*aggAcc, len(stage.Items))}
			for i, item := range stage.Items {
				g.accs[i] = &aggAcc{fn: item.Func}
			}
			groups = append(groups, g)
			gi = len(groups) - 1
			index[fp] = gi
		}

		g := groups[gi]
		for i, item := range stage.Items {
			v := value.Null
			if item.Arg != nil {
				var err error
				v, err = evalExpr(&row, item.Arg)
				if err != nil {
					v = value.Null
				}
			}
			g.accs[i].update(v)
		}

		memUsed += estimatedAggregateRowBytes
		if memUsed > limit {
			return nil, 0, xerrors.New(xerrors.KindAggregationOverflow, op)
		}
	}

	out := make([]QueryRow, 0, len(groups))
	for _, g := range groups {
		values := make(map[string]value.Value, len(stage.GroupBy)+len(stage.Items))
		for i, ge := range stage.GroupBy {
			values[groupByName(ge, i)] = g.keyVals[i]
		}
		for i, item := range stage.Items {
			values[item.Alias] = g.accs[i].result()
		}
		out = append(out, QueryRow{Values: values})
	}

	if stage.Having == nil {
		return out, 0, nil
	}

	var skipped uint64
	filtered := out[:0]
	for _, r := range out {
		r := r
		ok, err := evalWhere(&r, stage.Having)
		if err != nil || !ok {
			skipped++
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, skipped, nil
}

// groupByName picks the output column name for one GROUP BY expression: its
// column name when it is a plain reference, otherwise a positional
// fallback (GROUP BY over a computed expression has no natural name).
func groupByName(e ast.Expr, i int) string {
	if e.Kind == ast.ExprColumn {
		return e.Column
	}
	return fmt.Sprintf("group_%d", i)
}

// groupFingerprint renders a group key as a stable string for map lookups,
// since value.Value embeds slices and cannot be used as a Go map key
// directly.
func groupFingerprint(vals []value.Value) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		fmt.Fprintf(&b, "%d:%s", v.Kind(), v.String())
	}
	return b.String()
}
