package exec

import (
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/value"
)

// evalExpr evaluates e against row's current column values (spec §4.9,
// §4.11). Grounded on cqlite-core's evaluate_select_expression, generalized
// to the richer Expr union query/ast declares.
func evalExpr(row *QueryRow, e *ast.Expr) (value.Value, error) {
	const op = "exec.evalExpr"
	switch e.Kind {
	case ast.ExprColumn:
		v, ok := row.Values[e.Column]
		if !ok {
			return value.Null, xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("column not found: " + e.Column)
		}
		return v, nil
	case ast.ExprLiteral:
		return e.Literal, nil
	case ast.ExprArith:
		left, err := evalExpr(row, e.Left)
		if err != nil {
			return value.Null, err
		}
		right, err := evalExpr(row, e.Right)
		if err != nil {
			return value.Null, err
		}
		return evalArith(e.Op, left, right)
	case ast.ExprAlias:
		return evalExpr(row, e.Inner)
	case ast.ExprListIndex, ast.ExprMapIndex, ast.ExprSetContains:
		return evalCollectionAccess(row, e)
	case ast.ExprAggregate:
		return value.Null, xerrors.New(xerrors.KindUnsupportedFeature, op).WithWhere("aggregate outside Aggregate stage")
	default:
		return value.Null, xerrors.New(xerrors.KindUnsupportedFeature, op).WithWhere("unevaluable expression")
	}
}

// evalArith evaluates a binary arithmetic expression (spec §4.9). Both
// operands must be integer-kind or both float-kind; mixing integer and
// float, or any other kind, is a TypeError — matching
// cqlite-core's evaluate_arithmetic, which only defines Integer/Integer and
// Float/Float cases.
func evalArith(op ast.ArithOp, l, r value.Value) (value.Value, error) {
	const errOp = "exec.evalArith"
	if isIntKind(l.Kind()) && isIntKind(r.Kind()) {
		a, b := l.Int64(), r.Int64()
		switch op {
		case ast.ArithAdd:
			return value.NewBigInt(a + b), nil
		case ast.ArithSub:
			return value.NewBigInt(a - b), nil
		case ast.ArithMul:
			return value.NewBigInt(a * b), nil
		case ast.ArithDiv:
			if b == 0 {
				return value.Null, xerrors.New(xerrors.KindTypeError, errOp).WithWhere("division by zero")
			}
			return value.NewBigInt(a / b), nil
		case ast.ArithMod:
			if b == 0 {
				return value.Null, xerrors.New(xerrors.KindTypeError, errOp).WithWhere("modulo by zero")
			}
			return value.NewBigInt(a % b), nil
		}
	}
	if isFloatKind(l.Kind()) && isFloatKind(r.Kind()) {
		a, b := floatOf(l), floatOf(r)
		switch op {
		case ast.ArithAdd:
			return value.NewDouble(a + b), nil
		case ast.ArithSub:
			return value.NewDouble(a - b), nil
		case ast.ArithMul:
			return value.NewDouble(a * b), nil
		case ast.ArithDiv:
			return value.NewDouble(a / b), nil
		case ast.ArithMod:
			return value.NewDouble(mod(a, b)), nil
		}
	}
	return value.Null, xerrors.New(xerrors.KindTypeError, errOp).WithWhere("incompatible operand kinds")
}

func mod(a, b float64) float64 {
	for a >= b {
		a -= b
	}
	return a
}

func isIntKind(k value.Kind) bool {
	switch k {
	case value.KindTinyInt, value.KindSmallInt, value.KindInt, value.KindBigInt:
		return true
	}
	return false
}

func isFloatKind(k value.Kind) bool {
	return k == value.KindFloat || k == value.KindDouble
}

func floatOf(v value.Value) float64 {
	if v.Kind() == value.KindFloat {
		return float64(v.Float32())
	}
	return v.Float64()
}

// evalCollectionAccess evaluates list[i]/map['k']/CONTAINS expressions
// (spec §4.9, §11 supplement #3). Grounded on
// cqlite-core's evaluate_collection_access: out-of-range list access and
// missing map keys evaluate to Null rather than erroring; wrong-kind
// targets are a TypeError.
func evalCollectionAccess(row *QueryRow, e *ast.Expr) (value.Value, error) {
	const op = "exec.evalCollectionAccess"
	target, err := evalExpr(row, e.Target)
	if err != nil {
		return value.Null, err
	}
	target = target.Unwrap()

	switch e.Kind {
	case ast.ExprListIndex:
		if target.Kind() != value.KindList && target.Kind() != value.KindTuple {
			return value.Null, xerrors.New(xerrors.KindTypeError, op).WithWhere("list index on non-list")
		}
		idx, err := evalExpr(row, e.Index)
		if err != nil {
			return value.Null, err
		}
		if !isIntKind(idx.Kind()) {
			return value.Null, xerrors.New(xerrors.KindTypeError, op).WithWhere("non-integer list index")
		}
		i := idx.Int64()
		elems := target.Elements()
		if i < 0 || i >= int64(len(elems)) {
			return value.Null, nil
		}
		return elems[i], nil

	case ast.ExprMapIndex:
		if target.Kind() != value.KindMap {
			return value.Null, xerrors.New(xerrors.KindTypeError, op).WithWhere("map index on non-map")
		}
		key, err := evalExpr(row, e.Index)
		if err != nil {
			return value.Null, err
		}
		for _, p := range target.Pairs() {
			if value.CompareValues(p.Key, key) == 0 {
				return p.Value, nil
			}
		}
		return value.Null, nil

	case ast.ExprSetContains:
		if target.Kind() != value.KindSet && target.Kind() != value.KindList {
			return value.Null, xerrors.New(xerrors.KindTypeError, op).WithWhere("CONTAINS on non-collection")
		}
		needle, err := evalExpr(row, e.Index)
		if err != nil {
			return value.Null, err
		}
		for _, elem := range target.Elements() {
			if value.CompareValues(elem, needle) == 0 {
				return value.NewBoolean(true), nil
			}
		}
		return value.NewBoolean(false), nil
	}
	return value.Null, xerrors.New(xerrors.KindUnsupportedFeature, op)
}

// evalWhere evaluates a WHERE boolean tree against one row (spec §4.11),
// collapsing CQL's three-valued logic to plain bool: any comparison
// involving a NULL operand (other than IS [NOT] NULL) is false rather than
// "unknown", since the executor's only decision is "keep this row or not."
func evalWhere(row *QueryRow, w *ast.WhereExpr) (bool, error) {
	if w == nil {
		return true, nil
	}
	if w.Kind == ast.WhereBool {
		switch w.BoolOp {
		case ast.BoolNot:
			v, err := evalWhere(row, w.Left)
			if err != nil {
				return false, err
			}
			return !v, nil
		case ast.BoolOr:
			l, err := evalWhere(row, w.Left)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return evalWhere(row, w.Right)
		default: // BoolAnd
			l, err := evalWhere(row, w.Left)
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return evalWhere(row, w.Right)
		}
	}
	return evalComparison(row, w)
}

func evalComparison(row *QueryRow, w *ast.WhereExpr) (bool, error) {
	const op = "exec.evalComparison"
	left, err := evalExpr(row, &w.Column)
	if err != nil {
		return false, err
	}

	if w.Comparison == ast.OpIsNull {
		return left.IsNull(), nil
	}
	if w.Comparison == ast.OpIsNotNull {
		return !left.IsNull(), nil
	}
	if left.IsNull() {
		return false, nil
	}

	switch w.Comparison {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		right, err := evalExpr(row, &w.Args[0])
		if err != nil {
			return false, err
		}
		if right.IsNull() {
			return false, nil
		}
		c := value.CompareValues(left, right)
		switch w.Comparison {
		case ast.OpEq:
			return c == 0, nil
		case ast.OpNeq:
			return c != 0, nil
		case ast.OpLt:
			return c < 0, nil
		case ast.OpLte:
			return c <= 0, nil
		case ast.OpGt:
			return c > 0, nil
		default: // OpGte
			return c >= 0, nil
		}

	case ast.OpIn:
		for i := range w.Args {
			v, err := evalExpr(row, &w.Args[i])
			if err != nil {
				return false, err
			}
			if !v.IsNull() && value.CompareValues(left, v) == 0 {
				return true, nil
			}
		}
		return false, nil

	case ast.OpBetween:
		if len(w.Args) != 2 {
			return false, xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("BETWEEN needs two bounds")
		}
		lo, err := evalExpr(row, &w.Args[0])
		if err != nil {
			return false, err
		}
		hi, err := evalExpr(row, &w.Args[1])
		if err != nil {
			return false, err
		}
		if lo.IsNull() || hi.IsNull() {
			return false, nil
		}
		return value.CompareValues(left, lo) >= 0 && value.CompareValues(left, hi) <= 0, nil

	case ast.OpLike:
		right, err := evalExpr(row, &w.Args[0])
		if err != nil {
			return false, err
		}
		if !isTextKind(left.Kind()) || !isTextKind(right.Kind()) {
			return false, nil
		}
		return matchLike(left.Text(), right.Text()), nil

	case ast.OpContains:
		unwrapped := left.Unwrap()
		if unwrapped.Kind() != value.KindSet && unwrapped.Kind() != value.KindList {
			return false, xerrors.New(xerrors.KindTypeError, op).WithWhere("CONTAINS on non-collection")
		}
		needle, err := evalExpr(row, &w.Args[0])
		if err != nil {
			return false, err
		}
		for _, elem := range unwrapped.Elements() {
			if value.CompareValues(elem, needle) == 0 {
				return true, nil
			}
		}
		return false, nil

	case ast.OpContainsKey:
		unwrapped := left.Unwrap()
		if unwrapped.Kind() != value.KindMap {
			return false, xerrors.New(xerrors.KindTypeError, op).WithWhere("CONTAINS KEY on non-map")
		}
		needle, err := evalExpr(row, &w.Args[0])
		if err != nil {
			return false, err
		}
		for _, p := range unwrapped.Pairs() {
			if value.CompareValues(p.Key, needle) == 0 {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, xerrors.New(xerrors.KindUnsupportedFeature, op)
	}
}

func isTextKind(k value.Kind) bool {
	return k == value.KindText || k == value.KindAscii
}
