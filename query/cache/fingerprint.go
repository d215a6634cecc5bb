// Package cache holds the two lookup caches that sit in front of query
// planning and execution (spec §3.6, §4.12): a plan cache and a TTL-bounded
// result cache, both keyed by a statement's structural fingerprint
// (StatementFingerprint).
//
// Grounded on cqlite-core's optimized_executor.rs, which hashes
// `format!("{:?}", plan)` through a DefaultHasher to get a cache key. A Go
// struct's default %v/%+v rendering prints nested pointer fields (the
// WhereExpr tree, Expr.Left/Right/Inner) as bare hex addresses rather than
// their pointee, so the same trick would make every freshly-parsed
// statement fingerprint differently even when structurally identical.
// Fingerprint below walks the AST explicitly instead, rendering every
// literal value, column name, operator, and clause in a stable order.
package cache

import (
	"strconv"
	"strings"

	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/value"
	"github.com/zeebo/xxh3"
)

// StatementFingerprint hashes the parts of a statement that decide its
// query plan and result set: table identity, projection, WHERE tree
// (including literal operand values), GROUP BY, HAVING, ORDER BY,
// LIMIT/OFFSET, and the ALLOW FILTERING flag. Two statements that render
// identically here are interchangeable for both plan-cache and
// result-cache purposes (spec §4.12's "stable hash of the optimized plan,
// not the raw SQL text" — whitespace and identifier case are already
// normalized by the parser; projection aliases are rendered, so statements
// differing only in an alias fingerprint differently).
func StatementFingerprint(table value.TableId, stmt *ast.SelectStatement) uint64 {
	var b strings.Builder
	b.WriteString(table.Keyspace)
	b.WriteByte('.')
	b.WriteString(table.Name)
	b.WriteByte('|')
	writeSelectClause(&b, stmt.Select)
	b.WriteByte('|')
	writeWhere(&b, stmt.Where)
	b.WriteByte('|')
	for i, e := range stmt.GroupBy {
		if i > 0 {
			b.WriteByte(',')
		}
		writeExpr(&b, &e)
	}
	b.WriteByte('|')
	writeWhere(&b, stmt.Having)
	b.WriteByte('|')
	for i, o := range stmt.OrderBy {
		if i > 0 {
			b.WriteByte(',')
		}
		writeExpr(&b, &o.Expr)
		if o.Descending {
			b.WriteString(" DESC")
		}
	}
	b.WriteByte('|')
	if stmt.Limit != nil {
		b.WriteString("limit=")
		b.WriteString(strconv.FormatUint(*stmt.Limit, 10))
	}
	b.WriteByte('|')
	if stmt.Offset != nil {
		b.WriteString("offset=")
		b.WriteString(strconv.FormatUint(*stmt.Offset, 10))
	}
	b.WriteByte('|')
	if stmt.AllowFiltering {
		b.WriteString("allow_filtering")
	}
	return xxh3.Hash([]byte(b.String()))
}

// PlanFingerprint hashes a compiled plan's human-readable steps plus its
// AllowFiltering flag. Unlike StatementFingerprint it never sees literal
// WHERE values (Plan.Steps() deliberately omits them — they're only
// needed for execution, not for describing the plan's shape), so this
// alone is not a safe result-cache key: two point lookups on different
// partition keys compile to the same steps text. It is, however, exactly
// the "hash of the optimized plan" spec §4.12/§6 describes. Nothing in this
// repository calls it; engine.Select keys both caches by
// StatementFingerprint.
func PlanFingerprint(plan *planner.Plan) uint64 {
	var b strings.Builder
	for i, s := range plan.Steps() {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(s)
	}
	if plan.AllowFiltering {
		b.WriteString("|allow_filtering")
	}
	return xxh3.Hash([]byte(b.String()))
}

func writeSelectClause(b *strings.Builder, sel ast.SelectClause) {
	if sel.Star {
		b.WriteString("*")
		return
	}
	if sel.Distinct {
		b.WriteString("DISTINCT ")
	}
	for i := range sel.Exprs {
		if i > 0 {
			b.WriteByte(',')
		}
		writeExpr(b, &sel.Exprs[i])
	}
}

func writeWhere(b *strings.Builder, w *ast.WhereExpr) {
	if w == nil {
		b.WriteString("true")
		return
	}
	if w.Kind == ast.WhereBool {
		b.WriteByte('(')
		switch w.BoolOp {
		case ast.BoolNot:
			b.WriteString("NOT ")
			writeWhere(b, w.Left)
		case ast.BoolOr:
			writeWhere(b, w.Left)
			b.WriteString(" OR ")
			writeWhere(b, w.Right)
		default:
			writeWhere(b, w.Left)
			b.WriteString(" AND ")
			writeWhere(b, w.Right)
		}
		b.WriteByte(')')
		return
	}
	writeExpr(b, &w.Column)
	b.WriteByte(' ')
	b.WriteString(w.Comparison.String())
	for _, a := range w.Args {
		b.WriteByte(' ')
		writeExpr(b, &a)
	}
}

func writeExpr(b *strings.Builder, e *ast.Expr) {
	switch e.Kind {
	case ast.ExprColumn:
		b.WriteString(e.Column)
	case ast.ExprLiteral:
		b.WriteString(e.Literal.Kind().String())
		b.WriteByte(':')
		b.WriteString(e.Literal.String())
	case ast.ExprAggregate:
		b.WriteString(e.AggFunc.String())
		b.WriteByte('(')
		if e.AggArg != nil {
			writeExpr(b, e.AggArg)
		} else {
			b.WriteByte('*')
		}
		b.WriteByte(')')
	case ast.ExprArith:
		b.WriteByte('(')
		writeExpr(b, e.Left)
		b.WriteByte(' ')
		b.WriteString(arithSymbol(e.Op))
		b.WriteByte(' ')
		writeExpr(b, e.Right)
		b.WriteByte(')')
	case ast.ExprAlias:
		writeExpr(b, e.Inner)
		b.WriteString(" AS ")
		b.WriteString(e.As)
	case ast.ExprListIndex, ast.ExprMapIndex:
		writeExpr(b, e.Target)
		b.WriteByte('[')
		writeExpr(b, e.Index)
		b.WriteByte(']')
	case ast.ExprSetContains:
		writeExpr(b, e.Target)
		b.WriteString(" CONTAINS ")
		writeExpr(b, e.Index)
	case ast.ExprStar:
		b.WriteString("*")
	}
}

func arithSymbol(op ast.ArithOp) string {
	switch op {
	case ast.ArithAdd:
		return "+"
	case ast.ArithSub:
		return "-"
	case ast.ArithMul:
		return "*"
	case ast.ArithDiv:
		return "/"
	case ast.ArithMod:
		return "%"
	default:
		return "?"
	}
}
