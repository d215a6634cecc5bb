// Package ast holds the immutable data structures a parsed CQL SELECT
// statement is represented as (spec §4.9, §6.2): the core accepts a fully
// parsed AST and never parses CQL text itself — that grammar belongs to an
// external collaborator. Case of identifiers is preserved as given;
// comparisons on identifiers are case-sensitive (spec §6.2).
//
// Grounded on cqlite-core's select_parser.rs/select_executor.rs naming for
// SelectExpression/ComparisonOperator/AggregateFunction shapes (the parser
// itself is out of scope; only the AST shape it builds is relevant here).
package ast

import "github.com/cqlsst/cqlsst/value"

// TableRef names the table a SELECT reads from. Join is declared so the
// grammar in §4.9 has somewhere to put it, but query/planner rejects any
// statement whose From is a Join (spec §4.9: "JOIN is declared but rejected
// by the planner").
type TableRef struct {
	Keyspace string
	Table    string
	Alias    string // empty if none
}

// Join is carried only so a collaborator's parser can build a well-formed
// AST for a JOIN statement; query/planner always rejects it with
// UnsupportedFeature.
type Join struct {
	Left  TableRef
	Right TableRef
	On    Expr
}

// From is the source of rows for a SELECT: exactly one of Table or Join is
// set.
type From struct {
	Table *TableRef
	Join  *Join
}

// AggregateFunc names a supported aggregate (spec §4.9).
type AggregateFunc uint8

const (
	AggCount AggregateFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (f AggregateFunc) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "?"
	}
}

// ArithOp names a binary arithmetic operator over two expressions (spec
// §4.9: "arithmetic").
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

// ExprKind tags the variant an Expr holds.
type ExprKind uint8

const (
	ExprColumn ExprKind = iota
	ExprLiteral
	ExprAggregate
	ExprArith
	ExprAlias
	ExprListIndex   // list[i]
	ExprMapIndex    // map['k']
	ExprSetContains // set CONTAINS x, as an expression producing a boolean
	ExprStar        // SELECT *
)

// Expr is a projected or evaluated expression: a column reference, a
// literal, an aggregate call, arithmetic over two sub-expressions,
// collection element access, or an aliasing wrapper (spec §4.9). Exactly
// the fields relevant to Kind are populated; callers must switch on Kind
// before reading them.
type Expr struct {
	Kind ExprKind

	// ExprColumn
	Column string

	// ExprLiteral
	Literal value.Value

	// ExprAggregate
	AggFunc AggregateFunc
	AggArg  *Expr // nil for COUNT(*)

	// ExprArith
	Op    ArithOp
	Left  *Expr
	Right *Expr

	// ExprAlias
	Inner *Expr
	As    string

	// ExprListIndex / ExprMapIndex / ExprSetContains
	Target *Expr // the collection-valued expression
	Index  *Expr // list index (integer literal/expr) or map key
}

// Column builds a column-reference Expr.
func Column(name string) Expr { return Expr{Kind: ExprColumn, Column: name} }

// Literal builds a literal-value Expr.
func Literal(v value.Value) Expr { return Expr{Kind: ExprLiteral, Literal: v} }

// Aggregate builds an aggregate-call Expr; arg is nil for COUNT(*).
func Aggregate(fn AggregateFunc, arg *Expr) Expr {
	return Expr{Kind: ExprAggregate, AggFunc: fn, AggArg: arg}
}

// Arith builds a binary arithmetic Expr.
func Arith(op ArithOp, left, right Expr) Expr {
	return Expr{Kind: ExprArith, Op: op, Left: &left, Right: &right}
}

// Alias wraps inner with an output name.
func Alias(inner Expr, as string) Expr {
	return Expr{Kind: ExprAlias, Inner: &inner, As: as}
}

// ListIndex builds a `target[index]` Expr.
func ListIndex(target, index Expr) Expr {
	return Expr{Kind: ExprListIndex, Target: &target, Index: &index}
}

// MapIndex builds a `target['key']` Expr.
func MapIndex(target, key Expr) Expr {
	return Expr{Kind: ExprMapIndex, Target: &target, Index: &key}
}

// SetContains builds a `target CONTAINS needle` boolean-valued Expr.
func SetContains(target, needle Expr) Expr {
	return Expr{Kind: ExprSetContains, Target: &target, Index: &needle}
}

// Star builds the `SELECT *` projection marker.
func Star() Expr { return Expr{Kind: ExprStar} }

// SelectClause is the projection list of a SELECT: either every column
// (Star) or an explicit, possibly-aliased, possibly-deduplicated expression
// list (spec §4.9).
type SelectClause struct {
	Star     bool
	Distinct bool
	Exprs    []Expr // ignored when Star is true
}

// ComparisonOp names a WHERE-clause comparison operator (spec §4.9).
type ComparisonOp uint8

const (
	OpEq ComparisonOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpBetween
	OpLike
	OpIsNull
	OpIsNotNull
	OpContains
	OpContainsKey
)

func (op ComparisonOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpIn:
		return "IN"
	case OpBetween:
		return "BETWEEN"
	case OpLike:
		return "LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpContains:
		return "CONTAINS"
	case OpContainsKey:
		return "CONTAINS KEY"
	default:
		return "?"
	}
}

// BoolOp combines two WHERE sub-trees (spec §4.9: "WHERE is a boolean
// tree").
type BoolOp uint8

const (
	BoolAnd BoolOp = iota
	BoolOr
	BoolNot
)

// WhereKind tags the variant a WhereExpr holds.
type WhereKind uint8

const (
	WhereComparison WhereKind = iota
	WhereBool
)

// WhereExpr is one node of the WHERE boolean tree: either a leaf comparison
// or a boolean combinator over one or two sub-trees (Not uses only Left).
type WhereExpr struct {
	Kind WhereKind

	// WhereComparison
	Comparison ComparisonOp
	Column     Expr // the left-hand expression being compared
	// Args holds the comparison operands: one for =/!=/</<=/>/>=/LIKE/
	// CONTAINS/CONTAINS KEY, N for IN, two for BETWEEN, zero for IS [NOT] NULL.
	Args []Expr

	// WhereBool
	BoolOp BoolOp
	Left   *WhereExpr
	Right  *WhereExpr // nil when BoolOp is BoolNot
}

// Cmp builds a leaf comparison node.
func Cmp(op ComparisonOp, column Expr, args ...Expr) *WhereExpr {
	return &WhereExpr{Kind: WhereComparison, Comparison: op, Column: column, Args: args}
}

// And combines two WHERE sub-trees with AND.
func And(left, right *WhereExpr) *WhereExpr {
	return &WhereExpr{Kind: WhereBool, BoolOp: BoolAnd, Left: left, Right: right}
}

// Or combines two WHERE sub-trees with OR.
func Or(left, right *WhereExpr) *WhereExpr {
	return &WhereExpr{Kind: WhereBool, BoolOp: BoolOr, Left: left, Right: right}
}

// Not negates a WHERE sub-tree.
func Not(inner *WhereExpr) *WhereExpr {
	return &WhereExpr{Kind: WhereBool, BoolOp: BoolNot, Left: inner}
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// SelectStatement is an immutable, fully parsed SELECT (spec §4.9). Nil
// pointer fields mean "absent clause."
type SelectStatement struct {
	Select  SelectClause
	From    From
	Where   *WhereExpr
	GroupBy []Expr
	Having  *WhereExpr
	OrderBy []OrderItem
	Limit   *uint64
	Offset  *uint64

	AllowFiltering bool
}
