// Package value implements the CQL value model (spec §3.1, §4.2): a closed
// tagged union covering every scalar, collection, tuple, UDT, frozen and
// tombstone variant, plus the size/type introspection the row decoder and
// executor rely on.
//
// Per the teacher's own design note (rockyardkv §9 DESIGN NOTES: "keep it a
// closed sum; introduce narrow traits only for codec dispatch"), Value is a
// single struct carrying a Kind tag and only the fields its variant needs;
// there is no interface hierarchy of value types.
package value

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags the variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindFloat
	KindDouble
	KindText
	KindAscii
	KindBlob
	KindTimestamp
	KindDate
	KindTime
	KindUuid
	KindTimeUuid
	KindInet
	KindDuration
	KindDecimal
	KindList
	KindSet
	KindMap
	KindTuple
	KindUdt
	KindFrozen
	KindTombstone
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindTinyInt:
		return "tinyint"
	case KindSmallInt:
		return "smallint"
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindText:
		return "text"
	case KindAscii:
		return "ascii"
	case KindBlob:
		return "blob"
	case KindTimestamp:
		return "timestamp"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindUuid:
		return "uuid"
	case KindTimeUuid:
		return "timeuuid"
	case KindInet:
		return "inet"
	case KindDuration:
		return "duration"
	case KindDecimal:
		return "decimal"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindUdt:
		return "udt"
	case KindFrozen:
		return "frozen"
	case KindTombstone:
		return "tombstone"
	default:
		return "unknown"
	}
}

// Duration is CQL's DURATION value: months, days, and nanoseconds are kept
// separate because calendar months/days are not a fixed number of
// nanoseconds (spec §3.1).
type Duration struct {
	Months int32
	Days   int32
	Nanos  int64
}

// Decimal is CQL's DECIMAL value: an arbitrary-precision unscaled integer
// and a base-10 scale (spec §3.1, §4.5). Wire encode/decode lives in codec/
// via math/big; ToShopspring converts for arithmetic convenience.
type Decimal struct {
	Scale    int32
	Unscaled *big.Int
}

// ToShopspring converts d to a shopspring/decimal.Decimal for arithmetic
// (query/exec's SUM/AVG aggregates over DECIMAL columns); the wire format
// itself stays on math/big since shopspring has no raw-bytes codec.
func (d Decimal) ToShopspring() decimal.Decimal {
	return decimal.NewFromBigInt(d.Unscaled, -d.Scale)
}

// DecimalFromShopspring converts back, for building a result Decimal from
// an aggregate computed in shopspring/decimal.
func DecimalFromShopspring(d decimal.Decimal) Decimal {
	return Decimal{Scale: -d.Exponent(), Unscaled: d.Coefficient()}
}

// Pair is one key/value entry of a Map value, preserving wire order.
type Pair struct {
	Key   Value
	Value Value
}

// UdtValue is a user-defined-type instance: ordered fields by schema
// declaration; a missing trailing field is represented as a null Value, not
// an absent entry (spec §3.1).
type UdtValue struct {
	Keyspace string
	TypeName string
	Fields   []UdtField
}

// UdtField is one named field of a UdtValue.
type UdtField struct {
	Name  string
	Value Value
}

// Value is the tagged union of every CQL value, including tombstones.
type Value struct {
	kind Kind

	b        bool
	i64      int64
	f32      float32
	f64      float64
	bytes    []byte // Text/Ascii/Blob/Inet raw bytes
	uuid     uuid.UUID
	duration Duration
	decimal  Decimal

	elems []Value // List/Set/Tuple elements
	pairs []Pair  // Map entries
	udt   *UdtValue
	inner *Value // Frozen's wrapped value

	tomb *Tombstone
}

// Null is the shared null value.
var Null = Value{kind: KindNull}

func NewBoolean(v bool) Value       { return Value{kind: KindBoolean, b: v} }
func NewTinyInt(v int8) Value       { return Value{kind: KindTinyInt, i64: int64(v)} }
func NewSmallInt(v int16) Value     { return Value{kind: KindSmallInt, i64: int64(v)} }
func NewInt(v int32) Value          { return Value{kind: KindInt, i64: int64(v)} }
func NewBigInt(v int64) Value       { return Value{kind: KindBigInt, i64: v} }
func NewFloat(v float32) Value      { return Value{kind: KindFloat, f32: v} }
func NewDouble(v float64) Value     { return Value{kind: KindDouble, f64: v} }
func NewText(v string) Value        { return Value{kind: KindText, bytes: []byte(v)} }
func NewAscii(v []byte) Value       { return Value{kind: KindAscii, bytes: v} }
func NewBlob(v []byte) Value        { return Value{kind: KindBlob, bytes: v} }
func NewTimestamp(usec int64) Value { return Value{kind: KindTimestamp, i64: usec} }
func NewDate(days int32) Value      { return Value{kind: KindDate, i64: int64(days)} }
func NewTime(nanos int64) Value     { return Value{kind: KindTime, i64: nanos} }
func NewUuid(id uuid.UUID) Value    { return Value{kind: KindUuid, uuid: id} }
func NewTimeUuid(id uuid.UUID) Value {
	return Value{kind: KindTimeUuid, uuid: id}
}
func NewInet(v []byte) Value          { return Value{kind: KindInet, bytes: v} }
func NewDurationValue(d Duration) Value { return Value{kind: KindDuration, duration: d} }
func NewDecimal(d Decimal) Value      { return Value{kind: KindDecimal, decimal: d} }

// NewList builds a List value. Callers are responsible for homogeneity
// (ValidateCollection enforces it).
func NewList(elems []Value) Value { return Value{kind: KindList, elems: elems} }

// NewSet builds a Set value; insertion order is preserved, de-duplication is
// the producer's obligation (spec §3.1).
func NewSet(elems []Value) Value { return Value{kind: KindSet, elems: elems} }

// NewMap builds a Map value as an ordered list of pairs (spec §3.1: "a list
// of pairs, not a mapping container").
func NewMap(pairs []Pair) Value { return Value{kind: KindMap, pairs: pairs} }

// NewTuple builds a positional, fixed-arity Tuple value.
func NewTuple(elems []Value) Value { return Value{kind: KindTuple, elems: elems} }

// NewUdt builds a Udt value.
func NewUdt(u *UdtValue) Value { return Value{kind: KindUdt, udt: u} }

// NewFrozen wraps v: same bytes, signals immutability (spec §3.1).
func NewFrozen(v Value) Value {
	inner := v
	return Value{kind: KindFrozen, inner: &inner}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool         { return v.b }
func (v Value) Int64() int64       { return v.i64 }
func (v Value) Float32() float32   { return v.f32 }
func (v Value) Float64() float64   { return v.f64 }
func (v Value) Bytes() []byte      { return v.bytes }
func (v Value) Text() string       { return string(v.bytes) }
func (v Value) UUID() uuid.UUID    { return v.uuid }
func (v Value) Duration() Duration { return v.duration }
func (v Value) Decimal() Decimal   { return v.decimal }
func (v Value) Elements() []Value  { return v.elems }
func (v Value) Pairs() []Pair      { return v.pairs }
func (v Value) Udt() *UdtValue     { return v.udt }

// Inner returns the wrapped value of a Frozen; panics on any other Kind.
func (v Value) Inner() Value {
	if v.kind != KindFrozen {
		panic("value: Inner called on non-Frozen value")
	}
	return *v.inner
}

// Unwrap returns v with any Frozen wrapper stripped (idempotent on
// non-Frozen values): the wrapper never changes the bytes, only the
// mutability signal (spec §3.1).
func (v Value) Unwrap() Value {
	for v.kind == KindFrozen {
		v = *v.inner
	}
	return v
}

// IsNull reports whether v is the Null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBoolean:
		return fmt.Sprintf("%v", v.b)
	case KindTinyInt, KindSmallInt, KindInt, KindBigInt, KindTimestamp, KindDate, KindTime:
		return fmt.Sprintf("%d", v.i64)
	case KindFloat:
		return fmt.Sprintf("%v", v.f32)
	case KindDouble:
		return fmt.Sprintf("%v", v.f64)
	case KindText, KindAscii:
		return v.Text()
	case KindBlob, KindInet:
		return fmt.Sprintf("%x", v.bytes)
	case KindUuid, KindTimeUuid:
		return v.uuid.String()
	case KindDuration:
		return fmt.Sprintf("%dmo%dd%dns", v.duration.Months, v.duration.Days, v.duration.Nanos)
	case KindDecimal:
		return fmt.Sprintf("%sE-%d", v.decimal.Unscaled.String(), v.decimal.Scale)
	case KindList:
		return fmt.Sprintf("%v", v.elems)
	case KindSet:
		return fmt.Sprintf("%v", v.elems)
	case KindMap:
		return fmt.Sprintf("%v", v.pairs)
	case KindTuple:
		return fmt.Sprintf("%v", v.elems)
	case KindUdt:
		return fmt.Sprintf("%+v", v.udt)
	case KindFrozen:
		return v.inner.String()
	case KindTombstone:
		return v.tomb.String()
	default:
		return "?"
	}
}
