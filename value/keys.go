package value

import (
	"bytes"
	"math/big"
)

// RowKey is an opaque, ordered byte sequence with lexicographic Compare
// (spec §3.2). It carries range-tombstone bounds for comparison; the
// reader finds partition boundaries from index offsets, not from RowKey.
type RowKey []byte

// Compare returns <0, 0, >0 as k sorts before, equal to, or after other,
// lexicographically over bytes.
func (k RowKey) Compare(other RowKey) int {
	return bytes.Compare(k, other)
}

// Direction is a clustering column's declared sort direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

// TableId identifies a table by (keyspace, name) (spec §3.2).
type TableId struct {
	Keyspace string
	Name     string
}

// PartitionKey is an ordered sequence of Values matching the partition-key
// columns in their declared positions (spec §3.2).
type PartitionKey struct {
	Values []Value
}

// ClusteringKey is an ordered sequence of Values matching the clustering
// columns; comparison is lexicographic over components, with DESC columns
// inverted per the table's declared directions (spec §3.2).
type ClusteringKey struct {
	Values     []Value
	Directions []Direction // parallel to Values; Asc if shorter than Values
}

func (k ClusteringKey) directionAt(i int) Direction {
	if i < len(k.Directions) {
		return k.Directions[i]
	}
	return Asc
}

// Compare orders two clustering keys component-by-component, applying each
// column's declared direction, per spec §3.2.
func (k ClusteringKey) Compare(other ClusteringKey) int {
	n := min(len(k.Values), len(other.Values))
	for i := 0; i < n; i++ {
		c := CompareValues(k.Values[i], other.Values[i])
		if k.directionAt(i) == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(k.Values) < len(other.Values):
		return -1
	case len(k.Values) > len(other.Values):
		return 1
	default:
		return 0
	}
}

// CompareValues orders two scalar Values of the same kind. Nulls sort less
// than any non-null (spec §8.1 Sort invariant, reused here for clustering
// comparisons). Mixed non-null kinds compare by Kind as a last resort so
// that Compare always returns a total order, but callers should not rely on
// cross-type ordering beyond null-handling.
func CompareValues(a, b Value) int {
	a = a.Unwrap()
	b = b.Unwrap()
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindBoolean:
		return boolCompare(a.b, b.b)
	case KindTinyInt, KindSmallInt, KindInt, KindBigInt, KindTimestamp, KindDate, KindTime:
		return int64Compare(a.i64, b.i64)
	case KindFloat:
		return float64Compare(float64(a.f32), float64(b.f32))
	case KindDouble:
		return float64Compare(a.f64, b.f64)
	case KindText, KindAscii, KindBlob, KindInet:
		return bytes.Compare(a.bytes, b.bytes)
	case KindUuid, KindTimeUuid:
		return bytes.Compare(a.uuid[:], b.uuid[:])
	case KindDecimal:
		return decimalCompare(a.decimal, b.decimal)
	default:
		return 0
	}
}

func boolCompare(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func float64Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func decimalCompare(a, b Decimal) int {
	if a.Scale == b.Scale {
		return a.Unscaled.Cmp(b.Unscaled)
	}
	// Different scales: compare as exact rationals (unscaled / 10^scale)
	// rather than rescaling, to avoid inventing spurious precision.
	av := new(big.Rat).SetFrac(a.Unscaled, pow10(a.Scale))
	bv := new(big.Rat).SetFrac(b.Unscaled, pow10(b.Scale))
	return av.Cmp(bv)
}

func pow10(scale int32) *big.Int {
	if scale < 0 {
		scale = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
}
