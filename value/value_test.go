package value

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNullIsDistinctFromZero(t *testing.T) {
	require.True(t, Null.IsNull())
	require.False(t, NewInt(0).IsNull())
}

func TestFrozenUnwrapIsIdempotent(t *testing.T) {
	inner := NewText("hello")
	frozen := NewFrozen(inner)
	require.Equal(t, KindFrozen, frozen.Kind())
	require.Equal(t, "hello", frozen.Unwrap().Text())
	require.Equal(t, "hello", frozen.Unwrap().Unwrap().Text())
}

func TestCompareValuesOrdersNullsFirst(t *testing.T) {
	require.Equal(t, -1, CompareValues(Null, NewInt(1)))
	require.Equal(t, 1, CompareValues(NewInt(1), Null))
	require.Equal(t, 0, CompareValues(Null, Null))
}

func TestCompareValuesNumeric(t *testing.T) {
	require.Equal(t, -1, CompareValues(NewInt(1), NewInt(2)))
	require.Equal(t, 1, CompareValues(NewBigInt(10), NewBigInt(-10)))
	require.Equal(t, 0, CompareValues(NewDouble(1.5), NewDouble(1.5)))
}

func TestCompareValuesText(t *testing.T) {
	require.Equal(t, -1, CompareValues(NewText("a"), NewText("b")))
}

func TestCompareValuesThroughFrozen(t *testing.T) {
	a := NewFrozen(NewInt(1))
	b := NewInt(2)
	require.Equal(t, -1, CompareValues(a, b))
}

func TestClusteringKeyDescInverts(t *testing.T) {
	asc := ClusteringKey{Values: []Value{NewInt(1)}, Directions: []Direction{Asc}}
	desc := ClusteringKey{Values: []Value{NewInt(2)}, Directions: []Direction{Desc}}
	// asc(1) vs desc(2): plain numeric compare would say 1<2 i.e. -1,
	// but direction only flips within a single key's own components when
	// compared against another key sharing that column's direction; here we
	// just check a single key's Desc component inverts against a bigger one
	// under the *same* direction.
	a := ClusteringKey{Values: []Value{NewInt(1)}, Directions: []Direction{Desc}}
	b := ClusteringKey{Values: []Value{NewInt(2)}, Directions: []Direction{Desc}}
	require.Equal(t, 1, a.Compare(b)) // 1 sorts after 2 under DESC
	_ = asc
	_ = desc
}

func TestRowKeyCompareLexicographic(t *testing.T) {
	require.True(t, RowKey([]byte{1, 2}).Compare(RowKey([]byte{1, 3})) < 0)
	require.Equal(t, 0, RowKey([]byte("x")).Compare(RowKey([]byte("x"))))
}

func TestValidateCollectionHeterogeneous(t *testing.T) {
	list := NewList([]Value{NewInt(1), NewText("x")})
	require.Error(t, ValidateCollection(list))
}

func TestValidateCollectionHomogeneousWithNulls(t *testing.T) {
	list := NewList([]Value{NewInt(1), Null, NewInt(3)})
	require.NoError(t, ValidateCollection(list))
}

func TestValidateCollectionDuplicateMapKey(t *testing.T) {
	m := NewMap([]Pair{
		{Key: NewInt(1), Value: NewText("a")},
		{Key: NewInt(1), Value: NewText("b")},
	})
	require.Error(t, ValidateCollection(m))
}

func TestDecimalCompareSameScale(t *testing.T) {
	a := NewDecimal(Decimal{Scale: 2, Unscaled: big.NewInt(150)})
	b := NewDecimal(Decimal{Scale: 2, Unscaled: big.NewInt(200)})
	require.Equal(t, -1, CompareValues(a, b))
}

func TestDecimalCompareDifferentScale(t *testing.T) {
	// 1.50 == 1.500
	a := NewDecimal(Decimal{Scale: 2, Unscaled: big.NewInt(150)})
	b := NewDecimal(Decimal{Scale: 3, Unscaled: big.NewInt(1500)})
	require.Equal(t, 0, CompareValues(a, b))
}

func TestUuidRoundTripsThroughValue(t *testing.T) {
	id := uuid.New()
	v := NewUuid(id)
	require.Equal(t, id, v.UUID())
}
