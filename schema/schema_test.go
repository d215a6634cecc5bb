package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/value"
)

func sampleSchema() *TableSchema {
	return &TableSchema{
		Keyspace: "ks",
		Name:     "users",
		PartitionKeys: []KeyColumn{
			{Name: "id", Type: codec.Scalar(codec.TypeUuid)},
		},
		ClusteringKeys: []KeyColumn{
			{Name: "created_at", Type: codec.Scalar(codec.TypeTimestamp), Direction: value.Desc},
		},
		Columns: []Column{
			{Name: "id", Type: codec.Scalar(codec.TypeUuid)},
			{Name: "created_at", Type: codec.Scalar(codec.TypeTimestamp)},
			{Name: "name", Type: codec.Scalar(codec.TypeText), Nullable: true},
			{Name: "age", Type: codec.Scalar(codec.TypeInt)},
		},
	}
}

func TestNonKeyColumnsExcludesKeys(t *testing.T) {
	s := sampleSchema()
	nonKey := s.NonKeyColumns()
	require.Len(t, nonKey, 2)
	names := []string{nonKey[0].Name, nonKey[1].Name}
	require.ElementsMatch(t, []string{"name", "age"}, names)
}

func TestValidateValueRejectsNullForNonNullable(t *testing.T) {
	err := ValidateValue(value.Null, codec.Scalar(codec.TypeInt), false)
	require.Error(t, err)
}

func TestValidateValueAllowsNullForNullable(t *testing.T) {
	err := ValidateValue(value.Null, codec.Scalar(codec.TypeText), true)
	require.NoError(t, err)
}

func TestValidateValueRejectsTypeMismatch(t *testing.T) {
	err := ValidateValue(value.NewText("x"), codec.Scalar(codec.TypeInt), true)
	require.Error(t, err)
}

func TestValidateValueThroughFrozen(t *testing.T) {
	desc := codec.TypeDesc{Kind: codec.TypeFrozen, Elem: &codec.TypeDesc{Kind: codec.TypeInt}}
	err := ValidateValue(value.NewFrozen(value.NewInt(5)), desc, false)
	require.NoError(t, err)
}

func TestValidateUdtMissingTrailingFieldNullable(t *testing.T) {
	def := &UdtDef{
		Name: "addr",
		Fields: []UdtFieldDef{
			{Name: "street", Type: codec.Scalar(codec.TypeText)},
			{Name: "zip", Type: codec.Scalar(codec.TypeInt), Nullable: true},
		},
	}
	u := &value.UdtValue{TypeName: "addr", Fields: []value.UdtField{
		{Name: "street", Value: value.NewText("Main St")},
	}}
	require.NoError(t, ValidateUdt(u, def))
}

func TestValidateUdtMissingNonNullableTrailingField(t *testing.T) {
	def := &UdtDef{
		Name: "addr",
		Fields: []UdtFieldDef{
			{Name: "street", Type: codec.Scalar(codec.TypeText)},
			{Name: "zip", Type: codec.Scalar(codec.TypeInt), Nullable: false},
		},
	}
	u := &value.UdtValue{TypeName: "addr", Fields: []value.UdtField{
		{Name: "street", Value: value.NewText("Main St")},
	}}
	require.Error(t, ValidateUdt(u, def))
}

func TestValidateUdtNameMismatch(t *testing.T) {
	def := &UdtDef{Name: "addr"}
	u := &value.UdtValue{TypeName: "other"}
	require.Error(t, ValidateUdt(u, def))
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	def := &UdtDef{Keyspace: "ks", Name: "addr"}
	r.Register(def)

	got, ok := r.Lookup("ks", "addr")
	require.True(t, ok)
	require.Same(t, def, got)

	_, ok = r.Lookup("ks", "missing")
	require.False(t, ok)
}
