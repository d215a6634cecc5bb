// Package schema holds declarative table/column/UDT metadata (spec §3.3,
// §4.6): the row decoder and executor both consult it to know how to
// interpret raw bytes, but it carries no parsing logic of its own beyond
// value validation.
package schema

import (
	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/value"
)

// Column is one declared column of a table (spec §3.3).
type Column struct {
	Name     string
	Type     codec.TypeDesc
	Nullable bool
}

// KeyColumn is a partition or clustering column; Direction is meaningful
// only for clustering columns (spec §3.2, §3.3).
type KeyColumn struct {
	Name      string
	Type      codec.TypeDesc
	Direction value.Direction
}

// TableSchema is the full declarative shape of one table (spec §3.3).
type TableSchema struct {
	Keyspace       string
	Name           string
	PartitionKeys  []KeyColumn // declaration order
	ClusteringKeys []KeyColumn // declaration order
	Columns        []Column    // superset including key columns
	Comments       string
}

// ColumnByName returns the declared column named name, or false if absent.
func (s *TableSchema) ColumnByName(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// OrderedPartitionKeys returns the partition-key columns in declaration
// order (spec §4.6).
func (s *TableSchema) OrderedPartitionKeys() []KeyColumn { return s.PartitionKeys }

// OrderedClusteringKeys returns the clustering columns in declaration order,
// each carrying its sort direction (spec §4.6).
func (s *TableSchema) OrderedClusteringKeys() []KeyColumn { return s.ClusteringKeys }

// NonKeyColumns returns the columns that are neither partition nor
// clustering keys, in declaration order — the set the row decoder's
// presence bitmask indexes into (spec §4.7).
func (s *TableSchema) NonKeyColumns() []Column {
	isKey := make(map[string]bool, len(s.PartitionKeys)+len(s.ClusteringKeys))
	for _, k := range s.PartitionKeys {
		isKey[k.Name] = true
	}
	for _, k := range s.ClusteringKeys {
		isKey[k.Name] = true
	}
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !isKey[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// ValidateValue enforces that v's variant is compatible with t, and — for
// non-nullable columns — that v is not null (spec §4.6).
func ValidateValue(v value.Value, t codec.TypeDesc, nullable bool) error {
	const op = "schema.ValidateValue"
	for t.Kind == codec.TypeFrozen {
		t = *t.Elem
	}
	uv := v.Unwrap()
	if uv.IsNull() {
		if !nullable {
			return xerrors.New(xerrors.KindSchemaMismatch, op).WithWhere("null value for non-nullable column")
		}
		return nil
	}
	if err := value.ValidateCollection(uv); err != nil {
		return err
	}
	wantKind := kindOf(t)
	if wantKind != 0 && uv.Kind() != wantKind {
		return xerrors.New(xerrors.KindTypeError, op).WithWhere("value kind " + uv.Kind().String() + " does not match column type " + t.Kind.String())
	}
	return nil
}

// kindOf maps a TypeDesc to the value.Kind a valid Value of that type must
// carry, collection/tuple/udt/frozen kinds included; returns 0
// (value.KindNull, used here as "no constraint") only for a type it does
// not recognize.
func kindOf(t codec.TypeDesc) value.Kind {
	switch t.Kind {
	case codec.TypeBoolean:
		return value.KindBoolean
	case codec.TypeTinyInt:
		return value.KindTinyInt
	case codec.TypeSmallInt:
		return value.KindSmallInt
	case codec.TypeInt:
		return value.KindInt
	case codec.TypeBigInt:
		return value.KindBigInt
	case codec.TypeFloat:
		return value.KindFloat
	case codec.TypeDouble:
		return value.KindDouble
	case codec.TypeText:
		return value.KindText
	case codec.TypeAscii:
		return value.KindAscii
	case codec.TypeBlob:
		return value.KindBlob
	case codec.TypeTimestamp:
		return value.KindTimestamp
	case codec.TypeDate:
		return value.KindDate
	case codec.TypeTime:
		return value.KindTime
	case codec.TypeUuid:
		return value.KindUuid
	case codec.TypeTimeUuid:
		return value.KindTimeUuid
	case codec.TypeInet:
		return value.KindInet
	case codec.TypeDuration:
		return value.KindDuration
	case codec.TypeDecimal:
		return value.KindDecimal
	case codec.TypeList:
		return value.KindList
	case codec.TypeSet:
		return value.KindSet
	case codec.TypeMap:
		return value.KindMap
	case codec.TypeTuple:
		return value.KindTuple
	case codec.TypeUdt:
		return value.KindUdt
	case codec.TypeFrozen:
		return value.KindFrozen
	default:
		return value.KindNull
	}
}
