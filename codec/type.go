// Package codec implements per-CqlType binary parse/serialize (spec §4.5):
// the fixed-width scalar codecs, the Decimal/Duration/UUID special cases,
// and the shared length-prefixed framing collections, tuples, and UDTs all
// build on.
package codec

import "github.com/cqlsst/cqlsst/value"

// CqlType identifies the wire type a column or collection element is
// declared as. Collection/tuple/UDT/frozen types carry their Elem/Key/Val/
// Tuple/UdtName descriptors alongside the Kind tag (see TypeDesc in
// collection.go).
type CqlType uint8

const (
	TypeBoolean CqlType = iota
	TypeTinyInt
	TypeSmallInt
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDouble
	TypeText
	TypeAscii
	TypeBlob
	TypeTimestamp
	TypeDate
	TypeTime
	TypeUuid
	TypeTimeUuid
	TypeInet
	TypeDuration
	TypeDecimal
	TypeList
	TypeSet
	TypeMap
	TypeTuple
	TypeUdt
	TypeFrozen
)

func (t CqlType) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeTinyInt:
		return "tinyint"
	case TypeSmallInt:
		return "smallint"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeText:
		return "text"
	case TypeAscii:
		return "ascii"
	case TypeBlob:
		return "blob"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeUuid:
		return "uuid"
	case TypeTimeUuid:
		return "timeuuid"
	case TypeInet:
		return "inet"
	case TypeDuration:
		return "duration"
	case TypeDecimal:
		return "decimal"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeMap:
		return "map"
	case TypeTuple:
		return "tuple"
	case TypeUdt:
		return "udt"
	case TypeFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// IsScalar reports whether t has a direct Parse/Serialize implementation in
// this package (i.e. it is not a collection/tuple/udt/frozen container,
// which instead recurse through codec.ParseValue with element type info
// supplied by the schema).
func (t CqlType) IsScalar() bool {
	switch t {
	case TypeList, TypeSet, TypeMap, TypeTuple, TypeUdt, TypeFrozen:
		return false
	default:
		return true
	}
}

// valueKindOf maps a scalar CqlType to the value.Kind its parsed Value
// carries.
func valueKindOf(t CqlType) value.Kind {
	switch t {
	case TypeBoolean:
		return value.KindBoolean
	case TypeTinyInt:
		return value.KindTinyInt
	case TypeSmallInt:
		return value.KindSmallInt
	case TypeInt:
		return value.KindInt
	case TypeBigInt:
		return value.KindBigInt
	case TypeFloat:
		return value.KindFloat
	case TypeDouble:
		return value.KindDouble
	case TypeText:
		return value.KindText
	case TypeAscii:
		return value.KindAscii
	case TypeBlob:
		return value.KindBlob
	case TypeTimestamp:
		return value.KindTimestamp
	case TypeDate:
		return value.KindDate
	case TypeTime:
		return value.KindTime
	case TypeUuid:
		return value.KindUuid
	case TypeTimeUuid:
		return value.KindTimeUuid
	case TypeInet:
		return value.KindInet
	case TypeDuration:
		return value.KindDuration
	case TypeDecimal:
		return value.KindDecimal
	default:
		return value.KindNull
	}
}
