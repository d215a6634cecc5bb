package codec

import (
	"encoding/binary"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/value"
)

// TypeDesc fully describes a column's (or collection element's) CQL type,
// including nested element/key/value/field types for collections, tuples,
// and UDTs. The schema package builds these from parsed table metadata;
// codec only consumes them.
type TypeDesc struct {
	Kind CqlType

	Elem *TypeDesc // List/Set element type, or Frozen's wrapped type

	Key *TypeDesc // Map key type
	Val *TypeDesc // Map value type

	Tuple []TypeDesc // Tuple element types, in declared order

	UdtKeyspace string
	UdtName     string
	UdtFields   []UdtFieldDesc // declared order
}

// UdtFieldDesc is one field of a UDT type descriptor.
type UdtFieldDesc struct {
	Name string
	Type TypeDesc
}

// Scalar builds a TypeDesc for a plain scalar CqlType.
func Scalar(t CqlType) TypeDesc { return TypeDesc{Kind: t} }

// ParseValue decodes one value of the described type from the front of
// src, returning the Value and bytes consumed (spec §4.5). Scalars defer to
// ParseScalar; List/Set/Map/Tuple/Udt/Frozen apply the shared framing rules.
func ParseValue(t TypeDesc, src []byte) (value.Value, int, error) {
	if t.Kind.IsScalar() {
		return ParseScalar(t.Kind, src)
	}
	switch t.Kind {
	case TypeFrozen:
		if t.Elem == nil {
			return value.Value{}, 0, xerrors.New(xerrors.KindTypeError, "codec.ParseValue").WithWhere("frozen type missing inner type")
		}
		inner, n, err := ParseValue(*t.Elem, src)
		if err != nil {
			return value.Value{}, 0, err
		}
		return value.NewFrozen(inner), n, nil
	case TypeList, TypeSet:
		return parseSeq(t, src)
	case TypeMap:
		return parseMap(t, src)
	case TypeTuple:
		return parseTuple(t, src)
	case TypeUdt:
		return parseUdt(t, src)
	default:
		return value.Value{}, 0, xerrors.New(xerrors.KindTypeError, "codec.ParseValue").WithWhere(t.Kind.String())
	}
}

// SerializeValue is ParseValue's inverse (spec §4.5).
func SerializeValue(t TypeDesc, v value.Value) ([]byte, error) {
	if t.Kind.IsScalar() {
		return SerializeScalar(t.Kind, v)
	}
	v = v.Unwrap()
	switch t.Kind {
	case TypeFrozen:
		return SerializeValue(*t.Elem, v)
	case TypeList, TypeSet:
		return serializeSeq(*t.Elem, v.Elements())
	case TypeMap:
		return serializeMap(*t.Key, *t.Val, v.Pairs())
	case TypeTuple:
		return serializeTuple(t.Tuple, v.Elements())
	case TypeUdt:
		return serializeUdt(t.UdtFields, v.Udt())
	default:
		return nil, xerrors.New(xerrors.KindTypeError, "codec.SerializeValue").WithWhere(t.Kind.String())
	}
}

// parseElement reads a 4-byte BE signed length L, then: nil Value if
// L<0, else the next L bytes (spec §4.5: "negative = null element").
func parseElement(elemType TypeDesc, src []byte, pos int) (value.Value, int, error) {
	if len(src)-pos < 4 {
		return value.Value{}, 0, xerrors.Corrupt("codec.parseElement", "too_short")
	}
	length := int32(binary.BigEndian.Uint32(src[pos:]))
	pos += 4
	if length < 0 {
		return value.Null, pos, nil
	}
	if len(src)-pos < int(length) {
		return value.Value{}, 0, xerrors.Corrupt("codec.parseElement", "too_short")
	}
	v, _, err := ParseValue(elemType, src[pos:pos+int(length)])
	if err != nil {
		return value.Value{}, 0, err
	}
	return v, pos + int(length), nil
}

func appendElement(buf []byte, elemType TypeDesc, v value.Value) ([]byte, error) {
	if v.Unwrap().IsNull() {
		return appendI32(buf, -1), nil
	}
	enc, err := SerializeValue(elemType, v)
	if err != nil {
		return nil, err
	}
	buf = appendI32(buf, int32(len(enc)))
	return append(buf, enc...), nil
}

func appendI32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

// parseSeq parses List/Set framing: 4-byte BE count, then count
// length-prefixed elements.
func parseSeq(t TypeDesc, src []byte) (value.Value, int, error) {
	const op = "codec.parseSeq"
	if len(src) < 4 {
		return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
	}
	count := binary.BigEndian.Uint32(src)
	pos := 4
	elems := make([]value.Value, 0, count)
	for i := uint32(0); i < count; i++ {
		v, next, err := parseElement(*t.Elem, src, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		elems = append(elems, v)
		pos = next
	}
	var out value.Value
	if t.Kind == TypeSet {
		out = value.NewSet(elems)
	} else {
		out = value.NewList(elems)
	}
	if err := value.ValidateCollection(out); err != nil {
		return value.Value{}, 0, err
	}
	return out, pos, nil
}

func serializeSeq(elemType TypeDesc, elems []value.Value) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(elems)))
	var err error
	for _, e := range elems {
		buf, err = appendElement(buf, elemType, e)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// parseMap parses Map framing: 4-byte BE pair count, then alternating
// length-prefixed key/value elements (spec §4.5).
func parseMap(t TypeDesc, src []byte) (value.Value, int, error) {
	const op = "codec.parseMap"
	if len(src) < 4 {
		return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
	}
	count := binary.BigEndian.Uint32(src)
	pos := 4
	pairs := make([]value.Pair, 0, count)
	for i := uint32(0); i < count; i++ {
		k, next, err := parseElement(*t.Key, src, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		pos = next
		v, next, err := parseElement(*t.Val, src, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		pos = next
		pairs = append(pairs, value.Pair{Key: k, Value: v})
	}
	out := value.NewMap(pairs)
	if err := value.ValidateCollection(out); err != nil {
		return value.Value{}, 0, err
	}
	return out, pos, nil
}

func serializeMap(keyType, valType TypeDesc, pairs []value.Pair) ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(pairs)))
	var err error
	for _, p := range pairs {
		buf, err = appendElement(buf, keyType, p.Key)
		if err != nil {
			return nil, err
		}
		buf, err = appendElement(buf, valType, p.Value)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// parseTuple parses Tuple framing: no count prefix, arity from the schema,
// each element length-prefixed (spec §4.5).
func parseTuple(t TypeDesc, src []byte) (value.Value, int, error) {
	pos := 0
	elems := make([]value.Value, 0, len(t.Tuple))
	for _, et := range t.Tuple {
		v, next, err := parseElement(et, src, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		elems = append(elems, v)
		pos = next
	}
	return value.NewTuple(elems), pos, nil
}

func serializeTuple(elemTypes []TypeDesc, elems []value.Value) ([]byte, error) {
	var buf []byte
	var err error
	for i, et := range elemTypes {
		var v value.Value = value.Null
		if i < len(elems) {
			v = elems[i]
		}
		buf, err = appendElement(buf, et, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// parseUdt parses a UDT like a Tuple in declared field order; missing
// trailing fields are permitted and decode as null (spec §4.5).
func parseUdt(t TypeDesc, src []byte) (value.Value, int, error) {
	pos := 0
	fields := make([]value.UdtField, 0, len(t.UdtFields))
	for _, fd := range t.UdtFields {
		if pos >= len(src) {
			fields = append(fields, value.UdtField{Name: fd.Name, Value: value.Null})
			continue
		}
		v, next, err := parseElement(fd.Type, src, pos)
		if err != nil {
			return value.Value{}, 0, err
		}
		fields = append(fields, value.UdtField{Name: fd.Name, Value: v})
		pos = next
	}
	return value.NewUdt(&value.UdtValue{
		Keyspace: t.UdtKeyspace,
		TypeName: t.UdtName,
		Fields:   fields,
	}), pos, nil
}

func serializeUdt(fieldTypes []UdtFieldDesc, u *value.UdtValue) ([]byte, error) {
	var buf []byte
	var err error
	for i, fd := range fieldTypes {
		var v value.Value = value.Null
		if u != nil && i < len(u.Fields) {
			v = u.Fields[i].Value
		}
		buf, err = appendElement(buf, fd.Type, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
