package codec

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/value"
	"github.com/cqlsst/cqlsst/vint"
)

// ParseScalar decodes one value of scalar type t from the front of src,
// returning the Value and the number of bytes consumed (spec §4.5).
// Text/Ascii/Blob/Inet consume the entire slice, since length framing is
// the caller's responsibility for those types.
func ParseScalar(t CqlType, src []byte) (value.Value, int, error) {
	const op = "codec.ParseScalar"
	switch t {
	case TypeBoolean:
		if len(src) < 1 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		return value.NewBoolean(src[0] != 0), 1, nil

	case TypeTinyInt:
		if len(src) < 1 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		return value.NewTinyInt(int8(src[0])), 1, nil

	case TypeSmallInt:
		if len(src) < 2 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		return value.NewSmallInt(int16(binary.BigEndian.Uint16(src))), 2, nil

	case TypeInt, TypeDate:
		if len(src) < 4 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		u := binary.BigEndian.Uint32(src)
		if t == TypeDate {
			return value.NewDate(int32(u)), 4, nil
		}
		return value.NewInt(int32(u)), 4, nil

	case TypeBigInt, TypeTimestamp, TypeTime:
		if len(src) < 8 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		u := int64(binary.BigEndian.Uint64(src))
		switch t {
		case TypeTimestamp:
			return value.NewTimestamp(u), 8, nil
		case TypeTime:
			return value.NewTime(u), 8, nil
		default:
			return value.NewBigInt(u), 8, nil
		}

	case TypeFloat:
		if len(src) < 4 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		return value.NewFloat(math.Float32frombits(binary.BigEndian.Uint32(src))), 4, nil

	case TypeDouble:
		if len(src) < 8 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		return value.NewDouble(math.Float64frombits(binary.BigEndian.Uint64(src))), 8, nil

	case TypeText:
		return value.NewText(string(src)), len(src), nil

	case TypeAscii:
		return value.NewAscii(append([]byte(nil), src...)), len(src), nil

	case TypeBlob:
		return value.NewBlob(append([]byte(nil), src...)), len(src), nil

	case TypeInet:
		if len(src) != 4 && len(src) != 16 {
			return value.Value{}, 0, xerrors.Corrupt(op, "bad_length")
		}
		return value.NewInet(append([]byte(nil), src...)), len(src), nil

	case TypeUuid, TypeTimeUuid:
		if len(src) < 16 {
			return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
		}
		id, err := uuid.FromBytes(src[:16])
		if err != nil {
			return value.Value{}, 0, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		if t == TypeTimeUuid {
			return value.NewTimeUuid(id), 16, nil
		}
		return value.NewUuid(id), 16, nil

	case TypeDecimal:
		return parseDecimal(src)

	case TypeDuration:
		return parseDuration(src)

	default:
		return value.Value{}, 0, xerrors.New(xerrors.KindTypeError, op).WithWhere(t.String())
	}
}

// SerializeScalar encodes v, whose Kind must match t, into its wire bytes
// (spec §4.5). Text/Ascii/Blob/Inet are returned without any length prefix.
func SerializeScalar(t CqlType, v value.Value) ([]byte, error) {
	const op = "codec.SerializeScalar"
	v = v.Unwrap()
	if v.Kind() != valueKindOf(t) {
		return nil, xerrors.New(xerrors.KindTypeError, op).WithWhere("value kind does not match column type " + t.String())
	}
	switch t {
	case TypeBoolean:
		if v.Bool() {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case TypeTinyInt:
		return []byte{byte(v.Int64())}, nil
	case TypeSmallInt:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v.Int64()))
		return b[:], nil
	case TypeInt, TypeDate:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v.Int64()))
		return b[:], nil
	case TypeBigInt, TypeTimestamp, TypeTime:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Int64()))
		return b[:], nil
	case TypeFloat:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v.Float32()))
		return b[:], nil
	case TypeDouble:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Float64()))
		return b[:], nil
	case TypeText, TypeAscii, TypeBlob, TypeInet:
		return append([]byte(nil), v.Bytes()...), nil
	case TypeUuid, TypeTimeUuid:
		id := v.UUID()
		return id[:], nil
	case TypeDecimal:
		return serializeDecimal(v.Decimal()), nil
	case TypeDuration:
		return serializeDuration(v.Duration()), nil
	default:
		return nil, xerrors.New(xerrors.KindTypeError, op).WithWhere(t.String())
	}
}

// parseDecimal reads a 4-byte BE scale followed by a twos-complement
// big-endian varint of the unscaled value, consuming the entire slice (spec
// §4.5: "arbitrary length").
func parseDecimal(src []byte) (value.Value, int, error) {
	const op = "codec.parseDecimal"
	if len(src) < 4 {
		return value.Value{}, 0, xerrors.Corrupt(op, "too_short")
	}
	scale := int32(binary.BigEndian.Uint32(src))
	unscaled := twosComplementToBig(src[4:])
	return value.NewDecimal(value.Decimal{Scale: scale, Unscaled: unscaled}), len(src), nil
}

func serializeDecimal(d value.Decimal) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(d.Scale))
	return append(b[:], bigToTwosComplement(d.Unscaled)...)
}

// twosComplementToBig decodes a big-endian twos-complement byte sequence
// into a signed big.Int.
func twosComplementToBig(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		// Negative: v - 2^(8*len(b))
		full := new(big.Int).Lsh(big.NewInt(1), uint(8*len(b)))
		v.Sub(v, full)
	}
	return v
}

// bigToTwosComplement encodes v as a minimal-length big-endian
// twos-complement byte sequence.
func bigToTwosComplement(v *big.Int) []byte {
	if v.Sign() == 0 {
		return []byte{0}
	}
	if v.Sign() > 0 {
		b := v.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// Negative: find the smallest byte length n such that
	// v + 2^(8n) fits in n bytes with the sign bit set.
	mag := new(big.Int).Neg(v)
	n := len(mag.Bytes())
	for {
		full := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
		enc := new(big.Int).Add(full, v)
		b := enc.Bytes()
		for len(b) < n {
			b = append([]byte{0}, b...)
		}
		if len(b) == n && b[0]&0x80 != 0 {
			return b
		}
		n++
	}
}

// parseDuration reads three signed VInts: months, days, nanoseconds (spec
// §4.5).
func parseDuration(src []byte) (value.Value, int, error) {
	r := vint.NewReader(src)
	months, err := r.ReadI()
	if err != nil {
		return value.Value{}, 0, err
	}
	days, err := r.ReadI()
	if err != nil {
		return value.Value{}, 0, err
	}
	nanos, err := r.ReadI()
	if err != nil {
		return value.Value{}, 0, err
	}
	return value.NewDurationValue(value.Duration{
		Months: int32(months),
		Days:   int32(days),
		Nanos:  nanos,
	}), r.Pos(), nil
}

func serializeDuration(d value.Duration) []byte {
	var buf []byte
	buf = vint.AppendI(buf, int64(d.Months))
	buf = vint.AppendI(buf, int64(d.Days))
	buf = vint.AppendI(buf, d.Nanos)
	return buf
}
