package value

import "github.com/cqlsst/cqlsst/internal/xerrors"

// ValidateCollection checks the structural invariants of List/Set/Map values
// that the wire format does not itself enforce (spec §4.2): every element of
// a List or Set must share the same Kind (after unwrapping Frozen), and a
// Map's keys must be pairwise distinct.
//
// Scalar and Tuple/Udt/Frozen values always validate cleanly; this is a
// no-op for them.
func ValidateCollection(v Value) error {
	switch v.kind {
	case KindList, KindSet:
		return validateHomogeneous(v.elems)
	case KindMap:
		return validateMapKeys(v.pairs)
	default:
		return nil
	}
}

func validateHomogeneous(elems []Value) error {
	if len(elems) < 2 {
		return nil
	}
	want := KindNull
	for _, e := range elems {
		got := e.Unwrap().kind
		if got == KindNull {
			continue // nulls don't constrain element kind
		}
		if want == KindNull {
			want = got
			continue
		}
		if got != want {
			return xerrors.Corrupt("value.ValidateCollection", "heterogeneous collection element kind")
		}
	}
	return nil
}

func validateMapKeys(pairs []Pair) error {
	for i := range pairs {
		for j := i + 1; j < len(pairs); j++ {
			if CompareValues(pairs[i].Key, pairs[j].Key) == 0 {
				return xerrors.Corrupt("value.ValidateCollection", "duplicate map key")
			}
		}
	}
	return nil
}
