package schema

import (
	"github.com/cqlsst/cqlsst/codec"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/value"
)

// UdtDef declares a user-defined type's keyspace, name, and ordered fields
// (spec §4.6).
type UdtDef struct {
	Keyspace string
	Name     string
	Fields   []UdtFieldDef // declaration order
}

// UdtFieldDef is one declared field of a UdtDef.
type UdtFieldDef struct {
	Name     string
	Type     codec.TypeDesc
	Nullable bool
}

// Registry holds UDT definitions keyed by keyspace, for lookups the row
// decoder and executor need when resolving a column's declared Udt type
// (spec §4.6: "UDT registry per-keyspace").
type Registry struct {
	byKeyspace map[string]map[string]*UdtDef
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKeyspace: map[string]map[string]*UdtDef{}}
}

// Register adds def to the registry, keyed by (keyspace, name).
func (r *Registry) Register(def *UdtDef) {
	m, ok := r.byKeyspace[def.Keyspace]
	if !ok {
		m = map[string]*UdtDef{}
		r.byKeyspace[def.Keyspace] = m
	}
	m[def.Name] = def
}

// Lookup returns the UdtDef registered for (keyspace, name).
func (r *Registry) Lookup(keyspace, name string) (*UdtDef, bool) {
	m, ok := r.byKeyspace[keyspace]
	if !ok {
		return nil, false
	}
	d, ok := m[name]
	return d, ok
}

// ValidateUdt checks u against def: matching name and keyspace, fields in
// declared order, and per-field nullability (spec §4.6).
func ValidateUdt(u *value.UdtValue, def *UdtDef) error {
	const op = "schema.ValidateUdt"
	if u == nil {
		return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("nil udt value")
	}
	if u.TypeName != def.Name {
		return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("type name mismatch: " + u.TypeName + " != " + def.Name)
	}
	if u.Keyspace != "" && u.Keyspace != def.Keyspace {
		return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("keyspace mismatch: " + u.Keyspace + " != " + def.Keyspace)
	}
	if len(u.Fields) > len(def.Fields) {
		return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("more fields than declared")
	}
	for i, fd := range def.Fields {
		if i >= len(u.Fields) {
			if !fd.Nullable {
				return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("missing non-nullable trailing field " + fd.Name)
			}
			continue
		}
		f := u.Fields[i]
		if f.Name != "" && f.Name != fd.Name {
			return xerrors.New(xerrors.KindUdtValidation, op).WithWhere("field order mismatch at position " + fd.Name)
		}
		if err := ValidateValue(f.Value, fd.Type, fd.Nullable); err != nil {
			return err
		}
	}
	return nil
}
