package value

import "fmt"

// TombstoneKind distinguishes the four deletion-marker shapes (spec §3.1).
type TombstoneKind uint8

const (
	TombstoneRow TombstoneKind = iota
	TombstoneCell
	TombstoneRange
	TombstoneTtlExpire
)

func (k TombstoneKind) String() string {
	switch k {
	case TombstoneRow:
		return "Row"
	case TombstoneCell:
		return "Cell"
	case TombstoneRange:
		return "Range"
	case TombstoneTtlExpire:
		return "TtlExpire"
	default:
		return "Unknown"
	}
}

// Tombstone is a deletion marker: row, cell, range, or TTL-expiration.
// RangeStart/RangeEnd are only meaningful for TombstoneRange; either bound
// may be absent (unbounded), and the covered interval is inclusive on both
// ends (spec §3.1, §3.2 invariant "Tombstone coverage").
type Tombstone struct {
	DeletionTime int64
	Kind         TombstoneKind
	TTL          *int64
	RangeStart   *RowKey
	RangeEnd     *RowKey
}

func (t *Tombstone) String() string {
	return fmt.Sprintf("Tombstone{kind=%s, deletion_time=%d}", t.Kind, t.DeletionTime)
}

// RowTombstone constructs a whole-row deletion marker at deletionTime.
func RowTombstone(deletionTime int64) Value {
	return Value{kind: KindTombstone, tomb: &Tombstone{DeletionTime: deletionTime, Kind: TombstoneRow}}
}

// CellTombstone constructs a single-cell deletion marker.
func CellTombstone(deletionTime int64) Value {
	return Value{kind: KindTombstone, tomb: &Tombstone{DeletionTime: deletionTime, Kind: TombstoneCell}}
}

// TtlTombstone constructs a TTL-expiration marker: the cell was written with
// ttl seconds of time-to-live and has since expired as of deletionTime.
func TtlTombstone(deletionTime, ttl int64) Value {
	t := ttl
	return Value{kind: KindTombstone, tomb: &Tombstone{DeletionTime: deletionTime, Kind: TombstoneTtlExpire, TTL: &t}}
}

// RangeTombstone constructs a clustering-range deletion marker covering
// [start, end] inclusive; either bound may be nil for "unbounded".
func RangeTombstone(deletionTime int64, start, end *RowKey) Value {
	return Value{kind: KindTombstone, tomb: &Tombstone{
		DeletionTime: deletionTime,
		Kind:         TombstoneRange,
		RangeStart:   start,
		RangeEnd:     end,
	}}
}

// Tombstone returns the tombstone payload; nil if v is not a Tombstone.
func (v Value) Tombstone() *Tombstone { return v.tomb }

// IsTombstone reports whether v is any Tombstone variant.
func (v Value) IsTombstone() bool { return v.kind == KindTombstone }

// IsDeleted reports whether v represents "no value": null or any tombstone
// (spec §4.2 invariant: is_deleted() == is_null() ∨ is_tombstone()).
func (v Value) IsDeleted() bool { return v.IsNull() || v.IsTombstone() }

// IsExpired reports whether a TTL-expiration tombstone's deletion time has
// passed relative to now (unix seconds). Non-TTL tombstones are never
// "expired" by this check — they are already unconditional deletions.
func (v Value) IsExpired(now int64) bool {
	if v.kind != KindTombstone || v.tomb.Kind != TombstoneTtlExpire {
		return false
	}
	return v.tomb.DeletionTime <= now
}

// TombstoneCovers reports whether a range tombstone covers key k: a is the
// inclusive lower bound (or unbounded if nil), b the inclusive upper bound.
// For non-range tombstones this always returns false.
func (v Value) TombstoneCovers(k RowKey) bool {
	if v.kind != KindTombstone || v.tomb.Kind != TombstoneRange {
		return false
	}
	if v.tomb.RangeStart != nil && k.Compare(*v.tomb.RangeStart) < 0 {
		return false
	}
	if v.tomb.RangeEnd != nil && k.Compare(*v.tomb.RangeEnd) > 0 {
		return false
	}
	return true
}
