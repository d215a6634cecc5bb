package row

import (
	"bytes"

	"github.com/cqlsst/cqlsst/value"
)

// FilterShadowedRows drops every data row a range tombstone in rows covers
// (spec §3.2's "Tombstone coverage" invariant: a data row is shadowed when
// its clustering key falls within a range tombstone's [start, end] and its
// write timestamp is older than the tombstone's deletion time), along with
// the tombstone marker rows themselves. When rows holds no range tombstone,
// rows is returned unchanged, tombstone markers included. Grounded on rockyardkv's
// internal/rangedel.RangeDelAggregator.ShouldDelete — same Contains-then-
// newer-wins shape, collapsed from RocksDB's multi-level aggregation down
// to the single in-partition row slice a reader hands back here.
func FilterShadowedRows(rows []Row) []Row {
	var tombstones []*value.Tombstone
	for _, r := range rows {
		if r.IsTombstone() && r.Tombstone.Kind == value.TombstoneRange {
			tombstones = append(tombstones, r.Tombstone)
		}
	}
	if len(tombstones) == 0 {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.IsTombstone() {
			continue
		}
		if r.ClusteringKey == nil || !shadowedByAny(r, tombstones) {
			out = append(out, r)
		}
	}
	return out
}

func shadowedByAny(r Row, tombstones []*value.Tombstone) bool {
	key := flattenClusteringKey(*r.ClusteringKey)
	for _, t := range tombstones {
		lo, hi := t.RangeStart, t.RangeEnd
		if lo != nil && hi != nil && bytes.Compare([]byte(*lo), []byte(*hi)) > 0 {
			// Bounds given in value order over a DESC column flatten
			// reversed; the covered interval is the same either way.
			lo, hi = hi, lo
		}
		if lo != nil && bytes.Compare(key, []byte(*lo)) < 0 {
			continue
		}
		if hi != nil && bytes.Compare(key, []byte(*hi)) > 0 {
			continue
		}
		if r.Timestamp != nil && *r.Timestamp < t.DeletionTime {
			return true
		}
	}
	return false
}
