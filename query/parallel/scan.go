package parallel

import (
	"context"

	"github.com/cqlsst/cqlsst/query/exec"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/reader"
	"github.com/cqlsst/cqlsst/value"
)

// ScanStage runs an SSTableScan stage's partition lookups across
// maxConcurrency workers instead of query/exec's default single-threaded
// loop (spec §4.11: "Parallel mode (C13): the SSTableScan stage may be
// split over N worker tasks that each iterate a disjoint partition-key
// range"). Only ScanPointLookup and ScanInLookup are split this way, since
// those are the modes with an explicit, already-disjoint list of
// partition keys to fan out over; ScanRange and ScanTable each already
// describe a single sequential iteration and are left to query/exec's
// default path (maxConcurrency <= 0 there is a no-op, not an error).
func ScanStage(ctx context.Context, maxConcurrency int, stage *planner.SSTableScan, s *schema.TableSchema, r *reader.Reader) ([]exec.QueryRow, bool, error) {
	switch stage.Mode {
	case planner.ScanPointLookup, planner.ScanInLookup:
	default:
		return nil, false, nil
	}

	rows, err := ScanPartitions(ctx, maxConcurrency, stage.PartitionKeys, func(ctx context.Context, pk value.PartitionKey) ([]exec.QueryRow, error) {
		return exec.ScanOnePartition(ctx, s, r, pk)
	})
	if err != nil {
		return nil, true, err
	}
	return rows, true, nil
}
