// Package parallel implements the opt-in parallel partition scan spec
// §4.13/§5 describes: a bounded worker pool that fans a scan stage's
// partition keys out across goroutines, each owning the shared read-only
// reader handle, merging their rows through an unbounded channel.
//
// Grounded on spec.md §4.13 directly — there is no RocksDB analogue for
// this in the retrieved teacher (rockyardkv's own compaction/flush
// concurrency lives in files outside the retrieved set) — using
// golang.org/x/sync/semaphore for the concurrency gate and
// golang.org/x/sync/errgroup for fan-in and first-error cancellation, both
// pulled from erigon's go.mod per SPEC_FULL's domain-dependency table.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency is the bounded semaphore's default width: the
// logical CPU count, floored at 4 (spec §4.13).
func DefaultMaxConcurrency() int {
	n := runtime.NumCPU()
	if n < 4 {
		return 4
	}
	return n
}

// ScanPartitions runs scan once per key in keys, at most maxConcurrency
// calls in flight at a time, and merges every returned row into a single
// slice. Rows are appended in completion order, not key order — spec §5
// is explicit that "parallel scans provide no cross-partition ordering; a
// subsequent Sort stage must be inserted if ORDER BY requires it."
//
// Each worker checks ctx between acquiring its semaphore slot and running
// scan, and scan itself is expected to check ctx between rows (spec
// §4.13's "workers check cancellation between rows") — ScanOnePartition in
// query/exec does this via the reader iterator's own ctx.Err() checks.
// The first worker error cancels every worker still waiting on the
// semaphore or mid-flight, via errgroup's shared context.
func ScanPartitions[K any, R any](ctx context.Context, maxConcurrency int, keys []K, scan func(ctx context.Context, key K) ([]R, error)) ([]R, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency()
	}
	if len(keys) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(int64(maxConcurrency))
	results := make(chan []R, len(keys))

	group, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := scan(gctx, key)
			if err != nil {
				return err
			}
			results <- rows
			return nil
		})
	}

	err := group.Wait()
	close(results)
	if err != nil {
		return nil, err
	}

	var out []R
	for rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}
