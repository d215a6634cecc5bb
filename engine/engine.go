// Package engine wires C8–C13 behind a single entry point (spec §2, §6):
// open an SSTable against its schema, then run CQL SELECT statements
// against it with plan caching, result caching, and an opt-in parallel
// partition scan. Grounded on rockyardkv's top-level `db.go`/`options.go`
// pair — one façade type composing the internal packages behind a small
// options struct — scoped down to the read-only SELECT path per spec.md's
// Non-goals (no writes against production Cassandra files, no compaction
// or multi-sstable merge: each table is exactly one opened SSTable, matching
// the Non-goal that rules out repair/compaction daemons).
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cqlsst/cqlsst/internal/logging"
	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/ast"
	"github.com/cqlsst/cqlsst/query/cache"
	"github.com/cqlsst/cqlsst/query/exec"
	"github.com/cqlsst/cqlsst/query/parallel"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/reader"
	"github.com/cqlsst/cqlsst/value"
)

// Options configures an Engine (spec §9.3: an in-process options struct
// stands in for the configuration-file loading spec.md's Non-goals
// exclude). Zero value is usable; New applies normalize, which fills in
// the teacher-style defaults.
type Options struct {
	PlanCacheEntries   int
	ResultCacheEntries int
	ResultCacheTTL     time.Duration
	MaxConcurrency     int  // 0 uses parallel.DefaultMaxConcurrency()
	Parallel           bool // opt into the parallel partition scan (spec §4.13)
	Logger             logging.Logger
}

func (o Options) normalize() Options {
	if o.PlanCacheEntries <= 0 {
		o.PlanCacheEntries = 256
	}
	if o.ResultCacheEntries <= 0 {
		o.ResultCacheEntries = 256
	}
	if o.ResultCacheTTL <= 0 {
		o.ResultCacheTTL = 30 * time.Second
	}
	o.Logger = logging.OrDefault(o.Logger)
	return o
}

// tableHandle pairs one opened SSTable reader with the schema it was
// opened against.
type tableHandle struct {
	schema *schema.TableSchema
	reader *reader.Reader
}

// Engine is the single entry point over one or more opened tables (spec
// §2's "Reader + query engine" framing). Safe for concurrent use.
type Engine struct {
	opts Options

	mu     sync.RWMutex
	tables map[value.TableId]*tableHandle

	plans   *cache.PlanCache
	results *cache.ResultCache
}

// New builds an Engine with no tables open yet.
func New(opts Options) *Engine {
	opts = opts.normalize()
	return &Engine{
		opts:    opts,
		tables:  make(map[value.TableId]*tableHandle),
		plans:   cache.NewPlanCache(opts.PlanCacheEntries),
		results: cache.NewResultCache(opts.ResultCacheEntries, opts.ResultCacheTTL),
	}
}

// Open mmaps the SSTable at path and registers it under s's
// (keyspace, table) identity (spec §4.8). Opening a second SSTable for an
// already-registered table replaces it after closing the old reader —
// there is no multi-sstable merge (compaction is a Non-goal).
func (e *Engine) Open(path string, s *schema.TableSchema) error {
	r, err := reader.Open(path, s, e.opts.Logger)
	if err != nil {
		return err
	}

	id := value.TableId{Keyspace: s.Keyspace, Name: s.Name}

	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.tables[id]; ok {
		old.reader.Close()
	}
	e.tables[id] = &tableHandle{schema: s, reader: r}
	return nil
}

// Close closes every opened reader.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for id, h := range e.tables {
		if err := h.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.tables, id)
	}
	return firstErr
}

// Select plans and runs stmt (spec §4.10, §4.11), consulting the plan and
// result caches first (spec §4.12).
func (e *Engine) Select(ctx context.Context, stmt *ast.SelectStatement) (exec.QueryResult, error) {
	const op = "engine.Select"

	if stmt.From.Table == nil {
		return exec.QueryResult{}, xerrors.New(xerrors.KindUnsupportedFeature, op).WithWhere("JOIN is not supported")
	}

	id := value.TableId{Keyspace: stmt.From.Table.Keyspace, Name: stmt.From.Table.Table}
	h, ok := e.lookupTable(id)
	if !ok {
		return exec.QueryResult{}, xerrors.New(xerrors.KindNotFound, op).WithWhere(fmt.Sprintf("table not open: %s.%s", id.Keyspace, id.Name))
	}

	fp := cache.StatementFingerprint(id, stmt)

	if result, ok := e.results.Get(fp); ok {
		return result, nil
	}

	plan, ok := e.plans.Get(fp)
	if !ok {
		var err error
		plan, err = planner.Plan(stmt, h.schema, planner.ReaderCapabilities{HasBloomFilter: h.reader.HasBloomFilter()})
		if err != nil {
			return exec.QueryResult{}, err
		}
		e.plans.Put(fp, plan)
	}

	result, err := e.execute(ctx, plan, stmt, h)
	if err != nil {
		return exec.QueryResult{}, err
	}

	e.results.Put(fp, result, 0)
	return result, nil
}

func (e *Engine) lookupTable(id value.TableId) (*tableHandle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.tables[id]
	return h, ok
}

// execute runs plan, substituting query/parallel's worker-pool scan for
// the scan stage when Parallel is enabled and the stage's mode supports
// it (spec §4.11's "Parallel mode (C13)"). exec.Execute runs the whole
// plan otherwise; after a parallel scan, exec.ExecuteStages runs the
// remaining stages.
func (e *Engine) execute(ctx context.Context, plan *planner.Plan, stmt *ast.SelectStatement, h *tableHandle) (exec.QueryResult, error) {
	if !e.opts.Parallel || len(plan.Stages) == 0 {
		return exec.Execute(ctx, plan, stmt, h.schema, h.reader, e.opts.Logger)
	}

	scanStage, ok := plan.Stages[0].(*planner.SSTableScan)
	if !ok {
		return exec.Execute(ctx, plan, stmt, h.schema, h.reader, e.opts.Logger)
	}

	rows, handled, err := parallel.ScanStage(ctx, e.opts.MaxConcurrency, scanStage, h.schema, h.reader)
	if err != nil {
		return exec.QueryResult{}, err
	}
	if !handled {
		return exec.Execute(ctx, plan, stmt, h.schema, h.reader, e.opts.Logger)
	}

	return exec.ExecuteStages(ctx, plan, rows, stmt, h.schema, e.opts.Logger)
}
