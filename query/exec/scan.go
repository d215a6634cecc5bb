package exec

import (
	"context"

	"github.com/cqlsst/cqlsst/internal/xerrors"
	"github.com/cqlsst/cqlsst/query/planner"
	"github.com/cqlsst/cqlsst/row"
	"github.com/cqlsst/cqlsst/schema"
	"github.com/cqlsst/cqlsst/sstable/reader"
	"github.com/cqlsst/cqlsst/value"
)

// xerrorsNotFound reports whether err is KindNotFound: a point/range lookup
// whose partition doesn't exist (bloom-filter miss or absent index entry),
// which query/exec treats as "zero rows from this partition" rather than a
// query failure.
func xerrorsNotFound(err error) bool {
	return xerrors.Is(err, xerrors.KindNotFound)
}

// runScan pulls every row the SSTableScan stage's mode describes (spec
// §4.8, §4.10) and merges each into a QueryRow keyed by partition and
// clustering column name. Each partition's rows pass through
// row.FilterShadowedRows, which drops data rows a range tombstone covers;
// tombstone markers never surface as query rows.
func runScan(ctx context.Context, stage *planner.SSTableScan, s *schema.TableSchema, r *reader.Reader) ([]QueryRow, error) {
	dec := row.NewDecoder(s, 0)

	var out []QueryRow
	switch stage.Mode {
	case planner.ScanPointLookup, planner.ScanInLookup:
		for _, pk := range stage.PartitionKeys {
			rows, err := ScanOnePartition(ctx, s, r, pk)
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}

	case planner.ScanRange:
		pk := stage.PartitionKeys[0]
		pkBytes, err := row.EncodePartitionKey(s, pk)
		if err != nil {
			return nil, err
		}
		it, err := r.ScanRange(pk, pkBytes, dec, stage.ClusteringStart, stage.ClusteringEnd)
		if err != nil {
			if xerrorsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		rows, err := drain(ctx, it)
		if err != nil {
			return nil, err
		}
		appendRows(&out, s, pkBytes, row.FilterShadowedRows(rows))

	case planner.ScanTable:
		it := r.ScanTable(nil, nil, dec, func(raw []byte) (value.PartitionKey, error) {
			return row.DecodePartitionKey(s, raw)
		})
		part, partPK := []row.Row(nil), []byte(nil)
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rr, ok, err := it.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			pkBytes, err := row.EncodePartitionKey(s, rr.PartitionKey)
			if err != nil {
				return nil, err
			}
			if string(pkBytes) != string(partPK) {
				appendRows(&out, s, partPK, row.FilterShadowedRows(part))
				part, partPK = nil, pkBytes
			}
			part = append(part, rr)
		}
		appendRows(&out, s, partPK, row.FilterShadowedRows(part))
	}

	return out, nil
}

// ScanOnePartition runs a single point lookup and flattens its rows into
// QueryRows. It is the unit of work query/parallel's worker pool fans out
// over one partition key at a time (spec §4.13: "each parallel worker ...
// iterate[s] a disjoint partition-key range"); runScan above also calls it
// directly for the single-threaded ScanPointLookup/ScanInLookup path, so
// both scheduling modes share one implementation.
func ScanOnePartition(ctx context.Context, s *schema.TableSchema, r *reader.Reader, pk value.PartitionKey) ([]QueryRow, error) {
	pkBytes, err := row.EncodePartitionKey(s, pk)
	if err != nil {
		return nil, err
	}
	dec := row.NewDecoder(s, 0)
	rows, err := r.GetPartition(ctx, pk, pkBytes, dec)
	if err != nil {
		if xerrorsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []QueryRow
	appendRows(&out, s, pkBytes, row.FilterShadowedRows(rows))
	return out, nil
}

func drain(ctx context.Context, it reader.RowIterator) ([]row.Row, error) {
	var out []row.Row
	for {
		rr, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, rr)
	}
}

func appendRows(out *[]QueryRow, s *schema.TableSchema, pkBytes []byte, rows []row.Row) {
	for _, rr := range rows {
		if qr, ok := mergeRow(s, pkBytes, rr); ok {
			*out = append(*out, qr)
		}
	}
}

// mergeRow flattens one decoded row into a name-keyed QueryRow: partition
// and clustering key columns by declared position, then the cell map as
// decoded. Tombstone rows are never surfaced (ok is false).
func mergeRow(s *schema.TableSchema, pkBytes []byte, rr row.Row) (QueryRow, bool) {
	if rr.IsTombstone() {
		return QueryRow{}, false
	}

	values := make(map[string]value.Value, len(s.Columns))
	pkCols := s.OrderedPartitionKeys()
	for i, col := range pkCols {
		if i < len(rr.PartitionKey.Values) {
			values[col.Name] = rr.PartitionKey.Values[i]
		}
	}
	if rr.ClusteringKey != nil {
		ckCols := s.OrderedClusteringKeys()
		for i, col := range ckCols {
			if i < len(rr.ClusteringKey.Values) {
				values[col.Name] = rr.ClusteringKey.Values[i]
			}
		}
	}
	for name, v := range rr.Cells {
		values[name] = v
	}

	return QueryRow{RowKey: row.RowKey(pkBytes, rr.ClusteringKey), Values: values}, true
}
