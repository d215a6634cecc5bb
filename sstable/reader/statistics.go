package reader

import (
	"encoding/binary"
	"math"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// Statistics is the best-effort-parsed contents of Statistics.db (spec
// §4.8 step 5). A missing or malformed file leaves this at its zero value
// rather than failing the open.
type Statistics struct {
	RowCount         uint64
	MinTimestamp     int64
	MaxTimestamp     int64
	CompressionRatio float64
}

// parseStatistics decodes the fixed-layout payload this engine's own
// writer produces: row_count:u64 BE, min_ts:i64 BE, max_ts:i64 BE,
// compression_ratio:f64 BE. Real Cassandra Statistics.db carries a much
// richer, versioned structure; since the spec treats this component as
// best-effort and out of the writer's fixture scope beyond round-trip
// tests, this reader only understands its own writer's layout. It returns
// Corrupt only when the payload is shorter than 32 bytes (which Open treats
// as non-fatal); a longer payload is read by that layout unchecked.
func parseStatistics(data []byte) (Statistics, error) {
	const op = "reader.parseStatistics"
	if len(data) < 8+8+8+8 {
		return Statistics{}, xerrors.Corrupt(op, "too_short")
	}
	return Statistics{
		RowCount:         binary.BigEndian.Uint64(data[0:8]),
		MinTimestamp:     int64(binary.BigEndian.Uint64(data[8:16])),
		MaxTimestamp:     int64(binary.BigEndian.Uint64(data[16:24])),
		CompressionRatio: math.Float64frombits(binary.BigEndian.Uint64(data[24:32])),
	}, nil
}

// EncodeStatistics serializes st in parseStatistics's layout, for the
// fixture writer.
func EncodeStatistics(st Statistics) []byte {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[0:8], st.RowCount)
	binary.BigEndian.PutUint64(buf[8:16], uint64(st.MinTimestamp))
	binary.BigEndian.PutUint64(buf[16:24], uint64(st.MaxTimestamp))
	binary.BigEndian.PutUint64(buf[24:32], math.Float64bits(st.CompressionRatio))
	return buf
}
