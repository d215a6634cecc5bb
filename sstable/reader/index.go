package reader

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// parseIndex decodes Index.db: a sequence of (key_len:u32 BE, key:bytes,
// offset:u64 BE) records (spec §4.8 step 4, §6.1). Keys are copied out of
// the mmap so the returned slice does not alias it (spec §9 DESIGN NOTES).
func parseIndex(data []byte) ([]indexEntry, error) {
	const op = "reader.parseIndex"
	var entries []indexEntry
	pos := 0
	for pos < len(data) {
		if len(data)-pos < 4 {
			return nil, xerrors.Corrupt(op, "truncated key length")
		}
		keyLen := binary.BigEndian.Uint32(data[pos:])
		pos += 4
		if len(data)-pos < int(keyLen)+8 {
			return nil, xerrors.Corrupt(op, "truncated key/offset")
		}
		key := append([]byte(nil), data[pos:pos+int(keyLen)]...)
		pos += int(keyLen)
		offset := int64(binary.BigEndian.Uint64(data[pos:]))
		pos += 8
		entries = append(entries, indexEntry{PartitionKeyBytes: key, DataOffset: offset})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].PartitionKeyBytes, entries[j].PartitionKeyBytes) < 0
	})
	return entries, nil
}

// lookup returns the index entry for partitionKeyBytes, or false if absent.
func (r *Reader) lookup(partitionKeyBytes []byte) (indexEntry, bool) {
	i := sort.Search(len(r.index), func(i int) bool {
		return bytes.Compare(r.index[i].PartitionKeyBytes, partitionKeyBytes) >= 0
	})
	if i < len(r.index) && bytes.Equal(r.index[i].PartitionKeyBytes, partitionKeyBytes) {
		return r.index[i], true
	}
	return indexEntry{}, false
}

// entryAfter returns the index position of the first entry with a key
// >= partitionKeyBytes (for range/table scans in index order), or
// len(r.index) if none.
func (r *Reader) entryAfter(partitionKeyBytes []byte) int {
	return sort.Search(len(r.index), func(i int) bool {
		return bytes.Compare(r.index[i].PartitionKeyBytes, partitionKeyBytes) >= 0
	})
}
