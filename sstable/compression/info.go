package compression

import (
	"encoding/binary"

	"github.com/cqlsst/cqlsst/internal/xerrors"
)

// ParseInfo decodes a CompressionInfo.db component (spec §6.1):
//
//	algo_len:u16 BE, algo:utf8,
//	param_count:u32 BE, (key_len:u16 BE, key, val_len:u32 BE, val) * param_count,
//	chunk_length:u32 BE, data_length:u64 BE,
//	chunk_count:u32 BE, chunk_offsets:u64 BE * chunk_count
//
// Parameters are read (for forward compatibility) but otherwise discarded;
// nothing in this core consumes them.
func ParseInfo(data []byte) (Info, error) {
	const op = "compression.ParseInfo"
	r := &cursor{data: data}

	algoLen, err := r.u16()
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	algoName, err := r.bytes(int(algoLen))
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	algo, ok := algorithmByName[string(algoName)]
	if !ok {
		return Info{}, xerrors.New(xerrors.KindCorrupt, op).WithWhere("unrecognized compression algorithm " + string(algoName))
	}

	paramCount, err := r.u32()
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	for i := uint32(0); i < paramCount; i++ {
		keyLen, err := r.u16()
		if err != nil {
			return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		if _, err := r.bytes(int(keyLen)); err != nil {
			return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		valLen, err := r.u32()
		if err != nil {
			return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
		if _, err := r.bytes(int(valLen)); err != nil {
			return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
	}

	chunkLength, err := r.u32()
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	dataLength, err := r.u64()
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	chunkCount, err := r.u32()
	if err != nil {
		return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
	}
	offsets := make([]uint64, chunkCount)
	for i := range offsets {
		offsets[i], err = r.u64()
		if err != nil {
			return Info{}, xerrors.Wrap(xerrors.KindCorrupt, op, err)
		}
	}

	return Info{
		Algorithm:    algo,
		ChunkLength:  chunkLength,
		DataLength:   dataLength,
		ChunkOffsets: offsets,
	}, nil
}

var algorithmByName = map[string]Algorithm{
	"NONE":    AlgorithmNone,
	"LZ4":     AlgorithmLZ4,
	"SNAPPY":  AlgorithmSnappy,
	"DEFLATE": AlgorithmDeflate,
	"ZSTD":    AlgorithmZstd,
}

var nameByAlgorithm = map[Algorithm]string{
	AlgorithmNone:    "NONE",
	AlgorithmLZ4:     "LZ4",
	AlgorithmSnappy:  "SNAPPY",
	AlgorithmDeflate: "DEFLATE",
	AlgorithmZstd:    "ZSTD",
}

// EncodeInfo serializes ci in the same layout ParseInfo reads, with no
// parameters, for use by the fixture writer.
func EncodeInfo(ci Info) []byte {
	name := nameByAlgorithm[ci.Algorithm]
	buf := make([]byte, 0, 2+len(name)+4+4+8+4+8*len(ci.ChunkOffsets))
	buf = appendU16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = appendU32(buf, 0) // param_count
	buf = appendU32(buf, ci.ChunkLength)
	buf = appendU64(buf, ci.DataLength)
	buf = appendU32(buf, uint32(len(ci.ChunkOffsets)))
	for _, off := range ci.ChunkOffsets {
		buf = appendU64(buf, off)
	}
	return buf
}

func appendU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}
func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// cursor is a minimal big-endian, position-tracked reader local to this
// package (mirrors the vint.Reader cursor idiom used elsewhere).
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) need(n int) error {
	if len(c.data)-c.pos < n {
		return xerrors.ErrTruncated
	}
	return nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
