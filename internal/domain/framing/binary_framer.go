package framing

import (
	"BlockBench/internal/domain"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	BinaryName       = "binary"
	BinaryHeaderSize = 40
)

// BinaryFramer writes a fixed 40 byte header of five big-endian u64 fields:
//
//	| block_id | timestamp | block_size | priority | deadline |
//
// priority and deadline are signed and sign-extended to 64 bits.
type BinaryFramer struct {
}

func NewBinaryFramer() *BinaryFramer {
	return &BinaryFramer{}
}

func (f *BinaryFramer) Name() string {
	return BinaryName
}

func (f *BinaryFramer) AppendHeader(dst []byte, h domain.BlockHeader) []byte {
	dst = binary.BigEndian.AppendUint64(dst, h.ID)
	dst = binary.BigEndian.AppendUint64(dst, h.Timestamp)
	dst = binary.BigEndian.AppendUint64(dst, h.BlockSize)
	dst = binary.BigEndian.AppendUint64(dst, uint64(int64(h.Priority)))
	dst = binary.BigEndian.AppendUint64(dst, uint64(int64(h.Deadline)))
	return dst
}

func (f *BinaryFramer) ParseHeader(buf []byte) (domain.BlockHeader, int, error) {
	if len(buf) < BinaryHeaderSize {
		return domain.BlockHeader{}, 0, domain.ErrNeedMore
	}
	priority, ok := toInt32(binary.BigEndian.Uint64(buf[24:32]))
	if !ok {
		return domain.BlockHeader{}, 0, f.malformed("priority out of range")
	}
	deadline, ok := toInt32(binary.BigEndian.Uint64(buf[32:40]))
	if !ok {
		return domain.BlockHeader{}, 0, f.malformed("deadline out of range")
	}
	return domain.BlockHeader{
		ID:        binary.BigEndian.Uint64(buf[0:8]),
		Timestamp: binary.BigEndian.Uint64(buf[8:16]),
		BlockSize: binary.BigEndian.Uint64(buf[16:24]),
		Priority:  priority,
		Deadline:  deadline,
	}, BinaryHeaderSize, nil
}

func (f *BinaryFramer) malformed(reason string) *domain.FramingError {
	return &domain.FramingError{
		Framing: BinaryName,
		Reason:  fmt.Sprintf("malformed header: %s", reason),
		Skip:    BinaryHeaderSize,
	}
}

func toInt32(v uint64) (int32, bool) {
	s := int64(v)
	if s < math.MinInt32 || s > math.MaxInt32 {
		return 0, false
	}
	return int32(s), true
}
