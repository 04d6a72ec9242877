package domain

import (
	"fmt"
	"time"
)

// Schedule is the ordered, immutable list of blocks a sender emits. The index of a block is its id.
type Schedule struct {
	blocks []BlockConfig
}

// NewSchedule copies blocks and validates them against maxBlockSize (0 disables the check).
// Send offsets must not decrease, otherwise a later block would become due before an earlier one.
func NewSchedule(blocks []BlockConfig, maxBlockSize uint64) (Schedule, error) {
	if len(blocks) == 0 {
		return Schedule{}, ErrEmptySchedule
	}
	copied := make([]BlockConfig, len(blocks))
	copy(copied, blocks)
	for i, b := range copied {
		if maxBlockSize > 0 && b.BlockSize > maxBlockSize {
			return Schedule{}, fmt.Errorf("block %d: size %d exceeds max block size %d", i, b.BlockSize, maxBlockSize)
		}
		if b.Deadline < 0 {
			return Schedule{}, fmt.Errorf("block %d: negative deadline %d", i, b.Deadline)
		}
		if i > 0 && b.SendOffset < copied[i-1].SendOffset {
			return Schedule{}, fmt.Errorf("block %d: send offset %d before previous block offset %d",
				i, b.SendOffset, copied[i-1].SendOffset)
		}
	}
	return Schedule{blocks: copied}, nil
}

func (s Schedule) Len() int {
	return len(s.blocks)
}

func (s Schedule) Block(i int) BlockConfig {
	return s.blocks[i]
}

func (s Schedule) Blocks() []BlockConfig {
	out := make([]BlockConfig, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// TotalBytes is the sum of all declared block sizes.
func (s Schedule) TotalBytes() uint64 {
	var total uint64
	for _, b := range s.blocks {
		total += b.BlockSize
	}
	return total
}

func (s Schedule) Span() time.Duration {
	if len(s.blocks) == 0 {
		return 0
	}
	return s.blocks[len(s.blocks)-1].SendAfter()
}
