package domain

import "time"

// BlockConfig describes one scheduled block. Deadline and SendOffset are microseconds.
type BlockConfig struct {
	BlockSize  uint64 `json:"block_size"`
	Priority   int32  `json:"priority"`
	Deadline   int32  `json:"deadline_us"`
	SendOffset uint64 `json:"send_offset_us"`
}

func (c BlockConfig) SendAfter() time.Duration {
	return time.Duration(c.SendOffset) * time.Microsecond
}

// BlockHeader is the metadata carried in front of every block on the wire.
type BlockHeader struct {
	ID        uint64
	Timestamp uint64
	BlockSize uint64
	Priority  int32
	Deadline  int32
}

func HeaderFromConfig(id uint64, cfg BlockConfig, timestamp uint64) BlockHeader {
	return BlockHeader{
		ID:        id,
		Timestamp: timestamp,
		BlockSize: cfg.BlockSize,
		Priority:  cfg.Priority,
		Deadline:  cfg.Deadline,
	}
}

// BlockRecord is the measurement of one block. All timestamps and the BCT are microseconds.
type BlockRecord struct {
	ID             uint64 `json:"id"`
	StartTimestamp uint64 `json:"start_timestamp"`
	EndTimestamp   uint64 `json:"end_timestamp"`
	BCT            uint64 `json:"bct"`
	BlockSize      uint64 `json:"block_size"`
	Priority       int32  `json:"priority"`
	Deadline       int32  `json:"deadline"`
	Received       uint64 `json:"received"`
	Partial        bool   `json:"partial,omitempty"`
}

func NewBlockRecord(header BlockHeader, start uint64) BlockRecord {
	return BlockRecord{
		ID:             header.ID,
		StartTimestamp: start,
		BlockSize:      header.BlockSize,
		Priority:       header.Priority,
		Deadline:       header.Deadline,
	}
}

// Finish freezes the record at end. A clock that runs behind the sender yields a BCT of zero.
func (r BlockRecord) Finish(end uint64, received uint64) BlockRecord {
	r.EndTimestamp = end
	r.Received = received
	r.Partial = received < r.BlockSize
	if end > r.StartTimestamp {
		r.BCT = end - r.StartTimestamp
	} else {
		r.BCT = 0
	}
	return r
}

func (r BlockRecord) OnTime() bool {
	return !r.Partial && r.Deadline > 0 && r.BCT < uint64(r.Deadline)
}

func (r BlockRecord) CompletionTime() time.Duration {
	return time.Duration(r.BCT) * time.Microsecond
}

// Micros converts t to microseconds since the Unix epoch.
func Micros(t time.Time) uint64 {
	us := t.UnixMicro()
	if us < 0 {
		return 0
	}
	return uint64(us)
}
