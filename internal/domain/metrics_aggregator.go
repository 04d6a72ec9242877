package domain

import (
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// Summary is the aggregate of one session. ElapsedTime is in microseconds, Throughput in bytes/s.
type Summary struct {
	TotalBytes    uint64  `json:"total_bytes"`
	CompleteBytes uint64  `json:"complete_bytes"`
	GoodBytes     uint64  `json:"good_bytes"`
	ElapsedTime   uint64  `json:"total_time"`
	Throughput    float64 `json:"throughput"`
	Blocks        int     `json:"blocks"`
	OnTimeBlocks  int     `json:"on_time_blocks"`
	PartialBlocks int     `json:"partial_blocks"`
}

// MetricsAggregator folds block records into counters. It performs no I/O and is owned by a
// single session loop.
type MetricsAggregator struct {
	records       *treemap.Map
	start         time.Time
	totalBytes    uint64
	completeBytes uint64
	goodBytes     uint64
	onTime        int
	partial       int
}

func NewMetricsAggregator(start time.Time) *MetricsAggregator {
	return &MetricsAggregator{
		records: treemap.NewWith(utils.UInt64Comparator),
		start:   start,
	}
}

// AddBytes counts raw transport bytes, framed or not.
func (m *MetricsAggregator) AddBytes(n int) {
	if n > 0 {
		m.totalBytes += uint64(n)
	}
}

// Record adds a finalized block. A second record with the same id replaces the first.
func (m *MetricsAggregator) Record(block BlockRecord) {
	if old, found := m.records.Get(block.ID); found {
		m.fold(old.(BlockRecord), -1)
	}
	m.records.Put(block.ID, block)
	m.fold(block, 1)
}

func (m *MetricsAggregator) fold(block BlockRecord, sign int) {
	switch {
	case block.Partial:
		m.partial += sign
	case sign > 0:
		m.completeBytes += block.BlockSize
	default:
		m.completeBytes -= block.BlockSize
	}
	if !block.OnTime() {
		return
	}
	m.onTime += sign
	if sign > 0 {
		m.goodBytes += block.BlockSize
	} else {
		m.goodBytes -= block.BlockSize
	}
}

// Records returns the recorded blocks ordered by id.
func (m *MetricsAggregator) Records() []BlockRecord {
	values := m.records.Values()
	out := make([]BlockRecord, 0, len(values))
	for _, v := range values {
		out = append(out, v.(BlockRecord))
	}
	return out
}

func (m *MetricsAggregator) Len() int {
	return m.records.Size()
}

func (m *MetricsAggregator) Summary(now time.Time) Summary {
	elapsed := now.Sub(m.start)
	if elapsed < 0 {
		elapsed = 0
	}
	s := Summary{
		TotalBytes:    m.totalBytes,
		CompleteBytes: m.completeBytes,
		GoodBytes:     m.goodBytes,
		ElapsedTime:   uint64(elapsed.Microseconds()),
		Blocks:        m.records.Size(),
		OnTimeBlocks:  m.onTime,
		PartialBlocks: m.partial,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.Throughput = float64(m.totalBytes) / secs
	}
	return s
}
