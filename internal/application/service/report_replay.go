package service

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/repository/recordlog"
	"fmt"
	"time"
)

// ReplayRecordLog rebuilds a report from a record log written by an earlier session. Framing
// overhead is not logged, so TotalBytes counts payload bytes only.
func ReplayRecordLog(fileName string) (domain.SessionReport, error) {
	records, err := recordlog.ReadFile(fileName)
	if err != nil {
		return domain.SessionReport{}, fmt.Errorf("reading record log %s: %w", fileName, err)
	}
	return Replay(records), nil
}

func Replay(records []domain.BlockRecord) domain.SessionReport {
	if len(records) == 0 {
		return domain.SessionReport{Complete: true}
	}
	first, last := records[0].StartTimestamp, records[0].EndTimestamp
	for _, rec := range records[1:] {
		first = min(first, rec.StartTimestamp)
		last = max(last, rec.EndTimestamp)
	}

	metrics := domain.NewMetricsAggregator(time.UnixMicro(int64(first)))
	for _, rec := range records {
		metrics.AddBytes(int(rec.Received))
		metrics.Record(rec)
	}
	summary := metrics.Summary(time.UnixMicro(int64(last)))
	return domain.SessionReport{
		StartedAt: time.UnixMicro(int64(first)),
		Summary:   summary,
		Records:   metrics.Records(),
		Complete:  summary.PartialBlocks == 0,
	}
}
