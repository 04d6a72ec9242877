package service

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/client"
	"BlockBench/internal/platform/messaging/zeromq/publisher"
	"BlockBench/internal/platform/repository"
	"BlockBench/internal/platform/repository/recordlog"
	"BlockBench/internal/platform/utils"
)

// RecordSink observes a session: records as they complete, then the final report once.
type RecordSink interface {
	OnRecords(sessionID string, role domain.Role, records []domain.BlockRecord) error
	OnReport(report domain.SessionReport) error
}

type sinkSet []RecordSink

func (s sinkSet) records(sessionID string, role domain.Role, records []domain.BlockRecord) {
	if len(records) == 0 {
		return
	}
	for _, sink := range s {
		if err := sink.OnRecords(sessionID, role, records); err != nil {
			utils.Errorf("session %s: record sink failed: %v", sessionID, err)
		}
	}
}

func (s sinkSet) report(report domain.SessionReport) {
	for _, sink := range s {
		if err := sink.OnReport(report); err != nil {
			utils.Errorf("session %s: report sink failed: %v", report.SessionID, err)
		}
	}
}

type ReportRepositorySink struct {
	repository *repository.ReportRepository
}

func NewReportRepositorySink(repository *repository.ReportRepository) *ReportRepositorySink {
	return &ReportRepositorySink{repository: repository}
}

func (s *ReportRepositorySink) OnRecords(sessionID string, role domain.Role, records []domain.BlockRecord) error {
	s.repository.Append(sessionID, role, records...)
	return nil
}

func (s *ReportRepositorySink) OnReport(report domain.SessionReport) error {
	s.repository.Save(report)
	return nil
}

type ReportFileSink struct {
	file *repository.ReportFileRepository
}

func NewReportFileSink(file *repository.ReportFileRepository) *ReportFileSink {
	return &ReportFileSink{file: file}
}

func (s *ReportFileSink) OnRecords(_ string, _ domain.Role, records []domain.BlockRecord) error {
	return s.file.WriteRecords(records...)
}

func (s *ReportFileSink) OnReport(report domain.SessionReport) error {
	return s.file.WriteSummary(report)
}

type RecordLogSink struct {
	log *recordlog.RecordLog
}

func NewRecordLogSink(log *recordlog.RecordLog) *RecordLogSink {
	return &RecordLogSink{log: log}
}

func (s *RecordLogSink) OnRecords(_ string, _ domain.Role, records []domain.BlockRecord) error {
	return s.log.Write(records...)
}

func (s *RecordLogSink) OnReport(domain.SessionReport) error {
	return nil
}

type PublisherSink struct {
	publisher *publisher.ZeroMQBlockRecordPublisher
}

func NewPublisherSink(publisher *publisher.ZeroMQBlockRecordPublisher) *PublisherSink {
	return &PublisherSink{publisher: publisher}
}

func (s *PublisherSink) OnRecords(sessionID string, role domain.Role, records []domain.BlockRecord) error {
	return s.publisher.PublishRecords(sessionID, role, records...)
}

func (s *PublisherSink) OnReport(report domain.SessionReport) error {
	return s.publisher.PublishSummary(report)
}

type CollectorSink struct {
	client *client.CollectorClient
}

func NewCollectorSink(client *client.CollectorClient) *CollectorSink {
	return &CollectorSink{client: client}
}

func (s *CollectorSink) OnRecords(string, domain.Role, []domain.BlockRecord) error {
	return nil
}

func (s *CollectorSink) OnReport(report domain.SessionReport) error {
	return s.client.PublishReport(report)
}

// LogSink prints per-block progress at debug level and the closing line at info level.
type LogSink struct{}

func (LogSink) OnRecords(sessionID string, role domain.Role, records []domain.BlockRecord) error {
	if !utils.Debug() {
		return nil
	}
	for _, rec := range records {
		utils.Debugf("%s %s block %d: bct=%dus size=%d partial=%t", role, sessionID, rec.ID, rec.BCT, rec.BlockSize, rec.Partial)
	}
	return nil
}

func (LogSink) OnReport(report domain.SessionReport) error {
	line := utils.FormatSummaryLine(report.Summary)
	if report.Role == domain.RoleSender {
		line = utils.FormatThroughputLine(report.Summary)
	}
	utils.Infof("%s session %s: %s", report.Role, report.SessionID, line[:len(line)-1])
	return nil
}
