package main

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/messaging/zeromq/message"
	"BlockBench/internal/platform/repository"
	"BlockBench/internal/platform/repository/recordlog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_GivenBlocksAndSummary_WhenCollected_thenReportSaved(t *testing.T) {
	// Arrange
	reports := repository.NewReportRepository()
	rl, err := recordlog.NewRecordLog(t.TempDir())
	assert.NoError(t, err)
	collector := NewCollector(reports, rl)
	rec := domain.NewBlockRecord(domain.BlockHeader{ID: 3, BlockSize: 10, Deadline: 100}, 10).Finish(20, 10)

	// Act
	collector.HandleBlock(message.BlockMessageFrom("s1", domain.RoleReceiver, rec))
	collector.HandleSummary(message.SummaryMessage{
		SessionId: "s1",
		Role:      string(domain.RoleReceiver),
		Complete:  true,
		Summary:   domain.Summary{Blocks: 1},
	})
	assert.NoError(t, rl.Close())

	// Assert
	saved, ok := reports.Find(domain.RoleReceiver)
	assert.True(t, ok)
	assert.Equal(t, "s1", saved.SessionID)
	assert.True(t, saved.Complete)
	assert.Equal(t, []domain.BlockRecord{rec}, saved.Records)

	logged, err := recordlog.ReadFile(rl.Path())
	assert.NoError(t, err)
	assert.Equal(t, []domain.BlockRecord{rec}, logged)
}

func Test_GivenSecondSession_WhenSummaryArrives_thenOnlyItsBlocksReported(t *testing.T) {
	reports := repository.NewReportRepository()
	collector := NewCollector(reports, nil)
	for _, session := range []string{"s1", "s2"} {
		for id := uint64(0); id < 3; id++ {
			collector.HandleBlock(message.BlockMessage{SessionId: session, Role: string(domain.RoleSender), BlockId: id})
		}
		collector.HandleSummary(message.SummaryMessage{SessionId: session, Role: string(domain.RoleSender)})
	}

	saved, ok := reports.Find(domain.RoleSender)
	assert.True(t, ok)
	assert.Equal(t, "s2", saved.SessionID)
	assert.Len(t, saved.Records, 3)
}

func Test_GivenNoRecordLog_WhenHandleBlock_thenOnlyRepositoryUpdated(t *testing.T) {
	reports := repository.NewReportRepository()
	collector := NewCollector(reports, nil)

	collector.HandleBlock(message.BlockMessage{Role: string(domain.RoleSender), BlockId: 1})

	assert.Len(t, reports.Records(domain.RoleSender), 1)
}
