package message

import "BlockBench/internal/domain"

const (
	BlockTopic   = "block"
	SummaryTopic = "summary"
)

// BlockMessage carries one finished block record on the PUB stream.
type BlockMessage struct {
	Topic          string `json:"-"`
	SessionId      string `json:"session_id"`
	Role           string `json:"role"`
	BlockId        uint64 `json:"block_id"`
	StartTimestamp uint64 `json:"start_timestamp"`
	EndTimestamp   uint64 `json:"end_timestamp"`
	Bct            uint64 `json:"bct"`
	BlockSize      uint64 `json:"block_size"`
	Priority       int32  `json:"priority"`
	Deadline       int32  `json:"deadline"`
	Received       uint64 `json:"received"`
	Partial        bool   `json:"partial,omitempty"`
}

func BlockMessageFrom(sessionId string, role domain.Role, rec domain.BlockRecord) BlockMessage {
	return BlockMessage{
		Topic:          BlockTopic,
		SessionId:      sessionId,
		Role:           string(role),
		BlockId:        rec.ID,
		StartTimestamp: rec.StartTimestamp,
		EndTimestamp:   rec.EndTimestamp,
		Bct:            rec.BCT,
		BlockSize:      rec.BlockSize,
		Priority:       rec.Priority,
		Deadline:       rec.Deadline,
		Received:       rec.Received,
		Partial:        rec.Partial,
	}
}

func (m *BlockMessage) ToBlockRecord() domain.BlockRecord {
	return domain.BlockRecord{
		ID:             m.BlockId,
		StartTimestamp: m.StartTimestamp,
		EndTimestamp:   m.EndTimestamp,
		BCT:            m.Bct,
		BlockSize:      m.BlockSize,
		Priority:       m.Priority,
		Deadline:       m.Deadline,
		Received:       m.Received,
		Partial:        m.Partial,
	}
}

// SummaryMessage closes a session on the PUB stream.
type SummaryMessage struct {
	SessionId string         `json:"session_id"`
	Role      string         `json:"role"`
	Framing   string         `json:"framing"`
	Complete  bool           `json:"complete"`
	Error     string         `json:"error,omitempty"`
	Summary   domain.Summary `json:"summary"`
}

func SummaryMessageFrom(report domain.SessionReport) SummaryMessage {
	return SummaryMessage{
		SessionId: report.SessionID,
		Role:      string(report.Role),
		Framing:   report.Framing,
		Complete:  report.Complete,
		Error:     report.Error,
		Summary:   report.Summary,
	}
}
