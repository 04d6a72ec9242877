package message

import (
	"fmt"

	json "github.com/json-iterator/go"
)

func MarshalBlockMessage(msg BlockMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func MarshalSummaryMessage(msg SummaryMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func UnmarshalBlockMessage(data []byte) (BlockMessage, error) {
	var msg BlockMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return BlockMessage{}, fmt.Errorf("error unmarshalling block message: %w", err)
	}
	msg.Topic = BlockTopic
	return msg, nil
}

func UnmarshalSummaryMessage(data []byte) (SummaryMessage, error) {
	var msg SummaryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SummaryMessage{}, fmt.Errorf("error unmarshalling summary message: %w", err)
	}
	return msg, nil
}
