package publisher

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/messaging/zeromq/message"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// ZeroMQBlockRecordPublisher streams finished block records and session summaries on a PUB socket.
type ZeroMQBlockRecordPublisher struct {
	mu   sync.Mutex
	pub  zmq4.Socket
	port int
}

func NewZeroMQBlockRecordPublisher(port int) *ZeroMQBlockRecordPublisher {
	return &ZeroMQBlockRecordPublisher{
		pub:  zmq4.NewPub(context.Background()),
		port: port,
	}
}

func (z *ZeroMQBlockRecordPublisher) Initialize() error {
	address := fmt.Sprintf("tcp://*:%d", z.port)
	if err := z.pub.Listen(address); err != nil {
		return fmt.Errorf("starting record publisher on %s: %w", address, err)
	}
	log.Println("Started block record publisher on", address)
	return nil
}

func (z *ZeroMQBlockRecordPublisher) PublishRecords(sessionId string, role domain.Role, records ...domain.BlockRecord) error {
	for _, rec := range records {
		payload, err := message.MarshalBlockMessage(message.BlockMessageFrom(sessionId, role, rec))
		if err != nil {
			return err
		}
		if err := z.send(message.BlockTopic, payload); err != nil {
			return err
		}
	}
	return nil
}

func (z *ZeroMQBlockRecordPublisher) PublishSummary(report domain.SessionReport) error {
	payload, err := message.MarshalSummaryMessage(message.SummaryMessageFrom(report))
	if err != nil {
		return err
	}
	return z.send(message.SummaryTopic, payload)
}

func (z *ZeroMQBlockRecordPublisher) Close() error {
	return z.pub.Close()
}

func (z *ZeroMQBlockRecordPublisher) send(topic string, payload []byte) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.pub.Send(zmqMessage(topic, payload))
}

func zmqMessage(topic string, payload []byte) zmq4.Msg {
	return zmq4.NewMsgFrom(
		[][]byte{
			[]byte(topic),
			payload,
		}...,
	)
}
