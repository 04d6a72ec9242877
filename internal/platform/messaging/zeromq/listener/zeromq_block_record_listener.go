package listener

import (
	"BlockBench/internal/platform/messaging/zeromq/message"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-zeromq/zmq4"
)

type BlockRecordHandler interface {
	HandleBlock(msg message.BlockMessage)
	HandleSummary(msg message.SummaryMessage)
}

// ZeromqBlockRecordListener subscribes to one or more record publishers.
type ZeromqBlockRecordListener struct {
	sub     zmq4.Socket
	handler BlockRecordHandler
}

func NewZeromqBlockRecordListener(ctx context.Context, handler BlockRecordHandler) *ZeromqBlockRecordListener {
	reconnectOpt := zmq4.WithAutomaticReconnect(true)
	retryOpt := zmq4.WithDialerRetry(time.Second * 5)
	sub := zmq4.NewSub(ctx, reconnectOpt, retryOpt)
	sub.SetOption(zmq4.OptionSubscribe, message.BlockTopic)
	sub.SetOption(zmq4.OptionSubscribe, message.SummaryTopic)
	return &ZeromqBlockRecordListener{
		sub:     sub,
		handler: handler,
	}
}

func (z *ZeromqBlockRecordListener) Dial(address string) error {
	if err := z.sub.Dial(address); err != nil {
		return fmt.Errorf("failed to dial address %s: %w", address, err)
	}
	log.Println("ZeromqBlockRecordListener subscribed to", address)
	return nil
}

// Listen dispatches messages to the handler until the socket is closed.
func (z *ZeromqBlockRecordListener) Listen() {
	for {
		msg, err := z.sub.Recv()
		if err != nil {
			if errors.Is(err, zmq4.ErrClosedConn) || errors.Is(err, context.Canceled) {
				log.Println("Socket closed, exiting listener")
				return
			}
			log.Println("Error receiving message:", err)
			continue
		}
		z.dispatch(msg.Frames)
	}
}

func (z *ZeromqBlockRecordListener) dispatch(frames [][]byte) {
	if len(frames) < 2 {
		return
	}
	switch string(frames[0]) {
	case message.BlockTopic:
		m, err := message.UnmarshalBlockMessage(frames[1])
		if err != nil {
			log.Println(err)
			return
		}
		z.handler.HandleBlock(m)
	case message.SummaryTopic:
		m, err := message.UnmarshalSummaryMessage(frames[1])
		if err != nil {
			log.Println(err)
			return
		}
		z.handler.HandleSummary(m)
	}
}

func (z *ZeromqBlockRecordListener) Close() error {
	return z.sub.Close()
}
