package domain

import (
	"context"
	"time"
)

type Event uint8

const (
	EventTimeout Event = iota
	EventReadable
	EventWritable
)

func (e Event) String() string {
	switch e {
	case EventReadable:
		return "readable"
	case EventWritable:
		return "writable"
	default:
		return "timeout"
	}
}

type Interest uint8

const (
	InterestNone     Interest = 0
	InterestReadable Interest = 1 << 0
	InterestWritable Interest = 1 << 1
)

func (i Interest) Has(other Interest) bool {
	return i&other != 0
}

// Writer is the write half of a non-blocking transport. A write returns ErrWouldBlock when it
// accepted nothing, or a short count when it accepted part of p.
type Writer interface {
	Write(p []byte) (int, error)
}

// Reader is the read half. It returns ErrWouldBlock when no data is available and ErrClosed once
// the peer closed the stream.
type Reader interface {
	Read(p []byte) (int, error)
}

type Transport interface {
	Reader
	Writer
	Close() error
}

// Notifier waits for readiness on a transport. It blocks at most timeout and reports EventTimeout
// when nothing became ready.
type Notifier interface {
	Wait(ctx context.Context, interest Interest, timeout time.Duration) (Event, error)
}

// DumpSink receives every raw chunk read from the transport.
type DumpSink interface {
	Dump(chunk []byte) error
}
