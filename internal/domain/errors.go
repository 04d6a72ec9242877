package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrWouldBlock signals that a non-blocking call could not make progress. It is not a failure.
	ErrWouldBlock = errors.New("operation would block")
	// ErrClosed is returned by a transport read once the peer closed the stream.
	ErrClosed = errors.New("connection closed")
	// ErrNeedMore is returned by a framer when the buffer does not hold a whole header yet.
	ErrNeedMore = errors.New("need more bytes")

	ErrScheduleIncomplete = errors.New("session ended before the schedule completed")
	ErrEmptySchedule      = errors.New("schedule has no blocks")
	ErrZeroWrite          = errors.New("transport repeatedly accepted zero bytes")
	ErrNotArmed           = errors.New("scheduler is not armed")
)

// FramingError reports a malformed or oversized header. Skip is the number of buffered bytes a
// resynchronising parser discards before scanning again.
type FramingError struct {
	Framing string
	Reason  string
	Skip    int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("%s framing: %s", e.Framing, e.Reason)
}

// TransportError wraps any I/O failure other than would-block. It always ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsFramingError(err error) bool {
	var fe *FramingError
	return errors.As(err, &fe)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
