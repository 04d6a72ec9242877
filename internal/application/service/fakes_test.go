package service

import (
	"BlockBench/internal/domain"
	"bytes"
	"context"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type waitCall struct {
	interest domain.Interest
	timeout  time.Duration
}

// receiveTransportMock delivers one chunk per readable event, then either ends the stream, fails
// or stays silent.
type receiveTransportMock struct {
	clock   *fakeClock
	step    time.Duration
	chunks  [][]byte
	pending []byte
	eof     bool
	err     error
	waits   []waitCall
	closed  bool
}

func (m *receiveTransportMock) Wait(ctx context.Context, interest domain.Interest, timeout time.Duration) (domain.Event, error) {
	m.waits = append(m.waits, waitCall{interest, timeout})
	if err := ctx.Err(); err != nil {
		return domain.EventTimeout, err
	}
	if len(m.chunks) > 0 {
		m.pending = m.chunks[0]
		m.chunks = m.chunks[1:]
		m.clock.Advance(m.step)
		return domain.EventReadable, nil
	}
	if m.eof || m.err != nil {
		return domain.EventReadable, nil
	}
	m.clock.Advance(timeout)
	return domain.EventTimeout, nil
}

func (m *receiveTransportMock) Read(p []byte) (int, error) {
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		return n, nil
	}
	if len(m.chunks) == 0 {
		if m.err != nil {
			return 0, m.err
		}
		if m.eof {
			return 0, domain.ErrClosed
		}
	}
	return 0, domain.ErrWouldBlock
}

func (m *receiveTransportMock) Write(p []byte) (int, error) {
	return len(p), nil
}

func (m *receiveTransportMock) Close() error {
	m.closed = true
	return nil
}

// sendTransportMock accepts at most perCall bytes per write. With alternate set every other write
// would block. Once stallAfter bytes are written, nothing more is accepted; with spurious set a
// stalled writer is still reported writable after that much time.
type sendTransportMock struct {
	clock      *fakeClock
	out        bytes.Buffer
	perCall    int
	alternate  bool
	stallAfter int
	spurious   time.Duration
	err        error
	calls      int
	waits      []waitCall
}

func (m *sendTransportMock) Write(p []byte) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if m.alternate && m.calls%2 == 0 {
		return 0, domain.ErrWouldBlock
	}
	n := len(p)
	if m.perCall > 0 {
		n = min(n, m.perCall)
	}
	if m.stallAfter > 0 {
		n = min(n, m.stallAfter-m.out.Len())
		if n <= 0 {
			return 0, domain.ErrWouldBlock
		}
	}
	m.out.Write(p[:n])
	return n, nil
}

func (m *sendTransportMock) Read([]byte) (int, error) {
	return 0, domain.ErrWouldBlock
}

func (m *sendTransportMock) Close() error {
	return nil
}

func (m *sendTransportMock) Wait(ctx context.Context, interest domain.Interest, timeout time.Duration) (domain.Event, error) {
	m.waits = append(m.waits, waitCall{interest, timeout})
	if err := ctx.Err(); err != nil {
		return domain.EventTimeout, err
	}
	if interest.Has(domain.InterestWritable) && !m.stalled() {
		return domain.EventWritable, nil
	}
	if interest.Has(domain.InterestWritable) && m.spurious > 0 {
		m.clock.Advance(m.spurious)
		return domain.EventWritable, nil
	}
	m.clock.Advance(timeout)
	return domain.EventTimeout, nil
}

func (m *sendTransportMock) stalled() bool {
	return m.stallAfter > 0 && m.out.Len() >= m.stallAfter
}

type sinkMock struct {
	records []domain.BlockRecord
	reports []domain.SessionReport
	err     error
}

func (s *sinkMock) OnRecords(_ string, _ domain.Role, records []domain.BlockRecord) error {
	s.records = append(s.records, records...)
	return s.err
}

func (s *sinkMock) OnReport(report domain.SessionReport) error {
	s.reports = append(s.reports, report)
	return s.err
}

type dumpMock struct {
	chunks [][]byte
}

func (d *dumpMock) Dump(chunk []byte) error {
	d.chunks = append(d.chunks, append([]byte(nil), chunk...))
	return nil
}
