package service

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/domain/framing"
	"BlockBench/internal/platform/transport/tcp"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testSchedule(t *testing.T) domain.Schedule {
	t.Helper()
	s, err := domain.NewSchedule([]domain.BlockConfig{
		{BlockSize: 500, Priority: 1, Deadline: 100_000, SendOffset: 0},
		{BlockSize: 700, Priority: 2, Deadline: 100_000, SendOffset: 10_000},
		{BlockSize: 0, Priority: 3, Deadline: 100_000, SendOffset: 25_000},
	}, 0)
	assert.NoError(t, err)
	return s
}

func newSendService(t *testing.T, clock *fakeClock, sink *sinkMock) *SendSessionService {
	return NewSendSessionService(SendSessionSettings{
		Schedule:    testSchedule(t),
		Framer:      framing.NewBinaryFramer(),
		IdleTimeout: time.Second,
		Sinks:       []RecordSink{sink},
		Clock:       clock.Now,
	})
}

func parseAll(t *testing.T, stream []byte) []domain.BlockRecord {
	p := domain.NewStreamParser(framing.NewBinaryFramer())
	p.Feed(stream)
	records, err := p.Consume()
	assert.NoError(t, err)
	return append(records, p.Finalize(time.Now())...)
}

func Test_GivenSchedule_WhenExecute_thenBlocksSentAtTheirOffsets(t *testing.T) {
	clock := newFakeClock()
	sink := &sinkMock{}
	start := clock.Now()
	transport := &sendTransportMock{clock: clock}

	report, err := newSendService(t, clock, sink).Execute(context.Background(), transport, transport)

	assert.NoError(t, err)
	assert.True(t, report.Complete)
	assert.Equal(t, domain.RoleSender, report.Role)
	assert.Len(t, report.Records, 3)
	assert.Equal(t, uint64(3*framing.BinaryHeaderSize+1200), report.Summary.TotalBytes)
	assert.Equal(t, uint64(25_000), report.Summary.ElapsedTime)

	assert.Equal(t, []waitCall{
		{domain.InterestNone, 10 * time.Millisecond},
		{domain.InterestNone, 15 * time.Millisecond},
	}, transport.waits)

	received := parseAll(t, transport.out.Bytes())
	assert.Len(t, received, 3)
	assert.Equal(t, domain.Micros(start.Add(10*time.Millisecond)), received[1].StartTimestamp)
	assert.Equal(t, sink.records, report.Records)
	assert.Len(t, sink.reports, 1)
}

func Test_GivenBackpressure_WhenExecute_thenStreamMatchesUnconstrainedRun(t *testing.T) {
	clock := newFakeClock()
	free := &sendTransportMock{clock: clock}
	_, err := newSendService(t, clock, &sinkMock{}).Execute(context.Background(), free, free)
	assert.NoError(t, err)

	clock = newFakeClock()
	constrained := &sendTransportMock{clock: clock, perCall: 7, alternate: true}
	report, err := newSendService(t, clock, &sinkMock{}).Execute(context.Background(), constrained, constrained)

	assert.NoError(t, err)
	assert.True(t, report.Complete)
	assert.Equal(t, free.out.Bytes(), constrained.out.Bytes())

	writable := 0
	for _, w := range constrained.waits {
		if w.interest == domain.InterestWritable {
			writable++
			assert.Equal(t, time.Second, w.timeout)
		}
	}
	assert.Greater(t, writable, 0)
}

func Test_GivenStalledPeer_WhenIdle_thenScheduleIncomplete(t *testing.T) {
	clock := newFakeClock()
	sink := &sinkMock{}
	transport := &sendTransportMock{clock: clock, stallAfter: framing.BinaryHeaderSize + 500 + 100}

	report, err := newSendService(t, clock, sink).Execute(context.Background(), transport, transport)

	assert.ErrorIs(t, err, domain.ErrScheduleIncomplete)
	assert.False(t, report.Complete)
	assert.Len(t, report.Records, 1)
	assert.Equal(t, uint64(framing.BinaryHeaderSize+600), report.Summary.TotalBytes)
	assert.NotEmpty(t, report.Error)
	assert.Len(t, sink.reports, 1)
}

func Test_GivenStalledPeerReportedWritable_WhenIdleBudgetSpent_thenScheduleIncomplete(t *testing.T) {
	clock := newFakeClock()
	transport := &sendTransportMock{clock: clock, stallAfter: framing.BinaryHeaderSize + 500 + 100, spurious: 300 * time.Millisecond}

	report, err := newSendService(t, clock, &sinkMock{}).Execute(context.Background(), transport, transport)

	assert.ErrorIs(t, err, domain.ErrScheduleIncomplete)
	assert.False(t, report.Complete)
	var writable []time.Duration
	for _, w := range transport.waits {
		if w.interest == domain.InterestWritable {
			writable = append(writable, w.timeout)
		}
	}
	assert.Equal(t, []time.Duration{time.Second, 700 * time.Millisecond, 400 * time.Millisecond, 100 * time.Millisecond}, writable)
}

func Test_GivenPipePeerNeverReads_WhenExecute_thenIdleTimeoutEndsSession(t *testing.T) {
	local, peer := net.Pipe()
	defer peer.Close()
	transport := tcp.NewConnTransport(local)
	defer transport.Close()
	service := NewSendSessionService(SendSessionSettings{
		Schedule:    testSchedule(t),
		Framer:      framing.NewBinaryFramer(),
		IdleTimeout: 200 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	report, err := service.Execute(ctx, transport, transport)

	assert.ErrorIs(t, err, domain.ErrScheduleIncomplete)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, report.Records)
}

func Test_GivenWriteFailure_WhenExecute_thenTransportError(t *testing.T) {
	clock := newFakeClock()
	reset := errors.New("broken pipe")
	transport := &sendTransportMock{clock: clock, err: reset}

	report, err := newSendService(t, clock, &sinkMock{}).Execute(context.Background(), transport, transport)

	assert.True(t, domain.IsTransportError(err))
	assert.ErrorIs(t, err, reset)
	assert.Empty(t, report.Records)
	assert.False(t, report.Complete)
}

func TestSendSession_ContextCancelledWhileWaiting(t *testing.T) {
	clock := newFakeClock()
	transport := &sendTransportMock{clock: clock}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newSendService(t, clock, &sinkMock{}).Execute(ctx, transport, transport)

	assert.ErrorIs(t, err, domain.ErrScheduleIncomplete)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Records, 1)
}
