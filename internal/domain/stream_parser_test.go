package domain_test

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/domain/framing"
	"encoding/binary"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
)

var parserNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time {
	return parserNow
}

func appendBlock(t *testing.T, f domain.Framer, dst []byte, h domain.BlockHeader) []byte {
	t.Helper()
	dst = f.AppendHeader(dst, h)
	return append(dst, make([]byte, h.BlockSize)...)
}

func sampleHeaders() []domain.BlockHeader {
	return []domain.BlockHeader{
		{ID: 0, Timestamp: 1_000, BlockSize: 100, Priority: 1, Deadline: 200_000},
		{ID: 1, Timestamp: 2_000, BlockSize: 0, Priority: 2, Deadline: 50_000},
		{ID: 2, Timestamp: 3_000, BlockSize: 1, Priority: -1, Deadline: 0},
		{ID: 3, Timestamp: 4_000, BlockSize: 4_097, Priority: 3, Deadline: 1_000_000},
	}
}

func parseInChunks(t *testing.T, f domain.Framer, stream []byte, chunk int, opts ...domain.ParserOption) []domain.BlockRecord {
	t.Helper()
	opts = append([]domain.ParserOption{domain.WithClock(fixedClock)}, opts...)
	p := domain.NewStreamParser(f, opts...)
	var out []domain.BlockRecord
	for off := 0; off < len(stream); off += chunk {
		end := min(off+chunk, len(stream))
		p.Feed(stream[off:end])
		records, err := p.Consume()
		assert.NoError(t, err)
		out = append(out, records...)
	}
	return append(out, p.Finalize(parserNow)...)
}

func framers() []domain.Framer {
	return []domain.Framer{framing.NewBinaryFramer(), framing.NewTextFramer()}
}

func TestStreamParser_ChunkSizeInvariance(t *testing.T) {
	for _, f := range framers() {
		t.Run(f.Name(), func(t *testing.T) {
			var stream []byte
			for _, h := range sampleHeaders() {
				stream = appendBlock(t, f, stream, h)
			}

			reference := parseInChunks(t, f, stream, len(stream))
			assert.Len(t, reference, len(sampleHeaders()))
			for _, chunk := range []int{1, 2, 3, 7, 39, 40, 41, 64, 1000} {
				got := parseInChunks(t, f, stream, chunk)
				assert.Equal(t, reference, got, "chunk size %d:\n%s", chunk, spew.Sdump(got))
			}
		})
	}
}

func TestStreamParser_RecordsCarryHeaderFieldsInOrder(t *testing.T) {
	for _, f := range framers() {
		t.Run(f.Name(), func(t *testing.T) {
			var stream []byte
			headers := sampleHeaders()
			for _, h := range headers {
				stream = appendBlock(t, f, stream, h)
			}

			records := parseInChunks(t, f, stream, 5)
			assert.Len(t, records, len(headers))
			for i, rec := range records {
				assert.Equal(t, headers[i].ID, rec.ID)
				assert.Equal(t, headers[i].BlockSize, rec.BlockSize)
				assert.Equal(t, headers[i].Priority, rec.Priority)
				assert.Equal(t, headers[i].Deadline, rec.Deadline)
				assert.Equal(t, headers[i].Timestamp, rec.StartTimestamp)
				assert.Equal(t, domain.Micros(parserNow), rec.EndTimestamp)
				assert.Equal(t, rec.BlockSize, rec.Received)
				assert.False(t, rec.Partial)
				if i > 0 {
					assert.GreaterOrEqual(t, rec.ID, records[i-1].ID)
				}
			}
		})
	}
}

func TestStreamParser_PartialHeaderResilience(t *testing.T) {
	f := framing.NewBinaryFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 0, Timestamp: 1, BlockSize: 10})
	p := domain.NewStreamParser(f, domain.WithClock(fixedClock))

	p.Feed(stream[:39])
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 39, p.Buffered())

	p.Feed(stream[39:40])
	records, err = p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)
	_, received, pending := p.Pending()
	assert.True(t, pending)
	assert.Equal(t, uint64(0), received)

	p.Feed(stream[40:])
	records, err = p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, p.Buffered())
	assert.Len(t, p.Finalize(parserNow), 1)
}

func TestStreamParser_EmptyChunkIsNoop(t *testing.T) {
	p := domain.NewStreamParser(framing.NewBinaryFramer())
	p.Feed(nil)
	p.Feed([]byte{})
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, p.Buffered())
}

func TestStreamParser_PayloadIsNotRescanned(t *testing.T) {
	f := framing.NewTextFramer()
	payloadHeader := f.AppendHeader(nil, domain.BlockHeader{ID: 99, BlockSize: 0})
	stream := f.AppendHeader(nil, domain.BlockHeader{ID: 0, BlockSize: uint64(len(payloadHeader))})
	stream = append(stream, payloadHeader...)
	stream = appendBlock(t, f, stream, domain.BlockHeader{ID: 1, BlockSize: 3})

	records := parseInChunks(t, f, stream, 4)
	assert.Len(t, records, 2)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.Equal(t, uint64(1), records[1].ID)
}

func Test_GivenHeaderWithoutPayload_WhenFinalize_thenPartialRecordEndsAtTimeout(t *testing.T) {
	f := framing.NewBinaryFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 0, Timestamp: 10, BlockSize: 4})
	stream = appendBlock(t, f, stream, domain.BlockHeader{ID: 1, Timestamp: 20, BlockSize: 1000})
	p := domain.NewStreamParser(f, domain.WithClock(fixedClock))

	p.Feed(stream[:len(stream)-600])
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Len(t, records, 1)

	timeout := parserNow.Add(5 * time.Second)
	final := p.Finalize(timeout)
	assert.Len(t, final, 1)
	assert.Equal(t, uint64(1), final[0].ID)
	assert.Equal(t, domain.Micros(timeout), final[0].EndTimestamp)
	assert.Equal(t, uint64(400), final[0].Received)
	assert.True(t, final[0].Partial)

	assert.Empty(t, p.Finalize(timeout.Add(time.Second)), "finalize happens once")
}

func Test_GivenDeliveredBlock_WhenSuccessorHeaderArrives_thenBlockEndsAtThatInstant(t *testing.T) {
	f := framing.NewBinaryFramer()
	now := parserNow
	p := domain.NewStreamParser(f, domain.WithClock(func() time.Time { return now }))
	start := domain.Micros(parserNow)

	p.Feed(appendBlock(t, f, nil, domain.BlockHeader{ID: 0, Timestamp: start, BlockSize: 64, Deadline: 500_000}))
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)

	now = parserNow.Add(200 * time.Millisecond)
	p.Feed(appendBlock(t, f, nil, domain.BlockHeader{ID: 1, Timestamp: start, BlockSize: 8}))
	records, err = p.Consume()
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.Equal(t, domain.Micros(now), records[0].EndTimestamp)
	assert.Equal(t, uint64(200_000), records[0].BCT)
	assert.True(t, records[0].OnTime())
}

func Test_GivenDeliveredLastBlock_WhenFinalize_thenBlockEndsAtTimeout(t *testing.T) {
	f := framing.NewBinaryFramer()
	p := domain.NewStreamParser(f, domain.WithClock(fixedClock))
	start := domain.Micros(parserNow)
	p.Feed(appendBlock(t, f, nil, domain.BlockHeader{ID: 0, Timestamp: start, BlockSize: 16}))
	p.Feed(appendBlock(t, f, nil, domain.BlockHeader{ID: 1, Timestamp: start, BlockSize: 32}))
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Len(t, records, 1)

	timeout := parserNow.Add(5 * time.Second)
	final := p.Finalize(timeout)
	assert.Len(t, final, 1)
	assert.Equal(t, uint64(1), final[0].ID)
	assert.False(t, final[0].Partial)
	assert.Equal(t, uint64(32), final[0].Received)
	assert.Equal(t, domain.Micros(timeout), final[0].EndTimestamp)
	assert.Equal(t, uint64(5_000_000), final[0].BCT)
}

func TestStreamParser_FinalizeWithNothingPending(t *testing.T) {
	p := domain.NewStreamParser(framing.NewBinaryFramer())
	p.Feed(make([]byte, 12))
	assert.Empty(t, p.Finalize(parserNow))
}

func TestStreamParser_ArrivalStart(t *testing.T) {
	f := framing.NewBinaryFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 0, Timestamp: 5, BlockSize: 2})

	records := parseInChunks(t, f, stream, len(stream), domain.WithArrivalStart())
	assert.Len(t, records, 1)
	assert.Equal(t, domain.Micros(parserNow), records[0].StartTimestamp)
	assert.Equal(t, uint64(0), records[0].BCT)
}

// oversizedStream holds block 0, a header declaring more than max, then block 2.
func oversizedStream(t *testing.T, f domain.Framer) []byte {
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 0, BlockSize: 4})
	stream = f.AppendHeader(stream, domain.BlockHeader{ID: 1, BlockSize: 1 << 40})
	return appendBlock(t, f, stream, domain.BlockHeader{ID: 2, BlockSize: 8})
}

func Test_GivenOversizedHeader_WhenPolicyAbort_thenErrorSticks(t *testing.T) {
	f := framing.NewBinaryFramer()
	p := domain.NewStreamParser(f, domain.WithMaxBlockSize(1<<20), domain.WithFramingPolicy(domain.PolicyAbort))

	p.Feed(oversizedStream(t, f))
	records, err := p.Consume()
	assert.Empty(t, records)
	assert.True(t, domain.IsFramingError(err))

	p.Feed(appendBlock(t, f, nil, domain.BlockHeader{ID: 3}))
	records, again := p.Consume()
	assert.Empty(t, records)
	assert.Equal(t, err, again)
	assert.Equal(t, 1, p.FramingErrors())

	final := p.Finalize(parserNow)
	assert.Len(t, final, 1)
	assert.Equal(t, uint64(0), final[0].ID)
}

func Test_GivenOversizedHeader_WhenPolicyResync_thenSkipsHeaderOnly(t *testing.T) {
	f := framing.NewBinaryFramer()
	records := parseInChunks(t, f, oversizedStream(t, f), 3,
		domain.WithMaxBlockSize(1<<20), domain.WithFramingPolicy(domain.PolicyResync))

	assert.Len(t, records, 2)
	assert.Equal(t, uint64(0), records[0].ID)
	assert.Equal(t, uint64(2), records[1].ID)
}

func malformedTextStream(t *testing.T) []byte {
	f := framing.NewTextFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 0, BlockSize: 2})
	stream = append(stream, []byte("#@1 2 3 4 x@#")...)
	return appendBlock(t, f, stream, domain.BlockHeader{ID: 2, BlockSize: 5})
}

func Test_GivenMalformedTextHeader_WhenPolicyAbort_thenStops(t *testing.T) {
	p := domain.NewStreamParser(framing.NewTextFramer())
	p.Feed(malformedTextStream(t))

	records, err := p.Consume()
	assert.Empty(t, records)
	var fe *domain.FramingError
	assert.ErrorAs(t, err, &fe)
	assert.Len(t, p.Finalize(parserNow), 1)
}

func Test_GivenMalformedTextHeader_WhenPolicyResync_thenNextBlockParses(t *testing.T) {
	for _, chunk := range []int{1, 6, 1000} {
		p := domain.NewStreamParser(framing.NewTextFramer(), domain.WithFramingPolicy(domain.PolicyResync))
		stream := malformedTextStream(t)
		var records []domain.BlockRecord
		for off := 0; off < len(stream); off += chunk {
			p.Feed(stream[off:min(off+chunk, len(stream))])
			recs, err := p.Consume()
			assert.NoError(t, err)
			records = append(records, recs...)
		}
		records = append(records, p.Finalize(parserNow)...)
		assert.Len(t, records, 2, "chunk %d", chunk)
		assert.Equal(t, uint64(2), records[len(records)-1].ID)
		assert.GreaterOrEqual(t, p.FramingErrors(), 1)
	}
}

func TestStreamParser_IdGoingBackwardsIsFramingError(t *testing.T) {
	f := framing.NewBinaryFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 5})
	stream = appendBlock(t, f, stream, domain.BlockHeader{ID: 3})
	p := domain.NewStreamParser(f)

	p.Feed(stream)
	records, err := p.Consume()
	assert.Empty(t, records)
	assert.True(t, domain.IsFramingError(err))
}

func TestStreamParser_RepeatedIdIsFramingError(t *testing.T) {
	f := framing.NewBinaryFramer()
	stream := appendBlock(t, f, nil, domain.BlockHeader{ID: 4, BlockSize: 2})
	stream = appendBlock(t, f, stream, domain.BlockHeader{ID: 4, BlockSize: 2})
	p := domain.NewStreamParser(f, domain.WithFramingPolicy(domain.PolicyResync))

	p.Feed(stream)
	records, err := p.Consume()
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, p.FramingErrors())
}

func TestStreamParser_BinaryHeaderSplitAcrossFields(t *testing.T) {
	f := framing.NewBinaryFramer()
	h := domain.BlockHeader{ID: 1 << 33, Timestamp: 77, BlockSize: 3, Priority: 9, Deadline: 11}
	stream := appendBlock(t, f, nil, h)
	raw := binary.BigEndian.Uint64(stream[:8])
	assert.Equal(t, h.ID, raw)

	p := domain.NewStreamParser(f, domain.WithClock(fixedClock))
	for _, cut := range [][2]int{{0, 4}, {4, 12}, {12, 30}, {30, 41}, {41, len(stream)}} {
		p.Feed(stream[cut[0]:cut[1]])
		records, err := p.Consume()
		assert.NoError(t, err)
		assert.Empty(t, records)
	}
	final := p.Finalize(parserNow)
	assert.Len(t, final, 1)
	assert.Equal(t, h.ID, final[0].ID)
}
