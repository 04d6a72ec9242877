package domain

import (
	"errors"
	"fmt"
	"time"
)

// shrinkThreshold is the buffer capacity above which a mostly empty buffer is reallocated.
const shrinkThreshold = 1 << 20

type ParserOption func(*StreamParser)

func WithFramingPolicy(policy FramingPolicy) ParserOption {
	return func(p *StreamParser) {
		p.policy = policy
	}
}

// WithMaxBlockSize rejects headers declaring more payload than max. Zero disables the check.
func WithMaxBlockSize(max uint64) ParserOption {
	return func(p *StreamParser) {
		p.maxBlockSize = max
	}
}

func WithClock(clock func() time.Time) ParserOption {
	return func(p *StreamParser) {
		p.clock = clock
	}
}

// WithArrivalStart measures a block from the instant its header was parsed instead of the
// timestamp the sender wrote into the header.
func WithArrivalStart() ParserOption {
	return func(p *StreamParser) {
		p.arrivalStart = true
	}
}

type pendingBlock struct {
	header   BlockHeader
	start    uint64
	received uint64
}

// StreamParser rebuilds block boundaries from an arbitrarily chunked byte stream. It holds at most
// one partial header; payload bytes are counted and dropped as they arrive.
//
// A block is only known to be delivered once its successor begins: a fully received block is held
// until the next header is parsed and ends at that instant. The last block ends in Finalize.
type StreamParser struct {
	framer       Framer
	policy       FramingPolicy
	maxBlockSize uint64
	clock        func() time.Time
	arrivalStart bool

	buf           []byte
	off           int
	pending       *pendingBlock
	done          *pendingBlock
	lastID        uint64
	haveHeader    bool
	framingErrors int
	failed        error
	closed        bool
}

func NewStreamParser(framer Framer, opts ...ParserOption) *StreamParser {
	p := &StreamParser{
		framer: framer,
		policy: PolicyAbort,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Feed appends a raw chunk. Empty chunks are no-ops.
func (p *StreamParser) Feed(chunk []byte) {
	if len(chunk) == 0 || p.closed {
		return
	}
	p.buf = append(p.buf, chunk...)
}

// Consume returns every block whose successor header has been parsed, in stream order. Under
// PolicyAbort the first framing error is returned and repeated on every later call.
func (p *StreamParser) Consume() ([]BlockRecord, error) {
	if p.failed != nil {
		return nil, p.failed
	}
	var out []BlockRecord
	now := Micros(p.clock())
	defer p.compact()

	for {
		if p.pending != nil {
			if !p.drainPayload() {
				return out, nil
			}
			p.done, p.pending = p.pending, nil
			continue
		}

		header, n, err := p.framer.ParseHeader(p.buf[p.off:])
		if errors.Is(err, ErrNeedMore) {
			return out, nil
		}
		if err == nil {
			err = p.validate(header, n)
		}
		if err != nil {
			if fe := p.onFramingError(err); fe != nil {
				return out, fe
			}
			continue
		}

		p.off += n
		if p.done != nil {
			out = append(out, p.done.finish(now))
			p.done = nil
		}
		p.lastID = header.ID
		p.haveHeader = true
		start := header.Timestamp
		if p.arrivalStart {
			start = now
		}
		p.pending = &pendingBlock{header: header, start: start}
	}
}

// Finalize closes the stream at now. The last delivered block ends at now, and a block whose
// payload never completed is returned as a partial record ending at now. A trailing partial
// header is dropped.
func (p *StreamParser) Finalize(now time.Time) []BlockRecord {
	if p.closed {
		return nil
	}
	p.closed = true
	var out []BlockRecord
	for _, b := range []*pendingBlock{p.done, p.pending} {
		if b != nil {
			out = append(out, b.finish(Micros(now)))
		}
	}
	p.done, p.pending = nil, nil
	p.buf = nil
	p.off = 0
	return out
}

// Buffered reports the bytes held that are not yet classified.
func (p *StreamParser) Buffered() int {
	return len(p.buf) - p.off
}

// Pending returns the header of the block whose payload is still arriving.
func (p *StreamParser) Pending() (BlockHeader, uint64, bool) {
	if p.pending == nil {
		return BlockHeader{}, 0, false
	}
	return p.pending.header, p.pending.received, true
}

func (p *StreamParser) FramingErrors() int {
	return p.framingErrors
}

func (p *StreamParser) drainPayload() bool {
	remaining := p.pending.header.BlockSize - p.pending.received
	avail := uint64(len(p.buf) - p.off)
	take := min(remaining, avail)
	p.off += int(take)
	p.pending.received += take
	return p.pending.received == p.pending.header.BlockSize
}

func (b *pendingBlock) finish(end uint64) BlockRecord {
	return NewBlockRecord(b.header, b.start).Finish(end, b.received)
}

func (p *StreamParser) validate(header BlockHeader, n int) error {
	if p.maxBlockSize > 0 && header.BlockSize > p.maxBlockSize {
		return &FramingError{
			Framing: p.framer.Name(),
			Reason:  fmt.Sprintf("block %d declares %d bytes, max is %d", header.ID, header.BlockSize, p.maxBlockSize),
			Skip:    n,
		}
	}
	if p.haveHeader && header.ID <= p.lastID {
		return &FramingError{
			Framing: p.framer.Name(),
			Reason:  fmt.Sprintf("block id %d after %d", header.ID, p.lastID),
			Skip:    n,
		}
	}
	return nil
}

// onFramingError applies the policy. It returns the error when parsing must stop.
func (p *StreamParser) onFramingError(err error) *FramingError {
	var fe *FramingError
	if !errors.As(err, &fe) {
		fe = &FramingError{Framing: p.framer.Name(), Reason: err.Error(), Skip: 1}
	}
	p.framingErrors++
	if p.policy == PolicyAbort {
		p.failed = fe
		return fe
	}
	skip := fe.Skip
	if skip <= 0 {
		skip = 1
	}
	p.off += min(skip, len(p.buf)-p.off)
	return nil
}

func (p *StreamParser) compact() {
	if p.off == 0 {
		return
	}
	rest := len(p.buf) - p.off
	if cap(p.buf) > shrinkThreshold && rest < cap(p.buf)/4 {
		p.buf = append([]byte(nil), p.buf[p.off:]...)
	} else {
		n := copy(p.buf, p.buf[p.off:])
		p.buf = p.buf[:n]
	}
	p.off = 0
}
