package domain

import (
	"errors"
	"time"
)

// DefaultMaxZeroWrites is how many consecutive zero-length writes are tolerated before the
// transport is considered broken.
const DefaultMaxZeroWrites = 3

type SchedulerState uint8

const (
	StateIdle SchedulerState = iota
	StateArmed
	StateSending
	StateDraining
	StateComplete
	StateClosed
	StateFailed
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateSending:
		return "sending"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	case StateClosed:
		return "closed"
	default:
		return "failed"
	}
}

type OutcomeKind uint8

const (
	// OutcomeProgressed means Bytes were written and nothing is due right now.
	OutcomeProgressed OutcomeKind = iota
	// OutcomeWaiting means no block is due yet; re-arm the wait with NextDue.
	OutcomeWaiting
	// OutcomeBlocked means the transport would block with a frame in flight.
	OutcomeBlocked
	OutcomeScheduleExhausted
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProgressed:
		return "progressed"
	case OutcomeWaiting:
		return "waiting"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeScheduleExhausted:
		return "exhausted"
	default:
		return "error"
	}
}

// SendOutcome is the result of one OnWritable call. Completed holds the blocks whose last byte was
// accepted during the call.
type SendOutcome struct {
	Kind      OutcomeKind
	Bytes     int
	Completed []BlockRecord
	Err       error
}

// Cursor is the scheduler position. NextSend <= NextDue <= schedule length always holds.
type Cursor struct {
	NextDue  int
	NextSend int
	Written  int
}

type SchedulerOption func(*SendScheduler)

func WithMaxZeroWrites(n int) SchedulerOption {
	return func(s *SendScheduler) {
		s.maxZeroWrites = n
	}
}

// SendScheduler emits the blocks of a Schedule no earlier than their send offset, resuming partial
// writes at the exact frame byte where the transport stopped.
type SendScheduler struct {
	schedule      Schedule
	framer        Framer
	maxZeroWrites int

	state      SchedulerState
	start      time.Time
	cursor     Cursor
	frame      []byte
	frameReady bool
	current    BlockRecord
	zeroWrites int
	err        error
}

func NewSendScheduler(schedule Schedule, framer Framer, opts ...SchedulerOption) *SendScheduler {
	s := &SendScheduler{
		schedule:      schedule,
		framer:        framer,
		maxZeroWrites: DefaultMaxZeroWrites,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm starts the session clock. Send offsets are measured from start.
func (s *SendScheduler) Arm(start time.Time) {
	if s.state != StateIdle {
		return
	}
	s.start = start
	s.state = StateArmed
}

func (s *SendScheduler) State() SchedulerState {
	return s.state
}

func (s *SendScheduler) Cursor() Cursor {
	return s.cursor
}

func (s *SendScheduler) Err() error {
	return s.err
}

func (s *SendScheduler) Start() time.Time {
	return s.start
}

// Remaining is the number of blocks not yet fully written.
func (s *SendScheduler) Remaining() int {
	return s.schedule.Len() - s.cursor.NextSend
}

// HasWork reports whether a write attempt could make progress at now.
func (s *SendScheduler) HasWork(now time.Time) bool {
	if !s.active() {
		return false
	}
	return s.frameReady || s.dueAt(s.cursor.NextSend, now)
}

// NextDue returns how long until the next unsent block becomes due. It returns zero when a block is
// already due or a frame is in flight, and false when there is nothing left to schedule.
func (s *SendScheduler) NextDue(now time.Time) (time.Duration, bool) {
	if !s.active() || s.cursor.NextSend >= s.schedule.Len() {
		return 0, false
	}
	if s.frameReady {
		return 0, true
	}
	due := s.start.Add(s.schedule.Block(s.cursor.NextSend).SendAfter())
	if wait := due.Sub(now); wait > 0 {
		return wait, true
	}
	return 0, true
}

// OnWritable pushes as many due bytes as the transport accepts without blocking.
func (s *SendScheduler) OnWritable(w Writer, now time.Time) SendOutcome {
	switch s.state {
	case StateIdle:
		return s.fail(ErrNotArmed)
	case StateFailed:
		return SendOutcome{Kind: OutcomeError, Err: s.err}
	case StateComplete, StateClosed:
		return SendOutcome{Kind: OutcomeScheduleExhausted}
	}

	var out SendOutcome
	for {
		s.advanceDue(now)
		if !s.frameReady {
			if s.cursor.NextSend >= s.schedule.Len() {
				s.state = StateComplete
				out.Kind = OutcomeScheduleExhausted
				return out
			}
			if s.cursor.NextSend >= s.cursor.NextDue {
				if out.Bytes > 0 {
					out.Kind = OutcomeProgressed
				} else {
					out.Kind = OutcomeWaiting
				}
				s.state = StateSending
				return out
			}
			s.prepareFrame()
		}

		n, err := w.Write(s.frame[s.cursor.Written:])
		if n > 0 {
			s.cursor.Written += n
			out.Bytes += n
			s.zeroWrites = 0
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				s.state = StateDraining
				out.Kind = OutcomeBlocked
				return out
			}
			failed := s.fail(&TransportError{Op: "write", Err: err})
			failed.Bytes = out.Bytes
			failed.Completed = out.Completed
			return failed
		}
		if n == 0 {
			s.zeroWrites++
			if s.zeroWrites >= s.maxZeroWrites {
				failed := s.fail(&TransportError{Op: "write", Err: ErrZeroWrite})
				failed.Bytes = out.Bytes
				failed.Completed = out.Completed
				return failed
			}
			s.state = StateDraining
			out.Kind = OutcomeBlocked
			return out
		}
		if s.cursor.Written < len(s.frame) {
			s.state = StateDraining
			continue
		}
		out.Completed = append(out.Completed, s.finishBlock(now))
	}
}

// Close stops the scheduler. A frame still in flight stays unsent.
func (s *SendScheduler) Close() {
	if s.state == StateFailed {
		return
	}
	s.state = StateClosed
}

func (s *SendScheduler) active() bool {
	return s.state == StateArmed || s.state == StateSending || s.state == StateDraining
}

func (s *SendScheduler) dueAt(i int, now time.Time) bool {
	if i >= s.schedule.Len() {
		return false
	}
	return now.Sub(s.start) >= s.schedule.Block(i).SendAfter()
}

func (s *SendScheduler) advanceDue(now time.Time) {
	for s.cursor.NextDue < s.schedule.Len() && s.dueAt(s.cursor.NextDue, now) {
		s.cursor.NextDue++
	}
}

// prepareFrame serialises the header of the next block into the scheduler-owned frame buffer and
// zero-fills the payload. The header carries the block's due instant.
func (s *SendScheduler) prepareFrame() {
	id := s.cursor.NextSend
	cfg := s.schedule.Block(id)
	due := Micros(s.start.Add(cfg.SendAfter()))
	header := HeaderFromConfig(uint64(id), cfg, due)

	s.frame = s.framer.AppendHeader(s.frame[:0], header)
	headerLen := len(s.frame)
	size := headerLen + int(cfg.BlockSize)
	if cap(s.frame) < size {
		grown := make([]byte, size)
		copy(grown, s.frame)
		s.frame = grown
	} else {
		s.frame = s.frame[:size]
		clear(s.frame[headerLen:])
	}
	s.current = NewBlockRecord(header, due)
	s.cursor.Written = 0
	s.frameReady = true
	s.state = StateSending
}

func (s *SendScheduler) finishBlock(now time.Time) BlockRecord {
	rec := s.current.Finish(Micros(now), s.current.BlockSize)
	s.cursor.NextSend++
	s.cursor.Written = 0
	s.frameReady = false
	s.state = StateSending
	return rec
}

func (s *SendScheduler) fail(err error) SendOutcome {
	s.err = err
	s.state = StateFailed
	return SendOutcome{Kind: OutcomeError, Err: err}
}
