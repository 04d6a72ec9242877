package tcp

import (
	"BlockBench/internal/domain"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

const (
	// DefaultWriteSlice bounds how long a single Write may sit in the kernel before it is
	// reported as would-block.
	DefaultWriteSlice = time.Millisecond

	readBufferSize = 64 << 10
)

type Option func(*ConnTransport)

func WithWriteSlice(d time.Duration) Option {
	return func(t *ConnTransport) { t.writeSlice = d }
}

// ConnTransport gives a net.Conn non-blocking semantics using I/O deadlines. It is both the
// Transport and the Notifier of a session and is not safe for concurrent use.
//
// Reads happen inside Wait: a readable event means bytes (or the end of stream) are staged and
// Read hands them out without touching the socket. Writes work the other way round: a Write
// that would block remembers the rejected bytes, and Wait(InterestWritable) pushes them with a
// deadline of the whole wait timeout. Whatever it got through is reported by the next Write,
// which must offer the same bytes again.
type ConnTransport struct {
	conn       net.Conn
	writeSlice time.Duration

	rbuf      []byte
	staged    []byte
	stagedErr error

	blocked  []byte
	ahead    int
	writeErr error
	closed   bool
}

func NewConnTransport(conn net.Conn, opts ...Option) *ConnTransport {
	t := &ConnTransport{
		conn:       conn,
		writeSlice: DefaultWriteSlice,
		rbuf:       make([]byte, readBufferSize),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ConnTransport) Write(p []byte) (int, error) {
	if t.closed {
		return 0, domain.ErrClosed
	}
	if t.ahead > 0 {
		n := min(t.ahead, len(p))
		t.ahead = 0
		return n, nil
	}
	if err := t.writeErr; err != nil {
		t.writeErr = nil
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeSlice)); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(p)
	if err != nil {
		if isTimeout(err) {
			t.blocked = p[n:]
			if n > 0 {
				return n, nil
			}
			return 0, domain.ErrWouldBlock
		}
		return n, err
	}
	t.blocked = nil
	return n, nil
}

func (t *ConnTransport) Read(p []byte) (int, error) {
	if len(t.staged) > 0 {
		n := copy(p, t.staged)
		t.staged = t.staged[n:]
		return n, nil
	}
	if t.stagedErr != nil {
		return 0, t.stagedErr
	}
	if t.closed {
		return 0, domain.ErrClosed
	}
	return 0, domain.ErrWouldBlock
}

// Wait blocks until interest is ready, timeout elapses or ctx is done. A blocked writer takes
// precedence over readable interest.
func (t *ConnTransport) Wait(ctx context.Context, interest domain.Interest, timeout time.Duration) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.EventTimeout, err
	}
	if interest.Has(domain.InterestWritable) && (t.blocked == nil || t.closed) {
		return domain.EventWritable, nil
	}
	if interest.Has(domain.InterestReadable) && t.readReady() {
		return domain.EventReadable, nil
	}
	if timeout <= 0 {
		return domain.EventTimeout, nil
	}

	switch {
	case interest.Has(domain.InterestWritable):
		return t.waitWritable(ctx, timeout)
	case interest.Has(domain.InterestReadable):
		return t.waitReadable(ctx, timeout)
	default:
		if err := sleep(ctx, timeout); err != nil {
			return domain.EventTimeout, err
		}
		return domain.EventTimeout, nil
	}
}

func (t *ConnTransport) waitWritable(ctx context.Context, timeout time.Duration) (domain.Event, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return domain.EventTimeout, err
	}
	stop := context.AfterFunc(ctx, func() { t.conn.SetWriteDeadline(time.Now()) })
	n, err := t.conn.Write(t.blocked)
	stop()

	t.blocked = t.blocked[n:]
	t.ahead += n
	switch {
	case err == nil:
		t.blocked = nil
	case isTimeout(err):
		if cerr := ctx.Err(); cerr != nil {
			return domain.EventTimeout, cerr
		}
		if n == 0 {
			return domain.EventTimeout, nil
		}
	default:
		t.writeErr = err
		t.blocked = nil
	}
	return domain.EventWritable, nil
}

func (t *ConnTransport) waitReadable(ctx context.Context, timeout time.Duration) (domain.Event, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.stagedErr = err
		return domain.EventReadable, nil
	}
	stop := context.AfterFunc(ctx, func() { t.conn.SetReadDeadline(time.Now()) })
	n, err := t.conn.Read(t.rbuf)
	stop()

	if n > 0 {
		t.staged = append(t.staged[:0], t.rbuf[:n]...)
	}
	switch {
	case err == nil:
	case isTimeout(err):
		if cerr := ctx.Err(); cerr != nil && n == 0 {
			return domain.EventTimeout, cerr
		}
	case errors.Is(err, io.EOF):
		t.stagedErr = domain.ErrClosed
	default:
		t.stagedErr = err
	}
	if t.readReady() {
		return domain.EventReadable, nil
	}
	return domain.EventTimeout, nil
}

func (t *ConnTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func (t *ConnTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *ConnTransport) readReady() bool {
	return len(t.staged) > 0 || t.stagedErr != nil || t.closed
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
