package tcp

import (
	"context"
	"fmt"
	"log"
	"net"
	"syscall"
)

func control(ccAlgorithm string) func(network, address string, c syscall.RawConn) error {
	if ccAlgorithm == "" {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = setCongestionControl(fd, ccAlgorithm)
		})
		if err != nil {
			return err
		}
		if opErr != nil {
			return fmt.Errorf("setting congestion control %q: %w", ccAlgorithm, opErr)
		}
		return nil
	}
}

// Listen binds addr. Accepted connections inherit the congestion control algorithm.
func Listen(ctx context.Context, addr, ccAlgorithm string) (net.Listener, error) {
	lc := net.ListenConfig{Control: control(ccAlgorithm)}
	return lc.Listen(ctx, "tcp", addr)
}

// AcceptOne waits for the first connection on ln. Later connections are refused: they are
// accepted, logged and closed until ctx ends or ln is closed.
func AcceptOne(ctx context.Context, ln net.Listener, opts ...Option) (*ConnTransport, error) {
	stop := context.AfterFunc(ctx, func() { ln.Close() })

	conn, err := ln.Accept()
	if err != nil {
		stop()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	log.Println("Accepted connection from", conn.RemoteAddr())

	go func() {
		for {
			extra, err := ln.Accept()
			if err != nil {
				return
			}
			log.Println("Refusing second connection from", extra.RemoteAddr())
			extra.Close()
		}
	}()
	return NewConnTransport(conn, opts...), nil
}

func Dial(ctx context.Context, addr, ccAlgorithm string, opts ...Option) (*ConnTransport, error) {
	d := net.Dialer{Control: control(ccAlgorithm)}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConnTransport(conn, opts...), nil
}
