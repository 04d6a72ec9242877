package domain

import "fmt"

// Framer encodes and decodes block headers. Exactly one framer is used for a session.
type Framer interface {
	Name() string
	// AppendHeader appends the encoded header to dst.
	AppendHeader(dst []byte, header BlockHeader) []byte
	// ParseHeader decodes the header at the start of buf and returns the header length.
	// It returns ErrNeedMore while buf holds only a prefix, or a *FramingError when the
	// bytes cannot be a header.
	ParseHeader(buf []byte) (BlockHeader, int, error)
}

type FramingPolicy uint8

const (
	// PolicyAbort stops parsing on the first framing error.
	PolicyAbort FramingPolicy = iota
	// PolicyResync discards the unparseable header bytes and keeps parsing.
	PolicyResync
)

func (p FramingPolicy) String() string {
	if p == PolicyResync {
		return "resync"
	}
	return "abort"
}

func ParseFramingPolicy(s string) (FramingPolicy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "resync":
		return PolicyResync, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown framing policy %q", s)
	}
}
