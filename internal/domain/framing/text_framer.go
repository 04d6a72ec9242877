package framing

import (
	"BlockBench/internal/domain"
	"bytes"
	"fmt"
	"strconv"
)

const (
	TextName = "text"
	// MaxTextHeaderSize bounds an unterminated header: two markers, five fields and four spaces.
	MaxTextHeaderSize = 96
)

var (
	textOpen  = []byte("#@")
	textClose = []byte("@#")
)

// TextFramer is the legacy ASCII header `#@{id} {timestamp} {size} {priority} {deadline}@#`.
type TextFramer struct {
}

func NewTextFramer() *TextFramer {
	return &TextFramer{}
}

func (f *TextFramer) Name() string {
	return TextName
}

func (f *TextFramer) AppendHeader(dst []byte, h domain.BlockHeader) []byte {
	dst = append(dst, textOpen...)
	dst = strconv.AppendUint(dst, h.ID, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, h.Timestamp, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, h.BlockSize, 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(h.Priority), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(h.Deadline), 10)
	dst = append(dst, textClose...)
	return dst
}

func (f *TextFramer) ParseHeader(buf []byte) (domain.BlockHeader, int, error) {
	if len(buf) < len(textOpen) {
		if len(buf) == 1 && buf[0] != textOpen[0] {
			return domain.BlockHeader{}, 0, f.malformed("garbage before header", 1)
		}
		return domain.BlockHeader{}, 0, domain.ErrNeedMore
	}
	if !bytes.HasPrefix(buf, textOpen) {
		return domain.BlockHeader{}, 0, f.malformed("garbage before header", garbageLen(buf))
	}

	end := -1
	for i := len(textOpen); i < len(buf) && end < 0; i++ {
		switch c := buf[i]; {
		case c == textClose[0]:
			if i+1 == len(buf) {
				return domain.BlockHeader{}, 0, domain.ErrNeedMore
			}
			if buf[i+1] != textClose[1] {
				return domain.BlockHeader{}, 0, f.malformed("broken header terminator", i+1)
			}
			end = i
		case c == ' ' || c == '-' || (c >= '0' && c <= '9'):
			if i+1 >= MaxTextHeaderSize {
				return domain.BlockHeader{}, 0, f.malformed("unterminated header", i+1)
			}
		default:
			return domain.BlockHeader{}, 0, f.malformed(fmt.Sprintf("unexpected byte 0x%02x in header", c), i)
		}
	}
	if end < 0 {
		return domain.BlockHeader{}, 0, domain.ErrNeedMore
	}

	n := end + len(textClose)
	header, err := parseTextFields(buf[len(textOpen):end])
	if err != nil {
		return domain.BlockHeader{}, 0, f.malformed(err.Error(), n)
	}
	return header, n, nil
}

func (f *TextFramer) malformed(reason string, skip int) *domain.FramingError {
	return &domain.FramingError{
		Framing: TextName,
		Reason:  reason,
		Skip:    skip,
	}
}

// garbageLen counts the leading bytes that cannot start a header. A trailing '#' is kept since
// the next chunk may complete the opening marker.
func garbageLen(buf []byte) int {
	if idx := bytes.Index(buf, textOpen); idx > 0 {
		return idx
	}
	if buf[len(buf)-1] == textOpen[0] && len(buf) > 1 {
		return len(buf) - 1
	}
	return len(buf)
}

func parseTextFields(raw []byte) (domain.BlockHeader, error) {
	fields := bytes.Fields(raw)
	if len(fields) != 5 {
		return domain.BlockHeader{}, fmt.Errorf("expected 5 header fields, got %d", len(fields))
	}
	id, err := strconv.ParseUint(string(fields[0]), 10, 64)
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("block id: %w", err)
	}
	timestamp, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("timestamp: %w", err)
	}
	size, err := strconv.ParseUint(string(fields[2]), 10, 64)
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("block size: %w", err)
	}
	priority, err := strconv.ParseInt(string(fields[3]), 10, 32)
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("priority: %w", err)
	}
	deadline, err := strconv.ParseInt(string(fields[4]), 10, 32)
	if err != nil {
		return domain.BlockHeader{}, fmt.Errorf("deadline: %w", err)
	}
	return domain.BlockHeader{
		ID:        id,
		Timestamp: timestamp,
		BlockSize: size,
		Priority:  int32(priority),
		Deadline:  int32(deadline),
	}, nil
}
