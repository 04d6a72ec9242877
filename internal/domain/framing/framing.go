package framing

import (
	"BlockBench/internal/domain"
	"fmt"
)

// New returns the framer registered under name.
func New(name string) (domain.Framer, error) {
	switch name {
	case "", BinaryName:
		return NewBinaryFramer(), nil
	case TextName:
		return NewTextFramer(), nil
	default:
		return nil, fmt.Errorf("unknown framing %q", name)
	}
}
