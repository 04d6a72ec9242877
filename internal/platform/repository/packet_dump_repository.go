package repository

import (
	"fmt"
	"os"
	"path/filepath"
)

// PacketDumpRepository writes every received chunk to <dir>/<n>.pkt, n counting from 0.
type PacketDumpRepository struct {
	dir  string
	next int
}

func NewPacketDumpRepository(dir string) (*PacketDumpRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &PacketDumpRepository{dir: dir}, nil
}

func (r *PacketDumpRepository) Dump(chunk []byte) error {
	name := filepath.Join(r.dir, fmt.Sprintf("%d.pkt", r.next))
	r.next++
	return os.WriteFile(name, chunk, 0644)
}

func (r *PacketDumpRepository) Count() int {
	return r.next
}
