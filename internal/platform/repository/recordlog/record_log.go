package recordlog

import (
	. "BlockBench/internal/domain"
	"BlockBench/internal/platform/utils"
	"fmt"
	"os"
	"path"
	"sync"
	"time"
)

// RecordLog is an append-only binary file of block records that can be replayed later.
type RecordLog struct {
	mu      sync.Mutex
	fd      *os.File
	path    string
	version string
}

func newVersion() string {
	createdAt := time.Now()
	return fmt.Sprintf("%s-%d", createdAt.Format("20060102150405"), createdAt.Nanosecond())
}

// NewRecordLog creates a fresh log file inside dir.
func NewRecordLog(dir string) (*RecordLog, error) {
	version := newVersion()
	name := path.Join(dir, fmt.Sprintf("records-%s.log", version))
	return open(name, version)
}

// Open appends to fileName, creating it if needed.
func Open(fileName string) (*RecordLog, error) {
	return open(fileName, newVersion())
}

func open(name, version string) (*RecordLog, error) {
	file, err := os.OpenFile(name, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &RecordLog{
		fd:      file,
		path:    name,
		version: version,
	}, nil
}

func (l *RecordLog) Write(records ...BlockRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fd == nil {
		return os.ErrClosed
	}
	for _, rec := range records {
		if err := utils.AppendBlockRecord(l.fd, rec); err != nil {
			return err
		}
	}
	return nil
}

func (l *RecordLog) Path() string {
	return l.path
}

func (l *RecordLog) Version() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *RecordLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	// fd is nil once closed
	if l.fd != nil {
		if err := l.fd.Close(); err != nil {
			return err
		}
		l.fd = nil
	}
	return nil
}

// ReadFile replays every record stored in fileName.
func ReadFile(fileName string) ([]BlockRecord, error) {
	fd, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return utils.ReadAllRecords(fd)
}
