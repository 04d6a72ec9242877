package repository

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/utils"
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

type ReportFormat string

const (
	FormatFixedWidth ReportFormat = "log"
	FormatCSV        ReportFormat = "csv"
)

// FormatForPath picks CSV for *.csv files and the fixed-width log otherwise.
func FormatForPath(path string) ReportFormat {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return FormatCSV
	}
	return FormatFixedWidth
}

// ReportFileRepository writes one line per completed block followed by a closing summary line.
type ReportFileRepository struct {
	mu     sync.Mutex
	closer io.Closer
	w      *bufio.Writer
	format ReportFormat
}

func NewReportFileRepository(path string) (*ReportFileRepository, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := newReportWriter(f, f, FormatForPath(path))
	if r.format == FormatCSV {
		if err := utils.WriteCSVHeader(r.w); err != nil {
			f.Close()
			return nil, err
		}
	}
	return r, nil
}

func newReportWriter(w io.Writer, closer io.Closer, format ReportFormat) *ReportFileRepository {
	return &ReportFileRepository{closer: closer, w: bufio.NewWriter(w), format: format}
}

func (r *ReportFileRepository) WriteRecords(records ...domain.BlockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.format == FormatCSV {
		return utils.WriteCSVRecords(r.w, records...)
	}
	for _, rec := range records {
		if _, err := r.w.WriteString(utils.FormatRecordLine(rec)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary appends the closing line in the client.log format (receiver) or the throughput
// format (sender). CSV files carry no summary line.
func (r *ReportFileRepository) WriteSummary(report domain.SessionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.format == FormatCSV {
		return r.w.Flush()
	}
	line := utils.FormatSummaryLine(report.Summary)
	if report.Role == domain.RoleSender {
		line = utils.FormatThroughputLine(report.Summary)
	}
	if _, err := r.w.WriteString(line); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *ReportFileRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return err
	}
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}
