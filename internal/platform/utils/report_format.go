package utils

import (
	. "BlockBench/internal/domain"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"block_id", "bct_us", "block_size", "priority", "deadline_us", "received", "partial"}

// FormatRecordLine renders the fixed-width client.log line: BlockID bct BlockSize Priority Deadline.
func FormatRecordLine(rec BlockRecord) string {
	return fmt.Sprintf("%-10d%10d%10d%10d%10d\n", rec.ID, rec.BCT, rec.BlockSize, rec.Priority, rec.Deadline)
}

// FormatSummaryLine renders the closing line written after the last record.
func FormatSummaryLine(s Summary) string {
	return fmt.Sprintf("connection closed, total_bytes=%d, complete_bytes=%d, good_bytes=%d, total_time=%d\n",
		s.TotalBytes, s.CompleteBytes, s.GoodBytes, s.ElapsedTime)
}

// FormatThroughputLine is the sender's closing line.
func FormatThroughputLine(s Summary) string {
	return fmt.Sprintf("total_bytes=%d, total_time(us)=%d, throughput(B/s)=%.0f\n", s.TotalBytes, s.ElapsedTime, s.Throughput)
}

func WriteCSVHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVRecords(w io.Writer, records ...BlockRecord) error {
	cw := csv.NewWriter(w)
	for _, rec := range records {
		row := []string{
			strconv.FormatUint(rec.ID, 10),
			strconv.FormatUint(rec.BCT, 10),
			strconv.FormatUint(rec.BlockSize, 10),
			strconv.FormatInt(int64(rec.Priority), 10),
			strconv.FormatInt(int64(rec.Deadline), 10),
			strconv.FormatUint(rec.Received, 10),
			strconv.FormatBool(rec.Partial),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
