package repository

import (
	"BlockBench/internal/domain"
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ScheduleFetcher interface {
	FetchSchedule(url string) ([]byte, error)
}

// ScheduleRepository loads block schedules from a file or, through the fetcher, an HTTP URL.
type ScheduleRepository struct {
	fetcher      ScheduleFetcher
	maxBlockSize uint64
}

func NewScheduleRepository(fetcher ScheduleFetcher, maxBlockSize uint64) *ScheduleRepository {
	return &ScheduleRepository{fetcher: fetcher, maxBlockSize: maxBlockSize}
}

func (r *ScheduleRepository) Load(source string) (domain.Schedule, error) {
	data, err := r.read(source)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("reading schedule %s: %w", source, err)
	}
	blocks, err := ParseSchedule(data)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("parsing schedule %s: %w", source, err)
	}
	return domain.NewSchedule(blocks, r.maxBlockSize)
}

func (r *ScheduleRepository) read(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if r.fetcher == nil {
			return nil, fmt.Errorf("no client configured for %s", source)
		}
		return r.fetcher.FetchSchedule(source)
	}
	return os.ReadFile(source)
}

type scheduleDocument struct {
	Blocks []domain.BlockConfig `json:"blocks"`
}

// ParseSchedule accepts a JSON array of blocks, a JSON object with a "blocks" array, or the legacy
// text format: one "send_time_gap(s) deadline(ms) block_size priority" line per block.
func ParseSchedule(data []byte) ([]domain.BlockConfig, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, domain.ErrEmptySchedule
	}
	switch trimmed[0] {
	case '[':
		var blocks []domain.BlockConfig
		if err := json.Unmarshal(trimmed, &blocks); err != nil {
			return nil, err
		}
		return blocks, nil
	case '{':
		var doc scheduleDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		return doc.Blocks, nil
	}
	return parseLegacySchedule(trimmed)
}

func parseLegacySchedule(data []byte) ([]domain.BlockConfig, error) {
	var blocks []domain.BlockConfig
	var offset uint64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: want 4 fields, got %d", line, len(fields))
		}

		gap, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || gap < 0 || math.IsNaN(gap) || math.IsInf(gap, 0) {
			return nil, fmt.Errorf("line %d: bad send_time_gap %q", line, fields[0])
		}
		deadlineMs, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || deadlineMs < 0 || deadlineMs*1000 > math.MaxInt32 {
			return nil, fmt.Errorf("line %d: bad deadline %q", line, fields[1])
		}
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad block_size %q: %w", line, fields[2], err)
		}
		priority, err := strconv.ParseInt(fields[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad priority %q: %w", line, fields[3], err)
		}

		offset += uint64(math.Round(gap * 1e6))
		blocks = append(blocks, domain.BlockConfig{
			BlockSize:  size,
			Priority:   int32(priority),
			Deadline:   int32(deadlineMs * 1000),
			SendOffset: offset,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
