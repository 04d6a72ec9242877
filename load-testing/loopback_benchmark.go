package main

import (
	"BlockBench/internal/application/service"
	"BlockBench/internal/domain"
	"BlockBench/internal/domain/framing"
	"BlockBench/internal/platform/transport/tcp"
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// BenchmarkStats collects the receiver-side records of every session pair.
type BenchmarkStats struct {
	Sessions       int64
	FailedSessions int64
	Blocks         int64
	OnTimeBlocks   int64
	PartialBlocks  int64
	GoodBytes      uint64
	TotalBytes     uint64
	CompletionTime []time.Duration
	StartTime      time.Time
	EndTime        time.Time
	mu             sync.Mutex
}

func (b *BenchmarkStats) AddSession(report domain.SessionReport, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Sessions++
	if err != nil {
		b.FailedSessions++
	}
	b.TotalBytes += report.Summary.TotalBytes
	b.GoodBytes += report.Summary.GoodBytes
	for _, rec := range report.Records {
		b.Blocks++
		if rec.Partial {
			b.PartialBlocks++
			continue
		}
		if rec.OnTime() {
			b.OnTimeBlocks++
		}
		b.CompletionTime = append(b.CompletionTime, rec.CompletionTime())
	}
}

func (b *BenchmarkStats) CalculatePercentiles() map[string]time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.CompletionTime) == 0 {
		return make(map[string]time.Duration)
	}

	sort.Slice(b.CompletionTime, func(i, j int) bool {
		return b.CompletionTime[i] < b.CompletionTime[j]
	})

	n := float64(len(b.CompletionTime))
	return map[string]time.Duration{
		"p50": b.CompletionTime[int(n*0.50)],
		"p90": b.CompletionTime[int(n*0.90)],
		"p95": b.CompletionTime[int(n*0.95)],
		"p99": b.CompletionTime[int(n*0.99)],
	}
}

func (b *BenchmarkStats) GetOnTimeRate() float64 {
	if b.Blocks == 0 {
		return 0
	}
	return float64(b.OnTimeBlocks) / float64(b.Blocks) * 100
}

func (b *BenchmarkStats) GetGoodput() float64 {
	duration := b.EndTime.Sub(b.StartTime).Seconds()
	if duration == 0 {
		return 0
	}
	return float64(b.GoodBytes) / duration
}

// randomSchedule spaces blocks evenly with random sizes and priorities.
func randomSchedule(blocks int, gap time.Duration, maxSize uint64, deadline time.Duration) (domain.Schedule, error) {
	configs := make([]domain.BlockConfig, blocks)
	for i := range configs {
		configs[i] = domain.BlockConfig{
			BlockSize:  uint64(rand.Int63n(int64(maxSize) + 1)),
			Priority:   int32(rand.Intn(3)),
			Deadline:   int32(deadline.Microseconds()),
			SendOffset: uint64((time.Duration(i) * gap).Microseconds()),
		}
	}
	return domain.NewSchedule(configs, 0)
}

// runPair plays one schedule from a sender to a receiver over loopback and returns the receiver report.
func runPair(ctx context.Context, schedule domain.Schedule, framer domain.Framer, idle time.Duration) (domain.SessionReport, error) {
	ln, err := tcp.Listen(ctx, "127.0.0.1:0", "")
	if err != nil {
		return domain.SessionReport{}, err
	}
	defer ln.Close()

	sendErr := make(chan error, 1)
	go func() {
		transport, err := tcp.AcceptOne(ctx, ln)
		if err != nil {
			sendErr <- err
			return
		}
		defer transport.Close()
		sender := service.NewSendSessionService(service.SendSessionSettings{
			Schedule:    schedule,
			Framer:      framer,
			IdleTimeout: idle,
		})
		_, err = sender.Execute(ctx, transport, transport)
		sendErr <- err
	}()

	transport, err := tcp.Dial(ctx, ln.Addr().String(), "")
	if err != nil {
		return domain.SessionReport{}, err
	}
	defer transport.Close()
	receiver := service.NewReceiveSessionService(service.ReceiveSessionSettings{
		Framer:      framer,
		IdleTimeout: idle,
	})
	report, err := receiver.Execute(ctx, transport, transport)
	if err != nil {
		return report, err
	}
	return report, <-sendErr
}

func worker(id int, sessions int, newSchedule func() (domain.Schedule, error), framer domain.Framer,
	idle time.Duration, stats *BenchmarkStats, wg *sync.WaitGroup) {
	defer wg.Done()

	for i := 0; i < sessions; i++ {
		schedule, err := newSchedule()
		if err != nil {
			log.Printf("Worker %d failed to build schedule: %v", id, err)
			return
		}
		report, err := runPair(context.Background(), schedule, framer, idle)
		if err != nil {
			log.Printf("Worker %d session %d failed: %v", id, i, err)
		}
		stats.AddSession(report, err)
	}

	log.Printf("Worker %d completed", id)
}

func printResults(stats *BenchmarkStats) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("BENCHMARK RESULTS")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("Duration: %v\n", stats.EndTime.Sub(stats.StartTime))
	fmt.Printf("Sessions: %d (failed %d)\n", stats.Sessions, stats.FailedSessions)
	fmt.Printf("Blocks: %d (partial %d)\n", stats.Blocks, stats.PartialBlocks)
	fmt.Printf("On-time Rate: %.2f%%\n", stats.GetOnTimeRate())
	fmt.Printf("Total Bytes: %d\n", stats.TotalBytes)
	fmt.Printf("Goodput (B/s): %.0f\n", stats.GetGoodput())

	fmt.Println("\nBLOCK COMPLETION TIME PERCENTILES:")
	percentiles := stats.CalculatePercentiles()
	for _, p := range []string{"p50", "p90", "p95", "p99"} {
		if d, exists := percentiles[p]; exists {
			fmt.Printf("%s: %v\n", p, d)
		}
	}

	if len(stats.CompletionTime) > 0 {
		var sum time.Duration
		for _, ct := range stats.CompletionTime {
			sum += ct
		}
		avg := time.Duration(int64(sum) / int64(len(stats.CompletionTime)))

		var variance float64
		for _, ct := range stats.CompletionTime {
			diff := float64(ct - avg)
			variance += diff * diff
		}
		variance /= float64(len(stats.CompletionTime))

		fmt.Printf("\nSTATISTICS:\n")
		fmt.Printf("Average BCT: %v\n", avg)
		fmt.Printf("Standard Deviation: %v\n", time.Duration(math.Sqrt(variance)))
		fmt.Printf("Min BCT: %v\n", stats.CompletionTime[0])
		fmt.Printf("Max BCT: %v\n", stats.CompletionTime[len(stats.CompletionTime)-1])
	}

	fmt.Println(strings.Repeat("=", 60))
}

func main() {
	var (
		workers     = flag.Int("workers", 4, "Number of concurrent sender/receiver pairs")
		sessions    = flag.Int("sessions", 5, "Sessions per worker")
		blocks      = flag.Int("blocks", 100, "Blocks per schedule")
		gap         = flag.Duration("gap", 5*time.Millisecond, "Offset between consecutive blocks")
		maxSize     = flag.Uint64("max-size", 256<<10, "Largest block size in bytes")
		deadline    = flag.Duration("deadline", 200*time.Millisecond, "Deadline of every block")
		framingName = flag.String("framing", framing.BinaryName, "binary or text")
		idle        = flag.Duration("idle", 5*time.Second, "Idle timeout of each session")
	)
	flag.Parse()

	framer, err := framing.New(*framingName)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Starting benchmark with %d workers x %d sessions\n", *workers, *sessions)
	fmt.Printf("Schedule: %d blocks every %v, up to %d bytes, deadline %v\n", *blocks, *gap, *maxSize, *deadline)

	stats := &BenchmarkStats{StartTime: time.Now()}
	newSchedule := func() (domain.Schedule, error) {
		return randomSchedule(*blocks, *gap, *maxSize, *deadline)
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go worker(i, *sessions, newSchedule, framer, *idle, stats, &wg)
	}
	wg.Wait()
	stats.EndTime = time.Now()

	printResults(stats)
}
