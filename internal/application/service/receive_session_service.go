package service

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/utils"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultReadBufferSize = 64 << 10
	DefaultIdleTimeout    = 5 * time.Second
)

type ReceiveSessionSettings struct {
	Framer        domain.Framer
	FramingPolicy domain.FramingPolicy
	MaxBlockSize  uint64
	IdleTimeout   time.Duration
	ArrivalStart  bool
	Dump          domain.DumpSink
	Sinks         []RecordSink
	Clock         func() time.Time
}

// ReceiveSessionService reads one connection until the peer closes it or it stays idle, turning
// the byte stream into block records.
type ReceiveSessionService struct {
	settings ReceiveSessionSettings
	sinks    sinkSet
}

func NewReceiveSessionService(settings ReceiveSessionSettings) *ReceiveSessionService {
	if settings.IdleTimeout <= 0 {
		settings.IdleTimeout = DefaultIdleTimeout
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &ReceiveSessionService{settings: settings, sinks: settings.Sinks}
}

// Execute runs the session. The report is always returned; err is a *domain.FramingError, a
// *domain.TransportError or the context error when the session did not end cleanly.
func (s *ReceiveSessionService) Execute(ctx context.Context, transport domain.Transport, notifier domain.Notifier) (domain.SessionReport, error) {
	clock := s.settings.Clock
	start := clock()
	report := domain.SessionReport{
		SessionID: uuid.NewString(),
		Role:      domain.RoleReceiver,
		Framing:   s.settings.Framer.Name(),
		StartedAt: start,
	}
	opts := []domain.ParserOption{
		domain.WithFramingPolicy(s.settings.FramingPolicy),
		domain.WithMaxBlockSize(s.settings.MaxBlockSize),
		domain.WithClock(clock),
	}
	if s.settings.ArrivalStart {
		opts = append(opts, domain.WithArrivalStart())
	}
	parser := domain.NewStreamParser(s.settings.Framer, opts...)
	metrics := domain.NewMetricsAggregator(start)
	utils.Infof("receiver session %s started, framing=%s", report.SessionID, report.Framing)

	err := s.loop(ctx, transport, notifier, parser, metrics, report.SessionID)

	end := clock()
	s.collect(report.SessionID, metrics, parser.Finalize(end))

	report.Summary = metrics.Summary(end)
	report.Records = metrics.Records()
	report.FramingErrors = parser.FramingErrors()
	report.Complete = err == nil && report.Summary.PartialBlocks == 0
	report.Fail(err)
	s.sinks.report(report)
	return report, err
}

func (s *ReceiveSessionService) loop(ctx context.Context, transport domain.Transport, notifier domain.Notifier,
	parser *domain.StreamParser, metrics *domain.MetricsAggregator, sessionID string) error {

	buf := make([]byte, DefaultReadBufferSize)
	for {
		ev, err := notifier.Wait(ctx, domain.InterestReadable, s.settings.IdleTimeout)
		if err != nil {
			return err
		}
		if ev == domain.EventTimeout {
			utils.Infof("receiver session %s idle for %s, closing", sessionID, s.settings.IdleTimeout)
			return nil
		}

		for {
			n, err := transport.Read(buf)
			if n > 0 {
				if s.settings.Dump != nil {
					if derr := s.settings.Dump.Dump(buf[:n]); derr != nil {
						utils.Errorf("receiver session %s: dump failed: %v", sessionID, derr)
					}
				}
				metrics.AddBytes(n)
				parser.Feed(buf[:n])
				records, perr := parser.Consume()
				s.collect(sessionID, metrics, records)
				if perr != nil {
					return perr
				}
			}
			switch {
			case err == nil && n > 0:
				continue
			case err == nil, errors.Is(err, domain.ErrWouldBlock):
			case errors.Is(err, domain.ErrClosed):
				utils.Infof("receiver session %s: peer closed the connection", sessionID)
				return nil
			default:
				return &domain.TransportError{Op: "read", Err: err}
			}
			break
		}
	}
}

func (s *ReceiveSessionService) collect(sessionID string, metrics *domain.MetricsAggregator, records []domain.BlockRecord) {
	for _, rec := range records {
		metrics.Record(rec)
	}
	s.sinks.records(sessionID, domain.RoleReceiver, records)
}
