package service

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/utils"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SendSessionSettings struct {
	Schedule      domain.Schedule
	Framer        domain.Framer
	IdleTimeout   time.Duration
	MaxZeroWrites int
	Sinks         []RecordSink
	Clock         func() time.Time
}

// SendSessionService plays a schedule over one connection.
type SendSessionService struct {
	settings SendSessionSettings
	sinks    sinkSet
}

func NewSendSessionService(settings SendSessionSettings) *SendSessionService {
	if settings.IdleTimeout <= 0 {
		settings.IdleTimeout = DefaultIdleTimeout
	}
	if settings.MaxZeroWrites <= 0 {
		settings.MaxZeroWrites = domain.DefaultMaxZeroWrites
	}
	if settings.Clock == nil {
		settings.Clock = time.Now
	}
	return &SendSessionService{settings: settings, sinks: settings.Sinks}
}

// Execute sends every block of the schedule. A session that cannot finish returns an error
// wrapping domain.ErrScheduleIncomplete together with the partial report.
func (s *SendSessionService) Execute(ctx context.Context, transport domain.Transport, notifier domain.Notifier) (domain.SessionReport, error) {
	clock := s.settings.Clock
	start := clock()
	report := domain.SessionReport{
		SessionID: uuid.NewString(),
		Role:      domain.RoleSender,
		Framing:   s.settings.Framer.Name(),
		StartedAt: start,
	}
	scheduler := domain.NewSendScheduler(s.settings.Schedule, s.settings.Framer, domain.WithMaxZeroWrites(s.settings.MaxZeroWrites))
	scheduler.Arm(start)
	metrics := domain.NewMetricsAggregator(start)
	utils.Infof("sender session %s started: %d blocks, %d bytes over %s", report.SessionID,
		s.settings.Schedule.Len(), s.settings.Schedule.TotalBytes(), s.settings.Schedule.Span())

	err := s.loop(ctx, transport, notifier, scheduler, metrics, report.SessionID)
	if err != nil {
		scheduler.Close()
	}

	end := clock()
	report.Summary = metrics.Summary(end)
	report.Records = metrics.Records()
	report.Complete = err == nil
	report.Fail(err)
	s.sinks.report(report)
	return report, err
}

func (s *SendSessionService) loop(ctx context.Context, transport domain.Transport, notifier domain.Notifier,
	scheduler *domain.SendScheduler, metrics *domain.MetricsAggregator, sessionID string) error {

	clock := s.settings.Clock
	idle := s.settings.IdleTimeout
	lastProgress := clock()
	for {
		out := scheduler.OnWritable(transport, clock())
		metrics.AddBytes(out.Bytes)
		for _, rec := range out.Completed {
			metrics.Record(rec)
		}
		s.sinks.records(sessionID, domain.RoleSender, out.Completed)
		if out.Bytes > 0 || out.Kind != domain.OutcomeBlocked {
			lastProgress = clock()
		}

		var interest domain.Interest
		var timeout time.Duration
		switch out.Kind {
		case domain.OutcomeScheduleExhausted:
			return nil
		case domain.OutcomeError:
			return out.Err
		case domain.OutcomeBlocked:
			// the idle budget spans every wait since the last accepted byte
			timeout = idle - clock().Sub(lastProgress)
			if timeout <= 0 {
				return s.stalled(scheduler)
			}
			interest = domain.InterestWritable
		default:
			wait, ok := scheduler.NextDue(clock())
			if !ok || wait == 0 {
				continue
			}
			interest, timeout = domain.InterestNone, wait
		}

		ev, err := notifier.Wait(ctx, interest, timeout)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrScheduleIncomplete, err)
		}
		if ev == domain.EventTimeout && interest == domain.InterestWritable {
			return s.stalled(scheduler)
		}
	}
}

func (s *SendSessionService) stalled(scheduler *domain.SendScheduler) error {
	return fmt.Errorf("%w: no write progress for %s, %d blocks left",
		domain.ErrScheduleIncomplete, s.settings.IdleTimeout, scheduler.Remaining())
}
