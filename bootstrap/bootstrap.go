package bootstrap

import (
	"BlockBench/internal/application/service"
	"BlockBench/internal/domain"
	"BlockBench/internal/domain/framing"
	"BlockBench/internal/platform/client"
	"BlockBench/internal/platform/config"
	"BlockBench/internal/platform/messaging/zeromq/publisher"
	"BlockBench/internal/platform/repository"
	"BlockBench/internal/platform/repository/recordlog"
	"BlockBench/internal/platform/server"
	"BlockBench/internal/platform/server/handler/report"
	"BlockBench/internal/platform/transport/tcp"
	"BlockBench/internal/platform/utils"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/dig"
)

// Sinks holds the report sinks of a session and the resources to release afterwards.
type Sinks struct {
	Sinks   []service.RecordSink
	closers []io.Closer
}

func (s *Sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			utils.Errorf("closing sink: %v", err)
		}
	}
}

func newContainer(cfg config.Config) (*dig.Container, error) {
	container := dig.New()
	serviceConstructors := []interface{}{
		func() config.Config { return cfg },
		framer,
		collectorClient,
		scheduleRepository,
		repository.NewReportRepository,
		report.NewReportHandler,
		httpServer,
		sinks,
		receiveSessionService,
		sendSessionService,
	}
	for _, constructor := range serviceConstructors {
		if err := container.Provide(constructor); err != nil {
			return nil, err
		}
	}
	return container, nil
}

// RunSender listens on the configured address, waits for the receiver to connect and plays the
// schedule to it.
func RunSender(ctx context.Context, cfg config.Config) (domain.SessionReport, error) {
	utils.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	container, err := newContainer(cfg)
	if err != nil {
		return domain.SessionReport{}, err
	}

	var result domain.SessionReport
	err = container.Invoke(func(svc *service.SendSessionService, sinks *Sinks, srv *server.Server) error {
		defer sinks.Close()
		defer startServer(cfg, srv)()

		addr := net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port))
		ln, err := tcp.Listen(ctx, addr, cfg.CCAlgorithm)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		defer ln.Close()
		utils.Infof("sender listening on %s", ln.Addr())

		transport, err := tcp.AcceptOne(ctx, ln)
		if err != nil {
			return fmt.Errorf("accepting receiver: %w", err)
		}
		defer transport.Close()

		result, err = svc.Execute(ctx, transport, transport)
		return err
	})
	return result, err
}

// RunReceiver connects to the sender and measures every block it delivers.
func RunReceiver(ctx context.Context, cfg config.Config) (domain.SessionReport, error) {
	utils.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	container, err := newContainer(cfg)
	if err != nil {
		return domain.SessionReport{}, err
	}

	var result domain.SessionReport
	err = container.Invoke(func(svc *service.ReceiveSessionService, sinks *Sinks, srv *server.Server) error {
		defer sinks.Close()
		defer startServer(cfg, srv)()

		addr := net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port))
		transport, err := tcp.Dial(ctx, addr, cfg.CCAlgorithm)
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", addr, err)
		}
		defer transport.Close()
		utils.Infof("receiver connected to %s", transport.RemoteAddr())

		result, err = svc.Execute(ctx, transport, transport)
		return err
	})
	return result, err
}

func framer(cfg config.Config) (domain.Framer, error) {
	return framing.New(cfg.Framing)
}

func collectorClient(cfg config.Config) *client.CollectorClient {
	return client.NewCollectorClient(cfg.CollectorUrl)
}

func scheduleRepository(cfg config.Config, c *client.CollectorClient) *repository.ScheduleRepository {
	return repository.NewScheduleRepository(c, cfg.MaxBlockSize)
}

func httpServer(cfg config.Config, h *report.ReportHandler) *server.Server {
	return server.NewServer("0.0.0.0", cfg.HttpPort, h)
}

func sinks(cfg config.Config, reports *repository.ReportRepository, c *client.CollectorClient) (*Sinks, error) {
	s := &Sinks{Sinks: []service.RecordSink{service.LogSink{}, service.NewReportRepositorySink(reports)}}

	if cfg.ReportFile != "" {
		file, err := repository.NewReportFileRepository(cfg.ReportFile)
		if err != nil {
			return nil, fmt.Errorf("opening report file: %w", err)
		}
		s.Sinks = append(s.Sinks, service.NewReportFileSink(file))
		s.closers = append(s.closers, file)
	}
	if cfg.RecordLog != "" {
		rl, err := recordlog.Open(cfg.RecordLog)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening record log: %w", err)
		}
		s.Sinks = append(s.Sinks, service.NewRecordLogSink(rl))
		s.closers = append(s.closers, rl)
	}
	if cfg.ZmqPubPort > 0 {
		pub := publisher.NewZeroMQBlockRecordPublisher(cfg.ZmqPubPort)
		if err := pub.Initialize(); err != nil {
			s.Close()
			return nil, err
		}
		s.Sinks = append(s.Sinks, service.NewPublisherSink(pub))
		s.closers = append(s.closers, pub)
	}
	if cfg.CollectorUrl != "" {
		s.Sinks = append(s.Sinks, service.NewCollectorSink(c))
	}
	return s, nil
}

func receiveSessionService(cfg config.Config, f domain.Framer, s *Sinks) (*service.ReceiveSessionService, error) {
	policy, err := domain.ParseFramingPolicy(cfg.FramingPolicy)
	if err != nil {
		return nil, err
	}
	settings := service.ReceiveSessionSettings{
		Framer:        f,
		FramingPolicy: policy,
		MaxBlockSize:  cfg.MaxBlockSize,
		IdleTimeout:   cfg.IdleTimeout,
		ArrivalStart:  cfg.ArrivalStart(),
		Sinks:         s.Sinks,
	}
	if cfg.DumpDir != "" {
		dump, err := repository.NewPacketDumpRepository(cfg.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("creating dump dir: %w", err)
		}
		settings.Dump = dump
	}
	return service.NewReceiveSessionService(settings), nil
}

func sendSessionService(cfg config.Config, f domain.Framer, schedules *repository.ScheduleRepository, s *Sinks) (*service.SendSessionService, error) {
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("no schedule configured")
	}
	schedule, err := schedules.Load(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return service.NewSendSessionService(service.SendSessionSettings{
		Schedule:    schedule,
		Framer:      f,
		IdleTimeout: cfg.IdleTimeout,
		Sinks:       s.Sinks,
	}), nil
}

// startServer runs the report API when an HTTP port is configured and returns its stop function.
func startServer(cfg config.Config, srv *server.Server) func() {
	if cfg.HttpPort <= 0 {
		return func() {}
	}
	go func() {
		if err := srv.Run(); err != nil {
			utils.Errorf("report server: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
