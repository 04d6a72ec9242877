package main

import (
	"BlockBench/internal/domain"
	"BlockBench/internal/platform/messaging/zeromq/listener"
	"BlockBench/internal/platform/messaging/zeromq/message"
	"BlockBench/internal/platform/repository"
	"BlockBench/internal/platform/repository/recordlog"
	"BlockBench/internal/platform/server"
	"BlockBench/internal/platform/server/handler/report"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Collector gathers the records published by senders and receivers and serves them over HTTP.
type Collector struct {
	reports   *repository.ReportRepository
	recordLog *recordlog.RecordLog
}

func NewCollector(reports *repository.ReportRepository, recordLog *recordlog.RecordLog) *Collector {
	return &Collector{reports: reports, recordLog: recordLog}
}

func (c *Collector) HandleBlock(msg message.BlockMessage) {
	rec := msg.ToBlockRecord()
	c.reports.Append(msg.SessionId, domain.Role(msg.Role), rec)
	if c.recordLog == nil {
		return
	}
	if err := c.recordLog.Write(rec); err != nil {
		log.Println("Error writing record log:", err)
	}
}

func (c *Collector) HandleSummary(msg message.SummaryMessage) {
	role := domain.Role(msg.Role)
	c.reports.Save(domain.SessionReport{
		SessionID: msg.SessionId,
		Role:      role,
		Framing:   msg.Framing,
		Summary:   msg.Summary,
		Records:   c.reports.Records(role),
		Complete:  msg.Complete,
		Error:     msg.Error,
	})
	log.Printf("Session %s (%s) closed: %d blocks, complete=%t\n", msg.SessionId, msg.Role, msg.Summary.Blocks, msg.Complete)
}

func main() {
	subAddrs := flag.String("sub", "tcp://127.0.0.1:7000", "comma separated PUB endpoints to subscribe to")
	httpPort := flag.Int("http-port", 8080, "Port for the report API")
	logFile := flag.String("record-log", "", "append every collected record to this file")
	flag.Parse()

	if *httpPort <= 0 {
		log.Println("Port must be a positive integer")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recordLog *recordlog.RecordLog
	if *logFile != "" {
		rl, err := recordlog.Open(*logFile)
		if err != nil {
			log.Fatalf("Failed to open record log %s: %v", *logFile, err)
		}
		defer rl.Close()
		recordLog = rl
	}

	reports := repository.NewReportRepository()
	sub := listener.NewZeromqBlockRecordListener(ctx, NewCollector(reports, recordLog))
	for _, addr := range strings.Split(*subAddrs, ",") {
		if err := sub.Dial(strings.TrimSpace(addr)); err != nil {
			log.Fatalf("Failed to subscribe: %v", err)
		}
	}
	go sub.Listen()

	srv := server.NewServer("0.0.0.0", *httpPort, report.NewReportHandler(reports))
	go func() {
		<-ctx.Done()
		sub.Close()
		srv.Shutdown(context.Background())
	}()
	log.Printf("Collector serving reports on :%d\n", *httpPort)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
