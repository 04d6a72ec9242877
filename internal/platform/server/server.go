package server

import (
	"BlockBench/internal/platform/server/handler/health"
	"BlockBench/internal/platform/server/handler/report"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpAddr string
	engine   *chi.Mux
	http     *http.Server
}

func NewServer(host string, port int, reportHandler *report.ReportHandler) *Server {
	url := fmt.Sprintf("%s:%d", host, port)
	srv := &Server{
		engine:   chi.NewRouter(),
		httpAddr: url,
	}
	srv.engine.Use(middleware.Logger)
	srv.registerRoutes(reportHandler)
	srv.http = &http.Server{Addr: url, Handler: srv.engine}
	return srv
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Println("Server Running on:", s.httpAddr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes(reportHandler *report.ReportHandler) {
	s.engine.Get("/health", health.CheckHandler)
	s.engine.Get("/report", reportHandler.GetReports)
	s.engine.Get("/report/blocks", reportHandler.GetBlocks)
	s.engine.Get("/api/v1/reports", reportHandler.GetReports)
	s.engine.Post("/api/v1/reports", reportHandler.SaveReport)
}
