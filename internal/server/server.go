package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"parking-attendant/internal/logging"
	"parking-attendant/internal/parking"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, desk *parking.Desk, serviceName string) *Server {
	handler := NewHandler(desk, serviceName)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/parking", func(r chi.Router) {
		r.Post("/entry", handler.Entry)
		r.Post("/exit", handler.Exit)
		r.Post("/capture", handler.Capture)
		r.Get("/ticket", handler.GetTicket)
		r.Get("/ticket/barcode.png", handler.GetBarcode)
		r.Get("/sessions/{identifier}", handler.FindSession)
		r.Get("/status", handler.GetStatus)
	})

	return r
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	logging.Info(context.Background()).Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx).Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
