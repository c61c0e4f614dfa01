// Package server exposes the dashboard backend over HTTP/JSON.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/internal/domain/report"
	"github.com/caratlabs/storepulse/pkg/config"
)

// Server owns the HTTP listener and routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Handlers bundles the services the routes dispatch to.
type Handlers struct {
	ETL        ImportService
	Stores     StoreLister
	KPIs       *kpi.Service
	Forecaster *forecast.Forecaster
	Reports    *report.Service
	Logger     *slog.Logger
}

// New builds the server with routing and middleware applied.
func New(cfg *config.Config, h *Handlers) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/imports", h.handleImport)
	mux.HandleFunc("GET /v1/stores", h.handleListStores)
	mux.HandleFunc("GET /v1/stores/{id}/dates", h.handleStoreDates)
	mux.HandleFunc("GET /v1/stores/{id}/kpis", h.handleKPIs)
	mux.HandleFunc("GET /v1/stores/{id}/charts/{metric}", h.handleChart)
	mux.HandleFunc("GET /v1/stores/{id}/forecast", h.handleForecast)
	mux.HandleFunc("GET /v1/stores/{id}/report", h.handleReport)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	if cfg.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	limiter := rate.NewLimiter(
		rate.Limit(cfg.Server.RateLimitPerSecond),
		cfg.Server.RateLimitBurst,
	)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(limiter, handler)
	handler = requestLogMiddleware(h.Logger, handler)
	handler = cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Report generation waits on a hosted model; keep headroom.
			WriteTimeout: 90 * time.Second,
		},
		logger: h.Logger,
	}
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
