// Package api serves printer snapshots and the device inventory over HTTP.
//
//	GET /api/printers                          inventory, sorted by label
//	GET /api/printers/{address}                full snapshot
//	GET /api/printers/{address}/status         status section
//	GET /api/printers/{address}/consumables    consumables section
//	GET /healthz                               liveness
//	GET /metrics                               Prometheus exposition
//
// Snapshot routes accept ?community= to override the preferred community.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vpbank/printer_monitor/models"
	"github.com/vpbank/printer_monitor/pkg/printermonitor/credential"
)

// Service is the subset of service.Service the handlers consume.
type Service interface {
	GetSnapshot(ctx context.Context, address, community string) (models.DeviceSnapshot, error)
	ListKnownDevices() []models.KnownDevice
}

// Config controls the HTTP server.
type Config struct {
	Listen    string
	RateLimit float64
	RateBurst int
}

// Server is the monitor's HTTP front end.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *zap.Logger
}

// New builds the handler chain. gatherer backs /metrics and reg receives
// the HTTP collectors; either may be nil, in which case the process-global
// default registry is used for that role.
func New(cfg Config, svc Service, reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/printers", s.handleList)
	mux.HandleFunc("GET /api/printers/{address}", s.handleSnapshot)
	mux.HandleFunc("GET /api/printers/{address}/status", s.handleStatus)
	mux.HandleFunc("GET /api/printers/{address}/consumables", s.handleConsumables)

	opsPaths := []string{"/healthz", "/metrics"}
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, NewMetrics(reg), opsPaths),
		RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst, opsPaths),
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return <-errCh
}

// ─────────────────────────────────────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListKnownDevices())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.snapshot(w, r); ok {
		writeJSON(w, http.StatusOK, snap)
	}
}

type sectionHeader struct {
	Address   string    `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Reachable bool      `json:"reachable"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		sectionHeader
		models.Status
		Errors models.Errors `json:"errors"`
	}{headerOf(snap), snap.Status, snap.Errors})
}

func (s *Server) handleConsumables(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		sectionHeader
		models.Consumables
	}{headerOf(snap), snap.Consumables})
}

// snapshot polls the device named in the path. It writes the error response
// itself and reports whether the caller should continue.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (models.DeviceSnapshot, bool) {
	address := r.PathValue("address")
	snap, err := s.svc.GetSnapshot(r.Context(), address, r.URL.Query().Get("community"))
	switch {
	case err == nil:
		return snap, true
	case errors.Is(err, credential.ErrInvalidAddress):
		badRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
	default:
		s.logger.Error("snapshot failed",
			zap.String("address", address),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		internalError(w, "snapshot failed", r.URL.Path)
	}
	return models.DeviceSnapshot{}, false
}

func headerOf(snap models.DeviceSnapshot) sectionHeader {
	return sectionHeader{Address: snap.Address, Timestamp: snap.Timestamp, Reachable: snap.Reachable}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
