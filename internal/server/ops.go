// Package server provides the operational HTTP surface for the load shaper:
// health probes, a session status endpoint, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shardops/loadshaper/internal/config"
	"github.com/shardops/loadshaper/internal/health"
	"github.com/shardops/loadshaper/internal/model"
)

// StatusSource reports the state of the running load session
type StatusSource interface {
	Status() model.SessionStatus
}

// OpsServer serves the operational endpoints
type OpsServer struct {
	router     *mux.Router
	httpServer *http.Server
	logger     *zap.Logger
}

// NewOpsServer creates the ops HTTP server
func NewOpsServer(cfg config.Ops, checker *health.HealthChecker, status StatusSource, logger *zap.Logger) *OpsServer {
	router := mux.NewRouter()

	router.HandleFunc("/health/live", checker.LivenessHandler).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", checker.ReadinessHandler).Methods(http.MethodGet)
	router.Handle(cfg.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status.Status())
	}).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return &OpsServer{
		router:     router,
		httpServer: httpServer,
		logger:     logger,
	}
}

// Start begins serving in a background goroutine
func (s *OpsServer) Start() {
	go func() {
		s.logger.Info("Starting ops server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Ops server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully
func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
