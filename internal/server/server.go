package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tipscope/internal/pipeline"
	"tipscope/internal/profile"
)

// Config holds serving defaults applied when a request omits parameters.
type Config struct {
	DefaultFillEmpty bool
	TopN             int
	AssetDecimals    uint8
	PushInterval     time.Duration
}

// Server exposes the pipeline's read-only snapshot and on-demand
// aggregation to the dashboard, over plain HTTP and a websocket push.
type Server struct {
	cfg        Config
	controller *pipeline.Controller
	profiles   *profile.Client
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	// baseCtx outlives individual requests; period changes launch fetches
	// on it so they survive the request that triggered them.
	baseCtx context.Context
}

// NewServer builds a Server.
func NewServer(cfg Config, controller *pipeline.Controller, profiles *profile.Client, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 15
	}
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 5 * time.Second
	}
	return &Server{
		cfg:        cfg,
		controller: controller,
		profiles:   profiles,
		gatherer:   gatherer,
		logger:     logger,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/aggregate", s.handleAggregate)
	mux.HandleFunc("/api/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
