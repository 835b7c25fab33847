// Package server exposes health and metrics endpoints for a running
// launchbase process.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adrianmcphee/launchbase"
)

const (
	DefaultAddr        = ":8080"
	defaultPingTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Server serves /health, /healthz and /metrics for one Storage.
type Server struct {
	storage     launchbase.Storage
	logger      launchbase.Logger
	registry    *prometheus.Registry
	service     string
	version     string
	pingTimeout time.Duration
	engine      *gin.Engine
}

// Option configures New
type Option func(*Server)

func WithLogger(l launchbase.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry exposes registry on /metrics. Without it /metrics serves the
// Prometheus default gatherer.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) { s.registry = r }
}

func WithVersion(service, version string) Option {
	return func(s *Server) {
		s.service = service
		s.version = version
	}
}

func WithPingTimeout(d time.Duration) Option {
	return func(s *Server) { s.pingTimeout = d }
}

func New(storage launchbase.Storage, opts ...Option) *Server {
	s := &Server{
		storage:     storage,
		logger:      &launchbase.NoOpLogger{},
		service:     "launchbase",
		version:     "dev",
		pingTimeout: defaultPingTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	health := NewHealthHandler(s.service, s.version, s.storage, s.pingTimeout)
	health.RegisterRoutes(r)

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if s.registry != nil {
		gatherer = s.registry
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr, "backend", string(s.storage.Kind()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one line per request at Debug, or Warn for 5xx.
func requestLogger(logger launchbase.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
