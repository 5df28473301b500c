// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web serves the analysis HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"toxic-scan/internal/core"
	"toxic-scan/internal/extract"
	"toxic-scan/internal/logging"
	"toxic-scan/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Formatters registered for ?format= exports
	_ "toxic-scan/internal/formatters/csv"
	_ "toxic-scan/internal/formatters/html"
	_ "toxic-scan/internal/formatters/json"
	_ "toxic-scan/internal/formatters/text"
	_ "toxic-scan/internal/formatters/yaml"
)

const (
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Reloader rebuilds the detector catalog after custom pattern changes
type Reloader interface {
	Reload(ctx context.Context) error
}

// Options wires the server's collaborators. Store, Reloader and
// Gatherer are optional.
type Options struct {
	Detector      *core.Detector
	Store         *store.Store
	Reloader      Reloader
	Extractor     *extract.Extractor
	Gatherer      prometheus.Gatherer
	Logger        logging.Logger
	MaxTextLength int

	Address         string
	Mode            string // gin mode: debug, release or test
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API
type Server struct {
	opts   Options
	log    logging.Logger
	router *gin.Engine
}

// New builds the router
func New(opts Options) (*Server, error) {
	if opts.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.New(0)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = 10000
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		opts: opts,
		log:  opts.Logger.With(logging.String("component", "web")),
	}
	s.router = gin.New()
	s.router.Use(requestID(), s.requestLogger(), gin.Recovery())
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)          // POST /api/v1/analyze
		v1.POST("/analyze/file", s.handleAnalyzeFile) // POST /api/v1/analyze/file
		v1.GET("/automaton", s.handleAutomaton)       // GET /api/v1/automaton

		analyses := v1.Group("/analyses", s.requireStore)
		analyses.GET("", s.handleListAnalyses)    // GET /api/v1/analyses
		analyses.GET("/:id", s.handleGetAnalysis) // GET /api/v1/analyses/:id

		stats := v1.Group("/statistics", s.requireStore)
		stats.GET("", s.handleStatistics)          // GET /api/v1/statistics
		stats.GET("/:date", s.handleDayStatistics) // GET /api/v1/statistics/:date

		patterns := v1.Group("/patterns", s.requireStore)
		patterns.GET("", s.handleListPatterns)         // GET /api/v1/patterns
		patterns.POST("", s.handleCreatePattern)       // POST /api/v1/patterns
		patterns.PATCH("/:id", s.handleUpdatePattern)  // PATCH /api/v1/patterns/:id
		patterns.DELETE("/:id", s.handleDeletePattern) // DELETE /api/v1/patterns/:id
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: orDefault(s.opts.ReadTimeout, defaultReadTimeout),
		ReadTimeout:       orDefault(s.opts.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      orDefault(s.opts.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       defaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logging.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), orDefault(s.opts.ShutdownTimeout, defaultShutdownTimeout))
	defer cancel()
	s.log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
