// Package http serves the conversion API together with health and metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tubelink/internal/core"
	"tubelink/internal/flood"
	"tubelink/internal/i18n"
)

const (
	serviceName     = "tubelink"
	shutdownTimeout = 10 * time.Second
)

// Options are the collaborators the HTTP layer needs.
type Options struct {
	Converter Converter
	Metrics   *Metrics
	Localizer *i18n.Localizer
	Floodgate *flood.Floodgate // nil disables rate limiting.
}

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
	gate   *flood.Floodgate
}

func NewServer(config *core.ServerConfig, opts Options, logger *zap.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, setupRoutes(opts, logger)),
		gate:   opts.Floodgate,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         config.Addr(),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(opts Options, logger *zap.Logger) http.Handler {
	localizer := opts.Localizer
	if localizer == nil {
		localizer = i18n.NewLocalizer(i18n.DefaultLanguage)
	}

	h := &handlers{
		converter: opts.Converter,
		localizer: localizer,
		metrics:   opts.Metrics,
		gate:      opts.Floodgate,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", withFloodgate(h.convert, opts.Floodgate, h))
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
	mux.Handle("GET /metrics", opts.Metrics.Handler())
	mux.HandleFunc("GET /{$}", homeHandler)

	return withCORS(withRequestID(withLogging(mux, opts.Metrics, logger)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
		if s.gate != nil {
			s.gate.Stop()
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}
