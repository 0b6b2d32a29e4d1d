package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/turtacn/connprobe/internal/config"
	"github.com/turtacn/connprobe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/connprobe/pkg/errors"
)

// Server owns the HTTP listener lifecycle.
type Server struct {
	srv             *stdhttp.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
}

// NewServer wraps handler in an http.Server configured from cfg.
func NewServer(cfg config.HTTPConfig, handler stdhttp.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		srv: &stdhttp.Server{
			Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Start listens on the configured address and serves until Stop. A clean
// shutdown returns nil.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeServiceUnavailable, "failed to listen on %s", s.srv.Addr)
	}
	return s.Serve(lis)
}

// Serve serves on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("HTTP server listening", logging.String("address", lis.Addr().String()))
	if err := s.srv.Serve(lis); err != nil && err != stdhttp.ErrServerClosed {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "HTTP server failed")
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests up to the
// configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "HTTP server shutdown failed")
	}
	return nil
}

// Handler returns the served handler.
func (s *Server) Handler() stdhttp.Handler {
	return s.srv.Handler
}

//Personal.AI order the ending
