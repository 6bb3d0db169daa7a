// Package api exposes the backtest service over REST and a WebSocket replay
// endpoint. Every JSON response uses the APIResponse envelope.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORS         bool
}

// ServerOption configures a Server.
type ServerOption func(*ServerConfig)

// WithTimeouts sets read and write timeouts. The WebSocket endpoint
// sets its own deadlines after the upgrade.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
	}
}

// WithCORS enables or disables the CORS middleware.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) { c.CORS = enabled }
}

// Server wraps an Echo instance.
type Server struct {
	echo   *echo.Echo
	config ServerConfig
}

// NewServer builds the Echo stack and registers h.
func NewServer(addr string, h *Handler, opts ...ServerOption) *Server {
	cfg := ServerConfig{
		Addr:        addr,
		ReadTimeout: 15 * time.Second,
		CORS:        true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(Recover())
	e.Use(RequestLogging())
	if cfg.CORS {
		e.Use(CORS(CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				echo.HeaderOrigin,
				echo.HeaderContentType,
				echo.HeaderAccept,
			},
		}))
	}

	if h != nil {
		h.RegisterRoutes(e)
	}
	return &Server{echo: e, config: cfg}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		slog.Info("http server listening", "addr", s.config.Addr)
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo { return s.echo }
