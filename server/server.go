// Package server is the HTTP boundary of the relay.
//
// It serves GET /health and POST /relay on gin, applies permissive
// CORS headers to every response, assigns a correlation id to each
// relay request and reports the request's progress to the audit
// logger. Audit calls never block or fail a response.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Banner is the plaintext body served for any unrouted request.
const Banner = "Sponsor relay. POST /relay with {\"transaction\": \"<hex>\"}; GET /health for status.\n"

// Options configures a Server. Orchestrator, Limiter and Audit are
// required.
type Options struct {
	Orchestrator *pipeline.Orchestrator
	Limiter      relay.RateLimiter
	Audit        relay.AuditLogger

	// Version is reported by /health.
	Version string

	// Logger receives operator logs. Default slog.Default().
	Logger *slog.Logger

	// NewRequestID generates correlation ids. Default uuid.NewString.
	NewRequestID func() string

	// ShutdownTimeout bounds graceful shutdown in Run. Default 10s.
	ShutdownTimeout time.Duration
}

// Server is the relay's HTTP front end.
type Server struct {
	orch    *pipeline.Orchestrator
	limiter relay.RateLimiter
	audit   relay.AuditLogger
	cfg     relay.Config

	version         string
	logger          *slog.Logger
	newRequestID    func() string
	shutdownTimeout time.Duration

	engine *gin.Engine
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New creates a server. Panics if a required option is missing.
func New(opts Options) *Server {
	if opts.Orchestrator == nil || opts.Limiter == nil || opts.Audit == nil {
		panic("server: Orchestrator, Limiter and Audit are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewRequestID == nil {
		opts.NewRequestID = uuid.NewString
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		orch:            opts.Orchestrator,
		limiter:         opts.Limiter,
		audit:           opts.Audit,
		cfg:             opts.Orchestrator.Config(),
		version:         opts.Version,
		logger:          opts.Logger,
		newRequestID:    opts.NewRequestID,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = false
	r.RedirectTrailingSlash = false
	r.Use(CORS())
	r.Use(gin.CustomRecovery(s.recovered))

	r.Any("/health", s.health)
	r.POST("/relay", s.relay)
	r.NoRoute(s.banner)
	return r
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	hs := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "addr", lis.Addr().String(), "network", s.cfg.Network.Name)
		errc <- hs.Serve(lis)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"network": s.cfg.Network.Name,
		"version": s.version,
	})
}

func (s *Server) banner(c *gin.Context) {
	c.String(http.StatusOK, Banner)
}
