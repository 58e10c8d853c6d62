// Package server exposes the HTTP trigger endpoint. A request acknowledges
// immediately with 202 and the ingestion run continues as detached
// background work; the caller cannot observe completion or outcome.
package server

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"

	"github.com/averlon/fieldatlas/internal/conf"
	"github.com/averlon/fieldatlas/internal/logging"
	"github.com/averlon/fieldatlas/internal/pipeline"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Package-level logger specific to the HTTP server
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	serviceLevelVar.Set(slog.LevelDebug)
	logger, _, err = logging.NewFileLogger("logs/server.log", "server", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize server file logger: %v. Service logging disabled.", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "server")
	}
}

// Server wraps echo around the run scheduler.
type Server struct {
	echo      *echo.Echo
	scheduler *pipeline.Scheduler
	address   string
}

// New creates the trigger server.
func New(scheduler *pipeline.Scheduler, config conf.ServerSettings) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		scheduler: scheduler,
		address:   config.Address,
	}

	// Any method triggers a run, they are all treated the same
	e.Any("/run", s.handleRun)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok\n")
	})

	return s
}

// handleRun responds 202 and detaches the run. No error from the pipeline
// ever reaches the HTTP caller; the response is gone before work begins.
func (s *Server) handleRun(c echo.Context) error {
	logger.Info("Ingestion run triggered",
		"method", c.Request().Method,
		"remote", c.RealIP())

	go s.runDetached()

	return c.String(http.StatusAccepted, "Accepted: ingestion run started\n")
}

// runDetached executes one scheduler run with its own error boundary so a
// background failure never takes down the host process.
func (s *Server) runDetached() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Ingestion run panicked", "panic", r)
		}
	}()

	if err := s.scheduler.Run(context.Background()); err != nil {
		logger.Error("Ingestion run ended with error", "error", err)
	}
}

// Start begins serving and blocks until shutdown.
func (s *Server) Start() error {
	logger.Info("Trigger server listening", "address", s.address)
	err := s.echo.Start(s.address)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully. In-flight background runs are
// abandoned; whatever was durably written stays, the next run resumes via
// the reuse-if-present rule.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
