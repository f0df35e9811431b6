// Package api exposes live run progress over HTTP while a batch is in
// flight, so a long download can be watched from another terminal or
// scraped by tooling.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/astrodl/ffibulk/internal/engine"
	"github.com/astrodl/ffibulk/internal/logger"
)

type StatusServer struct {
	progress *engine.Progress
	log      *logger.Logger
	srv      *http.Server
}

func NewStatusServer(addr string, progress *engine.Progress, log *logger.Logger) *StatusServer {
	e := echo.New()

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	s := &StatusServer{progress: progress, log: log}

	e.GET("/status", s.handleStatus)
	e.GET("/failures", s.handleFailures)

	s.srv = &http.Server{Addr: addr, Handler: e}
	return s
}

// Start serves until Shutdown; it is meant to run in its own goroutine.
func (s *StatusServer) Start() {
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error("status server: %v", err)
	}
}

func (s *StatusServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func (s *StatusServer) handleStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.progress.Snapshot())
}

func (s *StatusServer) handleFailures(c *echo.Context) error {
	return c.JSON(http.StatusOK, s.progress.Failures())
}
