// Package server exposes a larder.DB over HTTP.
//
// Routes:
//
//	GET    /tables                   registered tables and their schemas
//	GET    /tables/:table            entities, filtered by field=value query parameters
//	GET    /tables/:table/:id        one entity
//	POST   /tables/:table            create
//	PUT    /tables/:table/:id        create or update
//	DELETE /tables/:table/:id        delete
//	GET    /dump                     every stored key
//	POST   /load                     restore a dump
//
// Reads accept include=rel.sub parameters, repeated or comma-separated.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/internal/logging"
	"github.com/mesh-intelligence/larder/pkg/larder"
)

// Server serves one DB.
type Server struct {
	db     *larder.DB
	echo   *echo.Echo
	logger *zap.Logger
}

// New creates a Server for db. serviceName labels the HTTP spans.
func New(db *larder.DB, serviceName string, logger *zap.Logger) *Server {
	s := &Server{db: db, echo: echo.New(), logger: logging.OrNop(logger)}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(otelecho.Middleware(serviceName))
	s.echo.Use(s.accessLog)
	s.RegisterRoutes(s.echo)
	return s
}

// RegisterRoutes adds the larder routes to e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/tables", s.handleTables)
	e.GET("/tables/:table", s.handleList)
	e.GET("/tables/:table/:id", s.handleGet)
	e.POST("/tables/:table", s.handleCreate)
	e.PUT("/tables/:table/:id", s.handlePut)
	e.DELETE("/tables/:table/:id", s.handleDelete)
	e.GET("/dump", s.handleDump)
	e.POST("/load", s.handleLoad)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.logger.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", c.Response().Status))
		return err
	}
}
