// Package server exposes the review surface, scan trigger and event stream over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/services/review"
)

// Scanner triggers one extraction scan.
type Scanner interface {
	ScanAndExtract(ctx context.Context) (entity.ScanResult, error)
}

// Queue is the read and admin side of the pending queue.
type Queue interface {
	ListAll(ctx context.Context) ([]entity.ExtractionRecord, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	ClearProcessedFiles(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Reviewer performs review decisions on single records.
type Reviewer interface {
	Approve(ctx context.Context, id string) (entity.ApprovalResult, error)
	Reject(ctx context.Context, id string) error
	Edit(ctx context.Context, id string, upd entity.RecordUpdate) (entity.ExtractionRecord, error)
	Source(ctx context.Context, id string) (review.SourceFile, error)
}

type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server is the HTTP API.
type Server struct {
	echo     *echo.Echo
	scanner  Scanner
	queue    Queue
	reviewer Reviewer
	events   http.Handler
	logger   *zap.Logger
	cfg      Config
}

// NewServer wires the routes. events serves the WebSocket stream and may be nil.
func NewServer(scanner Scanner, q Queue, reviewer Reviewer, events http.Handler, cfg Config, logger *zap.Logger) (*Server, error) {
	if scanner == nil || q == nil || reviewer == nil {
		return nil, errors.New("scanner, queue and reviewer are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowCredentials: true,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := common.WithRequestID(c.Request().Context(), rid)
			ctx = common.WithLogger(ctx, logger)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http.request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", rid),
			)
			return nil
		}
	})

	s := &Server{
		echo:     e,
		scanner:  scanner,
		queue:    q,
		reviewer: reviewer,
		events:   events,
		logger:   logger,
		cfg:      cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/scan", s.handleScan)

	api.GET("/pending", s.handleListPending)
	api.GET("/pending/count", s.handlePendingCount)
	api.DELETE("/pending/clear", s.handleClearPending)

	api.POST("/approve/:id", s.handleApprove)
	api.POST("/reject/:id", s.handleReject)
	api.PATCH("/edit/:id", s.handleEdit)
	api.GET("/source/:id", s.handleSource)

	if s.events != nil {
		api.GET("/ws", echo.WrapHandler(s.events))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("server.http.start", zap.String("addr", s.cfg.Addr))
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server.http.shutdown")
	return s.echo.Shutdown(ctx)
}
