// Package server builds the echo-based REST/SSE surface workflowd and
// `workflow serve` both expose: run workspaces, kick off runs, stream their
// event log, browse history, and hot-patch a workflow file in place. Built
// around a setupEcho/setupMiddleware/registerRoutes split with per-route-
// group middleware, wired to direct synchronous/SSE execution through
// internal/runtime rather than an out-of-process run model.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/workflow-engine/common/ratelimit"
	commonmiddleware "github.com/lyzr/workflow-engine/common/middleware"
	"github.com/lyzr/workflow-engine/common/validation"
	"github.com/lyzr/workflow-engine/internal/history"
	"github.com/lyzr/workflow-engine/internal/runtime"
	"github.com/lyzr/workflow-engine/internal/workspace"
)

// Logger is the narrow logging surface this package depends on.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Config wires a Server's dependencies. RateLimiter is optional: when nil,
// requests are never throttled (matches running without Redis configured).
type Config struct {
	Runtime     *runtime.Runtime
	Registry    *workspace.Registry
	History     history.Store
	RateLimiter *ratelimit.RateLimiter
	Log         Logger
}

// Server owns the echo instance and the handler dependencies behind it.
type Server struct {
	Echo *echo.Echo

	rt       *runtime.Runtime
	registry *workspace.Registry
	hist     history.Store
	patchVal *validation.PatchValidator
	rl       *ratelimit.RateLimiter
	log      Logger
}

// New builds a Server with all routes registered.
func New(cfg Config) *Server {
	s := &Server{
		rt:       cfg.Runtime,
		registry: cfg.Registry,
		hist:     cfg.History,
		patchVal: validation.NewPatchValidator(),
		rl:       cfg.RateLimiter,
		log:      cfg.Log,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "workflow-engine"})
	})

	workspaces := e.Group("/api/v1/workspaces")
	if cfg.RateLimiter != nil {
		workspaces.Use(commonmiddleware.GlobalRateLimitMiddleware(cfg.RateLimiter, ratelimit.DefaultGlobalConfig.Limit))
	}
	{
		workspaces.GET("", s.listWorkspaces)
		workspaces.POST("", s.addWorkspace)
		workspaces.DELETE("/:name", s.removeWorkspace)
		workspaces.GET("/:name/runs", s.listRuns)
		workspaces.POST("/:name/runs", s.createRun)
		workspaces.GET("/:name/workflows/*", s.getWorkflow)
		workspaces.PATCH("/:name/workflows/*", s.patchWorkflow)
	}

	runs := e.Group("/api/v1/runs")
	{
		runs.GET("/:id", s.getRun)
	}

	s.Echo = e
	return s
}

// Start runs the HTTP listener; blocks until it returns (error or a clean
// Shutdown from another goroutine).
func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}
