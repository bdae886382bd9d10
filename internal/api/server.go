// Package api exposes the analytics engine and record store over HTTP.
package api

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/trackline/sprint-insights/internal/metrics"
	"github.com/trackline/sprint-insights/internal/requestid"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	TLSCert     string
	TLSKey      string
}

// Server is the API Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, handlers *Handlers, collector *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, collector, logger)
	s.setupRoutes(handlers, collector)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, collector *metrics.Metrics, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, logger))

	// Request log + counter. Probes stay quiet.
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if probePath(path) {
			return c.Next()
		}

		err := c.Next()

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Str("request_id", requestIDOf(c)).
			Msg("api request")

		if collector != nil {
			collector.RecordHTTPRequest(c.Route().Path, strconv.Itoa(c.Response().StatusCode()))
		}
		return err
	})
}

func (s *Server) setupRoutes(h *Handlers, collector *metrics.Metrics) {
	// Probe endpoints (exempt from auth and rate limiting)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)

	if collector != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(collector.Handler()))
	}

	v1 := s.app.Group("/api/v1")

	// Sprint analytics
	v1.Get("/sprints/:id/burndown", h.Burndown)
	v1.Get("/sprints/:id/scope", h.SprintScope)
	v1.Get("/sprints/:id/health", h.SprintHealth)

	// Project analytics
	v1.Get("/projects/:id/cumulative-flow", h.CumulativeFlow)
	v1.Get("/projects/:id/cycle-time", h.CycleTime)
	v1.Get("/projects/:id/throughput", h.Throughput)
	v1.Get("/projects/:id/velocity", h.Velocity)
	v1.Get("/projects/:id/velocity/trends", h.VelocityTrends)
	v1.Get("/projects/:id/velocity/forecast", h.VelocityForecast)
	v1.Get("/projects/:id/team-comparison", h.TeamComparison)
	v1.Get("/projects/:id/dashboard", h.Dashboard)

	// Record CRUD
	v1.Post("/issues", h.CreateIssue)
	v1.Get("/issues/:id", h.GetIssue)
	v1.Patch("/issues/:id", h.UpdateIssue)
	v1.Post("/sprints", h.CreateSprint)
	v1.Get("/sprints/:id", h.GetSprint)
	v1.Patch("/sprints/:id", h.UpdateSprint)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	s.logger.Info().Str("addr", addr).Msg("api server starting")

	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		return s.app.ListenTLS(addr, s.config.TLSCert, s.config.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}

func requestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return ""
}
