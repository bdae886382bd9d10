package api

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/trackline/sprint-insights/internal/analytics"
	"github.com/trackline/sprint-insights/internal/health"
	"github.com/trackline/sprint-insights/internal/requestid"
	"github.com/trackline/sprint-insights/internal/store"
)

// Defaults are the window sizes applied when query parameters are omitted.
type Defaults struct {
	CFDDays       int
	VelocityCount int
	MetricsCount  int
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine    *analytics.Engine
	store     *store.Store
	checker   *health.Checker
	defaults  Defaults
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine *analytics.Engine, st *store.Store, checker *health.Checker, defaults Defaults, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:    engine,
		store:     st,
		checker:   checker,
		defaults:  defaults,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// Burndown handles GET /api/v1/sprints/:id/burndown.
func (h *Handlers) Burndown(c *fiber.Ctx) error {
	series, err := h.engine.Burndown(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sprintId": c.Params("id"), "series": series})
}

// SprintScope handles GET /api/v1/sprints/:id/scope.
func (h *Handlers) SprintScope(c *fiber.Ctx) error {
	scope, err := h.engine.SprintScope(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(scope)
}

// SprintHealth handles GET /api/v1/sprints/:id/health.
func (h *Handlers) SprintHealth(c *fiber.Ctx) error {
	result, err := h.engine.SprintHealth(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// CumulativeFlow handles GET /api/v1/projects/:id/cumulative-flow.
func (h *Handlers) CumulativeFlow(c *fiber.Ctx) error {
	days := c.QueryInt("days", h.defaults.CFDDays)
	cf, err := h.engine.CumulativeFlow(requestContext(c), c.Params("id"), days)
	if err != nil {
		return err
	}
	return c.JSON(cf)
}

// CycleTime handles GET /api/v1/projects/:id/cycle-time.
func (h *Handlers) CycleTime(c *fiber.Ctx) error {
	count := c.QueryInt("sprints", h.defaults.MetricsCount)
	m, err := h.engine.CycleTimeMetrics(requestContext(c), c.Params("id"), count)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// Throughput handles GET /api/v1/projects/:id/throughput.
func (h *Handlers) Throughput(c *fiber.Ctx) error {
	count := c.QueryInt("sprints", h.defaults.MetricsCount)
	m, err := h.engine.ThroughputMetrics(requestContext(c), c.Params("id"), count)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// Velocity handles GET /api/v1/projects/:id/velocity.
func (h *Handlers) Velocity(c *fiber.Ctx) error {
	count := c.QueryInt("sprints", h.defaults.VelocityCount)
	records, err := h.engine.Velocity(requestContext(c), c.Params("id"), count)
	if err != nil {
		return err
	}
	if records == nil {
		records = []analytics.VelocityRecord{}
	}
	return c.JSON(fiber.Map{"projectId": c.Params("id"), "sprints": records})
}

// VelocityTrends handles GET /api/v1/projects/:id/velocity/trends.
func (h *Handlers) VelocityTrends(c *fiber.Ctx) error {
	trends, err := h.engine.VelocityTrends(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(trends)
}

// VelocityForecast handles GET /api/v1/projects/:id/velocity/forecast.
func (h *Handlers) VelocityForecast(c *fiber.Ctx) error {
	var input analytics.ForecastInput
	if raw := c.Query("remainingPoints"); raw != "" {
		pts, err := strconv.ParseFloat(raw, 64)
		if err != nil || pts < 0 {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_remaining_points", "Bad Request",
				"remainingPoints must be a non-negative number")
		}
		input.RemainingPoints = pts
	}
	if raw := c.Query("targetDate"); raw != "" {
		target, err := parseDateParam(raw)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_target_date", "Bad Request",
				"targetDate must be RFC 3339 or YYYY-MM-DD")
		}
		input.TargetDate = target
	}

	forecast, err := h.engine.VelocityForecast(requestContext(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(forecast)
}

// TeamComparison handles GET /api/v1/projects/:id/team-comparison.
func (h *Handlers) TeamComparison(c *fiber.Ctx) error {
	count := c.QueryInt("sprints", h.defaults.MetricsCount)
	team, err := h.engine.TeamComparison(requestContext(c), c.Params("id"), count)
	if err != nil {
		return err
	}
	if team == nil {
		team = []analytics.TeamMemberVelocity{}
	}
	return c.JSON(fiber.Map{"projectId": c.Params("id"), "team": team})
}

// Dashboard handles GET /api/v1/projects/:id/dashboard.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	d, err := h.engine.Dashboard(requestContext(c), c.Params("id"), h.defaults.MetricsCount)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(requestContext(c))
	ready := true
	for _, s := range results {
		if s == health.StatusDown {
			ready = false
			break
		}
	}
	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "not_ready"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": results})
}

// parseDateParam accepts RFC 3339 timestamps and bare dates.
func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// requestContext derives the request context with the request ID attached.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		ctx = requestid.WithRequestID(ctx, id)
	}
	return ctx
}
