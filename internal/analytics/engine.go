// Package analytics implements the sprint analytics and forecasting engine:
// scope reconstruction, burndown and cumulative-flow series, cycle-time and
// throughput statistics, velocity trends, forecasts and team comparison.
//
// The engine is stateless: every result is recomputed from the record store
// on each call and nothing is cached or persisted.
package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/trackline/sprint-insights/internal/metrics"
	"github.com/trackline/sprint-insights/internal/model"
)

// RecordStore is the read-only view of issue and sprint data the engine
// consumes. The engine never mutates the store.
type RecordStore interface {
	GetSprint(ctx context.Context, id string) (*model.Sprint, error)
	QueryIssues(ctx context.Context, f model.IssueFilter) ([]model.Issue, error)
	SprintsByProjectWithIssues(ctx context.Context, projectID, status string, limit int) ([]model.Sprint, error)
}

// WIPEstimator derives an in-progress count from the remaining (not done)
// count for a CFD day. The workflow has no status-transition history, so
// in-progress is estimated rather than observed; the default assumes 15%
// of remaining work is in flight.
type WIPEstimator func(remaining int) int

// Limits caps caller-supplied window parameters.
type Limits struct {
	MaxCFDDays     int
	MaxSprintCount int
}

// DefaultLimits returns the standard parameter caps.
func DefaultLimits() Limits {
	return Limits{MaxCFDDays: 400, MaxSprintCount: 52}
}

// Engine computes all sprint analytics. Safe for concurrent use.
type Engine struct {
	store   RecordStore
	logger  zerolog.Logger
	metrics *metrics.Metrics

	now         func() time.Time
	estimateWIP WIPEstimator
	limits      Limits
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's notion of "now" (for tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWIPEstimator replaces the default in-progress estimator.
func WithWIPEstimator(fn WIPEstimator) Option {
	return func(e *Engine) { e.estimateWIP = fn }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLimits overrides the parameter caps.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// New creates an analytics engine on top of the given record store.
func New(store RecordStore, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		logger:      logger.With().Str("component", "analytics").Logger(),
		now:         time.Now,
		estimateWIP: defaultWIPEstimator,
		limits:      DefaultLimits(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// completionInstant returns the best available proxy for when an issue was
// completed. There is no dedicated completion timestamp, so the last update
// time stands in; an unrelated edit after completion shifts it.
func completionInstant(issue *model.Issue) time.Time {
	return issue.UpdatedAt
}

func (e *Engine) observe(kind string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.RecordComputation(kind, outcome)
	e.metrics.ObserveComputation(kind, time.Since(start).Seconds())
}

func (e *Engine) clampSprintCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > e.limits.MaxSprintCount {
		return e.limits.MaxSprintCount
	}
	return n
}

func (e *Engine) clampDays(n int) int {
	if n < 1 {
		return 1
	}
	if n > e.limits.MaxCFDDays {
		return e.limits.MaxCFDDays
	}
	return n
}
