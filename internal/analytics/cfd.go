package analytics

import (
	"context"
	"math"
	"time"

	"github.com/trackline/sprint-insights/internal/model"
)

func defaultWIPEstimator(remaining int) int {
	return int(math.Round(float64(remaining) * 0.15))
}

// CumulativeFlow produces a daily todo/in-progress/done series for the
// project over the trailing window plus derived bottleneck and WIP-trend
// signals. In-progress counts are estimated, not observed: the store keeps
// no status-transition history.
func (e *Engine) CumulativeFlow(ctx context.Context, projectID string, days int) (*CumulativeFlow, error) {
	start := e.now()
	cf, err := e.cumulativeFlow(ctx, projectID, days)
	e.observe("cumulative_flow", start, err)
	return cf, err
}

func (e *Engine) cumulativeFlow(ctx context.Context, projectID string, days int) (*CumulativeFlow, error) {
	days = e.clampDays(days)

	now := e.now().UTC()
	end := endOfDay(now)
	windowStart := end.AddDate(0, 0, -days)

	issues, err := e.store.QueryIssues(ctx, model.IssueFilter{
		ProjectID:     projectID,
		CreatedBefore: end,
	})
	if err != nil {
		return nil, err
	}

	series := make([]CFDPoint, 0, days+1)
	for d := days; d >= 0; d-- {
		date := endOfDay(now.AddDate(0, 0, -d))

		created, done := 0, 0
		for i := range issues {
			issue := &issues[i]
			if issue.CreatedAt.After(date) {
				continue
			}
			created++
			if issue.Done() && !completionInstant(issue).After(date) {
				done++
			}
		}

		remaining := created - done
		inProgress := e.estimateWIP(remaining)
		if inProgress > remaining {
			inProgress = remaining
		}

		series = append(series, CFDPoint{
			Date:       date,
			Todo:       remaining - inProgress,
			InProgress: inProgress,
			Done:       done,
			Total:      created,
		})
	}

	return &CumulativeFlow{
		ProjectID: projectID,
		Series:    series,
		Metrics:   e.cfdMetrics(issues, series, windowStart, end, days),
	}, nil
}

func (e *Engine) cfdMetrics(issues []model.Issue, series []CFDPoint, windowStart, end time.Time, days int) CFDMetrics {
	m := CFDMetrics{WIPTrend: TrendStable}

	// Cycle time and throughput over issues completed inside the window.
	var cycleTimes []float64
	completedCount := 0
	for i := range issues {
		issue := &issues[i]
		if !issue.Done() {
			continue
		}
		ci := completionInstant(issue)
		if ci.Before(windowStart) || ci.After(end) {
			continue
		}
		completedCount++
		cycleTimes = append(cycleTimes, cycleTimeDays(issue))
	}
	m.AvgCycleTimeDays = round1(mean(cycleTimes))
	if days > 0 {
		m.AvgThroughputPerWeek = round1(float64(completedCount) / (float64(days) / 7))
	}

	if len(series) == 0 {
		return m
	}

	// Bottleneck over the trailing week of the series.
	tail := series
	if len(tail) > 7 {
		tail = tail[len(tail)-7:]
	}
	var inProgressSum, todoSum float64
	for _, p := range tail {
		inProgressSum += float64(p.InProgress)
		todoSum += float64(p.Todo)
	}
	avgInProgress := inProgressSum / float64(len(tail))
	avgTodo := todoSum / float64(len(tail))
	switch {
	case avgInProgress > 1.5*avgTodo:
		m.BottleneckStatus = model.StatusInProgress
	case avgTodo > 2*avgInProgress:
		m.BottleneckStatus = model.StatusTodo
	}

	wip := make([]float64, len(series))
	for i, p := range series {
		wip[i] = float64(p.InProgress)
	}
	m.WIPTrend = halvesTrend(wip)

	return m
}

// cycleTimeDays is the whole-day cycle time of a completed issue, rounded up.
func cycleTimeDays(issue *model.Issue) float64 {
	return math.Ceil(completionInstant(issue).Sub(issue.CreatedAt).Hours() / 24)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999000000, t.Location())
}
