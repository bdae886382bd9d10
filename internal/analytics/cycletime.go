package analytics

import (
	"context"

	"github.com/trackline/sprint-insights/internal/model"
)

// CycleTimeMetrics aggregates per-issue cycle times over the project's
// last N completed sprints: mean, median and group averages by issue type
// and priority.
func (e *Engine) CycleTimeMetrics(ctx context.Context, projectID string, sprintCount int) (*CycleTimeMetrics, error) {
	start := e.now()
	m, err := e.cycleTimeMetrics(ctx, projectID, sprintCount)
	e.observe("cycle_time", start, err)
	return m, err
}

func (e *Engine) cycleTimeMetrics(ctx context.Context, projectID string, sprintCount int) (*CycleTimeMetrics, error) {
	sprintCount = e.clampSprintCount(sprintCount)

	sprints, err := e.store.SprintsByProjectWithIssues(ctx, projectID, model.SprintCompleted, sprintCount)
	if err != nil {
		return nil, err
	}

	m := &CycleTimeMetrics{
		ProjectID:  projectID,
		ByType:     map[string]float64{},
		ByPriority: map[string]float64{},
		Trend:      TrendStable,
	}

	// Walk sprints oldest-first so the trend halves line up chronologically.
	var all []float64
	byType := map[string][]float64{}
	byPriority := map[string][]float64{}
	for i := len(sprints) - 1; i >= 0; i-- {
		for j := range sprints[i].Issues {
			issue := &sprints[i].Issues[j]
			if !issue.Done() {
				continue
			}
			ct := cycleTimeDays(issue)
			all = append(all, ct)
			byType[issue.Type] = append(byType[issue.Type], ct)
			byPriority[issue.Priority] = append(byPriority[issue.Priority], ct)
		}
	}

	if len(all) == 0 {
		return m, nil
	}

	m.IssueCount = len(all)
	m.AvgDays = round1(mean(all))
	m.MedianDays = median(all)
	for k, v := range byType {
		m.ByType[k] = round1(mean(v))
	}
	for k, v := range byPriority {
		m.ByPriority[k] = round1(mean(v))
	}
	m.Trend = halvesTrend(all)
	return m, nil
}

// ThroughputMetrics reports mean issues and points delivered per sprint
// over the last N completed sprints, reusing the velocity records.
func (e *Engine) ThroughputMetrics(ctx context.Context, projectID string, sprintCount int) (*ThroughputMetrics, error) {
	start := e.now()
	m, err := e.throughputMetrics(ctx, projectID, sprintCount)
	e.observe("throughput", start, err)
	return m, err
}

func (e *Engine) throughputMetrics(ctx context.Context, projectID string, sprintCount int) (*ThroughputMetrics, error) {
	records, err := e.velocityRecords(ctx, projectID, sprintCount, true)
	if err != nil {
		return nil, err
	}

	m := &ThroughputMetrics{ProjectID: projectID, Trend: TrendStable}
	if len(records) == 0 {
		return m, nil
	}

	issues := make([]float64, len(records))
	pts := make([]float64, len(records))
	for i, r := range records {
		issues[i] = float64(r.IssuesCompleted)
		pts[i] = r.Velocity()
	}

	m.IssuesPerSprint = round1(mean(issues))
	m.PointsPerSprint = round1(mean(pts))
	m.Trend, _ = trendOf(pts)
	return m, nil
}
