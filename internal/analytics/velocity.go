package analytics

import (
	"context"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/points"
)

// velocityTrendWindow is how many recent sprints feed trend statistics
// and forecasts.
const velocityTrendWindow = 12

// Velocity returns per-sprint velocity records for the project's most
// recent active and completed sprints, in chronological order.
func (e *Engine) Velocity(ctx context.Context, projectID string, sprintCount int) ([]VelocityRecord, error) {
	start := e.now()
	records, err := e.velocityRecords(ctx, projectID, sprintCount, false)
	e.observe("velocity", start, err)
	return records, err
}

// velocityRecords builds the velocity sequence. Planned points cover every
// issue ever in the sprint (reconstructed scope); completed points cover
// the done subset. completedOnly drops active sprints for consumers that
// only trust closed iterations.
func (e *Engine) velocityRecords(ctx context.Context, projectID string, sprintCount int, completedOnly bool) ([]VelocityRecord, error) {
	sprintCount = e.clampSprintCount(sprintCount)

	status := ""
	if completedOnly {
		status = model.SprintCompleted
	}

	// Fetch unbounded, filter by status, then take the most recent N:
	// a LIMIT would let future sprints crowd out countable ones.
	sprints, err := e.store.SprintsByProjectWithIssues(ctx, projectID, status, 0)
	if err != nil {
		return nil, err
	}

	eligible := make([]model.Sprint, 0, len(sprints))
	for _, s := range sprints {
		if s.Status == model.SprintCompleted || s.Status == model.SprintActive {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) > sprintCount {
		eligible = eligible[:sprintCount]
	}

	// Store order is most-recent-first; the stats want chronological.
	records := make([]VelocityRecord, 0, len(eligible))
	for i := len(eligible) - 1; i >= 0; i-- {
		sprint := eligible[i]
		record, err := e.velocityRecord(ctx, &sprint)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func (e *Engine) velocityRecord(ctx context.Context, sprint *model.Sprint) (*VelocityRecord, error) {
	original, err := e.originalScope(ctx, sprint)
	if err != nil {
		return nil, err
	}

	doneCount := 0
	for i := range original {
		if original[i].Done() {
			doneCount++
		}
	}

	record := &VelocityRecord{
		SprintID:        sprint.ID,
		SprintName:      sprint.Name,
		Status:          sprint.Status,
		StartDate:       sprint.StartDate,
		EndDate:         sprint.EndDate,
		PlannedPoints:   points.Sum(original),
		CompletedPoints: points.SumDone(original),
		IssuesPlanned:   len(original),
		IssuesCompleted: doneCount,
	}
	if len(original) > 0 {
		record.CompletionRate = float64(doneCount) / float64(len(original)) * 100
	}
	return record, nil
}

// VelocityTrends computes rolling averages, trend direction/magnitude,
// dispersion and the 95% confidence interval over the velocity sequence.
// Insufficient history degrades to zeros and "stable", never an error.
func (e *Engine) VelocityTrends(ctx context.Context, projectID string) (*VelocityTrends, error) {
	start := e.now()
	trends, err := e.velocityTrends(ctx, projectID)
	e.observe("velocity_trends", start, err)
	return trends, err
}

func (e *Engine) velocityTrends(ctx context.Context, projectID string) (*VelocityTrends, error) {
	records, err := e.velocityRecords(ctx, projectID, velocityTrendWindow, false)
	if err != nil {
		return nil, err
	}

	trends := &VelocityTrends{
		ProjectID:       projectID,
		SprintsAnalyzed: len(records),
		TrendDirection:  TrendStable,
	}
	if len(records) == 0 {
		return trends, nil
	}

	velocities := make([]float64, len(records))
	for i, r := range records {
		velocities[i] = r.Velocity()
	}

	trends.AverageVelocity = round1(mean(velocities))
	trends.Rolling3 = round1(tailMean(velocities, 3))
	trends.Rolling6 = round1(tailMean(velocities, 6))
	trends.Rolling12 = round1(tailMean(velocities, 12))
	trends.TrendDirection, trends.TrendPercentage = trendOf(velocities)
	trends.StandardDeviation = stdDev(velocities)
	trends.ConfidenceInterval = confidenceInterval(velocities)
	return trends, nil
}
