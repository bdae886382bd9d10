package analytics

import (
	"context"
	"math"
	"time"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/points"
)

// Burndown produces the daily remaining/ideal series for a sprint. Sprints
// without both dates, and unknown sprints, yield an empty series.
//
// Completed sprints burn against the reconstructed original scope so the
// historical record is not distorted by later edits; active sprints burn
// against the scope as it stood on each day.
func (e *Engine) Burndown(ctx context.Context, sprintID string) ([]BurndownPoint, error) {
	start := e.now()
	series, err := e.burndown(ctx, sprintID)
	e.observe("burndown", start, err)
	return series, err
}

func (e *Engine) burndown(ctx context.Context, sprintID string) ([]BurndownPoint, error) {
	sprint, err := e.store.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if sprint == nil || !sprint.Dated() {
		return []BurndownPoint{}, nil
	}

	totalDays := int(math.Ceil(sprint.EndDate.Sub(sprint.StartDate).Hours() / 24))
	if totalDays < 1 {
		return []BurndownPoint{}, nil
	}

	original, err := e.originalScope(ctx, sprint)
	if err != nil {
		return nil, err
	}
	originalTotal := points.Sum(original)

	completed := sprint.Status == model.SprintCompleted

	// For the live path, one candidate query covers every day.
	var moved []model.Issue
	currentTotal := points.Sum(sprint.Issues)
	if !completed {
		moved, err = e.movedOutSince(ctx, sprint)
		if err != nil {
			return nil, err
		}
	}

	series := make([]BurndownPoint, 0, totalDays+1)
	for day := 0; day <= totalDays; day++ {
		date := sprint.StartDate.Add(time.Duration(day) * 24 * time.Hour)
		completedByDate := completedPointsByDate(original, date)

		idealRemaining := originalTotal * (1 - float64(day)/float64(totalDays))

		var remaining float64
		if completed {
			remaining = originalTotal - completedByDate
		} else {
			remaining = scopeAsOf(currentTotal, moved, date) - completedByDate
		}
		if remaining < 0 {
			remaining = 0
		}

		series = append(series, BurndownPoint{
			Date:            date,
			RemainingWork:   remaining,
			IdealRemaining:  idealRemaining,
			ActualCompleted: completedByDate,
			IdealCompleted:  originalTotal - idealRemaining,
		})
	}
	return series, nil
}

// completedPointsByDate sums points of issues done on or before date.
func completedPointsByDate(issues []model.Issue, date time.Time) float64 {
	var total float64
	for i := range issues {
		issue := &issues[i]
		if issue.Done() && !completionInstant(issue).After(date) {
			total += points.Normalize(issue.StoryPoints)
		}
	}
	return total
}
