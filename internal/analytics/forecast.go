package analytics

import (
	"context"
	"math"
	"time"
)

// defaultSprintDays is assumed when no sprint in the window carries dates.
const defaultSprintDays = 14

// ForecastInput carries the optional release-planning targets. Zero
// RemainingPoints means no release projection; a TargetDate additionally
// asks whether the projection lands in time.
type ForecastInput struct {
	RemainingPoints float64
	TargetDate      time.Time
}

// VelocityForecast projects future velocity from recent sprints, scores it
// with a confidence level and risk assessment, and generates planning
// recommendations. With a remaining-scope input it also estimates a
// release date.
func (e *Engine) VelocityForecast(ctx context.Context, projectID string, input ForecastInput) (*ForecastResult, error) {
	start := e.now()
	f, err := e.velocityForecast(ctx, projectID, input)
	e.observe("forecast", start, err)
	return f, err
}

func (e *Engine) velocityForecast(ctx context.Context, projectID string, input ForecastInput) (*ForecastResult, error) {
	records, err := e.velocityRecords(ctx, projectID, velocityTrendWindow, false)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return &ForecastResult{
			ProjectID:       projectID,
			RiskAssessment:  RiskHigh,
			Recommendations: []string{"Not enough sprint history to generate a forecast."},
		}, nil
	}

	velocities := make([]float64, len(records))
	completionRates := make([]float64, len(records))
	for i, r := range records {
		velocities[i] = r.Velocity()
		completionRates[i] = r.CompletionRate
	}

	projected := round1(tailMean(velocities, 3))
	avgCompletionRate := mean(completionRates)
	trendDir, trendPct := trendOf(velocities)

	stability := 50.0
	if len(velocities) >= 2 && mean(velocities) > 0 {
		stability = clamp(100-(stdDev(velocities)/mean(velocities))*100, 0, 100)
	}

	confidence := clamp(
		0.4*avgCompletionRate+0.3*(100-stdDev(completionRates))+0.3*stability,
		0, 100,
	)

	var risk string
	switch {
	case confidence > 80 && trendDir != TrendDecreasing:
		risk = RiskLow
	case confidence > 60 && trendPct < 20:
		risk = RiskMedium
	default:
		risk = RiskHigh
	}

	result := &ForecastResult{
		ProjectID:         projectID,
		ProjectedVelocity: projected,
		ConfidenceLevel:   round1(confidence),
		RiskAssessment:    risk,
		Recommendations: recommendations(
			risk, trendDir, projected, velocities, avgCompletionRate,
		),
	}

	if input.RemainingPoints > 0 && projected > 0 {
		sprintsNeeded := int(math.Ceil(input.RemainingPoints / projected))
		sprintDays := avgSprintDurationDays(records)
		release := e.now().AddDate(0, 0, sprintsNeeded*sprintDays)
		result.SprintsNeeded = sprintsNeeded
		result.EstimatedReleaseDate = &release

		if !input.TargetDate.IsZero() {
			target := input.TargetDate
			onTrack := !release.After(target)
			result.TargetDate = &target
			result.OnTrackForTarget = &onTrack
			if !onTrack {
				result.Recommendations = append(result.Recommendations,
					"The remaining scope is not projected to land by the target date. Cut scope or add capacity.")
			}
		}
	}

	return result, nil
}

// recommendations evaluates each advisory rule independently; every rule
// that fires contributes one message.
func recommendations(risk, trendDir string, projected float64, velocities []float64, avgCompletionRate float64) []string {
	var recs []string

	if risk == RiskHigh {
		recs = append(recs, "High delivery risk detected. Review the sprint planning process and team capacity.")
	}
	if trendDir == TrendDecreasing {
		recs = append(recs, "Velocity is trending down. Investigate blockers and recurring impediments.")
	}
	if historical := mean(velocities); historical > 0 && projected < 0.8*historical {
		recs = append(recs, "Recent velocity is well below the historical average. Review team workload and availability.")
	}
	if avgCompletionRate < 70 {
		recs = append(recs, "Sprint completion rate is low. Reduce sprint scope or improve estimation.")
	}
	if m := mean(velocities); m > 0 && stdDev(velocities) > 0.4*m {
		recs = append(recs, "Velocity varies widely between sprints. Improve estimation consistency.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Velocity is stable and predictable. Keep up the current practices.")
	}
	return recs
}

// avgSprintDurationDays averages the span of dated sprints in the window.
func avgSprintDurationDays(records []VelocityRecord) int {
	var total float64
	count := 0
	for _, r := range records {
		if r.StartDate.IsZero() || r.EndDate.IsZero() {
			continue
		}
		total += r.EndDate.Sub(r.StartDate).Hours() / 24
		count++
	}
	if count == 0 {
		return defaultSprintDays
	}
	days := int(math.Round(total / float64(count)))
	if days < 1 {
		return defaultSprintDays
	}
	return days
}
