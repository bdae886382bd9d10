package analytics

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/sprint-insights/internal/model"
)

func steadySprints(n int, velocity float64) []model.Sprint {
	var sprints []model.Sprint
	for i := 0; i < n; i++ {
		sprints = append(sprints, completedSprint(fmt.Sprintf("s%d", i+1), day(14*(i+1)), velocity, 100))
	}
	return sprints
}

func TestVelocityForecast_HealthyTeam(t *testing.T) {
	e := newTestEngine(&fakeStore{sprints: steadySprints(6, 10)})

	f, err := e.VelocityForecast(context.Background(), "proj-1", ForecastInput{RemainingPoints: 25})
	require.NoError(t, err)

	assert.Equal(t, 10.0, f.ProjectedVelocity)
	assert.Equal(t, 100.0, f.ConfidenceLevel)
	assert.Equal(t, RiskLow, f.RiskAssessment)
	require.Len(t, f.Recommendations, 1)
	assert.Contains(t, f.Recommendations[0], "stable and predictable")

	// ceil(25 / 10) = 3 sprints of 14 days each.
	assert.Equal(t, 3, f.SprintsNeeded)
	require.NotNil(t, f.EstimatedReleaseDate)
	wantRelease := testEpoch.AddDate(0, 0, 60).AddDate(0, 0, 42)
	assert.Equal(t, wantRelease, *f.EstimatedReleaseDate)
}

func TestVelocityForecast_DecliningVelocity(t *testing.T) {
	velocities := []float64{20, 20, 20, 10, 10, 10}
	var sprints []model.Sprint
	for i, v := range velocities {
		sprints = append(sprints, completedSprint(fmt.Sprintf("s%d", i+1), day(14*(i+1)), v, 100))
	}
	e := newTestEngine(&fakeStore{sprints: sprints})

	f, err := e.VelocityForecast(context.Background(), "proj-1", ForecastInput{})
	require.NoError(t, err)

	assert.Equal(t, 10.0, f.ProjectedVelocity)
	assert.Equal(t, RiskHigh, f.RiskAssessment)

	joined := fmt.Sprint(f.Recommendations)
	assert.Contains(t, joined, "High delivery risk")
	assert.Contains(t, joined, "trending down")
	assert.Contains(t, joined, "below the historical average")

	// No remaining scope requested, no release projection.
	assert.Zero(t, f.SprintsNeeded)
	assert.Nil(t, f.EstimatedReleaseDate)
}

func TestVelocityForecast_LowCompletionRate(t *testing.T) {
	var sprints []model.Sprint
	for i := 0; i < 6; i++ {
		sprints = append(sprints, completedSprint(fmt.Sprintf("s%d", i+1), day(14*(i+1)), 10, 50))
	}
	e := newTestEngine(&fakeStore{sprints: sprints})

	f, err := e.VelocityForecast(context.Background(), "proj-1", ForecastInput{})
	require.NoError(t, err)

	assert.Equal(t, RiskMedium, f.RiskAssessment)
	assert.Contains(t, fmt.Sprint(f.Recommendations), "completion rate is low")
}

func TestVelocityForecast_TargetDate(t *testing.T) {
	e := newTestEngine(&fakeStore{sprints: steadySprints(6, 10)})
	now := testEpoch.AddDate(0, 0, 60)

	// Release projects to now+42d; a later target is on track.
	f, err := e.VelocityForecast(context.Background(), "proj-1", ForecastInput{
		RemainingPoints: 25,
		TargetDate:      now.AddDate(0, 0, 60),
	})
	require.NoError(t, err)
	require.NotNil(t, f.OnTrackForTarget)
	assert.True(t, *f.OnTrackForTarget)

	// An earlier target is not, and gains a recommendation.
	f, err = e.VelocityForecast(context.Background(), "proj-1", ForecastInput{
		RemainingPoints: 25,
		TargetDate:      now.AddDate(0, 0, 10),
	})
	require.NoError(t, err)
	require.NotNil(t, f.OnTrackForTarget)
	assert.False(t, *f.OnTrackForTarget)
	assert.Contains(t, fmt.Sprint(f.Recommendations), "target date")
}

func TestVelocityForecast_NoHistory(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	f, err := e.VelocityForecast(context.Background(), "proj-1", ForecastInput{RemainingPoints: 50})
	require.NoError(t, err)

	assert.Zero(t, f.ProjectedVelocity)
	assert.Equal(t, RiskHigh, f.RiskAssessment)
	require.Len(t, f.Recommendations, 1)
	assert.Contains(t, f.Recommendations[0], "Not enough sprint history")
	assert.Nil(t, f.EstimatedReleaseDate)
}

func TestRecommendations_ErraticVelocity(t *testing.T) {
	// Wide swings: stddev exceeds 40% of the mean.
	recs := recommendations(RiskLow, TrendStable, 10, []float64{2, 30, 2, 30}, 100)
	assert.Contains(t, fmt.Sprint(recs), "varies widely")
}

func TestAvgSprintDurationDays(t *testing.T) {
	dated := []VelocityRecord{
		{StartDate: day(0), EndDate: day(14)},
		{StartDate: day(14), EndDate: day(28)},
	}
	assert.Equal(t, 14, avgSprintDurationDays(dated))

	// Undated records fall back to the two-week default.
	assert.Equal(t, defaultSprintDays, avgSprintDurationDays([]VelocityRecord{{}}))
	assert.Equal(t, defaultSprintDays, avgSprintDurationDays(nil))
}
