package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	e := newTestEngine(&fakeStore{sprints: steadySprints(6, 10)})

	d, err := e.Dashboard(context.Background(), "proj-1", 6)
	require.NoError(t, err)

	assert.Equal(t, "proj-1", d.ProjectID)
	assert.Equal(t, testEpoch.AddDate(0, 0, 60), d.LastUpdated)

	require.NotNil(t, d.VelocityTrends)
	assert.Equal(t, 6, d.VelocityTrends.SprintsAnalyzed)

	require.NotNil(t, d.Forecast)
	assert.Equal(t, 10.0, d.Forecast.ProjectedVelocity)

	require.NotNil(t, d.CycleTime)
	assert.Equal(t, 6, d.CycleTime.IssueCount)

	require.NotNil(t, d.Throughput)
	assert.Equal(t, 10.0, d.Throughput.PointsPerSprint)
}

func TestDashboard_StoreErrorFailsWhole(t *testing.T) {
	e := newTestEngine(&fakeStore{err: assert.AnError})

	d, err := e.Dashboard(context.Background(), "proj-1", 6)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, d)
}
