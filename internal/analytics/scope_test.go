package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/sprint-insights/internal/model"
)

func TestOriginalScope_ActiveSprintIsIdempotent(t *testing.T) {
	sprint := model.Sprint{
		ID:        "s1",
		ProjectID: "proj-1",
		Status:    model.SprintActive,
		CreatedAt: day(0),
		UpdatedAt: day(1),
		Issues: []model.Issue{
			todoIssue("i1", "s1", "3", day(0)),
			todoIssue("i2", "s1", "5", day(0)),
		},
	}
	// Backlog noise that must not be pulled in for an active sprint.
	store := &fakeStore{
		sprints: []model.Sprint{sprint},
		backlog: []model.Issue{todoIssue("b1", "", "8", day(1))},
	}
	e := newTestEngine(store)

	got, err := e.originalScope(context.Background(), &sprint)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i1", got[0].ID)
	assert.Equal(t, "i2", got[1].ID)
}

func TestOriginalScope_CompletedSprintAddsMovedOutIssues(t *testing.T) {
	completedAt := day(14)
	sprint := model.Sprint{
		ID:        "s1",
		ProjectID: "proj-1",
		Status:    model.SprintCompleted,
		CreatedAt: day(-1),
		UpdatedAt: completedAt,
		Issues:    []model.Issue{todoIssue("kept", "s1", "5", day(0))},
	}

	inWindow := todoIssue("moved", "", "8", day(0))
	inWindow.UpdatedAt = completedAt.Add(2 * time.Minute)
	outOfWindow := todoIssue("unrelated", "", "13", day(0))
	outOfWindow.UpdatedAt = completedAt.Add(20 * time.Minute)

	store := &fakeStore{
		sprints: []model.Sprint{sprint},
		backlog: []model.Issue{inWindow, outOfWindow},
	}
	e := newTestEngine(store)

	got, err := e.originalScope(context.Background(), &sprint)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "kept", got[0].ID)
	assert.Equal(t, "moved", got[1].ID)
}

func TestScopeAsOf_SubtractsIssuesMovedOutByDate(t *testing.T) {
	early := todoIssue("m1", "", "3", day(0))
	early.UpdatedAt = day(2)
	late := todoIssue("m2", "", "5", day(0))
	late.UpdatedAt = day(10)
	moved := []model.Issue{early, late}

	assert.Equal(t, 20.0, scopeAsOf(20, moved, day(1)))
	assert.Equal(t, 17.0, scopeAsOf(20, moved, day(5)))
	assert.Equal(t, 12.0, scopeAsOf(20, moved, day(12)))
	// Never negative.
	assert.Equal(t, 0.0, scopeAsOf(4, moved, day(12)))
}

func TestSprintScope_Summary(t *testing.T) {
	sprint := model.Sprint{
		ID:        "s1",
		ProjectID: "proj-1",
		Status:    model.SprintActive,
		CreatedAt: day(0),
		UpdatedAt: day(1),
		Issues: []model.Issue{
			doneIssue("d1", "s1", "3", day(3)),
			doneIssue("d2", "s1", "5", day(4)),
			todoIssue("t1", "s1", "1", day(0)),
			todoIssue("t2", "s1", "8", day(0)),
		},
	}
	e := newTestEngine(&fakeStore{sprints: []model.Sprint{sprint}})

	scope, err := e.SprintScope(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 17.0, scope.TotalScope)
	assert.Equal(t, 8.0, scope.CompletedWork)
	assert.Equal(t, 9.0, scope.RemainingWork)
	assert.Equal(t, 50.0, scope.CompletionRate)
	assert.Equal(t, 4, scope.TotalIssues)
	assert.Equal(t, 2, scope.CompletedIssues)
	assert.Equal(t, 2, scope.RemainingIssues)
}

func TestSprintScope_MissingSprintDegradesToZero(t *testing.T) {
	e := newTestEngine(&fakeStore{})

	scope, err := e.SprintScope(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", scope.SprintID)
	assert.Zero(t, scope.TotalScope)
	assert.Zero(t, scope.TotalIssues)
}

func TestSprintHealth(t *testing.T) {
	now := testEpoch.AddDate(0, 0, 60) // engine clock
	sprint := model.Sprint{
		ID:        "s1",
		ProjectID: "proj-1",
		Status:    model.SprintActive,
		Issues: []model.Issue{
			doneIssue("d1", "s1", "3", now.AddDate(0, 0, -1)),
			todoIssue("t1", "s1", "5", now.AddDate(0, 0, -8)),
		},
	}
	e := newTestEngine(&fakeStore{sprints: []model.Sprint{sprint}})

	h, err := e.SprintHealth(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SprintActive, h.Status)
	assert.Equal(t, 50.0, h.CompletionRate)
	assert.Equal(t, 100.0, h.QualityScore)
	assert.Equal(t, 6.0, h.AverageIssueAgeDays) // (4 + 8) / 2
}

func TestSprintHealth_MissingSprint(t *testing.T) {
	e := newTestEngine(&fakeStore{})
	h, err := e.SprintHealth(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, h.CompletionRate)
}
