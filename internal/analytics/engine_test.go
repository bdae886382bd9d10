package analytics

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/trackline/sprint-insights/internal/model"
)

// fakeStore is an in-memory RecordStore for engine tests.
type fakeStore struct {
	sprints []model.Sprint // issues attached
	backlog []model.Issue  // issues with no sprint
	err     error
}

func (f *fakeStore) GetSprint(_ context.Context, id string) (*model.Sprint, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.sprints {
		if f.sprints[i].ID == id {
			s := f.sprints[i]
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) QueryIssues(_ context.Context, flt model.IssueFilter) ([]model.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	var pool []model.Issue
	if flt.SprintIsNull {
		pool = f.backlog
	} else {
		pool = append(pool, f.backlog...)
		for i := range f.sprints {
			pool = append(pool, f.sprints[i].Issues...)
		}
	}

	var out []model.Issue
	for _, issue := range pool {
		if flt.ProjectID != "" && issue.ProjectID != flt.ProjectID {
			continue
		}
		if !flt.SprintIsNull && flt.SprintID != "" && issue.SprintID != flt.SprintID {
			continue
		}
		if flt.Status != "" && issue.Status != flt.Status {
			continue
		}
		if !flt.CreatedBefore.IsZero() && issue.CreatedAt.After(flt.CreatedBefore) {
			continue
		}
		if !flt.UpdatedBefore.IsZero() && issue.UpdatedAt.After(flt.UpdatedBefore) {
			continue
		}
		if !flt.UpdatedAfter.IsZero() && issue.UpdatedAt.Before(flt.UpdatedAfter) {
			continue
		}
		if flt.HasAssignee && issue.AssigneeID == "" {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

func (f *fakeStore) SprintsByProjectWithIssues(_ context.Context, projectID, status string, limit int) ([]model.Sprint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Sprint
	for _, s := range f.sprints {
		if s.ProjectID != projectID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	// Most recent first, like the SQL store.
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var testEpoch = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func newTestEngine(store RecordStore, opts ...Option) *Engine {
	opts = append([]Option{WithClock(func() time.Time { return testEpoch.AddDate(0, 0, 60) })}, opts...)
	return New(store, zerolog.Nop(), opts...)
}

// day returns an instant n days after the test epoch.
func day(n int) time.Time {
	return testEpoch.AddDate(0, 0, n)
}

func doneIssue(id, sprintID string, pts model.StoryPoints, completedAt time.Time) model.Issue {
	return model.Issue{
		ID:          id,
		ProjectID:   "proj-1",
		SprintID:    sprintID,
		Status:      model.StatusDone,
		Type:        "story",
		Priority:    "medium",
		StoryPoints: pts,
		CreatedAt:   completedAt.AddDate(0, 0, -3),
		UpdatedAt:   completedAt,
	}
}

func todoIssue(id, sprintID string, pts model.StoryPoints, createdAt time.Time) model.Issue {
	return model.Issue{
		ID:          id,
		ProjectID:   "proj-1",
		SprintID:    sprintID,
		Status:      model.StatusTodo,
		Type:        "story",
		Priority:    "medium",
		StoryPoints: pts,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// completedSprint builds a two-week completed sprint ending at end, with
// the given velocity delivered by a single done issue.
func completedSprint(id string, end time.Time, velocity float64, completionRate float64) model.Sprint {
	s := model.Sprint{
		ID:        id,
		ProjectID: "proj-1",
		Name:      id,
		Status:    model.SprintCompleted,
		StartDate: end.AddDate(0, 0, -14),
		EndDate:   end,
		CreatedAt: end.AddDate(0, 0, -15),
		UpdatedAt: end,
	}
	pts := model.StoryPoints(strconv.FormatFloat(velocity, 'f', -1, 64))
	s.Issues = append(s.Issues, doneIssue(id+"-done", id, pts, end.AddDate(0, 0, -1)))
	if completionRate < 100 {
		s.Issues = append(s.Issues, todoIssue(id+"-todo", id, "0", s.StartDate))
	}
	return s
}
