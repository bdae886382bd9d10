package analytics

import (
	"context"
	"time"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/points"
)

// movedOutWindow bounds the heuristic that detects issues removed from a
// sprint when it closed: backlog issues whose last update falls within this
// window around the sprint's own completion instant are assumed to have
// been moved out at that moment. There is no audit trail of membership
// changes, so this is approximate: an unrelated backlog edit inside the
// window is misattributed.
const movedOutWindow = 5 * time.Minute

// originalScope reconstructs the set of issues that were originally in the
// sprint. Current membership is always included; for completed sprints the
// moved-out candidates are added back. Active sprints with no removals
// return exactly the current membership.
func (e *Engine) originalScope(ctx context.Context, sprint *model.Sprint) ([]model.Issue, error) {
	issues := make([]model.Issue, len(sprint.Issues))
	copy(issues, sprint.Issues)

	if sprint.Status != model.SprintCompleted {
		return issues, nil
	}

	moved, err := e.movedOutAtCompletion(ctx, sprint)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(issues))
	for i := range issues {
		seen[issues[i].ID] = struct{}{}
	}
	for i := range moved {
		if _, ok := seen[moved[i].ID]; !ok {
			issues = append(issues, moved[i])
		}
	}
	return issues, nil
}

// movedOutAtCompletion queries backlog issues updated within the heuristic
// window around the sprint's completion instant.
func (e *Engine) movedOutAtCompletion(ctx context.Context, sprint *model.Sprint) ([]model.Issue, error) {
	if e.metrics != nil {
		e.metrics.RecordStoreQuery("moved_out_candidates")
	}
	return e.store.QueryIssues(ctx, model.IssueFilter{
		ProjectID:     sprint.ProjectID,
		SprintIsNull:  true,
		UpdatedAfter:  sprint.UpdatedAt.Add(-movedOutWindow),
		UpdatedBefore: sprint.UpdatedAt.Add(movedOutWindow),
	})
}

// movedOutSince returns backlog issues updated after the sprint was
// created. Used by the date-scoped variant: filtering this one result set
// per target date avoids a query per burndown day.
func (e *Engine) movedOutSince(ctx context.Context, sprint *model.Sprint) ([]model.Issue, error) {
	if e.metrics != nil {
		e.metrics.RecordStoreQuery("moved_out_since")
	}
	return e.store.QueryIssues(ctx, model.IssueFilter{
		ProjectID:    sprint.ProjectID,
		SprintIsNull: true,
		UpdatedAfter: sprint.CreatedAt,
	})
}

// scopeAsOf computes the sprint's total scope as it stood on targetDate:
// the current membership total minus the points of candidates that had
// already been moved out by that date.
func scopeAsOf(currentTotal float64, moved []model.Issue, targetDate time.Time) float64 {
	var removed float64
	for i := range moved {
		if !moved[i].UpdatedAt.After(targetDate) {
			removed += points.Normalize(moved[i].StoryPoints)
		}
	}
	scope := currentTotal - removed
	if scope < 0 {
		scope = 0
	}
	return scope
}

// SprintScope summarizes a sprint's reconstructed scope. A missing sprint
// yields a zero-valued summary so dashboards degrade gracefully.
func (e *Engine) SprintScope(ctx context.Context, sprintID string) (*SprintScope, error) {
	start := e.now()
	scope, err := e.sprintScope(ctx, sprintID)
	e.observe("sprint_scope", start, err)
	return scope, err
}

func (e *Engine) sprintScope(ctx context.Context, sprintID string) (*SprintScope, error) {
	sprint, err := e.store.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if sprint == nil {
		return &SprintScope{SprintID: sprintID}, nil
	}

	original, err := e.originalScope(ctx, sprint)
	if err != nil {
		return nil, err
	}

	total := points.Sum(original)
	completed := points.SumDone(original)
	doneCount := 0
	for i := range original {
		if original[i].Done() {
			doneCount++
		}
	}

	scope := &SprintScope{
		SprintID:        sprintID,
		TotalScope:      total,
		CompletedWork:   completed,
		RemainingWork:   total - completed,
		TotalIssues:     len(original),
		CompletedIssues: doneCount,
		RemainingIssues: len(original) - doneCount,
	}
	if len(original) > 0 {
		scope.CompletionRate = float64(doneCount) / float64(len(original)) * 100
	}
	return scope, nil
}

// SprintHealth reports a coarse health summary for a sprint. Blocked
// counts, scope creep and quality need richer tracking than the store
// records today; they are reported from what is observable.
func (e *Engine) SprintHealth(ctx context.Context, sprintID string) (*SprintHealth, error) {
	sprint, err := e.store.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	if sprint == nil {
		return &SprintHealth{SprintID: sprintID}, nil
	}

	health := &SprintHealth{
		SprintID:     sprintID,
		Status:       sprint.Status,
		QualityScore: 100, // no defect-link tracking yet
	}

	if len(sprint.Issues) == 0 {
		return health, nil
	}

	now := e.now()
	doneCount := 0
	var ageSum float64
	for i := range sprint.Issues {
		issue := &sprint.Issues[i]
		if issue.Done() {
			doneCount++
		}
		if issue.Status == "blocked" {
			health.BlockedIssues++
		}
		ageSum += now.Sub(issue.CreatedAt).Hours() / 24
	}

	health.CompletionRate = float64(doneCount) / float64(len(sprint.Issues)) * 100
	health.AverageIssueAgeDays = round1(ageSum / float64(len(sprint.Issues)))
	return health, nil
}
