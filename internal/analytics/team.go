package analytics

import (
	"context"
	"sort"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/points"
)

// TeamComparison attributes completed points per assignee over the last N
// completed sprints and scores delivery consistency. Unassigned issues are
// excluded; results are sorted by individual velocity, highest first.
func (e *Engine) TeamComparison(ctx context.Context, projectID string, sprintCount int) ([]TeamMemberVelocity, error) {
	start := e.now()
	team, err := e.teamComparison(ctx, projectID, sprintCount)
	e.observe("team_comparison", start, err)
	return team, err
}

type memberAccum struct {
	totalPoints float64
	taskCount   int
	taskSizes   []float64
}

func (e *Engine) teamComparison(ctx context.Context, projectID string, sprintCount int) ([]TeamMemberVelocity, error) {
	sprintCount = e.clampSprintCount(sprintCount)

	sprints, err := e.store.SprintsByProjectWithIssues(ctx, projectID, model.SprintCompleted, sprintCount)
	if err != nil {
		return nil, err
	}

	members := map[string]*memberAccum{}
	var grandTotal float64
	for i := range sprints {
		for j := range sprints[i].Issues {
			issue := &sprints[i].Issues[j]
			if !issue.Done() || issue.AssigneeID == "" {
				continue
			}
			acc := members[issue.AssigneeID]
			if acc == nil {
				acc = &memberAccum{}
				members[issue.AssigneeID] = acc
			}
			p := points.Normalize(issue.StoryPoints)
			acc.totalPoints += p
			acc.taskCount++
			if p > 0 {
				acc.taskSizes = append(acc.taskSizes, p)
			}
			grandTotal += p
		}
	}

	team := make([]TeamMemberVelocity, 0, len(members))
	for assignee, acc := range members {
		member := TeamMemberVelocity{
			AssigneeID:       assignee,
			TotalPoints:      acc.totalPoints,
			TaskCount:        acc.taskCount,
			ConsistencyScore: consistencyScore(acc.taskSizes),
		}
		if acc.taskCount > 0 {
			member.AvgTaskSize = round1(acc.totalPoints / float64(acc.taskCount))
		}
		if grandTotal > 0 {
			member.ContributionPercentage = round1(acc.totalPoints / grandTotal * 100)
		}
		team = append(team, member)
	}

	sort.Slice(team, func(i, j int) bool {
		if team[i].TotalPoints != team[j].TotalPoints {
			return team[i].TotalPoints > team[j].TotalPoints
		}
		return team[i].AssigneeID < team[j].AssigneeID
	})
	return team, nil
}

// consistencyScore maps the coefficient of variation of task sizes onto
// [0, 100]. One or zero sized tasks give no variation signal and score 100.
func consistencyScore(sizes []float64) float64 {
	if len(sizes) <= 1 {
		return 100
	}
	m := mean(sizes)
	if m == 0 {
		return 100
	}
	cv := stdDev(sizes) / m
	score := 100 - cv*50
	if score < 0 {
		return 0
	}
	return score
}
