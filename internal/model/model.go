// Package model defines the issue and sprint records read by the analytics engine.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Issue statuses. Workflows may define more; the engine only interprets these.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Sprint statuses.
const (
	SprintFuture    = "future"
	SprintActive    = "active"
	SprintCompleted = "completed"
)

// StoryPoints carries the raw estimate exactly as it was entered: a number,
// a numeric string, a categorical size code (XS..XXL, "?"), or empty for
// unestimated. Interpretation happens in the points package.
type StoryPoints string

// IsNull reports whether no estimate was recorded.
func (p StoryPoints) IsNull() bool { return p == "" }

// MarshalJSON emits numbers as JSON numbers, codes as strings and empty as null.
func (p StoryPoints) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(p), 64); err == nil {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts a JSON number, string or null.
func (p *StoryPoints) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = StoryPoints(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = StoryPoints(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Issue is a single unit of tracked work. The analytics engine treats it as
// read-only. UpdatedAt doubles as the completion-time proxy for done issues;
// there is no dedicated completion timestamp.
type Issue struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	SprintID    string      `json:"sprintId,omitempty"` // empty = backlog
	Status      string      `json:"status"`
	Type        string      `json:"type"`
	Priority    string      `json:"priority"`
	StoryPoints StoryPoints `json:"storyPoints"`
	AssigneeID  string      `json:"assigneeId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Done reports whether the issue reached the terminal workflow state.
func (i *Issue) Done() bool { return i.Status == StatusDone }

// Sprint is a time-boxed iteration. Issues holds current membership only;
// issues moved out mid-sprint are not recorded anywhere else. UpdatedAt is
// the instant of the last mutation and stands in for the completion instant
// once Status is completed.
type Sprint struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate,omitzero"`
	EndDate   time.Time `json:"endDate,omitzero"`
	Issues    []Issue   `json:"issues,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Dated reports whether the sprint has both a start and an end date.
func (s *Sprint) Dated() bool { return !s.StartDate.IsZero() && !s.EndDate.IsZero() }

// IssueFilter describes a record-store issue query. Zero values mean
// "no constraint" except SprintIsNull, which explicitly selects backlog
// issues (SprintID is ignored when it is set).
type IssueFilter struct {
	ProjectID     string
	SprintID      string
	SprintIsNull  bool
	Status        string
	StatusIn      []string
	CreatedBefore time.Time
	UpdatedBefore time.Time
	UpdatedAfter  time.Time
	HasAssignee   bool
	OrderBy       string // "created_at" or "updated_at", ascending
	Limit         int
}
