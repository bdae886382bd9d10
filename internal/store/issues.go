package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/retry"
)

const issueColumns = `id, project_id, sprint_id, status, type, priority, story_points, assignee_id, created_at, updated_at`

// SaveIssue inserts or replaces an issue.
func (s *Store) SaveIssue(ctx context.Context, issue *model.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = now
	}

	query := `
	INSERT OR REPLACE INTO issues (` + issueColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			issue.ID, issue.ProjectID,
			nullString(issue.SprintID),
			issue.Status, issue.Type, issue.Priority,
			nullString(string(issue.StoryPoints)),
			nullString(issue.AssigneeID),
			issue.CreatedAt.UnixMilli(), issue.UpdatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save issue: %w", err)
	}
	return nil
}

// GetIssue retrieves an issue by ID. Returns (nil, nil) when absent.
func (s *Store) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

// QueryIssues returns issues matching the filter.
func (s *Store) QueryIssues(ctx context.Context, f model.IssueFilter) ([]model.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		conds []string
		args  []any
	)

	if f.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.SprintIsNull {
		conds = append(conds, "sprint_id IS NULL")
	} else if f.SprintID != "" {
		conds = append(conds, "sprint_id = ?")
		args = append(args, f.SprintID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(f.StatusIn) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.StatusIn)), ", ")
		conds = append(conds, "status IN ("+placeholders+")")
		for _, st := range f.StatusIn {
			args = append(args, st)
		}
	}
	if !f.CreatedBefore.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.CreatedBefore.UnixMilli())
	}
	if !f.UpdatedBefore.IsZero() {
		conds = append(conds, "updated_at <= ?")
		args = append(args, f.UpdatedBefore.UnixMilli())
	}
	if !f.UpdatedAfter.IsZero() {
		conds = append(conds, "updated_at >= ?")
		args = append(args, f.UpdatedAfter.UnixMilli())
	}
	if f.HasAssignee {
		conds = append(conds, "assignee_id IS NOT NULL")
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	switch f.OrderBy {
	case "created_at":
		query += " ORDER BY created_at ASC"
	case "updated_at":
		query += " ORDER BY updated_at ASC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}
	return issues, nil
}

// DeleteIssue removes an issue by ID.
func (s *Store) DeleteIssue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM issues WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(r rowScanner) (*model.Issue, error) {
	var (
		issue                   model.Issue
		sprintID, pts, assignee sql.NullString
		createdAt, updatedAt    int64
	)
	err := r.Scan(
		&issue.ID, &issue.ProjectID, &sprintID,
		&issue.Status, &issue.Type, &issue.Priority,
		&pts, &assignee, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sprintID.Valid {
		issue.SprintID = sprintID.String
	}
	if pts.Valid {
		issue.StoryPoints = model.StoryPoints(pts.String)
	}
	if assignee.Valid {
		issue.AssigneeID = assignee.String
	}
	issue.CreatedAt = time.UnixMilli(createdAt).UTC()
	issue.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &issue, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
