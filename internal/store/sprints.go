package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trackline/sprint-insights/internal/model"
	"github.com/trackline/sprint-insights/internal/retry"
)

const sprintColumns = `id, project_id, name, status, start_date, end_date, created_at, updated_at`

// SaveSprint inserts or replaces a sprint record. Issue membership is kept
// on the issues themselves via sprint_id.
func (s *Store) SaveSprint(ctx context.Context, sprint *model.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if sprint.CreatedAt.IsZero() {
		sprint.CreatedAt = now
	}
	if sprint.UpdatedAt.IsZero() {
		sprint.UpdatedAt = now
	}

	query := `
	INSERT OR REPLACE INTO sprints (` + sprintColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			sprint.ID, sprint.ProjectID, sprint.Name, sprint.Status,
			nullMilli(sprint.StartDate), nullMilli(sprint.EndDate),
			sprint.CreatedAt.UnixMilli(), sprint.UpdatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save sprint: %w", err)
	}
	return nil
}

// GetSprint retrieves a sprint by ID together with its current issue
// membership. Returns (nil, nil) when absent.
func (s *Store) GetSprint(ctx context.Context, id string) (*model.Sprint, error) {
	s.mu.RLock()
	sprint, err := s.getSprintRow(ctx, id)
	s.mu.RUnlock()
	if err != nil || sprint == nil {
		return sprint, err
	}

	issues, err := s.QueryIssues(ctx, model.IssueFilter{SprintID: id, OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	sprint.Issues = issues
	return sprint, nil
}

func (s *Store) getSprintRow(ctx context.Context, id string) (*model.Sprint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, id)
	sprint, err := scanSprint(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return sprint, nil
}

// SprintsByProject returns a project's sprints ordered by start date
// descending, optionally filtered by status. Undated sprints sort last.
func (s *Store) SprintsByProject(ctx context.Context, projectID, status string, limit int) ([]model.Sprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + sprintColumns + ` FROM sprints WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY start_date IS NULL, start_date DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints: %w", err)
	}
	defer rows.Close()

	var sprints []model.Sprint
	for rows.Next() {
		sprint, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, *sprint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sprints: %w", err)
	}
	return sprints, nil
}

// SprintsByProjectWithIssues is SprintsByProject plus each sprint's current
// issue membership.
func (s *Store) SprintsByProjectWithIssues(ctx context.Context, projectID, status string, limit int) ([]model.Sprint, error) {
	sprints, err := s.SprintsByProject(ctx, projectID, status, limit)
	if err != nil {
		return nil, err
	}
	for i := range sprints {
		issues, err := s.QueryIssues(ctx, model.IssueFilter{SprintID: sprints[i].ID, OrderBy: "created_at"})
		if err != nil {
			return nil, err
		}
		sprints[i].Issues = issues
	}
	return sprints, nil
}

func scanSprint(r rowScanner) (*model.Sprint, error) {
	var (
		sprint               model.Sprint
		startDate, endDate   sql.NullInt64
		createdAt, updatedAt int64
	)
	err := r.Scan(
		&sprint.ID, &sprint.ProjectID, &sprint.Name, &sprint.Status,
		&startDate, &endDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		sprint.StartDate = time.UnixMilli(startDate.Int64).UTC()
	}
	if endDate.Valid {
		sprint.EndDate = time.UnixMilli(endDate.Int64).UTC()
	}
	sprint.CreatedAt = time.UnixMilli(createdAt).UTC()
	sprint.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &sprint, nil
}

func nullMilli(t time.Time) sql.NullInt64 {
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: !t.IsZero()}
}
