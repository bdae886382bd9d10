package store

import "fmt"

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sprints (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'future',
		start_date INTEGER,
		end_date INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id, status);
	CREATE INDEX IF NOT EXISTS idx_sprints_start ON sprints(start_date);

	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		sprint_id TEXT,
		status TEXT NOT NULL DEFAULT 'todo',
		type TEXT NOT NULL DEFAULT 'task',
		priority TEXT NOT NULL DEFAULT 'medium',
		story_points TEXT,
		assignee_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id, status);
	CREATE INDEX IF NOT EXISTS idx_issues_sprint ON issues(sprint_id);
	CREATE INDEX IF NOT EXISTS idx_issues_updated ON issues(updated_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
