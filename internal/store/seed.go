package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trackline/sprint-insights/internal/model"
)

// SeedFile is a YAML snapshot of a project used for demos and tests.
type SeedFile struct {
	Sprints []SeedSprint `yaml:"sprints"`
	Issues  []SeedIssue  `yaml:"issues"`
}

// SeedSprint mirrors model.Sprint with YAML-friendly timestamps (RFC 3339).
type SeedSprint struct {
	ID        string `yaml:"id"`
	ProjectID string `yaml:"projectId"`
	Name      string `yaml:"name"`
	Status    string `yaml:"status"`
	StartDate string `yaml:"startDate,omitempty"`
	EndDate   string `yaml:"endDate,omitempty"`
	CreatedAt string `yaml:"createdAt,omitempty"`
	UpdatedAt string `yaml:"updatedAt,omitempty"`
}

// SeedIssue mirrors model.Issue. StoryPoints is kept raw so fixtures can
// exercise numeric, string and size-code estimates.
type SeedIssue struct {
	ID          string `yaml:"id"`
	ProjectID   string `yaml:"projectId"`
	SprintID    string `yaml:"sprintId,omitempty"`
	Status      string `yaml:"status"`
	Type        string `yaml:"type,omitempty"`
	Priority    string `yaml:"priority,omitempty"`
	StoryPoints string `yaml:"storyPoints,omitempty"`
	AssigneeID  string `yaml:"assigneeId,omitempty"`
	CreatedAt   string `yaml:"createdAt,omitempty"`
	UpdatedAt   string `yaml:"updatedAt,omitempty"`
}

// LoadSeed reads a YAML fixture from disk and writes it into the store.
func (s *Store) LoadSeed(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	return s.ApplySeed(ctx, data)
}

// ApplySeed parses YAML seed data and upserts every record it contains.
func (s *Store) ApplySeed(ctx context.Context, data []byte) error {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	for _, sp := range seed.Sprints {
		sprint := model.Sprint{
			ID:        sp.ID,
			ProjectID: sp.ProjectID,
			Name:      sp.Name,
			Status:    sp.Status,
		}
		if err := parseSeedTime(sp.StartDate, &sprint.StartDate); err != nil {
			return fmt.Errorf("sprint %s: %w", sp.ID, err)
		}
		if err := parseSeedTime(sp.EndDate, &sprint.EndDate); err != nil {
			return fmt.Errorf("sprint %s: %w", sp.ID, err)
		}
		if err := parseSeedTime(sp.CreatedAt, &sprint.CreatedAt); err != nil {
			return fmt.Errorf("sprint %s: %w", sp.ID, err)
		}
		if err := parseSeedTime(sp.UpdatedAt, &sprint.UpdatedAt); err != nil {
			return fmt.Errorf("sprint %s: %w", sp.ID, err)
		}
		if err := s.SaveSprint(ctx, &sprint); err != nil {
			return err
		}
	}

	for _, is := range seed.Issues {
		issue := model.Issue{
			ID:          is.ID,
			ProjectID:   is.ProjectID,
			SprintID:    is.SprintID,
			Status:      is.Status,
			Type:        is.Type,
			Priority:    is.Priority,
			StoryPoints: model.StoryPoints(is.StoryPoints),
			AssigneeID:  is.AssigneeID,
		}
		if err := parseSeedTime(is.CreatedAt, &issue.CreatedAt); err != nil {
			return fmt.Errorf("issue %s: %w", is.ID, err)
		}
		if err := parseSeedTime(is.UpdatedAt, &issue.UpdatedAt); err != nil {
			return fmt.Errorf("issue %s: %w", is.ID, err)
		}
		if err := s.SaveIssue(ctx, &issue); err != nil {
			return err
		}
	}

	s.logger.Info().
		Int("sprints", len(seed.Sprints)).
		Int("issues", len(seed.Issues)).
		Msg("seed data applied")
	return nil
}

func parseSeedTime(raw string, dst *time.Time) error {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	*dst = t.UTC()
	return nil
}
