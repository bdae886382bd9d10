package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trackline/sprint-insights/internal/model"
)

// The CRUD surface is deliberately thin: the analytics engine is the point
// of this service, and these handlers exist so records can be created and
// amended without a separate tool.

// CreateIssue handles POST /api/v1/issues.
func (h *Handlers) CreateIssue(c *fiber.Ctx) error {
	var issue model.Issue
	if err := c.BodyParser(&issue); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if issue.ProjectID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project", "Bad Request",
			"projectId is required")
	}
	if issue.ID == "" {
		issue.ID = uuid.New().String()
	}
	if issue.Status == "" {
		issue.Status = model.StatusTodo
	}
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	if err := h.store.SaveIssue(requestContext(c), &issue); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(issue)
}

// GetIssue handles GET /api/v1/issues/:id.
func (h *Handlers) GetIssue(c *fiber.Ctx) error {
	issue, err := h.store.GetIssue(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	if issue == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"issue_not_found", "Not Found",
			"Issue not found: "+c.Params("id"))
	}
	return c.JSON(issue)
}

// UpdateIssue handles PATCH /api/v1/issues/:id. Fields present in the body
// overwrite the stored record; updatedAt always advances.
func (h *Handlers) UpdateIssue(c *fiber.Ctx) error {
	ctx := requestContext(c)
	issue, err := h.store.GetIssue(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	if issue == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"issue_not_found", "Not Found",
			"Issue not found: "+c.Params("id"))
	}

	var patch struct {
		SprintID    *string            `json:"sprintId"`
		Status      *string            `json:"status"`
		Type        *string            `json:"type"`
		Priority    *string            `json:"priority"`
		StoryPoints *model.StoryPoints `json:"storyPoints"`
		AssigneeID  *string            `json:"assigneeId"`
	}
	if err := c.BodyParser(&patch); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if patch.SprintID != nil {
		issue.SprintID = *patch.SprintID
	}
	if patch.Status != nil {
		issue.Status = *patch.Status
	}
	if patch.Type != nil {
		issue.Type = *patch.Type
	}
	if patch.Priority != nil {
		issue.Priority = *patch.Priority
	}
	if patch.StoryPoints != nil {
		issue.StoryPoints = *patch.StoryPoints
	}
	if patch.AssigneeID != nil {
		issue.AssigneeID = *patch.AssigneeID
	}
	issue.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveIssue(ctx, issue); err != nil {
		return err
	}
	return c.JSON(issue)
}

// CreateSprint handles POST /api/v1/sprints.
func (h *Handlers) CreateSprint(c *fiber.Ctx) error {
	var sprint model.Sprint
	if err := c.BodyParser(&sprint); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}
	if sprint.ProjectID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_project", "Bad Request",
			"projectId is required")
	}
	if sprint.ID == "" {
		sprint.ID = uuid.New().String()
	}
	if sprint.Status == "" {
		sprint.Status = model.SprintFuture
	}
	now := time.Now().UTC()
	sprint.CreatedAt = now
	sprint.UpdatedAt = now

	if err := h.store.SaveSprint(requestContext(c), &sprint); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sprint)
}

// GetSprint handles GET /api/v1/sprints/:id.
func (h *Handlers) GetSprint(c *fiber.Ctx) error {
	sprint, err := h.store.GetSprint(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	if sprint == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"sprint_not_found", "Not Found",
			"Sprint not found: "+c.Params("id"))
	}
	return c.JSON(sprint)
}

// UpdateSprint handles PATCH /api/v1/sprints/:id.
func (h *Handlers) UpdateSprint(c *fiber.Ctx) error {
	ctx := requestContext(c)
	sprint, err := h.store.GetSprint(ctx, c.Params("id"))
	if err != nil {
		return err
	}
	if sprint == nil {
		return problemResponse(c, fiber.StatusNotFound,
			"sprint_not_found", "Not Found",
			"Sprint not found: "+c.Params("id"))
	}

	var patch struct {
		Name      *string    `json:"name"`
		Status    *string    `json:"status"`
		StartDate *time.Time `json:"startDate"`
		EndDate   *time.Time `json:"endDate"`
	}
	if err := c.BodyParser(&patch); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if patch.Name != nil {
		sprint.Name = *patch.Name
	}
	if patch.Status != nil {
		sprint.Status = *patch.Status
	}
	if patch.StartDate != nil {
		sprint.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		sprint.EndDate = *patch.EndDate
	}
	sprint.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveSprint(ctx, sprint); err != nil {
		return err
	}
	return c.JSON(sprint)
}
