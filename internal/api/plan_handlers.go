package api

import (
	"strings"
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

// optionalDate parses a request date. Empty means unset.
func optionalDate(raw string, loc *time.Location, dateOnly bool) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parse := coach.ParseDateTime
	if dateOnly {
		parse = coach.ParseDate
	}
	t, ok := parse(raw, loc)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid date: "+raw)
	}
	return &t, nil
}

func CreateMilestoneHandler(s *store.Store, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateMilestoneRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Title) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Title is required")
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), req.GoalID); err != nil {
			return err
		}
		target, err := optionalDate(req.TargetDate, loc, true)
		if err != nil {
			return err
		}

		m, err := s.CreateMilestone(c.Context(), req.GoalID, req.Title, req.Description, target)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

func GetMilestoneHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		m, err := ownedMilestone(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

func UpdateMilestoneHandler(s *store.Store, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedMilestone(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}

		var req models.UpdateMilestoneRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		u := models.MilestoneUpdate{
			Title:       req.Title,
			Description: req.Description,
			Progress:    req.Progress,
			IsCompleted: req.IsCompleted,
		}
		if req.TargetDate != nil {
			if u.TargetDate, err = optionalDate(*req.TargetDate, loc, true); err != nil {
				return err
			}
		}

		m, err := s.UpdateMilestone(c.Context(), id, u)
		if err != nil {
			return storeError(err, "Milestone")
		}
		return c.JSON(m)
	}
}

func DeleteMilestoneHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedMilestone(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		if err := s.DeleteMilestone(c.Context(), id); err != nil {
			return storeError(err, "Milestone")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// taskMilestone checks that a task's milestone belongs to the task's goal.
func taskMilestone(c *fiber.Ctx, s *store.Store, goalID int, milestoneID *int) error {
	if milestoneID == nil {
		return nil
	}
	m, err := s.GetMilestone(c.Context(), *milestoneID)
	if err != nil || m.GoalID != goalID {
		return fiber.NewError(fiber.StatusBadRequest, "Milestone does not belong to this goal")
	}
	return nil
}

func CreateTaskHandler(s *store.Store, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateTaskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Title) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Title is required")
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), req.GoalID); err != nil {
			return err
		}
		if err := taskMilestone(c, s, req.GoalID, req.MilestoneID); err != nil {
			return err
		}
		due, err := optionalDate(req.DueDate, loc, false)
		if err != nil {
			return err
		}

		t, err := s.CreateTask(c.Context(), models.Task{
			GoalID:      req.GoalID,
			MilestoneID: req.MilestoneID,
			Title:       req.Title,
			Description: req.Description,
			DueDate:     due,
			Priority:    req.Priority,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

func GetTaskHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		t, err := ownedTask(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(t)
	}
}

// UpdateTaskHandler applies a partial update. Completing a task stamps
// completed_at; reopening it clears the stamp.
func UpdateTaskHandler(s *store.Store, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		task, err := ownedTask(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}

		var req models.UpdateTaskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := taskMilestone(c, s, task.GoalID, req.MilestoneID); err != nil {
			return err
		}
		u := models.TaskUpdate{
			Title:       req.Title,
			Description: req.Description,
			IsCompleted: req.IsCompleted,
			Priority:    req.Priority,
			MilestoneID: req.MilestoneID,
		}
		if req.DueDate != nil {
			if u.DueDate, err = optionalDate(*req.DueDate, loc, false); err != nil {
				return err
			}
		}

		t, err := s.UpdateTask(c.Context(), id, u)
		if err != nil {
			return storeError(err, "Task")
		}
		return c.JSON(t)
	}
}

func DeleteTaskHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedTask(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		if err := s.DeleteTask(c.Context(), id); err != nil {
			return storeError(err, "Task")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreateReportHandler stores a progress report. The report date defaults to
// today.
func CreateReportHandler(s *store.Store, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateReportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if strings.TrimSpace(req.Content) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Content is required")
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), req.GoalID); err != nil {
			return err
		}
		day, err := optionalDate(req.ReportDate, loc, true)
		if err != nil {
			return err
		}
		if day == nil {
			now := time.Now().In(loc)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
			day = &today
		}

		r, err := s.CreateReport(c.Context(), req.GoalID, req.Content, *day)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

func GetReportHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		r, err := ownedReport(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func DeleteReportHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedReport(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		if err := s.DeleteReport(c.Context(), id); err != nil {
			return storeError(err, "Report")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
