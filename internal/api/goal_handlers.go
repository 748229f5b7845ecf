package api

import (
	"log"
	"strings"

	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

const maxGoalTitle = 200

func validGoalStatus(s string) bool {
	switch s {
	case models.GoalActive, models.GoalCompleted, models.GoalArchived:
		return true
	}
	return false
}

// CreateGoalHandler creates a goal together with its first chat, which is
// where the coach and the scheduler talk to the user.
func CreateGoalHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUser(c)

		var req models.CreateGoalRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Title is required")
		}
		if len([]rune(req.Title)) > maxGoalTitle {
			return fiber.NewError(fiber.StatusBadRequest, "Title is too long")
		}

		goal, err := s.CreateGoal(c.Context(), userID, req.Title, req.Description, req.Frequency)
		if err != nil {
			return err
		}
		if _, err := s.CreateChat(c.Context(), goal.ID, goal.Title); err != nil {
			log.Printf("Failed to create chat for goal %d: %v", goal.ID, err)
		}

		return c.Status(fiber.StatusCreated).JSON(goal)
	}
}

func ListGoalsHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		goals, err := s.ListGoals(c.Context(), currentUser(c))
		if err != nil {
			return err
		}
		return c.JSON(goals)
	}
}

func GetGoalHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		goal, err := ownedGoal(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(goal)
	}
}

func UpdateGoalHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}

		var req models.GoalUpdate
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Title cannot be empty")
		}
		if req.Status != nil && !validGoalStatus(*req.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "Status must be active, completed or archived")
		}
		if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 100) {
			return fiber.NewError(fiber.StatusBadRequest, "Progress must be between 0 and 100")
		}

		goal, err := s.UpdateGoal(c.Context(), id, req)
		if err != nil {
			return storeError(err, "Goal")
		}
		return c.JSON(goal)
	}
}

// DeleteGoalHandler removes a goal; milestones, tasks, chats, agreements and
// reports go with it.
func DeleteGoalHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		if err := s.DeleteGoal(c.Context(), id); err != nil {
			return storeError(err, "Goal")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// goalChildren lists records under an owned goal.
func goalChildren[T any](s *store.Store, list func(*store.Store, *fiber.Ctx, int) ([]T, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedGoal(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		items, err := list(s, c, id)
		if err != nil {
			return err
		}
		return c.JSON(items)
	}
}

func ListGoalMilestonesHandler(s *store.Store) fiber.Handler {
	return goalChildren(s, func(s *store.Store, c *fiber.Ctx, id int) ([]models.Milestone, error) {
		return s.ListMilestones(c.Context(), id)
	})
}

func ListGoalTasksHandler(s *store.Store) fiber.Handler {
	return goalChildren(s, func(s *store.Store, c *fiber.Ctx, id int) ([]models.Task, error) {
		return s.ListTasks(c.Context(), id)
	})
}

func ListGoalReportsHandler(s *store.Store) fiber.Handler {
	return goalChildren(s, func(s *store.Store, c *fiber.Ctx, id int) ([]models.Report, error) {
		return s.ListReports(c.Context(), id)
	})
}

func ListGoalChatsHandler(s *store.Store) fiber.Handler {
	return goalChildren(s, func(s *store.Store, c *fiber.Ctx, id int) ([]models.Chat, error) {
		return s.ListChats(c.Context(), id)
	})
}

func ListGoalAgreementsHandler(s *store.Store) fiber.Handler {
	return goalChildren(s, func(s *store.Store, c *fiber.Ctx, id int) ([]models.Agreement, error) {
		return s.ListAgreements(c.Context(), id)
	})
}
