package api

import (
	"context"
	"errors"
	"strings"

	"goalcoach/internal/auth"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing authorization header")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)

		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) int {
	return c.Locals("userID").(int)
}

func paramID(c *fiber.Ctx) (int, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// storeError maps store sentinels onto HTTP errors.
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, what+" was already changed")
	}
	return err
}

// Every resource hangs off a goal, and a goal belongs to one user. Records of
// other users are reported as missing rather than forbidden.

func ownedGoal(ctx context.Context, s *store.Store, userID, goalID int) (*models.Goal, error) {
	g, err := s.GetGoal(ctx, goalID)
	if err != nil {
		return nil, storeError(err, "Goal")
	}
	if g.UserID != userID {
		return nil, fiber.NewError(fiber.StatusNotFound, "Goal not found")
	}
	return g, nil
}

func ownedChat(ctx context.Context, s *store.Store, userID, chatID int) (*models.Chat, error) {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, storeError(err, "Chat")
	}
	if _, err := ownedGoal(ctx, s, userID, chat.GoalID); err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Chat not found")
	}
	return chat, nil
}

func ownedMilestone(ctx context.Context, s *store.Store, userID, id int) (*models.Milestone, error) {
	m, err := s.GetMilestone(ctx, id)
	if err != nil {
		return nil, storeError(err, "Milestone")
	}
	if _, err := ownedGoal(ctx, s, userID, m.GoalID); err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Milestone not found")
	}
	return m, nil
}

func ownedTask(ctx context.Context, s *store.Store, userID, id int) (*models.Task, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, storeError(err, "Task")
	}
	if _, err := ownedGoal(ctx, s, userID, t.GoalID); err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	return t, nil
}

func ownedReport(ctx context.Context, s *store.Store, userID, id int) (*models.Report, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, storeError(err, "Report")
	}
	if _, err := ownedGoal(ctx, s, userID, r.GoalID); err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Report not found")
	}
	return r, nil
}

func ownedAgreement(ctx context.Context, s *store.Store, userID, id int) (*models.Agreement, error) {
	a, err := s.GetAgreement(ctx, id)
	if err != nil {
		return nil, storeError(err, "Agreement")
	}
	if _, err := ownedGoal(ctx, s, userID, a.GoalID); err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Agreement not found")
	}
	return a, nil
}
