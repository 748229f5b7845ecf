package api

import (
	"strings"

	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

type UpdateEmailRequest struct {
	Email *string `json:"email"`
}

// UpdateUserEmailHandler sets or clears the user's email address.
func UpdateUserEmailHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if req.Email != nil && *req.Email != "" {
			email := *req.Email
			if len(email) < 3 || len(email) > 254 || !strings.Contains(email, "@") {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid email format")
			}
		}

		if err := s.UpdateUserEmail(c.Context(), currentUser(c), req.Email); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to update email")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Email updated successfully",
		})
	}
}

func GetUserProfileHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.GetUser(c.Context(), currentUser(c))
		if err != nil {
			return storeError(err, "User")
		}

		profile := fiber.Map{
			"id":         user.ID,
			"username":   user.Username,
			"created_at": user.CreatedAt,
			"email":      nil,
		}
		if user.Email != "" {
			profile["email"] = user.Email
		}
		return c.JSON(profile)
	}
}
