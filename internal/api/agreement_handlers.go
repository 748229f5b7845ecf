package api

import (
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

func GetAgreementHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		a, err := ownedAgreement(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(a)
	}
}

// UpdateAgreementStatusHandler lets the user close a pending agreement as
// completed or cancelled. An agreement the scheduler already marked missed
// answers 409.
func UpdateAgreementStatusHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedAgreement(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}

		var req models.UpdateAgreementStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Status != models.AgreementCompleted && req.Status != models.AgreementCancelled {
			return fiber.NewError(fiber.StatusBadRequest, "Status must be completed or cancelled")
		}

		a, err := s.TransitionAgreement(c.Context(), id, req.Status)
		if err != nil {
			return storeError(err, "Agreement")
		}
		return c.JSON(a)
	}
}
