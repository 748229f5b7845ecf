package api

import (
	"goalcoach/internal/models"
	"goalcoach/internal/notify"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

// VapidPublicKeyHandler hands the browser the key to subscribe with.
func VapidPublicKeyHandler(w *notify.WebPush) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if w == nil || !w.Configured() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications are not configured")
		}
		return c.JSON(fiber.Map{"publicKey": w.PublicKey()})
	}
}

func SubscribePushHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PushSubscription
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing subscription fields")
		}
		sub.UserID = currentUser(c)

		if err := s.UpsertPushSubscription(c.Context(), sub); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if err := s.DeletePushSubscription(c.Context(), currentUser(c), body.Endpoint); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// TestPushHandler sends a sample notification to every device of the user.
func TestPushHandler(w *notify.WebPush) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if w == nil || !w.Configured() {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications are not configured")
		}
		err := w.SendToUser(c.Context(), currentUser(c), notify.Payload{
			Title: "Coach test",
			Body:  "Notifications work. I'll ping you about your agreements here.",
			Tag:   "coach-test",
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
