package api

import (
	"time"

	"goalcoach/internal/coach"
	"goalcoach/internal/notify"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Deps is what the handlers share.
type Deps struct {
	Store               *store.Store
	Coach               *coach.Orchestrator
	Push                *notify.WebPush
	Location            *time.Location
	DisableRegistration bool
}

func SetupRoutes(app *fiber.App, d Deps) {
	if d.Location == nil {
		d.Location = time.UTC
	}
	api := app.Group("/api")

	// Configuration endpoint (public)
	api.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"disableRegistration": d.DisableRegistration,
		})
	})

	auth := api.Group("/auth")
	if !d.DisableRegistration {
		auth.Post("/register", RegisterHandler(d.Store))
	}
	auth.Post("/login", LoginHandler(d.Store))
	auth.Post("/refresh", RefreshTokenHandler(d.Store))
	auth.Post("/logout", LogoutHandler(d.Store))

	// Public, so it is registered before the protected group.
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler(d.Push))

	protected := api.Group("/", AuthMiddleware())

	goals := protected.Group("/goals")
	goals.Post("/", CreateGoalHandler(d.Store))
	goals.Get("/", ListGoalsHandler(d.Store))
	goals.Get("/:id", GetGoalHandler(d.Store))
	goals.Put("/:id", UpdateGoalHandler(d.Store))
	goals.Delete("/:id", DeleteGoalHandler(d.Store))
	goals.Get("/:id/milestones", ListGoalMilestonesHandler(d.Store))
	goals.Get("/:id/tasks", ListGoalTasksHandler(d.Store))
	goals.Get("/:id/reports", ListGoalReportsHandler(d.Store))
	goals.Get("/:id/chats", ListGoalChatsHandler(d.Store))
	goals.Get("/:id/agreements", ListGoalAgreementsHandler(d.Store))

	milestones := protected.Group("/milestones")
	milestones.Post("/", CreateMilestoneHandler(d.Store, d.Location))
	milestones.Get("/:id", GetMilestoneHandler(d.Store))
	milestones.Put("/:id", UpdateMilestoneHandler(d.Store, d.Location))
	milestones.Delete("/:id", DeleteMilestoneHandler(d.Store))

	tasks := protected.Group("/tasks")
	tasks.Post("/", CreateTaskHandler(d.Store, d.Location))
	tasks.Get("/:id", GetTaskHandler(d.Store))
	tasks.Put("/:id", UpdateTaskHandler(d.Store, d.Location))
	tasks.Delete("/:id", DeleteTaskHandler(d.Store))

	reports := protected.Group("/reports")
	reports.Post("/", CreateReportHandler(d.Store, d.Location))
	reports.Get("/:id", GetReportHandler(d.Store))
	reports.Delete("/:id", DeleteReportHandler(d.Store))

	chats := protected.Group("/chats")
	chats.Post("/", CreateChatHandler(d.Store))
	chats.Get("/:id", GetChatHandler(d.Store))
	chats.Delete("/:id", DeleteChatHandler(d.Store))
	chats.Get("/:id/messages", ListMessagesHandler(d.Store))
	chats.Post("/:id/messages", PostMessageHandler(d.Store))
	chats.Post("/:id/ai", CoachReplyHandler(d.Store, d.Coach))
	chats.Post("/:id/confirm-actions", ConfirmActionsHandler(d.Store, d.Coach))

	agreements := protected.Group("/agreements")
	agreements.Get("/:id", GetAgreementHandler(d.Store))
	agreements.Put("/:id/status", UpdateAgreementStatusHandler(d.Store))

	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(d.Store))
	push.Delete("/unsubscribe", UnsubscribePushHandler(d.Store))
	push.Post("/test", TestPushHandler(d.Push))

	user := protected.Group("/user")
	user.Get("/profile", GetUserProfileHandler(d.Store))
	user.Put("/email", UpdateUserEmailHandler(d.Store))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
