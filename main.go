package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"goalcoach/internal/api"
	"goalcoach/internal/auth"
	"goalcoach/internal/coach"
	"goalcoach/internal/config"
	"goalcoach/internal/database"
	"goalcoach/internal/llm"
	"goalcoach/internal/notify"
	"goalcoach/internal/scheduler"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	if err := auth.Ready(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	db, err := database.Initialize(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run migrations only if explicitly enabled (opt-in for safety)
	if cfg.RunMigrations {
		log.Println("Running database migrations...")
		if err := api.MigrateAddTrackingColumns(db); err != nil {
			log.Printf("Migration error (tracking columns): %v", err)
		}
		if err := api.MigrateBackfillChecklistSentAt(db); err != nil {
			log.Printf("Migration error (checklist backfill): %v", err)
		}
	} else {
		log.Println("Migrations skipped (set RUN_MIGRATIONS=true to enable)")
	}

	st := store.New(db)
	state := scheduler.NewState(0)
	client := llm.New(llm.Options{
		Provider: cfg.LLMProvider,
		Endpoint: cfg.LLMEndpoint,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		Timeout:  cfg.LLMTimeout,
	})
	orchestrator := coach.NewOrchestrator(client, st, state, coach.Options{Location: cfg.Location})
	push := notify.New(st, notify.Keys{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
	})
	if !push.Configured() {
		log.Println("WARNING: VAPID keys not set, push notifications are disabled")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	log.Printf("CORS allowed origins: %s", cfg.AllowedOrigins)
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.AllowedOrigins != "*", // Required for cookies
	}))

	api.SetupRoutes(app, api.Deps{
		Store:               st,
		Coach:               orchestrator,
		Push:                push,
		Location:            cfg.Location,
		DisableRegistration: cfg.DisableRegistration,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Server starting on port %s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if cfg.EnableWorkers {
		log.Println("Starting background workers...")
		sched := scheduler.New(st, push, state, scheduler.Config{
			Interval:         cfg.SchedulerInterval,
			Location:         cfg.Location,
			MorningHourStart: cfg.MorningHourStart,
			MorningHourEnd:   cfg.MorningHourEnd,
		})
		g.Go(func() error { return sched.Run(ctx) })
	} else {
		log.Println("Background workers disabled (set ENABLE_WORKERS=true to enable)")
	}

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
