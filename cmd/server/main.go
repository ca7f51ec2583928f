package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazarohernan/abogados/internal/config"
	"github.com/lazarohernan/abogados/internal/database"
	"github.com/lazarohernan/abogados/internal/handler"
	"github.com/lazarohernan/abogados/internal/middleware"
	"github.com/lazarohernan/abogados/internal/repository"
	"github.com/lazarohernan/abogados/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Repositories
	messageRepo := repository.NewMessageRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	// Services
	guard := service.NewGuard(profileRepo, messageRepo, cfg.RateLimitWindow, cfg.RateLimitMax, cfg.TrialMessageLimit)
	responder := service.NewWebhookResponder(cfg.WebhookURL, cfg.WebhookTimeout)
	hub := service.NewHub()

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    256 * 1024, // chat payloads are small
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.ClientURL))

	// Health
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// API v1
	v1 := app.Group("/api/v1")

	// Admin — registered BEFORE protected group
	admin := v1.Group("/admin", middleware.AdminKey(cfg.AdminKey))
	adminH := handler.NewAdminHandler(hub, messageRepo, conversationRepo)
	admin.Get("/stats", adminH.Stats)
	admin.Post("/announce", adminH.Announce)

	// JWT-protected routes
	protected := v1.Group("", middleware.Auth(cfg.JWTSecret))

	chatH := handler.NewChatHandler(conversationRepo, messageRepo)
	protected.Post("/conversations", middleware.RateLimit(30, time.Minute), chatH.CreateConversation)
	protected.Get("/conversations/:id/messages", chatH.GetHistory)

	// WebSocket delivery channel
	wsH := handler.NewWSHandler(hub, guard, messageRepo, conversationRepo, responder, cfg)
	app.Get("/ws", wsH.Upgrade)

	// Start hub
	go hub.Run()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("LegalIA relay running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	hub.Shutdown()
	log.Println("Server stopped")
}
