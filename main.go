package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/zhumataybara/quiz-app/config"
	"github.com/zhumataybara/quiz-app/handlers"
	"github.com/zhumataybara/quiz-app/middleware"
	"github.com/zhumataybara/quiz-app/models"
	"github.com/zhumataybara/quiz-app/routes"
	"github.com/zhumataybara/quiz-app/services"
	"github.com/zhumataybara/quiz-app/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Game{},
		&models.Round{},
		&models.Question{},
		&models.AcceptedAnswer{},
		&models.Player{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize storage and session registry
	gameStore := store.NewGormStore(db)
	registry := services.NewRegistry(gameStore, redisClient)

	// Initialize WebSocket hub and wire it into the registry
	hub := services.NewHub(registry)
	registry.SetBroadcaster(hub)
	go hub.Run()

	// Initialize handlers
	gameHandler := handlers.NewGameHandler(registry, hub)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, gameHandler, hub, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
