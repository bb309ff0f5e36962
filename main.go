package main

import (
	"context"
	"log"
	"time"

	"quizlive/config"
	"quizlive/handlers"
	"quizlive/middleware"
	"quizlive/models"
	"quizlive/routes"
	"quizlive/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Game{},
		&models.Player{},
		&models.GameAnswer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Core: locked store, timers, broadcaster, scheduler
	store := services.NewGameStore(
		services.NewRedisKV(redisClient),
		services.NewRedisLock(redisClient),
		cfg.GameTTL,
	)
	timers := services.NewTimerRegistry()
	defer timers.Stop()

	channel := services.NewRedisChannel(redisClient, cfg.EventChannel)
	broadcaster := services.NewBroadcaster(store, channel, cfg.HeartbeatInterval)
	if err := broadcaster.Start(context.Background()); err != nil {
		log.Fatal("Failed to start broadcaster:", err)
	}
	defer broadcaster.Stop()

	scheduler := services.NewTaskScheduler(store, timers, broadcaster, services.SchedulerDelays{
		LobbyCountdown:      time.Duration(cfg.LobbyCountdownSec) * time.Second,
		LobbyDuration:       time.Duration(cfg.LobbyDurationSec) * time.Second,
		QuestionIntro:       time.Duration(cfg.QuestionIntroSec) * time.Second,
		ResultDuration:      time.Duration(cfg.ResultDurationSec) * time.Second,
		LeaderboardDuration: time.Duration(cfg.LeaderboardDurationSec) * time.Second,
	})

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	quizService := services.NewQuizService(db)
	gameService := services.NewGameService(db, store, scheduler, broadcaster, cfg.GameTTL)

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	// Background sweep for expired games
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			gameService.SweepExpired(context.Background())
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	gameHandler := handlers.NewGameHandler(gameService, hub)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, quizHandler, gameHandler, hub, broadcaster, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
