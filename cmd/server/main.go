package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studybuddy-backend/internal/cache"
	"studybuddy-backend/internal/config"
	"studybuddy-backend/internal/database"
	"studybuddy-backend/internal/handlers"
	"studybuddy-backend/internal/middleware"
	"studybuddy-backend/internal/repository"
	"studybuddy-backend/internal/router"
	"studybuddy-backend/internal/services"
	"studybuddy-backend/internal/websocket"
	"studybuddy-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyBuddy Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis (optional) ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	} else {
		log.Println("• REDIS_URL not set, stats caching disabled")
	}
	statsCache := cache.NewCache(redisClient)

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	studyLogRepo := repository.NewStudyLogRepo(pool)
	chatSessionRepo := repository.NewChatSessionRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini client initialized")

	// ──── Step 6: Start Enrichment Worker Pool ────
	enrichmentPool := worker.NewPool(geminiService, studyLogRepo, redisClient,
		cfg.EnrichmentWorkers, cfg.EnrichmentQueueSize)
	enrichmentPool.Start()
	log.Printf("✓ Enrichment worker pool started (%d goroutines)", cfg.EnrichmentWorkers)

	// ──── Initialize Services ────
	statsService := services.NewStatsService(studyLogRepo, statsCache,
		time.Duration(cfg.StatsCacheTTL)*time.Second)
	studyService := services.NewStudyService(studyLogRepo, statsService, enrichmentPool)
	contextBuilder := services.NewContextBuilder(studyLogRepo)

	// ──── Initialize Middleware & Handlers ────
	auth := middleware.NewAuth(cfg.JWTSecret, userRepo)
	studyHandler := handlers.NewStudyHandler(studyService)
	aiHandler := handlers.NewAIHandler(geminiService, contextBuilder, chatSessionRepo, userRepo)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClient, userRepo, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(auth, studyHandler, aiHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		enrichmentPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyBuddy Backend ready on http://localhost:%s", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
