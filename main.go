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

	"github.com/joho/godotenv"

	"github.com/avren/tasklist-be/internal/api"
	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/cache"
	"github.com/avren/tasklist-be/internal/config"
	"github.com/avren/tasklist-be/internal/database"
	"github.com/avren/tasklist-be/internal/logger"
	"github.com/avren/tasklist-be/internal/monitoring"
	"github.com/avren/tasklist-be/internal/services"
	"github.com/avren/tasklist-be/internal/websocket"
)

func main() {
	// .env is optional; real deployments supply the environment directly
	_ = godotenv.Load()

	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	// Optional Redis-backed todo-list cache
	todoCache := cache.New(cfg.RedisURL, cfg.CacheTTL)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	todoService := services.NewTodoService(db, eventService, todoCache, hub)

	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	// Set up and run the background event janitor
	janitor, err := monitoring.NewJanitor(eventService, cfg.EventPruneSchedule, cfg.EventRetentionDays)
	if err != nil {
		log.Fatalf("Failed to create event janitor: %v", err)
	}
	go janitor.Run()

	// Set up router
	router := api.NewRouter(hub, tokenService, userService, todoService, eventService, db, cfg.CORSOrigin)

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on port %d\n", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
