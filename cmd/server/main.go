package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dugout/internal/cache"
	"dugout/internal/config"
	"dugout/internal/repository"
	"dugout/internal/service"
	"dugout/internal/transport/rest"
	"dugout/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	// Ping MongoDB
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	// Ping Redis
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize repositories
	sessionRepo := repository.NewSessionRepo(mongoClient, db)
	joinCodeRepo := repository.NewJoinCodeRepo(mongoClient, db)
	presenceRepo := repository.NewPresenceRepo(db)
	eventRepo := repository.NewEventRepo(db)
	gameRepo := repository.NewGameRepo(db)

	// Initialize caches
	sessionCache := cache.NewSessionCache(rdb)
	presenceCache := cache.NewPresenceCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService()
	allocator := service.NewCodeAllocator(joinCodeRepo, cfg.CodeDigits, cfg.CodeMaxAttempts)
	sessionSvc := service.NewSessionService(
		sessionRepo, joinCodeRepo, presenceRepo, eventRepo, gameRepo,
		sessionCache, presenceCache,
		allocator,
		cfg.SessionTTL, cfg.CreateTimeout,
	)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		WSHub:          wsHub,
	}

	router := rest.NewRouter(container)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/auth/login")
		log.Println("  POST /v1/sessions")
		log.Println("  POST /v1/join")
		log.Println("  POST /v1/sessions/{id}/heartbeat")
		log.Println("  PATCH /v1/sessions/{id}/scoreboard")
		log.Println("  POST /v1/sessions/{id}/lineup")
		log.Println("  POST/GET /v1/sessions/{id}/events")
		log.Println("  WS  /v1/ws/sessions/{id}/owner")
		log.Println("  WS  /v1/ws/sessions/{id}/participant")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
