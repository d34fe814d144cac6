package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/gamecatalog-backend/config"
	"github.com/ikkim/gamecatalog-backend/internal/app/controller"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/ikkim/gamecatalog-backend/internal/bootstrap"
	"github.com/ikkim/gamecatalog-backend/internal/db"
	"github.com/ikkim/gamecatalog-backend/internal/router"
	"github.com/ikkim/gamecatalog-backend/internal/scheduler"
	"github.com/ikkim/gamecatalog-backend/internal/websocket"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logConfig := bootstrap.LoggerConfig(cfg)
	logger.Initialize(logConfig)

	logger.Info("Starting game catalog server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logConfig.Level,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Event hub for ingest progress
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	populateOpts := []service.PopulateOption{service.WithEventPublisher(hub)}

	// Redis is optional; without it batches are only serialized in-process
	var locker service.Locker = service.NewProcessLocker()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.Connect(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-process batch lock", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redisClient.Close()
			locker = redis.NewLocker(redisClient)
		}
	}
	populateOpts = append(populateOpts, service.WithLocker(locker, cfg.Ingest.LockTTL))

	populateService, err := bootstrap.NewPopulateService(cfg, db.GetDB(), populateOpts...)
	if err != nil {
		logger.Fatal("Failed to initialize populate service", err)
	}

	blobStore, staticDir := bootstrap.NewBlobStore(&cfg.S3)
	assetService := service.NewAssetService(
		repository.NewAssetRepository(db.GetDB()),
		repository.NewGameRepository(db.GetDB()),
		blobStore,
	)

	// Initialize controllers
	populateController := controller.NewPopulateController(populateService, cfg.Ingest.DefaultParams())
	ingestRunController := controller.NewIngestRunController(populateService)
	eventController := controller.NewEventController(hub, cfg.CORS.AllowedOrigins)
	uploadController := controller.NewUploadController(assetService)

	// Setup router
	r := router.NewRouter(
		populateController,
		ingestRunController,
		eventController,
		uploadController,
		cfg,
		staticDir,
	)
	engine := r.Setup()

	// Periodic batches
	var populateScheduler *scheduler.PopulateScheduler
	if cfg.Ingest.Schedule != "" {
		populateScheduler = scheduler.NewPopulateScheduler(populateService, cfg.Ingest.Schedule, cfg.Ingest.DefaultParams(), cfg.Ingest.LockTTL)
		if err := populateScheduler.Start(); err != nil {
			logger.Fatal("Failed to start populate scheduler", err)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	if populateScheduler != nil {
		populateScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
