// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sopstack/inventory-backend/internal/api"
	"github.com/sopstack/inventory-backend/internal/cache"
	"github.com/sopstack/inventory-backend/internal/config"
	"github.com/sopstack/inventory-backend/internal/pipeline"
	"github.com/sopstack/inventory-backend/internal/repository"
	"github.com/sopstack/inventory-backend/internal/repository/postgres"
	"github.com/sopstack/inventory-backend/internal/service"
	"github.com/sopstack/inventory-backend/internal/storage"
	"github.com/sopstack/inventory-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize report cache
	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without")
		reportCache = cache.NewNoopReportCache()
	}

	// Optional object storage for report archives
	var objectStore storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		objectStore = client
	}

	// Wire the pipeline and report service
	snapshotStore := repository.NewSnapshotStore(cfg.App.SnapshotDir)
	reportRepo := postgres.NewReportRepository(db.DB)
	worker := pipeline.NewWorker(cfg.Simulation, reportRepo)
	exporter := pipeline.NewExporter(cfg.App.ReportDir, objectStore)
	orch := pipeline.NewOrchestrator(snapshotStore, reportRepo, worker, exporter, pipeline.DefaultRunConfig())
	reportService := service.NewReportService(orch, worker, reportRepo, snapshotStore, reportCache)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{ReportService: reportService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
