package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/sopstack/inventory-backend/internal/cache"
	"github.com/sopstack/inventory-backend/internal/config"
	"github.com/sopstack/inventory-backend/internal/ops"
	"github.com/sopstack/inventory-backend/internal/pipeline"
	"github.com/sopstack/inventory-backend/internal/repository"
	"github.com/sopstack/inventory-backend/internal/repository/postgres"
	"github.com/sopstack/inventory-backend/internal/service"
	"github.com/sopstack/inventory-backend/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize object storage for snapshot sync and report archives
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

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Wire the pipeline and report service
	snapshotStore := repository.NewSnapshotStore(cfg.App.SnapshotDir)
	reportRepo := postgres.NewReportRepository(db.DB)
	worker := pipeline.NewWorker(cfg.Simulation, reportRepo)
	exporter := pipeline.NewExporter(cfg.App.ReportDir, objectStore)
	orch := pipeline.NewOrchestrator(snapshotStore, reportRepo, worker, exporter, pipeline.DefaultRunConfig())
	reportService := service.NewReportService(orch, worker, reportRepo, snapshotStore, cache.NewNoopReportCache())

	// Create router and register the operational routes
	r := mux.NewRouter()
	syncer := ops.NewSyncer(objectStore, cfg.App.SnapshotDir)
	handler := ops.NewHandler(syncer, reportService)
	handler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Ops server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
