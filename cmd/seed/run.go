package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/sopstack/inventory-backend/internal/config"
	"github.com/sopstack/inventory-backend/internal/pipeline"
	"github.com/sopstack/inventory-backend/internal/repository"
	"github.com/sopstack/inventory-backend/internal/repository/postgres"
)

// runSimulation executes the full variant matrix for one period from
// the command line, writing report CSVs and, when a database URL is
// given, persisting run outcomes.
func runSimulation(c *cli.Context) error {
	if err := validMonth(c); err != nil {
		return err
	}

	year := c.Int("year")
	month := c.Int("month")

	var repo repository.ReportRepository
	if dbURL := c.String("db-url"); dbURL != "" {
		db, err := sql.Open("pgx", dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		repo = postgres.NewReportRepository(sqlx.NewDb(db, "pgx"))
	}

	cfg := config.Load()
	store := repository.NewSnapshotStore(c.String("snapshot-dir"))
	worker := pipeline.NewWorker(cfg.Simulation, repo)
	exporter := pipeline.NewExporter(c.String("report-dir"), nil)
	orch := pipeline.NewOrchestrator(store, repo, worker, exporter, pipeline.DefaultRunConfig())

	results, err := orch.Run(c.Context, year, month)
	if err != nil {
		return fmt.Errorf("simulation run failed: %w", err)
	}

	for _, res := range results {
		log.Printf("[%s] %d batches, %d/%d rows mapped, %d unclassified",
			res.Run.Name(), len(res.Batches),
			res.Quality.OutputRows, res.Quality.InputRows,
			res.Quality.Unclassified)
	}

	log.Printf("Simulation run for %d-%02d completed successfully!", year, month)
	return nil
}
