package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/pipeline"
	"github.com/sopstack/inventory-backend/internal/repository"
	"github.com/sopstack/inventory-backend/internal/repository/postgres"
)

// Snapshot names the ingest command looks for in the input directory,
// as <name>.csv or <name>.xlsx. Only the canceled-PO table is optional.
var ingestTables = []struct {
	name     string
	optional bool
}{
	{pipeline.SnapInventory, false},
	{pipeline.SnapClassification, false},
	{pipeline.SnapRating, false},
	{pipeline.SnapCanceledPO, true},
}

func runIngest(c *cli.Context) error {
	if err := validMonth(c); err != nil {
		return err
	}

	year := c.Int("year")
	month := c.Int("month")
	inputDir := c.String("input-dir")
	store := repository.NewSnapshotStore(c.String("snapshot-dir"))

	var invRows int
	for _, tbl := range ingestTables {
		table, err := loadRawTable(inputDir, tbl.name)
		if err != nil {
			if tbl.optional && os.IsNotExist(err) {
				log.Printf("No %s table in %s, skipping", tbl.name, inputDir)
				continue
			}
			return fmt.Errorf("failed to load %s table: %w", tbl.name, err)
		}

		if err := store.Save(year, month, tbl.name, table); err != nil {
			return fmt.Errorf("failed to save %s snapshot: %w", tbl.name, err)
		}
		log.Printf("Ingested %s: %d rows", tbl.name, len(table.Rows))

		if tbl.name == pipeline.SnapInventory {
			invRows = len(table.Rows)
		}
	}

	if dbURL := c.String("db-url"); dbURL != "" {
		if err := registerSnapshot(c.Context, dbURL, year, month, invRows); err != nil {
			return err
		}
	}

	log.Printf("Snapshot ingest for %d-%02d completed successfully!", year, month)
	return nil
}

func loadRawTable(inputDir, name string) (*aging.Table, error) {
	csvPath := filepath.Join(inputDir, name+".csv")
	if _, err := os.Stat(csvPath); err == nil {
		return repository.ReadCSVTable(csvPath)
	}

	xlsxPath := filepath.Join(inputDir, name+".xlsx")
	if _, err := os.Stat(xlsxPath); err == nil {
		return repository.ReadXLSXTable(xlsxPath)
	}

	return nil, os.ErrNotExist
}

func registerSnapshot(ctx context.Context, dbURL string, year, month, rowCount int) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	repo := postgres.NewReportRepository(sqlx.NewDb(db, "pgx"))
	snap := &domain.Snapshot{
		Year:     year,
		Month:    month,
		Source:   pipeline.SnapInventory,
		RowCount: rowCount,
	}
	if err := repo.CreateSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("failed to register snapshot: %w", err)
	}

	log.Printf("Registered snapshot %d for %d-%02d", snap.ID, year, month)
	return nil
}
