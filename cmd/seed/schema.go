package main

import (
	"fmt"
	"log"

	"github.com/urfave/cli/v2"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		id BIGSERIAL PRIMARY KEY,
		year INT NOT NULL,
		month INT NOT NULL,
		source TEXT NOT NULL,
		row_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (year, month, source)
	)`,
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		id BIGSERIAL PRIMARY KEY,
		snapshot_id BIGINT NOT NULL REFERENCES snapshots(id),
		variant TEXT NOT NULL,
		scope TEXT NOT NULL,
		status TEXT NOT NULL,
		batch_count INT NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS batch_outcomes (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES simulation_runs(id),
		material_code TEXT NOT NULL,
		batch_id TEXT NOT NULL,
		owner TEXT NOT NULL,
		initial_quantity DOUBLE PRECISION NOT NULL,
		quantity_sold DOUBLE PRECISION NOT NULL,
		remaining DOUBLE PRECISION NOT NULL,
		days_sold INT NOT NULL,
		stop_reason TEXT NOT NULL,
		risk_entry_date DATE,
		sell_end DATE,
		obsolete_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		entry_quarter TEXT NOT NULL DEFAULT '',
		turnover_months DOUBLE PRECISION,
		major_category TEXT NOT NULL DEFAULT '',
		minor_category TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batch_outcomes_run ON batch_outcomes (run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_batch_outcomes_material ON batch_outcomes (material_code)`,
	`CREATE INDEX IF NOT EXISTS idx_simulation_runs_snapshot ON simulation_runs (snapshot_id)`,
}

func runSchema(c *cli.Context) error {
	db := contextDB(c)
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	log.Println("Creating schema...")
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(c.Context, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	log.Println("Schema created successfully!")
	return nil
}
