package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newPeriodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:     "year",
			Usage:    "Snapshot year",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "month",
			Usage:    "Snapshot month (1-12)",
			Required: true,
		},
	}
}

func initDB(c *cli.Context) error {
	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func contextDB(c *cli.Context) *sql.DB {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok {
		return db
	}
	return nil
}

func validMonth(c *cli.Context) error {
	month := c.Int("month")
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Prepare the database and snapshot tree for aging simulation runs",
		Commands: []*cli.Command{
			{
				Name:  "schema",
				Usage: "Create the snapshot and simulation tables",
				Flags: []cli.Flag{
					newDBURLFlag(true),
				},
				Before: initDB,
				After:  closeDB,
				Action: runSchema,
			},
			{
				Name:  "ingest",
				Usage: "Load raw inventory tables into the monthly snapshot tree",
				Flags: append([]cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{
						Name:    "input-dir",
						Usage:   "Directory containing the period's raw CSV/XLSX tables",
						Value:   "./data/raw",
						EnvVars: []string{"INGEST_INPUT_DIR"},
					},
					&cli.StringFlag{
						Name:    "snapshot-dir",
						Usage:   "Root of the snapshot tree",
						Value:   "./data/snapshots",
						EnvVars: []string{"APP_SNAPSHOT_DIR"},
					},
				}, newPeriodFlags()...),
				Action: runIngest,
			},
			{
				Name:  "run",
				Usage: "Run the full simulation variant matrix for a period",
				Flags: append([]cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{
						Name:    "snapshot-dir",
						Usage:   "Root of the snapshot tree",
						Value:   "./data/snapshots",
						EnvVars: []string{"APP_SNAPSHOT_DIR"},
					},
					&cli.StringFlag{
						Name:    "report-dir",
						Usage:   "Directory for exported report CSVs",
						Value:   "./data/reports",
						EnvVars: []string{"APP_REPORT_DIR"},
					},
				}, newPeriodFlags()...),
				Action: runSimulation,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
