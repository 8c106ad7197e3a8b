// internal/repository/postgres/report_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/repository"
)

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	query := `
		INSERT INTO snapshots (year, month, source, row_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (year, month, source)
		DO UPDATE SET row_count = EXCLUDED.row_count, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, snap.Year, snap.Month, snap.Source, snap.RowCount).
		Scan(&snap.ID, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating snapshot: %w", err)
	}

	return nil
}

func (r *reportRepository) GetSnapshot(ctx context.Context, year, month int) (*domain.Snapshot, error) {
	query := `
		SELECT id, year, month, source, row_count, created_at, updated_at
		FROM snapshots
		WHERE year = $1 AND month = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var snap domain.Snapshot
	if err := r.db.GetContext(ctx, &snap, query, year, month); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting snapshot: %w", err)
	}

	return &snap, nil
}

func (r *reportRepository) CreateRun(ctx context.Context, run *domain.SimulationRun) error {
	query := `
		INSERT INTO simulation_runs (snapshot_id, variant, scope, status, batch_count, started_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, started_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		run.SnapshotID, run.Variant, run.Scope, run.Status, run.BatchCount).
		Scan(&run.ID, &run.StartedAt)
	if err != nil {
		return fmt.Errorf("error creating simulation run: %w", err)
	}

	return nil
}

func (r *reportRepository) UpdateRunStatus(ctx context.Context, runID int64, status, errMsg string) error {
	var completedAt *time.Time
	if status == domain.RunCompleted || status == domain.RunFailed {
		now := time.Now()
		completedAt = &now
	}

	query := `
		UPDATE simulation_runs
		SET status = $2, error = $3, completed_at = $4
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, runID, status, errMsg, completedAt); err != nil {
		return fmt.Errorf("error updating run status: %w", err)
	}

	return nil
}

func (r *reportRepository) SaveBatchOutcomes(ctx context.Context, runID int64, outcomes []domain.BatchOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	query := `
		INSERT INTO batch_outcomes (
			run_id, material_code, batch_id, owner,
			initial_quantity, quantity_sold, remaining, days_sold, stop_reason,
			risk_entry_date, sell_end, obsolete_amount, entry_quarter,
			turnover_months, major_category, minor_category
		) VALUES (
			:run_id, :material_code, :batch_id, :owner,
			:initial_quantity, :quantity_sold, :remaining, :days_sold, :stop_reason,
			:risk_entry_date, :sell_end, :obsolete_amount, :entry_quarter,
			:turnover_months, :major_category, :minor_category
		)
	`

	for i := range outcomes {
		outcomes[i].RunID = runID
	}

	if _, err := r.db.NamedExecContext(ctx, query, outcomes); err != nil {
		return fmt.Errorf("error saving batch outcomes: %w", err)
	}

	return nil
}

func (r *reportRepository) GetBatchOutcomes(ctx context.Context, filter domain.ReportFilter) ([]domain.BatchOutcome, int, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM batch_outcomes bo
		JOIN simulation_runs sr ON sr.id = bo.run_id
		JOIN snapshots s ON s.id = sr.snapshot_id
		WHERE 1=1
	`

	query := `
		SELECT
			bo.id, bo.run_id, bo.material_code, bo.batch_id, bo.owner,
			bo.initial_quantity, bo.quantity_sold, bo.remaining, bo.days_sold,
			bo.stop_reason, bo.risk_entry_date, bo.sell_end, bo.obsolete_amount,
			bo.entry_quarter, bo.turnover_months, bo.major_category, bo.minor_category
		FROM batch_outcomes bo
		JOIN simulation_runs sr ON sr.id = bo.run_id
		JOIN snapshots s ON s.id = sr.snapshot_id
		WHERE 1=1
	`

	conditions, args := outcomeConditions(filter)
	argCounter := len(args) + 1

	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting batch outcomes: %w", err)
	}

	query += " ORDER BY bo.material_code, bo.batch_id"

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var outcomes []domain.BatchOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting batch outcomes: %w", err)
	}

	return outcomes, total, nil
}

// outcomeConditions builds the WHERE fragments and positional args for
// the batch-outcome queries. The owners slice must go through pq.Array;
// lib/pq does not bind a bare []string.
func outcomeConditions(filter domain.ReportFilter) ([]string, []interface{}) {
	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", argCounter))
		args = append(args, filter.Year)
		argCounter++
	}

	if filter.Month > 0 {
		conditions = append(conditions, fmt.Sprintf("s.month = $%d", argCounter))
		args = append(args, filter.Month)
		argCounter++
	}

	if filter.Variant != "" {
		conditions = append(conditions, fmt.Sprintf("sr.variant = $%d", argCounter))
		args = append(args, filter.Variant)
		argCounter++
	}

	if filter.Scope != "" {
		conditions = append(conditions, fmt.Sprintf("sr.scope = $%d", argCounter))
		args = append(args, filter.Scope)
		argCounter++
	}

	if filter.MajorCategory != "" {
		conditions = append(conditions, fmt.Sprintf("bo.major_category = $%d", argCounter))
		args = append(args, filter.MajorCategory)
		argCounter++
	}

	if len(filter.Owners) > 0 {
		conditions = append(conditions, fmt.Sprintf("bo.owner = ANY($%d::text[])", argCounter))
		args = append(args, pq.Array(filter.Owners))
	}

	return conditions, args
}

func (r *reportRepository) GetAvailablePeriods(ctx context.Context, limit int) ([]domain.ReportPeriod, error) {
	if limit <= 0 {
		limit = 24
	}

	query := `
		SELECT DISTINCT year, month
		FROM snapshots
		ORDER BY year DESC, month DESC
		LIMIT $1
	`

	var periods []domain.ReportPeriod
	if err := r.db.SelectContext(ctx, &periods, query, limit); err != nil {
		return nil, fmt.Errorf("error getting available periods: %w", err)
	}

	return periods, nil
}
