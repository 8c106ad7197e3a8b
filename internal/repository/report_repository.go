// internal/repository/report_repository.go
package repository

import (
	"context"

	"github.com/sopstack/inventory-backend/internal/domain"
)

// ReportRepository persists simulation runs and their per-batch outcomes.
type ReportRepository interface {
	CreateSnapshot(ctx context.Context, snap *domain.Snapshot) error
	GetSnapshot(ctx context.Context, year, month int) (*domain.Snapshot, error)
	CreateRun(ctx context.Context, run *domain.SimulationRun) error
	UpdateRunStatus(ctx context.Context, runID int64, status, errMsg string) error
	SaveBatchOutcomes(ctx context.Context, runID int64, outcomes []domain.BatchOutcome) error
	GetBatchOutcomes(ctx context.Context, filter domain.ReportFilter) ([]domain.BatchOutcome, int, error)
	GetAvailablePeriods(ctx context.Context, limit int) ([]domain.ReportPeriod, error)
}
