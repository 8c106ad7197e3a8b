package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/cache"
	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/pipeline"
	"github.com/sopstack/inventory-backend/internal/repository"
)

// ReportService serves aging and obsolescence reports for ingested
// periods, recomputing from snapshots on cache miss.
type ReportService struct {
	orch   *pipeline.Orchestrator
	worker *pipeline.Worker
	repo   repository.ReportRepository
	store  *repository.SnapshotStore
	cache  cache.ReportCache
}

func NewReportService(
	orch *pipeline.Orchestrator,
	worker *pipeline.Worker,
	repo repository.ReportRepository,
	store *repository.SnapshotStore,
	cacheImpl cache.ReportCache,
) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReportService{
		orch:   orch,
		worker: worker,
		repo:   repo,
		store:  store,
		cache:  cacheImpl,
	}
}

// Run executes the full variant matrix for a period and invalidates
// cached reports that may now be stale.
func (s *ReportService) Run(ctx context.Context, year, month int) ([]*pipeline.VariantResult, error) {
	results, err := s.orch.Run(ctx, year, month)
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("report: cache invalidation failed")
	}

	return results, nil
}

// GetCategoryReport returns the category/quarter obsolescence table
// for one period and variant, cache-aside.
func (s *ReportService) GetCategoryReport(ctx context.Context, filter domain.ReportFilter) (*aging.CategoryQuarterTable, error) {
	if table, ok, err := s.cache.GetCategoryReport(ctx, filter); err == nil && ok {
		return table, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("report: cache get failed")
	}

	res, err := s.computeVariant(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetCategoryReport(ctx, filter, res.Table); err != nil {
		log.Warn().Err(err).Msg("report: cache set failed")
	}

	return res.Table, nil
}

// GetOwnerReport returns the self/manufacturer cost and price pivot.
func (s *ReportService) GetOwnerReport(ctx context.Context, filter domain.ReportFilter) ([]aging.OwnerReportRow, error) {
	res, err := s.computeVariant(ctx, filter)
	if err != nil {
		return nil, err
	}
	return res.Owners, nil
}

// GetBatchResults returns the per-batch depletion results and the
// mapping quality counters for one period and variant.
func (s *ReportService) GetBatchResults(ctx context.Context, filter domain.ReportFilter) ([]aging.BatchResult, *aging.QualityReport, error) {
	res, err := s.computeVariant(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return res.Batches, &res.Quality, nil
}

// GetBatchOutcomes reads persisted batch outcomes with pagination.
func (s *ReportService) GetBatchOutcomes(ctx context.Context, filter domain.ReportFilter) ([]domain.BatchOutcome, int, error) {
	return s.repo.GetBatchOutcomes(ctx, filter)
}

// GetStockout grades every material by days of stock at current
// velocity.
func (s *ReportService) GetStockout(ctx context.Context, filter domain.ReportFilter) ([]aging.StockoutRow, error) {
	res, err := s.computeVariant(ctx, filter)
	if err != nil {
		return nil, err
	}
	return aging.SummarizeStockout(res.Records), nil
}

// GetBucketSummary rolls stock value up into days-to-expiry buckets as
// of the first day of the period.
func (s *ReportService) GetBucketSummary(ctx context.Context, filter domain.ReportFilter) (*aging.BucketSummary, error) {
	res, err := s.computeVariant(ctx, filter)
	if err != nil {
		return nil, err
	}

	asOf := time.Date(filter.Year, time.Month(filter.Month), 1, 0, 0, 0, 0, time.UTC)
	summary := aging.SummarizeBuckets(res.Records, asOf, aging.DefaultBucketLadder)
	return &summary, nil
}

// GetAvailablePeriods lists ingested periods, preferring the database
// and falling back to the snapshot tree.
func (s *ReportService) GetAvailablePeriods(ctx context.Context, limit int) ([]domain.ReportPeriod, error) {
	if s.repo != nil {
		periods, err := s.repo.GetAvailablePeriods(ctx, limit)
		if err == nil && len(periods) > 0 {
			return periods, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("report: period lookup from db failed, using snapshot tree")
		}
	}

	periods, err := s.store.ListPeriods()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(periods) > limit {
		periods = periods[:limit]
	}
	return periods, nil
}

func (s *ReportService) computeVariant(ctx context.Context, filter domain.ReportFilter) (*pipeline.VariantResult, error) {
	run := pipeline.VariantRun{
		Variant: aging.VelocityVariant(filter.Variant),
		Scope:   filter.Scope,
	}
	if run.Variant == "" {
		run.Variant = aging.VelocityPlain
	}
	if run.Scope == "" {
		run.Scope = domain.ScopeCombined
	}

	in, err := s.orch.LoadInputs(filter.Year, filter.Month)
	if err != nil {
		return nil, err
	}

	return s.worker.ComputeVariant(ctx, filter.Year, filter.Month, run, in)
}
