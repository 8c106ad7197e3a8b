package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/config"
	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/repository"
)

// Inputs are the raw period tables every variant pass maps from. The
// tables are read-only during a run and safe to share across variants.
type Inputs struct {
	Inventory      *aging.Table
	Classification *aging.Table
	Rating         *aging.Table
	CanceledPO     *aging.Table
}

// Worker executes one variant pass over a period's inputs.
type Worker struct {
	simCfg config.SimulationConfig
	repo   repository.ReportRepository
}

func NewWorker(simCfg config.SimulationConfig, repo repository.ReportRepository) *Worker {
	return &Worker{simCfg: simCfg, repo: repo}
}

// ComputeVariant maps, simulates and aggregates one variant pass.
func (w *Worker) ComputeVariant(ctx context.Context, year, month int, run VariantRun, in *Inputs) (*VariantResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mapperCfg := aging.DefaultMapperConfig()
	mapperCfg.Variant = run.Variant
	if len(w.simCfg.ExcludeKeywords) > 0 {
		mapperCfg.ExcludeKeywords = w.simCfg.ExcludeKeywords
	}
	mapperCfg.SeasonCodes = w.simCfg.SeasonCodes

	mapper := aging.NewMapper(mapperCfg)
	result, err := mapper.MapInventory(in.Inventory, in.Classification, in.Rating)
	if err != nil {
		return nil, fmt.Errorf("mapping inventory for %s: %w", run.Name(), err)
	}

	records := result.Records
	quality := result.Quality

	if run.Scope == domain.ScopeCombined && in.CanceledPO != nil {
		cancelCfg := aging.DefaultCancelPOConfig()
		cancelCfg.Variant = run.Variant
		if len(w.simCfg.ExcludeKeywords) > 0 {
			cancelCfg.ExcludeKeywords = w.simCfg.ExcludeKeywords
		}

		cancelResult, err := mapper.MapCanceledPO(in.CanceledPO, in.Classification, in.Rating, cancelCfg)
		if err != nil {
			return nil, fmt.Errorf("mapping canceled POs for %s: %w", run.Name(), err)
		}
		records = append(records, cancelResult.Records...)
		quality.InputRows += cancelResult.Quality.InputRows
		quality.OutputRows += cancelResult.Quality.OutputRows
		quality.ExcludedKeyword += cancelResult.Quality.ExcludedKeyword
		quality.UnparsableNumber += cancelResult.Quality.UnparsableNumber
		quality.Unclassified += cancelResult.Quality.Unclassified
		quality.Unrated += cancelResult.Quality.Unrated
	}

	simCfg := w.buildSimConfig(year, month)

	batches := aging.SimulateBatches(records, simCfg)
	ledger := aging.BuildMonthlyLedger(records, simCfg)
	obs := aging.ComputeObsolescence(records, ledger, simCfg)
	table := aging.BuildCategoryQuarterTable(records, obs, simCfg.Start.Year, simCfg.End.Year)

	var self, manufacturer []aging.Record
	for _, rec := range records {
		if rec.Owner == aging.OwnerManufacturer {
			manufacturer = append(manufacturer, rec)
		} else {
			self = append(self, rec)
		}
	}
	owners := aging.BuildOwnerReport(self, manufacturer)

	log.Info().
		Str("run", run.Name()).
		Int("year", year).
		Int("month", month).
		Int("records", len(records)).
		Int("batches", len(batches)).
		Msg("variant pass complete")

	return &VariantResult{
		Run:      run,
		Quality:  quality,
		Batches:  batches,
		Obsolete: obs,
		Table:    table,
		Owners:   owners,
		Records:  records,
	}, nil
}

func (w *Worker) buildSimConfig(year, month int) aging.SimConfig {
	epoch := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	cfg := aging.DefaultSimConfig(epoch)

	if w.simCfg.RiskHorizonDays > 0 {
		cfg.RiskHorizonDays = w.simCfg.RiskHorizonDays
	}
	if w.simCfg.RiskHorizonMonths > 0 {
		cfg.RiskHorizonMonths = w.simCfg.RiskHorizonMonths
	}
	if w.simCfg.StepDays > 0 {
		cfg.StepDays = w.simCfg.StepDays
	}
	if w.simCfg.RangeYears > 0 {
		cfg.End = aging.Month{Year: cfg.Start.Year + w.simCfg.RangeYears - 1, Month: 12}
	}
	if len(w.simCfg.SeasonMonths) > 0 {
		cfg.SeasonMonths = w.simCfg.SeasonMonths
	}

	return cfg
}

// PersistVariant records a completed pass and its per-batch outcomes.
// Persistence is best-effort on top of the CSV exports; a nil repo
// skips it.
func (w *Worker) PersistVariant(ctx context.Context, snapshotID int64, res *VariantResult) error {
	if w.repo == nil {
		return nil
	}

	run := &domain.SimulationRun{
		SnapshotID: snapshotID,
		Variant:    string(res.Run.Variant),
		Scope:      res.Run.Scope,
		Status:     domain.RunRunning,
		BatchCount: len(res.Batches),
	}
	if err := w.repo.CreateRun(ctx, run); err != nil {
		return err
	}

	outcomes := buildOutcomes(res)
	if err := w.repo.SaveBatchOutcomes(ctx, run.ID, outcomes); err != nil {
		if uerr := w.repo.UpdateRunStatus(ctx, run.ID, domain.RunFailed, err.Error()); uerr != nil {
			log.Error().Err(uerr).Int64("run_id", run.ID).Msg("failed to mark run failed")
		}
		return err
	}

	return w.repo.UpdateRunStatus(ctx, run.ID, domain.RunCompleted, "")
}

// buildOutcomes joins simulator results with obsolescence figures and
// the records' classification, keyed by (material, batch).
func buildOutcomes(res *VariantResult) []domain.BatchOutcome {
	type key struct{ material, batch string }

	obsByKey := make(map[key]aging.ObsoleteInfo, len(res.Obsolete))
	for _, info := range res.Obsolete {
		obsByKey[key{info.MaterialCode, info.BatchID}] = info
	}
	recByKey := make(map[key]aging.Record, len(res.Records))
	for _, rec := range res.Records {
		recByKey[key{rec.MaterialCode, rec.BatchID}] = rec
	}

	outcomes := make([]domain.BatchOutcome, 0, len(res.Batches))
	for _, b := range res.Batches {
		k := key{b.MaterialCode, b.BatchID}
		outcome := domain.BatchOutcome{
			MaterialCode:    b.MaterialCode,
			BatchID:         b.BatchID,
			Owner:           string(b.Owner),
			InitialQuantity: b.InitialQuantity,
			QuantitySold:    b.QuantitySold,
			Remaining:       b.Remaining,
			DaysSold:        int(b.DaysSold),
			StopReason:      string(b.StopReason),
			RiskEntryDate:   b.RiskEntryDate,
			SellEnd:         b.SellEnd,
		}
		if info, ok := obsByKey[k]; ok {
			outcome.ObsoleteAmount = info.ObsoleteAmount
			outcome.EntryQuarter = info.EntryQuarter
			outcome.TurnoverMonths = info.TurnoverMonths
		}
		if rec, ok := recByKey[k]; ok {
			outcome.MajorCategory = rec.MajorCategory
			outcome.MinorCategory = rec.MinorCategory
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
