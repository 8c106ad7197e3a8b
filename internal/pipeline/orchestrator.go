package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sopstack/inventory-backend/internal/domain"
	"github.com/sopstack/inventory-backend/internal/repository"
)

// Orchestrator coordinates a full period run: load the period's
// snapshot tables once, fan the variant matrix out over workers, then
// persist and export every result.
type Orchestrator struct {
	store    *repository.SnapshotStore
	repo     repository.ReportRepository
	worker   *Worker
	exporter *Exporter
	cfg      RunConfig
}

func NewOrchestrator(store *repository.SnapshotStore, repo repository.ReportRepository, worker *Worker, exporter *Exporter, cfg RunConfig) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		store:    store,
		repo:     repo,
		worker:   worker,
		exporter: exporter,
		cfg:      cfg,
	}
}

// LoadInputs reads the period's snapshot tables. The canceled-PO table
// is optional; the other three are required.
func (o *Orchestrator) LoadInputs(year, month int) (*Inputs, error) {
	inv, err := o.store.Load(year, month, SnapInventory)
	if err != nil {
		return nil, fmt.Errorf("loading inventory snapshot: %w", err)
	}
	cls, err := o.store.Load(year, month, SnapClassification)
	if err != nil {
		return nil, fmt.Errorf("loading classification snapshot: %w", err)
	}
	rating, err := o.store.Load(year, month, SnapRating)
	if err != nil {
		return nil, fmt.Errorf("loading rating snapshot: %w", err)
	}

	in := &Inputs{Inventory: inv, Classification: cls, Rating: rating}

	cancel, err := o.store.Load(year, month, SnapCanceledPO)
	if err != nil {
		log.Warn().Err(err).Int("year", year).Int("month", month).
			Msg("no canceled-PO snapshot, combined runs will cover own stock only")
	} else {
		in.CanceledPO = cancel
	}

	return in, nil
}

// Run executes the full variant matrix for one period.
func (o *Orchestrator) Run(ctx context.Context, year, month int) ([]*VariantResult, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	in, err := o.LoadInputs(year, month)
	if err != nil {
		return nil, err
	}

	var snapshotID int64
	if o.repo != nil {
		snap := &domain.Snapshot{
			Year:     year,
			Month:    month,
			Source:   SnapInventory,
			RowCount: len(in.Inventory.Rows),
		}
		if err := o.repo.CreateSnapshot(ctx, snap); err != nil {
			return nil, err
		}
		snapshotID = snap.ID
	}

	runs := DefaultVariantRuns()
	results := make([]*VariantResult, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i, run := range runs {
		i, run := i, run
		g.Go(func() error {
			res, err := o.worker.ComputeVariant(gctx, year, month, run, in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range results {
		if err := o.worker.PersistVariant(ctx, snapshotID, res); err != nil {
			log.Error().Err(err).Str("run", res.Run.Name()).Msg("failed to persist variant run")
		}
		if o.cfg.ExportEnabled && o.exporter != nil {
			if err := o.exporter.ExportVariant(ctx, year, month, res); err != nil {
				log.Error().Err(err).Str("run", res.Run.Name()).Msg("failed to export variant run")
			}
		}
	}

	log.Info().Int("year", year).Int("month", month).Int("variants", len(results)).
		Msg("period run complete")

	return results, nil
}
