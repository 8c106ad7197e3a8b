package pipeline

import (
	"fmt"
	"time"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/domain"
)

// Snapshot file names expected under <snapshot dir>/<year>/<month>/.
const (
	SnapInventory      = "inventory"
	SnapClassification = "classification"
	SnapRating         = "rating"
	SnapCanceledPO     = "canceled_po"
)

// VariantRun identifies one simulation pass: which velocity column
// feeds the depletion rate, and whether manufacturer-held canceled-PO
// stock shares the FEFO queue with own stock.
type VariantRun struct {
	Variant aging.VelocityVariant
	Scope   string
}

// Name is the run's file and log identifier, e.g. "combined_x138".
func (v VariantRun) Name() string {
	return fmt.Sprintf("%s_%s", v.Scope, v.Variant)
}

// DefaultVariantRuns is the standard four-pass matrix.
func DefaultVariantRuns() []VariantRun {
	return []VariantRun{
		{Variant: aging.VelocityPlain, Scope: domain.ScopeCombined},
		{Variant: aging.VelocityUplifted, Scope: domain.ScopeCombined},
		{Variant: aging.VelocityPlain, Scope: domain.ScopeSelf},
		{Variant: aging.VelocityUplifted, Scope: domain.ScopeSelf},
	}
}

// VariantResult bundles everything one pass produces.
type VariantResult struct {
	Run      VariantRun
	Quality  aging.QualityReport
	Batches  []aging.BatchResult
	Obsolete []aging.ObsoleteInfo
	Table    *aging.CategoryQuarterTable
	Owners   []aging.OwnerReportRow
	Records  []aging.Record
}

// RunConfig bounds one orchestrated period run.
type RunConfig struct {
	Workers       int
	ExportEnabled bool
	UploadEnabled bool
	Timeout       time.Duration
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Workers:       4,
		ExportEnabled: true,
		Timeout:       10 * time.Minute,
	}
}
