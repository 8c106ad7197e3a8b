package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/domain"
)

func TestExportVariantWritesReportFiles(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir, nil)

	res := &VariantResult{
		Run: VariantRun{Variant: aging.VelocityPlain, Scope: domain.ScopeCombined},
		Table: &aging.CategoryQuarterTable{
			QuarterCols: []string{"26Q1", "26Q2"},
			Rows: []aging.CategoryQuarterRow{
				{Tier: aging.TierTotal, MajorCategory: "total", Cost: 100, Sum: 30, Quarters: []float64{30, 0}},
			},
		},
		Batches: []aging.BatchResult{
			{MaterialCode: "100", BatchID: "B1", Owner: aging.OwnerSelf, InitialQuantity: 10, Remaining: 4, StopReason: aging.StopHorizonEnd},
		},
		Owners: []aging.OwnerReportRow{
			{Tier: aging.TierTotal, MajorCategory: "total", SelfCost: 100, TotalCost: 100},
		},
	}

	require.NoError(t, exporter.ExportVariant(context.Background(), 2026, 3, res))

	outDir := filepath.Join(dir, "2026", "03")
	for _, name := range []string{"combined_plain_category.csv", "combined_plain_batches.csv", "combined_plain_owners.csv"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	f, err := os.Open(filepath.Join(outDir, "combined_plain_category.csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "26Q1", records[0][7])
	assert.Equal(t, "total", records[1][0])
	assert.Equal(t, "30", records[1][6])
	assert.Equal(t, "30", records[1][7])
}

func TestExportBatchCSVFormatsDates(t *testing.T) {
	dir := t.TempDir()

	batches := []aging.BatchResult{
		{MaterialCode: "100", BatchID: "B1", Owner: aging.OwnerSelf, StopReason: aging.StopNoSales},
	}
	path := filepath.Join(dir, "batches.csv")
	require.NoError(t, writeBatchCSV(path, batches))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// nil dates render as empty cells, not zero timestamps
	assert.Equal(t, "", records[1][4])
	assert.Equal(t, "no_sales", records[1][11])
}
