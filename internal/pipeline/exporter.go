package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/storage"
)

// Exporter writes a variant pass's report tables as CSV under
// <output>/<year>/<month>/ and optionally mirrors them to object
// storage under the same key layout.
type Exporter struct {
	outputDir string
	store     storage.ObjectStorage
}

func NewExporter(outputDir string, store storage.ObjectStorage) *Exporter {
	return &Exporter{outputDir: outputDir, store: store}
}

// ExportVariant writes the category/quarter table, batch results and
// owner report for one pass.
func (e *Exporter) ExportVariant(ctx context.Context, year, month int, res *VariantResult) error {
	dir := filepath.Join(e.outputDir, strconv.Itoa(year), fmt.Sprintf("%02d", month))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := map[string]func(path string) error{
		res.Run.Name() + "_category.csv": func(path string) error {
			return writeCategoryCSV(path, res.Table)
		},
		res.Run.Name() + "_batches.csv": func(path string) error {
			return writeBatchCSV(path, res.Batches)
		},
		res.Run.Name() + "_owners.csv": func(path string) error {
			return writeOwnerCSV(path, res.Owners)
		},
	}

	for name, write := range files {
		path := filepath.Join(dir, name)
		if err := write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := e.upload(ctx, year, month, name, path); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("report upload failed")
		}
	}

	log.Info().Str("run", res.Run.Name()).Str("dir", dir).Msg("reports exported")
	return nil
}

func (e *Exporter) upload(ctx context.Context, year, month int, name, path string) error {
	if e.store == nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("reports/%d/%02d/%s", year, month, name)
	return e.store.UploadObject(ctx, key, data)
}

func writeCategoryCSV(path string, table *aging.CategoryQuarterTable) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"major_category", "minor_category", "cost", "shipping_cost", "shipping_price", "turnover_months", "sum"}
	header = append(header, table.QuarterCols...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range table.Rows {
		record := []string{
			row.MajorCategory,
			row.MinorCategory,
			formatFloat(row.Cost),
			formatFloat(row.ShippingCost),
			formatFloat(row.ShippingPrice),
			formatFloat(row.TurnoverMonths),
			formatFloat(row.Sum),
		}
		for _, q := range row.Quarters {
			record = append(record, formatFloat(q))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeBatchCSV(path string, batches []aging.BatchResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"material_code", "batch_id", "owner", "initial_quantity",
		"risk_entry_date", "sell_start", "sell_end", "months_fully_sold",
		"days_sold", "quantity_sold", "remaining", "stop_reason",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, b := range batches {
		record := []string{
			b.MaterialCode,
			b.BatchID,
			string(b.Owner),
			formatFloat(b.InitialQuantity),
			formatDate(b.RiskEntryDate),
			formatDate(b.SellStart),
			formatDate(b.SellEnd),
			strconv.Itoa(b.MonthsFullySold),
			formatFloat(b.DaysSold),
			formatFloat(b.QuantitySold),
			formatFloat(b.Remaining),
			string(b.StopReason),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeOwnerCSV(path string, rows []aging.OwnerReportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"major_category", "minor_category",
		"self_cost", "self_price",
		"manufacturer_cost", "manufacturer_price",
		"total_cost", "total_price",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.MajorCategory,
			row.MinorCategory,
			formatFloat(row.SelfCost),
			formatFloat(row.SelfPrice),
			formatFloat(row.ManufacturerCost),
			formatFloat(row.ManufacturerPrice),
			formatFloat(row.TotalCost),
			formatFloat(row.TotalPrice),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
