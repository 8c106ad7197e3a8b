// internal/repository/snapshot_store.go
package repository

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sopstack/inventory-backend/internal/aging"
	"github.com/sopstack/inventory-backend/internal/domain"
)

// SnapshotStore keeps monthly table snapshots on disk under
// <base>/<year>/<month>/<name>.csv. Excel drops are converted on read.
type SnapshotStore struct {
	baseDir string
}

func NewSnapshotStore(baseDir string) *SnapshotStore {
	return &SnapshotStore{baseDir: baseDir}
}

func (s *SnapshotStore) PeriodDir(year, month int) string {
	return filepath.Join(s.baseDir, strconv.Itoa(year), fmt.Sprintf("%02d", month))
}

// Save writes a table as <name>.csv for the given period, creating the
// period directory if needed.
func (s *SnapshotStore) Save(year, month int, name string, table *aging.Table) error {
	dir := s.PeriodDir(year, month)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, name+".csv")
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = row[col]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row to %s: %w", path, err)
		}
	}

	w.Flush()
	return w.Error()
}

// Load reads <name>.csv (or <name>.xlsx if no CSV exists) for a period.
func (s *SnapshotStore) Load(year, month int, name string) (*aging.Table, error) {
	dir := s.PeriodDir(year, month)

	csvPath := filepath.Join(dir, name+".csv")
	if _, err := os.Stat(csvPath); err == nil {
		return ReadCSVTable(csvPath)
	}

	xlsxPath := filepath.Join(dir, name+".xlsx")
	if _, err := os.Stat(xlsxPath); err == nil {
		return ReadXLSXTable(xlsxPath)
	}

	return nil, fmt.Errorf("no snapshot %q found for %d-%02d in %s", name, year, month, dir)
}

// ListPeriods walks the snapshot tree and returns the periods that have
// at least one snapshot file, newest first.
func (s *SnapshotStore) ListPeriods() ([]domain.ReportPeriod, error) {
	years, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir %s: %w", s.baseDir, err)
	}

	var periods []domain.ReportPeriod
	for _, y := range years {
		if !y.IsDir() {
			continue
		}
		year, err := strconv.Atoi(y.Name())
		if err != nil {
			continue
		}

		months, err := os.ReadDir(filepath.Join(s.baseDir, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read year dir %s: %w", y.Name(), err)
		}
		for _, m := range months {
			if !m.IsDir() {
				continue
			}
			month, err := strconv.Atoi(m.Name())
			if err != nil || month < 1 || month > 12 {
				continue
			}
			periods = append(periods, domain.ReportPeriod{Year: year, Month: month})
		}
	}

	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Year != periods[j].Year {
			return periods[i].Year > periods[j].Year
		}
		return periods[i].Month > periods[j].Month
	})

	return periods, nil
}

// ReadCSVTable loads a CSV file into a table. Header cells are trimmed
// and lowercased so column lookup is insensitive to export quirks.
func ReadCSVTable(path string) (*aging.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV %s is empty", path)
	}

	return tableFromRecords(records), nil
}

// ReadXLSXTable loads the first sheet of an XLSX file into a table.
func ReadXLSXTable(path string) (*aging.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row from %s: %w", path, err)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("xlsx file %s is empty", path)
	}

	return tableFromRecords(records), nil
}

func tableFromRecords(records [][]string) *aging.Table {
	header := records[0]
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	table := &aging.Table{
		Columns: columns,
		Rows:    make([]aging.Row, 0, len(records)-1),
	}
	for _, record := range records[1:] {
		row := make(aging.Row, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}
