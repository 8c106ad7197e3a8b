package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopstack/inventory-backend/internal/aging"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	table := &aging.Table{
		Columns: []string{"material", "quantity"},
		Rows: []aging.Row{
			{"material": "100", "quantity": "5"},
			{"material": "200", "quantity": "7"},
		},
	}

	require.NoError(t, store.Save(2026, 3, "inventory", table))

	loaded, err := store.Load(2026, 3, "inventory")
	require.NoError(t, err)
	assert.Equal(t, table.Columns, loaded.Columns)
	require.Len(t, loaded.Rows, 2)
	assert.Equal(t, "200", loaded.Rows[1]["material"])
}

func TestSnapshotStoreLoadMissing(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())

	_, err := store.Load(2026, 1, "inventory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-01")
}

func TestSnapshotStoreListPeriodsNewestFirst(t *testing.T) {
	store := NewSnapshotStore(t.TempDir())
	table := &aging.Table{Columns: []string{"material"}, Rows: []aging.Row{{"material": "1"}}}

	require.NoError(t, store.Save(2025, 11, "inventory", table))
	require.NoError(t, store.Save(2026, 2, "inventory", table))
	require.NoError(t, store.Save(2026, 1, "inventory", table))

	periods, err := store.ListPeriods()
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, 2026, periods[0].Year)
	assert.Equal(t, 2, periods[0].Month)
	assert.Equal(t, 2025, periods[2].Year)
}

func TestSnapshotStoreListPeriodsEmptyTree(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "missing"))

	periods, err := store.ListPeriods()
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestReadCSVTableNormalizesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	data := " Material ,Quantity\n100,5\n200,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := ReadCSVTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"material", "quantity"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "5", table.Rows[0]["quantity"])
	assert.Equal(t, "", table.Rows[1]["quantity"])
}

func TestReadCSVTableRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.csv")
	data := "material,quantity,amount\n100,5\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := ReadCSVTable(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "", table.Rows[0]["amount"])
}
