package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventoryTable(rows ...Row) *Table {
	return &Table{
		Columns: []string{"material", "material_description", "batch", "quantity", "amount", "expiry_date"},
		Rows:    rows,
	}
}

func testClassTable(rows ...Row) *Table {
	return &Table{
		Columns: []string{"material_code", "major_category", "minor_category", "cost_ratio"},
		Rows:    rows,
	}
}

func testRatingTable(rows ...Row) *Table {
	return &Table{
		Columns: []string{"material", "sales_velocity", "sales_velocity_x138"},
		Rows:    rows,
	}
}

func TestMapInventoryJoinsAndDerives(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "9310288.0", "material_description": "widget", "batch": "B1", "quantity": "10", "amount": "200", "expiry_date": "2027-06-30"},
	)
	cls := testClassTable(
		Row{"material_code": "9,310,288", "major_category": "consumables", "minor_category": "widgets", "cost_ratio": "0.5"},
	)
	rating := testRatingTable(
		Row{"material": "9310288", "sales_velocity": "4", "sales_velocity_x138": "5.52"},
	)

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, cls, rating)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "9310288", rec.MaterialCode)
	assert.Equal(t, "consumables", rec.MajorCategory)
	assert.Equal(t, "widgets", rec.MinorCategory)
	assert.Equal(t, OwnerSelf, rec.Owner)
	assert.Equal(t, 4.0, rec.Velocity)

	require.NotNil(t, rec.UnitCost)
	assert.InDelta(t, 20.0, *rec.UnitCost, 1e-9)
	require.NotNil(t, rec.MonthlyShippingCost)
	assert.InDelta(t, 80.0, *rec.MonthlyShippingCost, 1e-9)
	require.NotNil(t, rec.ShippingSellPrice)
	assert.InDelta(t, 160.0, *rec.ShippingSellPrice, 1e-9)
	require.NotNil(t, rec.SellPrice)
	assert.InDelta(t, 400.0, *rec.SellPrice, 1e-9)

	require.NotNil(t, rec.Expiry)
	assert.Equal(t, time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC), *rec.Expiry)
}

func TestMapInventoryKeywordExclusion(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "1", "material_description": "widget", "quantity": "5", "amount": "50"},
		Row{"material": "2", "material_description": "monthly delivery fee", "quantity": "1", "amount": "10"},
	)

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Quality.ExcludedKeyword)
	assert.Equal(t, "1", res.Records[0].MaterialCode)
}

func TestMapInventoryNoDropInvariant(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "1", "quantity": "5", "amount": "50"},
		Row{"material": "1", "quantity": "3", "amount": "30", "batch": "B2"},
		Row{"material": "2", "quantity": "bogus", "amount": "", "expiry_date": "not a date"},
	)

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)

	// Every input row survives; bad cells degrade, they do not drop.
	require.Len(t, res.Records, 3)
	var qty, amt float64
	for _, rec := range res.Records {
		qty += rec.Quantity
		amt += rec.Amount
	}
	assert.InDelta(t, 8.0, qty, 1e-9)
	assert.InDelta(t, 80.0, amt, 1e-9)
	assert.Equal(t, 1, res.Quality.UnparsableNumber)
	assert.Equal(t, 3, res.Quality.MissingExpiry)
	assert.Equal(t, 3, res.Quality.Unclassified)
}

func TestMapInventoryDedupByMaterial(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "1", "material_description": "widget", "batch": "B1", "quantity": "5", "amount": "50"},
		Row{"material": "1", "material_description": "widget", "batch": "B2", "quantity": "3", "amount": "30"},
	)

	cfg := DefaultMapperConfig()
	cfg.DedupByMaterial = true
	res, err := NewMapper(cfg).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.InDelta(t, 8.0, res.Records[0].Quantity, 1e-9)
	assert.InDelta(t, 80.0, res.Records[0].Amount, 1e-9)
	assert.Equal(t, "B1", res.Records[0].BatchID) // first value wins
}

func TestMapInventoryUnclassifiedSentinel(t *testing.T) {
	inv := testInventoryTable(Row{"material": "77", "quantity": "1", "amount": "1"})

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)
	assert.Equal(t, Unclassified, res.Records[0].MajorCategory)
	assert.Equal(t, Unclassified, res.Records[0].MinorCategory)
}

func TestMapInventoryDivisionSafety(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "1", "quantity": "0", "amount": "100"},
	)
	cls := testClassTable(
		Row{"material_code": "1", "major_category": "a", "minor_category": "b", "cost_ratio": "0"},
	)

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, cls, testRatingTable())
	require.NoError(t, err)

	rec := res.Records[0]
	assert.Nil(t, rec.UnitCost)
	assert.Nil(t, rec.MonthlyShippingCost)
	assert.Nil(t, rec.ShippingSellPrice)
	assert.Nil(t, rec.SellPrice)
}

func TestMapInventoryZeroVelocityExpirySentinel(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "1", "quantity": "5", "amount": "50", "expiry_date": "2026-06-30"},
	)

	res, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)

	rec := res.Records[0]
	assert.Equal(t, 0.0, rec.Velocity)
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC), *rec.Expiry)
}

func TestMapInventoryUpliftedVariant(t *testing.T) {
	inv := testInventoryTable(Row{"material": "1", "quantity": "10", "amount": "100"})
	rating := testRatingTable(Row{"material": "1", "sales_velocity": "4", "sales_velocity_x138": "5.52"})

	cfg := DefaultMapperConfig()
	cfg.Variant = VelocityUplifted
	res, err := NewMapper(cfg).MapInventory(inv, testClassTable(), rating)
	require.NoError(t, err)

	rec := res.Records[0]
	assert.InDelta(t, 5.52, rec.Velocity, 1e-9)
	require.NotNil(t, rec.MonthlyShippingCost)
	assert.InDelta(t, 55.2, *rec.MonthlyShippingCost, 1e-9)
}

func TestMapInventoryMissingRequiredColumn(t *testing.T) {
	inv := testInventoryTable(Row{"material": "1", "quantity": "1", "amount": "1"})
	cls := &Table{
		Columns: []string{"material_code", "major_category", "minor_category"}, // cost_ratio missing
		Rows:    nil,
	}

	_, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, cls, testRatingTable())
	require.Error(t, err)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "cost_ratio", colErr.Field)
	assert.Contains(t, err.Error(), "classification")
	assert.Contains(t, err.Error(), "major_category") // lists actual columns
}

func TestMapInventoryRequiresBatchColumn(t *testing.T) {
	inv := &Table{
		Columns: []string{"material", "quantity", "amount", "expiry_date"},
		Rows:    []Row{{"material": "1", "quantity": "1", "amount": "1"}},
	}

	_, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), testRatingTable())
	require.Error(t, err)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "batch", colErr.Field)
	assert.Contains(t, err.Error(), "inventory")
}

func TestMapInventoryMissingVelocityColumn(t *testing.T) {
	inv := testInventoryTable(Row{"material": "1", "quantity": "1", "amount": "1"})
	rating := &Table{Columns: []string{"material", "some_other"}, Rows: nil}

	_, err := NewMapper(DefaultMapperConfig()).MapInventory(inv, testClassTable(), rating)
	require.Error(t, err)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "sales velocity", colErr.Field)
}

func TestMapInventorySeasonFlag(t *testing.T) {
	inv := testInventoryTable(
		Row{"material": "100", "quantity": "1", "amount": "1"},
		Row{"material": "200", "quantity": "1", "amount": "1"},
	)
	cfg := DefaultMapperConfig()
	cfg.SeasonCodes = []string{"100.0"} // normalized before matching

	res, err := NewMapper(cfg).MapInventory(inv, testClassTable(), testRatingTable())
	require.NoError(t, err)
	assert.True(t, res.Records[0].SeasonRestricted)
	assert.False(t, res.Records[1].SeasonRestricted)
}
