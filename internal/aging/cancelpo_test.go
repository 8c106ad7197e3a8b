package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCanceledPOResolvesCandidateColumns(t *testing.T) {
	cancel := &Table{
		Columns: []string{"product code", "product_name", "remaining po", "amount"},
		Rows: []Row{
			{"product code": "9310288.0", "product_name": "widget", "remaining po": "7", "amount": "140"},
		},
	}
	cls := testClassTable(
		Row{"material_code": "9310288", "major_category": "consumables", "minor_category": "widgets", "cost_ratio": "0.5"},
	)
	rating := testRatingTable(Row{"material": "9310288", "sales_velocity": "2", "sales_velocity_x138": "2.76"})

	res, err := NewMapper(DefaultMapperConfig()).MapCanceledPO(cancel, cls, rating, DefaultCancelPOConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "9310288", rec.MaterialCode)
	assert.Equal(t, OwnerManufacturer, rec.Owner)
	assert.Equal(t, "consumables", rec.MajorCategory)
	assert.InDelta(t, 7.0, rec.Quantity, 1e-9)
	assert.InDelta(t, 140.0, rec.Amount, 1e-9)
	assert.Equal(t, 2.0, rec.Velocity)

	// No real expiry data in canceled-PO exports: the default applies.
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC), *rec.Expiry)
}

func TestMapCanceledPODedupDefaultsOn(t *testing.T) {
	cancel := &Table{
		Columns: []string{"product_code", "product_name", "remaining_po", "amount"},
		Rows: []Row{
			{"product_code": "1", "product_name": "widget", "remaining_po": "4", "amount": "40"},
			{"product_code": "1", "product_name": "widget", "remaining_po": "6", "amount": "60"},
		},
	}

	res, err := NewMapper(DefaultMapperConfig()).MapCanceledPO(cancel, testClassTable(), testRatingTable(), DefaultCancelPOConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.InDelta(t, 10.0, res.Records[0].Quantity, 1e-9)
	assert.InDelta(t, 100.0, res.Records[0].Amount, 1e-9)
}

func TestMapCanceledPOMissingColumnNamesField(t *testing.T) {
	cancel := &Table{
		Columns: []string{"product_code", "product_name", "amount"}, // no quantity candidate
		Rows:    nil,
	}

	_, err := NewMapper(DefaultMapperConfig()).MapCanceledPO(cancel, testClassTable(), testRatingTable(), DefaultCancelPOConfig())
	require.Error(t, err)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "remaining PO quantity", colErr.Field)
	assert.Contains(t, err.Error(), "product_name") // actual columns are listed
	assert.Contains(t, err.Error(), "remaining_po") // tried candidates are listed
}

func TestMapCanceledPOKeywordExclusion(t *testing.T) {
	cancel := &Table{
		Columns: []string{"product_code", "product_name", "remaining_po", "amount"},
		Rows: []Row{
			{"product_code": "1", "product_name": "express delivery fee", "remaining_po": "1", "amount": "10"},
			{"product_code": "2", "product_name": "widget", "remaining_po": "2", "amount": "20"},
		},
	}

	res, err := NewMapper(DefaultMapperConfig()).MapCanceledPO(cancel, testClassTable(), testRatingTable(), DefaultCancelPOConfig())
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "2", res.Records[0].MaterialCode)
	assert.Equal(t, 1, res.Quality.ExcludedKeyword)
}
