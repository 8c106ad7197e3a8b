package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var simEpoch = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

func expiryIn(daysOut int) *time.Time {
	t := simEpoch.AddDate(0, 0, daysOut)
	return &t
}

func simCfg(months int) SimConfig {
	cfg := DefaultSimConfig(simEpoch)
	end := cfg.Start
	for i := 1; i < months; i++ {
		end = end.Next()
	}
	cfg.End = end
	return cfg
}

func TestSimulateBatchRiskBoundaryIsExact(t *testing.T) {
	// Expiry 200 days out with a 180-day horizon puts the risk
	// boundary 20 days in, two thirds of the way through step one.
	records := []Record{{
		MaterialCode: "1", BatchID: "B1",
		Quantity: 100, Velocity: 30,
		Expiry: expiryIn(200),
	}}

	results := SimulateBatches(records, simCfg(12))
	require.Len(t, results, 1)
	res := results[0]

	assert.Equal(t, StopRiskReached, res.StopReason)
	assert.InDelta(t, 30.0*20.0/30.0, res.QuantitySold, 1e-9)
	assert.InDelta(t, 20.0, res.DaysSold, 1e-9)
	assert.InDelta(t, 80.0, res.Remaining, 1e-9)

	require.NotNil(t, res.RiskEntryDate)
	assert.Equal(t, simEpoch.AddDate(0, 0, 20), *res.RiskEntryDate)
	require.NotNil(t, res.SellEnd)
	assert.Equal(t, *res.RiskEntryDate, *res.SellEnd)
}

func TestSimulateBatchSoldOutPrecedesRisk(t *testing.T) {
	// Quantity runs out on day 10, before the day-20 risk boundary.
	records := []Record{{
		MaterialCode: "1", BatchID: "B1",
		Quantity: 10, Velocity: 30,
		Expiry: expiryIn(200),
	}}

	results := SimulateBatches(records, simCfg(12))
	require.Len(t, results, 1)
	res := results[0]

	assert.Equal(t, StopSoldOut, res.StopReason)
	assert.InDelta(t, 0.0, res.Remaining, 1e-9)
	assert.InDelta(t, 10.0, res.DaysSold, 1e-9)
	require.NotNil(t, res.SellEnd)
	assert.Equal(t, simEpoch.Add(10*24*time.Hour), *res.SellEnd)
	assert.True(t, res.SellEnd.Before(*res.RiskEntryDate))
}

func TestSimulateBatchesFEFOOrderAndIndependentClocks(t *testing.T) {
	records := []Record{
		{MaterialCode: "1", BatchID: "LATE", Quantity: 1000, Velocity: 30, Expiry: expiryIn(500)},
		{MaterialCode: "1", BatchID: "SOON", Quantity: 1000, Velocity: 30, Expiry: expiryIn(30)},
		{MaterialCode: "1", BatchID: "MID", Quantity: 1000, Velocity: 30, Expiry: expiryIn(200)},
	}

	results := SimulateBatches(records, simCfg(24))
	require.Len(t, results, 3)

	// Output order is FEFO: ascending expiry.
	assert.Equal(t, "SOON", results[0].BatchID)
	assert.Equal(t, "MID", results[1].BatchID)
	assert.Equal(t, "LATE", results[2].BatchID)

	// 30 days out is already inside the 180-day horizon.
	assert.Equal(t, StopRiskBeforeStart, results[0].StopReason)
	assert.InDelta(t, 1000.0, results[0].Remaining, 1e-9)

	// Every batch that sold at all started at the epoch: clocks are
	// independent, not a shared consumption pool.
	for _, res := range results[1:] {
		require.NotNil(t, res.SellStart, "batch %s", res.BatchID)
		assert.Equal(t, simEpoch, *res.SellStart, "batch %s", res.BatchID)
	}
}

func TestSimulateBatchNoSales(t *testing.T) {
	records := []Record{
		{MaterialCode: "1", BatchID: "B1", Quantity: 50, Velocity: 0, Expiry: expiryIn(400)},
		{MaterialCode: "2", BatchID: "B1", Quantity: 20, Velocity: 10}, // no expiry
	}

	results := SimulateBatches(records, simCfg(6))
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, StopNoSales, res.StopReason)
		assert.Equal(t, res.InitialQuantity, res.Remaining)
		assert.Zero(t, res.DaysSold)
	}
}

func TestSimulateBatchHorizonEndIsTerminalState(t *testing.T) {
	records := []Record{{
		MaterialCode: "1", BatchID: "B1",
		Quantity: 10000, Velocity: 30,
		Expiry: expiryIn(2000),
	}}

	results := SimulateBatches(records, simCfg(3))
	require.Len(t, results, 1)
	res := results[0]

	assert.Equal(t, StopHorizonEnd, res.StopReason)
	assert.Equal(t, 3, res.MonthsFullySold)
	assert.InDelta(t, 10000.0-90.0, res.Remaining, 1e-9)
}

func TestSimulateBatchSeasonalGating(t *testing.T) {
	outOfSeason := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	inSeason := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	run := func(epoch time.Time) BatchResult {
		cfg := DefaultSimConfig(epoch)
		cfg.End = cfg.Start // a single simulated month
		exp := epoch.AddDate(0, 0, 400)
		records := []Record{{
			MaterialCode: "1", BatchID: "B1",
			Quantity: 500, Velocity: 60,
			Expiry: &exp, SeasonRestricted: true,
		}}
		results := SimulateBatches(records, cfg)
		return results[0]
	}

	// Month 9 is out of season: the clock advances, nothing sells.
	sept := run(outOfSeason)
	assert.InDelta(t, 500.0, sept.Remaining, 1e-9)
	assert.Zero(t, sept.DaysSold)
	assert.Equal(t, StopHorizonEnd, sept.StopReason)

	// Month 6 sells normally.
	june := run(inSeason)
	assert.InDelta(t, 440.0, june.Remaining, 1e-9)
	assert.Equal(t, 1, june.MonthsFullySold)
}

func TestSimulateBatchSeasonalGateFollowsMonthColumns(t *testing.T) {
	// From a Jan 31 epoch the 30-day clock sits at Mar 2 during the
	// February month column. The gate keys off the column, not the
	// drifted clock date.
	epoch := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	exp := epoch.AddDate(0, 0, 400)

	run := func(seasonMonths []int) BatchResult {
		cfg := DefaultSimConfig(epoch)
		cfg.End = cfg.Start.Next() // January and February
		cfg.SeasonMonths = seasonMonths
		records := []Record{{
			MaterialCode: "1", BatchID: "B1",
			Quantity: 500, Velocity: 60,
			Expiry: &exp, SeasonRestricted: true,
		}}
		return SimulateBatches(records, cfg)[0]
	}

	feb := run([]int{2})
	assert.InDelta(t, 440.0, feb.Remaining, 1e-9)
	assert.Equal(t, 1, feb.MonthsFullySold)

	mar := run([]int{3})
	assert.InDelta(t, 500.0, mar.Remaining, 1e-9)
	assert.Zero(t, mar.DaysSold)
	assert.Equal(t, StopHorizonEnd, mar.StopReason)
}

func TestSimulateTwoBatchScenario(t *testing.T) {
	records := []Record{
		{MaterialCode: "M", BatchID: "A", Quantity: 100, Velocity: 60, Expiry: expiryIn(45)},
		{MaterialCode: "M", BatchID: "B", Quantity: 500, Velocity: 60, Expiry: expiryIn(400)},
	}

	results := SimulateBatches(records, simCfg(3))
	require.Len(t, results, 2)

	// Batch A is already inside the horizon (45 < 180): untouched.
	a := results[0]
	assert.Equal(t, "A", a.BatchID)
	assert.Equal(t, StopRiskBeforeStart, a.StopReason)
	assert.InDelta(t, 100.0, a.Remaining, 1e-9)

	// Batch B sells 60/month for three months with no interruption.
	b := results[1]
	assert.Equal(t, "B", b.BatchID)
	assert.Equal(t, StopHorizonEnd, b.StopReason)
	assert.InDelta(t, 320.0, b.Remaining, 1e-9)
	assert.Equal(t, 3, b.MonthsFullySold)
}

func TestSimulateBatchesDoesNotMutateInput(t *testing.T) {
	records := []Record{{
		MaterialCode: "1", BatchID: "B1",
		Quantity: 100, Velocity: 30, Expiry: expiryIn(300),
	}}
	before := CloneRecords(records)

	SimulateBatches(records, simCfg(6))
	BuildMonthlyLedger(records, simCfg(6))

	assert.Equal(t, before, records)
}

func ledgerCfg(start Month, months int) SimConfig {
	cfg := DefaultSimConfig(time.Date(start.Year, time.Month(start.Month), 1, 0, 0, 0, 0, time.UTC))
	cfg.Start = start
	end := start
	for i := 1; i < months; i++ {
		end = end.Next()
	}
	cfg.End = end
	return cfg
}

func TestBuildMonthlyLedgerFEFODistribution(t *testing.T) {
	far := time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC)
	later := time.Date(2029, 6, 30, 0, 0, 0, 0, time.UTC)
	burn := 60.0

	records := []Record{
		{MaterialCode: "M", BatchID: "B2", Amount: 50, Expiry: &later, MonthlyShippingCost: &burn},
		{MaterialCode: "M", BatchID: "B1", Amount: 100, Expiry: &far, MonthlyShippingCost: &burn},
	}

	ledger := BuildMonthlyLedger(records, ledgerCfg(Month{2026, 1}, 2))

	// Month 1: the whole burn comes out of the earliest expiry.
	v, ok := ledger.ValueAt("M", "B1", Month{2026, 1})
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B2", Month{2026, 1})
	assert.InDelta(t, 50.0, v, 1e-9)

	// Month 2: B1's last 40 plus 20 from B2.
	v, _ = ledger.ValueAt("M", "B1", Month{2026, 2})
	assert.InDelta(t, 0.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B2", Month{2026, 2})
	assert.InDelta(t, 30.0, v, 1e-9)
}

func TestBuildMonthlyLedgerCutoffGatesSales(t *testing.T) {
	// Expiry July 2026 with a 6-month horizon: sellable through
	// January, frozen from February on.
	exp := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)
	burn := 10.0
	records := []Record{
		{MaterialCode: "M", BatchID: "B1", Amount: 100, Expiry: &exp, MonthlyShippingCost: &burn},
	}

	ledger := BuildMonthlyLedger(records, ledgerCfg(Month{2026, 1}, 3))

	v, _ := ledger.ValueAt("M", "B1", Month{2026, 1})
	assert.InDelta(t, 90.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B1", Month{2026, 2})
	assert.InDelta(t, 90.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B1", Month{2026, 3})
	assert.InDelta(t, 90.0, v, 1e-9)
}

func TestBuildMonthlyLedgerNoExpiryStaysZero(t *testing.T) {
	burn := 10.0
	far := time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{MaterialCode: "M", BatchID: "EXP", Amount: 100, Expiry: &far, MonthlyShippingCost: &burn},
		{MaterialCode: "M", BatchID: "NOEXP", Amount: 40, MonthlyShippingCost: &burn},
	}

	ledger := BuildMonthlyLedger(records, ledgerCfg(Month{2026, 1}, 2))

	for _, m := range ledger.Months {
		v, ok := ledger.ValueAt("M", "NOEXP", m)
		require.True(t, ok)
		assert.Zero(t, v)
	}
}

func TestBuildMonthlyLedgerSeasonalMaterial(t *testing.T) {
	burn := 10.0
	far := time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{MaterialCode: "M", BatchID: "B1", Amount: 100, Expiry: &far, MonthlyShippingCost: &burn, SeasonRestricted: true},
	}

	// April is out of season, May and June are in.
	ledger := BuildMonthlyLedger(records, ledgerCfg(Month{2026, 4}, 3))

	v, _ := ledger.ValueAt("M", "B1", Month{2026, 4})
	assert.InDelta(t, 100.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B1", Month{2026, 5})
	assert.InDelta(t, 90.0, v, 1e-9)
	v, _ = ledger.ValueAt("M", "B1", Month{2026, 6})
	assert.InDelta(t, 80.0, v, 1e-9)
}

func TestMonthLabel(t *testing.T) {
	assert.Equal(t, "26_3", Month{2026, 3}.Label())
	assert.Equal(t, "26_12", Month{2026, 12}.Label())
	assert.Len(t, MonthRange(Month{2026, 11}, Month{2027, 2}), 4)
}
