package aging

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// StopReason is the terminal state of a batch's depletion loop.
type StopReason string

const (
	// StopSoldOut: quantity hit zero before the risk boundary.
	StopSoldOut StopReason = "sold_out"
	// StopRiskReached: the batch entered the risk zone mid-simulation.
	StopRiskReached StopReason = "risk_reached"
	// StopRiskBeforeStart: the batch was already inside the risk
	// horizon at the epoch; nothing was sold.
	StopRiskBeforeStart StopReason = "risk_reached_before_start"
	// StopNoSales: zero velocity or no expiry date; no depletion.
	StopNoSales StopReason = "no_sales"
	// StopHorizonEnd: the month range ended first. A valid terminal
	// state, not an error.
	StopHorizonEnd StopReason = "horizon_end"
)

// SimConfig drives both simulator forms.
type SimConfig struct {
	// Epoch is "today": every batch clock starts here.
	Epoch time.Time

	// RiskHorizonDays is the exact day-count boundary used by the
	// per-batch state machine.
	RiskHorizonDays int

	// RiskHorizonMonths is the calendar-month form of the horizon,
	// used by the ledger's sellable-month cutoff and the obsolescence
	// cutoff column.
	RiskHorizonMonths int

	// StepDays is the stepped clock's increment; one step per
	// simulated month.
	StepDays int

	Start Month
	End   Month

	// SeasonMonths are the calendar months in which season-restricted
	// materials may deplete at all.
	SeasonMonths []int
}

// DefaultSimConfig returns the standard 6-month risk horizon over a
// three-year range starting at the epoch's month.
func DefaultSimConfig(epoch time.Time) SimConfig {
	start := MonthOf(epoch)
	return SimConfig{
		Epoch:             epoch,
		RiskHorizonDays:   180,
		RiskHorizonMonths: 6,
		StepDays:          30,
		Start:             start,
		End:               Month{Year: start.Year + 2, Month: 12},
		SeasonMonths:      []int{5, 6, 7, 8},
	}
}

func (c SimConfig) seasonAllowed(month int) bool {
	for _, m := range c.SeasonMonths {
		if m == month {
			return true
		}
	}
	return false
}

// riskEntryDate is the day a batch becomes too close to expiry to
// sell.
func (c SimConfig) riskEntryDate(expiry time.Time) time.Time {
	return expiry.AddDate(0, 0, -c.RiskHorizonDays)
}

// cutoffMonth is the last calendar month a batch counts as sellable in
// the ledger.
func (c SimConfig) cutoffMonth(expiry time.Time) Month {
	return MonthOf(expiry.AddDate(0, -c.RiskHorizonMonths, 0))
}

// BatchResult is the per-batch outcome of the stepped state machine.
type BatchResult struct {
	MaterialCode        string      `json:"material_code"`
	BatchID             string      `json:"batch_id"`
	Owner               Owner       `json:"owner"`
	InitialQuantity     float64     `json:"initial_quantity"`
	InitialDaysToExpiry *int        `json:"initial_days_to_expiry,omitempty"`
	RiskEntryDate       *time.Time  `json:"risk_entry_date,omitempty"`
	SellStart           *time.Time  `json:"sell_start,omitempty"`
	SellEnd             *time.Time  `json:"sell_end,omitempty"`
	MonthsFullySold     int         `json:"months_fully_sold"`
	DaysSold            float64     `json:"days_sold"`
	QuantitySold        float64     `json:"quantity_sold"`
	Remaining           float64     `json:"remaining"`
	DaysLeftAtStop      *float64    `json:"days_left_at_stop,omitempty"`
	StopReason          StopReason  `json:"stop_reason"`
}

// sortFEFO orders indices by expiry ascending with nil expiry last,
// ties broken by batch id for determinism.
func sortFEFO(records []Record, idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := records[idx[a]], records[idx[b]]
		switch {
		case ra.Expiry == nil && rb.Expiry == nil:
			return ra.BatchID < rb.BatchID
		case ra.Expiry == nil:
			return false
		case rb.Expiry == nil:
			return true
		case ra.Expiry.Equal(*rb.Expiry):
			return ra.BatchID < rb.BatchID
		default:
			return ra.Expiry.Before(*rb.Expiry)
		}
	})
}

// groupByMaterial returns per-material index lists in FEFO order, plus
// the material codes in first-seen order.
func groupByMaterial(records []Record) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for i, rec := range records {
		if _, seen := groups[rec.MaterialCode]; !seen {
			order = append(order, rec.MaterialCode)
		}
		groups[rec.MaterialCode] = append(groups[rec.MaterialCode], i)
	}
	for _, code := range order {
		sortFEFO(records, groups[code])
	}
	return groups, order
}

// SimulateBatches runs the stepped depletion state machine over every
// batch. Each batch depletes against its product's monthly velocity on
// its own clock starting at the epoch; batches share FEFO order for
// reporting, not a common depletion pool (see BuildMonthlyLedger for
// the shared-burn form). The input records are not mutated.
//
// Season gating keys off the calendar month of each month column, the
// same convention the ledger uses. The 30-day stepped clock drifts up
// to about a day per simulated month from the calendar, so near a
// season boundary the gate and the clock date can disagree by a few
// days; the month column wins.
//
// Results are emitted in FEFO order within each material.
func SimulateBatches(records []Record, cfg SimConfig) []BatchResult {
	groups, order := groupByMaterial(records)
	months := MonthRange(cfg.Start, cfg.End)

	results := make([]BatchResult, 0, len(records))
	for _, code := range order {
		for _, i := range groups[code] {
			results = append(results, simulateBatch(records[i], cfg, months))
		}
	}
	log.Debug().Int("batches", len(results)).Int("months", len(months)).Msg("batch simulation completed")
	return results
}

func simulateBatch(rec Record, cfg SimConfig, months []Month) BatchResult {
	res := BatchResult{
		MaterialCode:    rec.MaterialCode,
		BatchID:         rec.BatchID,
		Owner:           rec.Owner,
		InitialQuantity: rec.Quantity,
		Remaining:       rec.Quantity,
	}

	if rec.Expiry != nil {
		days := daysBetween(cfg.Epoch, *rec.Expiry)
		d := int(days)
		res.InitialDaysToExpiry = &d
		risk := cfg.riskEntryDate(*rec.Expiry)
		res.RiskEntryDate = &risk
	}

	if rec.Velocity <= 0 || rec.Expiry == nil {
		res.StopReason = StopNoSales
		return res
	}

	riskEntry := *res.RiskEntryDate
	if !riskEntry.After(cfg.Epoch) {
		res.StopReason = StopRiskBeforeStart
		res.DaysLeftAtStop = floatPtr(daysBetween(cfg.Epoch, *rec.Expiry))
		return res
	}

	clock := cfg.Epoch
	velPerDay := rec.Velocity / float64(cfg.StepDays)

	stop := func(at time.Time, reason StopReason) BatchResult {
		res.StopReason = reason
		res.QuantitySold = res.InitialQuantity - res.Remaining
		if res.DaysSold > 0 {
			start := cfg.Epoch
			res.SellStart = &start
			end := at
			res.SellEnd = &end
		}
		res.DaysLeftAtStop = floatPtr(daysBetween(at, *rec.Expiry))
		return res
	}

	for _, month := range months {
		daysToRisk := daysBetween(clock, riskEntry)
		if daysToRisk <= 0 {
			return stop(riskEntry, StopRiskReached)
		}

		sellable := cfg.seasonAllowed(month.Month) || !rec.SeasonRestricted

		if daysToRisk < float64(cfg.StepDays) {
			// The risk boundary falls inside this step: sell only the
			// pro-rated fraction, advance exactly to the boundary.
			if !sellable {
				return stop(riskEntry, StopRiskReached)
			}
			prorated := velPerDay * daysToRisk
			if res.Remaining <= prorated {
				soldDays := res.Remaining / velPerDay
				res.DaysSold += soldDays
				res.Remaining = 0
				return stop(clock.Add(durationDays(soldDays)), StopSoldOut)
			}
			res.Remaining -= prorated
			res.DaysSold += daysToRisk
			return stop(riskEntry, StopRiskReached)
		}

		if !sellable {
			// Out-of-season month: the clock advances, nothing sells.
			clock = clock.AddDate(0, 0, cfg.StepDays)
			continue
		}

		if res.Remaining <= rec.Velocity {
			soldDays := res.Remaining / velPerDay
			res.DaysSold += soldDays
			res.Remaining = 0
			return stop(clock.Add(durationDays(soldDays)), StopSoldOut)
		}

		res.Remaining -= rec.Velocity
		res.DaysSold += float64(cfg.StepDays)
		res.MonthsFullySold++
		clock = clock.AddDate(0, 0, cfg.StepDays)
	}

	return stop(clock, StopHorizonEnd)
}

func daysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

func durationDays(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}

// LedgerEntry is one (material, batch) row of the monthly ledger.
// Remaining is indexed parallel to Ledger.Months and holds the
// month-end remaining amount. Rows without an expiry date never
// deplete and stay at zero in every month column.
type LedgerEntry struct {
	MaterialCode string    `json:"material_code"`
	BatchID      string    `json:"batch_id"`
	Owner        Owner     `json:"owner"`
	HasExpiry    bool      `json:"has_expiry"`
	Remaining    []float64 `json:"remaining"`
}

// Ledger is the month-end remaining-amount table produced by
// BuildMonthlyLedger.
type Ledger struct {
	Months  []Month       `json:"months"`
	Entries []LedgerEntry `json:"entries"`

	index map[ledgerKey]int
}

type ledgerKey struct {
	material string
	batch    string
}

// ValueAt returns the month-end remaining amount of a batch for a
// month, or false when the batch or month is outside the ledger. When
// several rows share a (material, batch) pair the last one wins;
// positional reads use valueAtIndex instead.
func (l *Ledger) ValueAt(materialCode, batchID string, month Month) (float64, bool) {
	i, ok := l.index[ledgerKey{materialCode, batchID}]
	if !ok {
		return 0, false
	}
	return l.valueAtIndex(i, month)
}

// valueAtIndex reads a ledger row by position. Entries are parallel to
// the record slice the ledger was built from, so an index into that
// slice addresses its own row even when batch ids repeat, as they do
// for canceled-PO records that carry no batch at all.
func (l *Ledger) valueAtIndex(i int, month Month) (float64, bool) {
	if i < 0 || i >= len(l.Entries) {
		return 0, false
	}
	for j, m := range l.Months {
		if m == month {
			return l.Entries[i].Remaining[j], true
		}
	}
	return 0, false
}

// BuildMonthlyLedger projects remaining amounts month by month over
// [Start, End], depleting one shared monthly burn per material across
// its batches in FEFO order. The burn is the material's monthly
// shipping cost, read off the earliest-expiring batch (velocity is a
// material-level figure, identical across a material's batches).
//
// Per month, a batch absorbs burn only while the month is at or before
// its cutoff month (expiry minus the risk horizon); season-restricted
// materials absorb burn only in season months. Input records are
// copied, never mutated.
func BuildMonthlyLedger(records []Record, cfg SimConfig) *Ledger {
	months := MonthRange(cfg.Start, cfg.End)
	groups, order := groupByMaterial(records)

	ledger := &Ledger{
		Months:  months,
		Entries: make([]LedgerEntry, len(records)),
		index:   make(map[ledgerKey]int, len(records)),
	}

	remaining := make([]float64, len(records))
	for i, rec := range records {
		remaining[i] = rec.Amount
		ledger.Entries[i] = LedgerEntry{
			MaterialCode: rec.MaterialCode,
			BatchID:      rec.BatchID,
			Owner:        rec.Owner,
			HasExpiry:    rec.Expiry != nil,
			Remaining:    make([]float64, len(months)),
		}
		ledger.index[ledgerKey{rec.MaterialCode, rec.BatchID}] = i
	}

	for mi, month := range months {
		for _, code := range order {
			idx := groups[code]
			lead := records[idx[0]]

			burn := 0.0
			if lead.MonthlyShippingCost != nil {
				burn = *lead.MonthlyShippingCost
			}
			if burn <= 0 {
				continue
			}
			if lead.SeasonRestricted && !cfg.seasonAllowed(month.Month) {
				continue
			}

			burnLeft := burn
			for _, i := range idx {
				rec := records[i]
				if rec.Expiry == nil {
					continue
				}
				if month.After(cfg.cutoffMonth(*rec.Expiry)) {
					continue
				}
				use := remaining[i]
				if burnLeft < use {
					use = burnLeft
				}
				remaining[i] -= use
				burnLeft -= use
				if burnLeft <= 0 {
					break
				}
			}
		}

		for i := range records {
			if ledger.Entries[i].HasExpiry {
				ledger.Entries[i].Remaining[mi] = remaining[i]
			}
		}
	}

	return ledger
}
