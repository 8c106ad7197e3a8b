package aging

import (
	"fmt"
	"time"
)

// QuarterLabel renders a calendar quarter as e.g. "26Q2".
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("%02dQ%d", t.Year()%100, (int(t.Month())-1)/3+1)
}

// QuarterLabels lists every quarter column label for a year range.
func QuarterLabels(startYear, endYear int) []string {
	var labels []string
	for y := startYear; y <= endYear; y++ {
		for q := 1; q <= 4; q++ {
			labels = append(labels, fmt.Sprintf("%02dQ%d", y%100, q))
		}
	}
	return labels
}

// ObsoleteInfo is the post-simulation obsolescence read-out for one
// (material, batch), aligned index-for-index with the record slice it
// was computed from.
type ObsoleteInfo struct {
	MaterialCode string `json:"material_code"`
	BatchID      string `json:"batch_id"`

	// TurnoverMonths is on-hand amount over monthly shipping cost;
	// nil when shipping cost is zero or unknown.
	TurnoverMonths *float64 `json:"turnover_months,omitempty"`

	// ObsoleteAmount is the ledger's remaining amount at the cutoff
	// month (expiry minus the risk horizon): stock projected to still
	// be on hand when the batch becomes unsellable.
	ObsoleteAmount float64 `json:"obsolete_amount"`

	// EntryDate and EntryQuarter are set only when ObsoleteAmount is
	// positive.
	EntryDate    *time.Time `json:"entry_date,omitempty"`
	EntryQuarter string     `json:"entry_quarter,omitempty"`
}

// ComputeObsolescence derives turnover and at-risk amounts from a
// record set and its monthly ledger. records must be the slice the
// ledger was built from; rows are matched by position, not by
// (material, batch), so repeated batch ids stay distinct.
func ComputeObsolescence(records []Record, ledger *Ledger, cfg SimConfig) []ObsoleteInfo {
	out := make([]ObsoleteInfo, len(records))
	for i, rec := range records {
		info := ObsoleteInfo{MaterialCode: rec.MaterialCode, BatchID: rec.BatchID}
		if rec.MonthlyShippingCost != nil {
			info.TurnoverMonths = safeDiv(rec.Amount, *rec.MonthlyShippingCost)
		}
		if rec.Expiry != nil {
			cutoff := cfg.cutoffMonth(*rec.Expiry)
			if value, ok := ledger.valueAtIndex(i, cutoff); ok {
				info.ObsoleteAmount = value
				if value > 0 {
					entry := rec.Expiry.AddDate(0, -cfg.RiskHorizonMonths, 0)
					info.EntryDate = &entry
					info.EntryQuarter = QuarterLabel(entry)
				}
			}
		}
		out[i] = info
	}
	return out
}

// RowTier distinguishes the three report row kinds.
type RowTier string

const (
	TierTotal    RowTier = "total"
	TierSubtotal RowTier = "subtotal"
	TierDetail   RowTier = "detail"
)

const (
	totalLabel    = "total"
	subtotalLabel = "subtotal"
)

// CategoryQuarterRow is one row of the category/quarter report.
// Quarters is parallel to the owning table's QuarterCols. On detail
// rows the major label is blanked for display, the convention the
// report readers expect; Tier carries the rollup level regardless.
type CategoryQuarterRow struct {
	Tier           RowTier   `json:"tier"`
	MajorCategory  string    `json:"major_category"`
	MinorCategory  string    `json:"minor_category"`
	Cost           float64   `json:"cost"`
	ShippingCost   float64   `json:"shipping_cost"`
	ShippingPrice  float64   `json:"shipping_price"`
	TurnoverMonths float64   `json:"turnover_months"`
	Sum            float64   `json:"sum"`
	Quarters       []float64 `json:"quarters"`
}

// CategoryQuarterTable is the final obsolescence report: grand total,
// then per major category a subtotal row followed by its detail rows.
type CategoryQuarterTable struct {
	QuarterCols []string             `json:"quarter_cols"`
	Rows        []CategoryQuarterRow `json:"rows"`
}

type catKey struct{ major, minor string }

type matAgg struct {
	major, minor string
	cost, qty    float64
	velocity     float64
	costRatio    float64
}

type catAgg struct {
	cost, shipCost, shipPrice float64
	quarters                  map[string]float64
}

// BuildCategoryQuarterTable rolls batch-level obsolescence up to
// (major, minor) categories with quarter pivot columns.
//
// Financial KPIs are re-aggregated at material level first: shipping
// cost and price are per-material figures, and summing them straight
// off batch rows would double-count materials split across batches.
// Turnover is recomputed from the category sums, never averaged from
// row-level turnovers.
func BuildCategoryQuarterTable(records []Record, obs []ObsoleteInfo, startYear, endYear int) *CategoryQuarterTable {
	quarterCols := QuarterLabels(startYear, endYear)
	inRange := make(map[string]int, len(quarterCols))
	for i, q := range quarterCols {
		inRange[q] = i
	}

	// Material-level re-aggregation.
	mats := make(map[string]*matAgg)
	var matOrder []string
	for _, rec := range records {
		agg, seen := mats[rec.MaterialCode]
		if !seen {
			agg = &matAgg{
				major:     rec.MajorCategory,
				minor:     rec.MinorCategory,
				velocity:  rec.Velocity,
				costRatio: rec.CostRatio,
			}
			mats[rec.MaterialCode] = agg
			matOrder = append(matOrder, rec.MaterialCode)
		}
		agg.cost += rec.Amount
		agg.qty += rec.Quantity
	}

	cats := make(map[catKey]*catAgg)
	majors := make(map[string]*catAgg)
	var catOrder []catKey
	var majorOrder []string
	var totalCost, totalShipCost, totalShipPrice float64

	ensureCat := func(m map[catKey]*catAgg, key catKey) *catAgg {
		if _, ok := m[key]; !ok {
			m[key] = &catAgg{quarters: make(map[string]float64)}
			catOrder = append(catOrder, key)
		}
		return m[key]
	}
	ensureMajor := func(major string) *catAgg {
		if _, ok := majors[major]; !ok {
			majors[major] = &catAgg{quarters: make(map[string]float64)}
			majorOrder = append(majorOrder, major)
		}
		return majors[major]
	}

	for _, code := range matOrder {
		agg := mats[code]
		unitCost := 0.0
		if agg.qty != 0 {
			unitCost = agg.cost / agg.qty
		}
		shipCost := unitCost * agg.velocity
		shipPrice := 0.0
		if agg.costRatio != 0 {
			shipPrice = shipCost / agg.costRatio
		}

		cat := ensureCat(cats, catKey{agg.major, agg.minor})
		cat.cost += agg.cost
		cat.shipCost += shipCost
		cat.shipPrice += shipPrice

		maj := ensureMajor(agg.major)
		maj.cost += agg.cost
		maj.shipCost += shipCost
		maj.shipPrice += shipPrice

		totalCost += agg.cost
		totalShipCost += shipCost
		totalShipPrice += shipPrice
	}

	// Quarter pivot from batch-level obsolescence.
	totalQuarters := make(map[string]float64)
	var totalObsolete float64
	for i, rec := range records {
		info := obs[i]
		totalObsolete += info.ObsoleteAmount
		if info.EntryQuarter == "" {
			continue
		}
		if _, ok := inRange[info.EntryQuarter]; !ok {
			continue
		}
		ensureCat(cats, catKey{rec.MajorCategory, rec.MinorCategory}).quarters[info.EntryQuarter] += info.ObsoleteAmount
		ensureMajor(rec.MajorCategory).quarters[info.EntryQuarter] += info.ObsoleteAmount
		totalQuarters[info.EntryQuarter] += info.ObsoleteAmount
	}

	makeRow := func(tier RowTier, major, minor string, agg *catAgg) CategoryQuarterRow {
		row := CategoryQuarterRow{
			Tier:          tier,
			MajorCategory: major,
			MinorCategory: minor,
			Cost:          agg.cost,
			ShippingCost:  agg.shipCost,
			ShippingPrice: agg.shipPrice,
			Quarters:      make([]float64, len(quarterCols)),
		}
		if agg.shipCost != 0 {
			row.TurnoverMonths = agg.cost / agg.shipCost
		}
		for q, v := range agg.quarters {
			row.Quarters[inRange[q]] = v
			row.Sum += v
		}
		return row
	}

	table := &CategoryQuarterTable{QuarterCols: quarterCols}

	totalRow := makeRow(TierTotal, totalLabel, "", &catAgg{
		cost:      totalCost,
		shipCost:  totalShipCost,
		shipPrice: totalShipPrice,
		quarters:  totalQuarters,
	})
	totalRow.Sum = totalObsolete
	table.Rows = append(table.Rows, totalRow)

	for _, major := range majorOrder {
		table.Rows = append(table.Rows, makeRow(TierSubtotal, major, subtotalLabel, majors[major]))
		for _, key := range catOrder {
			if key.major != major {
				continue
			}
			row := makeRow(TierDetail, "", key.minor, cats[key])
			table.Rows = append(table.Rows, row)
		}
	}

	return table
}

// OwnerReportRow is one row of the self/manufacturer cost and price
// report.
type OwnerReportRow struct {
	Tier              RowTier `json:"tier"`
	MajorCategory     string  `json:"major_category"`
	MinorCategory     string  `json:"minor_category"`
	SelfCost          float64 `json:"self_cost"`
	SelfPrice         float64 `json:"self_price"`
	ManufacturerCost  float64 `json:"manufacturer_cost"`
	ManufacturerPrice float64 `json:"manufacturer_price"`
	TotalCost         float64 `json:"total_cost"`
	TotalPrice        float64 `json:"total_price"`
}

// BuildOwnerReport pivots own-stock and manufacturer-held records into
// a (major, minor) cost/sell-price table with the same grand-total and
// subtotal tiers as the quarter report.
func BuildOwnerReport(self, manufacturer []Record) []OwnerReportRow {
	type cell struct{ selfCost, selfPrice, manuCost, manuPrice float64 }
	cells := make(map[catKey]*cell)
	var order []catKey

	add := func(records []Record, manu bool) {
		for _, rec := range records {
			key := catKey{rec.MajorCategory, rec.MinorCategory}
			c, ok := cells[key]
			if !ok {
				c = &cell{}
				cells[key] = c
				order = append(order, key)
			}
			price := 0.0
			if rec.SellPrice != nil {
				price = *rec.SellPrice
			}
			if manu {
				c.manuCost += rec.Amount
				c.manuPrice += price
			} else {
				c.selfCost += rec.Amount
				c.selfPrice += price
			}
		}
	}
	add(self, false)
	add(manufacturer, true)

	var rows []OwnerReportRow
	var total OwnerReportRow
	byMajor := make(map[string][]catKey)
	var majorOrder []string
	for _, key := range order {
		if _, ok := byMajor[key.major]; !ok {
			majorOrder = append(majorOrder, key.major)
		}
		byMajor[key.major] = append(byMajor[key.major], key)
	}

	for _, major := range majorOrder {
		sub := OwnerReportRow{Tier: TierSubtotal, MajorCategory: major, MinorCategory: subtotalLabel}
		var details []OwnerReportRow
		for _, key := range byMajor[major] {
			c := cells[key]
			row := OwnerReportRow{
				Tier:              TierDetail,
				MinorCategory:     key.minor,
				SelfCost:          c.selfCost,
				SelfPrice:         c.selfPrice,
				ManufacturerCost:  c.manuCost,
				ManufacturerPrice: c.manuPrice,
				TotalCost:         c.selfCost + c.manuCost,
				TotalPrice:        c.selfPrice + c.manuPrice,
			}
			details = append(details, row)
			sub.SelfCost += row.SelfCost
			sub.SelfPrice += row.SelfPrice
			sub.ManufacturerCost += row.ManufacturerCost
			sub.ManufacturerPrice += row.ManufacturerPrice
			sub.TotalCost += row.TotalCost
			sub.TotalPrice += row.TotalPrice
		}
		rows = append(rows, sub)
		rows = append(rows, details...)

		total.SelfCost += sub.SelfCost
		total.SelfPrice += sub.SelfPrice
		total.ManufacturerCost += sub.ManufacturerCost
		total.ManufacturerPrice += sub.ManufacturerPrice
		total.TotalCost += sub.TotalCost
		total.TotalPrice += sub.TotalPrice
	}

	total.Tier = TierTotal
	total.MajorCategory = totalLabel
	return append([]OwnerReportRow{total}, rows...)
}
