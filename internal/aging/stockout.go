package aging

import "sort"

// NoVelocityDaysOfStock is the sentinel days-of-stock figure for items
// with zero velocity: without sales the stock never runs out.
const NoVelocityDaysOfStock = 999

// StockoutGrade classifies how soon an item runs dry at its current
// sell-through.
type StockoutGrade string

const (
	GradeDanger  StockoutGrade = "danger"  // under 30 days of cover
	GradeWarning StockoutGrade = "warning" // under 60 days of cover
	GradeOK      StockoutGrade = "ok"
)

// StockoutRow is the per-material days-of-stock read-out.
type StockoutRow struct {
	MaterialCode string        `json:"material_code"`
	Description  string        `json:"description"`
	Quantity     float64       `json:"quantity"`
	Velocity     float64       `json:"velocity"`
	DaysOfStock  float64       `json:"days_of_stock"`
	Grade        StockoutGrade `json:"grade"`
}

// SummarizeStockout computes days of stock per material: quantity over
// daily velocity (monthly velocity / 30). Batches of a material are
// pooled. Rows come back sorted ascending by days of stock so the
// items closest to running out lead.
func SummarizeStockout(records []Record) []StockoutRow {
	type acc struct {
		desc     string
		qty      float64
		velocity float64
	}
	byCode := make(map[string]*acc)
	var order []string
	for _, rec := range records {
		a, ok := byCode[rec.MaterialCode]
		if !ok {
			a = &acc{desc: rec.Description, velocity: rec.Velocity}
			byCode[rec.MaterialCode] = a
			order = append(order, rec.MaterialCode)
		}
		a.qty += rec.Quantity
	}

	rows := make([]StockoutRow, 0, len(order))
	for _, code := range order {
		a := byCode[code]
		row := StockoutRow{
			MaterialCode: code,
			Description:  a.desc,
			Quantity:     a.qty,
			Velocity:     a.velocity,
			DaysOfStock:  NoVelocityDaysOfStock,
			Grade:        GradeOK,
		}
		if a.velocity > 0 {
			row.DaysOfStock = a.qty / (a.velocity / 30)
		}
		switch {
		case row.DaysOfStock < 30:
			row.Grade = GradeDanger
		case row.DaysOfStock < 60:
			row.Grade = GradeWarning
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DaysOfStock < rows[j].DaysOfStock
	})
	return rows
}
