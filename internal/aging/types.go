package aging

import (
	"fmt"
	"time"
)

// Owner tags which source pipeline produced a record.
type Owner string

const (
	OwnerSelf         Owner = "self"
	OwnerManufacturer Owner = "manufacturer"
)

// Unclassified is the sentinel category for records with no
// classification match. Categories are never left empty.
const Unclassified = "unclassified"

// Record is one physical batch of a material at a point in time, with
// classification and derived financial columns attached. Derived
// ratios are pointers: nil means the divisor was zero or missing, not
// that the value is zero.
type Record struct {
	MaterialCode        string
	Description         string
	BatchID             string
	Quantity            float64
	Amount              float64
	Expiry              *time.Time
	MajorCategory       string
	MinorCategory       string
	CostRatio           float64
	Velocity            float64
	UnitCost            *float64
	MonthlyShippingCost *float64
	ShippingSellPrice   *float64
	SellPrice           *float64
	Owner               Owner
	SeasonRestricted    bool
}

// QualityReport counts rows that were coerced rather than dropped
// during mapping. Degraded rows stay in the output; these counts let a
// caller surface a data-quality summary instead of a stack trace.
type QualityReport struct {
	InputRows        int `json:"input_rows"`
	OutputRows       int `json:"output_rows"`
	ExcludedKeyword  int `json:"excluded_keyword"`
	MissingExpiry    int `json:"missing_expiry"`
	UnparsableNumber int `json:"unparsable_number"`
	Unclassified     int `json:"unclassified"`
	Unrated          int `json:"unrated"`
}

// MapResult is a mapper's output: the mapped records plus the quality
// counters accumulated while producing them.
type MapResult struct {
	Records []Record
	Quality QualityReport
}

// CloneRecords deep-copies a record slice. The mapper's output is
// input-only for the simulator; every simulation variant must run on
// its own copy.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	for i := range out {
		out[i].Expiry = cloneTime(records[i].Expiry)
		out[i].UnitCost = cloneFloat(records[i].UnitCost)
		out[i].MonthlyShippingCost = cloneFloat(records[i].MonthlyShippingCost)
		out[i].ShippingSellPrice = cloneFloat(records[i].ShippingSellPrice)
		out[i].SellPrice = cloneFloat(records[i].SellPrice)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func floatPtr(v float64) *float64 { return &v }

// safeDiv returns a/b, or nil when the divisor is zero. Derived ratios
// must never surface Inf or NaN.
func safeDiv(a, b float64) *float64 {
	if b == 0 {
		return nil
	}
	return floatPtr(a / b)
}

// Month identifies a calendar month in the simulation range.
type Month struct {
	Year  int
	Month int
}

// MonthOf truncates a date to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == 12 {
		return Month{Year: m.Year + 1, Month: 1}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// After reports whether m is strictly later than other.
func (m Month) After(other Month) bool {
	return m.Year > other.Year || (m.Year == other.Year && m.Month > other.Month)
}

// Label renders the month column label, e.g. "26_3" for March 2026.
func (m Month) Label() string {
	return fmt.Sprintf("%02d_%d", m.Year%100, m.Month)
}

// MonthRange expands [start, end] into an inclusive ordered list.
func MonthRange(start, end Month) []Month {
	var months []Month
	for m := start; !m.After(end); m = m.Next() {
		months = append(months, m)
	}
	return months
}
