// internal/domain/models.go
package domain

import "time"

// Snapshot represents one ingested month of mapped inventory data.
type Snapshot struct {
	ID        int64     `json:"id" db:"id"`
	Year      int       `json:"year" db:"year"`
	Month     int       `json:"month" db:"month"`
	Source    string    `json:"source" db:"source"`
	RowCount  int       `json:"row_count" db:"row_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SimulationRun tracks a full depletion run over one snapshot.
type SimulationRun struct {
	ID          int64      `json:"id" db:"id"`
	SnapshotID  int64      `json:"snapshot_id" db:"snapshot_id"`
	Variant     string     `json:"variant" db:"variant"`
	Scope       string     `json:"scope" db:"scope"`
	Status      string     `json:"status" db:"status"`
	BatchCount  int        `json:"batch_count" db:"batch_count"`
	Error       string     `json:"error,omitempty" db:"error"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run scopes: combined keeps self and manufacturer stock in one FEFO
// queue, self excludes canceled-PO stock.
const (
	ScopeCombined = "combined"
	ScopeSelf     = "self"
)

// BatchOutcome is the persisted per-batch result of a depletion run.
type BatchOutcome struct {
	ID               int64      `json:"id" db:"id"`
	RunID            int64      `json:"run_id" db:"run_id"`
	MaterialCode     string     `json:"material_code" db:"material_code"`
	BatchID          string     `json:"batch_id" db:"batch_id"`
	Owner            string     `json:"owner" db:"owner"`
	InitialQuantity  float64    `json:"initial_quantity" db:"initial_quantity"`
	QuantitySold     float64    `json:"quantity_sold" db:"quantity_sold"`
	Remaining        float64    `json:"remaining" db:"remaining"`
	DaysSold         int        `json:"days_sold" db:"days_sold"`
	StopReason       string     `json:"stop_reason" db:"stop_reason"`
	RiskEntryDate    *time.Time `json:"risk_entry_date,omitempty" db:"risk_entry_date"`
	SellEnd          *time.Time `json:"sell_end,omitempty" db:"sell_end"`
	ObsoleteAmount   float64    `json:"obsolete_amount" db:"obsolete_amount"`
	EntryQuarter     string     `json:"entry_quarter,omitempty" db:"entry_quarter"`
	TurnoverMonths   *float64   `json:"turnover_months,omitempty" db:"turnover_months"`
	MajorCategory    string     `json:"major_category" db:"major_category"`
	MinorCategory    string     `json:"minor_category" db:"minor_category"`
}

// ReportFilter narrows report queries.
type ReportFilter struct {
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	Variant       string   `json:"variant"`
	Scope         string   `json:"scope"`
	MajorCategory string   `json:"major_category"`
	Owners        []string `json:"owners"`
	Page          int      `json:"page"`
	PageSize      int      `json:"page_size"`
}

// ReportPeriod is one (year, month) for which reports exist.
type ReportPeriod struct {
	Year  int `json:"year" db:"year"`
	Month int `json:"month" db:"month"`
}
