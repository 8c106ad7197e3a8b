package aging

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// VelocityVariant selects which sales-rating column feeds the
// depletion rate. The uplifted variant models a promotional 38%
// sell-through boost; both run over the same mapper, never duplicated
// logic.
type VelocityVariant string

const (
	VelocityPlain    VelocityVariant = "plain"
	VelocityUplifted VelocityVariant = "x138"
)

// MapperConfig parameterizes the master-data mapper. Zero value is not
// usable; start from DefaultMapperConfig.
type MapperConfig struct {
	// Keywords excluded from inventory by description match. These
	// rows are service lines, not stock-keeping items.
	ExcludeKeywords []string

	Variant         VelocityVariant
	DedupByMaterial bool

	// When the chosen velocity is zero, push the record's expiry to
	// this sentinel so it never enters the risk zone while unsold.
	// Nil disables the rule.
	ZeroVelocityExpiry *time.Time

	// Seasonal material codes, restricted to SeasonMonths during
	// simulation. Raw values; normalized internally.
	SeasonCodes []string

	InventoryCodeColumns   []string
	DescriptionColumns     []string
	BatchColumns           []string
	QuantityColumns        []string
	AmountColumns          []string
	ExpiryColumns          []string
	ClassificationCode     []string
	MajorCategoryColumn    string
	MinorCategoryColumn    string
	CostRatioColumn        string
	RatingCodeColumns      []string
	VelocityColumn         string
	VelocityUpliftedColumn string
}

// DefaultMapperConfig returns the canonical column mapping for the
// extracted source tables.
func DefaultMapperConfig() MapperConfig {
	sentinel := time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)
	return MapperConfig{
		ExcludeKeywords:        []string{"service fee", "delivery fee"},
		Variant:                VelocityPlain,
		ZeroVelocityExpiry:     &sentinel,
		InventoryCodeColumns:   []string{"material", "material_code", "material code"},
		DescriptionColumns:     []string{"material_description", "material description", "description", "item_name"},
		BatchColumns:           []string{"batch", "batch_id", "lot"},
		QuantityColumns:        []string{"period_end_quantity", "stock_quantity", "quantity", "qty"},
		AmountColumns:          []string{"period_end_amount", "stock_amount", "amount"},
		ExpiryColumns:          []string{"expiry_date", "expiry date", "expiry", "shelf_life_date"},
		ClassificationCode:     []string{"material_code", "material", "material code"},
		MajorCategoryColumn:    "major_category",
		MinorCategoryColumn:    "minor_category",
		CostRatioColumn:        "cost_ratio",
		RatingCodeColumns:      []string{"material", "material_code"},
		VelocityColumn:         "sales_velocity",
		VelocityUpliftedColumn: "sales_velocity_x138",
	}
}

func (c MapperConfig) velocityColumn() string {
	if c.Variant == VelocityUplifted {
		return c.VelocityUpliftedColumn
	}
	return c.VelocityColumn
}

type classEntry struct {
	major, minor string
	costRatio    float64
	ratioOK      bool
}

// Mapper joins raw inventory rows to the classification and
// sales-rating reference tables and derives the financial columns.
type Mapper struct {
	cfg MapperConfig
}

func NewMapper(cfg MapperConfig) *Mapper {
	return &Mapper{cfg: cfg}
}

// MapInventory produces one Record per surviving inventory row. Rows
// are never dropped for data-quality reasons; bad cells degrade to
// zero/unclassified/no-expiry and are counted in the result's
// QualityReport. Only the excluded-keyword filter removes rows, and
// that removal is counted too.
func (m *Mapper) MapInventory(inv, cls, rating *Table) (*MapResult, error) {
	codeCol, err := resolveColumn(inv, "inventory", "material code", m.cfg.InventoryCodeColumns)
	if err != nil {
		return nil, err
	}
	qtyCol, err := resolveColumn(inv, "inventory", "quantity", m.cfg.QuantityColumns)
	if err != nil {
		return nil, err
	}
	amtCol, err := resolveColumn(inv, "inventory", "amount", m.cfg.AmountColumns)
	if err != nil {
		return nil, err
	}
	// FEFO needs a batch identity per row; a table without one must
	// fail here, not collapse every batch onto a blank id downstream.
	batchCol, err := resolveColumn(inv, "inventory", "batch", m.cfg.BatchColumns)
	if err != nil {
		return nil, err
	}
	descCol := pickColumn(inv, m.cfg.DescriptionColumns)
	expiryCol := pickColumn(inv, m.cfg.ExpiryColumns)

	classes, err := m.classIndex(cls)
	if err != nil {
		return nil, err
	}
	velocities, err := m.ratingIndex(rating)
	if err != nil {
		return nil, err
	}

	seasons := make(map[string]bool, len(m.cfg.SeasonCodes))
	for _, code := range m.cfg.SeasonCodes {
		seasons[NormalizeCode(code)] = true
	}

	result := &MapResult{}
	result.Quality.InputRows = len(inv.Rows)

	for _, row := range inv.Rows {
		desc := ""
		if descCol != "" {
			desc = strings.TrimSpace(row[descCol])
		}
		if matchesKeyword(desc, m.cfg.ExcludeKeywords) {
			result.Quality.ExcludedKeyword++
			continue
		}

		rec := Record{
			MaterialCode:  NormalizeCode(row[codeCol]),
			Description:   desc,
			Owner:         OwnerSelf,
			MajorCategory: Unclassified,
			MinorCategory: Unclassified,
		}
		rec.BatchID = strings.TrimSpace(row[batchCol])
		rec.SeasonRestricted = seasons[rec.MaterialCode]

		var ok bool
		if rec.Quantity, ok = parseFloat(row[qtyCol]); !ok && strings.TrimSpace(row[qtyCol]) != "" {
			result.Quality.UnparsableNumber++
		}
		if rec.Amount, ok = parseFloat(row[amtCol]); !ok && strings.TrimSpace(row[amtCol]) != "" {
			result.Quality.UnparsableNumber++
		}
		if expiryCol != "" {
			rec.Expiry = parseDate(row[expiryCol])
		}
		if rec.Expiry == nil {
			result.Quality.MissingExpiry++
		}

		if entry, found := classes[rec.MaterialCode]; found {
			rec.MajorCategory = entry.major
			rec.MinorCategory = entry.minor
			if entry.ratioOK {
				rec.CostRatio = entry.costRatio
			}
		} else {
			result.Quality.Unclassified++
		}

		if v, found := velocities[rec.MaterialCode]; found {
			rec.Velocity = v
		} else {
			result.Quality.Unrated++
		}

		result.Records = append(result.Records, rec)
	}

	if m.cfg.DedupByMaterial {
		result.Records = dedupByMaterial(result.Records)
	}

	for i := range result.Records {
		applyBusinessRules(&result.Records[i], m.cfg.ZeroVelocityExpiry)
	}

	result.Quality.OutputRows = len(result.Records)
	log.Debug().
		Int("input_rows", result.Quality.InputRows).
		Int("output_rows", result.Quality.OutputRows).
		Int("excluded", result.Quality.ExcludedKeyword).
		Int("unclassified", result.Quality.Unclassified).
		Msg("inventory mapping completed")

	return result, nil
}

func matchesKeyword(desc string, keywords []string) bool {
	if desc == "" {
		return false
	}
	lower := strings.ToLower(desc)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// classIndex builds the normalized-key lookup for the classification
// table. The category and cost-ratio columns are required; a typo in a
// source header must fail here, not resolve to all-unclassified.
func (m *Mapper) classIndex(cls *Table) (map[string]classEntry, error) {
	codeCol, err := resolveColumn(cls, "classification", "material code", m.cfg.ClassificationCode)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{m.cfg.MajorCategoryColumn, m.cfg.MinorCategoryColumn, m.cfg.CostRatioColumn} {
		if !cls.HasColumn(required) {
			return nil, &ColumnError{
				Field:      required,
				Table:      "classification",
				Candidates: []string{required},
				Columns:    append([]string(nil), cls.Columns...),
			}
		}
	}

	index := make(map[string]classEntry, len(cls.Rows))
	for _, row := range cls.Rows {
		key := NormalizeCode(row[codeCol])
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists {
			continue // first occurrence wins, like the reference tables expect
		}
		entry := classEntry{
			major: strings.TrimSpace(row[m.cfg.MajorCategoryColumn]),
			minor: strings.TrimSpace(row[m.cfg.MinorCategoryColumn]),
		}
		if entry.major == "" {
			entry.major = Unclassified
		}
		if entry.minor == "" {
			entry.minor = Unclassified
		}
		entry.costRatio, entry.ratioOK = parseFloat(row[m.cfg.CostRatioColumn])
		index[key] = entry
	}
	return index, nil
}

// ratingIndex builds the normalized-key velocity lookup for the chosen
// variant column.
func (m *Mapper) ratingIndex(rating *Table) (map[string]float64, error) {
	codeCol, err := resolveColumn(rating, "sales rating", "material code", m.cfg.RatingCodeColumns)
	if err != nil {
		return nil, err
	}
	velCol := m.cfg.velocityColumn()
	if !rating.HasColumn(velCol) {
		return nil, &ColumnError{
			Field:      "sales velocity",
			Table:      "sales rating",
			Candidates: []string{velCol},
			Columns:    append([]string(nil), rating.Columns...),
		}
	}

	index := make(map[string]float64, len(rating.Rows))
	for _, row := range rating.Rows {
		key := NormalizeCode(row[codeCol])
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		v, _ := parseFloat(row[velCol]) // non-numeric velocity degrades to zero
		index[key] = v
	}
	return index, nil
}

// dedupByMaterial collapses rows sharing a material code into one,
// summing quantity and amount and keeping the first value of every
// other field. Input order is preserved.
func dedupByMaterial(records []Record) []Record {
	byCode := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if i, seen := byCode[rec.MaterialCode]; seen {
			out[i].Quantity += rec.Quantity
			out[i].Amount += rec.Amount
			continue
		}
		byCode[rec.MaterialCode] = len(out)
		out = append(out, rec)
	}
	return out
}

// applyBusinessRules finishes a record: the zero-velocity expiry
// sentinel, then the derived financial columns with zero-divisor
// guards.
func applyBusinessRules(rec *Record, zeroVelocityExpiry *time.Time) {
	if zeroVelocityExpiry != nil && rec.Velocity == 0 {
		sentinel := *zeroVelocityExpiry
		rec.Expiry = &sentinel
	}

	rec.UnitCost = safeDiv(rec.Amount, rec.Quantity)
	if rec.UnitCost != nil {
		rec.MonthlyShippingCost = floatPtr(*rec.UnitCost * rec.Velocity)
	}
	if rec.MonthlyShippingCost != nil {
		rec.ShippingSellPrice = safeDiv(*rec.MonthlyShippingCost, rec.CostRatio)
	}
	rec.SellPrice = safeDiv(rec.Amount, rec.CostRatio)
}
