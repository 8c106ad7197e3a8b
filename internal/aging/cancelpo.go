package aging

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CancelPOConfig parameterizes the manufacturer canceled-PO mapper.
// The source file's headers vary batch to batch, so every field is
// resolved from a candidate list.
type CancelPOConfig struct {
	ProductCodeColumns []string
	ProductNameColumns []string
	QuantityColumns    []string
	AmountColumns      []string

	Variant         VelocityVariant
	ExcludeKeywords []string
	DedupByMaterial bool

	// Applied to every record: canceled-PO exports carry no real
	// expiry data, so these items sit far out unless overridden.
	DefaultExpiry time.Time
}

// DefaultCancelPOConfig returns the canonical column mapping for
// canceled-PO exports.
func DefaultCancelPOConfig() CancelPOConfig {
	return CancelPOConfig{
		ProductCodeColumns: []string{"product_code", "product code", "material", "material_code"},
		ProductNameColumns: []string{"product_name", "item_name", "material_description", "description"},
		QuantityColumns:    []string{"remaining_po", "remaining po", "remaining_quantity", "quantity"},
		AmountColumns:      []string{"amount", "stock_amount", "canceled_amount", "remaining_amount"},
		Variant:            VelocityPlain,
		ExcludeKeywords:    []string{"service fee", "delivery fee"},
		DedupByMaterial:    true,
		DefaultExpiry:      time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// MapCanceledPO maps a canceled purchase-order table held by a
// manufacturing partner into records shaped identically to
// MapInventory's output, so both sources union into one table for
// simulation. Owner is tagged manufacturer.
func (m *Mapper) MapCanceledPO(cancel, cls, rating *Table, cfg CancelPOConfig) (*MapResult, error) {
	codeCol, err := resolveColumn(cancel, "canceled PO", "product code", cfg.ProductCodeColumns)
	if err != nil {
		return nil, err
	}
	nameCol, err := resolveColumn(cancel, "canceled PO", "product name", cfg.ProductNameColumns)
	if err != nil {
		return nil, err
	}
	qtyCol, err := resolveColumn(cancel, "canceled PO", "remaining PO quantity", cfg.QuantityColumns)
	if err != nil {
		return nil, err
	}
	amtCol, err := resolveColumn(cancel, "canceled PO", "amount", cfg.AmountColumns)
	if err != nil {
		return nil, err
	}

	classes, err := m.classIndex(cls)
	if err != nil {
		return nil, err
	}
	ratingCfg := m.cfg
	ratingCfg.Variant = cfg.Variant
	velocities, err := (&Mapper{cfg: ratingCfg}).ratingIndex(rating)
	if err != nil {
		return nil, err
	}

	result := &MapResult{}
	result.Quality.InputRows = len(cancel.Rows)

	for _, row := range cancel.Rows {
		desc := strings.TrimSpace(row[nameCol])
		if matchesKeyword(desc, cfg.ExcludeKeywords) {
			result.Quality.ExcludedKeyword++
			continue
		}

		rec := Record{
			MaterialCode:  NormalizeCode(row[codeCol]),
			Description:   desc,
			Owner:         OwnerManufacturer,
			MajorCategory: Unclassified,
			MinorCategory: Unclassified,
		}

		var ok bool
		if rec.Quantity, ok = parseFloat(row[qtyCol]); !ok && strings.TrimSpace(row[qtyCol]) != "" {
			result.Quality.UnparsableNumber++
		}
		if rec.Amount, ok = parseFloat(row[amtCol]); !ok && strings.TrimSpace(row[amtCol]) != "" {
			result.Quality.UnparsableNumber++
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

	if cfg.DedupByMaterial {
		result.Records = dedupByMaterial(result.Records)
	}

	expiry := cfg.DefaultExpiry
	for i := range result.Records {
		result.Records[i].Expiry = cloneTime(&expiry)
		applyBusinessRules(&result.Records[i], nil)
	}

	result.Quality.OutputRows = len(result.Records)
	log.Debug().
		Int("input_rows", result.Quality.InputRows).
		Int("output_rows", result.Quality.OutputRows).
		Msg("canceled PO mapping completed")

	return result, nil
}
