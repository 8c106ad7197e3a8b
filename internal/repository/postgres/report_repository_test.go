package postgres

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopstack/inventory-backend/internal/domain"
)

func TestOutcomeConditionsEmptyFilter(t *testing.T) {
	conditions, args := outcomeConditions(domain.ReportFilter{})
	assert.Empty(t, conditions)
	assert.Empty(t, args)
}

func TestOutcomeConditionsPlaceholderNumbering(t *testing.T) {
	filter := domain.ReportFilter{
		Year:    2026,
		Month:   3,
		Variant: "plain",
		Scope:   domain.ScopeCombined,
	}

	conditions, args := outcomeConditions(filter)
	require.Len(t, conditions, 4)
	require.Len(t, args, 4)

	assert.Equal(t, "s.year = $1", conditions[0])
	assert.Equal(t, "s.month = $2", conditions[1])
	assert.Equal(t, "sr.variant = $3", conditions[2])
	assert.Equal(t, "sr.scope = $4", conditions[3])
}

func TestOutcomeConditionsOwnersUsesArrayBinding(t *testing.T) {
	filter := domain.ReportFilter{Owners: []string{"self", "manufacturer"}}

	conditions, args := outcomeConditions(filter)
	require.Len(t, conditions, 1)
	require.Len(t, args, 1)

	assert.Equal(t, "bo.owner = ANY($1::text[])", conditions[0])
	// A bare []string does not bind through lib/pq.
	assert.IsType(t, pq.Array([]string{}), args[0])
}
