package repository

import (
	"testing"

	"backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestPropagateSelectedQuoteOverlaysItem(t *testing.T) {
	items := []models.DocumentItem{
		{ID: 1, UnitPrice: floatPtr(100)},
	}
	quotes := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80, LeadTimeDays: 14, Selected: true},
	}

	out := PropagateSelectedQuotes(items, quotes)

	require.Len(t, out, 1)
	assert.Equal(t, float64(80), out[0].EffectivePrice)
	assert.Equal(t, 14, out[0].EffectiveLeadTime)
}

func TestPropagateFallsBackToDeclaredPrice(t *testing.T) {
	items := []models.DocumentItem{
		{ID: 1, UnitPrice: floatPtr(100)},
		{ID: 2},
	}
	quotes := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80, LeadTimeDays: 14, Selected: false},
	}

	out := PropagateSelectedQuotes(items, quotes)

	// unselected quote does not apply
	assert.Equal(t, float64(100), out[0].EffectivePrice)
	assert.Equal(t, 0, out[0].EffectiveLeadTime)
	// no declared price either
	assert.Equal(t, float64(0), out[1].EffectivePrice)
}

func TestPropagateFirstSelectedQuoteWins(t *testing.T) {
	items := []models.DocumentItem{{ID: 1}}
	quotes := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80, LeadTimeDays: 10, Selected: true},
		{ItemID: 1, VendorID: 10, UnitPrice: 70, LeadTimeDays: 5, Selected: true},
	}

	out := PropagateSelectedQuotes(items, quotes)

	assert.Equal(t, float64(80), out[0].EffectivePrice)
	assert.Equal(t, 10, out[0].EffectiveLeadTime)
}

func TestPropagateClearsStaleEffectiveValues(t *testing.T) {
	// The item carries effective values from a quote that has since
	// been deselected; re-running propagation must reset them.
	items := []models.DocumentItem{
		{ID: 1, UnitPrice: floatPtr(100), EffectivePrice: 80, EffectiveLeadTime: 14},
	}

	out := PropagateSelectedQuotes(items, nil)

	assert.Equal(t, float64(100), out[0].EffectivePrice)
	assert.Equal(t, 0, out[0].EffectiveLeadTime)
}

func TestPropagateDoesNotMutateInput(t *testing.T) {
	items := []models.DocumentItem{{ID: 1, UnitPrice: floatPtr(100)}}
	quotes := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80, LeadTimeDays: 14, Selected: true},
	}

	_ = PropagateSelectedQuotes(items, quotes)

	assert.Equal(t, float64(0), items[0].EffectivePrice)
	assert.Equal(t, 0, items[0].EffectiveLeadTime)
}

func TestPropagateIgnoresQuotesForOtherItems(t *testing.T) {
	items := []models.DocumentItem{{ID: 2}}
	quotes := []models.VendorQuote{
		{ItemID: 1, VendorID: 9, UnitPrice: 80, Selected: true},
	}

	out := PropagateSelectedQuotes(items, quotes)

	assert.Equal(t, float64(0), out[0].EffectivePrice)
}
