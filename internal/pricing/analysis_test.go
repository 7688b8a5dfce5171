package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmedicaid/nadac-mcp/internal/datastore"
)

func TestSortByEffectiveDateDesc(t *testing.T) {
	rows := []datastore.Row{
		{FieldEffectiveDate: "2025-03-01", FieldPricePerUnit: "2.00"},
		{FieldEffectiveDate: "bogus", FieldPricePerUnit: "9.99"},
		{FieldEffectiveDate: "2025-07-01", FieldPricePerUnit: "3.00"},
		{FieldEffectiveDate: "2025-01-01", FieldPricePerUnit: "1.00"},
	}

	SortByEffectiveDateDesc(rows)

	require.Equal(t, "2025-07-01", rows[0].Str(FieldEffectiveDate))
	require.Equal(t, "2025-03-01", rows[1].Str(FieldEffectiveDate))
	require.Equal(t, "2025-01-01", rows[2].Str(FieldEffectiveDate))
	// Undated rows sink to the end.
	require.Equal(t, "bogus", rows[3].Str(FieldEffectiveDate))
}

func TestPriceTrend_NewestFirst(t *testing.T) {
	rows := []datastore.Row{
		{FieldPricePerUnit: "3.00"}, // newest
		{FieldPricePerUnit: "2.50"},
		{FieldPricePerUnit: "2.00"}, // oldest
	}

	change, ok := PriceTrend(rows)
	require.True(t, ok)
	require.InDelta(t, 50.0, change, 1e-9)
}

func TestPriceTrend_RequiresTwoParseableBoundaries(t *testing.T) {
	_, ok := PriceTrend([]datastore.Row{{FieldPricePerUnit: "3.00"}})
	require.False(t, ok)

	_, ok = PriceTrend([]datastore.Row{
		{FieldPricePerUnit: "3.00"},
		{FieldPricePerUnit: "n/a"},
	})
	require.False(t, ok)

	// Oldest price of zero cannot anchor a percent change.
	_, ok = PriceTrend([]datastore.Row{
		{FieldPricePerUnit: "3.00"},
		{FieldPricePerUnit: "0"},
	})
	require.False(t, ok)
}

func TestAverageSavings(t *testing.T) {
	brand := []datastore.Row{
		{FieldPricePerUnit: "10.00"},
		{FieldPricePerUnit: "6.00"},
	}
	generic := []datastore.Row{
		{FieldPricePerUnit: "2.00"},
		{FieldPricePerUnit: "2.00"},
	}

	savings, ok := AverageSavings(brand, generic)
	require.True(t, ok)
	require.InDelta(t, 75.0, savings, 1e-9) // brand avg 8.00, generic avg 2.00

	_, ok = AverageSavings(nil, generic)
	require.False(t, ok)

	_, ok = AverageSavings(brand, nil)
	require.False(t, ok)
}
