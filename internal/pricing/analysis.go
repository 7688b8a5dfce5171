package pricing

import (
	"sort"

	"github.com/openmedicaid/nadac-mcp/internal/datastore"
)

// SortByEffectiveDateDesc orders rows newest-first in place. Rows with an
// unparseable effective_date sort after dated rows; ties keep their fetched
// order. The download endpoint has no server-side ordering, so history and
// single-NDC lookups rely on this.
func SortByEffectiveDateDesc(rows []datastore.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, iok := parseDate(rows[i].Str(FieldEffectiveDate))
		tj, jok := parseDate(rows[j].Str(FieldEffectiveDate))
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}

// PriceTrend reports the percent change from the oldest to the newest row of
// a newest-first history. The second return is false when fewer than two
// rows exist, either boundary price is unparseable, or the oldest price is
// not positive.
func PriceTrend(rows []datastore.Row) (float64, bool) {
	if len(rows) < 2 {
		return 0, false
	}
	newest, ok := rows[0].Float(FieldPricePerUnit)
	if !ok {
		return 0, false
	}
	oldest, ok := rows[len(rows)-1].Float(FieldPricePerUnit)
	if !ok || oldest <= 0 {
		return 0, false
	}
	return (newest - oldest) / oldest * 100, true
}

// AverageSavings computes the mean-price saving of generics relative to
// brands, as a percent of the brand average. Unparseable prices are skipped.
// The second return is false when either side has no parseable price or the
// brand average is not positive.
func AverageSavings(brand, generic []datastore.Row) (float64, bool) {
	avgBrand, ok := meanPrice(brand)
	if !ok || avgBrand <= 0 {
		return 0, false
	}
	avgGeneric, ok := meanPrice(generic)
	if !ok {
		return 0, false
	}
	return (avgBrand - avgGeneric) / avgBrand * 100, true
}

func meanPrice(rows []datastore.Row) (float64, bool) {
	sum, n := 0.0, 0
	for _, row := range rows {
		if v, ok := row.Float(FieldPricePerUnit); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
