package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openmedicaid/nadac-mcp/internal/datastore"
)

// Statistic metric identifiers exposed by the statistics tool.
const (
	MetricPriceDistribution = "price_distribution"
	MetricDrugCounts        = "drug_counts"
	MetricRecentUpdates     = "recent_updates"
)

// recentWindow is the trailing window used by the recent_updates metric,
// measured from invocation time.
const recentWindow = 30 * 24 * time.Hour

// PriceDistribution summarizes per-unit prices across the fetched sample.
// The numeric fields are nil when no row carried a parseable price; callers
// must treat that as "no data", not as an error.
type PriceDistribution struct {
	Count   int      `json:"count"`
	Average *float64 `json:"average"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Median  *float64 `json:"median"`
}

// PriceDistributionOf parses nadac_per_unit for every row, silently dropping
// rows that do not parse, and computes count, mean, min, max, and median.
// The median of an even-length sample is the upper of the two middle values
// (sorted ascending, element at n/2), not the averaged midpoint.
func PriceDistributionOf(rows []datastore.Row) PriceDistribution {
	prices := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v, ok := row.Float(FieldPricePerUnit); ok {
			prices = append(prices, v)
		}
	}

	out := PriceDistribution{Count: len(prices)}
	if len(prices) == 0 {
		return out
	}

	sort.Float64s(prices)
	sum := 0.0
	for _, v := range prices {
		sum += v
	}
	avg := sum / float64(len(prices))
	min := prices[0]
	max := prices[len(prices)-1]
	median := prices[len(prices)/2]

	out.Average = &avg
	out.Min = &min
	out.Max = &max
	out.Median = &median
	return out
}

// DrugCounts tallies rows by classification. Rows with a classification
// other than B or G count toward the total only.
type DrugCounts struct {
	TotalDrugs   int `json:"total_drugs"`
	BrandDrugs   int `json:"brand_drugs"`
	GenericDrugs int `json:"generic_drugs"`
}

// DrugCountsOf counts total, brand, and generic rows in the sample.
func DrugCountsOf(rows []datastore.Row) DrugCounts {
	out := DrugCounts{TotalDrugs: len(rows)}
	for _, row := range rows {
		switch row.Str(FieldClassification) {
		case "B":
			out.BrandDrugs++
		case "G":
			out.GenericDrugs++
		}
	}
	return out
}

// RecentUpdates reports how much of the sample took effect within the last
// 30 days. PercentageOfTotal is "NaN" when the sample is empty; that is the
// "no data" signal, not an error.
type RecentUpdates struct {
	TotalRecentUpdates int    `json:"total_recent_updates"`
	PercentageOfTotal  string `json:"percentage_of_total"`
}

// RecentUpdatesOf counts rows whose effective_date falls within the trailing
// 30-day window ending at now.
func RecentUpdatesOf(rows []datastore.Row, now time.Time) RecentUpdates {
	cutoff := now.Add(-recentWindow)
	recent := 0
	for _, row := range rows {
		t, ok := parseDate(row.Str(FieldEffectiveDate))
		if ok && !t.Before(cutoff) {
			recent++
		}
	}
	pct := float64(recent) / float64(len(rows)) * 100
	return RecentUpdates{
		TotalRecentUpdates: recent,
		PercentageOfTotal:  fmt.Sprintf("%.2f", pct),
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
