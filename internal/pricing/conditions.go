package pricing

import (
	"time"

	"github.com/openmedicaid/nadac-mcp/internal/datastore"
)

// NADAC column names used in filter conditions.
const (
	FieldNDC            = "ndc"
	FieldDescription    = "ndc_description"
	FieldPricePerUnit   = "nadac_per_unit"
	FieldClassification = "classification_for_rate_setting"
	FieldEffectiveDate  = "effective_date"
	FieldAsOfDate       = "as_of_date"
)

const dateLayout = "2006-01-02"

// Builder maps each tool's arguments to the ordered condition list its query
// sends upstream. The recency cutoff and clock are injected so tests and
// dataset refreshes never touch the mapping rules. All methods are pure.
type Builder struct {
	recencyCutoff string
	now           func() time.Time
}

// NewBuilder constructs a Builder. A nil clock falls back to time.Now.
func NewBuilder(recencyCutoff string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{recencyCutoff: recencyCutoff, now: now}
}

// DrugSearchArgs are the filters for the current-pricing search.
type DrugSearchArgs struct {
	DrugName string
	NDC      string
}

// DrugSearch emits description-contains and ndc-equals filters for whichever
// arguments are present, always followed by the implicit recency filter.
// With neither argument set the query is still issued; an unfiltered lookup
// returns the latest rows unconditionally.
func (b *Builder) DrugSearch(a DrugSearchArgs) []datastore.FilterCondition {
	conds := make([]datastore.FilterCondition, 0, 3)
	if a.DrugName != "" {
		conds = append(conds, datastore.FilterCondition{
			Property: FieldDescription, Operator: datastore.OpContains, Value: a.DrugName,
		})
	}
	if a.NDC != "" {
		conds = append(conds, datastore.FilterCondition{
			Property: FieldNDC, Operator: datastore.OpEquals, Value: a.NDC,
		})
	}
	return append(conds, b.recencyFilter())
}

// DateRangeArgs bound a lookup to an effective-date window.
type DateRangeArgs struct {
	StartDate string
	EndDate   string
	DrugName  string
}

// DateRange emits the effective_date lower bound before the upper bound,
// plus an optional description filter. Dates pass through as given; the
// remote API is the authority on whether the window itself is sensible.
func (b *Builder) DateRange(a DateRangeArgs) []datastore.FilterCondition {
	conds := []datastore.FilterCondition{
		{Property: FieldEffectiveDate, Operator: datastore.OpGTE, Value: a.StartDate},
		{Property: FieldEffectiveDate, Operator: datastore.OpLTE, Value: a.EndDate},
	}
	if a.DrugName != "" {
		conds = append(conds, datastore.FilterCondition{
			Property: FieldDescription, Operator: datastore.OpContains, Value: a.DrugName,
		})
	}
	return conds
}

// PriceChangeArgs select rows whose price took effect within a trailing
// calendar-day window.
type PriceChangeArgs struct {
	DaysBack     int
	DrugCategory string
}

// PriceChanges computes the cutoff date from the injected clock and emits it
// as an effective_date lower bound, plus an optional classification filter.
func (b *Builder) PriceChanges(a PriceChangeArgs) []datastore.FilterCondition {
	daysBack := a.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	cutoff := b.now().AddDate(0, 0, -daysBack).Format(dateLayout)
	conds := []datastore.FilterCondition{
		{Property: FieldEffectiveDate, Operator: datastore.OpGTE, Value: cutoff},
	}
	if a.DrugCategory != "" {
		conds = append(conds, datastore.FilterCondition{
			Property: FieldClassification, Operator: datastore.OpEquals, Value: a.DrugCategory,
		})
	}
	return conds
}

// StatisticsArgs scope the aggregate working set.
type StatisticsArgs struct {
	Category string
}

// Statistics emits an optional classification filter (omitted for "all")
// followed by the recency filter.
func (b *Builder) Statistics(a StatisticsArgs) []datastore.FilterCondition {
	conds := make([]datastore.FilterCondition, 0, 2)
	if a.Category != "" && a.Category != "all" {
		conds = append(conds, datastore.FilterCondition{
			Property: FieldClassification, Operator: datastore.OpEquals, Value: a.Category,
		})
	}
	return append(conds, b.recencyFilter())
}

// BrandGeneric returns the paired condition lists for a brand-vs-generic
// price comparison of one drug name.
func (b *Builder) BrandGeneric(drugName string) (brand, generic []datastore.FilterCondition) {
	brand = []datastore.FilterCondition{
		{Property: FieldDescription, Operator: datastore.OpContains, Value: drugName},
		{Property: FieldClassification, Operator: datastore.OpEquals, Value: "B"},
		b.recencyFilter(),
	}
	generic = []datastore.FilterCondition{
		{Property: FieldDescription, Operator: datastore.OpContains, Value: drugName},
		{Property: FieldClassification, Operator: datastore.OpEquals, Value: "G"},
		b.recencyFilter(),
	}
	return brand, generic
}

// NDCLookup matches every row for one National Drug Code. No recency filter:
// history lookups need older rows.
func (b *Builder) NDCLookup(ndc string) []datastore.FilterCondition {
	return []datastore.FilterCondition{
		{Property: FieldNDC, Operator: datastore.OpEquals, Value: ndc},
	}
}

func (b *Builder) recencyFilter() datastore.FilterCondition {
	return datastore.FilterCondition{
		Property: FieldAsOfDate, Operator: datastore.OpGTE, Value: b.recencyCutoff,
	}
}
