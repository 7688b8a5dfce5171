package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/openmedicaid/nadac-mcp/config"
	"github.com/openmedicaid/nadac-mcp/internal/datastore"
	"github.com/openmedicaid/nadac-mcp/internal/pricing"
	"github.com/openmedicaid/nadac-mcp/pkg/mcperr"
	"github.com/openmedicaid/nadac-mcp/pkg/validation"
)

// Per-tool default page sizes.
const (
	defaultSearchLimit    = 10
	defaultDateRangeLimit = 20
	defaultChangesLimit   = 15
	defaultCompareLimit   = 10
	defaultHistoryLimit   = 20

	// search_by_ndc fetches a small page and picks the newest row, since
	// the download endpoint offers no server-side ordering.
	ndcDetailFetchLimit = 25
)

// Querier is the slice of the datastore client the handlers need; tests
// substitute a stub.
type Querier interface {
	QueryRows(ctx context.Context, req datastore.QueryRequest) ([]datastore.Row, error)
	QueryCSV(ctx context.Context, req datastore.QueryRequest) (string, error)
}

// Deps carries the collaborators shared by every tool handler.
type Deps struct {
	Client  Querier
	Builder *pricing.Builder
	Now     func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// --- Inputs ---

// DrugPricingInput filters the current-pricing search. Both drug_name and
// ndc may be omitted; the query then returns the latest rows unfiltered.
type DrugPricingInput struct {
	DrugName string `json:"drug_name,omitempty" validate:"omitempty,max=200"`
	NDC      string `json:"ndc,omitempty" validate:"omitempty,ndc"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=json csv"`
}

// DateRangeInput bounds a lookup to an effective-date window. Window
// ordering is not checked locally; the datastore rejects nonsense windows.
type DateRangeInput struct {
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate"`
	DrugName  string `json:"drug_name,omitempty" validate:"omitempty,max=200"`
	Limit     int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// PriceChangesInput selects rows updated within a trailing window.
// MinChangePercent is accepted for schema compatibility but is not applied
// to the query or the result.
type PriceChangesInput struct {
	DaysBack         int     `json:"days_back,omitempty" validate:"omitempty,min=1,max=365"`
	MinChangePercent float64 `json:"min_change_percent,omitempty"`
	DrugCategory     string  `json:"drug_category,omitempty" validate:"omitempty,oneof=B G"`
	Limit            int     `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// StatisticsInput selects one aggregate view over a fixed-size sample.
type StatisticsInput struct {
	Metric   string `json:"metric" validate:"required,oneof=price_distribution drug_counts recent_updates"`
	Category string `json:"category,omitempty" validate:"omitempty,oneof=B G all"`
}

// CompareInput names the drug for a brand-vs-generic comparison.
type CompareInput struct {
	DrugName string `json:"drug_name" validate:"required,max=200"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// HistoryInput identifies the NDC whose price history is requested.
type HistoryInput struct {
	NDC   string `json:"ndc" validate:"required,ndc"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// NDCDetailInput identifies a single NDC to look up.
type NDCDetailInput struct {
	NDC string `json:"ndc" validate:"required,ndc"`
}

// --- Outputs ---

// StatisticsResult is the envelope for every statistics metric.
type StatisticsResult struct {
	Metric     string `json:"metric"`
	Category   string `json:"category"`
	SampleSize int    `json:"sample_size"`
	Result     any    `json:"result"`
}

// ComparisonResult pairs brand and generic rows for one drug name.
type ComparisonResult struct {
	DrugName              string          `json:"drug_name"`
	BrandDrugs            []datastore.Row `json:"brand_drugs"`
	GenericDrugs          []datastore.Row `json:"generic_drugs"`
	AverageGenericSavings string          `json:"average_generic_savings,omitempty"`
}

// HistoryResult is a newest-first price history for one NDC.
type HistoryResult struct {
	NDC      string          `json:"ndc"`
	DrugName string          `json:"drug_name"`
	History  []datastore.Row `json:"history"`
	Trend    string          `json:"trend,omitempty"`
}

// DrugDetail is the card returned by search_by_ndc.
type DrugDetail struct {
	NDC                       string `json:"ndc"`
	Description               string `json:"ndc_description"`
	NADACPerUnit              string `json:"nadac_per_unit"`
	PricingUnit               string `json:"pricing_unit"`
	EffectiveDate             string `json:"effective_date"`
	AsOfDate                  string `json:"as_of_date"`
	Classification            string `json:"classification_for_rate_setting"`
	PharmacyTypeIndicator     string `json:"pharmacy_type_indicator"`
	OTC                       string `json:"otc"`
	CorrespondingGenericPrice string `json:"corresponding_generic_drug_nadac_per_unit"`
}

// RegisterTools declares the tool schemas and wires their handlers.
func RegisterTools(s *server.MCPServer, reg *Registry, deps Deps) {
	drugPricing := mcp.NewTool(
		"get_drug_pricing",
		mcp.WithDescription("Search current NADAC drug acquisition costs by drug name (partial match) or NDC (exact match). With no filters, returns the latest rows."),
		mcp.WithString("drug_name", mcp.Description("Drug name to search for (partial, case-insensitive match)")),
		mcp.WithString("ndc", mcp.Description("National Drug Code, exact match (digits with optional dashes)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(defaultSearchLimit), mcp.Min(1), mcp.Max(config.MaxQueryLimit), mcp.Description("Maximum rows to return")),
		mcp.WithString("format", mcp.DefaultString("json"), mcp.Enum("json", "csv"), mcp.Description("Result encoding")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(drugPricing, mcp.NewTypedToolHandler(deps.handleDrugPricing))
	reg.Register(drugPricing)

	dateRange := mcp.NewTool(
		"get_pricing_by_date_range",
		mcp.WithDescription("Look up NADAC rows whose effective date falls within [start_date, end_date], optionally narrowed by drug name."),
		mcp.WithString("start_date", mcp.Required(), mcp.Description("Window start, YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Required(), mcp.Description("Window end, YYYY-MM-DD")),
		mcp.WithString("drug_name", mcp.Description("Drug name to search for (partial match)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(defaultDateRangeLimit), mcp.Min(1), mcp.Max(config.MaxQueryLimit), mcp.Description("Maximum rows to return")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(dateRange, mcp.NewTypedToolHandler(deps.handleDateRange))
	reg.Register(dateRange)

	priceChanges := mcp.NewTool(
		"get_recent_price_changes",
		mcp.WithDescription("List NADAC rows whose price took effect within the last days_back calendar days, optionally limited to brand (B) or generic (G) drugs."),
		mcp.WithNumber("days_back", mcp.DefaultNumber(30), mcp.Min(1), mcp.Max(365), mcp.Description("Trailing window in calendar days")),
		mcp.WithNumber("min_change_percent", mcp.DefaultNumber(5), mcp.Description("Accepted for compatibility; currently not applied to the query")),
		mcp.WithString("drug_category", mcp.Enum("B", "G"), mcp.Description("Restrict to brand (B) or generic (G) drugs")),
		mcp.WithNumber("limit", mcp.DefaultNumber(defaultChangesLimit), mcp.Min(1), mcp.Max(config.MaxQueryLimit), mcp.Description("Maximum rows to return")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(priceChanges, mcp.NewTypedToolHandler(deps.handlePriceChanges))
	reg.Register(priceChanges)

	statistics := mcp.NewTool(
		"get_drug_price_statistics",
		mcp.WithDescription("Compute an aggregate view (price distribution, brand/generic counts, or recent-update ratio) over a recency-filtered sample of up to 1000 rows."),
		mcp.WithString("metric", mcp.Required(), mcp.Enum(pricing.MetricPriceDistribution, pricing.MetricDrugCounts, pricing.MetricRecentUpdates), mcp.Description("Aggregate to compute")),
		mcp.WithString("category", mcp.DefaultString("all"), mcp.Enum("B", "G", "all"), mcp.Description("Restrict the sample to brand (B) or generic (G) drugs")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(statistics, mcp.NewTypedToolHandler(deps.handleStatistics))
	reg.Register(statistics)

	compare := mcp.NewTool(
		"compare_brand_generic",
		mcp.WithDescription("Compare current brand vs generic NADAC pricing for a drug name, including the average generic savings when both exist."),
		mcp.WithString("drug_name", mcp.Required(), mcp.Description("Drug name to compare (partial match)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(defaultCompareLimit), mcp.Min(1), mcp.Max(config.MaxQueryLimit), mcp.Description("Maximum rows per category")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(compare, mcp.NewTypedToolHandler(deps.handleCompare))
	reg.Register(compare)

	history := mcp.NewTool(
		"get_price_history",
		mcp.WithDescription("Return the newest-first price history for one NDC with the overall percent change across the fetched records."),
		mcp.WithString("ndc", mcp.Required(), mcp.Description("National Drug Code")),
		mcp.WithNumber("limit", mcp.DefaultNumber(defaultHistoryLimit), mcp.Min(1), mcp.Max(config.MaxQueryLimit), mcp.Description("Number of historical records")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(history, mcp.NewTypedToolHandler(deps.handleHistory))
	reg.Register(history)

	ndcDetail := mcp.NewTool(
		"search_by_ndc",
		mcp.WithDescription("Look up the most recent NADAC record for a single NDC as a detail card."),
		mcp.WithString("ndc", mcp.Required(), mcp.Description("National Drug Code (11-digit format)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(ndcDetail, mcp.NewTypedToolHandler(deps.handleNDCDetail))
	reg.Register(ndcDetail)
}

// --- Handlers ---

func (d Deps) handleDrugPricing(ctx context.Context, _ mcp.CallToolRequest, in DrugPricingInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	req := datastore.QueryRequest{
		Conditions: d.Builder.DrugSearch(pricing.DrugSearchArgs{DrugName: in.DrugName, NDC: in.NDC}),
		Limit:      orDefault(in.Limit, defaultSearchLimit),
	}

	if in.Format == string(datastore.FormatCSV) {
		text, err := d.Client.QueryCSV(ctx, req)
		if err != nil {
			return mcperr.FromUpstream(err), nil
		}
		return mcp.NewToolResultText("Current NADAC pricing (CSV):\n\n" + text), nil
	}

	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}
	return textResult(fmt.Sprintf("Current NADAC pricing (%d rows):", len(rows)), rows)
}

func (d Deps) handleDateRange(ctx context.Context, _ mcp.CallToolRequest, in DateRangeInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	req := datastore.QueryRequest{
		Conditions: d.Builder.DateRange(pricing.DateRangeArgs{
			StartDate: in.StartDate,
			EndDate:   in.EndDate,
			DrugName:  in.DrugName,
		}),
		Limit: orDefault(in.Limit, defaultDateRangeLimit),
	}

	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}
	preamble := fmt.Sprintf("NADAC pricing effective %s to %s (%d rows):", in.StartDate, in.EndDate, len(rows))
	return textResult(preamble, rows)
}

func (d Deps) handlePriceChanges(ctx context.Context, _ mcp.CallToolRequest, in PriceChangesInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	daysBack := in.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	req := datastore.QueryRequest{
		Conditions: d.Builder.PriceChanges(pricing.PriceChangeArgs{
			DaysBack:     daysBack,
			DrugCategory: in.DrugCategory,
		}),
		Limit: orDefault(in.Limit, defaultChangesLimit),
	}

	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}
	preamble := fmt.Sprintf("NADAC rows with prices effective in the last %d days (%d rows):", daysBack, len(rows))
	return textResult(preamble, rows)
}

func (d Deps) handleStatistics(ctx context.Context, _ mcp.CallToolRequest, in StatisticsInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	category := in.Category
	if category == "" {
		category = "all"
	}
	// Statistics always fetch the full working set, never a caller page size.
	req := datastore.QueryRequest{
		Conditions: d.Builder.Statistics(pricing.StatisticsArgs{Category: category}),
		Limit:      config.StatisticsSampleLimit,
	}

	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}

	out := StatisticsResult{Metric: in.Metric, Category: category, SampleSize: len(rows)}
	switch in.Metric {
	case pricing.MetricPriceDistribution:
		out.Result = pricing.PriceDistributionOf(rows)
	case pricing.MetricDrugCounts:
		out.Result = pricing.DrugCountsOf(rows)
	case pricing.MetricRecentUpdates:
		out.Result = pricing.RecentUpdatesOf(rows, d.now())
	default:
		// Unreachable through MCP (enum-constrained), kept for direct callers.
		return mcperr.Wrapf(mcperr.Validation, "unknown metric %q", in.Metric), nil
	}

	preamble := fmt.Sprintf("NADAC %s over a sample of %d rows (approximation, recency-filtered):", in.Metric, len(rows))
	return textResult(preamble, out)
}

func (d Deps) handleCompare(ctx context.Context, _ mcp.CallToolRequest, in CompareInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	limit := orDefault(in.Limit, defaultCompareLimit)
	brandConds, genericConds := d.Builder.BrandGeneric(in.DrugName)

	var brand, generic []datastore.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := d.Client.QueryRows(gctx, datastore.QueryRequest{Conditions: brandConds, Limit: limit})
		brand = rows
		return err
	})
	g.Go(func() error {
		rows, err := d.Client.QueryRows(gctx, datastore.QueryRequest{Conditions: genericConds, Limit: limit})
		generic = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return mcperr.FromUpstream(err), nil
	}

	out := ComparisonResult{
		DrugName:     in.DrugName,
		BrandDrugs:   brand,
		GenericDrugs: generic,
	}
	if savings, ok := pricing.AverageSavings(brand, generic); ok {
		out.AverageGenericSavings = fmt.Sprintf("%.1f%%", savings)
	}

	preamble := fmt.Sprintf("Brand vs generic NADAC pricing for %q (%d brand, %d generic rows):", in.DrugName, len(brand), len(generic))
	return textResult(preamble, out)
}

func (d Deps) handleHistory(ctx context.Context, _ mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	req := datastore.QueryRequest{
		Conditions: d.Builder.NDCLookup(in.NDC),
		Limit:      orDefault(in.Limit, defaultHistoryLimit),
	}
	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}
	if len(rows) == 0 {
		return mcperr.Wrapf(mcperr.NotFound, "no historical data for NDC %s", in.NDC), nil
	}

	pricing.SortByEffectiveDateDesc(rows)
	out := HistoryResult{
		NDC:      in.NDC,
		DrugName: rows[0].Str(pricing.FieldDescription),
		History:  rows,
	}
	if change, ok := pricing.PriceTrend(rows); ok {
		direction := "increased"
		if change < 0 {
			direction = "decreased"
		}
		out.Trend = fmt.Sprintf("price %s by %.1f%% over this period", direction, abs(change))
	}

	preamble := fmt.Sprintf("Price history for %s (NDC %s, %d records):", out.DrugName, in.NDC, len(rows))
	return textResult(preamble, out)
}

func (d Deps) handleNDCDetail(ctx context.Context, _ mcp.CallToolRequest, in NDCDetailInput) (*mcp.CallToolResult, error) {
	if msg := validation.ValidateStruct(in); msg != "" {
		return mcperr.FromText(msg), nil
	}

	req := datastore.QueryRequest{
		Conditions: d.Builder.NDCLookup(in.NDC),
		Limit:      ndcDetailFetchLimit,
	}
	rows, err := d.Client.QueryRows(ctx, req)
	if err != nil {
		return mcperr.FromUpstream(err), nil
	}
	if len(rows) == 0 {
		return mcperr.Wrapf(mcperr.NotFound, "no data for NDC %s", in.NDC), nil
	}

	pricing.SortByEffectiveDateDesc(rows)
	newest := rows[0]
	detail := DrugDetail{
		NDC:                       newest.Str(pricing.FieldNDC),
		Description:               newest.Str(pricing.FieldDescription),
		NADACPerUnit:              newest.Str(pricing.FieldPricePerUnit),
		PricingUnit:               newest.Str("pricing_unit"),
		EffectiveDate:             newest.Str(pricing.FieldEffectiveDate),
		AsOfDate:                  newest.Str(pricing.FieldAsOfDate),
		Classification:            newest.Str(pricing.FieldClassification),
		PharmacyTypeIndicator:     newest.Str("pharmacy_type_indicator"),
		OTC:                       newest.Str("otc"),
		CorrespondingGenericPrice: newest.Str("corresponding_generic_drug_nadac_per_unit"),
	}

	return textResult(fmt.Sprintf("Drug information for NDC %s:", in.NDC), detail)
}

// --- Helpers ---

func textResult(preamble string, payload any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcperr.New(mcperr.DecodeFailed, err.Error()), nil
	}
	return mcp.NewToolResultText(preamble + "\n" + string(b)), nil
}

func orDefault(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
