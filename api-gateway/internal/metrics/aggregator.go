package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/cartlink/pkg/warehouse"
)

const (
	BucketConverted    = "Converted"
	BucketNotConverted = "Not Converted"
)

// Source is the warehouse reader behind the dashboard.
type Source interface {
	Overall(ctx context.Context) (warehouse.OverallStats, error)
	DailyActivity(ctx context.Context) ([]warehouse.DailyActivity, error)
	TopProducts(ctx context.Context) ([]warehouse.ProductStats, error)
	ConversionFlow(ctx context.Context) ([]warehouse.FlowBucket, error)
	CartHistory(ctx context.Context) ([]warehouse.CartHistoryRow, error)
	DiscountBreakdown(ctx context.Context) ([]warehouse.DiscountStats, error)
}

type Overall struct {
	TotalLinks              int64   `json:"totalLinks"`
	TotalOrders             int64   `json:"totalOrders"`
	ConversionRate          float64 `json:"conversionRate"`
	AverageOrderValue       float64 `json:"averageOrderValue"`
	TotalRevenue            float64 `json:"totalRevenue"`
	AverageTimeToConversion float64 `json:"averageTimeToConversion"`
}

type TimeSeries struct {
	Dates       []string `json:"dates"`
	Links       []int64  `json:"links"`
	Conversions []int64  `json:"conversions"`
}

type Product struct {
	Name     string  `json:"name"`
	Orders   int64   `json:"orders"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type CartHistoryEntry struct {
	LinkID                string    `json:"linkId"`
	CreatedAt             time.Time `json:"createdAt"`
	CreatedAgo            string    `json:"createdAgo"`
	CartValue             float64   `json:"cartValue"`
	CustomerEmail         string    `json:"customerEmail"`
	IsConverted           bool      `json:"isConverted"`
	DiscountCode          string    `json:"discountCode"`
	DiscountValue         float64   `json:"discountValue"`
	HoursAge              int64     `json:"hoursAge"`
	ConversionTimeMinutes *int64    `json:"conversionTimeMinutes"`
}

type DiscountCategory struct {
	DiscountCategory string  `json:"discountCategory"`
	Count            int64   `json:"count"`
	AverageDiscount  float64 `json:"averageDiscount"`
	TotalDiscount    float64 `json:"totalDiscount"`
}

type Dashboard struct {
	Metrics            Overall            `json:"metrics"`
	TimeSeriesData     TimeSeries         `json:"timeSeriesData"`
	ProductsData       []Product          `json:"productsData"`
	ConversionFlowData map[string]int64   `json:"conversionFlowData"`
	CartHistory        []CartHistoryEntry `json:"cartHistory"`
	DiscountAnalysis   []DiscountCategory `json:"discountAnalysis"`
}

const defaultQueryTimeout = 30 * time.Second

type Aggregator struct {
	source  Source
	sfg     singleflight.Group
	now     func() time.Time
	timeout time.Duration
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source, now: time.Now, timeout: defaultQueryTimeout}
}

// Dashboard runs the six warehouse queries concurrently. Any failing query
// fails the whole call. Concurrent callers share one aggregation, which runs
// detached from any single caller's cancellation; each caller stops waiting
// when its own context ends.
func (a *Aggregator) Dashboard(ctx context.Context) (*Dashboard, error) {
	ch := a.sfg.DoChan("dashboard", func() (interface{}, error) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		return a.aggregate(actx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dashboard), nil
	}
}

func (a *Aggregator) aggregate(ctx context.Context) (*Dashboard, error) {
	var (
		overall   warehouse.OverallStats
		daily     []warehouse.DailyActivity
		products  []warehouse.ProductStats
		flow      []warehouse.FlowBucket
		history   []warehouse.CartHistoryRow
		discounts []warehouse.DiscountStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { overall, err = a.source.Overall(gctx); return })
	g.Go(func() (err error) { daily, err = a.source.DailyActivity(gctx); return })
	g.Go(func() (err error) { products, err = a.source.TopProducts(gctx); return })
	g.Go(func() (err error) { flow, err = a.source.ConversionFlow(gctx); return })
	g.Go(func() (err error) { history, err = a.source.CartHistory(gctx); return })
	g.Go(func() (err error) { discounts, err = a.source.DiscountBreakdown(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard metrics: %w", err)
	}

	now := a.now()
	return &Dashboard{
		Metrics:            formatOverall(overall),
		TimeSeriesData:     formatTimeSeries(daily),
		ProductsData:       formatProducts(products),
		ConversionFlowData: formatFlow(flow),
		CartHistory:        formatHistory(history, now),
		DiscountAnalysis:   formatDiscounts(discounts),
	}, nil
}

func formatOverall(o warehouse.OverallStats) Overall {
	out := Overall{
		TotalLinks:              o.TotalLinks,
		TotalOrders:             o.TotalOrders,
		AverageOrderValue:       round2(nullFloat(o.AvgOrderValue)),
		TotalRevenue:            round2(nullFloat(o.TotalRevenue)),
		AverageTimeToConversion: round2(nullFloat(o.AvgTimeToConversion)),
	}
	if o.TotalLinks > 0 {
		out.ConversionRate = round2(float64(o.TotalOrders) / float64(o.TotalLinks) * 100)
	}
	return out
}

func formatTimeSeries(rows []warehouse.DailyActivity) TimeSeries {
	ts := TimeSeries{
		Dates:       make([]string, 0, len(rows)),
		Links:       make([]int64, 0, len(rows)),
		Conversions: make([]int64, 0, len(rows)),
	}
	for _, r := range rows {
		ts.Dates = append(ts.Dates, r.Date.String())
		ts.Links = append(ts.Links, r.LinksCreated)
		ts.Conversions = append(ts.Conversions, r.Orders)
	}
	return ts
}

func formatProducts(rows []warehouse.ProductStats) []Product {
	out := make([]Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, Product{
			Name:     r.Name.StringVal,
			Orders:   r.OrderCount,
			Quantity: r.TotalQuantity.Int64,
			Revenue:  round2(nullFloat(r.TotalRevenue)),
		})
	}
	return out
}

func formatFlow(rows []warehouse.FlowBucket) map[string]int64 {
	out := map[string]int64{BucketConverted: 0, BucketNotConverted: 0}
	for _, r := range rows {
		out[r.Status] += r.Count
	}
	return out
}

func formatHistory(rows []warehouse.CartHistoryRow, now time.Time) []CartHistoryEntry {
	out := make([]CartHistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := CartHistoryEntry{
			LinkID:        r.LinkID,
			CartValue:     round2(nullFloat(r.CartValue)),
			CustomerEmail: r.CustomerEmail.StringVal,
			IsConverted:   r.IsConverted,
			DiscountCode:  r.DiscountCode.StringVal,
			DiscountValue: round2(nullFloat(r.DiscountValue)),
			HoursAge:      r.HoursAge.Int64,
		}
		if r.CreatedAt.Valid {
			e.CreatedAt = r.CreatedAt.Timestamp.UTC()
			e.CreatedAgo = humanize.RelTime(e.CreatedAt, now, "ago", "from now")
		}
		if r.ConversionTimeMinutes.Valid {
			m := r.ConversionTimeMinutes.Int64
			e.ConversionTimeMinutes = &m
		}
		out = append(out, e)
	}
	return out
}

func formatDiscounts(rows []warehouse.DiscountStats) []DiscountCategory {
	out := make([]DiscountCategory, 0, len(rows))
	for _, r := range rows {
		out = append(out, DiscountCategory{
			DiscountCategory: r.DiscountCategory,
			Count:            r.Count,
			AverageDiscount:  round2(nullFloat(r.AverageDiscount)),
			TotalDiscount:    round2(nullFloat(r.TotalDiscount)),
		})
	}
	return out
}

func nullFloat(f bigquery.NullFloat64) float64 {
	if !f.Valid || math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0) {
		return 0
	}
	return f.Float64
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
