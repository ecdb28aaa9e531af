package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

type OverallStats struct {
	TotalLinks          int64                `bigquery:"total_links"`
	TotalOrders         int64                `bigquery:"total_orders"`
	AvgOrderValue       bigquery.NullFloat64 `bigquery:"avg_order_value"`
	TotalRevenue        bigquery.NullFloat64 `bigquery:"total_revenue"`
	AvgTimeToConversion bigquery.NullFloat64 `bigquery:"avg_time_to_conversion"`
}

type DailyActivity struct {
	Date         civil.Date `bigquery:"date"`
	LinksCreated int64      `bigquery:"links_created"`
	Orders       int64      `bigquery:"orders"`
}

type ProductStats struct {
	Name          bigquery.NullString  `bigquery:"name"`
	OrderCount    int64                `bigquery:"order_count"`
	TotalQuantity bigquery.NullInt64   `bigquery:"total_quantity"`
	TotalRevenue  bigquery.NullFloat64 `bigquery:"total_revenue"`
}

type FlowBucket struct {
	Status string `bigquery:"status"`
	Count  int64  `bigquery:"count"`
}

type CartHistoryRow struct {
	LinkID                string                 `bigquery:"linkId"`
	CreatedAt             bigquery.NullTimestamp `bigquery:"createdAt"`
	CustomerEmail         bigquery.NullString    `bigquery:"customerEmail"`
	CartValue             bigquery.NullFloat64   `bigquery:"cartValue"`
	IsConverted           bool                   `bigquery:"isConverted"`
	HoursAge              bigquery.NullInt64     `bigquery:"hoursAge"`
	DiscountCode          bigquery.NullString    `bigquery:"discountCode"`
	DiscountValue         bigquery.NullFloat64   `bigquery:"discountValue"`
	ConversionTimeMinutes bigquery.NullInt64     `bigquery:"conversionTimeMinutes"`
}

type DiscountStats struct {
	DiscountCategory string               `bigquery:"discountCategory"`
	Count            int64                `bigquery:"count"`
	AverageDiscount  bigquery.NullFloat64 `bigquery:"averageDiscount"`
	TotalDiscount    bigquery.NullFloat64 `bigquery:"totalDiscount"`
}

// Reader runs the read-only dashboard queries. Each method is one query job.
type Reader struct {
	client  *bigquery.Client
	queries Queries
}

func NewReader(client *bigquery.Client, dataset string) *Reader {
	return &Reader{client: client, queries: NewQueries(client.Project(), dataset)}
}

func (r *Reader) Overall(ctx context.Context) (OverallStats, error) {
	rows, err := readAll[OverallStats](ctx, r.client.Query(r.queries.Overall))
	if err != nil {
		return OverallStats{}, fmt.Errorf("overall metrics: %w", err)
	}
	if len(rows) == 0 {
		return OverallStats{}, nil
	}
	return rows[0], nil
}

func (r *Reader) DailyActivity(ctx context.Context) ([]DailyActivity, error) {
	rows, err := readAll[DailyActivity](ctx, r.client.Query(r.queries.DailyActivity))
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	return rows, nil
}

func (r *Reader) TopProducts(ctx context.Context) ([]ProductStats, error) {
	rows, err := readAll[ProductStats](ctx, r.client.Query(r.queries.TopProducts))
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return rows, nil
}

func (r *Reader) ConversionFlow(ctx context.Context) ([]FlowBucket, error) {
	rows, err := readAll[FlowBucket](ctx, r.client.Query(r.queries.ConversionFlow))
	if err != nil {
		return nil, fmt.Errorf("conversion flow: %w", err)
	}
	return rows, nil
}

func (r *Reader) CartHistory(ctx context.Context) ([]CartHistoryRow, error) {
	rows, err := readAll[CartHistoryRow](ctx, r.client.Query(r.queries.CartHistory))
	if err != nil {
		return nil, fmt.Errorf("cart history: %w", err)
	}
	return rows, nil
}

func (r *Reader) DiscountBreakdown(ctx context.Context) ([]DiscountStats, error) {
	rows, err := readAll[DiscountStats](ctx, r.client.Query(r.queries.DiscountBreakdown))
	if err != nil {
		return nil, fmt.Errorf("discount analysis: %w", err)
	}
	return rows, nil
}

func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	var out []T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}
