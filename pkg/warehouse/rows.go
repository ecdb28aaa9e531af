package warehouse

import (
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	DefaultDataset        = "link_generator"
	TableLinkCreated      = "link_created_events"
	TableOrderConversions = "order_conversions"
)

type ProductRow struct {
	ProductID  string
	Quantity   int64
	CentAmount int64
}

type DirectDiscountRow struct {
	Type  string
	Value float64
}

// LinkCreatedRow is one row of link_created_events. Empty optional strings are stored as NULL.
type LinkCreatedRow struct {
	LinkID         string
	CartID         string
	CreatedAt      time.Time
	CustomerID     string
	CustomerEmail  string
	Currency       string
	Country        string
	TotalAmount    int64
	Products       []ProductRow
	DiscountCode   string
	DirectDiscount *DirectDiscountRow
}

// Save implements bigquery.ValueSaver. The link id doubles as the insert id so a
// redelivered event is dropped by best-effort de-duplication.
func (r LinkCreatedRow) Save() (map[string]bigquery.Value, string, error) {
	products := make([]bigquery.Value, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, map[string]bigquery.Value{
			"productId":  p.ProductID,
			"quantity":   p.Quantity,
			"centAmount": p.CentAmount,
		})
	}

	var direct bigquery.Value
	if r.DirectDiscount != nil {
		direct = map[string]bigquery.Value{
			"type":  r.DirectDiscount.Type,
			"value": r.DirectDiscount.Value,
		}
	}

	return map[string]bigquery.Value{
		"linkId":         r.LinkID,
		"cartId":         r.CartID,
		"createdAt":      r.CreatedAt,
		"customerId":     nullable(r.CustomerID),
		"customerEmail":  nullable(r.CustomerEmail),
		"currency":       r.Currency,
		"country":        r.Country,
		"totalAmount":    r.TotalAmount,
		"products":       products,
		"discountCode":   nullable(r.DiscountCode),
		"directDiscount": direct,
	}, r.LinkID, nil
}

type OrderProductRow struct {
	ProductID string
	Quantity  int64
	Price     int64
	Name      string
}

// OrderConversionRow is one row of order_conversions. TimeToConversion is nil
// when either timestamp was missing.
type OrderConversionRow struct {
	OrderID          string
	OrderNumber      string
	CreatedAt        time.Time
	CartID           string
	LinkID           string
	CustomerID       string
	CustomerEmail    string
	TotalAmount      int64
	Currency         string
	Country          string
	TimeToConversion *int64
	DiscountCode     string
	DiscountAmount   int64
	Products         []OrderProductRow
	OrderTotal       int64
}

func (r OrderConversionRow) Save() (map[string]bigquery.Value, string, error) {
	products := make([]bigquery.Value, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, map[string]bigquery.Value{
			"productId": p.ProductID,
			"quantity":  p.Quantity,
			"price":     p.Price,
			"name":      p.Name,
		})
	}

	var ttc bigquery.Value
	if r.TimeToConversion != nil {
		ttc = *r.TimeToConversion
	}

	return map[string]bigquery.Value{
		"orderId":          r.OrderID,
		"orderNumber":      nullable(r.OrderNumber),
		"createdAt":        r.CreatedAt,
		"cartId":           nullable(r.CartID),
		"linkId":           r.LinkID,
		"customerId":       nullable(r.CustomerID),
		"customerEmail":    nullable(r.CustomerEmail),
		"totalAmount":      r.TotalAmount,
		"currency":         r.Currency,
		"country":          nullable(r.Country),
		"timeToConversion": ttc,
		"discountCode":     nullable(r.DiscountCode),
		"discountAmount":   r.DiscountAmount,
		"products":         products,
		"orderTotal":       r.OrderTotal,
	}, r.OrderID, nil
}

func nullable(s string) bigquery.Value {
	if s == "" {
		return nil
	}
	return s
}
