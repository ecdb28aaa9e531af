package warehouse

import "fmt"

// Queries holds the dashboard SQL with fully qualified table names.
// Discount values are in major units.
type Queries struct {
	Overall           string
	DailyActivity     string
	TopProducts       string
	ConversionFlow    string
	CartHistory       string
	DiscountBreakdown string
}

func NewQueries(project, dataset string) Queries {
	links := fmt.Sprintf("`%s.%s.%s`", project, dataset, TableLinkCreated)
	orders := fmt.Sprintf("`%s.%s.%s`", project, dataset, TableOrderConversions)

	return Queries{
		Overall: fmt.Sprintf(`
WITH LinkStats AS (
  SELECT COUNT(*) AS total_links
  FROM %[1]s
),
OrderStats AS (
  SELECT
    COUNT(DISTINCT orderId) AS total_orders,
    AVG(totalAmount) / 100 AS avg_order_value,
    SUM(totalAmount) / 100 AS total_revenue,
    AVG(timeToConversion) AS avg_time_to_conversion
  FROM %[2]s
)
SELECT l.total_links, o.total_orders, o.avg_order_value, o.total_revenue, o.avg_time_to_conversion
FROM LinkStats l, OrderStats o`, links, orders),

		DailyActivity: fmt.Sprintf(`
WITH daily_metrics AS (
  SELECT
    DATE(l.createdAt) AS date,
    COUNT(l.linkId) AS links_created,
    COUNT(DISTINCT o.orderId) AS orders
  FROM %[1]s l
  LEFT JOIN %[2]s o ON l.linkId = o.linkId
  GROUP BY date
  ORDER BY date DESC
  LIMIT 50
)
SELECT * FROM daily_metrics ORDER BY date ASC`, links, orders),

		TopProducts: fmt.Sprintf(`
SELECT
  p.name,
  COUNT(DISTINCT o.orderId) AS order_count,
  SUM(p.quantity) AS total_quantity,
  SUM(p.price * p.quantity) / 100 AS total_revenue
FROM %[1]s o, UNNEST(products) AS p
GROUP BY p.name
ORDER BY order_count DESC
LIMIT 20`, orders),

		ConversionFlow: fmt.Sprintf(`
WITH CartData AS (
  SELECT
    l.linkId,
    CASE WHEN o.orderId IS NOT NULL THEN 'Converted' ELSE 'Not Converted' END AS status
  FROM %[1]s l
  LEFT JOIN %[2]s o ON l.linkId = o.linkId
)
SELECT status, COUNT(*) AS count
FROM CartData
GROUP BY status`, links, orders),

		CartHistory: fmt.Sprintf(`
SELECT
  l.linkId,
  l.createdAt,
  l.customerEmail,
  l.totalAmount / 100 AS cartValue,
  o.orderId IS NOT NULL AS isConverted,
  TIMESTAMP_DIFF(CURRENT_TIMESTAMP(), l.createdAt, HOUR) AS hoursAge,
  l.discountCode,
  CASE
    WHEN l.directDiscount.type = 'absolute' THEN l.directDiscount.value
    WHEN l.directDiscount.type = 'relative' THEN l.totalAmount * l.directDiscount.value / 10000
    ELSE 0
  END AS discountValue,
  TIMESTAMP_DIFF(o.createdAt, l.createdAt, MINUTE) AS conversionTimeMinutes
FROM %[1]s l
LEFT JOIN %[2]s o ON l.linkId = o.linkId
ORDER BY l.createdAt DESC
LIMIT 50`, links, orders),

		// discount codes are not priced in the event, so they are estimated at 10% of the cart
		DiscountBreakdown: fmt.Sprintf(`
WITH DiscountStats AS (
  SELECT
    CASE
      WHEN discountCode IS NOT NULL THEN 'Discount Code'
      WHEN directDiscount IS NOT NULL THEN CONCAT('Direct Discount (', directDiscount.type, ')')
      ELSE 'No Discount'
    END AS discountCategory,
    CASE
      WHEN directDiscount.type = 'absolute' THEN directDiscount.value
      WHEN directDiscount.type = 'relative' THEN totalAmount * directDiscount.value / 10000
      WHEN discountCode IS NOT NULL THEN totalAmount / 100 * 0.1
      ELSE 0
    END AS discountValue
  FROM %[1]s
)
SELECT
  discountCategory,
  COUNT(*) AS count,
  AVG(discountValue) AS averageDiscount,
  SUM(discountValue) AS totalDiscount
FROM DiscountStats
GROUP BY discountCategory
ORDER BY count DESC`, links),
	}
}
