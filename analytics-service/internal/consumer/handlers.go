package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/events"
	"github.com/fjod/cartlink/pkg/logger"
	"github.com/fjod/cartlink/pkg/warehouse"
)

// ErrMalformed marks a message that can never be processed. Sources ack it
// instead of asking for redelivery.
var ErrMalformed = errors.New("malformed message")

// Handler processes one message body. Any error other than ErrMalformed asks
// the event bus to deliver the message again.
type Handler interface {
	Handle(ctx context.Context, data []byte) error
}

type Writer interface {
	InsertLinkCreated(ctx context.Context, row warehouse.LinkCreatedRow) error
	InsertOrderConversion(ctx context.Context, row warehouse.OrderConversionRow) error
}

type OrderSource interface {
	GetOrder(ctx context.Context, orderID string, expand ...string) (*commercetools.Order, error)
}

type LinkCreatedHandler struct {
	writer Writer
}

func NewLinkCreatedHandler(w Writer) *LinkCreatedHandler {
	return &LinkCreatedHandler{writer: w}
}

func (h *LinkCreatedHandler) Handle(ctx context.Context, data []byte) error {
	e, err := events.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	row, err := linkCreatedRow(e)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := h.writer.InsertLinkCreated(ctx, row); err != nil {
		return fmt.Errorf("insert link %s: %w", e.LinkID, err)
	}
	logger.FromContext(ctx).Info().Str("link_id", e.LinkID).Msg("link created event stored")
	return nil
}

func linkCreatedRow(e events.LinkCreated) (warehouse.LinkCreatedRow, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return warehouse.LinkCreatedRow{}, fmt.Errorf("createdAt %q: %w", e.CreatedAt, err)
	}
	row := warehouse.LinkCreatedRow{
		LinkID:        e.LinkID,
		CartID:        e.CartID,
		CreatedAt:     createdAt,
		CustomerID:    e.CustomerID,
		CustomerEmail: e.CustomerEmail,
		Currency:      e.Currency,
		Country:       e.Country,
		TotalAmount:   e.TotalAmount,
		Products:      make([]warehouse.ProductRow, 0, len(e.Products)),
		DiscountCode:  e.DiscountCode,
	}
	for _, p := range e.Products {
		row.Products = append(row.Products, warehouse.ProductRow{
			ProductID:  p.ProductID,
			Quantity:   p.Quantity,
			CentAmount: p.CentAmount,
		})
	}
	if e.DirectDiscount != nil {
		row.DirectDiscount = &warehouse.DirectDiscountRow{Type: e.DirectDiscount.Type, Value: e.DirectDiscount.Value}
	}
	return row, nil
}

// orderMessage is the commerce platform subscription payload.
type orderMessage struct {
	NotificationType string `json:"notificationType"`
	Type             string `json:"type"`
	Resource         struct {
		TypeID string `json:"typeId"`
		ID     string `json:"id"`
	} `json:"resource"`
}

type OrderConversionHandler struct {
	orders OrderSource
	writer Writer
}

func NewOrderConversionHandler(orders OrderSource, w Writer) *OrderConversionHandler {
	return &OrderConversionHandler{orders: orders, writer: w}
}

// Handle fetches the order and stores a conversion row. Orders whose cart was
// not created from a link are skipped.
func (h *OrderConversionHandler) Handle(ctx context.Context, data []byte) error {
	var msg orderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Resource.ID == "" {
		return fmt.Errorf("%w: missing resource id", ErrMalformed)
	}
	log := logger.FromContext(ctx).With().Str("order_id", msg.Resource.ID).Logger()

	order, err := h.orders.GetOrder(ctx, msg.Resource.ID, commercetools.OrderExpandDiscountCodes)
	if err != nil {
		return fmt.Errorf("fetch order %s: %w", msg.Resource.ID, err)
	}

	linkID := order.Custom.String("linkId")
	if linkID == "" {
		log.Debug().Msg("order not created from a link, skipping")
		return nil
	}

	row := orderConversionRow(order)
	if err := h.writer.InsertOrderConversion(ctx, row); err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	log.Info().Str("link_id", linkID).Msg("order conversion stored")
	return nil
}

func orderConversionRow(o *commercetools.Order) warehouse.OrderConversionRow {
	row := warehouse.OrderConversionRow{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		CreatedAt:        o.CreatedAt,
		LinkID:           o.Custom.String("linkId"),
		CustomerID:       o.CustomerID,
		CustomerEmail:    o.CustomerEmail,
		TotalAmount:      o.TotalPrice.CentAmount,
		Currency:         o.TotalPrice.CurrencyCode,
		Country:          o.Country,
		TimeToConversion: timeToConversion(o),
		DiscountCode:     firstDiscountCode(o),
		DiscountAmount:   totalDiscount(o),
		Products:         make([]warehouse.OrderProductRow, 0, len(o.LineItems)),
		OrderTotal:       o.TotalPrice.CentAmount,
	}
	if o.Cart != nil {
		row.CartID = o.Cart.ID
	}
	for _, li := range o.LineItems {
		row.Products = append(row.Products, warehouse.OrderProductRow{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Price:     li.Price.Value.CentAmount,
			Name:      li.Name.First(),
		})
	}
	return row
}

// timeToConversion is whole seconds between link creation and the order.
func timeToConversion(o *commercetools.Order) *int64 {
	created, err := time.Parse(time.RFC3339Nano, o.Custom.String("createdAt"))
	if err != nil || o.CreatedAt.IsZero() {
		return nil
	}
	secs := int64(math.Floor(o.CreatedAt.Sub(created).Seconds()))
	return &secs
}

func firstDiscountCode(o *commercetools.Order) string {
	if len(o.DiscountCodes) == 0 || o.DiscountCodes[0].DiscountCode.Obj == nil {
		return ""
	}
	return o.DiscountCodes[0].DiscountCode.Obj.Code
}

// totalDiscount sums line item discounts and the discount on the total price, in cents.
func totalDiscount(o *commercetools.Order) int64 {
	var total int64
	for _, li := range o.LineItems {
		if li.DiscountedPrice == nil {
			continue
		}
		total += (li.Price.Value.CentAmount - li.DiscountedPrice.Value.CentAmount) * li.Quantity
	}
	if o.DiscountOnTotalPrice != nil {
		total += o.DiscountOnTotalPrice.DiscountedAmount.CentAmount
	}
	return total
}
