package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fjod/cartlink/pkg/commercetools"
)

const (
	DefaultCartTypeKey = "link-cart-type"

	FieldLinkID    = "linkId"
	FieldCreatedAt = "createdAt"
	FieldQRCodeURL = "qrCodeUrl"

	maxQuantity = 999
)

type ProductSelection struct {
	ProductID string `json:"id"`
	Quantity  int64  `json:"quantity"`
}

type CustomItem struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency,omitempty"`
}

// LinkRequest is what the operator submits to create a link.
type LinkRequest struct {
	Currency         string               `json:"currency"`
	Products         []ProductSelection   `json:"products"`
	CustomLineItems  []CustomItem         `json:"customLineItems"`
	ShippingMethodID string               `json:"shippingMethod"`
	CustomerID       string               `json:"customerId"`
	CustomerEmail    string               `json:"customerEmail"`
	DiscountCode     string               `json:"discountCode"`
	DirectDiscount   *DirectDiscountInput `json:"directDiscount"`
}

func (r LinkRequest) Validate() error {
	if strings.TrimSpace(r.Currency) == "" {
		return invalid("currency", "currency is required")
	}
	if len(r.Products) == 0 && len(r.CustomLineItems) == 0 {
		return invalid("products", "at least one product or custom line item is required")
	}
	for _, p := range r.Products {
		if p.ProductID == "" {
			return invalid("products", "product id is required")
		}
		if p.Quantity < 1 || p.Quantity > maxQuantity {
			return invalid("products", "quantity for %s must be between 1 and %d", p.ProductID, maxQuantity)
		}
	}
	for _, c := range r.CustomLineItems {
		if strings.TrimSpace(c.Name) == "" {
			return invalid("customLineItems", "name is required")
		}
		if c.Quantity < 1 || c.Quantity > maxQuantity {
			return invalid("customLineItems", "quantity for %q must be between 1 and %d", c.Name, maxQuantity)
		}
		if c.Price.IsNegative() {
			return invalid("customLineItems", "price for %q must not be negative", c.Name)
		}
		if c.Currency != "" && !strings.EqualFold(c.Currency, r.Currency) {
			return invalid("customLineItems", "currency %s of %q does not match cart currency %s", c.Currency, c.Name, r.Currency)
		}
	}
	if r.DirectDiscount != nil {
		return r.DirectDiscount.Validate(r.Currency)
	}
	return nil
}

// LinkMeta is stored on the cart as custom fields.
type LinkMeta struct {
	LinkID    string
	CreatedAt time.Time
	QRCodeURL string
}

type DraftBuilder struct {
	resolver      *CurrencyResolver
	taxCategoryID string
	cartTypeKey   string
}

func NewDraftBuilder(resolver *CurrencyResolver, taxCategoryID, cartTypeKey string) *DraftBuilder {
	if cartTypeKey == "" {
		cartTypeKey = DefaultCartTypeKey
	}
	return &DraftBuilder{resolver: resolver, taxCategoryID: taxCategoryID, cartTypeKey: cartTypeKey}
}

func (b *DraftBuilder) Region(currency string) (Region, error) {
	return b.resolver.Resolve(currency)
}

// Build shapes a cart draft. The direct discount is not part of the draft; it is
// applied with an update once the cart exists.
func (b *DraftBuilder) Build(req LinkRequest, customer *commercetools.Customer, meta LinkMeta) (commercetools.CartDraft, error) {
	if err := req.Validate(); err != nil {
		return commercetools.CartDraft{}, err
	}
	region, err := b.resolver.Resolve(req.Currency)
	if err != nil {
		return commercetools.CartDraft{}, err
	}
	currency := strings.ToUpper(req.Currency)

	draft := commercetools.CartDraft{
		Currency:     currency,
		Country:      region.Country,
		CustomerID:   req.CustomerID,
		ShippingMode: commercetools.ShippingModeSingle,
		Custom: &commercetools.CustomFieldsDraft{
			Type: commercetools.Reference{TypeID: commercetools.TypeIDType, Key: b.cartTypeKey},
			Fields: map[string]any{
				FieldLinkID:    meta.LinkID,
				FieldCreatedAt: FormatTimestamp(meta.CreatedAt),
				FieldQRCodeURL: meta.QRCodeURL,
			},
		},
	}

	draft.CustomerEmail = req.CustomerEmail
	if customer != nil && draft.CustomerEmail == "" {
		draft.CustomerEmail = customer.Email
	}

	for _, p := range req.Products {
		draft.LineItems = append(draft.LineItems, commercetools.LineItemDraft{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	for _, c := range req.CustomLineItems {
		draft.CustomLineItems = append(draft.CustomLineItems, b.customLineItem(c, currency))
	}

	shipping := customer.DefaultShippingAddress()
	if shipping == nil {
		addr := region.DefaultAddress(customer)
		shipping = &addr
	}
	shipping.ID = ""
	billing := *shipping
	draft.ShippingAddress = shipping
	draft.BillingAddress = &billing

	if req.ShippingMethodID != "" {
		draft.ShippingMethod = &commercetools.Reference{TypeID: commercetools.TypeIDShippingMethod, ID: req.ShippingMethodID}
	}
	if code := strings.TrimSpace(req.DiscountCode); code != "" {
		draft.DiscountCodes = []string{code}
	}
	return draft, nil
}

func (b *DraftBuilder) customLineItem(c CustomItem, currency string) commercetools.CustomLineItemDraft {
	item := commercetools.CustomLineItemDraft{
		Name:     commercetools.LocalizedString{"en": c.Name},
		Quantity: c.Quantity,
		Money: commercetools.Money{
			CurrencyCode: currency,
			CentAmount:   MinorUnits(c.Price, currency),
		},
		Slug: Slugify(c.Name),
	}
	if b.taxCategoryID != "" {
		item.TaxCategory = &commercetools.Reference{TypeID: commercetools.TypeIDTaxCategory, ID: b.taxCategoryID}
	}
	return item
}

// DefaultAddress fills the region template, naming the customer when one is known.
func (r Region) DefaultAddress(customer *commercetools.Customer) commercetools.Address {
	addr := commercetools.Address{
		StreetName:   defaultStreetName,
		StreetNumber: defaultStreetNumber,
		City:         r.Address.City,
		State:        r.Address.State,
		PostalCode:   r.Address.PostalCode,
		Country:      r.Country,
	}
	if customer != nil {
		addr.FirstName = customer.FirstName
		addr.LastName = customer.LastName
		addr.Email = customer.Email
	}
	return addr
}

// FormatTimestamp renders t in UTC with millisecond precision, e.g. 2024-01-01T00:00:00.000Z.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
