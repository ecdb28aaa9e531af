package commercetools

import (
	"sort"
	"time"
)

const (
	TypeIDTaxCategory    = "tax-category"
	TypeIDShippingMethod = "shipping-method"
	TypeIDType           = "type"

	ShippingModeSingle = "Single"

	DiscountTypeRelative = "relative"
	DiscountTypeAbsolute = "absolute"
	TargetTotalPrice     = "totalPrice"
)

type Money struct {
	Type           string `json:"type,omitempty"`
	CurrencyCode   string `json:"currencyCode"`
	CentAmount     int64  `json:"centAmount"`
	FractionDigits int    `json:"fractionDigits,omitempty"`
}

type Reference struct {
	TypeID string `json:"typeId"`
	ID     string `json:"id,omitempty"`
	Key    string `json:"key,omitempty"`
}

type LocalizedString map[string]string

// First returns the non-empty value whose locale is lexically first. Payload
// order is lost when decoding into a map, so "en" does not win over "de".
func (l LocalizedString) First() string {
	locales := make([]string, 0, len(l))
	for k := range l {
		locales = append(locales, k)
	}
	sort.Strings(locales)
	for _, k := range locales {
		if l[k] != "" {
			return l[k]
		}
	}
	return ""
}

type Address struct {
	ID           string `json:"id,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	StreetNumber string `json:"streetNumber,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country"`
	Email        string `json:"email,omitempty"`
}

type LineItemDraft struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type CustomLineItemDraft struct {
	Name        LocalizedString `json:"name"`
	Quantity    int64           `json:"quantity"`
	Money       Money           `json:"money"`
	Slug        string          `json:"slug"`
	TaxCategory *Reference      `json:"taxCategory,omitempty"`
}

type CustomFieldsDraft struct {
	Type   Reference      `json:"type"`
	Fields map[string]any `json:"fields,omitempty"`
}

type CartDraft struct {
	Currency        string                `json:"currency"`
	Country         string                `json:"country,omitempty"`
	CustomerID      string                `json:"customerId,omitempty"`
	CustomerEmail   string                `json:"customerEmail,omitempty"`
	LineItems       []LineItemDraft       `json:"lineItems,omitempty"`
	CustomLineItems []CustomLineItemDraft `json:"customLineItems,omitempty"`
	ShippingMode    string                `json:"shippingMode,omitempty"`
	ShippingAddress *Address              `json:"shippingAddress,omitempty"`
	BillingAddress  *Address              `json:"billingAddress,omitempty"`
	ShippingMethod  *Reference            `json:"shippingMethod,omitempty"`
	DiscountCodes   []string              `json:"discountCodes,omitempty"`
	Custom          *CustomFieldsDraft    `json:"custom,omitempty"`
}

type Price struct {
	ID    string `json:"id,omitempty"`
	Value Money  `json:"value"`
}

type DiscountedPrice struct {
	Value    Money     `json:"value"`
	Discount Reference `json:"discount"`
}

type LineItem struct {
	ID              string           `json:"id"`
	ProductID       string           `json:"productId"`
	Name            LocalizedString  `json:"name"`
	Quantity        int64            `json:"quantity"`
	Price           Price            `json:"price"`
	DiscountedPrice *DiscountedPrice `json:"discountedPrice,omitempty"`
	TotalPrice      Money            `json:"totalPrice"`
}

type CustomLineItem struct {
	ID         string          `json:"id"`
	Name       LocalizedString `json:"name"`
	Quantity   int64           `json:"quantity"`
	Money      Money           `json:"money"`
	TotalPrice Money           `json:"totalPrice"`
	Slug       string          `json:"slug"`
}

type DiscountCode struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	IsActive bool   `json:"isActive"`
}

type DiscountCodeReference struct {
	TypeID string        `json:"typeId"`
	ID     string        `json:"id"`
	Obj    *DiscountCode `json:"obj,omitempty"`
}

type DiscountCodeInfo struct {
	DiscountCode DiscountCodeReference `json:"discountCode"`
	State        string                `json:"state,omitempty"`
}

type DiscountOnTotalPrice struct {
	DiscountedAmount Money `json:"discountedAmount"`
}

type CartDiscountValue struct {
	Type      string  `json:"type"`
	Permyriad *int64  `json:"permyriad,omitempty"`
	Money     []Money `json:"money,omitempty"`
}

type CartDiscountTarget struct {
	Type string `json:"type"`
}

type DirectDiscountDraft struct {
	Value  CartDiscountValue  `json:"value"`
	Target CartDiscountTarget `json:"target"`
}

type DirectDiscount struct {
	ID     string             `json:"id,omitempty"`
	Value  CartDiscountValue  `json:"value"`
	Target CartDiscountTarget `json:"target"`
}

type CustomFields struct {
	Type   Reference      `json:"type"`
	Fields map[string]any `json:"fields"`
}

// String returns a custom string field, or "" when absent or not a string.
func (c *CustomFields) String(name string) string {
	if c == nil || c.Fields == nil {
		return ""
	}
	s, _ := c.Fields[name].(string)
	return s
}

type Cart struct {
	ID                   string                `json:"id"`
	Version              int64                 `json:"version"`
	CreatedAt            time.Time             `json:"createdAt"`
	LastModifiedAt       time.Time             `json:"lastModifiedAt"`
	CustomerID           string                `json:"customerId,omitempty"`
	CustomerEmail        string                `json:"customerEmail,omitempty"`
	Country              string                `json:"country,omitempty"`
	TotalPrice           Money                 `json:"totalPrice"`
	LineItems            []LineItem            `json:"lineItems"`
	CustomLineItems      []CustomLineItem      `json:"customLineItems"`
	ShippingAddress      *Address              `json:"shippingAddress,omitempty"`
	BillingAddress       *Address              `json:"billingAddress,omitempty"`
	DiscountCodes        []DiscountCodeInfo    `json:"discountCodes"`
	DirectDiscounts      []DirectDiscount      `json:"directDiscounts,omitempty"`
	DiscountOnTotalPrice *DiscountOnTotalPrice `json:"discountOnTotalPrice,omitempty"`
	Custom               *CustomFields         `json:"custom,omitempty"`
}

type Order struct {
	ID                   string                `json:"id"`
	Version              int64                 `json:"version"`
	OrderNumber          string                `json:"orderNumber,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	CustomerID           string                `json:"customerId,omitempty"`
	CustomerEmail        string                `json:"customerEmail,omitempty"`
	Country              string                `json:"country,omitempty"`
	TotalPrice           Money                 `json:"totalPrice"`
	LineItems            []LineItem            `json:"lineItems"`
	DiscountCodes        []DiscountCodeInfo    `json:"discountCodes"`
	DiscountOnTotalPrice *DiscountOnTotalPrice `json:"discountOnTotalPrice,omitempty"`
	Cart                 *Reference            `json:"cart,omitempty"`
	Custom               *CustomFields         `json:"custom,omitempty"`
}

type Customer struct {
	ID                       string    `json:"id"`
	Email                    string    `json:"email"`
	FirstName                string    `json:"firstName,omitempty"`
	LastName                 string    `json:"lastName,omitempty"`
	Addresses                []Address `json:"addresses"`
	DefaultShippingAddressID string    `json:"defaultShippingAddressId,omitempty"`
}

// DefaultShippingAddress returns the customer's default shipping address when it
// carries every field a cart address needs.
func (c *Customer) DefaultShippingAddress() *Address {
	if c == nil || c.DefaultShippingAddressID == "" {
		return nil
	}
	for i := range c.Addresses {
		a := c.Addresses[i]
		if a.ID != c.DefaultShippingAddressID {
			continue
		}
		if a.StreetName == "" || a.City == "" || a.Country == "" || a.PostalCode == "" {
			return nil
		}
		return &a
	}
	return nil
}

type CartUpdate struct {
	Version int64 `json:"version"`
	Actions []any `json:"actions"`
}

type SetDirectDiscountsAction struct {
	Action    string                `json:"action"`
	Discounts []DirectDiscountDraft `json:"discounts"`
}

func NewSetDirectDiscounts(discounts ...DirectDiscountDraft) SetDirectDiscountsAction {
	return SetDirectDiscountsAction{Action: "setDirectDiscounts", Discounts: discounts}
}

type PagedQueryResponse[T any] struct {
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Count   int `json:"count"`
	Total   int `json:"total,omitempty"`
	Results []T `json:"results"`
}
