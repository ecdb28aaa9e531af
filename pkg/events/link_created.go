package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TopicLinkCreated     = "link-created-events"
	EventTypeLinkCreated = "link.created"
)

var ErrInvalidEvent = errors.New("invalid link created event")

type Product struct {
	ProductID  string `json:"productId"`
	Quantity   int64  `json:"quantity"`
	CentAmount int64  `json:"centAmount"`
}

// DirectDiscount is normalised: Value is a percentage for relative discounts
// and an amount in major units for absolute ones.
type DirectDiscount struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// LinkCreated is published once per generated link and never updated.
type LinkCreated struct {
	LinkID         string          `json:"linkId"`
	CartID         string          `json:"cartId"`
	CreatedAt      string          `json:"createdAt"`
	CustomerID     string          `json:"customerId,omitempty"`
	CustomerEmail  string          `json:"customerEmail,omitempty"`
	Currency       string          `json:"currency"`
	Country        string          `json:"country"`
	TotalAmount    int64           `json:"totalAmount"`
	Products       []Product       `json:"products"`
	DiscountCode   string          `json:"discountCode,omitempty"`
	DirectDiscount *DirectDiscount `json:"directDiscount,omitempty"`
}

func (e LinkCreated) Validate() error {
	if e.LinkID == "" {
		return fmt.Errorf("%w: missing linkId", ErrInvalidEvent)
	}
	if e.CartID == "" {
		return fmt.Errorf("%w: missing cartId", ErrInvalidEvent)
	}
	return nil
}

func Encode(e LinkCreated) ([]byte, error) {
	if e.Products == nil {
		e.Products = []Product{}
	}
	return json.Marshal(e)
}

func Decode(data []byte) (LinkCreated, error) {
	var e LinkCreated
	if err := json.Unmarshal(data, &e); err != nil {
		return LinkCreated{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return LinkCreated{}, err
	}
	return e, nil
}
