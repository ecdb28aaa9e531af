package commercetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const linkIDPredicate = "custom(fields(linkId=:linkId))"

func (c *Client) CreateCart(ctx context.Context, draft CartDraft) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodPost, c.projectURL("/carts"), nil, draft, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateCart(ctx context.Context, cartID string, version int64, actions ...any) (*Cart, error) {
	var cart Cart
	body := CartUpdate{Version: version, Actions: actions}
	if err := c.do(ctx, http.MethodPost, c.projectURL("/carts/"+url.PathEscape(cartID)), nil, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// QueryCarts runs a cart query predicate. Values in vars are sent as var.<name>
// parameters and bound by the platform, never interpolated into where.
func (c *Client) QueryCarts(ctx context.Context, where string, vars map[string]string, limit int) ([]Cart, error) {
	q := url.Values{}
	q.Set("where", where)
	for name, v := range vars {
		q.Set("var."+name, v)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var page PagedQueryResponse[Cart]
	if err := c.do(ctx, http.MethodGet, c.projectURL("/carts"), q, nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (c *Client) FindCartByLinkID(ctx context.Context, linkID string) (*Cart, error) {
	carts, err := c.QueryCarts(ctx, linkIDPredicate, map[string]string{"linkId": linkID}, 1)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, ErrCartNotFound
	}
	return &carts[0], nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string, expand ...string) (*Order, error) {
	var q url.Values
	if len(expand) > 0 {
		q = url.Values{"expand": expand}
	}
	var order Order
	if err := c.do(ctx, http.MethodGet, c.projectURL("/orders/"+url.PathEscape(orderID)), q, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodGet, c.projectURL("/customers/"+url.PathEscape(customerID)), nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CheckoutSession keeps the raw session payload so callers can pass it through untouched.
type CheckoutSession struct {
	ID  string
	Raw json.RawMessage
}

type sessionRequest struct {
	Cart     sessionCart     `json:"cart"`
	Metadata sessionMetadata `json:"metadata"`
}

type sessionCart struct {
	CartRef sessionCartRef `json:"cartRef"`
}

type sessionCartRef struct {
	ID string `json:"id"`
}

type sessionMetadata struct {
	ApplicationKey string `json:"applicationKey"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, cartID, applicationKey string) (*CheckoutSession, error) {
	body := sessionRequest{
		Cart:     sessionCart{CartRef: sessionCartRef{ID: cartID}},
		Metadata: sessionMetadata{ApplicationKey: applicationKey},
	}
	endpoint := strings.TrimRight(c.cfg.SessionURL, "/") + "/" + c.cfg.ProjectKey + "/sessions"

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, endpoint, nil, body, &raw); err != nil {
		return nil, err
	}
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if head.ID == "" {
		return nil, errors.New("checkout session response has no id")
	}
	return &CheckoutSession{ID: head.ID, Raw: raw}, nil
}

// SessionURLForRegion derives the checkout session host from the API host region,
// e.g. https://api.europe-west1.gcp.commercetools.com -> https://session.europe-west1.gcp.commercetools.com.
func SessionURLForRegion(region string) string {
	return "https://session." + region + ".commercetools.com"
}

// OrderExpandDiscountCodes makes GetOrder return discount code objects inline.
const OrderExpandDiscountCodes = "discountCodes[*].discountCode"
