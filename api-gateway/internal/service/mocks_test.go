package service

import (
	"context"
	"sync"

	"github.com/fjod/cartlink/api-gateway/internal/cache"
	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/events"
)

type updateCall struct {
	CartID  string
	Version int64
	Actions []any
}

type MockCommerce struct {
	mu sync.Mutex

	CreatedDrafts []commercetools.CartDraft
	Updates       []updateCall
	FindCalls     int
	CustomerCalls int
	SessionCarts  []string

	Cart        *commercetools.Cart
	CreateErr   error
	UpdateErr   error
	FindErr     error
	Customer    *commercetools.Customer
	CustomerErr error
	Session     *commercetools.CheckoutSession
	SessionErr  error

	// FindGate blocks FindCartByLinkID until closed or the call's context ends.
	FindGate chan struct{}
}

func (m *MockCommerce) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CreatedDrafts) + len(m.Updates) + m.FindCalls + m.CustomerCalls + len(m.SessionCarts)
}

func (m *MockCommerce) CreateCart(_ context.Context, draft commercetools.CartDraft) (*commercetools.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedDrafts = append(m.CreatedDrafts, draft)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Cart != nil {
		c := *m.Cart
		return &c, nil
	}
	items := make([]commercetools.LineItem, 0, len(draft.LineItems))
	var total int64
	for i, li := range draft.LineItems {
		items = append(items, commercetools.LineItem{
			ID:        "li-" + li.ProductID,
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Price:     commercetools.Price{Value: commercetools.Money{CurrencyCode: draft.Currency, CentAmount: int64(1000 * (i + 1))}},
		})
		total += int64(1000*(i+1)) * li.Quantity
	}
	return &commercetools.Cart{
		ID:            "cart-1",
		Version:       1,
		Country:       draft.Country,
		CustomerID:    draft.CustomerID,
		CustomerEmail: draft.CustomerEmail,
		TotalPrice:    commercetools.Money{CurrencyCode: draft.Currency, CentAmount: total},
		LineItems:     items,
	}, nil
}

func (m *MockCommerce) UpdateCart(_ context.Context, cartID string, version int64, actions ...any) (*commercetools.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, updateCall{CartID: cartID, Version: version, Actions: actions})
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	return &commercetools.Cart{ID: cartID, Version: version + 1, TotalPrice: commercetools.Money{CurrencyCode: "AUD", CentAmount: 500}}, nil
}

func (m *MockCommerce) FindCartByLinkID(ctx context.Context, linkID string) (*commercetools.Cart, error) {
	if m.FindGate != nil {
		select {
		case <-m.FindGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return &commercetools.Cart{ID: "cart-for-" + linkID, Version: 1}, nil
}

func (m *MockCommerce) GetCustomer(_ context.Context, _ string) (*commercetools.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CustomerCalls++
	return m.Customer, m.CustomerErr
}

func (m *MockCommerce) CreateCheckoutSession(_ context.Context, cartID, _ string) (*commercetools.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionCarts = append(m.SessionCarts, cartID)
	return m.Session, m.SessionErr
}

type MockQR struct {
	Contents []string
	Err      error
}

func (m *MockQR) PNG(content string) ([]byte, error) {
	m.Contents = append(m.Contents, content)
	return []byte("png:" + content), m.Err
}

type MockStore struct {
	Puts map[string][]byte
	Err  error
}

func (m *MockStore) Put(_ context.Context, linkID string, png []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Puts == nil {
		m.Puts = make(map[string][]byte)
	}
	m.Puts[linkID] = png
	return "https://storage.googleapis.com/qr-bucket/qr-codes/" + linkID + ".png", nil
}

type MockPublisher struct {
	Published []events.LinkCreated
	Err       error
}

func (m *MockPublisher) Publish(_ context.Context, e events.LinkCreated) error {
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, e)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

type MockLedger struct {
	Statuses   map[string]domain.LinkStatus
	CartIDs    map[string]string
	Payloads   map[string][]byte
	LastErrors map[string]string
	CreateErr  error
	UpdateErr  error
	Failed     []*repository.LinkRecord
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		Statuses:   map[string]domain.LinkStatus{},
		CartIDs:    map[string]string{},
		Payloads:   map[string][]byte{},
		LastErrors: map[string]string{},
	}
}

func (m *MockLedger) CreateLink(_ context.Context, linkID string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Statuses[linkID] = domain.LinkStatusInitiated
	return nil
}

func (m *MockLedger) set(linkID string, status domain.LinkStatus) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Statuses[linkID] = status
	return nil
}

func (m *MockLedger) SetQRStored(_ context.Context, linkID, _ string) error {
	return m.set(linkID, domain.LinkStatusQRStored)
}

func (m *MockLedger) SetCartCreated(_ context.Context, linkID, cartID string, _ int64) error {
	m.CartIDs[linkID] = cartID
	return m.set(linkID, domain.LinkStatusCartCreated)
}

func (m *MockLedger) SetDiscountApplied(_ context.Context, linkID string, _ int64) error {
	return m.set(linkID, domain.LinkStatusDiscountApplied)
}

func (m *MockLedger) SetEventPending(_ context.Context, linkID string, payload []byte) error {
	m.Payloads[linkID] = payload
	return m.set(linkID, domain.LinkStatusEventPending)
}

func (m *MockLedger) MarkPublished(_ context.Context, linkID string) error {
	return m.set(linkID, domain.LinkStatusPublished)
}

func (m *MockLedger) MarkFailed(_ context.Context, linkID, cause string) error {
	m.LastErrors[linkID] = cause
	return m.set(linkID, domain.LinkStatusFailed)
}

func (m *MockLedger) RecordPublishError(_ context.Context, linkID, cause string) error {
	m.LastErrors[linkID] = cause
	return nil
}

func (m *MockLedger) GetLink(_ context.Context, linkID string) (*repository.LinkRecord, error) {
	status, ok := m.Statuses[linkID]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return &repository.LinkRecord{LinkID: linkID, Status: status, CartID: m.CartIDs[linkID]}, nil
}

func (m *MockLedger) ListFailed(_ context.Context, _ int) ([]*repository.LinkRecord, error) {
	return m.Failed, nil
}

type MockLinkCache struct {
	mu      sync.Mutex
	Items   map[string]*commercetools.Cart
	GetErr  error
	Deleted []string
	setCh   chan string
}

func NewMockLinkCache() *MockLinkCache {
	return &MockLinkCache{Items: map[string]*commercetools.Cart{}, setCh: make(chan string, 10)}
}

func (m *MockLinkCache) Get(_ context.Context, linkID string) (*commercetools.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.Items[linkID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *MockLinkCache) Set(_ context.Context, linkID string, cart *commercetools.Cart) error {
	m.mu.Lock()
	m.Items[linkID] = cart
	m.mu.Unlock()
	m.setCh <- linkID
	return nil
}

func (m *MockLinkCache) Delete(_ context.Context, linkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Items, linkID)
	m.Deleted = append(m.Deleted, linkID)
	return nil
}
