package consumer

import (
	"context"
	"sync"

	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/warehouse"
)

type MockWriter struct {
	mu     sync.Mutex
	links  []warehouse.LinkCreatedRow
	orders []warehouse.OrderConversionRow
	err    error
}

func (m *MockWriter) InsertLinkCreated(_ context.Context, row warehouse.LinkCreatedRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.links = append(m.links, row)
	return nil
}

func (m *MockWriter) InsertOrderConversion(_ context.Context, row warehouse.OrderConversionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, row)
	return nil
}

func (m *MockWriter) linkRows() []warehouse.LinkCreatedRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]warehouse.LinkCreatedRow(nil), m.links...)
}

type MockOrders struct {
	order  *commercetools.Order
	err    error
	expand []string
	ids    []string
}

func (m *MockOrders) GetOrder(_ context.Context, orderID string, expand ...string) (*commercetools.Order, error) {
	m.ids = append(m.ids, orderID)
	m.expand = expand
	return m.order, m.err
}
