package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/pkg/commercetools"
)

// GetCustomer fetches a customer through the in-process cache.
func (s *LinkService) GetCustomer(ctx context.Context, customerID string) (*commercetools.Customer, error) {
	if customerID == "" {
		return nil, &domain.ValidationError{Field: "customerId", Err: errors.New("customer id is required")}
	}
	if s.customers != nil {
		if c, ok := s.customers.Get(customerID); ok {
			return c, nil
		}
	}

	c, err := s.commerce.GetCustomer(ctx, customerID)
	if commercetools.IsNotFound(err) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if s.customers != nil {
		s.customers.Add(customerID, c)
	}
	return c, nil
}

func (s *LinkService) resolveCustomer(ctx context.Context, customerID string) (*commercetools.Customer, error) {
	if customerID == "" {
		return nil, nil
	}
	c, err := s.GetCustomer(ctx, customerID)
	if errors.Is(err, ErrCustomerNotFound) {
		return nil, &domain.ValidationError{Field: "customerId", Err: fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)}
	}
	return c, err
}
