package service

import (
	"errors"
	"fmt"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/pkg/commercetools"
)

var (
	ErrLinkNotFound     = errors.New("link not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrLedgerDisabled   = errors.New("link ledger is not configured")
)

type Category string

const (
	CategoryValidation          Category = "validation"
	CategoryInvalidDiscountCode Category = "invalid_discount_code"
	CategoryInvalidCart         Category = "invalid_cart"
	CategoryVersionConflict     Category = "version_conflict"
	CategoryUpstream            Category = "upstream"
)

// LinkError tags a failed link creation with what went wrong and which remote
// objects already exist, so orphans can be found.
type LinkError struct {
	Category Category
	LinkID   string
	CartID   string
	Err      error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("create link %s (%s): %v", e.LinkID, e.Category, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

func classify(err error) Category {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return CategoryValidation
	case commercetools.IsDiscountCodeError(err):
		return CategoryInvalidDiscountCode
	case commercetools.IsConcurrentModification(err):
		return CategoryVersionConflict
	case commercetools.StatusCode(err) == 400:
		return CategoryInvalidCart
	default:
		return CategoryUpstream
	}
}
