package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidLinkID       = errors.New("invalid link id")
	ErrInvalidDiscount     = errors.New("invalid direct discount")
)

// ValidationError is returned for input rejected before any remote call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}
