package commercetools

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrMissingProjectKey = errors.New("missing commercetools project key")
)

const (
	codeDiscountCodeNonApplicable = "DiscountCodeNonApplicable"
	codeConcurrentModification    = "ConcurrentModification"
)

type ErrorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is the error body the platform returns for every non-2xx response.
type APIError struct {
	StatusCode int           `json:"statusCode"`
	Message    string        `json:"message"`
	Errors     []ErrorObject `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("commercetools: status %d", e.StatusCode)
	}
	return fmt.Sprintf("commercetools: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) hasCode(code string) bool {
	for _, o := range e.Errors {
		if o.Code == code {
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status of the platform error wrapped in err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsDiscountCodeError reports whether the platform rejected a discount code,
// either with the dedicated error code or a 400 whose message names one.
func IsDiscountCodeError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.hasCode(codeDiscountCodeNonApplicable) {
		return true
	}
	if apiErr.StatusCode != 400 {
		return false
	}
	if strings.Contains(strings.ToLower(apiErr.Message), "discount code") {
		return true
	}
	for _, o := range apiErr.Errors {
		if strings.Contains(strings.ToLower(o.Message), "discount code") {
			return true
		}
	}
	return false
}

func IsConcurrentModification(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 409 || apiErr.hasCode(codeConcurrentModification)
}

func IsNotFound(err error) bool {
	return StatusCode(err) == 404
}

// isClientError is used by the circuit breaker: 4xx answers (except 429) prove the upstream is healthy.
func isClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500 && code != 429
}
