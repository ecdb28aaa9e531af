package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/cartlink/pkg/commercetools"
	"github.com/fjod/cartlink/pkg/events"
)

var (
	hundred = decimal.NewFromInt(100)

	zeroDecimalCurrencies = map[string]bool{"JPY": true, "KRW": true, "VND": true, "CLP": true, "ISK": true}
)

// DirectDiscountInput is a one-off cart discount. Value is a percentage (0-100)
// for relative discounts and an amount in major units for absolute ones.
type DirectDiscountInput struct {
	Type         string          `json:"type"`
	Value        decimal.Decimal `json:"value"`
	CurrencyCode string          `json:"currencyCode,omitempty"`
}

func (d DirectDiscountInput) Validate(cartCurrency string) error {
	switch d.Type {
	case commercetools.DiscountTypeRelative:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return invalid("directDiscount.value", "%w: relative value must be between 0 and 100", ErrInvalidDiscount)
		}
	case commercetools.DiscountTypeAbsolute:
		if d.Value.IsNegative() {
			return invalid("directDiscount.value", "%w: absolute value must not be negative", ErrInvalidDiscount)
		}
		if d.CurrencyCode != "" && !strings.EqualFold(d.CurrencyCode, cartCurrency) {
			return invalid("directDiscount.currencyCode", "%w: %s does not match cart currency %s", ErrInvalidDiscount, d.CurrencyCode, cartCurrency)
		}
	default:
		return invalid("directDiscount.type", "%w: unknown type %q", ErrInvalidDiscount, d.Type)
	}
	return nil
}

// Draft converts the discount to the platform's cart-level discount on the total price.
func (d DirectDiscountInput) Draft(cartCurrency string) (commercetools.DirectDiscountDraft, error) {
	if err := d.Validate(cartCurrency); err != nil {
		return commercetools.DirectDiscountDraft{}, err
	}
	value := commercetools.CartDiscountValue{Type: d.Type}
	if d.Type == commercetools.DiscountTypeRelative {
		permyriad := d.Value.Mul(hundred).Round(0).IntPart()
		value.Permyriad = &permyriad
	} else {
		currency := strings.ToUpper(d.CurrencyCode)
		if currency == "" {
			currency = strings.ToUpper(cartCurrency)
		}
		value.Money = []commercetools.Money{{
			CurrencyCode: currency,
			CentAmount:   MinorUnits(d.Value, currency),
		}}
	}
	return commercetools.DirectDiscountDraft{
		Value:  value,
		Target: commercetools.CartDiscountTarget{Type: commercetools.TargetTotalPrice},
	}, nil
}

func (d DirectDiscountInput) Event() *events.DirectDiscount {
	return &events.DirectDiscount{Type: d.Type, Value: d.Value.InexactFloat64()}
}

// MinorUnits converts a major-unit amount into the currency's smallest unit, rounding half away from zero.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	digits := int32(2)
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		digits = 0
	}
	return amount.Shift(digits).Round(0).IntPart()
}
