package domain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultStreetName   = "Default Street"
	defaultStreetNumber = "1"
)

type AddressTemplate struct {
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	PostalCode string `yaml:"postalCode"`
}

type Region struct {
	Country string          `yaml:"country"`
	Address AddressTemplate `yaml:"address"`
}

// CurrencyResolver maps a currency code to the country a cart is created in
// and the address used when the customer has none.
type CurrencyResolver struct {
	regions map[string]Region
}

func DefaultRegions() map[string]Region {
	return map[string]Region{
		"AUD": {Country: "AU", Address: AddressTemplate{City: "Sydney", State: "NSW", PostalCode: "2000"}},
		"NZD": {Country: "NZ", Address: AddressTemplate{City: "Auckland", State: "Auckland", PostalCode: "1010"}},
		"USD": {Country: "US", Address: AddressTemplate{City: "New York", State: "NY", PostalCode: "10001"}},
		"EUR": {Country: "DE", Address: AddressTemplate{City: "Berlin", State: "Berlin", PostalCode: "10115"}},
		"GBP": {Country: "GB", Address: AddressTemplate{City: "London", State: "Greater London", PostalCode: "SW1A 1AA"}},
	}
}

func NewCurrencyResolver(regions map[string]Region) *CurrencyResolver {
	m := make(map[string]Region, len(regions))
	for code, r := range regions {
		m[strings.ToUpper(code)] = r
	}
	return &CurrencyResolver{regions: m}
}

type currencyFile struct {
	Currencies map[string]Region `yaml:"currencies"`
}

// LoadCurrencyResolver reads a YAML currency map. Every entry must name a country
// and a complete address template.
func LoadCurrencyResolver(path string) (*CurrencyResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currency map: %w", err)
	}
	var f currencyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse currency map: %w", err)
	}
	if len(f.Currencies) == 0 {
		return nil, fmt.Errorf("currency map %s has no currencies", path)
	}
	for code, r := range f.Currencies {
		if r.Country == "" || r.Address.City == "" || r.Address.PostalCode == "" {
			return nil, fmt.Errorf("currency %s: country, city and postalCode are required", code)
		}
	}
	return NewCurrencyResolver(f.Currencies), nil
}

func (c *CurrencyResolver) Resolve(currency string) (Region, error) {
	r, ok := c.regions[strings.ToUpper(strings.TrimSpace(currency))]
	if !ok {
		return Region{}, &ValidationError{Field: "currency", Err: fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)}
	}
	return r, nil
}

func (c *CurrencyResolver) Currencies() []string {
	out := make([]string, 0, len(c.regions))
	for code := range c.regions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
