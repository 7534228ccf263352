package values

type Config interface {
}

// PricingValues are the storefront-wide defaults applied when importing
// supplier products.
type PricingValues struct {
	MarkupPercent   float64 `yaml:"markup-percent"`
	DefaultShipping float64 `yaml:"default-shipping"`
	Currency        string  `yaml:"currency"`
}

func (v PricingValues) WithDefaults() PricingValues {
	if v.MarkupPercent <= 0 {
		v.MarkupPercent = 40
	}
	if v.DefaultShipping <= 0 {
		v.DefaultShipping = 9.99
	}
	if v.Currency == "" {
		v.Currency = "USD"
	}
	return v
}
