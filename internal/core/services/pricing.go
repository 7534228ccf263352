package services

import (
	"math"

	"luxemarket_api/config/values"
	"luxemarket_api/internal/core/models"
)

// shippingRates is the flat per-country shipping table used when pricing
// imported products. Countries outside the table fall back to the configured
// default rate.
var shippingRates = map[string]float64{
	"US": 6.99,
	"CA": 7.99,
	"GB": 5.99,
	"DE": 5.99,
	"FR": 5.99,
	"IT": 6.49,
	"ES": 6.49,
	"SA": 12.99,
	"AE": 12.99,
	"KW": 13.99,
	"QA": 13.99,
	"AU": 9.99,
	"JP": 8.99,
}

// PricingEngine turns supplier cost and shipping into the storefront retail
// price. FinalPrice is deterministic and side-effect free: same inputs,
// same output, no clock and no state.
type PricingEngine struct {
	markupPercent   float64
	defaultShipping float64
	currency        string
}

func NewPricingEngine(v values.PricingValues) *PricingEngine {
	v = v.WithDefaults()
	return &PricingEngine{
		markupPercent:   v.MarkupPercent,
		defaultShipping: v.DefaultShipping,
		currency:        v.Currency,
	}
}

// FinalPrice applies the markup to landed cost and charm-rounds up to the
// next .99 boundary. Never returns less than 0.99.
func (e *PricingEngine) FinalPrice(cost, shipping float64) models.Price {
	base := (cost + shipping) * (1 + e.markupPercent/100)
	amount := math.Ceil(base) - 0.01
	if amount < 0.99 {
		amount = 0.99
	}
	return models.Price{Amount: amount, Currency: e.currency}
}

// ShippingFor returns the flat shipping rate for a country code. The second
// return value is false when the country is unknown and the default was used.
func (e *PricingEngine) ShippingFor(countryCode string) (float64, bool) {
	if rate, ok := shippingRates[countryCode]; ok {
		return rate, true
	}
	return e.defaultShipping, false
}
