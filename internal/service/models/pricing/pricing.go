package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/velouria/commerce/internal/service/models/cart"
	"github.com/velouria/commerce/internal/service/models/currency"
)

// CountryCode selects the active pricing rule for a storefront visitor.
type CountryCode string

const (
	CountryUS CountryCode = "US"
	CountryEU CountryCode = "EU"
	CountryME CountryCode = "ME"
	CountryIN CountryCode = "IN"

	// DefaultCountry is used when a visitor's country code has no rule.
	DefaultCountry = CountryIN
)

// Rule holds the per-country pricing parameters: how base-currency amounts
// are converted for display and how shipping is charged.
type Rule struct {
	Country          CountryCode       `json:"country"`
	Currency         currency.Currency `json:"currency"`
	Symbol           string            `json:"symbol"`
	ConversionFactor decimal.Decimal   `json:"conversionFactor"`
	// RoundPlaces is the number of decimal places displayed amounts are
	// rounded to. 0 keeps whole-unit rounding; currencies that need cents
	// can set 2 without touching the engine.
	RoundPlaces           int32           `json:"roundPlaces"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	FlatShippingFee       decimal.Decimal `json:"flatShippingFee"`
}

// Rules maps country codes to their active rule. Exactly one rule applies
// to a request; unknown codes fall back to DefaultCountry.
type Rules map[CountryCode]Rule

// DefaultRules returns the built-in rule table.
func DefaultRules() Rules {
	return Rules{
		CountryIN: {
			Country:               CountryIN,
			Currency:              currency.CurrencyINR,
			Symbol:                "₹",
			ConversionFactor:      decimal.NewFromInt(1),
			FreeShippingThreshold: decimal.NewFromInt(8000),
			FlatShippingFee:       decimal.NewFromInt(80),
		},
		CountryUS: {
			Country:               CountryUS,
			Currency:              currency.CurrencyUSD,
			Symbol:                "$",
			ConversionFactor:      decimal.RequireFromString("0.013"),
			FreeShippingThreshold: decimal.NewFromInt(100),
			FlatShippingFee:       decimal.NewFromInt(10),
		},
		CountryEU: {
			Country:               CountryEU,
			Currency:              currency.CurrencyEUR,
			Symbol:                "€",
			ConversionFactor:      decimal.RequireFromString("0.012"),
			FreeShippingThreshold: decimal.NewFromInt(90),
			FlatShippingFee:       decimal.NewFromInt(9),
		},
		CountryME: {
			Country:               CountryME,
			Currency:              currency.CurrencyAED,
			Symbol:                "د.إ",
			ConversionFactor:      decimal.RequireFromString("0.044"),
			FreeShippingThreshold: decimal.NewFromInt(400),
			FlatShippingFee:       decimal.NewFromInt(40),
		},
	}
}

// Lookup returns the rule for code, falling back to DefaultCountry for
// unknown codes. Total over all string inputs.
func (r Rules) Lookup(code string) Rule {
	if rule, ok := r[CountryCode(code)]; ok {
		return rule
	}

	return r[DefaultCountry]
}

// Price is a converted, display-ready amount.
type Price struct {
	Symbol   string            `json:"symbol"`
	Currency currency.Currency `json:"currency"`
	Value    decimal.Decimal   `json:"value"`
}

// Resolve converts a base-currency amount (minor units) into the rule's
// display currency, rounded at the rule's granularity.
func (r Rule) Resolve(baseUnitCents int64) Price {
	base := decimal.New(baseUnitCents, -2)

	return Price{
		Symbol:   r.Symbol,
		Currency: r.Currency,
		Value:    base.Mul(r.ConversionFactor).Round(r.RoundPlaces),
	}
}

// Totals is the derived pricing breakdown for a cart.
type Totals struct {
	Country    CountryCode       `json:"country"`
	Currency   currency.Currency `json:"currency"`
	Symbol     string            `json:"symbol"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Shipping   decimal.Decimal   `json:"shipping"`
	GrandTotal decimal.Decimal   `json:"grandTotal"`
}

// MinorUnits returns the grand total in the display currency's minor units,
// the denomination payment gateways charge in.
func (t Totals) MinorUnits() int64 {
	return t.GrandTotal.Shift(2).IntPart()
}

// ComputeTotals prices a cart under a rule. Each line item's unit price is
// converted and rounded individually, then multiplied by its quantity and
// summed; rounding the aggregate instead would diverge from the per-item
// prices shown to the customer. Shipping is free once the subtotal reaches
// the threshold (non-strict), otherwise the flat fee applies.
func ComputeTotals(items []cart.LineItem, rule Rule) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		unit := rule.Resolve(item.UnitPriceCents)
		subtotal = subtotal.Add(unit.Value.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	shipping := decimal.Zero
	if subtotal.LessThan(rule.FreeShippingThreshold) {
		shipping = rule.FlatShippingFee
	}

	return Totals{
		Country:    rule.Country,
		Currency:   rule.Currency,
		Symbol:     rule.Symbol,
		Subtotal:   subtotal,
		Shipping:   shipping,
		GrandTotal: subtotal.Add(shipping),
	}
}
