package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
)

// CurrencyNormalizer converts amounts between the currencies of two countries
// using rates from a RateSource. Conversions toward a country outside the
// serviced set are redirected to the United States rate.
type CurrencyNormalizer struct {
	rates RateSource
}

// NewCurrencyNormalizer constructs a normalizer backed by the given rate source.
func NewCurrencyNormalizer(rates RateSource) (*CurrencyNormalizer, error) {
	if rates == nil {
		return nil, errors.New("currency normalizer: rate source is required")
	}
	return &CurrencyNormalizer{rates: rates}, nil
}

// EffectiveTarget maps a conversion target country onto one with a known
// currency. Countries outside the serviced set use the US rate.
func EffectiveTarget(country CountryCode) CountryCode {
	if !domain.IsSourceCountry(country) {
		return domain.DestinationFallbackCountry
	}
	return country
}

// Rate resolves the multiplier converting one unit of from's currency into
// to's currency, applying the destination fallback for unserviced targets.
func (n *CurrencyNormalizer) Rate(ctx context.Context, from, to CountryCode) (decimal.Decimal, error) {
	to = EffectiveTarget(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	fromCur, ok := domain.CurrencyForCountry(from)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no currency for country %s", domain.ErrUnsupportedCurrency, from)
	}
	toCur, ok := domain.CurrencyForCountry(to)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no currency for country %s", domain.ErrUnsupportedCurrency, to)
	}
	return n.rates.ExchangeRate(ctx, fromCur, toCur)
}

// Convert applies Rate to an amount and reports the rate used.
func (n *CurrencyNormalizer) Convert(ctx context.Context, amount decimal.Decimal, from, to CountryCode) (decimal.Decimal, decimal.Decimal, error) {
	rate, err := n.Rate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return amount.Mul(rate), rate, nil
}
