package services

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	CountryCode      = domain.CountryCode
	CurrencyCode     = domain.CurrencyCode
	RateCategory     = domain.RateCategory
	DeliveryOption   = domain.DeliveryOption
	Dimensions       = domain.Dimensions
	ShipmentItem     = domain.ShipmentItem
	PriceBreakdown   = domain.PriceBreakdown
	ShippingEstimate = domain.ShippingEstimate
	Quote            = domain.Quote
)

// QuoteService prices a shipment end to end: item aggregation, currency
// conversion, and the shipping estimate rolled into a single quote.
type QuoteService interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
}

// RateSource resolves every tariff the pricing pipeline consumes. Lookups
// that miss fall back to static defaults; lookups that fail abort.
type RateSource interface {
	ExchangeRate(ctx context.Context, from, to CurrencyCode) (decimal.Decimal, error)
	SourceConfig(ctx context.Context, origin CountryCode) (domain.SourceCountryConfig, error)
	ShippingRatePerKg(ctx context.Context, origin, destination CountryCode, category RateCategory) (decimal.Decimal, error)
	ServiceChargePercent(ctx context.Context, service string) (decimal.Decimal, error)
	DestinationCharge(ctx context.Context, destination CountryCode) (decimal.Decimal, error)
}
