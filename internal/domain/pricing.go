package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBreakdown captures the pre-shipping cost of a shipment in both the origin
// country's currency and the destination country's currency.
type PriceBreakdown struct {
	SourceCountry       CountryCode
	DestinationCountry  CountryCode
	SourceCurrency      CurrencyCode
	DestinationCurrency CurrencyCode

	ItemPriceSource         decimal.Decimal
	DomesticCourierCharge   decimal.Decimal
	WarehouseHandlingCharge decimal.Decimal
	TotalSource             decimal.Decimal

	ItemPriceDestination decimal.Decimal
	TotalDestination     decimal.Decimal

	// ExchangeRate is the source→destination rate applied to produce the destination leg.
	ExchangeRate decimal.Decimal
}

// ShippingEstimate records the international shipping cost computed from weight and
// volumetric inputs, plus the service and destination charges layered on top.
type ShippingEstimate struct {
	VolumetricWeightKg    decimal.Decimal
	WeightCharge          decimal.Decimal
	VolumeCharge          decimal.Decimal
	RatePerKg             decimal.Decimal
	RateCurrency          CurrencyCode
	InternationalShipping decimal.Decimal
	ServiceChargePercent  decimal.Decimal
	ServiceCharge         decimal.Decimal
	DestinationCharge     decimal.Decimal
	ShippingTotal         decimal.Decimal
}

// Quote is the derived value object produced by one calculation. It has no lifecycle of
// its own; every input change produces a fresh quote.
type Quote struct {
	ID string

	// SnapshotKey fingerprints the inputs that produced this quote so callers can
	// discard results from superseded in-flight calculations.
	SnapshotKey string

	Breakdown PriceBreakdown

	// Shipping is nil when neither weight nor valid dimensions were supplied, or when
	// the route is not transportable. A nil estimate is not free shipping.
	Shipping *ShippingEstimate

	// Transportable is false when no rate exists for the route anywhere, not even in
	// the static fallback tables. It is a normal outcome, not an error.
	Transportable bool

	GrandTotal decimal.Decimal
	CreatedAt  time.Time
}
