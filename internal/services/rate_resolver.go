package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	domain "github.com/parcelroute/api/internal/domain"
	"github.com/parcelroute/api/internal/repositories"
)

const rateResolverMetricNamespace = "github.com/parcelroute/api/internal/services"

var (
	// ErrRouteNotTransportable indicates no stored or fallback rate exists for the route.
	ErrRouteNotTransportable = errors.New("rate resolver: route not transportable")
	// ErrRateLookupFailed wraps store errors that are not plain misses.
	ErrRateLookupFailed = errors.New("rate resolver: lookup failed")
)

// Static defaults applied when a lookup misses. Exchange rates are
// approximate spot rates into LKR keyed by origin country.
var (
	fallbackExchangeRates = map[domain.CountryCode]decimal.Decimal{
		domain.CountryIndia:     decimal.NewFromFloat(3.65),
		domain.CountryMalaysia:  decimal.NewFromFloat(64.5),
		domain.CountryUAE:       decimal.NewFromFloat(81.5),
		domain.CountryUS:        decimal.NewFromInt(299),
		domain.CountrySriLanka:  decimal.NewFromInt(1),
		domain.CountrySingapore: decimal.NewFromInt(224),
	}

	fallbackCourierPercent     = decimal.NewFromInt(5)
	fallbackHandlingPercent    = decimal.NewFromInt(10)
	fallbackServicePercent     = decimal.NewFromInt(15)
	fallbackDestinationCharge  = decimal.NewFromInt(500)
	fallbackShippingRatesPerKg = map[domain.CountryCode]map[domain.RateCategory]decimal.Decimal{
		domain.CountryIndia: {
			domain.CategoryClothes:     decimal.NewFromInt(600),
			domain.CategoryElectronics: decimal.NewFromInt(1000),
			domain.CategoryLaptop:      decimal.NewFromInt(1200),
			domain.CategoryWatch:       decimal.NewFromInt(900),
			domain.CategoryMedicine:    decimal.NewFromInt(800),
			domain.CategoryOthers:      decimal.NewFromInt(700),
		},
		domain.CountryMalaysia: {
			domain.CategoryClothes:     decimal.NewFromInt(500),
			domain.CategoryElectronics: decimal.NewFromInt(900),
			domain.CategoryOthers:      decimal.NewFromInt(650),
		},
		domain.CountryUAE: {
			domain.CategoryClothes:     decimal.NewFromInt(750),
			domain.CategoryElectronics: decimal.NewFromInt(1100),
			domain.CategoryOthers:      decimal.NewFromInt(850),
		},
		domain.CountryUS: {
			domain.CategoryClothes:     decimal.NewFromInt(1400),
			domain.CategoryElectronics: decimal.NewFromInt(1900),
			domain.CategoryOthers:      decimal.NewFromInt(1600),
		},
		domain.CountrySingapore: {
			domain.CategoryClothes:     decimal.NewFromInt(550),
			domain.CategoryElectronics: decimal.NewFromInt(950),
			domain.CategoryOthers:      decimal.NewFromInt(700),
		},
		domain.CountrySriLanka: {
			domain.CategoryOthers: decimal.NewFromInt(500),
		},
	}
)

// RateResolver answers tariff lookups for the pricing pipeline. A missing
// document falls back to the static defaults above; any other store error
// is surfaced so callers abort instead of pricing with stale numbers.
type RateResolver struct {
	exchangeRates      repositories.ExchangeRateRepository
	sourceCountries    repositories.SourceCountryRepository
	shippingRates      repositories.ShippingRateRepository
	serviceCharges     repositories.ServiceChargeRepository
	destinationCharges repositories.DestinationChargeRepository

	logger *zap.Logger

	latency             metric.Float64Histogram
	latencyEnabled      bool
	fallbackHits        metric.Int64Counter
	fallbackHitsEnabled bool
}

// RateResolverDeps bundles constructor inputs for the resolver.
type RateResolverDeps struct {
	ExchangeRates      repositories.ExchangeRateRepository
	SourceCountries    repositories.SourceCountryRepository
	ShippingRates      repositories.ShippingRateRepository
	ServiceCharges     repositories.ServiceChargeRepository
	DestinationCharges repositories.DestinationChargeRepository
	Logger             *zap.Logger
	Meter              metric.Meter
}

// NewRateResolver constructs the resolver with the supplied repositories.
func NewRateResolver(deps RateResolverDeps) (*RateResolver, error) {
	if deps.ExchangeRates == nil {
		return nil, errors.New("rate resolver: exchange rate repository is required")
	}
	if deps.SourceCountries == nil {
		return nil, errors.New("rate resolver: source country repository is required")
	}
	if deps.ShippingRates == nil {
		return nil, errors.New("rate resolver: shipping rate repository is required")
	}
	if deps.ServiceCharges == nil {
		return nil, errors.New("rate resolver: service charge repository is required")
	}
	if deps.DestinationCharges == nil {
		return nil, errors.New("rate resolver: destination charge repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(rateResolverMetricNamespace)
	}

	latency, latencyErr := meter.Float64Histogram(
		"rates.lookup.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for tariff lookups"),
	)
	if latencyErr != nil {
		logger.Warn("rates: unable to register latency metric", zap.Error(latencyErr))
	}

	fallbackHits, fallbackErr := meter.Int64Counter(
		"rates.lookup.fallback_hits",
		metric.WithDescription("Count of tariff lookups served from static fallbacks"),
	)
	if fallbackErr != nil {
		logger.Warn("rates: unable to register fallback metric", zap.Error(fallbackErr))
	}

	return &RateResolver{
		exchangeRates:       deps.ExchangeRates,
		sourceCountries:     deps.SourceCountries,
		shippingRates:       deps.ShippingRates,
		serviceCharges:      deps.ServiceCharges,
		destinationCharges:  deps.DestinationCharges,
		logger:              logger,
		latency:             latency,
		latencyEnabled:      latencyErr == nil,
		fallbackHits:        fallbackHits,
		fallbackHitsEnabled: fallbackErr == nil,
	}, nil
}

var _ RateSource = (*RateResolver)(nil)

// ExchangeRate resolves the multiplier converting one unit of from into to.
// A missed lookup falls back to the static table keyed by the currency's
// country; a currency outside the fallback table makes the route unpriceable.
func (r *RateResolver) ExchangeRate(ctx context.Context, from, to CurrencyCode) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	start := time.Now()
	rate, err := r.exchangeRates.FindRate(ctx, from, to)
	if err == nil {
		r.recordLatency(ctx, "exchange_rate", "store", time.Since(start))
		return rate.Rate, nil
	}
	if !repositories.IsNotFound(err) {
		r.recordLatency(ctx, "exchange_rate", "error", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: exchange rate %s->%s: %v", ErrRateLookupFailed, from, to, err)
	}

	country, err := domain.CountryForCurrency(from)
	if err != nil {
		return decimal.Decimal{}, err
	}
	fallback, ok := fallbackExchangeRates[country]
	if !ok {
		r.recordLatency(ctx, "exchange_rate", "miss", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: no exchange rate for %s->%s", ErrRouteNotTransportable, from, to)
	}
	r.recordFallback(ctx, "exchange_rate")
	r.recordLatency(ctx, "exchange_rate", "fallback", time.Since(start))
	r.logger.Debug("rates: exchange rate fallback",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("rate", fallback.String()))
	return fallback, nil
}

// SourceConfig resolves per-origin charge percentages and the origin currency.
func (r *RateResolver) SourceConfig(ctx context.Context, origin CountryCode) (domain.SourceCountryConfig, error) {
	start := time.Now()
	cfg, err := r.sourceCountries.FindByCountry(ctx, origin)
	if err == nil {
		r.recordLatency(ctx, "source_country", "store", time.Since(start))
		return cfg, nil
	}
	if !repositories.IsNotFound(err) {
		r.recordLatency(ctx, "source_country", "error", time.Since(start))
		return domain.SourceCountryConfig{}, fmt.Errorf("%w: source country %s: %v", ErrRateLookupFailed, origin, err)
	}

	currency, ok := domain.CurrencyForCountry(origin)
	if !ok {
		return domain.SourceCountryConfig{}, fmt.Errorf("%w: unknown origin %s", ErrRouteNotTransportable, origin)
	}
	r.recordFallback(ctx, "source_country")
	r.recordLatency(ctx, "source_country", "fallback", time.Since(start))
	return domain.SourceCountryConfig{
		Country:                  origin,
		Currency:                 currency,
		DomesticCourierPercent:   fallbackCourierPercent,
		WarehouseHandlingPercent: fallbackHandlingPercent,
	}, nil
}

// ShippingRatePerKg resolves the per-kilogram tariff for a route. The stored
// category row wins; a miss widens to the origin's catch-all row, then to the
// static table. No row anywhere means the route is not transportable.
func (r *RateResolver) ShippingRatePerKg(ctx context.Context, origin, destination CountryCode, category RateCategory) (decimal.Decimal, error) {
	start := time.Now()
	rate, err := r.shippingRates.FindRate(ctx, origin, destination, category)
	if err == nil {
		r.recordLatency(ctx, "shipping_rate", "store", time.Since(start))
		return rate.RatePerKg, nil
	}
	if !repositories.IsNotFound(err) {
		r.recordLatency(ctx, "shipping_rate", "error", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: shipping rate %s->%s/%s: %v", ErrRateLookupFailed, origin, destination, category, err)
	}

	if category != domain.CategoryOthers {
		rate, err = r.shippingRates.FindRate(ctx, origin, destination, domain.CategoryOthers)
		if err == nil {
			r.recordLatency(ctx, "shipping_rate", "store", time.Since(start))
			return rate.RatePerKg, nil
		}
		if !repositories.IsNotFound(err) {
			r.recordLatency(ctx, "shipping_rate", "error", time.Since(start))
			return decimal.Decimal{}, fmt.Errorf("%w: shipping rate %s->%s/%s: %v", ErrRateLookupFailed, origin, destination, domain.CategoryOthers, err)
		}
	}

	byCategory, ok := fallbackShippingRatesPerKg[origin]
	if !ok {
		r.recordLatency(ctx, "shipping_rate", "miss", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: no shipping rate from %s", ErrRouteNotTransportable, origin)
	}
	fallback, ok := byCategory[category]
	if !ok {
		fallback, ok = byCategory[domain.CategoryOthers]
	}
	if !ok {
		r.recordLatency(ctx, "shipping_rate", "miss", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: no shipping rate from %s for %s", ErrRouteNotTransportable, origin, category)
	}
	r.recordFallback(ctx, "shipping_rate")
	r.recordLatency(ctx, "shipping_rate", "fallback", time.Since(start))
	r.logger.Debug("rates: shipping rate fallback",
		zap.String("origin", string(origin)),
		zap.String("destination", string(destination)),
		zap.String("category", string(category)),
		zap.String("rate_per_kg", fallback.String()))
	return fallback, nil
}

// ServiceChargePercent resolves the service fee percentage by service name.
func (r *RateResolver) ServiceChargePercent(ctx context.Context, service string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(service)
	start := time.Now()
	if trimmed != "" {
		cfg, err := r.serviceCharges.FindByService(ctx, trimmed)
		if err == nil {
			r.recordLatency(ctx, "service_charge", "store", time.Since(start))
			return cfg.Percent, nil
		}
		if !repositories.IsNotFound(err) {
			r.recordLatency(ctx, "service_charge", "error", time.Since(start))
			return decimal.Decimal{}, fmt.Errorf("%w: service charge %s: %v", ErrRateLookupFailed, trimmed, err)
		}
	}
	r.recordFallback(ctx, "service_charge")
	r.recordLatency(ctx, "service_charge", "fallback", time.Since(start))
	return fallbackServicePercent, nil
}

// DestinationCharge resolves the flat last-mile delivery charge for a country.
func (r *RateResolver) DestinationCharge(ctx context.Context, destination CountryCode) (decimal.Decimal, error) {
	start := time.Now()
	charge, err := r.destinationCharges.FindByCountry(ctx, destination)
	if err == nil {
		r.recordLatency(ctx, "destination_charge", "store", time.Since(start))
		return charge.Amount, nil
	}
	if !repositories.IsNotFound(err) {
		r.recordLatency(ctx, "destination_charge", "error", time.Since(start))
		return decimal.Decimal{}, fmt.Errorf("%w: destination charge %s: %v", ErrRateLookupFailed, destination, err)
	}
	r.recordFallback(ctx, "destination_charge")
	r.recordLatency(ctx, "destination_charge", "fallback", time.Since(start))
	return fallbackDestinationCharge, nil
}

func (r *RateResolver) recordLatency(ctx context.Context, lookup, source string, d time.Duration) {
	if !r.latencyEnabled {
		return
	}
	r.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("lookup", lookup),
		attribute.String("source", source),
	))
}

func (r *RateResolver) recordFallback(ctx context.Context, lookup string) {
	if !r.fallbackHitsEnabled {
		return
	}
	r.fallbackHits.Add(ctx, 1, metric.WithAttributes(attribute.String("lookup", lookup)))
}
