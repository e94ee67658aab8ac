package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
)

// repoStatusErr mimics the categorised errors the persistence layer returns.
type repoStatusErr struct {
	notFound    bool
	unavailable bool
}

func (e *repoStatusErr) Error() string {
	if e.notFound {
		return "document not found"
	}
	return "backend unavailable"
}

func (e *repoStatusErr) IsNotFound() bool    { return e.notFound }
func (e *repoStatusErr) IsUnavailable() bool { return e.unavailable }

var (
	errStoreMiss = &repoStatusErr{notFound: true}
	errStoreDown = &repoStatusErr{unavailable: true}
)

type fakeExchangeRateRepo struct {
	rates map[string]decimal.Decimal
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeExchangeRateRepo) FindRate(_ context.Context, from, to domain.CurrencyCode) (domain.ExchangeRate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return domain.ExchangeRate{}, f.err
	}
	rate, ok := f.rates[fmt.Sprintf("%s_%s", from, to)]
	if !ok {
		return domain.ExchangeRate{}, errStoreMiss
	}
	return domain.ExchangeRate{From: from, To: to, Rate: rate}, nil
}

type fakeSourceCountryRepo struct {
	configs map[domain.CountryCode]domain.SourceCountryConfig
	err     error
}

func (f *fakeSourceCountryRepo) FindByCountry(_ context.Context, country domain.CountryCode) (domain.SourceCountryConfig, error) {
	if f.err != nil {
		return domain.SourceCountryConfig{}, f.err
	}
	cfg, ok := f.configs[country]
	if !ok {
		return domain.SourceCountryConfig{}, errStoreMiss
	}
	return cfg, nil
}

type fakeShippingRateRepo struct {
	rates map[string]decimal.Decimal
	err   error
}

func (f *fakeShippingRateRepo) FindRate(_ context.Context, origin, destination domain.CountryCode, category domain.RateCategory) (domain.ShippingRate, error) {
	if f.err != nil {
		return domain.ShippingRate{}, f.err
	}
	rate, ok := f.rates[fmt.Sprintf("%s_%s_%s", origin, destination, category)]
	if !ok {
		return domain.ShippingRate{}, errStoreMiss
	}
	return domain.ShippingRate{Origin: origin, Destination: destination, Category: category, RatePerKg: rate}, nil
}

type fakeServiceChargeRepo struct {
	charges map[string]decimal.Decimal
	err     error
}

func (f *fakeServiceChargeRepo) FindByService(_ context.Context, service string) (domain.ServiceChargeConfig, error) {
	if f.err != nil {
		return domain.ServiceChargeConfig{}, f.err
	}
	pct, ok := f.charges[service]
	if !ok {
		return domain.ServiceChargeConfig{}, errStoreMiss
	}
	return domain.ServiceChargeConfig{Service: service, Percent: pct}, nil
}

type fakeDestinationChargeRepo struct {
	charges map[domain.CountryCode]decimal.Decimal
	err     error
}

func (f *fakeDestinationChargeRepo) FindByCountry(_ context.Context, country domain.CountryCode) (domain.DomesticDestinationCharge, error) {
	if f.err != nil {
		return domain.DomesticDestinationCharge{}, f.err
	}
	amount, ok := f.charges[country]
	if !ok {
		return domain.DomesticDestinationCharge{}, errStoreMiss
	}
	return domain.DomesticDestinationCharge{Country: country, Amount: amount}, nil
}

// fakeRateSource stubs the resolver for pipeline tests that sit above it.
type fakeRateSource struct {
	exchange    map[string]decimal.Decimal
	exchangeErr error

	sourceConfigs map[domain.CountryCode]domain.SourceCountryConfig
	sourceErr     error

	shippingRates map[string]decimal.Decimal
	shippingErr   error

	servicePercent decimal.Decimal
	serviceErr     error

	destCharges map[domain.CountryCode]decimal.Decimal
	destErr     error

	mu    sync.Mutex
	calls []string
}

func (f *fakeRateSource) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRateSource) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			count++
		}
	}
	return count
}

func (f *fakeRateSource) ExchangeRate(_ context.Context, from, to CurrencyCode) (decimal.Decimal, error) {
	f.record(fmt.Sprintf("exchange:%s_%s", from, to))
	if f.exchangeErr != nil {
		return decimal.Decimal{}, f.exchangeErr
	}
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := f.exchange[fmt.Sprintf("%s_%s", from, to)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no exchange rate for %s->%s", ErrRouteNotTransportable, from, to)
	}
	return rate, nil
}

func (f *fakeRateSource) SourceConfig(_ context.Context, origin CountryCode) (domain.SourceCountryConfig, error) {
	f.record(fmt.Sprintf("source:%s", origin))
	if f.sourceErr != nil {
		return domain.SourceCountryConfig{}, f.sourceErr
	}
	if cfg, ok := f.sourceConfigs[origin]; ok {
		return cfg, nil
	}
	currency, _ := domain.CurrencyForCountry(origin)
	return domain.SourceCountryConfig{
		Country:                  origin,
		Currency:                 currency,
		DomesticCourierPercent:   decimal.NewFromInt(5),
		WarehouseHandlingPercent: decimal.NewFromInt(10),
	}, nil
}

func (f *fakeRateSource) ShippingRatePerKg(_ context.Context, origin, destination CountryCode, category RateCategory) (decimal.Decimal, error) {
	f.record(fmt.Sprintf("shipping:%s_%s_%s", origin, destination, category))
	if f.shippingErr != nil {
		return decimal.Decimal{}, f.shippingErr
	}
	rate, ok := f.shippingRates[fmt.Sprintf("%s_%s_%s", origin, destination, category)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no shipping rate from %s", ErrRouteNotTransportable, origin)
	}
	return rate, nil
}

func (f *fakeRateSource) ServiceChargePercent(_ context.Context, service string) (decimal.Decimal, error) {
	f.record(fmt.Sprintf("service:%s", service))
	if f.serviceErr != nil {
		return decimal.Decimal{}, f.serviceErr
	}
	if f.servicePercent.IsZero() {
		return decimal.NewFromInt(15), nil
	}
	return f.servicePercent, nil
}

func (f *fakeRateSource) DestinationCharge(_ context.Context, destination CountryCode) (decimal.Decimal, error) {
	f.record(fmt.Sprintf("destination:%s", destination))
	if f.destErr != nil {
		return decimal.Decimal{}, f.destErr
	}
	if charge, ok := f.destCharges[destination]; ok {
		return charge, nil
	}
	return decimal.NewFromInt(500), nil
}

var _ RateSource = (*fakeRateSource)(nil)
