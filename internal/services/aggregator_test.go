package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
	"github.com/parcelroute/api/internal/platform/config"
)

func newTestAggregator(t *testing.T, rates *fakeRateSource, base config.HandlingBase) *ShipmentAggregator {
	t.Helper()
	normalizer, err := NewCurrencyNormalizer(rates)
	if err != nil {
		t.Fatalf("NewCurrencyNormalizer: %v", err)
	}
	aggregator, err := NewShipmentAggregator(ShipmentAggregatorDeps{
		Rates:        rates,
		Normalizer:   normalizer,
		HandlingBase: base,
	})
	if err != nil {
		t.Fatalf("NewShipmentAggregator: %v", err)
	}
	return aggregator
}

func indiaToSriLankaRates() *fakeRateSource {
	return &fakeRateSource{exchange: map[string]decimal.Decimal{
		"INR_LKR": decimal.NewFromFloat(3.65),
		"USD_INR": decimal.NewFromInt(83),
	}}
}

func TestAggregateSingleCurrency(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItem)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(1000), Quantity: 2, Currency: domain.CurrencyINR},
	}
	breakdown, err := aggregator.Aggregate(context.Background(), items, domain.CountryIndia, domain.CountrySriLanka)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if !breakdown.ItemPriceSource.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected item price 2000, got %s", breakdown.ItemPriceSource)
	}
	if !breakdown.DomesticCourierCharge.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected courier charge 100, got %s", breakdown.DomesticCourierCharge)
	}
	if !breakdown.WarehouseHandlingCharge.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected handling charge 200, got %s", breakdown.WarehouseHandlingCharge)
	}
	if !breakdown.TotalSource.Equal(decimal.NewFromInt(2300)) {
		t.Fatalf("expected source total 2300, got %s", breakdown.TotalSource)
	}
	if !breakdown.TotalDestination.Equal(decimal.NewFromInt(8395)) {
		t.Fatalf("expected destination total 8395, got %s", breakdown.TotalDestination)
	}
	if !breakdown.ItemPriceDestination.Equal(decimal.NewFromInt(7300)) {
		t.Fatalf("expected destination item price 7300, got %s", breakdown.ItemPriceDestination)
	}
	if breakdown.SourceCurrency != domain.CurrencyINR || breakdown.DestinationCurrency != domain.CurrencyLKR {
		t.Fatalf("unexpected currencies: %s -> %s", breakdown.SourceCurrency, breakdown.DestinationCurrency)
	}
}

func TestAggregateHandlingBaseIncludesCourier(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItemPlusCourier)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(1000), Quantity: 2, Currency: domain.CurrencyINR},
	}
	breakdown, err := aggregator.Aggregate(context.Background(), items, domain.CountryIndia, domain.CountrySriLanka)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if !breakdown.WarehouseHandlingCharge.Equal(decimal.NewFromInt(210)) {
		t.Fatalf("expected handling charge 210 over item plus courier, got %s", breakdown.WarehouseHandlingCharge)
	}
	if !breakdown.TotalSource.Equal(decimal.NewFromInt(2310)) {
		t.Fatalf("expected source total 2310, got %s", breakdown.TotalSource)
	}
}

func TestAggregateMixedCurrencies(t *testing.T) {
	rates := indiaToSriLankaRates()
	aggregator := newTestAggregator(t, rates, config.HandlingBaseItem)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(1000), Quantity: 1, Currency: domain.CurrencyINR},
		{Price: decimal.NewFromInt(10), Quantity: 1, Currency: domain.CurrencyUSD},
	}
	breakdown, err := aggregator.Aggregate(context.Background(), items, domain.CountryIndia, domain.CountrySriLanka)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	// 1000 INR + 10 USD at 83 INR/USD.
	if !breakdown.ItemPriceSource.Equal(decimal.NewFromInt(1830)) {
		t.Fatalf("expected item price 1830, got %s", breakdown.ItemPriceSource)
	}
	if n := rates.callCount("exchange:USD_INR"); n != 1 {
		t.Fatalf("expected one USD->INR lookup, got %d", n)
	}
	if n := rates.callCount("exchange:INR_INR"); n != 0 {
		t.Fatalf("expected no INR->INR lookup, got %d", n)
	}
}

func TestAggregateRejectsEmptyItems(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItem)

	_, err := aggregator.Aggregate(context.Background(), nil, domain.CountryIndia, domain.CountrySriLanka)
	if !errors.Is(err, ErrAggregateInvalidInput) {
		t.Fatalf("expected ErrAggregateInvalidInput, got %v", err)
	}
}

func TestAggregateRejectsUnservicedOrigin(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItem)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(100), Quantity: 1, Currency: domain.CurrencyINR},
	}
	_, err := aggregator.Aggregate(context.Background(), items, domain.CountryCode("FR"), domain.CountrySriLanka)
	if !errors.Is(err, ErrAggregateInvalidInput) {
		t.Fatalf("expected ErrAggregateInvalidInput, got %v", err)
	}
}

func TestAggregateRejectsUnsupportedCurrency(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItem)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(100), Quantity: 1, Currency: domain.CurrencyCode("JPY")},
	}
	_, err := aggregator.Aggregate(context.Background(), items, domain.CountryIndia, domain.CountrySriLanka)
	if !errors.Is(err, domain.ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestAggregateRejectsNonPositiveQuantity(t *testing.T) {
	aggregator := newTestAggregator(t, indiaToSriLankaRates(), config.HandlingBaseItem)

	items := []domain.ShipmentItem{
		{Price: decimal.NewFromInt(100), Quantity: 0, Currency: domain.CurrencyINR},
	}
	_, err := aggregator.Aggregate(context.Background(), items, domain.CountryIndia, domain.CountrySriLanka)
	if !errors.Is(err, ErrAggregateInvalidInput) {
		t.Fatalf("expected ErrAggregateInvalidInput, got %v", err)
	}
}
