package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	domain "github.com/parcelroute/api/internal/domain"
	"github.com/parcelroute/api/internal/platform/config"
)

var (
	// ErrAggregateInvalidInput signals bad shipment data such as missing items or
	// a non-positive quantity.
	ErrAggregateInvalidInput = errors.New("shipment aggregator: invalid input")
)

var percentDivisor = decimal.NewFromInt(100)

// ShipmentAggregator folds a multi-currency item list into a pre-shipping
// price breakdown expressed in the origin and destination currencies.
type ShipmentAggregator struct {
	rates        RateSource
	normalizer   *CurrencyNormalizer
	handlingBase config.HandlingBase
	logger       func(context.Context, string, map[string]any)
}

// ShipmentAggregatorDeps bundles constructor inputs for the aggregator.
type ShipmentAggregatorDeps struct {
	Rates        RateSource
	Normalizer   *CurrencyNormalizer
	HandlingBase config.HandlingBase
	Logger       func(context.Context, string, map[string]any)
}

// NewShipmentAggregator constructs the aggregator with the supplied dependencies.
func NewShipmentAggregator(deps ShipmentAggregatorDeps) (*ShipmentAggregator, error) {
	if deps.Rates == nil {
		return nil, errors.New("shipment aggregator: rate source is required")
	}
	if deps.Normalizer == nil {
		return nil, errors.New("shipment aggregator: currency normalizer is required")
	}
	base := deps.HandlingBase
	if base == "" {
		base = config.HandlingBaseItem
	}
	switch base {
	case config.HandlingBaseItem, config.HandlingBaseItemPlusCourier:
	default:
		return nil, fmt.Errorf("shipment aggregator: unknown handling base %q", base)
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &ShipmentAggregator{
		rates:        deps.Rates,
		normalizer:   deps.Normalizer,
		handlingBase: base,
		logger:       logger,
	}, nil
}

// Aggregate prices the item list in the origin currency, layers on the domestic
// courier and warehouse handling charges, and converts the result into the
// destination currency. Rates for distinct item currencies resolve in parallel.
func (a *ShipmentAggregator) Aggregate(ctx context.Context, items []domain.ShipmentItem, source, destination CountryCode) (PriceBreakdown, error) {
	if err := validateShipment(items, source); err != nil {
		return PriceBreakdown{}, err
	}

	srcCfg, err := a.rates.SourceConfig(ctx, source)
	if err != nil {
		return PriceBreakdown{}, err
	}

	itemRates, err := a.resolveItemRates(ctx, items, source)
	if err != nil {
		return PriceBreakdown{}, err
	}

	itemPrice := decimal.Decimal{}
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemPrice = itemPrice.Add(line.Mul(itemRates[item.Currency]))
	}

	courier := itemPrice.Mul(srcCfg.DomesticCourierPercent).Div(percentDivisor)
	handlingBaseAmount := itemPrice
	if a.handlingBase == config.HandlingBaseItemPlusCourier {
		handlingBaseAmount = itemPrice.Add(courier)
	}
	handling := handlingBaseAmount.Mul(srcCfg.WarehouseHandlingPercent).Div(percentDivisor)
	total := itemPrice.Add(courier).Add(handling)

	destRate, err := a.normalizer.Rate(ctx, source, destination)
	if err != nil {
		return PriceBreakdown{}, err
	}
	destCurrency, _ := domain.CurrencyForCountry(EffectiveTarget(destination))

	a.logger(ctx, "shipment aggregated", map[string]any{
		"source":       string(source),
		"destination":  string(destination),
		"item_count":   len(items),
		"total_source": total.String(),
	})

	return PriceBreakdown{
		SourceCountry:           source,
		DestinationCountry:      destination,
		SourceCurrency:          srcCfg.Currency,
		DestinationCurrency:     destCurrency,
		ItemPriceSource:         itemPrice,
		DomesticCourierCharge:   courier,
		WarehouseHandlingCharge: handling,
		TotalSource:             total,
		ItemPriceDestination:    itemPrice.Mul(destRate),
		TotalDestination:        total.Mul(destRate),
		ExchangeRate:            destRate,
	}, nil
}

// resolveItemRates fetches one conversion rate per distinct item currency,
// concurrently, into the origin country's currency.
func (a *ShipmentAggregator) resolveItemRates(ctx context.Context, items []domain.ShipmentItem, source CountryCode) (map[CurrencyCode]decimal.Decimal, error) {
	rates := make(map[CurrencyCode]decimal.Decimal, len(items))
	for _, item := range items {
		rates[item.Currency] = decimal.Decimal{}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for currency := range rates {
		currency := currency
		group.Go(func() error {
			from, err := domain.CountryForCurrency(currency)
			if err != nil {
				return err
			}
			rate, err := a.normalizer.Rate(groupCtx, from, source)
			if err != nil {
				return err
			}
			mu.Lock()
			rates[currency] = rate
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return rates, nil
}

func validateShipment(items []domain.ShipmentItem, source CountryCode) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrAggregateInvalidInput)
	}
	if !domain.IsSourceCountry(source) {
		return fmt.Errorf("%w: %s is not a serviced origin", ErrAggregateInvalidInput, source)
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has non-positive quantity", ErrAggregateInvalidInput, i)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: item %d has negative price", ErrAggregateInvalidInput, i)
		}
		if _, err := domain.CountryForCurrency(item.Currency); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}
