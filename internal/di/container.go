package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/parcelroute/api/internal/platform/config"
	pfirestore "github.com/parcelroute/api/internal/platform/firestore"
	"github.com/parcelroute/api/internal/repositories"
	fsrepo "github.com/parcelroute/api/internal/repositories/firestore"
	"github.com/parcelroute/api/internal/services"
)

// Repositories bundles the tariff lookups backing the pricing pipeline.
type Repositories struct {
	ExchangeRates      repositories.ExchangeRateRepository
	SourceCountries    repositories.SourceCountryRepository
	ShippingRates      repositories.ShippingRateRepository
	ServiceCharges     repositories.ServiceChargeRepository
	DestinationCharges repositories.DestinationChargeRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Rates  services.RateSource
	Quotes services.QuoteService
}

// Container wires the Firestore client, repositories, and services for runtime use.
type Container struct {
	Config       config.Config
	Provider     *pfirestore.Provider
	Repositories Repositories
	Services     Services
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := pfirestore.NewProvider(cfg.Firestore)

	repos, err := buildRepositories(provider)
	if err != nil {
		return nil, err
	}

	svc, err := buildServices(cfg, repos, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Provider:     provider,
		Repositories: repos,
		Services:     svc,
	}, nil
}

// Close releases the shared Firestore client.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Provider == nil {
		return nil
	}
	return c.Provider.Close(ctx)
}

func buildRepositories(provider *pfirestore.Provider) (Repositories, error) {
	exchangeRates, err := fsrepo.NewExchangeRateRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("build exchange rate repository: %w", err)
	}
	sourceCountries, err := fsrepo.NewSourceCountryRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("build source country repository: %w", err)
	}
	shippingRates, err := fsrepo.NewShippingRateRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("build shipping rate repository: %w", err)
	}
	serviceCharges, err := fsrepo.NewServiceChargeRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("build service charge repository: %w", err)
	}
	destinationCharges, err := fsrepo.NewDestinationChargeRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("build destination charge repository: %w", err)
	}
	return Repositories{
		ExchangeRates:      exchangeRates,
		SourceCountries:    sourceCountries,
		ShippingRates:      shippingRates,
		ServiceCharges:     serviceCharges,
		DestinationCharges: destinationCharges,
	}, nil
}

func buildServices(cfg config.Config, repos Repositories, logger *zap.Logger) (Services, error) {
	resolver, err := services.NewRateResolver(services.RateResolverDeps{
		ExchangeRates:      repos.ExchangeRates,
		SourceCountries:    repos.SourceCountries,
		ShippingRates:      repos.ShippingRates,
		ServiceCharges:     repos.ServiceCharges,
		DestinationCharges: repos.DestinationCharges,
		Logger:             logger.Named("rates"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build rate resolver: %w", err)
	}

	normalizer, err := services.NewCurrencyNormalizer(resolver)
	if err != nil {
		return Services{}, fmt.Errorf("build currency normalizer: %w", err)
	}

	structured := func(ctx context.Context, msg string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zapFields = append(zapFields, zap.Any(k, v))
		}
		logger.Debug(msg, zapFields...)
	}

	aggregator, err := services.NewShipmentAggregator(services.ShipmentAggregatorDeps{
		Rates:        resolver,
		Normalizer:   normalizer,
		HandlingBase: cfg.Pricing.HandlingBase,
		Logger:       structured,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipment aggregator: %w", err)
	}

	estimator, err := services.NewShippingCostEstimator(resolver, cfg.Pricing.ServiceName)
	if err != nil {
		return Services{}, fmt.Errorf("build shipping estimator: %w", err)
	}

	quotes, err := services.NewQuoteService(services.QuoteServiceDeps{
		Aggregator: aggregator,
		Estimator:  estimator,
		CacheTTL:   cfg.Pricing.QuoteCacheTTL,
		Logger:     structured,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build quote service: %w", err)
	}

	return Services{
		Rates:  resolver,
		Quotes: quotes,
	}, nil
}
