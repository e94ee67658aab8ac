package repositories

import (
	"context"
	"errors"

	domain "github.com/parcelroute/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with the categorisation the
// services need. The rate tables are read-only here, so a miss and an outage are
// the only classes that matter.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// IsNotFound reports whether the error represents a lookup miss: the store answered and
// no matching row exists. A miss is the fallback trigger; every other repository error
// is a lookup failure and must abort the calculation.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

// ExchangeRateRepository resolves directional currency conversion rates.
type ExchangeRateRepository interface {
	FindRate(ctx context.Context, from, to domain.CurrencyCode) (domain.ExchangeRate, error)
}

// SourceCountryRepository resolves per-origin charge configuration.
type SourceCountryRepository interface {
	FindByCountry(ctx context.Context, country domain.CountryCode) (domain.SourceCountryConfig, error)
}

// ShippingRateRepository resolves per-kilogram rates by route and category.
type ShippingRateRepository interface {
	FindRate(ctx context.Context, origin, destination domain.CountryCode, category domain.RateCategory) (domain.ShippingRate, error)
}

// ServiceChargeRepository resolves the named service-charge percentage.
type ServiceChargeRepository interface {
	FindByService(ctx context.Context, service string) (domain.ServiceChargeConfig, error)
}

// DestinationChargeRepository resolves the fixed last-mile charge for a destination.
type DestinationChargeRepository interface {
	FindByCountry(ctx context.Context, country domain.CountryCode) (domain.DomesticDestinationCharge, error)
}
