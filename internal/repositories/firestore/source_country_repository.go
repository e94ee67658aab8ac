package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
	pfirestore "github.com/parcelroute/api/internal/platform/firestore"
	"github.com/parcelroute/api/internal/repositories"
)

const sourceCountriesCollection = "sourceCountries"

// SourceCountryRepository reads per-origin charge configuration keyed by country code.
type SourceCountryRepository struct {
	base *pfirestore.LookupTable[domain.SourceCountryConfig]
}

// NewSourceCountryRepository constructs a Firestore-backed source country repository.
func NewSourceCountryRepository(provider *pfirestore.Provider) (*SourceCountryRepository, error) {
	if provider == nil {
		return nil, errors.New("source country repository: firestore provider is required")
	}

	decoder := func(snap *firestore.DocumentSnapshot) (domain.SourceCountryConfig, error) {
		var doc sourceCountryDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.SourceCountryConfig{}, err
		}
		return domain.SourceCountryConfig{
			Country:                  domain.CountryCode(strings.ToUpper(snap.Ref.ID)),
			DomesticCourierPercent:   decimal.NewFromFloat(doc.DomesticCourierPercent),
			WarehouseHandlingPercent: decimal.NewFromFloat(doc.WarehouseHandlingPercent),
			Currency:                 domain.CurrencyCode(strings.ToUpper(doc.Currency)),
		}, nil
	}

	base := pfirestore.NewLookupTable[domain.SourceCountryConfig](provider, sourceCountriesCollection, decoder)
	return &SourceCountryRepository{base: base}, nil
}

// FindByCountry loads the configuration row for an origin country.
func (r *SourceCountryRepository) FindByCountry(ctx context.Context, country domain.CountryCode) (domain.SourceCountryConfig, error) {
	if r == nil || r.base == nil {
		return domain.SourceCountryConfig{}, errors.New("source country repository not initialised")
	}
	code := strings.ToUpper(strings.TrimSpace(string(country)))
	if code == "" {
		return domain.SourceCountryConfig{}, errors.New("source country repository: country code is required")
	}

	row, err := r.base.Get(ctx, code)
	if err != nil {
		return domain.SourceCountryConfig{}, err
	}
	return row, nil
}

type sourceCountryDocument struct {
	DomesticCourierPercent   float64 `firestore:"domesticCourierChargePercent"`
	WarehouseHandlingPercent float64 `firestore:"warehouseHandlingChargePercent"`
	Currency                 string  `firestore:"currencyCode"`
}

var _ repositories.SourceCountryRepository = (*SourceCountryRepository)(nil)
