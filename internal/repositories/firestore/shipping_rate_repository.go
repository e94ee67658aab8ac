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

const shippingRatesCollection = "shippingRates"

// ShippingRateRepository reads per-kilogram route rates keyed by origin, destination
// and goods category.
type ShippingRateRepository struct {
	base *pfirestore.LookupTable[domain.ShippingRate]
}

// NewShippingRateRepository constructs a Firestore-backed shipping rate repository.
func NewShippingRateRepository(provider *pfirestore.Provider) (*ShippingRateRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping rate repository: firestore provider is required")
	}

	decoder := func(snap *firestore.DocumentSnapshot) (domain.ShippingRate, error) {
		var doc shippingRateDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.ShippingRate{}, err
		}
		return domain.ShippingRate{
			Origin:      domain.CountryCode(strings.ToUpper(doc.Origin)),
			Destination: domain.CountryCode(strings.ToUpper(doc.Destination)),
			Category:    domain.RateCategory(strings.ToLower(doc.Category)),
			RatePerKg:   decimal.NewFromFloat(doc.RatePerKg),
			Currency:    domain.CurrencyCode(strings.ToUpper(doc.Currency)),
		}, nil
	}

	base := pfirestore.NewLookupTable[domain.ShippingRate](provider, shippingRatesCollection, decoder)
	return &ShippingRateRepository{base: base}, nil
}

// FindRate loads the rate row for an exact (origin, destination, category) key. The
// category widening to "others" is the resolver's concern, not the repository's.
func (r *ShippingRateRepository) FindRate(ctx context.Context, origin, destination domain.CountryCode, category domain.RateCategory) (domain.ShippingRate, error) {
	if r == nil || r.base == nil {
		return domain.ShippingRate{}, errors.New("shipping rate repository not initialised")
	}
	if origin == "" || destination == "" || category == "" {
		return domain.ShippingRate{}, errors.New("shipping rate repository: origin, destination and category are required")
	}

	id := shippingRateDocumentID(origin, destination, category)
	row, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	return row, nil
}

func shippingRateDocumentID(origin, destination domain.CountryCode, category domain.RateCategory) string {
	return strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(string(origin))),
		strings.ToUpper(strings.TrimSpace(string(destination))),
		strings.ToLower(strings.TrimSpace(string(category))),
	}, "_")
}

type shippingRateDocument struct {
	Origin      string  `firestore:"originCountry"`
	Destination string  `firestore:"destinationCountry"`
	Category    string  `firestore:"category"`
	RatePerKg   float64 `firestore:"ratePerKg"`
	Currency    string  `firestore:"currencyCode"`
}

var _ repositories.ShippingRateRepository = (*ShippingRateRepository)(nil)
