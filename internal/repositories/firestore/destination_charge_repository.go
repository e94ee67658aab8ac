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

const destinationChargesCollection = "destinationCharges"

// DestinationChargeRepository reads the fixed last-mile delivery charge keyed by
// destination country.
type DestinationChargeRepository struct {
	base *pfirestore.LookupTable[domain.DomesticDestinationCharge]
}

// NewDestinationChargeRepository constructs a Firestore-backed destination charge repository.
func NewDestinationChargeRepository(provider *pfirestore.Provider) (*DestinationChargeRepository, error) {
	if provider == nil {
		return nil, errors.New("destination charge repository: firestore provider is required")
	}

	decoder := func(snap *firestore.DocumentSnapshot) (domain.DomesticDestinationCharge, error) {
		var doc destinationChargeDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.DomesticDestinationCharge{}, err
		}
		return domain.DomesticDestinationCharge{
			Country: domain.CountryCode(strings.ToUpper(snap.Ref.ID)),
			Amount:  decimal.NewFromFloat(doc.Amount),
		}, nil
	}

	base := pfirestore.NewLookupTable[domain.DomesticDestinationCharge](provider, destinationChargesCollection, decoder)
	return &DestinationChargeRepository{base: base}, nil
}

// FindByCountry loads the fixed charge row for a destination country.
func (r *DestinationChargeRepository) FindByCountry(ctx context.Context, country domain.CountryCode) (domain.DomesticDestinationCharge, error) {
	if r == nil || r.base == nil {
		return domain.DomesticDestinationCharge{}, errors.New("destination charge repository not initialised")
	}
	code := strings.ToUpper(strings.TrimSpace(string(country)))
	if code == "" {
		return domain.DomesticDestinationCharge{}, errors.New("destination charge repository: country code is required")
	}

	row, err := r.base.Get(ctx, code)
	if err != nil {
		return domain.DomesticDestinationCharge{}, err
	}
	return row, nil
}

type destinationChargeDocument struct {
	Amount float64 `firestore:"amount"`
}

var _ repositories.DestinationChargeRepository = (*DestinationChargeRepository)(nil)
