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

const serviceChargesCollection = "serviceCharges"

// ServiceChargeRepository reads the singleton percentage row for a named service.
type ServiceChargeRepository struct {
	base *pfirestore.LookupTable[domain.ServiceChargeConfig]
}

// NewServiceChargeRepository constructs a Firestore-backed service charge repository.
func NewServiceChargeRepository(provider *pfirestore.Provider) (*ServiceChargeRepository, error) {
	if provider == nil {
		return nil, errors.New("service charge repository: firestore provider is required")
	}

	decoder := func(snap *firestore.DocumentSnapshot) (domain.ServiceChargeConfig, error) {
		var doc serviceChargeDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.ServiceChargeConfig{}, err
		}
		return domain.ServiceChargeConfig{
			Service: snap.Ref.ID,
			Percent: decimal.NewFromFloat(doc.Percent),
		}, nil
	}

	base := pfirestore.NewLookupTable[domain.ServiceChargeConfig](provider, serviceChargesCollection, decoder)
	return &ServiceChargeRepository{base: base}, nil
}

// FindByService loads the charge percentage for the named service.
func (r *ServiceChargeRepository) FindByService(ctx context.Context, service string) (domain.ServiceChargeConfig, error) {
	if r == nil || r.base == nil {
		return domain.ServiceChargeConfig{}, errors.New("service charge repository not initialised")
	}
	name := strings.ToLower(strings.TrimSpace(service))
	if name == "" {
		return domain.ServiceChargeConfig{}, errors.New("service charge repository: service name is required")
	}

	row, err := r.base.Get(ctx, name)
	if err != nil {
		return domain.ServiceChargeConfig{}, err
	}
	return row, nil
}

type serviceChargeDocument struct {
	Percent float64 `firestore:"chargePercentage"`
}

var _ repositories.ServiceChargeRepository = (*ServiceChargeRepository)(nil)
