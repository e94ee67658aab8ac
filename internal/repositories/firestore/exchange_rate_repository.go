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

const exchangeRatesCollection = "exchangeRates"

// ExchangeRateRepository reads directional conversion rates keyed by currency pair.
type ExchangeRateRepository struct {
	base *pfirestore.LookupTable[domain.ExchangeRate]
}

// NewExchangeRateRepository constructs a Firestore-backed exchange rate repository.
func NewExchangeRateRepository(provider *pfirestore.Provider) (*ExchangeRateRepository, error) {
	if provider == nil {
		return nil, errors.New("exchange rate repository: firestore provider is required")
	}

	decoder := func(snap *firestore.DocumentSnapshot) (domain.ExchangeRate, error) {
		var doc exchangeRateDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.ExchangeRate{}, err
		}
		return domain.ExchangeRate{
			From: domain.CurrencyCode(strings.ToUpper(doc.From)),
			To:   domain.CurrencyCode(strings.ToUpper(doc.To)),
			Rate: decimal.NewFromFloat(doc.Rate),
		}, nil
	}

	base := pfirestore.NewLookupTable[domain.ExchangeRate](provider, exchangeRatesCollection, decoder)
	return &ExchangeRateRepository{base: base}, nil
}

// FindRate loads the rate row for the given direction. The reverse direction is a
// separate document and is never derived.
func (r *ExchangeRateRepository) FindRate(ctx context.Context, from, to domain.CurrencyCode) (domain.ExchangeRate, error) {
	if r == nil || r.base == nil {
		return domain.ExchangeRate{}, errors.New("exchange rate repository not initialised")
	}
	if from == "" || to == "" {
		return domain.ExchangeRate{}, errors.New("exchange rate repository: both currencies are required")
	}

	row, err := r.base.Get(ctx, rateDocumentID(string(from), string(to)))
	if err != nil {
		return domain.ExchangeRate{}, err
	}
	return row, nil
}

type exchangeRateDocument struct {
	From string  `firestore:"fromCurrency"`
	To   string  `firestore:"toCurrency"`
	Rate float64 `firestore:"rate"`
}

func rateDocumentID(parts ...string) string {
	for i, part := range parts {
		parts[i] = strings.ToUpper(strings.TrimSpace(part))
	}
	return strings.Join(parts, "_")
}

var _ repositories.ExchangeRateRepository = (*ExchangeRateRepository)(nil)
