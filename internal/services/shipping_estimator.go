package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	domain "github.com/parcelroute/api/internal/domain"
)

var (
	// ErrEstimateInvalidInput signals unusable weight or dimension inputs.
	ErrEstimateInvalidInput = errors.New("shipping estimator: invalid input")
)

// ShippingCostEstimator computes the international shipping leg of a quote:
// the chargeable weight, the per-kilogram tariff, and the service and
// destination charges layered on top.
type ShippingCostEstimator struct {
	rates       RateSource
	serviceName string
}

// NewShippingCostEstimator constructs the estimator. serviceName selects the
// service charge row applied to every estimate.
func NewShippingCostEstimator(rates RateSource, serviceName string) (*ShippingCostEstimator, error) {
	if rates == nil {
		return nil, errors.New("shipping estimator: rate source is required")
	}
	return &ShippingCostEstimator{rates: rates, serviceName: strings.TrimSpace(serviceName)}, nil
}

// EstimateInput carries one estimation request. PreShippingTotal is the
// aggregated pre-shipping total in the destination currency, the same currency
// the tariff rows are denominated in; the service charge percentage applies to
// it together with the international shipping.
type EstimateInput struct {
	Origin           CountryCode
	Destination      CountryCode
	Category         RateCategory
	WeightKg         decimal.Decimal
	Dimensions       *Dimensions
	DeliveryOption   DeliveryOption
	PreShippingTotal decimal.Decimal
	RateCurrency     CurrencyCode
}

// Estimate returns nil when neither a weight nor usable dimensions are
// supplied; the shipment is priced without a shipping leg. The weight and
// volumetric charges are alternatives, never added: the larger one wins.
func (e *ShippingCostEstimator) Estimate(ctx context.Context, in EstimateInput) (*ShippingEstimate, error) {
	if in.WeightKg.IsNegative() {
		return nil, fmt.Errorf("%w: negative weight", ErrEstimateInvalidInput)
	}
	if in.Dimensions != nil && !in.Dimensions.Valid() {
		return nil, fmt.Errorf("%w: dimensions must all be positive", ErrEstimateInvalidInput)
	}
	if in.WeightKg.IsZero() && in.Dimensions == nil {
		return nil, nil
	}

	var (
		ratePerKg  decimal.Decimal
		svcPercent decimal.Decimal
		destCharge decimal.Decimal
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		ratePerKg, err = e.rates.ShippingRatePerKg(groupCtx, in.Origin, in.Destination, in.Category)
		return err
	})
	group.Go(func() error {
		var err error
		svcPercent, err = e.rates.ServiceChargePercent(groupCtx, e.serviceName)
		return err
	})
	group.Go(func() error {
		if in.DeliveryOption == domain.DeliveryOptionPickup {
			return nil
		}
		var err error
		destCharge, err = e.rates.DestinationCharge(groupCtx, in.Destination)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	weightCharge := in.WeightKg.Mul(ratePerKg)
	volumetricKg := decimal.Decimal{}
	volumeCharge := decimal.Decimal{}
	if in.Dimensions != nil {
		volumetricKg = in.Dimensions.VolumetricWeightKg()
		volumeCharge = volumetricKg.Mul(ratePerKg)
	}
	international := weightCharge
	if volumeCharge.GreaterThan(international) {
		international = volumeCharge
	}

	serviceCharge := international.Add(in.PreShippingTotal).Mul(svcPercent).Div(percentDivisor)
	total := international.Add(serviceCharge).Add(destCharge)

	return &ShippingEstimate{
		VolumetricWeightKg:    volumetricKg,
		WeightCharge:          weightCharge,
		VolumeCharge:          volumeCharge,
		RatePerKg:             ratePerKg,
		RateCurrency:          in.RateCurrency,
		InternationalShipping: international,
		ServiceChargePercent:  svcPercent,
		ServiceCharge:         serviceCharge,
		DestinationCharge:     destCharge,
		ShippingTotal:         total,
	}, nil
}
