package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
)

func newTestEstimator(t *testing.T, rates *fakeRateSource) *ShippingCostEstimator {
	t.Helper()
	estimator, err := NewShippingCostEstimator(rates, "expresslane")
	if err != nil {
		t.Fatalf("NewShippingCostEstimator: %v", err)
	}
	return estimator
}

func sriLankaRouteRates() *fakeRateSource {
	return &fakeRateSource{shippingRates: map[string]decimal.Decimal{
		"IN_LK_clothes": decimal.NewFromInt(5500),
	}}
}

func TestEstimateNoWeightNoDimensions(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:      domain.CountryIndia,
		Destination: domain.CountrySriLanka,
		Category:    domain.CategoryClothes,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if estimate != nil {
		t.Fatalf("expected no estimate without weight or dimensions, got %+v", estimate)
	}
}

func TestEstimateWeightScalesLinearly(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:         domain.CountryIndia,
		Destination:    domain.CountrySriLanka,
		Category:       domain.CategoryClothes,
		WeightKg:       decimal.NewFromInt(2),
		DeliveryOption: domain.DeliveryOptionDelivery,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !estimate.WeightCharge.Equal(decimal.NewFromInt(11000)) {
		t.Fatalf("expected weight charge 11000, got %s", estimate.WeightCharge)
	}
	if !estimate.InternationalShipping.Equal(decimal.NewFromInt(11000)) {
		t.Fatalf("expected international shipping 11000, got %s", estimate.InternationalShipping)
	}
	// 15% of 11000, plus the flat destination charge.
	if !estimate.ServiceCharge.Equal(decimal.NewFromInt(1650)) {
		t.Fatalf("expected service charge 1650, got %s", estimate.ServiceCharge)
	}
	if !estimate.DestinationCharge.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected destination charge 500, got %s", estimate.DestinationCharge)
	}
	if !estimate.ShippingTotal.Equal(decimal.NewFromInt(13150)) {
		t.Fatalf("expected shipping total 13150, got %s", estimate.ShippingTotal)
	}
}

func TestEstimateVolumetricWeightWins(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	dims := &domain.Dimensions{
		Length: decimal.NewFromInt(50),
		Width:  decimal.NewFromInt(40),
		Height: decimal.NewFromInt(30),
		Unit:   domain.UnitCentimeters,
	}
	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:         domain.CountryIndia,
		Destination:    domain.CountrySriLanka,
		Category:       domain.CategoryClothes,
		WeightKg:       decimal.NewFromInt(2),
		Dimensions:     dims,
		DeliveryOption: domain.DeliveryOptionDelivery,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	// 50*40*30/5000 = 12 chargeable kilograms.
	if !estimate.VolumetricWeightKg.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("expected volumetric weight 12, got %s", estimate.VolumetricWeightKg)
	}
	if !estimate.VolumeCharge.Equal(decimal.NewFromInt(66000)) {
		t.Fatalf("expected volume charge 66000, got %s", estimate.VolumeCharge)
	}
	if !estimate.InternationalShipping.Equal(decimal.NewFromInt(66000)) {
		t.Fatalf("expected the larger charge to win, got %s", estimate.InternationalShipping)
	}
}

func TestEstimateInchDimensionsConvert(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	dims := &domain.Dimensions{
		Length: decimal.NewFromInt(10),
		Width:  decimal.NewFromInt(10),
		Height: decimal.NewFromInt(10),
		Unit:   domain.UnitInches,
	}
	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:         domain.CountryIndia,
		Destination:    domain.CountrySriLanka,
		Category:       domain.CategoryClothes,
		Dimensions:     dims,
		DeliveryOption: domain.DeliveryOptionDelivery,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	// (10*2.54)^3 / 5000 = 3.2774128 kilograms.
	expected := decimal.NewFromFloat(3.2774128)
	if !estimate.VolumetricWeightKg.Equal(expected) {
		t.Fatalf("expected volumetric weight %s, got %s", expected, estimate.VolumetricWeightKg)
	}
}

func TestEstimatePickupWaivesDestinationCharge(t *testing.T) {
	rates := sriLankaRouteRates()
	estimator := newTestEstimator(t, rates)

	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:         domain.CountryIndia,
		Destination:    domain.CountrySriLanka,
		Category:       domain.CategoryClothes,
		WeightKg:       decimal.NewFromInt(1),
		DeliveryOption: domain.DeliveryOptionPickup,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !estimate.DestinationCharge.IsZero() {
		t.Fatalf("expected zero destination charge for pickup, got %s", estimate.DestinationCharge)
	}
	if n := rates.callCount("destination:"); n != 0 {
		t.Fatalf("expected no destination charge lookup, got %d", n)
	}
}

func TestEstimateServiceChargeIncludesPreShippingTotal(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:           domain.CountryIndia,
		Destination:      domain.CountrySriLanka,
		Category:         domain.CategoryClothes,
		WeightKg:         decimal.NewFromInt(2),
		DeliveryOption:   domain.DeliveryOptionDelivery,
		PreShippingTotal: decimal.NewFromInt(8395),
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// 15% of 11000 + 8395.
	if !estimate.ServiceCharge.Equal(decimal.NewFromFloat(2909.25)) {
		t.Fatalf("expected service charge 2909.25, got %s", estimate.ServiceCharge)
	}
}

func TestEstimateFreeRouteZeroRate(t *testing.T) {
	// A stored rate of 0 is a configured free route, not missing data. The
	// estimate must come back populated, with the service charge computed over
	// the pre-shipping total alone.
	estimator := newTestEstimator(t, &fakeRateSource{shippingRates: map[string]decimal.Decimal{
		"IN_LK_clothes": decimal.Zero,
	}})

	estimate, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:           domain.CountryIndia,
		Destination:      domain.CountrySriLanka,
		Category:         domain.CategoryClothes,
		WeightKg:         decimal.NewFromInt(2),
		DeliveryOption:   domain.DeliveryOptionDelivery,
		PreShippingTotal: decimal.NewFromInt(8395),
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if estimate == nil {
		t.Fatal("expected an estimate for a free route")
	}
	if !estimate.InternationalShipping.IsZero() {
		t.Fatalf("expected zero international shipping, got %s", estimate.InternationalShipping)
	}
	// 15% of 0 + 8395.
	if !estimate.ServiceCharge.Equal(decimal.NewFromFloat(1259.25)) {
		t.Fatalf("expected service charge 1259.25, got %s", estimate.ServiceCharge)
	}
	if !estimate.ShippingTotal.Equal(decimal.NewFromFloat(1759.25)) {
		t.Fatalf("expected shipping total 1759.25, got %s", estimate.ShippingTotal)
	}
}

func TestEstimateNotTransportableRoute(t *testing.T) {
	estimator := newTestEstimator(t, &fakeRateSource{shippingErr: ErrRouteNotTransportable})

	_, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:         domain.CountryIndia,
		Destination:    domain.CountryCode("AQ"),
		Category:       domain.CategoryOthers,
		WeightKg:       decimal.NewFromInt(1),
		DeliveryOption: domain.DeliveryOptionDelivery,
	})
	if !errors.Is(err, ErrRouteNotTransportable) {
		t.Fatalf("expected ErrRouteNotTransportable, got %v", err)
	}
}

func TestEstimateRejectsNegativeWeight(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	_, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:      domain.CountryIndia,
		Destination: domain.CountrySriLanka,
		Category:    domain.CategoryClothes,
		WeightKg:    decimal.NewFromInt(-1),
	})
	if !errors.Is(err, ErrEstimateInvalidInput) {
		t.Fatalf("expected ErrEstimateInvalidInput, got %v", err)
	}
}

func TestEstimateRejectsZeroDimension(t *testing.T) {
	estimator := newTestEstimator(t, sriLankaRouteRates())

	dims := &domain.Dimensions{
		Length: decimal.NewFromInt(10),
		Width:  decimal.Decimal{},
		Height: decimal.NewFromInt(10),
		Unit:   domain.UnitCentimeters,
	}
	_, err := estimator.Estimate(context.Background(), EstimateInput{
		Origin:      domain.CountryIndia,
		Destination: domain.CountrySriLanka,
		Category:    domain.CategoryClothes,
		Dimensions:  dims,
	})
	if !errors.Is(err, ErrEstimateInvalidInput) {
		t.Fatalf("expected ErrEstimateInvalidInput, got %v", err)
	}
}
