package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// CountryCode identifies a shipping origin or destination using ISO-3166-1 alpha-2 codes.
type CountryCode string

const (
	CountryIndia     CountryCode = "IN"
	CountryMalaysia  CountryCode = "MY"
	CountryUAE       CountryCode = "AE"
	CountryUS        CountryCode = "US"
	CountrySriLanka  CountryCode = "LK"
	CountrySingapore CountryCode = "SG"
	CountryUK        CountryCode = "GB"
)

// DestinationFallbackCountry is the rate row used when a conversion targets a country
// outside the source-country network. Such conversions are priced against the US row
// instead of the literal destination.
const DestinationFallbackCountry = CountryUS

var sourceCountrySet = map[CountryCode]struct{}{
	CountryIndia:     {},
	CountryMalaysia:  {},
	CountryUAE:       {},
	CountryUS:        {},
	CountrySriLanka:  {},
	CountrySingapore: {},
}

// IsSourceCountry reports whether the network operates a warehouse in the given country.
func IsSourceCountry(code CountryCode) bool {
	_, ok := sourceCountrySet[code]
	return ok
}

// ParseCountryCode normalises and validates a country code string.
func ParseCountryCode(raw string) (CountryCode, error) {
	code := CountryCode(strings.ToUpper(strings.TrimSpace(raw)))
	if len(code) != 2 {
		return "", errors.New("country code must be two letters")
	}
	return code, nil
}

// CurrencyCode is an ISO-4217 alphabetic currency code.
type CurrencyCode string

const (
	CurrencyUSD CurrencyCode = "USD"
	CurrencyINR CurrencyCode = "INR"
	CurrencyLKR CurrencyCode = "LKR"
	CurrencyGBP CurrencyCode = "GBP"
	CurrencyAED CurrencyCode = "AED"
	CurrencyMYR CurrencyCode = "MYR"
	CurrencySGD CurrencyCode = "SGD"
)

// ErrUnsupportedCurrency is returned when a currency has no mapping to a country in the
// network. Unmapped currencies are rejected up front rather than silently rerouted.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

var currencyToCountry = map[CurrencyCode]CountryCode{
	CurrencyUSD: CountryUS,
	CurrencyINR: CountryIndia,
	CurrencyLKR: CountrySriLanka,
	CurrencyGBP: CountryUK,
	CurrencyAED: CountryUAE,
	CurrencyMYR: CountryMalaysia,
	CurrencySGD: CountrySingapore,
}

var countryToCurrency = func() map[CountryCode]CurrencyCode {
	m := make(map[CountryCode]CurrencyCode, len(currencyToCountry))
	for cur, country := range currencyToCountry {
		m[country] = cur
	}
	return m
}()

// ParseCurrencyCode validates the string as a well-formed ISO-4217 code.
func ParseCurrencyCode(raw string) (CurrencyCode, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(raw))
	if err != nil {
		return "", errors.New("malformed currency code")
	}
	return CurrencyCode(unit.String()), nil
}

// CountryForCurrency resolves the country a currency belongs to.
func CountryForCurrency(code CurrencyCode) (CountryCode, error) {
	country, ok := currencyToCountry[code]
	if !ok {
		return "", ErrUnsupportedCurrency
	}
	return country, nil
}

// CurrencyForCountry resolves the currency used by a country in the network.
func CurrencyForCountry(code CountryCode) (CurrencyCode, bool) {
	cur, ok := countryToCurrency[code]
	return cur, ok
}

// RateCategory classifies goods for shipping-rate lookups.
type RateCategory string

const (
	CategoryClothes     RateCategory = "clothes"
	CategoryLaptop      RateCategory = "laptop"
	CategoryWatch       RateCategory = "watch"
	CategoryMedicine    RateCategory = "medicine"
	CategoryElectronics RateCategory = "electronics"
	CategoryOthers      RateCategory = "others"
)

var rateCategories = map[RateCategory]struct{}{
	CategoryClothes:     {},
	CategoryLaptop:      {},
	CategoryWatch:       {},
	CategoryMedicine:    {},
	CategoryElectronics: {},
	CategoryOthers:      {},
}

// ParseRateCategory normalises and validates a category string. An empty category is
// treated as "others".
func ParseRateCategory(raw string) (RateCategory, error) {
	cat := RateCategory(strings.ToLower(strings.TrimSpace(raw)))
	if cat == "" {
		return CategoryOthers, nil
	}
	if _, ok := rateCategories[cat]; !ok {
		return "", errors.New("unknown rate category")
	}
	return cat, nil
}

// DeliveryOption selects between home delivery and warehouse pickup at the destination.
type DeliveryOption string

const (
	DeliveryOptionDelivery DeliveryOption = "delivery"
	DeliveryOptionPickup   DeliveryOption = "pickup"
)

// ParseDeliveryOption normalises and validates a delivery option string, defaulting to delivery.
func ParseDeliveryOption(raw string) (DeliveryOption, error) {
	opt := DeliveryOption(strings.ToLower(strings.TrimSpace(raw)))
	switch opt {
	case "":
		return DeliveryOptionDelivery, nil
	case DeliveryOptionDelivery, DeliveryOptionPickup:
		return opt, nil
	default:
		return "", errors.New("unknown delivery option")
	}
}

// DimensionUnit is the measurement unit for package dimensions.
type DimensionUnit string

const (
	UnitCentimeters DimensionUnit = "cm"
	UnitInches      DimensionUnit = "in"
)

// CentimetersPerInch converts inch dimensions into the centimeter base used by the
// volumetric weight formula.
var CentimetersPerInch = decimal.NewFromFloat(2.54)

// VolumetricDivisor converts a cubic-centimeter volume into a billable kilogram weight.
var VolumetricDivisor = decimal.NewFromInt(5000)

// Dimensions describes a package's measurements in a single unit.
type Dimensions struct {
	Length decimal.Decimal
	Width  decimal.Decimal
	Height decimal.Decimal
	Unit   DimensionUnit
}

// Valid reports whether all three measurements are positive.
func (d Dimensions) Valid() bool {
	return d.Length.IsPositive() && d.Width.IsPositive() && d.Height.IsPositive()
}

// Normalized returns the dimensions converted to centimeters.
func (d Dimensions) Normalized() Dimensions {
	if d.Unit != UnitInches {
		d.Unit = UnitCentimeters
		return d
	}
	return Dimensions{
		Length: d.Length.Mul(CentimetersPerInch),
		Width:  d.Width.Mul(CentimetersPerInch),
		Height: d.Height.Mul(CentimetersPerInch),
		Unit:   UnitCentimeters,
	}
}

// VolumetricWeightKg computes the billable weight derived from the dimensions.
func (d Dimensions) VolumetricWeightKg() decimal.Decimal {
	n := d.Normalized()
	return n.Length.Mul(n.Width).Mul(n.Height).Div(VolumetricDivisor)
}

// ShipmentItem is a single priced line supplied by the caller. Items are inputs only;
// nothing in the calculation mutates or persists them.
type ShipmentItem struct {
	Price    decimal.Decimal
	Quantity int
	Currency CurrencyCode
}

// ExchangeRate is a directional conversion rate between two currencies. The reverse
// direction is stored independently and is not assumed to exist or be the inverse.
type ExchangeRate struct {
	From CurrencyCode
	To   CurrencyCode
	Rate decimal.Decimal
}

// SourceCountryConfig carries the per-origin charge percentages and local currency.
type SourceCountryConfig struct {
	Country                  CountryCode
	DomesticCourierPercent   decimal.Decimal
	WarehouseHandlingPercent decimal.Decimal
	Currency                 CurrencyCode
}

// ShippingRate is the per-kilogram charge for a route and goods category.
type ShippingRate struct {
	Origin      CountryCode
	Destination CountryCode
	Category    RateCategory
	RatePerKg   decimal.Decimal
	Currency    CurrencyCode
}

// ServiceChargeConfig is the named percentage margin layered onto shipping totals.
type ServiceChargeConfig struct {
	Service string
	Percent decimal.Decimal
}

// DomesticDestinationCharge is the fixed last-mile delivery fee for a destination
// country, waived when the receiver picks up from the warehouse.
type DomesticDestinationCharge struct {
	Country CountryCode
	Amount  decimal.Decimal
}
