package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
	"github.com/parcelroute/api/internal/platform/httpx"
	"github.com/parcelroute/api/internal/services"
)

const maxQuoteRequestBody = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

// QuoteHandlers exposes the shipment quote endpoint.
type QuoteHandlers struct {
	quotes  services.QuoteService
	limiter RateLimiter
}

// NewQuoteHandlers constructs the quote handler set. limiter may be nil to
// disable rate limiting.
func NewQuoteHandlers(quotes services.QuoteService, limiter RateLimiter) *QuoteHandlers {
	return &QuoteHandlers{quotes: quotes, limiter: limiter}
}

// Routes registers the quote endpoints beneath /quotes.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.create)
}

type quoteItemPayload struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Currency string          `json:"currency"`
}

type quoteDimensionsPayload struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   string          `json:"unit"`
}

type createQuoteRequest struct {
	Items              []quoteItemPayload      `json:"items"`
	SourceCountry      string                  `json:"sourceCountry"`
	DestinationCountry string                  `json:"destinationCountry"`
	Category           string                  `json:"category"`
	DeliveryOption     string                  `json:"deliveryOption"`
	WeightKg           decimal.Decimal         `json:"weightKg"`
	Dimensions         *quoteDimensionsPayload `json:"dimensions"`
	BypassCache        bool                    `json:"bypassCache"`
}

func (h *QuoteHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "quote service not available", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many quote requests", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxQuoteRequestBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var payload createQuoteRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	req, err := buildQuoteRequest(payload)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	quote, err := h.quotes.Quote(ctx, req)
	if err != nil {
		writeQuoteError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildQuotePayload(quote))
}

func buildQuoteRequest(payload createQuoteRequest) (services.QuoteRequest, error) {
	source, err := domain.ParseCountryCode(payload.SourceCountry)
	if err != nil {
		return services.QuoteRequest{}, err
	}
	destination, err := domain.ParseCountryCode(payload.DestinationCountry)
	if err != nil {
		return services.QuoteRequest{}, err
	}
	category, err := domain.ParseRateCategory(payload.Category)
	if err != nil {
		return services.QuoteRequest{}, err
	}
	delivery, err := domain.ParseDeliveryOption(payload.DeliveryOption)
	if err != nil {
		return services.QuoteRequest{}, err
	}

	items := make([]domain.ShipmentItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		currency, err := domain.ParseCurrencyCode(item.Currency)
		if err != nil {
			return services.QuoteRequest{}, err
		}
		items = append(items, domain.ShipmentItem{
			Price:    item.Price,
			Quantity: item.Quantity,
			Currency: currency,
		})
	}

	req := services.QuoteRequest{
		Items:              items,
		SourceCountry:      source,
		DestinationCountry: destination,
		Category:           category,
		DeliveryOption:     delivery,
		WeightKg:           payload.WeightKg,
		BypassCache:        payload.BypassCache,
	}
	if payload.Dimensions != nil {
		unit := domain.DimensionUnit(strings.ToLower(strings.TrimSpace(payload.Dimensions.Unit)))
		switch unit {
		case "":
			unit = domain.UnitCentimeters
		case domain.UnitCentimeters, domain.UnitInches:
		default:
			return services.QuoteRequest{}, errors.New("unknown dimension unit")
		}
		req.Dimensions = &domain.Dimensions{
			Length: payload.Dimensions.Length,
			Width:  payload.Dimensions.Width,
			Height: payload.Dimensions.Height,
			Unit:   unit,
		}
	}
	return req, nil
}

type breakdownPayload struct {
	SourceCountry           string          `json:"sourceCountry"`
	DestinationCountry      string          `json:"destinationCountry"`
	SourceCurrency          string          `json:"sourceCurrency"`
	DestinationCurrency     string          `json:"destinationCurrency"`
	ItemPriceSource         decimal.Decimal `json:"itemPriceSource"`
	DomesticCourierCharge   decimal.Decimal `json:"domesticCourierCharge"`
	WarehouseHandlingCharge decimal.Decimal `json:"warehouseHandlingCharge"`
	TotalSource             decimal.Decimal `json:"totalSource"`
	ItemPriceDestination    decimal.Decimal `json:"itemPriceDestination"`
	TotalDestination        decimal.Decimal `json:"totalDestination"`
	ExchangeRate            decimal.Decimal `json:"exchangeRate"`
}

type shippingPayload struct {
	VolumetricWeightKg    decimal.Decimal `json:"volumetricWeightKg"`
	WeightCharge          decimal.Decimal `json:"weightCharge"`
	VolumeCharge          decimal.Decimal `json:"volumeCharge"`
	RatePerKg             decimal.Decimal `json:"ratePerKg"`
	RateCurrency          string          `json:"rateCurrency"`
	InternationalShipping decimal.Decimal `json:"internationalShipping"`
	ServiceChargePercent  decimal.Decimal `json:"serviceChargePercent"`
	ServiceCharge         decimal.Decimal `json:"serviceCharge"`
	DestinationCharge     decimal.Decimal `json:"destinationCharge"`
	ShippingTotal         decimal.Decimal `json:"shippingTotal"`
}

type quotePayload struct {
	ID            string           `json:"id"`
	SnapshotKey   string           `json:"snapshotKey"`
	Transportable bool             `json:"transportable"`
	Breakdown     breakdownPayload `json:"breakdown"`
	Shipping      *shippingPayload `json:"shipping,omitempty"`
	GrandTotal    decimal.Decimal  `json:"grandTotal"`
	CreatedAt     string           `json:"createdAt"`
}

func buildQuotePayload(quote domain.Quote) quotePayload {
	payload := quotePayload{
		ID:            quote.ID,
		SnapshotKey:   quote.SnapshotKey,
		Transportable: quote.Transportable,
		Breakdown: breakdownPayload{
			SourceCountry:           string(quote.Breakdown.SourceCountry),
			DestinationCountry:      string(quote.Breakdown.DestinationCountry),
			SourceCurrency:          string(quote.Breakdown.SourceCurrency),
			DestinationCurrency:     string(quote.Breakdown.DestinationCurrency),
			ItemPriceSource:         quote.Breakdown.ItemPriceSource,
			DomesticCourierCharge:   quote.Breakdown.DomesticCourierCharge,
			WarehouseHandlingCharge: quote.Breakdown.WarehouseHandlingCharge,
			TotalSource:             quote.Breakdown.TotalSource,
			ItemPriceDestination:    quote.Breakdown.ItemPriceDestination,
			TotalDestination:        quote.Breakdown.TotalDestination,
			ExchangeRate:            quote.Breakdown.ExchangeRate,
		},
		GrandTotal: quote.GrandTotal,
		CreatedAt:  quote.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if quote.Shipping != nil {
		payload.Shipping = &shippingPayload{
			VolumetricWeightKg:    quote.Shipping.VolumetricWeightKg,
			WeightCharge:          quote.Shipping.WeightCharge,
			VolumeCharge:          quote.Shipping.VolumeCharge,
			RatePerKg:             quote.Shipping.RatePerKg,
			RateCurrency:          string(quote.Shipping.RateCurrency),
			InternationalShipping: quote.Shipping.InternationalShipping,
			ServiceChargePercent:  quote.Shipping.ServiceChargePercent,
			ServiceCharge:         quote.Shipping.ServiceCharge,
			DestinationCharge:     quote.Shipping.DestinationCharge,
			ShippingTotal:         quote.Shipping.ShippingTotal,
		}
	}
	return payload
}

func writeQuoteError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedCurrency):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_currency", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrQuoteInvalidInput),
		errors.Is(err, services.ErrAggregateInvalidInput),
		errors.Is(err, services.ErrEstimateInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrRateLookupFailed):
		httpx.WriteError(ctx, w, httpx.NewError("rate_lookup_failed", "rate storage is unavailable, retry later", http.StatusServiceUnavailable).
			WithDetails(map[string]any{"retryable": true}))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to compute quote", http.StatusInternalServerError))
	}
}

func clientKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
