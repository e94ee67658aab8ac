package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/parcelroute/api/internal/domain"
)

var (
	// ErrQuoteInvalidInput signals a request the pipeline rejects before any lookup.
	ErrQuoteInvalidInput = errors.New("quote service: invalid input")
)

// QuoteRequest carries every input a quote depends on. Changing any field
// produces a different snapshot key and therefore a fresh quote.
type QuoteRequest struct {
	Items              []ShipmentItem
	SourceCountry      CountryCode
	DestinationCountry CountryCode
	Category           RateCategory
	DeliveryOption     DeliveryOption
	WeightKg           decimal.Decimal
	Dimensions         *Dimensions
	BypassCache        bool
}

type quoteService struct {
	aggregator *ShipmentAggregator
	estimator  *ShippingCostEstimator
	idGen      func() string
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)
	cache      *quoteCache
}

// QuoteServiceDeps bundles constructor inputs for the quote service.
type QuoteServiceDeps struct {
	Aggregator *ShipmentAggregator
	Estimator  *ShippingCostEstimator
	CacheTTL   time.Duration
	IDGen      func() string
	Now        func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

// NewQuoteService constructs the quote pipeline. A zero CacheTTL disables the
// snapshot cache entirely.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Aggregator == nil {
		return nil, errors.New("quote service: aggregator is required")
	}
	if deps.Estimator == nil {
		return nil, errors.New("quote service: estimator is required")
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	var cache *quoteCache
	if deps.CacheTTL > 0 {
		cache = newQuoteCache(deps.CacheTTL, func() time.Time { return now().UTC() })
	}
	return &quoteService{
		aggregator: deps.Aggregator,
		estimator:  deps.Estimator,
		idGen:      idGen,
		now:        func() time.Time { return now().UTC() },
		logger:     logger,
		cache:      cache,
	}, nil
}

// Quote aggregates the items, estimates shipping when weight or dimensions are
// present, and rolls both into a grand total. A route with no rate anywhere
// yields a quote marked not transportable rather than an error.
func (s *quoteService) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if err := s.validate(req); err != nil {
		return Quote{}, err
	}

	key := buildSnapshotKey(req)
	if s.cache != nil && !req.BypassCache {
		if cached, ok := s.cache.Get(key); ok {
			quote := cached
			quote.ID = s.idGen()
			return quote, nil
		}
	}

	breakdown, err := s.aggregator.Aggregate(ctx, req.Items, req.SourceCountry, req.DestinationCountry)
	if err != nil {
		if errors.Is(err, ErrRouteNotTransportable) {
			return s.finish(ctx, key, Quote{SnapshotKey: key}), nil
		}
		return Quote{}, err
	}

	estimate, err := s.estimator.Estimate(ctx, EstimateInput{
		Origin:           req.SourceCountry,
		Destination:      req.DestinationCountry,
		Category:         req.Category,
		WeightKg:         req.WeightKg,
		Dimensions:       req.Dimensions,
		DeliveryOption:   req.DeliveryOption,
		PreShippingTotal: breakdown.TotalDestination,
		RateCurrency:     breakdown.DestinationCurrency,
	})
	if err != nil {
		if errors.Is(err, ErrRouteNotTransportable) {
			return s.finish(ctx, key, Quote{SnapshotKey: key, Breakdown: breakdown}), nil
		}
		return Quote{}, err
	}

	grand := breakdown.TotalDestination
	if estimate != nil {
		grand = grand.Add(estimate.ShippingTotal)
	}
	return s.finish(ctx, key, Quote{
		SnapshotKey:   key,
		Breakdown:     breakdown,
		Shipping:      estimate,
		Transportable: true,
		GrandTotal:    grand,
	}), nil
}

func (s *quoteService) finish(ctx context.Context, key string, quote Quote) Quote {
	quote.ID = s.idGen()
	quote.CreatedAt = s.now()
	if s.cache != nil {
		s.cache.Put(key, quote)
	}
	s.logger(ctx, "quote computed", map[string]any{
		"quote_id":      quote.ID,
		"transportable": quote.Transportable,
		"grand_total":   quote.GrandTotal.String(),
	})
	return quote
}

func (s *quoteService) validate(req QuoteRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrQuoteInvalidInput)
	}
	if !domain.IsSourceCountry(req.SourceCountry) {
		return fmt.Errorf("%w: %s is not a serviced origin", ErrQuoteInvalidInput, req.SourceCountry)
	}
	if strings.TrimSpace(string(req.DestinationCountry)) == "" {
		return fmt.Errorf("%w: destination country is required", ErrQuoteInvalidInput)
	}
	if req.WeightKg.IsNegative() {
		return fmt.Errorf("%w: negative weight", ErrQuoteInvalidInput)
	}
	if req.Dimensions != nil && !req.Dimensions.Valid() {
		return fmt.Errorf("%w: dimensions must all be positive", ErrQuoteInvalidInput)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has non-positive quantity", ErrQuoteInvalidInput, i)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: item %d has negative price", ErrQuoteInvalidInput, i)
		}
		if _, err := domain.CountryForCurrency(item.Currency); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// buildSnapshotKey fingerprints every quote input so callers can detect when a
// result belongs to a superseded request.
func buildSnapshotKey(req QuoteRequest) string {
	parts := []string{
		strings.ToUpper(string(req.SourceCountry)),
		strings.ToUpper(string(req.DestinationCountry)),
		strings.ToLower(string(req.Category)),
		strings.ToLower(string(req.DeliveryOption)),
		req.WeightKg.String(),
	}
	if req.Dimensions != nil {
		n := req.Dimensions.Normalized()
		parts = append(parts, n.Length.String(), n.Width.String(), n.Height.String())
	}
	itemParts := make([]string, len(req.Items))
	for i, item := range req.Items {
		itemParts[i] = strings.Join([]string{
			item.Price.String(),
			fmt.Sprintf("%d", item.Quantity),
			strings.ToUpper(string(item.Currency)),
		}, ",")
	}
	sort.Strings(itemParts)
	parts = append(parts, strings.Join(itemParts, ";"))
	return strings.Join(parts, "|")
}

type quoteCache struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	quote   Quote
	expires time.Time
}

func newQuoteCache(ttl time.Duration, now func() time.Time) *quoteCache {
	return &quoteCache{
		ttl: ttl,
		now: now,
		m:   make(map[string]quoteCacheEntry),
	}
}

func (c *quoteCache) Get(key string) (Quote, bool) {
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return Quote{}, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return Quote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) Put(key string, quote Quote) {
	c.mu.Lock()
	c.m[key] = quoteCacheEntry{quote: quote, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}
