package usecase

import (
	"context"
	"sync"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/market"
	"QuotePulse/internal/service/synthetic"
	"QuotePulse/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// ResolverOption configures QuoteResolver.
type ResolverOption func(*QuoteResolver)

// WithTierTimeout bounds each external tier call. Must stay shorter than the
// broadcast interval so a hung upstream cannot stall tick delivery.
func WithTierTimeout(d time.Duration) ResolverOption {
	return func(r *QuoteResolver) { r.tierTimeout = d }
}

// WithReferencePrices supplies seed prices for symbols never served by a
// live tier in this process.
func WithReferencePrices(ref map[string]float64) ResolverOption {
	return func(r *QuoteResolver) {
		for k, v := range ref {
			r.reference[k] = v
		}
	}
}

// QuoteResolver walks an ordered tier list and returns one canonical quote.
// It never fails: any upstream failure degrades to the next tier and the
// synthetic tier always answers. The winning tier is recorded in the quote's
// DataSource so synthetic data is never passed off as live.
type QuoteResolver struct {
	primary   repository.QuoteProvider
	secondary repository.QuoteProvider
	synth     *synthetic.Generator

	tierTimeout time.Duration
	metrics     repository.Metrics
	log         *logger.Logger

	sf        singleflight.Group
	mu        sync.RWMutex
	lastGood  map[string]float64
	reference map[string]float64
}

// NewQuoteResolver creates a resolver over the provider chain.
func NewQuoteResolver(
	primary repository.QuoteProvider,
	secondary repository.QuoteProvider,
	synth *synthetic.Generator,
	metrics repository.Metrics,
	log *logger.Logger,
	opts ...ResolverOption,
) *QuoteResolver {
	r := &QuoteResolver{
		primary:     primary,
		secondary:   secondary,
		synth:       synth,
		tierTimeout: 2 * time.Second,
		metrics:     metrics,
		log:         log,
		lastGood:    make(map[string]float64),
		reference:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tiers returns the provider order for a session phase. The primary broker
// stream carries real trades only during regular hours; everywhere else the
// chain starts at the secondary API. Reordering is a data change here, not a
// control-flow change.
func (r *QuoteResolver) tiers(snap market.Snapshot) []repository.QuoteProvider {
	if snap.IsMarketOpen() {
		return []repository.QuoteProvider{r.primary, r.secondary}
	}
	return []repository.QuoteProvider{r.secondary}
}

// Resolve returns one quote for the symbol. Concurrent resolves of the same
// symbol are collapsed so every session ticking at the same instant observes
// the same value.
func (r *QuoteResolver) Resolve(ctx context.Context, symbol string, snap market.Snapshot) *models.Quote {
	v, _, _ := r.sf.Do(symbol, func() (interface{}, error) {
		return r.resolve(ctx, symbol, snap), nil
	})
	return v.(*models.Quote)
}

func (r *QuoteResolver) resolve(ctx context.Context, symbol string, snap market.Snapshot) *models.Quote {
	for _, p := range r.tiers(snap) {
		if p == nil {
			continue
		}
		start := time.Now()
		tctx, cancel := context.WithTimeout(ctx, r.tierTimeout)
		q, err := p.Quote(tctx, symbol)
		cancel()
		if err != nil || q == nil {
			r.metrics.RecordProviderError(p.Name())
			r.log.Debug("tier unavailable",
				logger.String("provider", p.Name()),
				logger.String("symbol", symbol),
				logger.Error(err),
			)
			continue
		}
		r.metrics.RecordResolveLatency(p.Name(), time.Since(start).Seconds())
		r.rememberGood(symbol, q.Price)
		return q
	}

	// All external tiers down: synthesize, seeded from the best price we
	// know for the symbol.
	start := time.Now()
	r.synth.Seed(symbol, r.seedPrice(symbol))
	q := r.synth.Tick(symbol)
	r.metrics.RecordResolveLatency(models.SourceSynthetic, time.Since(start).Seconds())
	return q
}

// LastGoodPrice returns the most recent live price seen for a symbol.
func (r *QuoteResolver) LastGoodPrice(symbol string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.lastGood[symbol]
	return p, ok
}

func (r *QuoteResolver) rememberGood(symbol string, price float64) {
	r.mu.Lock()
	r.lastGood[symbol] = price
	r.mu.Unlock()
}

func (r *QuoteResolver) seedPrice(symbol string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.lastGood[symbol]; ok {
		return p
	}
	if p, ok := r.reference[symbol]; ok {
		return p
	}
	return 0
}
