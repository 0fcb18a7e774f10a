package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/market"
	"QuotePulse/pkg/cache"
	"QuotePulse/pkg/logger"
)

// QuoteService serves the REST quote endpoints. It runs the same resolver as
// the live stream, fronted by a cache whose lifetime follows the session
// phase: short during regular hours, up to a day on weekends.
type QuoteService struct {
	resolver   repository.Resolver
	classifier *market.Classifier
	cache      cache.Service
	log        *logger.Logger
}

// NewQuoteService creates a QuoteService.
func NewQuoteService(resolver repository.Resolver, classifier *market.Classifier, c cache.Service, log *logger.Logger) *QuoteService {
	return &QuoteService{resolver: resolver, classifier: classifier, cache: c, log: log}
}

// Get returns one quote, from cache when fresh. forceRefresh disables
// caching entirely for this call, regardless of phase.
func (s *QuoteService) Get(ctx context.Context, symbol string, forceRefresh bool) (*models.Quote, market.Snapshot) {
	snap := s.classifier.Classify(time.Now())
	key := "quote:" + symbol

	if !forceRefresh {
		if b, err := s.cache.Get(ctx, key); err == nil {
			var q models.Quote
			if err := json.Unmarshal(b, &q); err == nil {
				return &q, snap
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("quote cache read", logger.String("symbol", symbol), logger.Error(err))
		}
	}

	q := s.resolver.Resolve(ctx, symbol, snap)

	if b, err := json.Marshal(q); err == nil {
		if err := s.cache.Set(ctx, key, b, snap.CacheTTL()); err != nil {
			s.log.Warn("quote cache write", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return q, snap
}

// GetBatch returns quotes for several symbols under the same cache policy.
func (s *QuoteService) GetBatch(ctx context.Context, symbols []string, forceRefresh bool) ([]*models.Quote, market.Snapshot) {
	snap := s.classifier.Classify(time.Now())
	out := make([]*models.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, _ := s.Get(ctx, sym, forceRefresh)
		out = append(out, q)
	}
	return out, snap
}
