package usecase

import (
	"context"
	"testing"
	"time"

	"QuotePulse/internal/market"
	"QuotePulse/pkg/cache"
)

func newQuoteService(t *testing.T, r *stubResolver) *QuoteService {
	t.Helper()
	classifier, err := market.NewClassifier("UTC")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	mc := cache.NewMemoryCache(cache.WithCleanupInterval(time.Minute))
	t.Cleanup(func() { _ = mc.Close() })
	return NewQuoteService(r, classifier, mc, testLogger(t))
}

func TestGetCachesSecondCall(t *testing.T) {
	r := &stubResolver{}
	s := newQuoteService(t, r)

	q1, _ := s.Get(context.Background(), "AAPL", false)
	q2, _ := s.Get(context.Background(), "AAPL", false)

	if q1.Symbol != "AAPL" || q2.Symbol != "AAPL" {
		t.Fatalf("unexpected symbols %q %q", q1.Symbol, q2.Symbol)
	}
	if r.calls != 1 {
		t.Fatalf("expected one resolve, got %d", r.calls)
	}
}

func TestGetForceRefreshBypassesCache(t *testing.T) {
	r := &stubResolver{}
	s := newQuoteService(t, r)

	s.Get(context.Background(), "AAPL", false)
	s.Get(context.Background(), "AAPL", true)

	if r.calls != 2 {
		t.Fatalf("forceRefresh must bypass the cache, got %d resolves", r.calls)
	}
}

func TestGetBatchResolvesEverySymbol(t *testing.T) {
	r := &stubResolver{}
	s := newQuoteService(t, r)

	quotes, _ := s.GetBatch(context.Background(), []string{"AAPL", "MSFT", "TSLA"}, false)
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	for i, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		if quotes[i].Symbol != sym {
			t.Fatalf("quote %d: got %q", i, quotes[i].Symbol)
		}
	}
}
