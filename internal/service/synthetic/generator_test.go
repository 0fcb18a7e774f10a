package synthetic

import (
	"math"
	"sync"
	"testing"

	"QuotePulse/internal/domain/models"
)

func TestTickNeverNonPositive(t *testing.T) {
	g := New(DefaultConfig())
	g.Seed("PENNY", 0.02)

	for i := 0; i < 20000; i++ {
		q := g.Tick("PENNY")
		if q.Price <= 0 {
			t.Fatalf("tick %d produced non-positive price %v", i, q.Price)
		}
	}
}

func TestSeedIdempotent(t *testing.T) {
	g := New(DefaultConfig())
	g.Seed("AAPL", 190)
	first, ok := g.LastPrice("AAPL")
	if !ok {
		t.Fatalf("expected state after seed")
	}
	g.Seed("AAPL", 500)
	second, _ := g.LastPrice("AAPL")
	if first != second {
		t.Fatalf("re-seed mutated state: %v != %v", first, second)
	}
}

func TestSeedJitterStaysNearReference(t *testing.T) {
	cfg := DefaultConfig()
	g := New(cfg)
	g.Seed("MSFT", 400)
	price, _ := g.LastPrice("MSFT")
	if math.Abs(price-400) > 400*cfg.SeedJitter+1e-9 {
		t.Fatalf("seed price %v too far from reference", price)
	}
}

func TestSeedWithoutReferenceUsesBaseRange(t *testing.T) {
	cfg := DefaultConfig()
	g := New(cfg)
	g.Seed("ZZZZ", 0)
	price, ok := g.LastPrice("ZZZZ")
	if !ok {
		t.Fatalf("expected state")
	}
	if price < cfg.MinBasePrice || price > cfg.MaxBasePrice {
		t.Fatalf("base price %v outside [%v, %v]", price, cfg.MinBasePrice, cfg.MaxBasePrice)
	}
}

func TestTickChangeAgainstPreviousTick(t *testing.T) {
	g := New(DefaultConfig())
	g.Seed("TSLA", 250)

	prev, _ := g.LastPrice("TSLA")
	for i := 0; i < 100; i++ {
		q := g.Tick("TSLA")
		cur, _ := g.LastPrice("TSLA")
		// Quote fields are rounded; compare against the unrounded walk
		// with rounding tolerance.
		if math.Abs(q.Change-(cur-prev)) > 0.011 {
			t.Fatalf("change %v not derived from previous tick (%v -> %v)", q.Change, prev, cur)
		}
		prev = cur
	}
}

func TestTickMarksSynthetic(t *testing.T) {
	g := New(DefaultConfig())
	q := g.Tick("NEW")
	if !q.IsSynthetic || q.DataSource != models.SourceSynthetic {
		t.Fatalf("synthetic quote not tagged: %+v", q)
	}
}

func TestConcurrentTicksSameSymbol(t *testing.T) {
	g := New(DefaultConfig())
	g.Seed("AMD", 150)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if q := g.Tick("AMD"); q.Price <= 0 {
					t.Errorf("non-positive price under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}
