package synthetic

import (
	"math/rand"
	"sync"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/pkg/util"
)

// Config holds the random-walk parameters. The momentum bias and volatility
// bands are product constants; they are configurable but not tuned here.
type Config struct {
	MinBasePrice  float64
	MaxBasePrice  float64
	SeedJitter    float64 // fraction of reference price, e.g. 0.005 = ±0.5%
	MinVolatility float64 // fraction of price per tick
	MaxVolatility float64
	MomentumBias  float64 // probability of continuing the last direction up
	PriceFloor    float64
}

// DefaultConfig returns the stock parameter set.
func DefaultConfig() Config {
	return Config{
		MinBasePrice:  10,
		MaxBasePrice:  500,
		SeedJitter:    0.005,
		MinVolatility: 0.0001,
		MaxVolatility: 0.0005,
		MomentumBias:  0.6,
		PriceFloor:    0.01,
	}
}

// symbolState is the walk state for one symbol. It is the single source of
// truth for that symbol's last synthetic price and is mutated only under its
// own lock, so concurrent ticks for the same symbol serialize.
type symbolState struct {
	mu         sync.Mutex
	price      float64
	lastDelta  float64
	volatility float64
}

// Generator produces statistically plausible quotes when no live source is
// available. State is created lazily per symbol and kept for the process
// lifetime.
type Generator struct {
	cfg Config

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

// New creates a Generator.
func New(cfg Config) *Generator {
	if cfg.PriceFloor <= 0 {
		cfg.PriceFloor = 0.01
	}
	return &Generator{cfg: cfg, symbols: make(map[string]*symbolState)}
}

// Seed initializes walk state for a symbol. Idempotent: existing state is
// kept. A non-positive reference price draws a random base instead.
func (g *Generator) Seed(symbol string, referencePrice float64) {
	g.mu.RLock()
	_, ok := g.symbols[symbol]
	g.mu.RUnlock()
	if ok {
		return
	}

	price := referencePrice
	if price <= 0 {
		price = g.cfg.MinBasePrice + rand.Float64()*(g.cfg.MaxBasePrice-g.cfg.MinBasePrice)
	} else {
		jitter := (rand.Float64()*2 - 1) * g.cfg.SeedJitter
		price *= 1 + jitter
	}
	if price < g.cfg.PriceFloor {
		price = g.cfg.PriceFloor
	}

	st := &symbolState{
		price:      price,
		volatility: g.cfg.MinVolatility + rand.Float64()*(g.cfg.MaxVolatility-g.cfg.MinVolatility),
	}

	g.mu.Lock()
	if _, ok := g.symbols[symbol]; !ok {
		g.symbols[symbol] = st
	}
	g.mu.Unlock()
}

// Tick advances the walk for a symbol and returns the resulting quote.
// Unseeded symbols are seeded from a random base first.
func (g *Generator) Tick(symbol string) *models.Quote {
	st := g.state(symbol)

	st.mu.Lock()
	prev := st.price

	// Momentum: after an up-tick the next move is biased up (and the
	// mirror after a down-tick) so the series walks instead of jittering
	// around a mean.
	bias := g.cfg.MomentumBias
	if st.lastDelta < 0 {
		bias = 1 - g.cfg.MomentumBias
	}
	delta := prev * st.volatility * rand.Float64()
	if rand.Float64() >= bias {
		delta = -delta
	}

	next := prev + delta
	if next < g.cfg.PriceFloor {
		next = g.cfg.PriceFloor
	}

	change := next - prev
	st.price = next
	st.lastDelta = change
	st.mu.Unlock()

	pct := 0.0
	if prev > 0 {
		pct = change / prev * 100
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         util.Round2(next),
		Change:        util.Round2(change),
		PercentChange: util.Round2(pct),
		Timestamp:     time.Now().UnixMilli(),
		IsSynthetic:   true,
		DataSource:    models.SourceSynthetic,
	}
}

// LastPrice returns the current walk price for a symbol, if seeded.
func (g *Generator) LastPrice(symbol string) (float64, bool) {
	g.mu.RLock()
	st, ok := g.symbols[symbol]
	g.mu.RUnlock()
	if !ok {
		return 0, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.price, true
}

func (g *Generator) state(symbol string) *symbolState {
	g.mu.RLock()
	st, ok := g.symbols[symbol]
	g.mu.RUnlock()
	if ok {
		return st
	}
	g.Seed(symbol, 0)
	g.mu.RLock()
	st = g.symbols[symbol]
	g.mu.RUnlock()
	return st
}
