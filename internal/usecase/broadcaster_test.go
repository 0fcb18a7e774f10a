package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/market"
)

type stubResolver struct {
	mu    sync.Mutex
	calls int
}

func (s *stubResolver) Resolve(_ context.Context, symbol string, _ market.Snapshot) *models.Quote {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return &models.Quote{Symbol: symbol, Price: 100, DataSource: models.SourceSynthetic, IsSynthetic: true}
}

type memRegistry struct {
	mu      sync.Mutex
	present bool
	symbols []string
}

func (m *memRegistry) Has(string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

func (m *memRegistry) SymbolsFor(string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.symbols...)
}

func (m *memRegistry) set(present bool, symbols ...string) {
	m.mu.Lock()
	m.present = present
	m.symbols = symbols
	m.mu.Unlock()
}

type memSink struct {
	mu     sync.Mutex
	alive  bool
	frames []*models.Quote
}

func (s *memSink) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *memSink) SendQuote(q *models.Quote, _ market.Snapshot) error {
	s.mu.Lock()
	s.frames = append(s.frames, q)
	s.mu.Unlock()
	return nil
}

func (s *memSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func newTestBroadcaster(t *testing.T, reg SubscriptionView, snap market.Snapshot) *Broadcaster {
	t.Helper()
	classifier, err := market.NewClassifier("UTC")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	b := NewBroadcaster(&stubResolver{}, classifier, reg, nil,
		Intervals{Regular: 10 * time.Millisecond, Extended: 20 * time.Millisecond, Weekend: 20 * time.Millisecond},
		4, noopMetrics{}, testLogger(t))
	b.classify = func(time.Time) market.Snapshot { return snap }
	return b
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func TestRunEmitsFramePerSymbol(t *testing.T) {
	reg := &memRegistry{}
	reg.set(true, "AAPL", "MSFT")
	sink := &memSink{alive: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go newTestBroadcaster(t, reg, market.Snapshot{Phase: market.PhaseRegular}).Run(ctx, "s1", sink)

	waitFor(t, time.Second, func() bool { return sink.frameCount() >= 4 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	seen := map[string]bool{}
	for _, f := range sink.frames {
		seen[f.Symbol] = true
	}
	if !seen["AAPL"] || !seen["MSFT"] {
		t.Fatalf("expected frames for both symbols, saw %v", seen)
	}
}

func TestRunStopsWhenSymbolsEmpty(t *testing.T) {
	reg := &memRegistry{}
	reg.set(true, "AAPL")
	sink := &memSink{alive: true}

	done := make(chan struct{})
	go func() {
		newTestBroadcaster(t, reg, market.Snapshot{Phase: market.PhaseRegular}).Run(context.Background(), "s1", sink)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return sink.frameCount() >= 1 })
	reg.set(true) // unsubscribe everything

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task did not self-cancel after subscription set emptied")
	}
}

func TestRunStopsWhenSessionRemoved(t *testing.T) {
	reg := &memRegistry{}
	reg.set(true, "AAPL")
	sink := &memSink{alive: true}

	done := make(chan struct{})
	go func() {
		newTestBroadcaster(t, reg, market.Snapshot{Phase: market.PhaseRegular}).Run(context.Background(), "s1", sink)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return sink.frameCount() >= 1 })
	reg.set(false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task kept running for a removed session")
	}

	// No frames may arrive after removal.
	n := sink.frameCount()
	time.Sleep(60 * time.Millisecond)
	if sink.frameCount() != n {
		t.Fatalf("frames emitted after session removal")
	}
}

func TestRunStopsWhenTransportDead(t *testing.T) {
	reg := &memRegistry{}
	reg.set(true, "AAPL")
	sink := &memSink{alive: true}

	done := make(chan struct{})
	go func() {
		newTestBroadcaster(t, reg, market.Snapshot{Phase: market.PhaseRegular}).Run(context.Background(), "s1", sink)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return sink.frameCount() >= 1 })
	sink.mu.Lock()
	sink.alive = false
	sink.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("task kept running on a dead transport")
	}
}

type memPublisher struct {
	mu      sync.Mutex
	batches [][]*models.Quote
}

func (p *memPublisher) PublishBatch(_ context.Context, quotes []*models.Quote) error {
	p.mu.Lock()
	p.batches = append(p.batches, append([]*models.Quote(nil), quotes...))
	p.mu.Unlock()
	return nil
}

func (p *memPublisher) Close() error { return nil }

func TestRunPublishesTickBatchDownstream(t *testing.T) {
	reg := &memRegistry{}
	reg.set(true, "AAPL", "MSFT")
	sink := &memSink{alive: true}
	pub := &memPublisher{}

	classifier, err := market.NewClassifier("UTC")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	b := NewBroadcaster(&stubResolver{}, classifier, reg, pub,
		Intervals{Regular: 10 * time.Millisecond, Extended: 20 * time.Millisecond, Weekend: 20 * time.Millisecond},
		4, noopMetrics{}, testLogger(t))
	b.classify = func(time.Time) market.Snapshot { return market.Snapshot{Phase: market.PhaseRegular} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, "s1", sink)

	waitFor(t, time.Second, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.batches) >= 1
	})

	pub.mu.Lock()
	defer pub.mu.Unlock()
	first := pub.batches[0]
	if len(first) != 2 {
		t.Fatalf("batch size = %d, want 2 (one entry per delivered symbol)", len(first))
	}
	seen := map[string]bool{}
	for _, q := range first {
		seen[q.Symbol] = true
	}
	if !seen["AAPL"] || !seen["MSFT"] {
		t.Fatalf("batch missing symbols: %v", seen)
	}
}

func TestWeekendUsesLongerCadence(t *testing.T) {
	intervals := Intervals{Regular: 10 * time.Millisecond, Extended: 40 * time.Millisecond, Weekend: 80 * time.Millisecond}
	if intervals.pick(market.Snapshot{Phase: market.PhaseRegular}) != 10*time.Millisecond {
		t.Fatalf("regular cadence wrong")
	}
	if intervals.pick(market.Snapshot{Phase: market.PhaseAfterMarket}) != 40*time.Millisecond {
		t.Fatalf("extended cadence wrong")
	}
	if intervals.pick(market.Snapshot{Phase: market.PhaseOffHours, IsWeekend: true}) != 80*time.Millisecond {
		t.Fatalf("weekend cadence wrong")
	}
}
