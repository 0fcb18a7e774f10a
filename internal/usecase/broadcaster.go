package usecase

import (
	"context"
	"sync"
	"time"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/market"
	"QuotePulse/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// QuoteSink is the delivery side of one session. Implemented by the
// WebSocket session.
type QuoteSink interface {
	Alive() bool
	SendQuote(q *models.Quote, snap market.Snapshot) error
}

// SubscriptionView is the broadcaster's read-only view of the registry.
type SubscriptionView interface {
	Has(sessionID string) bool
	SymbolsFor(sessionID string) []string
}

// Intervals holds phase-dependent broadcast cadences.
type Intervals struct {
	Regular  time.Duration
	Extended time.Duration
	Weekend  time.Duration
}

// pick returns the cadence for a phase snapshot.
func (i Intervals) pick(snap market.Snapshot) time.Duration {
	switch {
	case snap.IsWeekend:
		return i.Weekend
	case snap.Phase == market.PhaseRegular:
		return i.Regular
	default:
		return i.Extended
	}
}

// Broadcaster runs one periodic delivery task per live, subscribed session.
type Broadcaster struct {
	resolver      repository.Resolver
	registry      SubscriptionView
	publisher     repository.Publisher
	intervals     Intervals
	maxConcurrent int
	metrics       repository.Metrics
	log           *logger.Logger

	// classify is split out so tests can pin a phase.
	classify func(time.Time) market.Snapshot
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(
	resolver repository.Resolver,
	classifier *market.Classifier,
	registry SubscriptionView,
	publisher repository.Publisher,
	intervals Intervals,
	maxConcurrent int,
	metrics repository.Metrics,
	log *logger.Logger,
) *Broadcaster {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Broadcaster{
		resolver:      resolver,
		registry:      registry,
		publisher:     publisher,
		intervals:     intervals,
		maxConcurrent: maxConcurrent,
		metrics:       metrics,
		log:           log,
		classify:      classifier.Classify,
	}
}

// Run ticks the session until the context is canceled, the transport dies,
// the session leaves the registry, or its subscription set empties. The
// cadence is re-read from the classifier on every tick, and each tick works
// on a snapshot of the symbol set taken at tick start.
func (b *Broadcaster) Run(ctx context.Context, sessionID string, sink QuoteSink) {
	// First tick fires immediately so a fresh subscriber is not left
	// waiting a full off-hours interval for its first frame.
	for {
		if !b.tick(ctx, sessionID, sink) {
			return
		}

		snap := b.classify(time.Now())
		timer := time.NewTimer(b.intervals.pick(snap))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// tick delivers one frame per subscribed symbol. Returns false when the task
// should end.
func (b *Broadcaster) tick(ctx context.Context, sessionID string, sink QuoteSink) bool {
	if ctx.Err() != nil {
		return false
	}
	// A dead transport cancels now instead of waiting for the heartbeat
	// timeout, and a removed session must never be sent to.
	if !sink.Alive() || !b.registry.Has(sessionID) {
		return false
	}

	symbols := b.registry.SymbolsFor(sessionID)
	if len(symbols) == 0 {
		return false
	}

	snap := b.classify(time.Now())

	var (
		pubMu     sync.Mutex
		delivered []*models.Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			q := b.resolver.Resolve(gctx, symbol, snap)
			if !sink.Alive() || !b.registry.Has(sessionID) {
				return nil
			}
			if err := sink.SendQuote(q, snap); err != nil {
				b.metrics.RecordFrameDropped()
				return nil
			}
			b.metrics.RecordFrameSent(q.DataSource)
			if b.publisher != nil {
				pubMu.Lock()
				delivered = append(delivered, q)
				pubMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Everything the tick delivered goes downstream in one writer call.
	if b.publisher != nil && len(delivered) > 0 {
		if err := b.publisher.PublishBatch(ctx, delivered); err != nil {
			b.log.Warn("publish tick", logger.Int("quotes", len(delivered)), logger.Error(err))
		}
	}
	return true
}
