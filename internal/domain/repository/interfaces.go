package repository

import (
	"context"

	"QuotePulse/internal/domain/models"
	"QuotePulse/internal/market"
)

// QuoteProvider is one candidate data source in the fallback chain.
type QuoteProvider interface {
	// Name identifies the serving tier ("primary", "secondary").
	Name() string
	// Quote fetches the latest quote for an uppercased symbol. An error
	// means "tier unavailable for this call", never anything fatal.
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Resolver produces one canonical quote for a symbol, degrading through
// the tier chain. It never fails; the synthetic tier always answers.
type Resolver interface {
	Resolve(ctx context.Context, symbol string, snap market.Snapshot) *models.Quote
}

// CredentialVerifier is the opaque "verify token -> user id" capability.
// Credential storage and issuance live outside this service.
type CredentialVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Publisher fans resolved quotes out to a downstream topic. One call
// carries everything a broadcast tick delivered.
type Publisher interface {
	PublishBatch(ctx context.Context, quotes []*models.Quote) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	SessionAuthenticated()
	SessionRemoved()
	RecordFrameSent(source string)
	RecordFrameDropped()
	RecordProviderError(provider string)
	RecordHeartbeatTimeout()
	RecordResolveLatency(source string, seconds float64)
}
