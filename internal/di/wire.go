//go:build wireinject
// +build wireinject

package di

import (
	"QuotePulse/pkg/config"
	"QuotePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Domain services
		ProvideClassifier,
		ProvideSyntheticGenerator,
		ProvideFeedClient,
		ProvideQuoteAPIClient,
		ProvideResolver,
		ProvideCache,
		ProvideVerifier,
		ProvidePublisher,

		// Stream
		ProvideRegistry,
		ProvideBroadcaster,
		ProvideWSManager,

		// REST
		ProvideQuoteService,
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
