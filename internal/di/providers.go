package di

import (
	"fmt"

	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/handler/api"
	"QuotePulse/internal/handler/ws"
	"QuotePulse/internal/market"
	internalrepo "QuotePulse/internal/repository"
	"QuotePulse/internal/service/auth"
	"QuotePulse/internal/service/feed"
	"QuotePulse/internal/service/quoteapi"
	"QuotePulse/internal/service/synthetic"
	"QuotePulse/internal/usecase"
	"QuotePulse/pkg/cache"
	"QuotePulse/pkg/config"
	pkgkafka "QuotePulse/pkg/kafka"
	"QuotePulse/pkg/logger"
	"QuotePulse/pkg/metrics"
	"QuotePulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClassifier creates the market session classifier.
func ProvideClassifier(cfg *config.Config) (*market.Classifier, error) {
	return market.NewClassifier(cfg.Market.Timezone)
}

// ProvideSyntheticGenerator creates the synthetic price generator.
func ProvideSyntheticGenerator(cfg *config.Config) *synthetic.Generator {
	gc := synthetic.DefaultConfig()
	if cfg.Synthetic.MinBasePrice > 0 {
		gc.MinBasePrice = cfg.Synthetic.MinBasePrice
	}
	if cfg.Synthetic.MaxBasePrice > 0 {
		gc.MaxBasePrice = cfg.Synthetic.MaxBasePrice
	}
	if cfg.Synthetic.SeedJitter > 0 {
		gc.SeedJitter = cfg.Synthetic.SeedJitter
	}
	if cfg.Synthetic.MinVolatility > 0 {
		gc.MinVolatility = cfg.Synthetic.MinVolatility
	}
	if cfg.Synthetic.MaxVolatility > 0 {
		gc.MaxVolatility = cfg.Synthetic.MaxVolatility
	}
	if cfg.Synthetic.MomentumBias > 0 {
		gc.MomentumBias = cfg.Synthetic.MomentumBias
	}
	if cfg.Synthetic.PriceFloor > 0 {
		gc.PriceFloor = cfg.Synthetic.PriceFloor
	}
	return synthetic.New(gc)
}

// ProvideFeedClient creates the broker stream client (primary tier).
func ProvideFeedClient(cfg *config.Config, log *logger.Logger) *feed.Client {
	return feed.New(feed.Config{
		WebSocketURL:   cfg.Feed.WebSocketURL,
		APIKey:         cfg.Feed.APIKey,
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		PingInterval:   cfg.Feed.PingInterval,
		MaxTradeAge:    cfg.Feed.MaxTradeAge,
	}, log)
}

// ProvideQuoteAPIClient creates the REST quote client (secondary tier).
func ProvideQuoteAPIClient(cfg *config.Config) *quoteapi.Client {
	return quoteapi.New(quoteapi.Config{
		BaseURL: cfg.QuoteAPI.BaseURL,
		APIKey:  cfg.QuoteAPI.APIKey,
		Timeout: cfg.QuoteAPI.Timeout,
	})
}

// ProvideResolver assembles the tier chain.
func ProvideResolver(
	feedClient *feed.Client,
	apiClient *quoteapi.Client,
	synth *synthetic.Generator,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) repository.Resolver {
	return usecase.NewQuoteResolver(feedClient, apiClient, synth, m, log,
		usecase.WithTierTimeout(cfg.Stream.ResolveTimeout),
		usecase.WithReferencePrices(cfg.Synthetic.Reference),
	)
}

// ProvideCache creates the quote cache: Redis when configured, otherwise an
// in-process LRU.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideVerifier creates the credential verifier.
func ProvideVerifier(cfg *config.Config) repository.CredentialVerifier {
	return auth.NewVerifier(cfg.Auth.Secret)
}

// ProvidePublisher creates the downstream quote publisher. Kafka is
// optional; with it disabled resolved quotes only go to sessions.
func ProvidePublisher(cfg *config.Config) (repository.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewQuotePublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideRegistry creates the session registry.
func ProvideRegistry() *ws.Registry {
	return ws.NewRegistry()
}

// ProvideBroadcaster creates the per-session broadcast engine.
func ProvideBroadcaster(
	resolver repository.Resolver,
	classifier *market.Classifier,
	registry *ws.Registry,
	publisher repository.Publisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Broadcaster {
	return usecase.NewBroadcaster(resolver, classifier, registry, publisher,
		usecase.Intervals{
			Regular:  cfg.Stream.RegularInterval,
			Extended: cfg.Stream.ExtendedInterval,
			Weekend:  cfg.Stream.WeekendInterval,
		},
		cfg.Stream.MaxConcurrentResolves, m, log,
	)
}

// ProvideWSManager creates the WebSocket connection manager.
func ProvideWSManager(
	cfg *config.Config,
	registry *ws.Registry,
	verifier repository.CredentialVerifier,
	broadcaster *usecase.Broadcaster,
	m repository.Metrics,
	log *logger.Logger,
) *ws.Manager {
	return ws.NewManager(ws.Config{
		HeartbeatTimeout:     cfg.Stream.HeartbeatTimeout,
		SendBuffer:           cfg.Stream.SendBuffer,
		MaxSymbolsPerSession: cfg.Stream.MaxSymbolsPerSession,
	}, registry, verifier, broadcaster, m, log)
}

// ProvideQuoteService creates the REST quote use case.
func ProvideQuoteService(
	resolver repository.Resolver,
	classifier *market.Classifier,
	c cache.Service,
	log *logger.Logger,
) *usecase.QuoteService {
	return usecase.NewQuoteService(resolver, classifier, c, log)
}

// ProvideAPIHandler creates the REST handler.
func ProvideAPIHandler(quotes *usecase.QuoteService, classifier *market.Classifier, log *logger.Logger) *api.Handler {
	return api.NewHandler(quotes, classifier, log)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	feedClient *feed.Client,
	publisher repository.Publisher,
	c cache.Service,
	wsManager *ws.Manager,
	apiHandler *api.Handler,
) *server.App {
	return server.New(cfg, log, feedClient, publisher, c, wsManager, apiHandler)
}
