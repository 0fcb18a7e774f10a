package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"QuotePulse/internal/domain/repository"
	"QuotePulse/internal/handler/api"
	"QuotePulse/internal/handler/ws"
	"QuotePulse/internal/service/feed"
	"QuotePulse/pkg/cache"
	"QuotePulse/pkg/config"
	xhttp "QuotePulse/pkg/http"
	applogger "QuotePulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	feed       *feed.Client
	publisher  repository.Publisher
	cache      cache.Service
	handlers   []xhttp.Handler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	feedClient *feed.Client,
	publisher repository.Publisher,
	cacheSvc cache.Service,
	wsManager *ws.Manager,
	apiHandler *api.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		feed:      feedClient,
		publisher: publisher,
		cache:     cacheSvc,
		handlers:  []xhttp.Handler{wsManager, apiHandler},
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The broker stream reconnects on its own; a dead feed degrades the
	// resolver chain instead of failing startup.
	go a.feed.Run(ctx)
	a.log.Info("feed client started", applogger.String("url", a.cfg.Feed.WebSocketURL))

	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.feed.Close(); err != nil {
		a.log.Warn("feed close error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
