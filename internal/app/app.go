package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/puzzlink/puzzlink-server/internal/auth"
	"github.com/puzzlink/puzzlink-server/internal/config"
	"github.com/puzzlink/puzzlink-server/internal/core"
	"github.com/puzzlink/puzzlink-server/internal/pubsub/hub"
	"github.com/puzzlink/puzzlink-server/internal/pubsub/webhook"
	"github.com/puzzlink/puzzlink-server/internal/store"
	"github.com/puzzlink/puzzlink-server/internal/store/sqlite"
	transporthttp "github.com/puzzlink/puzzlink-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("participant registry initialized")

	if cfg.TokenSecret == "" {
		logger.Warn().Msg("no token secret configured: channel authorization will be unavailable")
	}
	authorizer := auth.NewAuthorizer(&auth.JWTConfig{
		Secret:   []byte(cfg.TokenSecret),
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
		TTL:      cfg.TokenTTL,
	})

	// Pick the pub/sub backend: the managed service when credentials are
	// present, otherwise the in-process hub with the /ws subscriber bridge.
	webhookCfg := webhook.Config{
		AppID:    cfg.TransportAppID,
		Key:      cfg.TransportKey,
		Secret:   cfg.TransportSecret,
		Cluster:  cfg.TransportCluster,
		Endpoint: cfg.TransportEndpoint,
	}

	var (
		transport core.Transport
		localHub  *hub.Hub
	)
	if webhookCfg.Configured() {
		transport = webhook.New(webhookCfg, logger)
		logger.Info().Str("cluster", cfg.TransportCluster).Msg("using managed pub/sub transport")
	} else {
		localHub = hub.New(authorizer, logger)
		transport = localHub
		logger.Warn().Msg("transport credentials missing: realtime fan-out runs in local-hub mode")
	}

	broadcaster := core.NewBroadcaster(transport, logger)
	server := transporthttp.NewServer(authorizer, st, broadcaster, localHub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
