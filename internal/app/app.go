package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/auth/jwt"
	"github.com/gokatarajesh/hcip-drill/internal/config"
	"github.com/gokatarajesh/hcip-drill/internal/ledger"
	"github.com/gokatarajesh/hcip-drill/internal/logging"
	"github.com/gokatarajesh/hcip-drill/internal/metrics"
	"github.com/gokatarajesh/hcip-drill/internal/question"
	"github.com/gokatarajesh/hcip-drill/internal/server"
	"github.com/gokatarajesh/hcip-drill/internal/session"
	ws "github.com/gokatarajesh/hcip-drill/pkg/http/ws"
)

// Application aggregates shared infrastructure (ledger backend, sessions, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	http     *http.Server
	ledger   ledger.Ledger
	sessions *session.Manager
	janitor  *session.Janitor
	limiter  *server.RateLimiter

	closers   []func(context.Context) error
	bgCancels []context.CancelFunc
}

// New bootstraps logger, question banks, the wrong-book ledger and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.NewWithFile(cfg.Name, cfg.Env, cfg.Log.Level, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	logger.Info().Msg("starting application bootstrap")

	metrics.Init()

	var objects *minio.Client
	if cfg.ObjectStore.Endpoint != "" {
		client, err := question.NewObjectClient(question.ObjectStoreConfig{
			Endpoint:  cfg.ObjectStore.Endpoint,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Region:    cfg.ObjectStore.Region,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect object store: %w", err)
		}
		objects = client
	}

	catalog := question.NewLoader(objects, logger).LoadAll(ctx, cfg.Datasets)

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		bgCancels: make([]context.CancelFunc, 0, 2),
	}

	backend, err := a.openLedger(ctx)
	if err != nil {
		a.closeResources(ctx)
		return nil, err
	}
	a.ledger = ledger.NewBestEffort(backend, logger)

	hub := ws.NewHub(logger)
	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Session.TokenSecret),
		TTL:    cfg.Session.TokenTTL,
		Issuer: cfg.Name,
	})

	a.sessions = session.NewManager(catalog, a.ledger, hub, session.ManagerOptions{
		AutoAdvanceDelay: cfg.Session.AutoAdvanceDelay,
	}, logger)
	handlers := session.NewHTTPHandlers(a.sessions, tokens, logger)

	if cfg.Session.TTL > 0 && cfg.Session.JanitorInterval > 0 {
		a.janitor = session.NewJanitor(a.sessions, cfg.Session.TTL, cfg.Session.JanitorInterval, logger)
	}

	a.limiter = server.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	ping := func(ctx context.Context) error {
		return ledger.Ping(ctx, a.ledger)
	}
	a.http = server.NewHTTPServer(cfg, logger, ping, a.limiter, handlers)

	return a, nil
}

func (a *Application) openLedger(ctx context.Context) (ledger.Ledger, error) {
	cfg := a.cfg
	log := a.logger.With().Str("ledger", cfg.Ledger.Backend).Logger()

	switch cfg.Ledger.Backend {
	case ledger.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("wrong book backed by redis")
		return ledger.NewRedis(client, cfg.Ledger.RedisPrefix), nil

	case ledger.BackendPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		if cfg.Postgres.MaxConns > 0 {
			poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		log.Info().Str("host", cfg.Postgres.Host).Msg("wrong book backed by postgres")
		return ledger.NewPostgres(pool), nil

	case ledger.BackendMongo:
		store, err := ledger.ConnectMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("wrong book index creation failed")
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("wrong book backed by mongo")
		return store, nil

	case ledger.BackendMemory, "":
		log.Info().Msg("wrong book kept in memory")
		return ledger.NewMemory(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnknownBackend, cfg.Ledger.Backend)
	}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		a.stopBackgroundWorkers()
		a.closeSessions()
		a.closeResources(context.Background())
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.stopBackgroundWorkers()
	a.closeSessions()
	a.closeResources(shutdownCtx)

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.janitor != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.janitor.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("session janitor stopped")
			}
		}()
	}

	if a.limiter != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.limiter.Run(bgCtx); err != nil && err != context.Canceled {
				a.logger.Warn().Err(err).Msg("rate limiter sweeper stopped")
			}
		}()
	}
}

func (a *Application) stopBackgroundWorkers() {
	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgCancels = nil
}

// closeSessions stops pending auto-advance timers before the ledger goes away.
func (a *Application) closeSessions() {
	if a.sessions == nil {
		return
	}
	if n := a.sessions.CloseAll(session.ReasonShutdown); n > 0 {
		a.logger.Info().Int("sessions", n).Msg("closed live sessions")
	}
}

func (a *Application) closeResources(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error().Err(err).Msg("resource shutdown error")
		}
	}
	a.closers = nil
}
