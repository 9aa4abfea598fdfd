package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/config"
	httptransport "github.com/example/interview-scheduler/internal/http"
	"github.com/example/interview-scheduler/internal/interview"
	"github.com/example/interview-scheduler/internal/notify"
	"github.com/example/interview-scheduler/internal/oracle"
	"github.com/example/interview-scheduler/internal/persistence"
	"github.com/example/interview-scheduler/internal/persistence/memory"
	"github.com/example/interview-scheduler/internal/persistence/postgres"
	"github.com/example/interview-scheduler/internal/persistence/sqlite"
	"github.com/example/interview-scheduler/internal/ratelimit"
	"github.com/example/interview-scheduler/internal/telemetry"
)

// storage is the union of what every persistence driver provides.
type storage interface {
	persistence.ProposalRepository
	persistence.ApplicationRepository
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig(cfg.PostgresDSN)
		pgCfg.MaxOpenConns = cfg.PostgresMaxOpenConns
		pgCfg.MaxIdleConns = cfg.PostgresMaxIdleConns
		store, err := postgres.Open(ctx, pgCfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverSQLite:
		sqliteCfg := sqlite.DefaultConfig(cfg.SQLitePath)
		sqliteCfg.BusyTimeout = cfg.SQLiteBusyTimeout
		store, err := sqlite.OpenWithConfig(ctx, sqliteCfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// app holds every long-lived component of a scheduler process.
type app struct {
	storage    storage
	service    *application.InterviewService
	verifier   *httptransport.TokenVerifier
	metrics    *telemetry.Metrics
	dispatcher *notify.Dispatcher
	handler    http.Handler
	closers    []func() error
	logger     *slog.Logger
}

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, now func() time.Time) (_ *app, err error) {
	if now == nil {
		now = time.Now
	}
	a := &app{logger: logger, metrics: telemetry.New()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.storage, err = openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, redisClient.Close)
	}

	suggestions, err := buildOracle(ctx, cfg.Oracle, redisClient, now, logger)
	if err != nil {
		return nil, err
	}

	sink, err := buildNotifierSink(cfg.NATS, a, logger)
	if err != nil {
		return nil, err
	}
	a.dispatcher = notify.NewDispatcher(sink, notify.DispatcherConfig{
		QueueSize: cfg.Notifier.QueueSize,
		Workers:   cfg.Notifier.Workers,
	}, a.metrics, logger)

	deps := application.InterviewDependencies{
		Proposals: newProposalStoreAdapter(a.storage),
		Notifier:  a.dispatcher,
		Oracle:    suggestions,
		Links:     newTemplateLinkProvider(cfg.Meeting.LinkHost),
		Metrics:   a.metrics,
	}
	// The in-process driver has no applications table; new proposals take
	// their parties from the request instead.
	if cfg.Storage.Driver != config.DriverMemory {
		deps.Applications = newApplicationDirectoryAdapter(a.storage)
	}

	engine := interview.NewEngine(now,
		interview.WithPolicy(cfg.Policy.WeightedPolicy()),
		interview.WithCancellationNotice(cfg.Policy.CancellationNotice),
	)
	a.service = application.NewInterviewServiceWithLogger(deps, engine, uuid.NewString, application.InterviewServiceConfig{
		MaxAttempts:   cfg.Service.MaxAttempts,
		OracleTimeout: cfg.Oracle.Timeout,
	}, logger)

	a.verifier, err = httptransport.NewTokenVerifier(cfg.Auth.JWTSecret, now)
	if err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory(now)
	if redisClient != nil {
		limiter = ratelimit.NewRedis(redisClient, logger)
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Interviews: httptransport.NewInterviewHandler(a.service, logger),
		Verifier:   a.verifier,
		Limiter:    limiter,
		RateLimit:  httptransport.RateLimitPolicy{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window},
		Metrics:    a.metrics,
		Health:     a.storage.Ping,
		Logger:     logger,
	})
	return a, nil
}

func buildOracle(ctx context.Context, cfg config.OracleConfig, redisClient *redis.Client, now func() time.Time, logger *slog.Logger) (application.Oracle, error) {
	var chain oracle.Chain
	if cfg.GeminiAPIKey != "" {
		gemini, err := oracle.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini oracle: %w", err)
		}
		chain = append(chain, gemini)
	}
	chain = append(chain, oracle.NewHeuristic())

	var cache oracle.Cache = oracle.NewMemoryCache(cfg.CacheEntries, now)
	if redisClient != nil {
		cache = oracle.NewRedisCache(redisClient)
	}
	return oracle.NewCached(chain, cache, cfg.CacheTTL, logger), nil
}

func buildNotifierSink(cfg config.NATSConfig, a *app, logger *slog.Logger) (application.Notifier, error) {
	if cfg.URL == "" {
		return notify.NewLogNotifier(logger), nil
	}
	natsCfg := notify.DefaultNATSConfig()
	natsCfg.URL = cfg.URL
	natsCfg.SubjectPrefix = cfg.SubjectPrefix
	conn, err := notify.ConnectNATS(natsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	a.closers = append(a.closers, conn.Drain)
	return notify.NewNATSPublisher(conn, natsCfg.SubjectPrefix), nil
}

// Close drains queued notifications before releasing connections in reverse
// order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// runSweeper expires overdue proposals every interval until ctx is done.
func runSweeper(ctx context.Context, service *application.InterviewService, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				logger.WarnContext(ctx, "background sweep failed", "error", err)
			}
		}
	}
}
