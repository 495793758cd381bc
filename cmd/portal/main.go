package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/cache"
	"homecare/portal/internal/config"
	"homecare/portal/internal/database"
	"homecare/portal/internal/handlers"
	"homecare/portal/internal/ids"
	"homecare/portal/internal/jobs"
	"homecare/portal/internal/log"
	"homecare/portal/internal/middleware"
	"homecare/portal/internal/ratelimit"
	"homecare/portal/internal/rbac"
	"homecare/portal/internal/repository"
	"homecare/portal/internal/security"
	"homecare/portal/internal/server"
	"homecare/portal/internal/service"
	"homecare/portal/internal/session"
	"homecare/portal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)
	outbound := cfg.HTTP.OutboundTimeout

	ctx := context.Background()

	keys, err := security.DeriveKeys(cfg.Security.SessionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to derive keys")
	}

	var dbPool *pgxpool.Pool
	if cfg.Postgres.DSN != "" {
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if err := database.Migrate(ctx, dbPool); err != nil {
			logger.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, outbound)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if objectStore != nil {
		if err := objectStore.EnsureBuckets(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure buckets failed")
		}
	}

	routes, invalid := rbac.NewRouteTable(cfg.RBAC.Routes)
	if len(invalid) > 0 {
		logger.Warn().Strs("prefixes", invalid).Msg("ignoring invalid role routes")
	}

	dispatcher := audit.NewDispatcher(audit.DispatcherConfig{
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: true,
	}, auditSink(cfg, redisClient, logger))
	auditor := audit.NewAuditor(logger, dispatcher, ids.New)

	scheduler := jobs.NewScheduler(logger)

	var store repository.PortalStore
	var dbCheck func(context.Context) error
	if dbPool != nil {
		pg := repository.NewPostgresStore(dbPool)
		store = pg
		dbCheck = pg.Ping
	} else {
		logger.Warn().Msg("postgres not configured, using seeded in-memory store")
		store = repository.NewSeededMemoryStore()
	}

	var challenges repository.ChallengeStore
	var cacheCheck func(context.Context) error
	if redisClient != nil {
		challenges = repository.NewRedisChallengeStore(redisClient)
		cacheCheck = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	} else {
		memChallenges := repository.NewMemoryChallengeStore()
		scheduler.AddSweeper("mfa_challenges", memChallenges)
		challenges = memChallenges
	}

	limiter := newLimiter(cfg, redisClient, scheduler, logger)

	sessions := session.NewManager(session.Config{
		MaxAge:           cfg.Security.SessionMaxAge,
		RefreshThreshold: cfg.Security.RefreshThreshold,
		Secure:           cfg.Security.SecureCookies || cfg.IsProduction(),
	}, keys.Session, auditor, logger)

	mfa := service.NewMFAService(challenges, keys.MFA, service.MFAConfig{
		CodeTTL:    cfg.Security.MFACodeTTL,
		CodeDigits: cfg.Security.MFACodeDigits,
	}, service.NewLogNotifier(logger), auditor, logger)

	// A nil *ObjectStore must not reach the interface parameter as a typed nil.
	var presigner service.UploadPresigner
	var storageCheck func(context.Context) error
	if objectStore != nil {
		presigner = objectStore
		storageCheck = objectStore.Ping
	}

	handlerSet := handlers.NewHandlerSet(handlers.Dependencies{
		Log:       logger,
		Config:    cfg,
		Auth:      service.NewAuthService(store, sessions, mfa, auditor, logger),
		Portal:    service.NewPortalService(store, auditor, logger),
		Documents: service.NewDocumentService(presigner, store, cfg.Storage.UploadURLTTL, auditor, logger),
		Recorder:  auditor,
		Routes:    routes,
		Probes: []handlers.HealthProbe{
			{Name: "database", Check: dbCheck},
			{Name: "cache", Check: cacheCheck},
			{Name: "storage", Check: storageCheck},
			{Name: "auth", Check: func(context.Context) error { return nil }},
		},
	})

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, server.Options{
		Gate: middleware.GateConfig{
			Limiter:   limiter,
			Routes:    routes,
			DevBypass: cfg.Gate.DevBypass,
			Recorder:  auditor,
			Log:       logger,
		},
		Sessions: sessions,
		Recorder: auditor,
	})

	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dispatcher, dbPool, redisClient)
}

func newLimiter(cfg *config.AppConfig, redisClient *redis.Client, scheduler *jobs.Scheduler, logger zerolog.Logger) ratelimit.Limiter {
	limits := ratelimit.Config{Window: cfg.Gate.RateLimitWindow, Max: cfg.Gate.RateLimitMax}
	if cfg.Gate.RateLimitBackend == "redis" {
		if redisClient != nil {
			return ratelimit.NewRedisLimiter(redisClient, limits)
		}
		logger.Warn().Msg("redis rate limiter requested without redis, using memory")
	}
	memory := ratelimit.NewMemoryLimiter(limits, cfg.Gate.MaxTrackedClients)
	scheduler.AddSweeper("rate_limits", memory)
	return memory
}

// auditSink builds the sink from a comma-separated list of "log", "http"
// and "stream". The auditor always logs, so "log" alone needs no sink.
func auditSink(cfg *config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) audit.Sink {
	var sinks audit.MultiSink
	for _, name := range strings.Split(cfg.Audit.Sink, ",") {
		switch strings.TrimSpace(name) {
		case "", "log":
		case "http":
			endpoint := cfg.Audit.Endpoint
			if endpoint == "" {
				endpoint = strings.TrimRight(cfg.HTTP.PublicURL, "/") + "/api/audit"
			}
			sinks = append(sinks, audit.NewHTTPSink(endpoint, cfg.HTTP.OutboundTimeout, logger))
		case "stream":
			if redisClient == nil {
				logger.Warn().Msg("audit stream sink requested without redis")
				continue
			}
			sinks = append(sinks, audit.NewStreamSink(redisClient, cfg.Audit.Stream, cfg.HTTP.OutboundTimeout, logger))
		default:
			logger.Warn().Str("sink", name).Msg("unknown audit sink")
		}
	}
	if len(sinks) == 0 {
		return audit.NopSink{}
	}
	return sinks
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	dispatcher *audit.Dispatcher,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()
	dispatcher.Close()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
