package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/paylink/config"
	appmodel "github.com/sifan077/paylink/internal/app/model"
	apprepository "github.com/sifan077/paylink/internal/app/repository"
	appserver "github.com/sifan077/paylink/internal/app/server"
	appservice "github.com/sifan077/paylink/internal/app/service"
	inthttp "github.com/sifan077/paylink/internal/http/handler"
	"github.com/sifan077/paylink/internal/http/middleware"
	"github.com/sifan077/paylink/internal/infra/logger"
	infraNATS "github.com/sifan077/paylink/internal/infra/nats"
	infraPostgres "github.com/sifan077/paylink/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/paylink/internal/infra/prometheus"
	infraRedis "github.com/sifan077/paylink/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.ConfigFromEnv("paylink"))
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, log); err != nil {
		log.Error("paylink exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("domain", cfg.App.Domain),
		zap.String("redirect_prefix", cfg.App.RedirectPrefix),
		zap.Duration("link_ttl", cfg.App.LinkTTL),
		zap.Int("secret_key_len", len(cfg.App.SecretKey)),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("redis_password", logger.Redact(cfg.Redis.Password)),
		zap.Bool("events_enabled", cfg.Events.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	var metrics *infraPrometheus.Metrics
	if cfg.Prometheus.Enabled {
		registry := infraPrometheus.NewRegistry()
		metrics = infraPrometheus.NewMetrics(registry)

		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	var (
		publisher inthttp.EventPublisher
		pool      *pgxpool.Pool
	)
	if cfg.Events.Enabled {
		events, err := startEventPipeline(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer events.close()
		publisher = events.publisher
		pool = events.pool
	}

	links := appservice.NewLinkService(apprepository.NewLinkStore(redisClient), appservice.LinkConfig{
		SecretKey:      cfg.App.SecretKey,
		Domain:         cfg.App.Domain,
		RedirectPrefix: cfg.App.RedirectPrefix,
		TTL:            cfg.App.LinkTTL,
		StoreTimeout:   cfg.App.StoreTimeout,
		Targets:        redirectTargets(cfg.Redirect),
	}, log)

	var rateLimit *middleware.RateLimitConfig
	if cfg.RateLimit.Enabled {
		rateLimit = &middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			KeyPrefix:   "paylink:ratelimit",
		}
	}

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Development:    cfg.IsDevelopment(),
		Redis:          redisClient,
		Postgres:       pool,
		LinkService:    links,
		Publisher:      publisher,
		Metrics:        metrics,
		RedirectPrefix: cfg.App.RedirectPrefix,
		RateLimit:      rateLimit,
		AllowedOrigins: cfg.App.AllowedOrigins,
	})

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		log.Info("Starting HTTP server", zap.String("addr", addr))
		listenErr <- server.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber server exited: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP server", zap.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func redirectTargets(cfg config.RedirectConfig) appservice.RedirectTargets {
	return appservice.RedirectTargets{
		PrimaryScheme:    cfg.PrimaryScheme,
		SecondaryScheme:  cfg.SecondaryScheme,
		AndroidScheme:    cfg.AndroidScheme,
		AndroidPackage:   cfg.AndroidPackage,
		AndroidStoreURL:  cfg.AndroidStoreURL,
		WebURL:           cfg.WebURL,
		IOSRetryDelay:    cfg.IOSRetryDelay,
		IOSFallbackDelay: cfg.IOSFallbackDelay,
	}
}

type eventPipeline struct {
	publisher *appservice.EventPublisher
	pool      *pgxpool.Pool
	closers   []func()
}

func (p *eventPipeline) close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

// startEventPipeline connects NATS and Postgres, migrates the audit table and
// starts the consumer and retention sweeper.
func startEventPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger) (*eventPipeline, error) {
	p := &eventPipeline{}
	fail := func(err error) (*eventPipeline, error) {
		p.close()
		return nil, err
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		return fail(fmt.Errorf("open gorm connection: %w", err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fail(fmt.Errorf("access underlying sql db: %w", err))
	}
	p.closers = append(p.closers, func() { _ = sqlDB.Close() })

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = infraPostgres.AutoMigrate(migrateCtx, gormDB, &appmodel.LinkEvent{})
	cancel()
	if err != nil {
		return fail(fmt.Errorf("run database migrations: %w", err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fail(fmt.Errorf("connect postgres: %w", err))
	}
	p.pool = pool
	p.closers = append(p.closers, pool.Close)
	log.Info("Connected to Postgres successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("postgres_db", cfg.Postgres.Database),
	)

	natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
	if err != nil {
		return fail(fmt.Errorf("connect nats: %w", err))
	}
	p.closers = append(p.closers, func() { _ = natsConn.Drain() })
	log.Info("Connected to NATS successfully", zap.String("url", natsConn.ConnectedUrlRedacted()))

	repo := apprepository.NewLinkEventRepository(gormDB)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	p.closers = append(p.closers, stopConsumer)
	if err := appservice.NewEventConsumer(js, log, repo).Start(consumerCtx); err != nil {
		return fail(fmt.Errorf("start link event consumer: %w", err))
	}

	sweeper := appservice.NewEventRetentionSweeper(log, repo, cfg.Events.Retention, cfg.Events.SweepInterval)
	sweeper.Start()
	p.closers = append(p.closers, sweeper.Stop)

	p.publisher = appservice.NewEventPublisher(js)
	return p, nil
}
