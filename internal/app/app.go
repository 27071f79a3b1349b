// Package app wires the review service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/aggregation"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/client/identity"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/client/screening"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/config"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/eligibility"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/event"
	handler "github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/handler/http"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/moderation"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository/postgres"
	redisrepo "github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/repository/redis"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/internal/service"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/migrations"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/database"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/health"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/httpclient"
	pkgkafka "github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/kafka"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/middleware"
	"github.com/PashaNaumencko/edtech-platform-backend-sub001/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumers      []*pkgkafka.Consumer
	submitLimiter  *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("db", cfg.PostgresDB),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	database.RegisterMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName)

	// Initialize Redis.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producers.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories.
	reviewRepo := postgres.NewReviewRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	completionRepo := postgres.NewCompletionRepository(pool)
	voteRepo := postgres.NewVoteRepository(pool)
	responseRepo := postgres.NewResponseRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	aggregateRepo := postgres.NewAggregateRepository(pool)
	aggregateCache := redisrepo.NewAggregateCache(rdb, cfg.AggregateCacheTTL)
	velocity := redisrepo.NewVelocityCounter(rdb, cfg.VelocityWindow)

	// Outbound dependencies. An unset URL leaves the dependency out.
	var screener moderation.Screener
	if cfg.ScreeningURL != "" {
		cb := httpclient.NewCircuitBreakerClient(
			httpclient.New(config.HTTPClient(cfg.ScreeningTimeout, 0)),
			httpclient.DefaultCircuitBreakerConfig(screening.ServiceName),
			logger,
		)
		screener = screening.New(cb, cfg.ScreeningURL)
	}
	var accounts service.AccountLookup
	if cfg.IdentityURL != "" {
		cb := httpclient.NewCircuitBreakerClient(
			httpclient.New(config.HTTPClient(cfg.IdentityTimeout, 1)),
			httpclient.DefaultCircuitBreakerConfig(identity.ServiceName),
			logger,
		)
		accounts = identity.New(cb, cfg.IdentityURL)
	}

	// Build the dependency graph.
	events := event.NewProducer(producer, logger)
	aggregator := aggregation.New(aggregation.Config{
		MinSample:       cfg.AggregateMinSample,
		HalfLife:        config.Days(cfg.RecencyHalfLifeDays),
		WeightFloor:     cfg.RecencyWeightFloor,
		IQRMultiplier:   cfg.OutlierIQRMultiplier,
		Damping:         cfg.OutlierDamping,
		ConfidenceLevel: cfg.ConfidenceLevel,
		MinStdDev:       cfg.ConfidenceMinStdDev,
	})
	pipeline := moderation.NewDefault(moderation.Config{
		ProfanityWords:     cfg.ProfanityWords,
		VelocityLimit:      cfg.VelocityLimit,
		MinAccountAge:      cfg.MinAccountAge,
		DeviationThreshold: cfg.RatingDeviationThreshold,
		ScreeningTimeout:   cfg.ScreeningTimeout,
	}, screener, logger)
	checker := eligibility.NewChecker(completionRepo, reviewRepo, config.Days(float64(cfg.EligibilityWindowDays)))
	history := service.NewHistoryCollector(reviewRepo, velocity, accounts, cfg.VelocityWindow, logger)

	ratingService := service.NewRatingService(aggregateRepo, aggregateCache, aggregator, events, logger)
	reviewService := service.NewReviewService(
		service.Stores{
			Reviews:     reviewRepo,
			Audit:       auditRepo,
			Completions: completionRepo,
			Votes:       voteRepo,
			Responses:   responseRepo,
			Reports:     reportRepo,
		},
		checker, history, pipeline, ratingService, events,
		service.Policy{
			UpdateWindow:        config.Days(float64(cfg.UpdateWindowDays)),
			ReportFlagThreshold: cfg.ReportFlagThreshold,
		},
		logger,
	)
	moderationService := service.NewModerationService(reviewRepo, auditRepo, reportRepo, ratingService, events, logger)

	// Completion event consumers.
	var consumers []*pkgkafka.Consumer
	if cfg.ConsumersEnabled {
		store := pkgkafka.NewRedisIdempotencyStore(rdb, "review:events:", cfg.IdempotencyTTL)
		consumers = event.NewConsumers(cfg.KafkaBrokers, cfg.KafkaConsumerGroup,
			event.NewConsumerHandler(completionRepo, logger), store, dlq, logger)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterOptional("kafka", producer.Ping)

	// HTTP router.
	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRateRPS, cfg.SubmitRateBurst, 0, logger)
	router := handler.NewRouter(reviewService, moderationService, ratingService, handler.Deps{
		Health:        healthHandler,
		Tokens:        middleware.NewJWTValidator(cfg.JWTSecret),
		SubmitLimiter: submitLimiter,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		dlq:            dlq,
		consumers:      consumers,
		submitLimiter:  submitLimiter,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and the event consumers and blocks until ctx is
// canceled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	for _, c := range a.consumers {
		g.Go(func() error {
			if err := c.Start(gctx); err != nil {
				return fmt.Errorf("consumer %s: %w", c.Topic(), err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.submitLimiter.Stop()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	if err := a.dlq.Close(); err != nil {
		a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
