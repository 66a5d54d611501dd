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

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/backend"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/config"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/event"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/gateway"
	handler "github.com/AlvinSanchezO/crepa-urbana-storefront/internal/handler/http"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository/postgres"
	cache "github.com/AlvinSanchezO/crepa-urbana-storefront/internal/repository/redis"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/service"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/tracker"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/migrations"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/database"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/health"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/httpclient"
	pkgkafka "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/kafka"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/middleware"
	"github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error

	activeTracker *tracker.Tracker
	mineTrackers  *tracker.Manager
	trackerCancel context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	prometheus.MustRegister(database.NewPoolStatsCollector(pool, "storefront"))

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Backend calls go through the circuit breaker; gateway calls go direct,
	// since a tripped breaker on the gateway would turn every checkout into
	// an unknown payment outcome.
	backendHTTP := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{
			Timeout:         10 * time.Second,
			MaxRetries:      3,
			RetryWaitMin:    500 * time.Millisecond,
			RetryWaitMax:    5 * time.Second,
			MaxConnsPerHost: 100,
		}),
		httpclient.CircuitBreakerConfig{
			Name:         "storefront-backend",
			MaxRequests:  cfg.CBMaxRequests,
			Interval:     time.Duration(cfg.CBInterval) * time.Second,
			Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
			FailureRatio: cfg.CBFailureRatio,
			MinRequests:  cfg.CBMinRequests,
		},
		logger,
	)
	gatewayHTTP := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.CaptureTimeout) * time.Second,
		MaxRetries:      0,
		MaxConnsPerHost: 50,
	})

	backendClient := backend.NewClient(backendHTTP, cfg.BackendBaseURL, logger)
	stripeGateway := gateway.NewStripeGateway(gatewayHTTP, cfg.GatewayBaseURL, cfg.GatewayAPIKey, logger)
	eventProducer := event.NewProducer(producer, logger)

	cartRepo := cache.NewCartRepository(redisClient, time.Duration(cfg.CartTTLHours)*time.Hour)
	loyaltyRepo := cache.NewLoyaltyRepository(redisClient, time.Duration(cfg.LoyaltyTTLMinutes)*time.Minute)
	journalRepo := postgres.NewReconciliationRepository(pool)

	cartService := service.NewCartService(cartRepo, backendClient, eventProducer, logger)
	checkoutService := service.NewCheckoutService(
		cartRepo,
		loyaltyRepo,
		journalRepo,
		backendClient,
		stripeGateway,
		eventProducer,
		logger,
		service.CheckoutTimeouts{
			Intent:      time.Duration(cfg.IntentTimeout) * time.Second,
			Capture:     time.Duration(cfg.CaptureTimeout) * time.Second,
			Materialize: time.Duration(cfg.MaterializeTimeout) * time.Second,
		},
	)
	orderService := service.NewOrderService(backendClient, eventProducer, logger)
	loyaltyService := service.NewLoyaltyService(loyaltyRepo, backendClient, eventProducer, logger)
	catalogService := service.NewCatalogService(backendClient)
	reconciliationService := service.NewReconciliationService(journalRepo, logger)

	// The kitchen board tracker polls with the service token; per-user
	// trackers reuse each caller's own bearer token.
	activeTracker := tracker.New(
		"active",
		tracker.ActiveOnly(func(fetchCtx context.Context) ([]domain.Order, error) {
			return backendClient.ListOrders(fetchCtx, cfg.BackendServiceToken)
		}),
		time.Duration(cfg.KitchenPollInterval)*time.Second,
		logger,
	)
	mineTrackers := tracker.NewManager(
		backendClient.ListMyOrders,
		time.Duration(cfg.OrderPollInterval)*time.Second,
		time.Duration(cfg.TrackerIdleExpiry)*time.Second,
		logger,
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterConfig{
		Cart:            handler.NewCartHandler(cartService, logger),
		Checkout:        handler.NewCheckoutHandler(checkoutService, logger),
		Orders:          handler.NewOrderHandler(orderService, mineTrackers, activeTracker, logger),
		Loyalty:         handler.NewLoyaltyHandler(loyaltyService, logger),
		Catalog:         handler.NewCatalogHandler(catalogService, logger),
		Reconciliations: handler.NewReconciliationHandler(reconciliationService, logger),
		Health:          healthHandler,
		TokenValidator:  middleware.NewJWTValidator(cfg.JWTSecret),
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
		},
		RateLimitRPS:   int(cfg.RateLimitRPS),
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		activeTracker:  activeTracker,
		mineTrackers:   mineTrackers,
	}, nil
}

// Run starts the trackers and the HTTP server and blocks until the context
// is canceled.
func (a *App) Run(ctx context.Context) error {
	trackerCtx, cancel := context.WithCancel(context.Background())
	a.trackerCancel = cancel
	a.activeTracker.Start(trackerCtx)
	a.mineTrackers.Start(trackerCtx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components: drain HTTP, stop the pollers,
// flush spans, then close the producer and the stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.trackerCancel != nil {
		a.trackerCancel()
		select {
		case <-a.activeTracker.Done():
		case <-time.After(2 * time.Second):
			a.logger.Warn("kitchen board tracker did not stop in time")
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
