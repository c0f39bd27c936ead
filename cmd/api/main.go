package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/cutoff-service/internal/application"
	"github.com/wms-platform/cutoff-service/internal/config"
	"github.com/wms-platform/cutoff-service/internal/domain"
	kafkaPublisher "github.com/wms-platform/cutoff-service/internal/infrastructure/kafka"
	mongoRepo "github.com/wms-platform/cutoff-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/cutoff-service/internal/infrastructure/postgres"
	"github.com/wms-platform/cutoff-service/internal/infrastructure/redis"
	"github.com/wms-platform/cutoff-service/internal/infrastructure/resilient"
	"github.com/wms-platform/cutoff-service/internal/infrastructure/scenario"
	"github.com/wms-platform/cutoff-service/pkg/cloudevents"
	"github.com/wms-platform/cutoff-service/pkg/kafka"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/metrics"
	"github.com/wms-platform/cutoff-service/pkg/mongodb"
	"github.com/wms-platform/cutoff-service/pkg/resilience"
	"github.com/wms-platform/cutoff-service/pkg/tracing"
)

const serviceName = "cutoff-service"

func main() {
	cfg, cfgErr := config.Load()

	logConfig := logging.DefaultConfig(serviceName)
	if cfg != nil {
		logConfig.Level = logging.LogLevel(cfg.LogLevel)
		logConfig.Environment = cfg.Environment
		logConfig.Version = cfg.Version
	}
	logger := logging.New(logConfig)
	logger.SetDefault()

	if cfgErr != nil {
		logger.WithError(cfgErr).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service terminated")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting cutoff-service API", "dataSource", cfg.DataSource)
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = cfg.OTLPEndpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.ServiceVersion = cfg.Version
	tracingConfig.Enabled = cfg.TracingEnabled
	tracingConfig.SampleRate = cfg.TracingSampleRate

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
		tracerProvider, _ = tracing.Initialize(ctx, &tracing.Config{ServiceName: serviceName})
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracer")
		}
	}()

	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Cache and rate-limit store
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// Warehouse data source behind a circuit breaker
	ds, err := openDataSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ds.close()

	breakerConfig := resilience.DefaultCircuitBreakerConfig("datasource-" + ds.source.Name())
	breakerConfig.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, int(to))
	}
	breaker := resilience.NewCircuitBreaker(breakerConfig, logger.Logger)
	source := resilient.NewSource(ds.source, breaker, resilience.DefaultRetryConfig(), m, logger)

	ruleStore := config.NewRuleStore(cfg.Rules, cfg.RulesFile)

	// Decision events
	var publisher application.EventPublisher
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = kafkaPublisher.NewDecisionPublisher(
			producer,
			cloudevents.NewEventFactory(cloudevents.SourceCutoff),
			kafka.Topics.CutoffEvents,
			m,
			logger,
		)
		logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	}

	// Application services
	estimator := application.NewWorkloadEstimator()
	aggregator := application.NewCapacityAggregator(ruleStore)
	cutoffService := application.NewCutoffService(application.CutoffServiceDeps{
		Capacity:   source,
		Workload:   source,
		Estimator:  estimator,
		Aggregator: aggregator,
		Engine:     application.NewDecisionEngine(estimator, aggregator, ruleStore, time.Now),
		Cache:      application.NewDecisionCache(store, logger),
		Stats:      application.NewDecisionStatsRecorder(store, logger),
		Rules:      ruleStore,
		Publisher:  publisher,
		Recorder:   m,
		Tracer:     tracerProvider.Tracer(),
		Logger:     logger,
	})

	var demoService *application.DemoService
	if ds.catalog != nil {
		demoService = application.NewDemoService(ds.catalog, publisher, logger)
	}

	router := newRouter(routerDeps{
		Config:  cfg,
		Cutoff:  cutoffService,
		Demo:    demoService,
		Limiter: application.NewRateLimiter(store, cfg.RateLimits.Window, logger),
		Metrics: m,
		Logger:  logger,
		Readiness: map[string]func() error{
			"cache":      withTimeout(store.Ping),
			"datasource": withTimeout(source.HealthCheck),
		},
	})

	reloadCtx, stopReload := context.WithCancel(ctx)
	defer stopReload()
	go reloadRulesOnSignal(reloadCtx, ruleStore, logger)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return err
	}
	logger.Info("Shutting down server...")
	stopReload()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*redis.Store, error) {
	if cfg.Redis.Addr == "" {
		store, err := redis.NewEmbeddedStore()
		if err != nil {
			return nil, err
		}
		logger.Info("Using embedded cache store")
		return store, nil
	}

	store, err := redis.NewStore(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr)
	return store, nil
}

type dataSource struct {
	source  domain.WarehouseDataSource
	catalog domain.ScenarioCatalog // set only for the scenario source
	close   func()
}

func openDataSource(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dataSource, error) {
	switch cfg.DataSource {
	case config.DataSourceMongoDB:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
		return &dataSource{
			source: mongoRepo.NewWarehouseRepository(client.Database()),
			close:  func() { _ = client.Close(context.Background()) },
		}, nil

	case config.DataSourcePostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{DSN: cfg.Postgres.DSN, MaxConns: cfg.Postgres.MaxConns})
		if err != nil {
			return nil, err
		}
		repo := postgres.NewWarehouseRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return &dataSource{source: repo, close: pool.Close}, nil

	default:
		src, err := scenario.NewSource(cfg.DefaultScenario)
		if err != nil {
			return nil, err
		}
		logger.Info("Using demo scenarios", "scenario", src.Current())
		return &dataSource{source: src, catalog: src, close: func() {}}, nil
	}
}

// reloadRulesOnSignal re-reads the cutoff rules on every SIGHUP until ctx
// is done.
func reloadRulesOnSignal(ctx context.Context, store *config.RuleStore, logger *logging.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	watchRuleReloads(ctx, store, hup, logger)
}

func watchRuleReloads(ctx context.Context, store *config.RuleStore, reload <-chan os.Signal, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
		}

		rules, err := store.Reload()
		if err != nil {
			logger.WithError(err).Error("Failed to reload cutoff rules, keeping previous rules")
			continue
		}
		logger.Info("Cutoff rules reloaded",
			"maxUtilization", rules.MaxUtilization,
			"safetyBufferMinutes", rules.SafetyBufferMinutes,
			"vipReservePercent", rules.VIPReservePercent,
			"cutoffHour", rules.CutoffHour,
		)
	}
}

func withTimeout(check func(context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return check(ctx)
	}
}
