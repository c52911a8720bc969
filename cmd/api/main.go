package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/voltmart/storefront/internal/di"
	"github.com/voltmart/storefront/internal/handlers"
	"github.com/voltmart/storefront/internal/payments"
	"github.com/voltmart/storefront/internal/platform/auth"
	"github.com/voltmart/storefront/internal/platform/config"
	pfirestore "github.com/voltmart/storefront/internal/platform/firestore"
	"github.com/voltmart/storefront/internal/platform/idempotency"
	"github.com/voltmart/storefront/internal/platform/jobs"
	"github.com/voltmart/storefront/internal/platform/locks"
	"github.com/voltmart/storefront/internal/platform/observability"
	"github.com/voltmart/storefront/internal/platform/secrets"
	"github.com/voltmart/storefront/internal/repositories"
	firestoreRepo "github.com/voltmart/storefront/internal/repositories/firestore"
	mongoRepo "github.com/voltmart/storefront/internal/repositories/mongo"
	"github.com/voltmart/storefront/internal/repositories/static"
	"github.com/voltmart/storefront/internal/services"
)

const (
	seedLockKey             = "storefront:catalog-seed"
	seedTimeout             = 30 * time.Second
	idempotencySweepEvery   = 10 * time.Minute
	secretHealthCheckBudget = time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets("PSP.StripeAPIKey"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)
	healthChecks := []repositories.DependencyCheck{{
		Name:     "secretManager",
		Timeout:  secretHealthCheckBudget,
		Optional: true,
		Check:    fetcher.Check,
	}}

	stores, err := openStores(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise catalog store", zap.Error(err), zap.String("backend", cfg.Catalog.Backend))
	}

	var (
		idempotencyStore idempotency.Store
		memoryStore      *idempotency.MemoryStore
		seedLock         services.SeedLock
	)
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		idempotencyStore = idempotency.NewRedisStore(redisClient)
		lock, err := locks.NewRedisLock(redisClient, seedLockKey, cfg.Redis.SeedLockTTL)
		if err != nil {
			logger.Fatal("failed to initialise seed lock", zap.Error(err))
		}
		seedLock = lock
		healthChecks = append(healthChecks, repositories.DependencyCheck{
			Name:     "redis",
			Optional: true,
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	} else {
		memoryStore = idempotency.NewMemoryStore()
		idempotencyStore = memoryStore
	}

	var publisher services.OrderEventPublisher
	if projectID := strings.TrimSpace(cfg.PubSub.ProjectID); projectID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(cfg.PubSub.OrderTopic)
		orderPublisher, err := jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order publisher", zap.Error(err))
		}
		defer orderPublisher.Stop()
		publisher = orderPublisher
		healthChecks = append(healthChecks, repositories.DependencyCheck{
			Name:     "pubsub",
			Optional: true,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s not found", topic.ID())
				}
				return nil
			},
		})
	} else {
		logger.Info("pubsub project not configured; order events are not published")
	}

	paymentsLogger := logger.Named("payments")
	gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
		APIKey:  cfg.PSP.StripeAPIKey,
		Timeout: cfg.PSP.Timeout,
		Breaker: payments.BreakerConfig{
			ConsecutiveFailures: uint32(cfg.PSP.BreakerFailures),
			Cooldown:            cfg.PSP.BreakerCooldown,
			OnStateChange: func(name, from, to string) {
				paymentsLogger.Warn("payment breaker state changed",
					zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
			},
		},
		Logger: observability.EventLogger(paymentsLogger),
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe gateway", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, stores, di.Deps{
		Gateway:      gateway,
		Publisher:    publisher,
		SeedLock:     seedLock,
		HealthChecks: healthChecks,
		Build:        buildInfo,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	if cfg.Catalog.SeedOnStart {
		seedCtx, cancel := context.WithTimeout(ctx, seedTimeout)
		if err := container.Services.Seeder.Seed(seedCtx); err != nil {
			logger.Warn("catalog seeding failed; continuing with the existing catalog", zap.Error(err))
		}
		cancel()
	}

	authenticator, err := buildAuthenticator(ctx, logger.Named("auth"), cfg)
	if err != nil {
		logger.Fatal("failed to initialise authenticator", zap.Error(err))
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweepWG sync.WaitGroup
	if memoryStore != nil {
		sweepWG.Add(1)
		go func() {
			defer sweepWG.Done()
			sweepIdempotencyRecords(sweepCtx, logger.Named("idempotency"), memoryStore)
		}()
	}

	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	productHandlers := handlers.NewProductHandlers(container.Services.Catalog)
	adminHandlers := handlers.NewAdminProductHandlers(container.Services.Catalog)
	checkoutHandlers := handlers.NewCheckoutHandlers(container.Services.Checkout)
	orderHandlers := handlers.NewOrderHandlers(container.Services.Orders)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	projectID := traceProjectID(cfg)
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(projectID),
			observability.RecoveryMiddleware(),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithRequestTimeout(cfg.Server.RequestTimeout),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes, checkoutHandlers.OrderRoutes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithUserMiddlewares(authenticator.RequireAuth(), idempotencyMiddleware),
		handlers.WithAdminMiddlewares(authenticator.RequireAuth(auth.RoleAdmin), idempotencyMiddleware),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening", zap.String("backend", cfg.Catalog.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	sweepCancel()
	sweepWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStores connects the configured live backend and the static fallback catalog.
func openStores(ctx context.Context, logger *zap.Logger, cfg config.Config) (di.Stores, error) {
	var stores di.Stores
	if cfg.Catalog.FallbackEnabled {
		stores.Fallback = static.NewProductRepository(static.SampleProducts())
	}

	switch cfg.Catalog.Backend {
	case config.CatalogBackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()
		db, err := mongoRepo.Connect(connectCtx, cfg.Mongo)
		if err != nil {
			if stores.Fallback == nil {
				return di.Stores{}, err
			}
			logger.Warn("mongo unavailable at startup; serving the static catalog until it answers", zap.Error(err))
			if db, err = mongoRepo.Dial(ctx, cfg.Mongo); err != nil {
				return di.Stores{}, err
			}
		}
		if err := mongoRepo.EnsureIndexes(connectCtx, db); err != nil {
			logger.Warn("mongo index creation failed", zap.Error(err))
		}
		stores.Products = mongoRepo.NewProductRepository(db)
		stores.Orders = mongoRepo.NewOrderRepository(db)
		stores.Close = func(ctx context.Context) error {
			return db.Client().Disconnect(ctx)
		}
	default:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return di.Stores{}, err
		}
		products, err := firestoreRepo.NewProductRepository(provider)
		if err != nil {
			return di.Stores{}, err
		}
		orders, err := firestoreRepo.NewOrderRepository(provider)
		if err != nil {
			return di.Stores{}, err
		}
		stores.Products = products
		stores.Orders = orders
		stores.Close = func(context.Context) error {
			return provider.Close()
		}
	}
	return stores, nil
}

func buildAuthenticator(ctx context.Context, logger *zap.Logger, cfg config.Config) (*auth.Authenticator, error) {
	opts := []auth.Option{auth.WithCookieName(cfg.Session.CookieName)}
	if secret := strings.TrimSpace(cfg.Session.Secret); secret != "" {
		session, err := auth.NewSessionVerifier(secret, cfg.Session.Issuer)
		if err != nil {
			return nil, fmt.Errorf("session verifier: %w", err)
		}
		opts = append(opts, auth.WithSessionVerifier(session), auth.WithBearerVerifier(session))
	}
	if strings.TrimSpace(cfg.Firebase.ProjectID) != "" {
		firebase, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("firebase verifier: %w", err)
		}
		opts = append(opts, auth.WithBearerVerifier(firebase))
	} else {
		logger.Info("firebase project not configured; only session tokens are accepted")
	}
	return auth.NewAuthenticator(opts...), nil
}

func sweepIdempotencyRecords(ctx context.Context, logger *zap.Logger, store *idempotency.MemoryStore) {
	ticker := time.NewTicker(idempotencySweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := store.CleanupExpired(time.Now().UTC()); removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	project := lookup("API_SECRET_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}
