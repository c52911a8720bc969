package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/voltmart/storefront/internal/payments"
	"github.com/voltmart/storefront/internal/platform/config"
	"github.com/voltmart/storefront/internal/platform/observability"
	"github.com/voltmart/storefront/internal/repositories"
	"github.com/voltmart/storefront/internal/repositories/static"
	"github.com/voltmart/storefront/internal/services"
)

// Stores bundles the persistence backends chosen at startup.
type Stores struct {
	Products repositories.ProductRepository
	Orders   repositories.OrderRepository
	// Fallback serves catalog reads while Products is unreachable. Nil disables the fallback.
	Fallback repositories.ProductRepository
	// Close releases the backend clients.
	Close func(ctx context.Context) error
}

// Deps carries collaborators that live outside the stores.
type Deps struct {
	Gateway      payments.Gateway
	Publisher    services.OrderEventPublisher
	SeedLock     services.SeedLock
	HealthChecks []repositories.DependencyCheck
	Build        services.BuildInfo
	Logger       *zap.Logger
	Meter        metric.Meter
	Clock        func() time.Time
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Resolver services.CartResolver
	Checkout services.CheckoutService
	Orders   services.OrderService
	Catalog  services.CatalogService
	Seeder   services.CatalogSeeder
	System   services.SystemService
}

// Container wires stores and services for runtime use.
type Container struct {
	Config   config.Config
	Stores   Stores
	Services Services
}

// NewContainer constructs the runtime dependencies. Tests can supply in-memory stores.
func NewContainer(ctx context.Context, cfg config.Config, stores Stores, deps Deps) (*Container, error) {
	if stores.Products == nil {
		return nil, errors.New("product store is required")
	}
	if stores.Orders == nil {
		return nil, errors.New("order store is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}

	svc, err := buildServices(ctx, cfg, stores, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Stores:   stores,
		Services: svc,
	}, nil
}

// Close releases backend clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Stores.Close == nil {
		return nil
	}
	return c.Stores.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, stores Stores, deps Deps) (Services, error) {
	var svc Services

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	resolver, err := services.NewCartResolver(services.CartResolverDeps{Products: stores.Products})
	if err != nil {
		return Services{}, fmt.Errorf("build cart resolver: %w", err)
	}
	svc.Resolver = resolver

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Resolver:  resolver,
		Orders:    stores.Orders,
		Gateway:   deps.Gateway,
		Publisher: deps.Publisher,
		Currency:  cfg.PSP.Currency,
		Meter:     deps.Meter,
		Clock:     clock,
		Logger:    observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{Orders: stores.Orders})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	fallback := stores.Fallback
	if !cfg.Catalog.FallbackEnabled {
		fallback = nil
	}
	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:     stores.Products,
		Fallback:     fallback,
		ProbeTimeout: cfg.Catalog.ProbeTimeout,
		Clock:        clock,
		Logger:       observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	seeder, err := services.NewCatalogSeeder(services.CatalogSeederDeps{
		Products: stores.Products,
		Samples:  static.SampleProducts,
		Lock:     deps.SeedLock,
		Logger:   observability.EventLogger(logger.Named("seed")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog seeder: %w", err)
	}
	svc.Seeder = seeder

	const catalogCheck = "catalog"
	fallbackCheck := ""
	if fallback != nil {
		fallbackCheck = catalogCheck
	}
	checks := make([]repositories.DependencyCheck, 0, len(deps.HealthChecks)+1)
	checks = append(checks, repositories.DependencyCheck{
		Name:     catalogCheck,
		Timeout:  cfg.Catalog.ProbeTimeout,
		Optional: fallback != nil,
		Check:    stores.Products.Ping,
	})
	checks = append(checks, deps.HealthChecks...)
	healthRepo, err := repositories.NewDependencyHealthRepository(checks, repositories.WithDependencyClock(clock))
	if err != nil {
		return Services{}, fmt.Errorf("build health repository: %w", err)
	}
	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Clock:            clock,
		Build:            deps.Build,
		FallbackCheck:    fallbackCheck,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
