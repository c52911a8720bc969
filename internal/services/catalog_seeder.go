package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/voltmart/storefront/internal/repositories"
)

// SeedLock serialises seeding across replicas. ok is false when another holder owns the lock.
type SeedLock interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, ok bool, err error)
}

// CatalogSeederDeps wires the store to seed and the products to seed it with.
type CatalogSeederDeps struct {
	Products repositories.ProductRepository
	Samples  func() []Product
	Lock     SeedLock
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type catalogSeeder struct {
	products repositories.ProductRepository
	samples  func() []Product
	lock     SeedLock
	logger   func(ctx context.Context, event string, fields map[string]any)

	once sync.Once
	err  error
}

var _ CatalogSeeder = (*catalogSeeder)(nil)

// NewCatalogSeeder constructs a seeder that runs at most once per process.
func NewCatalogSeeder(deps CatalogSeederDeps) (CatalogSeeder, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog seeder: product repository is required")
	}
	if deps.Samples == nil {
		return nil, errors.New("catalog seeder: sample products are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogSeeder{
		products: deps.Products,
		samples:  deps.Samples,
		lock:     deps.Lock,
		logger:   logger,
	}, nil
}

// Seed inserts the sample products when the catalog is empty. Concurrent and later callers observe
// the result of the first run.
func (s *catalogSeeder) Seed(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.seed(ctx)
	})
	return s.err
}

func (s *catalogSeeder) seed(ctx context.Context) error {
	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx)
		switch {
		case err != nil:
			s.logger(ctx, "catalog.seed.lock_failed", map[string]any{"severity": "WARNING", "error": err.Error()})
		case !ok:
			s.logger(ctx, "catalog.seed.skipped", map[string]any{"reason": "locked"})
			return nil
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					s.logger(ctx, "catalog.seed.unlock_failed", map[string]any{"severity": "WARNING", "error": err.Error()})
				}
			}()
		}
	}

	count, err := s.products.Count(ctx)
	if err != nil {
		return fmt.Errorf("catalog seeder: count products: %w", err)
	}
	if count > 0 {
		s.logger(ctx, "catalog.seed.skipped", map[string]any{"reason": "populated", "count": count})
		return nil
	}

	inserted := 0
	for _, product := range s.samples() {
		if _, err := s.products.Insert(ctx, product); err != nil {
			if repositories.IsConflict(err) {
				continue
			}
			return fmt.Errorf("catalog seeder: insert %s: %w", product.ID, err)
		}
		inserted++
	}
	s.logger(ctx, "catalog.seed.completed", map[string]any{"inserted": inserted})
	return nil
}
