package repositories

import (
	"context"
	"errors"

	"github.com/voltmart/storefront/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository is the catalog store. Both the live backends and the static fallback implement it.
type ProductRepository interface {
	// FindByIDs returns the products that exist among ids in a single round trip. Missing ids are
	// simply absent from the result; callers decide whether that is an error.
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	// Get returns a single product or a RepositoryError with IsNotFound.
	Get(ctx context.Context, id string) (domain.Product, error)
	// Query applies search, filters, sort and skip/limit. Facets span the whole catalog.
	Query(ctx context.Context, query domain.ProductQuery) (domain.ProductPage, error)
	// List returns every product, newest first.
	List(ctx context.Context) ([]domain.Product, error)
	Count(ctx context.Context) (int, error)

	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// ErrOrderNumberTaken is returned by OrderRepository.Create when another order already holds the
// order number. Callers are expected to draw a new number and retry.
var ErrOrderNumberTaken = errors.New("repositories: order number already assigned")

// OrderRepository persists settled orders. Implementations must guarantee at most one order per
// payment intent and report a conflicting write through RepositoryError.IsConflict.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	// FindByPaymentIntent returns a RepositoryError with IsNotFound when no order exists.
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (domain.Order, error)
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// IsNotFound reports whether err is a repository not-found error.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a repository conflict (duplicate key) error.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err signals an unreachable store.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
