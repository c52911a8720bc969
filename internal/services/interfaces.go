package services

import (
	"context"

	"github.com/voltmart/storefront/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	ProductQuery       = domain.ProductQuery
	ProductPage        = domain.ProductPage
	CartLine           = domain.CartLine
	ResolvedCart       = domain.ResolvedCart
	Order              = domain.Order
	SystemHealthReport = domain.SystemHealthReport
)

// CartResolver prices client cart lines against the live catalog.
type CartResolver interface {
	ResolveCart(ctx context.Context, lines []CartLine) (ResolvedCart, error)
}

// CheckoutService starts payments for carts and turns settled payments into orders.
type CheckoutService interface {
	CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntent, error)
	FinalizeOrder(ctx context.Context, cmd FinalizeOrderCommand) (FinalizedOrder, error)
}

// OrderService exposes a user's order history.
type OrderService interface {
	ListOrders(ctx context.Context, userID string) ([]Order, error)
}

// CatalogService serves storefront browsing and the admin product editor.
type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) (ProductPage, error)
	GetProduct(ctx context.Context, productID string) (ProductDetail, error)
	AdminListProducts(ctx context.Context) ([]Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CatalogSeeder populates an empty catalog with the sample products.
type CatalogSeeder interface {
	Seed(ctx context.Context) error
}

// SystemService aggregates utility endpoints (health checks).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher announces orders once they are persisted.
type OrderEventPublisher interface {
	PublishOrderPaid(ctx context.Context, order Order) error
}

// Command and DTO definitions ------------------------------------------------

type CreatePaymentIntentCommand struct {
	UserID         string
	Lines          []CartLine
	IdempotencyKey string
}

type PaymentIntent struct {
	IntentID     string
	ClientSecret string
	Amount       domain.Money
	Cart         ResolvedCart
}

type FinalizeOrderCommand struct {
	UserID          string
	Lines           []CartLine
	PaymentIntentID string
}

// FinalizedOrder reports the order for a payment intent. Created is false when an earlier request
// already persisted it.
type FinalizedOrder struct {
	Order   Order
	Created bool
}

// ProductDetail is a single product plus whether it came from the static fallback catalog.
type ProductDetail struct {
	Product  Product
	Fallback bool
}

type CreateProductCommand struct {
	Name          string
	Description   string
	Price         domain.Money
	PreviousPrice *domain.Money
	Brand         string
	Category      domain.Category
	Image         string
	Stock         int
	Featured      bool
	Rating        *float64
	Tags          []string
}

// UpdateProductCommand applies a partial update; nil fields are left unchanged.
type UpdateProductCommand struct {
	ProductID     string
	Name          *string
	Description   *string
	Price         *domain.Money
	PreviousPrice *domain.Money
	Brand         *string
	Category      *domain.Category
	Image         *string
	Stock         *int
	Featured      *bool
	Rating        *float64
	Tags          []string
}
