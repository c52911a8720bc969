package handlers

import (
	"context"
	"net/http"

	"github.com/voltmart/storefront/internal/platform/auth"
	"github.com/voltmart/storefront/internal/services"
)

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

type stubCatalogService struct {
	listFunc      func(ctx context.Context, query services.ProductQuery) (services.ProductPage, error)
	getFunc       func(ctx context.Context, id string) (services.ProductDetail, error)
	adminListFunc func(ctx context.Context) ([]services.Product, error)
	createFunc    func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error)
	updateFunc    func(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error)
	deleteFunc    func(ctx context.Context, id string) error
}

func (s *stubCatalogService) ListProducts(ctx context.Context, query services.ProductQuery) (services.ProductPage, error) {
	if s.listFunc == nil {
		return services.ProductPage{}, nil
	}
	return s.listFunc(ctx, query)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id string) (services.ProductDetail, error) {
	if s.getFunc == nil {
		return services.ProductDetail{}, services.ErrCatalogNotFound
	}
	return s.getFunc(ctx, id)
}

func (s *stubCatalogService) AdminListProducts(ctx context.Context) ([]services.Product, error) {
	if s.adminListFunc == nil {
		return nil, nil
	}
	return s.adminListFunc(ctx)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	if s.createFunc == nil {
		return services.Product{}, nil
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
	if s.updateFunc == nil {
		return services.Product{}, nil
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id string) error {
	if s.deleteFunc == nil {
		return nil
	}
	return s.deleteFunc(ctx, id)
}

type stubCheckoutService struct {
	createFunc   func(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntent, error)
	finalizeFunc func(ctx context.Context, cmd services.FinalizeOrderCommand) (services.FinalizedOrder, error)
}

func (s *stubCheckoutService) CreatePaymentIntent(ctx context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntent, error) {
	if s.createFunc == nil {
		return services.PaymentIntent{}, nil
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCheckoutService) FinalizeOrder(ctx context.Context, cmd services.FinalizeOrderCommand) (services.FinalizedOrder, error) {
	if s.finalizeFunc == nil {
		return services.FinalizedOrder{}, nil
	}
	return s.finalizeFunc(ctx, cmd)
}

type stubOrderService struct {
	listFunc func(ctx context.Context, userID string) ([]services.Order, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID string) ([]services.Order, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx, userID)
}

func withUser(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: []string{auth.RoleUser}}))
}

var (
	_ services.SystemService   = (*stubSystemService)(nil)
	_ services.CatalogService  = (*stubCatalogService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
	_ services.OrderService    = (*stubOrderService)(nil)
)
