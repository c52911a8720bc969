package services

import (
	"context"
	"errors"
	"strings"

	"github.com/voltmart/storefront/internal/repositories"
)

// OrderServiceDeps bundles collaborators for order history.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
}

type orderService struct {
	orders repositories.OrderRepository
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs an OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	return &orderService{orders: deps.Orders}, nil
}

// ListOrders returns the user's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrCheckoutInvalidInput
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateOrderStoreError(err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
