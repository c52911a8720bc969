package services

import (
	"context"
	"errors"
	"testing"

	"github.com/voltmart/storefront/internal/domain"
)

func TestOrderServiceListOrders(t *testing.T) {
	orders := newMemoryOrders()
	if _, err := orders.insert(domain.Order{ID: "o1", OrderNumber: "EL-100001", UserID: "user-1", PaymentIntentID: "pi_1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := orders.insert(domain.Order{ID: "o2", OrderNumber: "EL-100002", UserID: "user-2", PaymentIntentID: "pi_2"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	svc, err := NewOrderService(OrderServiceDeps{Orders: orders})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	list, err := svc.ListOrders(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(list) != 1 || list[0].ID != "o1" {
		t.Fatalf("unexpected orders %+v", list)
	}

	empty, err := svc.ListOrders(context.Background(), "user-3")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %v %v", empty, err)
	}

	if _, err := svc.ListOrders(context.Background(), " "); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}
