package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/services"
)

func newCheckoutRouter(h *CheckoutHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/checkout", h.Routes)
	router.Route("/orders", h.OrderRoutes)
	return router
}

func TestCheckoutHandlersCreateIntentSuccess(t *testing.T) {
	var captured services.CreatePaymentIntentCommand
	handler := NewCheckoutHandlers(&stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntent, error) {
			captured = cmd
			return services.PaymentIntent{IntentID: "pi_1", ClientSecret: "pi_1_secret", Amount: 7986}, nil
		},
	})

	payload := `{"items":[{"productId":"p1","quantity":3},{"product":{"_id":"p2"},"quantity":"2"},{"product":"p3","quantity":"many"}]}`
	req := httptest.NewRequest(http.MethodPost, "/checkout/create-intent", bytes.NewBufferString(payload))
	req.Header.Set("Idempotency-Key", "intent-key")
	req = withUser(req, "user-1")

	rr := httptest.NewRecorder()
	newCheckoutRouter(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp createIntentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected client secret %q", resp.ClientSecret)
	}
	if captured.UserID != "user-1" || captured.IdempotencyKey != "intent-key" {
		t.Fatalf("unexpected command %+v", captured)
	}
	want := []domain.CartLine{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 2}, {ProductID: "p3", Quantity: 1}}
	if len(captured.Lines) != len(want) {
		t.Fatalf("unexpected lines %+v", captured.Lines)
	}
	for i := range want {
		if captured.Lines[i] != want[i] {
			t.Fatalf("line %d: expected %+v, got %+v", i, want[i], captured.Lines[i])
		}
	}
}

func TestCheckoutHandlersCreateIntentUnauthenticated(t *testing.T) {
	handler := NewCheckoutHandlers(&stubCheckoutService{})
	rr := httptest.NewRecorder()
	newCheckoutRouter(handler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/checkout/create-intent", bytes.NewBufferString(`{"items":[]}`)))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCreateIntentRateLimited(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	handler := NewCheckoutHandlers(&stubCheckoutService{},
		WithIntentRateLimit(2, time.Minute),
		WithCheckoutClock(func() time.Time { return now }),
	)
	router := newCheckoutRouter(handler)

	send := func(uid string) int {
		req := withUser(httptest.NewRequest(http.MethodPost, "/checkout/create-intent", bytes.NewBufferString(`{"items":[{"productId":"p1"}]}`)), uid)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	if send("user-1") != http.StatusOK || send("user-1") != http.StatusOK {
		t.Fatalf("expected first two attempts to pass")
	}
	limited := withUser(httptest.NewRequest(http.MethodPost, "/checkout/create-intent", bytes.NewBufferString(`{"items":[{"productId":"p1"}]}`)), "user-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, limited)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
	if code := errorCode(t, rr); code != "rate_limited" {
		t.Fatalf("unexpected code %s", code)
	}
	if code := send("user-2"); code != http.StatusOK {
		t.Fatalf("expected other users to be unaffected, got %d", code)
	}
	now = now.Add(2 * time.Minute)
	if code := send("user-1"); code != http.StatusOK {
		t.Fatalf("expected window reset, got %d", code)
	}
}

func TestCheckoutHandlersMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"empty cart", services.ErrEmptyCart, http.StatusBadRequest, "empty_cart", "Cart items are required"},
		{"missing product", &services.ProductUnavailableError{ProductID: "gone"}, http.StatusBadRequest, "product_unavailable", "Product not found"},
		{"missing reference", services.ErrMissingPaymentReference, http.StatusBadRequest, "missing_payment_reference", "Payment verification failed"},
		{"not settled", services.ErrPaymentNotSettled, http.StatusBadRequest, "payment_not_settled", "Payment not completed"},
		{"claimed", services.ErrPaymentIntentClaimed, http.StatusBadRequest, "payment_not_settled", "Payment not completed"},
		{"mismatch", &services.AmountMismatchError{Expected: 10000, Settled: 9999}, http.StatusBadRequest, "amount_mismatch", "Paid amount does not match order total"},
		{"rejected", &services.GatewayRejectedError{Code: "card_declined", Message: "Your card was declined."}, http.StatusBadRequest, "payment_rejected", "Your card was declined."},
		{"numbers exhausted", services.ErrOrderNumberExhausted, http.StatusServiceUnavailable, "order_number_exhausted", "Unable to create order"},
		{"catalog down", services.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable", "Database is currently unavailable"},
		{"orders down", services.ErrOrderStoreUnavailable, http.StatusServiceUnavailable, "order_store_unavailable", "Database is currently unavailable"},
		{"gateway down", services.ErrPaymentGatewayUnavailable, http.StatusServiceUnavailable, "payment_gateway_unavailable", "Payment service is currently unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewCheckoutHandlers(&stubCheckoutService{
				finalizeFunc: func(context.Context, services.FinalizeOrderCommand) (services.FinalizedOrder, error) {
					return services.FinalizedOrder{}, tc.err
				},
			})
			req := withUser(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"items":[{"productId":"p1","quantity":1}],"paymentIntentId":"pi_1"}`)), "user-1")
			rr := httptest.NewRecorder()
			newCheckoutRouter(handler).ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if code := errorCode(t, rr); code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, code)
			}
			if msg := errorMessage(t, rr); msg != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, msg)
			}
		})
	}
}

func TestCheckoutHandlersFinalizeOrder(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var captured services.FinalizeOrderCommand
	replayed := false
	handler := NewCheckoutHandlers(&stubCheckoutService{
		finalizeFunc: func(_ context.Context, cmd services.FinalizeOrderCommand) (services.FinalizedOrder, error) {
			captured = cmd
			order := domain.Order{
				ID:          "ord-1",
				OrderNumber: "VM-482913",
				UserID:      cmd.UserID,
				Items: []domain.OrderItem{
					{ProductID: "p1", Name: "Cable", Quantity: 3, Price: domain.MustMoney("59.97")},
				},
				Subtotal:        domain.MustMoney("59.97"),
				Shipping:        domain.FlatShippingFee,
				Total:           domain.MustMoney("74.97"),
				Status:          domain.OrderStatusPaid,
				PaymentIntentID: cmd.PaymentIntentID,
				CreatedAt:       created,
			}
			return services.FinalizedOrder{Order: order, Created: !replayed}, nil
		},
	})
	router := newCheckoutRouter(handler)
	payload := `{"items":[{"productId":"p1","quantity":3}],"paymentIntentId":" pi_1 "}`

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(payload)), "user-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.PaymentIntentID != "pi_1" || captured.UserID != "user-1" {
		t.Fatalf("unexpected command %+v", captured)
	}

	var resp struct {
		Order map[string]any `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order["orderNumber"] != "VM-482913" || resp.Order["total"] != 74.97 || resp.Order["shipping"] != 15.0 {
		t.Fatalf("unexpected order %v", resp.Order)
	}
	if resp.Order["status"] != "paid" || resp.Order["createdAt"] != "2025-03-01T12:00:00Z" {
		t.Fatalf("unexpected order %v", resp.Order)
	}

	replayed = true
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(payload)), "user-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for an existing order, got %d", rr.Code)
	}
}

func TestCheckoutHandlersEmptyBody(t *testing.T) {
	handler := NewCheckoutHandlers(&stubCheckoutService{})
	rr := httptest.NewRecorder()
	newCheckoutRouter(handler).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/orders", http.NoBody), "user-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != "invalid_request" {
		t.Fatalf("expected invalid_request, got %s", code)
	}
}

func TestCheckoutHandlersCreateIntentRejectsOversizedQuantity(t *testing.T) {
	var captured services.CreatePaymentIntentCommand
	handler := NewCheckoutHandlers(&stubCheckoutService{
		createFunc: func(_ context.Context, cmd services.CreatePaymentIntentCommand) (services.PaymentIntent, error) {
			captured = cmd
			return services.PaymentIntent{}, fmt.Errorf("%w: product %q requested %d", services.ErrQuantityOutOfRange, "yacht", cmd.Lines[0].Quantity)
		},
	})

	payload := `{"items":[{"productId":"yacht","quantity":2000000000000}]}`
	rr := httptest.NewRecorder()
	newCheckoutRouter(handler).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/checkout/create-intent", bytes.NewBufferString(payload)), "user-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if code := errorCode(t, rr); code != "invalid_request" {
		t.Fatalf("expected invalid_request, got %s", code)
	}
	if len(captured.Lines) != 1 || captured.Lines[0].Quantity != math.MaxInt32 {
		t.Fatalf("expected the oversized quantity to reach the service, got %+v", captured.Lines)
	}
}
