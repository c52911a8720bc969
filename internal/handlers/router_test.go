package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/platform/auth"
	"github.com/voltmart/storefront/internal/platform/idempotency"
	"github.com/voltmart/storefront/internal/services"
)

func TestNewRouter_DefaultMounts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	healthHandlers := NewHealthHandlers(
		WithHealthSystemService(&stubSystemService{
			report: services.SystemHealthReport{
				Status:      domain.HealthStatusOK,
				Uptime:      5 * time.Second,
				GeneratedAt: now,
				Checks: map[string]domain.SystemHealthCheck{
					"catalog": {Status: domain.HealthStatusOK},
				},
			},
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	router := NewRouter(WithHealthHandlers(healthHandlers))

	for _, path := range []string{"/healthz", "/readyz", "/api/health"} {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected content-type application/json, got %s", ct)
			}
		})
	}

	t.Run("default not implemented group", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))

		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("expected status 501, got %d", rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON body: %v", err)
		}
		if body["code"] != "not_implemented" {
			t.Fatalf("expected not_implemented code, got %v", body["code"])
		}
	})
}

func TestNewRouter_WithRegistrars(t *testing.T) {
	registrar := func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	router := NewRouter(WithProductRoutes(registrar))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}

func TestNewRouter_NotFound(t *testing.T) {
	router := NewRouter()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["code"] != "route_not_found" {
		t.Fatalf("expected route_not_found code, got %v", body["code"])
	}
}

func TestNewRouter_UserAndAdminMiddleware(t *testing.T) {
	tag := func(value string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add("X-Test-Middleware", value)
				next.ServeHTTP(w, r)
			})
		}
	}
	ok := func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	}

	router := NewRouter(
		WithUserMiddlewares(tag("user")),
		WithAdminMiddlewares(tag("admin")),
		WithCheckoutRoutes(ok),
		WithOrderRoutes(ok),
		WithAdminRoutes(ok),
		WithProductRoutes(ok),
	)

	cases := map[string]string{
		"/api/checkout/create-intent": "user",
		"/api/orders/x":               "user",
		"/api/admin/products":         "admin",
		"/api/products/x":             "",
	}
	for path, want := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if got := rr.Header().Get("X-Test-Middleware"); got != want {
			t.Fatalf("%s: expected middleware %q, got %q", path, want, got)
		}
	}
}

func TestNewRouter_RejectsOversizedBodies(t *testing.T) {
	checkout := NewCheckoutHandlers(&stubCheckoutService{})
	router := NewRouter(
		WithUserMiddlewares(fakeAuth("user-1")),
		WithCheckoutRoutes(checkout.Routes),
	)

	body := `{"items":[{"productId":"` + strings.Repeat("a", 20*1024) + `","quantity":1}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/checkout/create-intent", strings.NewReader(body)))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestNewRouter_IdempotentOrderReplay(t *testing.T) {
	calls := 0
	checkout := NewCheckoutHandlers(&stubCheckoutService{
		finalizeFunc: func(_ context.Context, cmd services.FinalizeOrderCommand) (services.FinalizedOrder, error) {
			calls++
			return services.FinalizedOrder{
				Order:   domain.Order{ID: "ord-1", OrderNumber: "VM-123456", UserID: cmd.UserID, PaymentIntentID: cmd.PaymentIntentID, Total: 7986},
				Created: true,
			}, nil
		},
	})
	router := NewRouter(
		WithUserMiddlewares(fakeAuth("user-1"), idempotency.Middleware(idempotency.NewMemoryStore())),
		WithOrderRoutes(checkout.OrderRoutes),
	)

	payload := `{"items":[{"productId":"p1","quantity":1}],"paymentIntentId":"pi_1"}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(payload))
		req.Header.Set("Idempotency-Key", "order-key")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	second := send()

	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 responses, got %d and %d", first.Code, second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected replay header on second response")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected identical bodies, got %s and %s", first.Body.String(), second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected a single finalisation, got %d", calls)
	}
}

func fakeAuth(uid string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithIdentity(r.Context(), &auth.Identity{UID: uid, Roles: []string{auth.RoleUser}})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
