package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/platform/httpx"
	"github.com/voltmart/storefront/internal/platform/idempotency"
	"github.com/voltmart/storefront/internal/services"
)

const (
	defaultIntentRateLimit  = 20
	defaultIntentRateWindow = time.Minute
)

// CheckoutHandlers starts payments for carts and finalises orders once payment settles.
type CheckoutHandlers struct {
	checkout      services.CheckoutService
	intentLimiter *windowLimiter
}

// CheckoutOption customises CheckoutHandlers.
type CheckoutOption func(*checkoutConfig)

type checkoutConfig struct {
	limit  int
	window time.Duration
	clock  func() time.Time
}

// WithIntentRateLimit caps payment intent creation per user within window. A non-positive limit
// disables the cap.
func WithIntentRateLimit(limit int, window time.Duration) CheckoutOption {
	return func(cfg *checkoutConfig) {
		cfg.limit = limit
		cfg.window = window
	}
}

// WithCheckoutClock overrides the clock used by the rate limiter.
func WithCheckoutClock(clock func() time.Time) CheckoutOption {
	return func(cfg *checkoutConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	cfg := checkoutConfig{
		limit:  defaultIntentRateLimit,
		window: defaultIntentRateWindow,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &CheckoutHandlers{
		checkout:      checkout,
		intentLimiter: newWindowLimiter(cfg.limit, cfg.window, cfg.clock),
	}
}

// Routes registers checkout endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/create-intent", h.createIntent)
}

// OrderRoutes registers order finalisation on the /orders group.
func (h *CheckoutHandlers) OrderRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.finalizeOrder)
}

type cartRequest struct {
	Items           []cartLinePayload `json:"items"`
	PaymentIntentID string            `json:"paymentIntentId"`
}

type createIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

func (h *CheckoutHandlers) createIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "Checkout is currently unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if allowed, retryAfter := h.intentLimiter.Allow(identity.UID); !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "Too many checkout attempts, please try again shortly", http.StatusTooManyRequests))
		return
	}

	var body cartRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeBodyError(w, r, err)
		return
	}

	key := idempotency.KeyFromContext(ctx)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	intent, err := h.checkout.CreatePaymentIntent(ctx, services.CreatePaymentIntentCommand{
		UserID:         identity.UID,
		Lines:          normalizeCartLines(body.Items),
		IdempotencyKey: key,
	})
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to start payment")
		return
	}
	writeJSONResponse(w, http.StatusOK, createIntentResponse{ClientSecret: intent.ClientSecret})
}

func (h *CheckoutHandlers) finalizeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "Database is currently unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var body cartRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeBodyError(w, r, err)
		return
	}

	result, err := h.checkout.FinalizeOrder(ctx, services.FinalizeOrderCommand{
		UserID:          identity.UID,
		Lines:           normalizeCartLines(body.Items),
		PaymentIntentID: strings.TrimSpace(body.PaymentIntentID),
	})
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to create order")
		return
	}

	status := http.StatusCreated
	if !result.Created {
		status = http.StatusOK
	}
	writeJSONResponse(w, status, orderResponse{Order: presentOrder(result.Order)})
}
