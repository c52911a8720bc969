package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voltmart/storefront/internal/platform/httpx"
	"github.com/voltmart/storefront/internal/services"
)

// OrderHandlers serves the caller's order history.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs order history handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers order history endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
}

type orderListResponse struct {
	Orders []orderPayload `json:"orders"`
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_store_unavailable", "Database is currently unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListOrders(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err, "Unable to load orders")
		return
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Orders: presentOrders(orders)})
}
