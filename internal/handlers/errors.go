package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/voltmart/storefront/internal/platform/httpx"
	"github.com/voltmart/storefront/internal/platform/requestctx"
	"github.com/voltmart/storefront/internal/services"
)

// writeServiceError translates service errors into the JSON error envelope. fallbackMessage is used
// for failures the client cannot act on.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, fallbackMessage string) {
	if err == nil {
		return
	}
	logger := requestctx.Logger(ctx)

	var (
		unavailable *services.ProductUnavailableError
		mismatch    *services.AmountMismatchError
		rejected    *services.GatewayRejectedError
	)
	switch {
	case errors.Is(err, context.Canceled):
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", "Request cancelled", 499))
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "Cart items are required", http.StatusBadRequest))
	case errors.As(err, &unavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "Product not found", http.StatusBadRequest).
			WithDetails(map[string]any{"productId": unavailable.ProductID}))
	case errors.Is(err, services.ErrMissingPaymentReference):
		httpx.WriteError(ctx, w, httpx.NewError("missing_payment_reference", "Payment verification failed", http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentNotSettled), errors.Is(err, services.ErrPaymentIntentClaimed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_settled", "Payment not completed", http.StatusBadRequest))
	case errors.As(err, &mismatch):
		logger.Warn("settled amount mismatch",
			zap.Int64("expected", mismatch.Expected.MinorUnits()),
			zap.Int64("settled", mismatch.Settled.MinorUnits()),
		)
		httpx.WriteError(ctx, w, httpx.NewError("amount_mismatch", "Paid amount does not match order total", http.StatusBadRequest))
	case errors.As(err, &rejected):
		message := strings.TrimSpace(rejected.Message)
		if message == "" {
			message = "Payment was rejected"
		}
		httpx.WriteError(ctx, w, httpx.NewError("payment_rejected", message, http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", inputMessage(err, services.ErrCheckoutInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_product", inputMessage(err, services.ErrCatalogInvalidInput), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "Product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNumberExhausted):
		logger.Error("order number allocation exhausted", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("order_number_exhausted", "Unable to create order", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCatalogUnavailable), errors.Is(err, services.ErrOrderStoreUnavailable):
		logger.Error("store unavailable", zap.Error(err))
		code := "catalog_unavailable"
		if errors.Is(err, services.ErrOrderStoreUnavailable) {
			code = "order_store_unavailable"
		}
		httpx.WriteError(ctx, w, httpx.NewError(code, "Database is currently unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrPaymentGatewayUnavailable):
		logger.Error("payment gateway unavailable", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_unavailable", "Payment service is currently unavailable", http.StatusServiceUnavailable))
	default:
		logger.Error("unhandled service error", zap.Error(err))
		if fallbackMessage == "" {
			fallbackMessage = "Internal server error"
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", fallbackMessage, http.StatusInternalServerError))
	}
}

// inputMessage strips the sentinel prefix from a wrapped validation error.
func inputMessage(err, sentinel error) string {
	message := strings.TrimPrefix(err.Error(), sentinel.Error())
	message = strings.TrimSpace(strings.TrimPrefix(message, ":"))
	if message == "" {
		return "Invalid request"
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
