package services

import (
	"errors"
	"fmt"

	"github.com/voltmart/storefront/internal/domain"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrQuantityOutOfRange indicates a cart line requesting more than domain.MaxLineQuantity units.
	ErrQuantityOutOfRange = fmt.Errorf("%w: quantity exceeds %d", ErrCheckoutInvalidInput, domain.MaxLineQuantity)
	// ErrCartTotalOutOfRange indicates a cart whose total cannot be charged.
	ErrCartTotalOutOfRange = fmt.Errorf("%w: cart total is outside the chargeable range", ErrCheckoutInvalidInput)
	// ErrEmptyCart indicates a checkout request without any cart lines.
	ErrEmptyCart = errors.New("checkout: cart items are required")
	// ErrProductUnavailable is matched by ProductUnavailableError.
	ErrProductUnavailable = errors.New("checkout: product unavailable")
	// ErrMissingPaymentReference indicates an order request without a payment intent id.
	ErrMissingPaymentReference = errors.New("checkout: payment reference is required")
	// ErrPaymentNotSettled indicates the processor does not report the payment as succeeded.
	ErrPaymentNotSettled = errors.New("checkout: payment not completed")
	// ErrPaymentIntentClaimed indicates the payment intent already settled an order for another user.
	ErrPaymentIntentClaimed = errors.New("checkout: payment intent belongs to another order")
	// ErrAmountMismatch is matched by AmountMismatchError.
	ErrAmountMismatch = errors.New("checkout: settled amount does not match order total")
	// ErrPaymentRejected is matched by GatewayRejectedError.
	ErrPaymentRejected = errors.New("checkout: payment rejected")
	// ErrOrderNumberExhausted indicates every order number drawn for an order collided.
	ErrOrderNumberExhausted = errors.New("checkout: unable to allocate order number")

	// ErrCatalogUnavailable indicates the catalog store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
	// ErrOrderStoreUnavailable indicates the order store could not be reached.
	ErrOrderStoreUnavailable = errors.New("orders: unavailable")
	// ErrPaymentGatewayUnavailable indicates the payment processor timed out or is unreachable.
	ErrPaymentGatewayUnavailable = errors.New("checkout: payment gateway unavailable")
)

// ProductUnavailableError reports a cart line whose product is not in the catalog.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	if e.ProductID == "" {
		return "checkout: product unavailable: missing product id"
	}
	return fmt.Sprintf("checkout: product %q unavailable", e.ProductID)
}

func (e *ProductUnavailableError) Unwrap() error { return ErrProductUnavailable }

// AmountMismatchError reports a settled amount below the authoritative total.
type AmountMismatchError struct {
	Expected domain.Money
	Settled  domain.Money
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("checkout: settled %s does not cover order total %s", e.Settled, e.Expected)
}

func (e *AmountMismatchError) Unwrap() error { return ErrAmountMismatch }

// GatewayRejectedError carries the processor's client-facing reason for refusing a request.
type GatewayRejectedError struct {
	Code    string
	Message string
}

func (e *GatewayRejectedError) Error() string {
	if e.Message == "" {
		return ErrPaymentRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrPaymentRejected.Error(), e.Message)
}

func (e *GatewayRejectedError) Unwrap() error { return ErrPaymentRejected }
