package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/voltmart/storefront/internal/domain"
)

// Status enumerates the normalised payment states reported by the processor.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or processor confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates funds were captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the intent was cancelled and can no longer succeed.
	StatusFailed Status = "failed"
)

var (
	// ErrGatewayUnavailable covers timeouts, network failures, processor outages and an open
	// circuit breaker. Callers may retry.
	ErrGatewayUnavailable = errors.New("payments: gateway unavailable")
	// ErrIntentNotFound is returned when the processor has no record of the intent.
	ErrIntentNotFound = errors.New("payments: payment intent not found")
)

// RejectedError reports a request the processor refused, carrying its client-facing message.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payments: rejected: %s", e.Message)
	}
	return fmt.Sprintf("payments: rejected (%s): %s", e.Code, e.Message)
}

// IntentRequest describes a pending payment for the authoritative order total.
type IntentRequest struct {
	Amount         domain.Money
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is a freshly created pending payment.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       domain.Money
	Currency     string
	Status       Status
}

// PaymentDetails is the processor's view of an intent. AmountReceived is what actually settled
// and is the value order finalisation compares against.
type PaymentDetails struct {
	IntentID       string
	Status         Status
	Amount         domain.Money
	AmountReceived domain.Money
	Currency       string
	Metadata       map[string]string
}

// Gateway is the payment processor contract used by checkout.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	LookupPayment(ctx context.Context, intentID string) (PaymentDetails, error)
}
