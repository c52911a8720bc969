package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/voltmart/storefront/internal/domain"
	"github.com/voltmart/storefront/internal/payments"
	"github.com/voltmart/storefront/internal/repositories"
)

const (
	defaultCheckoutCurrency = "usd"
	checkoutMeterName       = "github.com/voltmart/storefront/internal/services/checkout"
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Resolver     CartResolver
	Orders       repositories.OrderRepository
	Gateway      payments.Gateway
	Publisher    OrderEventPublisher
	Currency     string
	OrderNumbers OrderNumberFunc
	IDGenerator  func() string
	Meter        metric.Meter
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	resolver     CartResolver
	orders       repositories.OrderRepository
	gateway      payments.Gateway
	publisher    OrderEventPublisher
	currency     string
	orderNumbers OrderNumberFunc
	newID        func() string
	mismatches   metric.Int64Counter
	now          func() time.Time
	logger       func(ctx context.Context, event string, fields map[string]any)
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Resolver == nil {
		return nil, errors.New("checkout service: cart resolver is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
	}

	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCheckoutCurrency
	}
	orderNumbers := deps.OrderNumbers
	if orderNumbers == nil {
		orderNumbers = RandomOrderNumber
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(checkoutMeterName)
	}
	mismatches, err := meter.Int64Counter(
		"checkout.amount_mismatch",
		metric.WithDescription("Orders refused because the settled amount was below the order total"),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout service: create mismatch counter: %w", err)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		resolver:     deps.Resolver,
		orders:       deps.Orders,
		gateway:      deps.Gateway,
		publisher:    deps.Publisher,
		currency:     currency,
		orderNumbers: orderNumbers,
		newID:        newID,
		mismatches:   mismatches,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreatePaymentIntent prices the cart from the catalog and opens a pending payment for its total.
func (s *checkoutService) CreatePaymentIntent(ctx context.Context, cmd CreatePaymentIntentCommand) (PaymentIntent, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return PaymentIntent{}, ErrCheckoutInvalidInput
	}

	cart, err := s.resolver.ResolveCart(ctx, cmd.Lines)
	if err != nil {
		return PaymentIntent{}, err
	}
	if !chargeable(cart.Total) {
		return PaymentIntent{}, chargeableRangeError(cart.Total, nil)
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.IntentRequest{
		Amount:   cart.Total,
		Currency: s.currency,
		Metadata: map[string]string{
			"userId":   userID,
			"subtotal": cart.Subtotal.String(),
			"shipping": cart.Shipping.String(),
		},
		IdempotencyKey: strings.TrimSpace(cmd.IdempotencyKey),
	})
	if err != nil {
		return PaymentIntent{}, translateGatewayError(err)
	}

	s.logger(ctx, "checkout.intent.created", map[string]any{
		"userId":        userID,
		"paymentIntent": intent.ID,
		"amount":        cart.Total.MinorUnits(),
		"lines":         len(cart.Lines),
	})

	return PaymentIntent{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       cart.Total,
		Cart:         cart,
	}, nil
}

// FinalizeOrder records the order for a settled payment intent. Replays for the same intent return
// the order persisted by the first request.
func (s *checkoutService) FinalizeOrder(ctx context.Context, cmd FinalizeOrderCommand) (FinalizedOrder, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return FinalizedOrder{}, ErrCheckoutInvalidInput
	}
	intentID := strings.TrimSpace(cmd.PaymentIntentID)
	if intentID == "" {
		return FinalizedOrder{}, ErrMissingPaymentReference
	}
	if !wellFormedIntentID(intentID) {
		s.logger(ctx, "checkout.intent_malformed", map[string]any{
			"userId": userID,
			"length": len(intentID),
		})
		return FinalizedOrder{}, ErrPaymentNotSettled
	}

	existing, found, err := s.existingOrder(ctx, intentID)
	if err != nil {
		return FinalizedOrder{}, err
	}
	if found {
		return s.replay(ctx, existing, userID)
	}

	details, err := s.gateway.LookupPayment(ctx, intentID)
	if err != nil {
		if errors.Is(err, payments.ErrIntentNotFound) {
			return FinalizedOrder{}, ErrPaymentNotSettled
		}
		var rejected *payments.RejectedError
		if errors.As(err, &rejected) {
			return FinalizedOrder{}, ErrPaymentNotSettled
		}
		return FinalizedOrder{}, translateGatewayError(err)
	}
	if details.Status != payments.StatusSucceeded {
		return FinalizedOrder{}, ErrPaymentNotSettled
	}
	if details.Currency != s.currency {
		s.logger(ctx, "checkout.currency_mismatch", map[string]any{
			"severity":      "WARNING",
			"userId":        userID,
			"paymentIntent": intentID,
			"expected":      s.currency,
			"settled":       details.Currency,
		})
		return FinalizedOrder{}, ErrPaymentNotSettled
	}
	if owner := strings.TrimSpace(details.Metadata["userId"]); owner != "" && owner != userID {
		s.logger(ctx, "checkout.intent_claimed", map[string]any{
			"severity":      "WARNING",
			"userId":        userID,
			"paymentIntent": intentID,
		})
		return FinalizedOrder{}, ErrPaymentIntentClaimed
	}

	cart, err := s.resolver.ResolveCart(ctx, cmd.Lines)
	if err != nil {
		return FinalizedOrder{}, err
	}
	if !chargeable(cart.Total) {
		return FinalizedOrder{}, chargeableRangeError(cart.Total, nil)
	}

	expected := cart.Total
	settled := details.AmountReceived
	if settled < expected {
		s.mismatches.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", s.currency)))
		s.logger(ctx, "checkout.amount_mismatch", map[string]any{
			"severity":      "WARNING",
			"userId":        userID,
			"paymentIntent": intentID,
			"expected":      expected.MinorUnits(),
			"settled":       settled.MinorUnits(),
		})
		return FinalizedOrder{}, &AmountMismatchError{Expected: expected, Settled: settled}
	}
	if settled > expected {
		s.logger(ctx, "checkout.overpayment_accepted", map[string]any{
			"userId":        userID,
			"paymentIntent": intentID,
			"expected":      expected.MinorUnits(),
			"settled":       settled.MinorUnits(),
		})
	}

	now := s.now()
	order := domain.Order{
		ID:              s.newID(),
		UserID:          userID,
		Items:           cart.OrderItems(),
		Subtotal:        cart.Subtotal,
		Shipping:        cart.Shipping,
		Total:           cart.Total,
		Status:          domain.OrderStatusPaid,
		PaymentIntentID: intentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result, err := s.persist(ctx, order)
	if err != nil {
		return FinalizedOrder{}, err
	}
	if !result.Created {
		return s.replay(ctx, result.Order, userID)
	}

	s.logger(ctx, "checkout.order.created", map[string]any{
		"userId":        userID,
		"orderId":       result.Order.ID,
		"orderNumber":   result.Order.OrderNumber,
		"paymentIntent": intentID,
		"total":         result.Order.Total.MinorUnits(),
	})
	s.publish(ctx, result.Order)
	return result, nil
}

// persist draws order numbers until the store accepts one. A conflict on the payment intent means a
// concurrent request already recorded the order, which is returned instead.
func (s *checkoutService) persist(ctx context.Context, order domain.Order) (FinalizedOrder, error) {
	for attempt := 1; attempt <= maxOrderNumberDraws; attempt++ {
		number := s.orderNumbers()
		taken, err := s.orders.OrderNumberExists(ctx, number)
		if err != nil {
			return FinalizedOrder{}, translateOrderStoreError(err)
		}
		if taken {
			s.logOrderNumberCollision(ctx, order, number, attempt)
			continue
		}

		order.OrderNumber = number
		created, err := s.orders.Create(ctx, order)
		switch {
		case err == nil:
			return FinalizedOrder{Order: created, Created: true}, nil
		case errors.Is(err, repositories.ErrOrderNumberTaken):
			s.logOrderNumberCollision(ctx, order, number, attempt)
		case repositories.IsConflict(err):
			existing, found, lookupErr := s.existingOrder(ctx, order.PaymentIntentID)
			if lookupErr != nil {
				return FinalizedOrder{}, lookupErr
			}
			if found {
				return FinalizedOrder{Order: existing}, nil
			}
			// Not the intent, so the unique order number index rejected the write.
			s.logOrderNumberCollision(ctx, order, number, attempt)
		default:
			return FinalizedOrder{}, translateOrderStoreError(err)
		}
	}
	return FinalizedOrder{}, ErrOrderNumberExhausted
}

func (s *checkoutService) existingOrder(ctx context.Context, intentID string) (domain.Order, bool, error) {
	order, err := s.orders.FindByPaymentIntent(ctx, intentID)
	switch {
	case err == nil:
		return order, true, nil
	case repositories.IsNotFound(err):
		return domain.Order{}, false, nil
	default:
		return domain.Order{}, false, translateOrderStoreError(err)
	}
}

func (s *checkoutService) replay(ctx context.Context, order domain.Order, userID string) (FinalizedOrder, error) {
	if order.UserID != userID {
		s.logger(ctx, "checkout.intent_claimed", map[string]any{
			"severity":      "WARNING",
			"userId":        userID,
			"paymentIntent": order.PaymentIntentID,
		})
		return FinalizedOrder{}, ErrPaymentIntentClaimed
	}
	s.logger(ctx, "checkout.order.replayed", map[string]any{
		"userId":        userID,
		"orderId":       order.ID,
		"paymentIntent": order.PaymentIntentID,
	})
	return FinalizedOrder{Order: order}, nil
}

func (s *checkoutService) publish(ctx context.Context, order domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderPaid(ctx, order); err != nil {
		s.logger(ctx, "checkout.order.publish_failed", map[string]any{
			"severity": "ERROR",
			"orderId":  order.ID,
			"error":    err.Error(),
		})
	}
}

func (s *checkoutService) logOrderNumberCollision(ctx context.Context, order domain.Order, number string, attempt int) {
	s.logger(ctx, "checkout.order_number.collision", map[string]any{
		"paymentIntent": order.PaymentIntentID,
		"orderNumber":   number,
		"attempt":       attempt,
	})
}

// maxIntentIDLength bounds intent ids well below the document id limits of the order stores.
const maxIntentIDLength = 255

// wellFormedIntentID accepts the processor's id alphabet only, so an id can be used verbatim as a
// document key.
func wellFormedIntentID(id string) bool {
	if len(id) > maxIntentIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func translateGatewayError(err error) error {
	var rejected *payments.RejectedError
	switch {
	case errors.As(err, &rejected):
		return &GatewayRejectedError{Code: rejected.Code, Message: rejected.Message}
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrPaymentGatewayUnavailable, err)
	}
}

func translateOrderStoreError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOrderStoreUnavailable, err)
}
