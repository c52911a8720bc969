package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/voltmart/storefront/internal/domain"
)

const defaultStripeTimeout = 10 * time.Second

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Timeout   time.Duration
	Breaker   BreakerConfig
	Logger    StripeLogger
	// Intents overrides the Stripe payment intent client, for tests.
	Intents stripePaymentIntentAPI
}

// StripeGateway implements Gateway on Stripe Payment Intents. Every call is bounded by a timeout
// and guarded by a circuit breaker.
type StripeGateway struct {
	intents stripePaymentIntentAPI
	account string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  StripeLogger
}

var _ Gateway = (*StripeGateway)(nil)

// NewStripeGateway constructs a Stripe-backed Gateway.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	intents := cfg.Intents
	if intents == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		intents = client.New(apiKey, cfg.Backends).PaymentIntents
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStripeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	breakerCfg := cfg.Breaker
	if breakerCfg.Name == "" {
		breakerCfg.Name = "stripe"
	}

	return &StripeGateway{
		intents: intents,
		account: strings.TrimSpace(cfg.AccountID),
		timeout: timeout,
		breaker: newBreaker(breakerCfg),
		logger:  logger,
	}, nil
}

// CreateIntent creates a pending Payment Intent with automatic payment methods enabled.
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if req.Amount <= 0 {
		return Intent{}, &RejectedError{Code: "amount_too_small", Message: "amount must be positive"}
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))

	result, err := g.call(ctx, "create_intent", func(ctx context.Context) (any, error) {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(req.Amount.MinorUnits()),
			Currency: stripe.String(currency),
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
		}
		params.Context = ctx
		for k, v := range req.Metadata {
			params.AddMetadata(k, v)
		}
		if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
			params.SetIdempotencyKey(key)
		}
		if g.account != "" {
			params.SetStripeAccount(g.account)
		}
		return g.intents.New(params)
	})
	if err != nil {
		return Intent{}, err
	}

	pi := result.(*stripe.PaymentIntent)
	g.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": pi.ID,
		"amount":        pi.Amount,
		"currency":      pi.Currency,
	})
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       domain.Money(pi.Amount),
		Currency:     string(pi.Currency),
		Status:       stripeStatus(pi.Status),
	}, nil
}

// LookupPayment retrieves the intent and reports its settled amount.
func (g *StripeGateway) LookupPayment(ctx context.Context, intentID string) (PaymentDetails, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return PaymentDetails{}, ErrIntentNotFound
	}
	result, err := g.call(ctx, "lookup_intent", func(ctx context.Context) (any, error) {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		if g.account != "" {
			params.SetStripeAccount(g.account)
		}
		return g.intents.Get(intentID, params)
	})
	if err != nil {
		return PaymentDetails{}, err
	}
	return stripePaymentDetails(result.(*stripe.PaymentIntent)), nil
}

func (g *StripeGateway) call(ctx context.Context, op string, fn func(context.Context) (any, error)) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result, err := g.breaker.Execute(func() (any, error) {
		res, err := fn(callCtx)
		if err != nil {
			return nil, classifyStripeError(callCtx, err)
		}
		return res, nil
	})
	if err != nil {
		err = breakerError(err)
		g.logger(ctx, "payments.stripe.call_failed", map[string]any{
			"operation": op,
			"latency":   time.Since(start).String(),
			"error":     err.Error(),
			"breaker":   g.breaker.State().String(),
		})
		return nil, err
	}
	return result, nil
}

// classifyStripeError maps Stripe failures onto the gateway error taxonomy.
func classifyStripeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, ctxErr)
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	switch {
	case stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing:
		return fmt.Errorf("%w: %s", ErrIntentNotFound, stripeErr.Msg)
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.HTTPStatusCode == http.StatusUnauthorized,
		stripeErr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", ErrGatewayUnavailable, stripeErr.Msg)
	default:
		return &RejectedError{Code: string(stripeErr.Code), Message: stripeErr.Msg}
	}
}

func stripeStatus(status stripe.PaymentIntentStatus) Status {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

func stripePaymentDetails(intent *stripe.PaymentIntent) PaymentDetails {
	if intent == nil {
		return PaymentDetails{}
	}
	return PaymentDetails{
		IntentID:       intent.ID,
		Status:         stripeStatus(intent.Status),
		Amount:         domain.Money(intent.Amount),
		AmountReceived: domain.Money(intent.AmountReceived),
		Currency:       strings.ToLower(string(intent.Currency)),
		Metadata:       intent.Metadata,
	}
}
