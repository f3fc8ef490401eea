package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeGateway implements Gateway over Stripe PaymentIntents. Amounts are
// already in minor units, which is what Stripe expects.
type StripeGateway struct {
	config *StripeConfig
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Environment   string // "test" or "live"
}

// NewStripeGateway creates the Stripe-backed gateway.
func NewStripeGateway(config *StripeConfig) (*StripeGateway, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}

	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// Name returns the provider identifier.
func (g *StripeGateway) Name() string {
	return "stripe"
}

// WebhookSecret exposes the signing secret for webhook verification.
func (g *StripeGateway) WebhookSecret() string {
	return g.config.WebhookSecret
}

// CreateCharge creates and confirms a PaymentIntent. The idempotency key is
// forwarded to Stripe, which deduplicates retried calls server-side.
func (g *StripeGateway) CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if req == nil {
		return nil, Terminal("invalid_request", fmt.Errorf("charge request is required"))
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(req.Amount)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.MethodRef),
		Confirm:       stripe.Bool(true),
		Metadata:      map[string]string{"booking_id": req.BookingID},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return mapIntent(pi), nil
}

// CompleteChallenge re-reads the PaymentIntent after the client finished the
// step-up round-trip and maps its final status.
func (g *StripeGateway) CompleteChallenge(ctx context.Context, challengeRef string) (*ChargeResult, error) {
	if challengeRef == "" {
		return nil, Terminal("invalid_request", fmt.Errorf("challenge reference is required"))
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(challengeRef, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return mapIntent(pi), nil
}

// CreateRefund refunds a prior PaymentIntent, deduplicated by the
// idempotency key on the Stripe side.
func (g *StripeGateway) CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResult, error) {
	if req == nil || req.GatewayTxnID == "" {
		return nil, Terminal("invalid_request", fmt.Errorf("gateway transaction id is required"))
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.GatewayTxnID),
		Amount:        stripe.Int64(int64(req.Amount)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	r, err := refund.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	status := RefundStatusSucceeded
	if r.Status == stripe.RefundStatusFailed {
		status = RefundStatusFailed
	}
	return &RefundResult{
		Status:      status,
		RefundTxnID: r.ID,
		FailureCode: string(r.FailureReason),
	}, nil
}

// mapIntent maps a PaymentIntent status onto the uniform charge result.
func mapIntent(pi *stripe.PaymentIntent) *ChargeResult {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ChargeResult{Status: ChargeStatusSucceeded, GatewayTxnID: pi.ID}
	case stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation:
		return &ChargeResult{
			Status:       ChargeStatusRequiresChallenge,
			GatewayTxnID: pi.ID,
			ChallengeRef: pi.ID,
		}
	default:
		code := "payment_failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.DeclineCode != "" {
			code = string(pi.LastPaymentError.DeclineCode)
		}
		return &ChargeResult{
			Status:       ChargeStatusDeclined,
			GatewayTxnID: pi.ID,
			DeclineCode:  code,
		}
	}
}

// classifyStripeError splits Stripe failures into transient (retry with the
// same idempotency key) and terminal.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeAPI:
			// Connection-level failures surface under the api type; the
			// outcome is unknown, so retry under the same idempotency key.
			return Transient("gateway_timeout", err)
		case stripe.ErrorTypeCard:
			return Terminal(string(stripeErr.Code), err)
		default:
			return Terminal(string(stripeErr.Type), err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient("gateway_timeout", err)
	}
	return Transient("gateway_unreachable", err)
}

var _ Gateway = (*StripeGateway)(nil)
