package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/service"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// WebhookHandler receives asynchronous provider notifications. Signature
// verification happens before anything else; a bad signature is rejected, an
// unhandled event type is acknowledged so the provider stops retrying.
type WebhookHandler struct {
	payments      *service.PaymentService
	webhookSecret string
	log           *logger.Logger
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(payments *service.PaymentService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		payments:      payments,
		webhookSecret: webhookSecret,
		log:           logger.Get(),
	}
}

// HandleStripe handles POST /webhooks/stripe
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.webhook.stripe")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		h.log.Warn("Missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing Stripe-Signature header"})
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		h.log.Error("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	h.log.Info("Received gateway webhook event", zap.String("type", string(event.Type)))

	switch event.Type {
	case "payment_intent.succeeded":
		h.handleIntentSucceeded(c, event)
	case "payment_intent.payment_failed":
		h.handleIntentFailed(c, event)
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "message": "event type not handled"})
	}
}

func (h *WebhookHandler) handleIntentSucceeded(c *gin.Context, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse event data"})
		return
	}

	if err := h.payments.ConfirmFromGateway(c.Request.Context(), intent.ID); err != nil {
		// Acknowledge anyway: the provider would otherwise retry a
		// notification we cannot apply, and reconciliation catches it.
		h.log.Error("Failed to apply gateway confirmation",
			zap.String("gateway_txn_id", intent.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) handleIntentFailed(c *gin.Context, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse event data"})
		return
	}

	reason := "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}

	// Nothing to unwind: the booking stays pending and the hold expiry
	// sweep reclaims the seats if no later attempt succeeds.
	h.log.Warn("Gateway reported failed payment",
		zap.String("gateway_txn_id", intent.ID),
		zap.String("reason", reason))

	c.JSON(http.StatusOK, gin.H{"received": true})
}
