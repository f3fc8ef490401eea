package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wavetours/booking-engine/internal/dto"
	"github.com/wavetours/booking-engine/internal/response"
	"github.com/wavetours/booking-engine/internal/service"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// PaymentHandler serves the charge and challenge endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Charge handles POST /payments/charge
func (h *PaymentHandler) Charge(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.charge")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "authentication required")
		return
	}

	var req dto.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("booking_id", req.BookingID),
		attribute.String("provider", req.Provider),
	)

	outcome, err := h.payments.CreateCharge(ctx, &service.ChargeInput{
		BookingID: req.BookingID,
		UserID:    userID,
		Provider:  req.Provider,
		MethodRef: req.MethodRef,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("transaction_id", outcome.Transaction.ID))
	span.SetStatus(codes.Ok, "")
	response.Success(c, outcome)
}

// CompleteChallenge handles POST /payments/challenge/complete
func (h *PaymentHandler) CompleteChallenge(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.complete_challenge")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CompleteChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(attribute.String("challenge_ref", req.ChallengeRef))

	outcome, err := h.payments.CompleteChallenge(ctx, req.ChallengeRef)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, outcome)
}

// GetTransaction handles GET /payments/:id
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.payment.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	txn, err := h.payments.GetTransaction(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, txn)
}
