package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/dto"
	"github.com/wavetours/booking-engine/internal/money"
	"github.com/wavetours/booking-engine/internal/response"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// DiscountHandler serves discount code validation.
type DiscountHandler struct {
	validator *discount.Validator
}

// NewDiscountHandler creates a discount handler.
func NewDiscountHandler(validator *discount.Validator) *DiscountHandler {
	return &DiscountHandler{validator: validator}
}

// discountVerdict is the validate endpoint payload.
type discountVerdict struct {
	Valid  bool         `json:"valid"`
	Amount money.Amount `json:"amount"`
	Reason string       `json:"reason,omitempty"`
}

// Validate handles POST /discounts/validate
func (h *DiscountHandler) Validate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.discount.validate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(attribute.String("code", req.Code))

	result, err := h.validator.Validate(ctx, req.Code, money.Amount(req.Subtotal), c.GetString("user_id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("valid", result.Valid))
	span.SetStatus(codes.Ok, "")
	response.Success(c, discountVerdict{
		Valid:  result.Valid,
		Amount: result.Amount,
		Reason: result.Reason,
	})
}
