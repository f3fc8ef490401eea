// Package handler holds the HTTP layer: request binding, span bookkeeping
// and the mapping from domain errors to status codes. Business rules stay in
// the services.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/response"
)

// handleError converts domain errors to HTTP responses.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrChallengeNotFound):
		response.NotFound(c, err.Error())

	case errors.Is(err, domain.ErrSlotContention):
		response.Conflict(c, "SLOT_CONTENTION", err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		response.Conflict(c, "CAPACITY_EXCEEDED", err.Error())
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		response.Conflict(c, "ALREADY_CONFIRMED", err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		response.Conflict(c, "ALREADY_CANCELLED", err.Error())
	case errors.Is(err, domain.ErrInvalidBookingStatus):
		response.Conflict(c, "INVALID_BOOKING_STATUS", err.Error())
	case errors.Is(err, domain.ErrDuplicateCharge):
		response.Conflict(c, "DUPLICATE_CHARGE", err.Error())

	case errors.Is(err, domain.ErrBookingExpired):
		response.Error(c, http.StatusGone, "BOOKING_EXPIRED", err.Error(), "")
	case errors.Is(err, domain.ErrTourAlreadyDeparted),
		errors.Is(err, domain.ErrSlotNotBookable):
		response.Error(c, http.StatusGone, "SLOT_NOT_BOOKABLE", err.Error(), "")

	case errors.Is(err, domain.ErrInvalidPassengers),
		errors.Is(err, domain.ErrInvalidUserID):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidDiscountCode):
		response.UnprocessableEntity(c, "INVALID_DISCOUNT_CODE", err.Error())
	case errors.Is(err, domain.ErrUnknownGateway):
		response.UnprocessableEntity(c, "UNKNOWN_GATEWAY", err.Error())

	case errors.Is(err, domain.ErrPaymentDeclined):
		response.PaymentRequired(c, "PAYMENT_DECLINED", err.Error())
	case errors.Is(err, domain.ErrGatewayTimeout):
		response.Error(c, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", err.Error(), "")
	case errors.Is(err, domain.ErrRefundFailed):
		response.Error(c, http.StatusBadGateway, "REFUND_FAILED", err.Error(), "")

	default:
		response.InternalError(c, err)
	}
}
