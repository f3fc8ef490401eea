package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wavetours/booking-engine/internal/domain"
	"github.com/wavetours/booking-engine/internal/dto"
	"github.com/wavetours/booking-engine/internal/response"
	"github.com/wavetours/booking-engine/internal/service"
	"github.com/wavetours/booking-engine/internal/telemetry"
)

// BookingHandler serves the booking lifecycle endpoints.
type BookingHandler struct {
	bookings      *service.BookingService
	cancellations *service.CancellationService
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(bookings *service.BookingService, cancellations *service.CancellationService) *BookingHandler {
	return &BookingHandler{
		bookings:      bookings,
		cancellations: cancellations,
	}
}

// Availability handles GET /tours/:tour_id/availability
func (h *BookingHandler) Availability(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.availability")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	tourID := c.Param("tour_id")
	date := c.Query("date")
	span.SetAttributes(attribute.String("tour_id", tourID))

	// With a departure time the answer is a single-slot verdict for the
	// requested party size; without one it is the day's slot list.
	if tm := c.Query("time"); tm != "" {
		passengers, _ := strconv.Atoi(c.DefaultQuery("passengers", "1"))
		check, err := h.bookings.CheckAvailability(ctx, tourID, date, tm, passengers)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			handleError(c, err)
			return
		}
		span.SetStatus(codes.Ok, "")
		response.Success(c, check)
		return
	}

	slots, err := h.bookings.Availability(ctx, tourID, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("slot_count", len(slots)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, slots)
}

// Quote handles POST /bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.quote")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("tour_id", req.TourID),
		attribute.Int("passengers", req.Passengers),
	)

	result, err := h.bookings.Quote(ctx, &service.QuoteInput{
		TourID:       req.TourID,
		Date:         req.Date,
		Time:         req.Time,
		Passengers:   req.Passengers,
		Currency:     req.Currency,
		DiscountCode: req.DiscountCode,
		UserID:       c.GetString("user_id"),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// Checkout handles POST /bookings
func (h *BookingHandler) Checkout(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.checkout")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "authentication required")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("tour_id", req.TourID),
		attribute.Int("passengers", req.Passengers),
	)

	result, err := h.bookings.Checkout(ctx, &service.CheckoutInput{
		UserID:        userID,
		TourID:        req.TourID,
		Date:          req.Date,
		Time:          req.Time,
		Passengers:    req.Passengers,
		PassengerList: req.PassengerList,
		ContactEmail:  req.ContactEmail,
		Currency:      req.Currency,
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("booking_id", result.Booking.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, result)
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	booking, err := h.bookings.GetBooking(ctx, bookingID, c.GetString("user_id"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, booking)
}

// ListBookings handles GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookings.ListUserBookings(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, bookings)
}

// Cancel handles POST /bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := c.GetString("user_id")
	if userID == "" {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "authentication required")
		return
	}

	bookingID := c.Param("id")
	span.SetAttributes(
		attribute.String("booking_id", bookingID),
		attribute.String("user_id", userID),
	)

	var req dto.CancelRequest
	// Reason is optional, so an empty body is fine.
	_ = c.ShouldBindJSON(&req)

	result, err := h.cancellations.Cancel(ctx, &service.CancelInput{
		BookingID: bookingID,
		UserID:    userID,
		Reason:    req.Reason,
		Actor:     "customer",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// A failed refund still produced a cancellation record; return it
		// alongside the error so the caller can retry through support.
		if errors.Is(err, domain.ErrRefundFailed) && result != nil {
			c.JSON(http.StatusBadGateway, response.Response{
				Success: false,
				Data:    result,
				Error: &response.ErrorData{
					Code:    "REFUND_FAILED",
					Message: err.Error(),
				},
			})
			return
		}
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, result)
}

// GetCancellation handles GET /bookings/:id/cancellation
func (h *BookingHandler) GetCancellation(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get_cancellation")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	bookingID := c.Param("id")
	span.SetAttributes(attribute.String("booking_id", bookingID))

	// Ownership check rides on the booking itself.
	if _, err := h.bookings.GetBooking(ctx, bookingID, c.GetString("user_id")); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	record, err := h.cancellations.GetCancellation(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, record)
}
