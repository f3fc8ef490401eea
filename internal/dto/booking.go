// Package dto holds the HTTP request payloads. Responses reuse the service
// result structs directly.
package dto

import (
	"github.com/wavetours/booking-engine/internal/domain"
)

// CheckoutRequest creates a pending booking with a seat hold.
type CheckoutRequest struct {
	TourID        string             `json:"tour_id" binding:"required"`
	Date          string             `json:"date" binding:"required"`
	Time          string             `json:"time" binding:"required"`
	Passengers    int                `json:"passengers" binding:"required,min=1"`
	PassengerList []domain.Passenger `json:"passenger_list,omitempty"`
	ContactEmail  string             `json:"contact_email,omitempty"`
	Currency      string             `json:"currency,omitempty"`
	DiscountCode  string             `json:"discount_code,omitempty"`
}

// QuoteRequest prices a prospective booking without reserving anything.
type QuoteRequest struct {
	TourID       string `json:"tour_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Passengers   int    `json:"passengers" binding:"required,min=1"`
	Currency     string `json:"currency,omitempty"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// CancelRequest cancels a booking.
type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ValidateDiscountRequest checks a code against a subtotal.
type ValidateDiscountRequest struct {
	Code     string `json:"code" binding:"required"`
	Subtotal int64  `json:"subtotal" binding:"required,min=1"`
}
