package domain

import "errors"

// Domain errors
var (
	// Capacity and contention errors
	ErrCapacityExceeded = errors.New("slot capacity exceeded")
	ErrSlotContention   = errors.New("slot is held by another checkout")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotNotBookable  = errors.New("slot is not bookable")

	// Booking lifecycle errors
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingExpired       = errors.New("booking hold has expired")
	ErrAlreadyConfirmed     = errors.New("booking already confirmed")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
	ErrInvalidBookingStatus = errors.New("invalid booking status")
	ErrInvalidPassengers    = errors.New("invalid passenger count")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrTourAlreadyDeparted  = errors.New("tour date has already passed")

	// Discount errors
	ErrInvalidDiscountCode = errors.New("invalid discount code")

	// Payment errors
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrGatewayTimeout    = errors.New("payment gateway timeout")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrPaymentNotFound   = errors.New("payment transaction not found")
	ErrUnknownGateway    = errors.New("unknown payment gateway provider")
	ErrDuplicateCharge   = errors.New("duplicate charge attempt")

	// Refund errors
	ErrRefundFailed = errors.New("refund failed")
)
