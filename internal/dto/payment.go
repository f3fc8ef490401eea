package dto

// ChargeRequest charges a pending booking.
type ChargeRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Provider  string `json:"provider,omitempty"`
	MethodRef string `json:"method_ref,omitempty"`
}

// CompleteChallengeRequest resolves a step-up authentication round-trip.
type CompleteChallengeRequest struct {
	ChallengeRef string `json:"challenge_ref" binding:"required"`
}
