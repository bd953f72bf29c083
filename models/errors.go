package models

import "errors"

// Domain errors returned by the booking core. Controllers map these to HTTP
// status codes; none of them should ever crash a worker.
var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrInvalidRange      = errors.New("from date is after to date")
	ErrSlotUnavailable   = errors.New("time slot is not available")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrPaymentNotSettled = errors.New("e-wallet payment is not settled")
	ErrCheckoutExpired   = errors.New("checkout session has expired")
)
