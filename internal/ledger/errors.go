// Package ledger owns the booking entity and its state machine:
// CREATED -> AWAITING_PAYMENT -> CONFIRMED | CANCELLED.  It is the
// only component that transitions bookings, and it drives the seat
// inventory, the gateway adapters, the audit trail and the
// post-confirmation side effects.
package ledger

import "errors"

// ErrValidation is returned for malformed requests, rejected before
// any inventory or booking state is touched.
var ErrValidation = errors.New("invalid booking request")

// ErrBookingNotFound is returned when no booking matches the given id
// or transaction reference.
var ErrBookingNotFound = errors.New("booking not found")

// ErrBookingCancelled is returned when a confirmation arrives for a
// booking that already reached CANCELLED.  The first writer won; the
// late confirmation is a no-op.
var ErrBookingCancelled = errors.New("booking already cancelled")

// ErrAmountMismatch is returned when the proof or the gateway reports
// an amount different from the booking total.  Fatal: the booking is
// cancelled and its seats released.
var ErrAmountMismatch = errors.New("payment amount mismatch")

// ErrPaymentFailed is returned when the gateway definitively reports
// the payment failed, cancelled or expired.
var ErrPaymentFailed = errors.New("payment failed")
