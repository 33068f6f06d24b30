package model

import "time"

// BookingStatus tracks the booking state machine.  AWAITING_PAYMENT is
// transient; CONFIRMED and CANCELLED are terminal and no transition
// ever leaves them.
type BookingStatus string

const (
	BookingAwaitingPayment BookingStatus = "AWAITING_PAYMENT"
	BookingConfirmed       BookingStatus = "CONFIRMED"
	BookingCancelled       BookingStatus = "CANCELLED"
)

// PaymentStatus tracks what the payment gateway reported for a booking.
// COMPLETED implies the booking is CONFIRMED, and that transition
// happens exactly once per booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Gateway tags which payment provider a booking was initiated against.
// Dispatch between gateway adapters is driven by this tag.
type Gateway string

const (
	GatewayEsewa  Gateway = "esewa"  // redirect-form gateway, signed callback
	GatewayKhalti Gateway = "khalti" // bearer/REST gateway, minor-unit amounts
)

// Booking records a user's purchase of one or more seats for an event.
// All monetary values are stored in minor currency units (paisa/cents)
// regardless of which gateway processes the payment; the gateway
// adapters normalize wire formats.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – buyer.
//  EventID          – event being booked.
//  SeatTokens       – seats claimed by this booking.
//  Quantity         – number of seats (len(SeatTokens)).
//  TotalAmountCents – total price in minor units.
//  Currency         – ISO currency code (e.g. "NPR").
//  Gateway          – payment provider handling this booking.
//  TransactionRef   – globally unique reference sent to the gateway.
//  GatewayPaymentRef – gateway-side transaction id, set on completion.
//  Status           – booking state machine position.
//  PaymentStatus    – gateway-reported payment state.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
	ID                uint64        // bookings.id
	UserID            uint64        // bookings.user_id
	EventID           uint64        // bookings.event_id
	SeatTokens        []string      // bookings.seat_tokens (comma-joined column)
	Quantity          uint32        // bookings.quantity
	TotalAmountCents  uint64        // bookings.total_amount_cents
	Currency          string        // bookings.currency
	Gateway           Gateway       // bookings.gateway
	TransactionRef    string        // bookings.transaction_ref
	GatewayPaymentRef *string       // bookings.gateway_payment_ref (nullable)
	Status            BookingStatus // bookings.status
	PaymentStatus     PaymentStatus // bookings.payment_status
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}

// Terminal reports whether the booking can no longer change state.
func (b *Booking) Terminal() bool {
	return b.Status == BookingConfirmed || b.Status == BookingCancelled
}
