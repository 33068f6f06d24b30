package model

import "time"

// PaymentPhase marks which step of the payment lifecycle a
// PaymentEvent records.
type PaymentPhase string

const (
	PhaseInitiated PaymentPhase = "INITIATED"
	PhaseCompleted PaymentPhase = "COMPLETED"
	PhaseFailed    PaymentPhase = "FAILED"
)

// PaymentEvent is one append-only row of the payment audit trail.
// Rows are written once per phase and never mutated or deleted; they
// exist for reconciliation and dispute resolution, not for control
// flow.
//
// Fields:
//  ID              – primary key identifier.
//  BookingID       – booking the event belongs to.
//  TransactionRef  – transaction reference at the time of the event.
//  Gateway         – gateway that processed (or will process) payment.
//  AmountCents     – amount in minor units.
//  Phase           – lifecycle phase recorded.
//  GatewayResponse – opaque JSON payload returned by the gateway.
//  ErrorMessage    – failure reason, if any.
//  CreatedAt       – when the event was recorded.
type PaymentEvent struct {
	ID              uint64       // payment_events.id
	BookingID       uint64       // payment_events.booking_id
	TransactionRef  string       // payment_events.transaction_ref
	Gateway         Gateway      // payment_events.gateway
	AmountCents     uint64       // payment_events.amount_cents
	Phase           PaymentPhase // payment_events.phase
	GatewayResponse string       // payment_events.gateway_response (JSON)
	ErrorMessage    *string      // payment_events.error_message (nullable)
	CreatedAt       time.Time    // payment_events.created_at
}
