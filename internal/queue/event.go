// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a booking is successfully
// confirmed.  It carries enough for downstream consumers (ticket
// delivery, analytics) to act without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	EventID          uint64   `json:"event_id"`
	SeatTokens       []string `json:"seats"`
	Quantity         uint32   `json:"quantity"`
	TotalAmountCents uint64   `json:"total_amount_cents"`
	Currency         string   `json:"currency"`
	Gateway          string   `json:"gateway"`
	TransactionRef   string   `json:"transaction_ref"`
	ConfirmedAt      string   `json:"confirmed_at"`
}
