package model

import "time"

// HoldState enumerates the lifecycle of a seat hold.  PENDING and
// CONFIRMED are the only states that block other buyers; EXPIRED and
// RELEASED seats are free again.
type HoldState string

const (
	HoldPending   HoldState = "PENDING"
	HoldConfirmed HoldState = "CONFIRMED"
	HoldExpired   HoldState = "EXPIRED"
	HoldReleased  HoldState = "RELEASED"
)

// SeatHold is a temporary, time-bounded exclusive claim on a seat
// while payment for a booking is pending.  For a given
// (event_id, seat_token) at most one hold may be PENDING or CONFIRMED
// at any time; that mutual exclusion is the core guarantee of the
// inventory subsystem.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – event whose capacity the hold consumes.
//  SeatToken – seat identifier, or an anonymous unit for unseated events.
//  BookingID – booking that owns the hold.
//  State     – current hold state.
//  ExpiresAt – when a PENDING hold stops blocking other buyers.
//  CreatedAt – when the hold was created.
type SeatHold struct {
	ID        uint64    // seat_holds.id
	EventID   uint64    // seat_holds.event_id
	SeatToken string    // seat_holds.seat_token
	BookingID uint64    // seat_holds.booking_id
	State     HoldState // seat_holds.state
	ExpiresAt time.Time // seat_holds.expires_at
	CreatedAt time.Time // seat_holds.created_at
}

// Active reports whether the hold still blocks other buyers.
func (h *SeatHold) Active() bool {
	return h.State == HoldPending || h.State == HoldConfirmed
}
