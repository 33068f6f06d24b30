// Package inventory owns the authoritative seat capacity per event and
// the per-seat hold records.  Every mutation of
// (available_capacity, seat_holds) for an event goes through
// SeatInventory, which serializes callers per event so that two buyers
// can never both pass the capacity check before either commits.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticketing/internal/lock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrSeatConflict is returned when any requested seat already has a
// PENDING or CONFIRMED hold.  The whole hold fails; no partial holds
// are created.  Callers may retry with different seats.
var ErrSeatConflict = errors.New("seat already held or confirmed")

// ErrInsufficientCapacity is returned when the event does not have
// enough free capacity for the request, before any per-seat state is
// examined.
var ErrInsufficientCapacity = errors.New("insufficient event capacity")

// ErrEventNotFound is returned when the event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ReleaseReason says why a set of holds is being released.  Expired
// holds are marked EXPIRED so reconciliation can tell a reaper sweep
// apart from an explicit failure or cancellation.
type ReleaseReason string

const (
	ReasonPaymentFailed ReleaseReason = "payment_failed"
	ReasonAbandoned     ReleaseReason = "abandoned"
	ReasonExpired       ReleaseReason = "expired"
)

// Store is the persistence surface the inventory drives.  The MySQL
// implementation wraps each method in a transaction that takes a row
// lock on the event record, so the check-and-reserve sequence is
// atomic at the database even when several processes share the store.
type Store interface {
	// HoldSeats checks capacity, checks every token for an active
	// hold, creates the holds and decrements available capacity as
	// one unit.  It returns ErrInsufficientCapacity,
	// ErrSeatConflict or ErrEventNotFound without creating anything
	// when the request cannot be satisfied.
	HoldSeats(ctx context.Context, eventID uint64, seatTokens []string, bookingID uint64, expiresAt time.Time) ([]model.SeatHold, error)

	// FinalizeHolds transitions the booking's PENDING holds to
	// CONFIRMED and returns how many changed.  Already-confirmed
	// holds are left alone.
	FinalizeHolds(ctx context.Context, bookingID uint64) (int, error)

	// ReleaseHolds transitions the booking's PENDING holds to the
	// given terminal state, restores available capacity by the
	// number released, and returns that number.  CONFIRMED holds
	// are never touched.
	ReleaseHolds(ctx context.Context, bookingID uint64, to model.HoldState) (int, error)

	// ExpiredHoldBookings returns the distinct booking IDs that
	// still have PENDING holds whose expiry has passed.
	ExpiredHoldBookings(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// SeatInventory serializes hold/finalize/release per event with an
// in-process keyed mutex on top of whatever locking the store does.
// The mutex guarantees mutual exclusion inside one process even when
// the store is a plain in-memory map (as in tests); the store's row
// lock covers multi-process deployments.
type SeatInventory struct {
	store Store
	locks *lock.Keyed
}

// New returns a SeatInventory over the given store.
func New(store Store) *SeatInventory {
	if store == nil {
		panic("nil store passed to inventory.New")
	}
	return &SeatInventory{store: store, locks: lock.NewKeyed()}
}

// Hold atomically claims the given seats for a booking until
// expiresAt.  All-or-nothing: if any seat conflicts the whole call
// fails with ErrSeatConflict and nothing is created.  Aggregate
// capacity is checked first, so an event that is simply full reports
// ErrInsufficientCapacity even when none of the tokens conflict.
func (s *SeatInventory) Hold(ctx context.Context, eventID uint64, seatTokens []string, bookingID uint64, ttl time.Duration) ([]model.SeatHold, error) {
	if len(seatTokens) == 0 {
		return nil, fmt.Errorf("hold: no seat tokens")
	}
	expiresAt := time.Now().UTC().Add(ttl)

	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	return s.store.HoldSeats(ctx, eventID, seatTokens, bookingID, expiresAt)
}

// Finalize converts the booking's holds from PENDING to CONFIRMED.
// Idempotent: finalizing an already-confirmed set is a no-op, never an
// error.
func (s *SeatInventory) Finalize(ctx context.Context, eventID, bookingID uint64) error {
	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	_, err := s.store.FinalizeHolds(ctx, bookingID)
	return err
}

// Release frees the booking's PENDING holds and gives the capacity
// back.  Confirmed holds are never released by this path.  Idempotent:
// releasing an already-released set returns 0.
func (s *SeatInventory) Release(ctx context.Context, eventID, bookingID uint64, reason ReleaseReason) (int, error) {
	to := model.HoldReleased
	if reason == ReasonExpired {
		to = model.HoldExpired
	}

	s.locks.Lock(eventID)
	defer s.locks.Unlock(eventID)

	return s.store.ReleaseHolds(ctx, bookingID, to)
}

// ExpiredHoldBookings lists bookings whose PENDING holds have passed
// expiry, for the reaper to drive through the release path.
func (s *SeatInventory) ExpiredHoldBookings(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	return s.store.ExpiredHoldBookings(ctx, now, limit)
}
