// Package reaper reclaims seats from bookings whose hold expired
// before a payment confirmation arrived.  It is the only component
// that mutates state without a user or gateway trigger, and it goes
// through the exact same ledger release path as an explicit failure,
// so racing an in-flight confirm is safe: the ledger's per-booking
// lock decides the winner.
package reaper

import (
	"context"
	"log"
	"time"
)

// defaultBatch bounds how many expired bookings one sweep handles.
const defaultBatch = 200

// ExpiredScanner lists bookings that still have expired PENDING holds.
// Implemented by *inventory.SeatInventory.
type ExpiredScanner interface {
	ExpiredHoldBookings(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// Expirer drives one booking through expiry.  Implemented by
// *ledger.Ledger.
type Expirer interface {
	Expire(ctx context.Context, bookingID uint64) (int, error)
}

// Reaper periodically sweeps expired holds.
type Reaper struct {
	scanner  ExpiredScanner
	expirer  Expirer
	interval time.Duration
}

// New returns a Reaper sweeping at the given interval (defaults to one
// minute when zero).
func New(scanner ExpiredScanner, expirer Expirer, interval time.Duration) *Reaper {
	if scanner == nil || expirer == nil {
		panic("nil dependency passed to reaper.New")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{scanner: scanner, expirer: expirer, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("reaper: started, sweeping every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("reaper: stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				log.Printf("reaper: sweep failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many seats were
// released.  It is also the operator's manual trigger.
func (r *Reaper) RunOnce(ctx context.Context) (int, error) {
	bookingIDs, err := r.scanner.ExpiredHoldBookings(ctx, time.Now().UTC(), defaultBatch)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range bookingIDs {
		n, err := r.expirer.Expire(ctx, id)
		if err != nil {
			// Keep sweeping: one stuck booking must not leave
			// every other expired hold blocking seats.
			log.Printf("reaper: expire booking %d: %v", id, err)
			continue
		}
		released += n
	}
	if released > 0 {
		log.Printf("reaper: released %d seats from %d expired bookings", released, len(bookingIDs))
	}
	return released, nil
}
