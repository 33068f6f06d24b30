// Package loyalty credits reward points when a booking is confirmed.
// The award is a best-effort side effect: it fires exactly once per
// confirmed booking and its failure never blocks or reverses the
// confirmation.
package loyalty

import (
	"context"
	"log"
)

// PointsPerSeat is the reward granted for each seat in a confirmed
// booking.
const PointsPerSeat = 100

// Store persists reward balances.  Implemented by the MySQL users
// repository.
type Store interface {
	AddRewardPoints(ctx context.Context, userID uint64, points uint32) error
}

// Service awards points to buyers.
type Service struct {
	store Store
}

// New returns a loyalty service over the given store.
func New(store Store) *Service {
	if store == nil {
		panic("nil store passed to loyalty.New")
	}
	return &Service{store: store}
}

// Award credits quantity*PointsPerSeat to the user.  Errors are logged
// and swallowed.
func (s *Service) Award(ctx context.Context, userID uint64, quantity uint32) {
	if err := s.store.AddRewardPoints(ctx, userID, quantity*PointsPerSeat); err != nil {
		log.Printf("loyalty: award for user %d failed: %v", userID, err)
	}
}
