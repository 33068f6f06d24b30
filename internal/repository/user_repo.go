package repository

import (
	"context"
	"database/sql"
)

// UserRepo exposes the single piece of user state the booking core
// touches: the reward point balance.  It implements loyalty.Store.
// Everything else about users belongs to the auth subsystem.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the provided database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// AddRewardPoints credits points to a user's balance.
func (r *UserRepo) AddRewardPoints(ctx context.Context, userID uint64, points uint32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET reward_points = COALESCE(reward_points, 0) + ? WHERE id = ?`,
		points, userID,
	)
	return err
}
