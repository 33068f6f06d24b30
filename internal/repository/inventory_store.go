// Package repository implements the MySQL persistence layer.  Each
// store wraps one component's check-and-mutate sequence in a
// transaction; the inventory store additionally takes a row lock on
// the event record, so the hold sequence is serialized across
// processes, not only inside this one.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// InventoryStore is the MySQL implementation of inventory.Store.  All
// timestamps are stored and compared in UTC.
type InventoryStore struct {
	db *sql.DB
}

// NewInventoryStore returns an InventoryStore bound to the provided
// database.
func NewInventoryStore(db *sql.DB) *InventoryStore { return &InventoryStore{db: db} }

// HoldSeats runs the whole check-and-reserve sequence as one
// transaction.  The SELECT ... FOR UPDATE on the event row serializes
// concurrent holds for the same event at the database: a second caller
// blocks until the first commits, then re-reads the decremented
// capacity.  Order matters: aggregate capacity is checked before any
// per-seat state, so a full event reports ErrInsufficientCapacity even
// when no token conflicts.
func (s *InventoryStore) HoldSeats(ctx context.Context, eventID uint64, seatTokens []string, bookingID uint64, expiresAt time.Time) ([]model.SeatHold, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var available uint32
	err = tx.QueryRowContext(ctx,
		`SELECT available_capacity FROM events WHERE id = ? FOR UPDATE`,
		eventID,
	).Scan(&available)
	if err == sql.ErrNoRows {
		return nil, inventory.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	if int(available) < len(seatTokens) {
		return nil, inventory.ErrInsufficientCapacity
	}

	conflicts, err := activeHoldConflictsTx(ctx, tx, eventID, seatTokens)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, fmt.Errorf("%w: %s", inventory.ErrSeatConflict, strings.Join(conflicts, ", "))
	}

	query := `INSERT INTO seat_holds (event_id, seat_token, booking_id, state, expires_at) VALUES `
	args := make([]interface{}, 0, len(seatTokens)*5)
	for i, token := range seatTokens {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, eventID, token, bookingID, model.HoldPending, expiresAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE events SET available_capacity = available_capacity - ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		len(seatTokens), eventID,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	holds := make([]model.SeatHold, 0, len(seatTokens))
	for _, token := range seatTokens {
		holds = append(holds, model.SeatHold{
			EventID:   eventID,
			SeatToken: token,
			BookingID: bookingID,
			State:     model.HoldPending,
			ExpiresAt: expiresAt,
		})
	}
	return holds, nil
}

// activeHoldConflictsTx returns the requested tokens that already have
// a PENDING or CONFIRMED hold.  An expired PENDING hold still blocks
// here: seats only come back on sale through the release path, which
// cancels the owning booking first, so a late payment confirmation can
// never collide with a resold seat.
func activeHoldConflictsTx(ctx context.Context, tx *sql.Tx, eventID uint64, seatTokens []string) ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatTokens)), ",")
	args := make([]interface{}, 0, len(seatTokens)+1)
	args = append(args, eventID)
	for _, t := range seatTokens {
		args = append(args, t)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_token FROM seat_holds
		 WHERE event_id = ? AND seat_token IN (`+placeholders+`) AND state IN ('PENDING','CONFIRMED')`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, token)
	}
	return conflicts, rows.Err()
}

// FinalizeHolds transitions the booking's PENDING holds to CONFIRMED.
// Re-finalizing is a no-op with zero rows affected.
func (s *InventoryStore) FinalizeHolds(ctx context.Context, bookingID uint64) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE seat_holds SET state = ? WHERE booking_id = ? AND state = ?`,
		model.HoldConfirmed, bookingID, model.HoldPending,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ReleaseHolds moves the booking's PENDING holds to the given terminal
// state and restores the event's capacity by the number released, all
// in one transaction under the event row lock.  CONFIRMED holds are
// never touched.
func (s *InventoryStore) ReleaseHolds(ctx context.Context, bookingID uint64, to model.HoldState) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var eventID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT event_id FROM seat_holds WHERE booking_id = ? AND state = ? LIMIT 1`,
		bookingID, model.HoldPending,
	).Scan(&eventID)
	if err == sql.ErrNoRows {
		// Nothing pending: already released, expired or confirmed.
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	// Lock the event row so the capacity increment is serialized
	// against concurrent holds.
	var available uint32
	if err := tx.QueryRowContext(ctx,
		`SELECT available_capacity FROM events WHERE id = ? FOR UPDATE`, eventID,
	).Scan(&available); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE seat_holds SET state = ? WHERE booking_id = ? AND state = ?`,
		to, bookingID, model.HoldPending,
	)
	if err != nil {
		return 0, err
	}
	released, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if released > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE events SET available_capacity = available_capacity + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
			released, eventID,
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return int(released), nil
}

// ExpiredHoldBookings returns distinct booking IDs that still have
// PENDING holds past their expiry.
func (s *InventoryStore) ExpiredHoldBookings(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT booking_id FROM seat_holds
		 WHERE state = ? AND expires_at <= ? LIMIT ?`,
		model.HoldPending, now.UTC().Format("2006-01-02 15:04:05"), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
