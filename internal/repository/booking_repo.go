package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingRepo provides persistence for bookings.  It implements
// ledger.BookingStore.  Terminal transitions are conditional updates
// on the current status, so two writers racing for the same booking
// resolve at the database even across processes.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, event_id, seat_tokens, quantity, total_amount_cents,
	currency, gateway, transaction_ref, gateway_payment_ref, status, payment_status,
	created_at, updated_at`

// Create inserts a new booking and reads the row back to populate the
// generated ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
		(user_id, event_id, seat_tokens, quantity, total_amount_cents, currency, gateway, transaction_ref, status, payment_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.UserID, b.EventID, strings.Join(b.SeatTokens, ","), b.Quantity, b.TotalAmountCents,
		b.Currency, b.Gateway, b.TransactionRef, b.Status, b.PaymentStatus,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	loaded, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *loaded
	return nil
}

// Delete removes a booking row.  Used only to compensate a failed
// seat hold during initiation, before any audit entry exists.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

// GetByID loads one booking.  Returns ledger.ErrBookingNotFound when
// no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// GetByTransactionRef loads the booking behind a transaction
// reference.  Gateway callbacks identify bookings this way.
func (r *BookingRepo) GetByTransactionRef(ctx context.Context, ref string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE transaction_ref = ?`, ref)
	return scanBooking(row)
}

// MarkConfirmed applies AWAITING_PAYMENT -> CONFIRMED/COMPLETED and
// reports whether this call was the one that applied it.
func (r *BookingRepo) MarkConfirmed(ctx context.Context, id uint64, gatewayRef string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, payment_status = ?, gateway_payment_ref = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ?`,
		model.BookingConfirmed, model.PaymentCompleted, nullable(gatewayRef), id, model.BookingAwaitingPayment,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkCancelled applies AWAITING_PAYMENT -> CANCELLED/FAILED under the
// same conditional-update rule as MarkConfirmed.
func (r *BookingRepo) MarkCancelled(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET status = ?, payment_status = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = ?`,
		model.BookingCancelled, model.PaymentFailed, id, model.BookingAwaitingPayment,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanBooking(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var tokens string
	var gatewayRef sql.NullString
	err := row.Scan(
		&b.ID, &b.UserID, &b.EventID, &tokens, &b.Quantity, &b.TotalAmountCents,
		&b.Currency, &b.Gateway, &b.TransactionRef, &gatewayRef, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if tokens != "" {
		b.SeatTokens = strings.Split(tokens, ",")
	}
	if gatewayRef.Valid {
		ref := gatewayRef.String
		b.GatewayPaymentRef = &ref
	}
	return &b, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
