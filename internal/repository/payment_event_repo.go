package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// PaymentEventRepo appends rows to the payment_events audit table.  It
// implements txlog.Appender.  Rows are insert-only: nothing in this
// codebase updates or deletes them.
type PaymentEventRepo struct {
	db *sql.DB
}

// NewPaymentEventRepo returns a PaymentEventRepo bound to the provided
// database.
func NewPaymentEventRepo(db *sql.DB) *PaymentEventRepo { return &PaymentEventRepo{db: db} }

// Append inserts one payment lifecycle event.
func (r *PaymentEventRepo) Append(ctx context.Context, ev *model.PaymentEvent) error {
	const q = `INSERT INTO payment_events
		(booking_id, transaction_ref, gateway, amount_cents, phase, gateway_response, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	var errMsg interface{}
	if ev.ErrorMessage != nil {
		errMsg = *ev.ErrorMessage
	}
	_, err := r.db.ExecContext(ctx, q,
		ev.BookingID, ev.TransactionRef, ev.Gateway, ev.AmountCents, ev.Phase, ev.GatewayResponse, errMsg,
	)
	return err
}
