// Package txlog records the append-only payment audit trail.  Every
// payment lifecycle phase gets exactly one row; rows are never read
// back for control flow, so a failed insert is logged and tolerated
// rather than failing the payment it describes.
package txlog

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Appender persists payment events.  Implemented by the MySQL
// payment_events repository.
type Appender interface {
	Append(ctx context.Context, ev *model.PaymentEvent) error
}

// Log writes one PaymentEvent per lifecycle phase for a booking.
type Log struct {
	store Appender
}

// New returns a Log over the given store.
func New(store Appender) *Log {
	if store == nil {
		panic("nil store passed to txlog.New")
	}
	return &Log{store: store}
}

// Initiated records that a payment was started for the booking.
func (l *Log) Initiated(ctx context.Context, b *model.Booking) {
	l.append(ctx, b, model.PhaseInitiated, "{}", nil)
}

// Completed records a successful payment with the gateway's raw
// response payload.
func (l *Log) Completed(ctx context.Context, b *model.Booking, gatewayResponse string) {
	l.append(ctx, b, model.PhaseCompleted, gatewayResponse, nil)
}

// Failed records a failed or expired payment with the reason the
// gateway (or the reaper) gave.
func (l *Log) Failed(ctx context.Context, b *model.Booking, reason, gatewayResponse string) {
	l.append(ctx, b, model.PhaseFailed, gatewayResponse, &reason)
}

func (l *Log) append(ctx context.Context, b *model.Booking, phase model.PaymentPhase, gatewayResponse string, errMsg *string) {
	if gatewayResponse == "" {
		gatewayResponse = "{}"
	}
	ev := &model.PaymentEvent{
		BookingID:       b.ID,
		TransactionRef:  b.TransactionRef,
		Gateway:         b.Gateway,
		AmountCents:     b.TotalAmountCents,
		Phase:           phase,
		GatewayResponse: gatewayResponse,
		ErrorMessage:    errMsg,
		CreatedAt:       time.Now().UTC(),
	}
	if err := l.store.Append(ctx, ev); err != nil {
		log.Printf("txlog: append %s for booking %d failed: %v", phase, b.ID, err)
	}
}
