package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/gateway"
	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/lock"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// Inventory is the seat inventory surface the ledger drives.
// Implemented by *inventory.SeatInventory.
type Inventory interface {
	Hold(ctx context.Context, eventID uint64, seatTokens []string, bookingID uint64, ttl time.Duration) ([]model.SeatHold, error)
	Finalize(ctx context.Context, eventID, bookingID uint64) error
	Release(ctx context.Context, eventID, bookingID uint64, reason inventory.ReleaseReason) (int, error)
}

// BookingStore persists bookings.  Terminal transitions are
// conditional on the booking still being AWAITING_PAYMENT and report
// whether they applied, so a racing writer can detect that it lost.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByTransactionRef(ctx context.Context, ref string) (*model.Booking, error)
	MarkConfirmed(ctx context.Context, id uint64, gatewayRef string) (bool, error)
	MarkCancelled(ctx context.Context, id uint64) (bool, error)
}

// AuditLog records payment lifecycle events.  Implemented by
// *txlog.Log; recording failures are handled inside and never surface
// here.
type AuditLog interface {
	Initiated(ctx context.Context, b *model.Booking)
	Completed(ctx context.Context, b *model.Booking, gatewayResponse string)
	Failed(ctx context.Context, b *model.Booking, reason, gatewayResponse string)
}

// Loyalty awards reward points on first confirmation.
type Loyalty interface {
	Award(ctx context.Context, userID uint64, quantity uint32)
}

// Notifier delivers the confirmation artifact to the buyer.  Failure
// to notify never reverses a confirmed booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *model.Booking)
}

// Config carries the ledger's tunables.
type Config struct {
	HoldTTL  time.Duration // how long seats stay held while payment is pending
	Currency string        // currency code stamped on new bookings
}

// InitiateParams is a buyer's purchase intent.
type InitiateParams struct {
	UserID      uint64
	EventID     uint64
	SeatTokens  []string
	AmountCents uint64
	Gateway     model.Gateway
	ProductName string // shown on the gateway's payment page
}

// PaymentIntent is what Initiate hands back to the buyer's client.
type PaymentIntent struct {
	Booking *model.Booking
	Intent  *gateway.Intent
}

// Outcome classifies a confirmation result.
type Outcome string

const (
	OutcomeConfirmed        Outcome = "CONFIRMED"
	OutcomeAlreadyConfirmed Outcome = "ALREADY_CONFIRMED"
	OutcomePending          Outcome = "PENDING"
)

// ConfirmationResult reports what a confirm call did.  Pending means
// the gateway has not settled yet: nothing changed and the caller
// should retry later.
type ConfirmationResult struct {
	Outcome Outcome
	Booking *model.Booking
	Message string
}

// Ledger is the booking state machine.  A per-booking keyed mutex
// makes Confirm, Abandon and the reaper's Expire mutually exclusive
// for the same booking: the first writer wins and later callers
// observe the terminal state and no-op.
type Ledger struct {
	cfg      Config
	store    BookingStore
	inv      Inventory
	adapters map[model.Gateway]gateway.Adapter
	audit    AuditLog
	loyalty  Loyalty
	notifier Notifier
	locks    *lock.Keyed
}

// New wires a Ledger.  loyalty and notifier may be nil; those side
// effects are then skipped.
func New(cfg Config, store BookingStore, inv Inventory, adapters map[model.Gateway]gateway.Adapter, audit AuditLog, loyalty Loyalty, notifier Notifier) *Ledger {
	if store == nil || inv == nil || audit == nil {
		panic("nil dependency passed to ledger.New")
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 5 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "NPR"
	}
	return &Ledger{
		cfg:      cfg,
		store:    store,
		inv:      inv,
		adapters: adapters,
		audit:    audit,
		loyalty:  loyalty,
		notifier: notifier,
		locks:    lock.NewKeyed(),
	}
}

// Initiate accepts a purchase intent: it holds the seats, creates the
// booking in AWAITING_PAYMENT with a fresh transaction reference,
// writes the INITIATED audit entry and asks the gateway for
// redirect/token data.  When the hold fails no booking row survives;
// the caller distinguishes "seat already taken"
// (inventory.ErrSeatConflict) from "event full"
// (inventory.ErrInsufficientCapacity).
func (l *Ledger) Initiate(ctx context.Context, p *InitiateParams) (*PaymentIntent, error) {
	tokens := dedupe(p.SeatTokens)
	if p.UserID == 0 || p.EventID == 0 || len(tokens) == 0 || p.AmountCents == 0 {
		return nil, ErrValidation
	}
	adapter, ok := l.adapters[p.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: unknown gateway %q", ErrValidation, p.Gateway)
	}

	b := &model.Booking{
		UserID:           p.UserID,
		EventID:          p.EventID,
		SeatTokens:       tokens,
		Quantity:         uint32(len(tokens)),
		TotalAmountCents: p.AmountCents,
		Currency:         l.cfg.Currency,
		Gateway:          p.Gateway,
		TransactionRef:   newTransactionRef(),
		Status:           model.BookingAwaitingPayment,
		PaymentStatus:    model.PaymentPending,
	}
	if err := l.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if _, err := l.inv.Hold(ctx, p.EventID, tokens, b.ID, l.cfg.HoldTTL); err != nil {
		// The hold is the gate: on conflict or full capacity the
		// booking row must not survive.
		if delErr := l.store.Delete(ctx, b.ID); delErr != nil {
			log.Printf("ledger: delete booking %d after failed hold: %v", b.ID, delErr)
			// The row survived; mark it CANCELLED so it cannot sit
			// in AWAITING_PAYMENT with no holds to ever expire it.
			if _, mcErr := l.store.MarkCancelled(ctx, b.ID); mcErr != nil {
				log.Printf("ledger: cancel booking %d after failed delete: %v", b.ID, mcErr)
			}
		}
		return nil, err
	}

	l.audit.Initiated(ctx, b)

	intent, err := adapter.Initiate(ctx, &gateway.InitiateRequest{
		BookingID:      b.ID,
		TransactionRef: b.TransactionRef,
		AmountCents:    b.TotalAmountCents,
		Currency:       b.Currency,
		ProductName:    p.ProductName,
	})
	if err != nil {
		// Seats must not stay blocked for a payment that never
		// started.  The booking stays for the audit trail.
		l.cancel(ctx, b, inventory.ReasonPaymentFailed, "gateway initiate failed: "+err.Error(), "")
		return nil, fmt.Errorf("gateway initiate: %w", err)
	}

	return &PaymentIntent{Booking: b, Intent: intent}, nil
}

// Confirm settles a booking from a gateway proof: a pushed callback or
// a user-initiated poll.  Replays of an already-settled confirmation
// are no-ops, even under concurrent duplicate calls.
func (l *Ledger) Confirm(ctx context.Context, bookingID uint64, proof *gateway.Proof) (*ConfirmationResult, error) {
	l.locks.Lock(bookingID)
	defer l.locks.Unlock(bookingID)
	return l.confirmLocked(ctx, bookingID, proof)
}

// ConfirmByRef resolves the booking behind a transaction reference and
// confirms it.  Callbacks identify bookings by reference, not id.
func (l *Ledger) ConfirmByRef(ctx context.Context, transactionRef string, proof *gateway.Proof) (*ConfirmationResult, error) {
	b, err := l.store.GetByTransactionRef(ctx, transactionRef)
	if err != nil {
		return nil, err
	}
	return l.Confirm(ctx, b.ID, proof)
}

func (l *Ledger) confirmLocked(ctx context.Context, bookingID uint64, proof *gateway.Proof) (*ConfirmationResult, error) {
	b, err := l.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Idempotency short-circuit: a completed payment is never
	// re-processed, no matter how many callbacks or polls replay.
	if b.PaymentStatus == model.PaymentCompleted {
		return &ConfirmationResult{Outcome: OutcomeAlreadyConfirmed, Booking: b, Message: "booking already confirmed"}, nil
	}
	if b.Status == model.BookingCancelled {
		return nil, ErrBookingCancelled
	}

	adapter, ok := l.adapters[b.Gateway]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for gateway %q", ErrValidation, b.Gateway)
	}

	// Pushed callbacks must prove their integrity before any field
	// is trusted.  A bad or missing signature leaves the booking
	// AWAITING_PAYMENT; the reaper reclaims the seats at expiry.
	if proof.Callback != nil {
		if err := adapter.AuthenticateCallback(proof.Callback); err != nil {
			return nil, err
		}
	}

	// The proof's claimed amount must match the booking exactly.
	// A mismatch is treated as fraud, not a warning.
	if proof.AmountCents != 0 && proof.AmountCents != b.TotalAmountCents {
		l.cancel(ctx, b, inventory.ReasonPaymentFailed, "amount mismatch in payment proof", "")
		return nil, ErrAmountMismatch
	}

	// Poll-mode proofs may carry only a booking id or a pidx; fill in
	// what the gateway status lookup needs from the booking itself.
	vp := *proof
	if vp.TransactionRef == "" {
		vp.TransactionRef = b.TransactionRef
	}
	if vp.AmountCents == 0 {
		vp.AmountCents = b.TotalAmountCents
	}

	verification, err := adapter.Verify(ctx, &vp)
	if err != nil {
		if errors.Is(err, gateway.ErrTransient) {
			// Gateway unreachable: leave everything as is, the
			// buyer checks back or the reaper times the hold out.
			return nil, err
		}
		return nil, fmt.Errorf("gateway verify: %w", err)
	}

	switch verification.Status {
	case gateway.StatusCompleted:
		// A completed verification must report the exact booking
		// amount.  Zero is never legitimate here (zero-amount
		// bookings are rejected at Initiate), so an absent or
		// unparseable amount fails closed too.
		if verification.AmountCents != b.TotalAmountCents {
			l.cancel(ctx, b, inventory.ReasonPaymentFailed, "amount mismatch in gateway verification", verification.Raw)
			return nil, ErrAmountMismatch
		}
		return l.complete(ctx, b, verification)

	case gateway.StatusPending:
		// No seat release: the hold keeps protecting the seats
		// until the gateway settles or the hold expires.
		return &ConfirmationResult{Outcome: OutcomePending, Booking: b, Message: verification.Reason}, nil

	default:
		l.cancel(ctx, b, inventory.ReasonPaymentFailed, verification.Reason, verification.Raw)
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, verification.Reason)
	}
}

// complete applies the one PENDING -> COMPLETED transition a booking
// ever gets: finalize holds, confirm the booking, record the audit
// entry and fire the once-only side effects.
func (l *Ledger) complete(ctx context.Context, b *model.Booking, verification *gateway.Verification) (*ConfirmationResult, error) {
	applied, err := l.store.MarkConfirmed(ctx, b.ID, verification.GatewayTxnID)
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	if !applied {
		// Another writer got there first; re-read to report what
		// actually happened.
		current, err := l.store.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus == model.PaymentCompleted {
			return &ConfirmationResult{Outcome: OutcomeAlreadyConfirmed, Booking: current, Message: "booking already confirmed"}, nil
		}
		return nil, ErrBookingCancelled
	}

	if err := l.inv.Finalize(ctx, b.EventID, b.ID); err != nil {
		// The booking is confirmed; finalize is idempotent and can
		// be retried by reconciliation.  Never roll back a paid
		// booking over this.
		log.Printf("ledger: finalize holds for booking %d: %v", b.ID, err)
	}

	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentCompleted
	if verification.GatewayTxnID != "" {
		ref := verification.GatewayTxnID
		b.GatewayPaymentRef = &ref
	}

	l.audit.Completed(ctx, b, verification.Raw)
	if l.loyalty != nil {
		l.loyalty.Award(ctx, b.UserID, b.Quantity)
	}
	if l.notifier != nil {
		l.notifier.BookingConfirmed(ctx, b)
	}

	return &ConfirmationResult{Outcome: OutcomeConfirmed, Booking: b, Message: "payment verified and booking confirmed"}, nil
}

// Abandon is the explicit user-cancel path: same release semantics as
// a gateway failure.
func (l *Ledger) Abandon(ctx context.Context, bookingID uint64) error {
	l.locks.Lock(bookingID)
	defer l.locks.Unlock(bookingID)

	b, err := l.store.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.PaymentStatus == model.PaymentCompleted {
		return ErrBookingCancelled // cannot abandon a paid booking
	}
	if b.Status == model.BookingCancelled {
		return nil // already there, no-op
	}
	l.cancel(ctx, b, inventory.ReasonAbandoned, "payment cancelled by user", "")
	return nil
}

// Expire is the reaper's entry: it cancels a booking whose hold TTL
// ran out without a confirmation, releasing the seats through the same
// path as an explicit failure.  Safe to race with Confirm: whoever
// takes the booking lock first wins, the other settles whatever holds
// the winner left behind.  Returns the number of seats released.
func (l *Ledger) Expire(ctx context.Context, bookingID uint64) (int, error) {
	l.locks.Lock(bookingID)
	defer l.locks.Unlock(bookingID)

	b, err := l.store.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if b.Terminal() {
		// A terminal booking can still own PENDING holds when the
		// inventory call failed during its transition.  The sweep
		// keeps listing it until the seats are actually settled, so
		// retry the settlement here instead of leaking capacity.
		if b.Status == model.BookingCancelled {
			released, err := l.inv.Release(ctx, b.EventID, b.ID, inventory.ReasonExpired)
			if err != nil {
				return 0, fmt.Errorf("release holds of cancelled booking %d: %w", b.ID, err)
			}
			return released, nil
		}
		if err := l.inv.Finalize(ctx, b.EventID, b.ID); err != nil {
			return 0, fmt.Errorf("finalize holds of confirmed booking %d: %w", b.ID, err)
		}
		return 0, nil
	}
	released := l.cancel(ctx, b, inventory.ReasonExpired, "hold expired before payment", "")
	return released, nil
}

// cancel moves a booking to CANCELLED/FAILED and releases its seats.
// Release failure is tolerated and logged, never escalated: the end
// state (seats free) is what matters, and the hold may legitimately be
// gone already.
func (l *Ledger) cancel(ctx context.Context, b *model.Booking, reason inventory.ReleaseReason, message, gatewayResponse string) int {
	applied, err := l.store.MarkCancelled(ctx, b.ID)
	if err != nil {
		log.Printf("ledger: cancel booking %d: %v", b.ID, err)
		return 0
	}
	if !applied {
		return 0
	}

	released, err := l.inv.Release(ctx, b.EventID, b.ID, reason)
	if err != nil {
		log.Printf("ledger: release holds for booking %d: %v", b.ID, err)
	}

	b.Status = model.BookingCancelled
	b.PaymentStatus = model.PaymentFailed
	l.audit.Failed(ctx, b, message, gatewayResponse)
	return released
}

// Get returns a booking for status display, scoped to its owner.
func (l *Ledger) Get(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := l.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// newTransactionRef generates the globally unique reference sent to
// the gateway with each payment.
func newTransactionRef() string {
	return "TXN-" + uuid.NewString()
}

// dedupe drops empty and repeated seat tokens, preserving order.
func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
