package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/gateway"
	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// fakeStore is an in-memory BookingStore with the same conditional
// transition semantics as the MySQL repository.
type fakeStore struct {
	mu        sync.Mutex
	nextID    uint64
	deleteErr error
	rows      map[uint64]*model.Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[uint64]*model.Booking{}}
}

func (s *fakeStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID = s.nextID
	cp := *b
	s.rows[b.ID] = &cp
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) GetByTransactionRef(_ context.Context, ref string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.TransactionRef == ref {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (s *fakeStore) MarkConfirmed(_ context.Context, id uint64, gatewayRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok || b.Status != model.BookingAwaitingPayment {
		return false, nil
	}
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentCompleted
	if gatewayRef != "" {
		ref := gatewayRef
		b.GatewayPaymentRef = &ref
	}
	return true, nil
}

func (s *fakeStore) MarkCancelled(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok || b.Status != model.BookingAwaitingPayment {
		return false, nil
	}
	b.Status = model.BookingCancelled
	b.PaymentStatus = model.PaymentFailed
	return true, nil
}

// fakeInventory records calls; errors are injectable per method.
type fakeInventory struct {
	mu          sync.Mutex
	holdErr     error
	finalizeErr error
	releaseErr  error
	holds       int
	finalized   int
	released    int
	reasons     []inventory.ReleaseReason
}

func (f *fakeInventory) Hold(_ context.Context, eventID uint64, tokens []string, bookingID uint64, _ time.Duration) ([]model.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holdErr != nil {
		return nil, f.holdErr
	}
	f.holds++
	out := make([]model.SeatHold, len(tokens))
	for i, tok := range tokens {
		out[i] = model.SeatHold{EventID: eventID, SeatToken: tok, BookingID: bookingID, State: model.HoldPending}
	}
	return out, nil
}

func (f *fakeInventory) Finalize(_ context.Context, _, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalized++
	return nil
}

func (f *fakeInventory) Release(_ context.Context, _, _ uint64, reason inventory.ReleaseReason) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return 0, f.releaseErr
	}
	f.released++
	f.reasons = append(f.reasons, reason)
	return 1, nil
}

// fakeAdapter scripts gateway behavior per test.
type fakeAdapter struct {
	name        model.Gateway
	initiateErr error
	authErr     error
	verify      *gateway.Verification
	verifyErr   error

	mu          sync.Mutex
	verifyCalls int
}

func (a *fakeAdapter) Name() model.Gateway { return a.name }

func (a *fakeAdapter) Initiate(_ context.Context, req *gateway.InitiateRequest) (*gateway.Intent, error) {
	if a.initiateErr != nil {
		return nil, a.initiateErr
	}
	return &gateway.Intent{Gateway: a.name, TransactionRef: req.TransactionRef, PaymentURL: "https://pay.example/" + req.TransactionRef}, nil
}

func (a *fakeAdapter) AuthenticateCallback(map[string]string) error { return a.authErr }

func (a *fakeAdapter) Verify(_ context.Context, _ *gateway.Proof) (*gateway.Verification, error) {
	a.mu.Lock()
	a.verifyCalls++
	a.mu.Unlock()
	if a.verifyErr != nil {
		return nil, a.verifyErr
	}
	return a.verify, nil
}

// recorder tracks side effects that must fire exactly once.
type recorder struct {
	mu        sync.Mutex
	initiated int
	completed int
	failed    []string
	awards    []uint32
	notified  int
}

func (r *recorder) Initiated(_ context.Context, _ *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initiated++
}

func (r *recorder) Completed(_ context.Context, _ *model.Booking, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder) Failed(_ context.Context, _ *model.Booking, reason, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, reason)
}

func (r *recorder) Award(_ context.Context, _ uint64, quantity uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.awards = append(r.awards, quantity)
}

func (r *recorder) BookingConfirmed(_ context.Context, _ *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified++
}

type fixture struct {
	ledger  *Ledger
	store   *fakeStore
	inv     *fakeInventory
	adapter *fakeAdapter
	rec     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	inv := &fakeInventory{}
	adapter := &fakeAdapter{name: model.GatewayKhalti}
	rec := &recorder{}
	led := New(Config{HoldTTL: 5 * time.Minute, Currency: "NPR"},
		store, inv, map[model.Gateway]gateway.Adapter{model.GatewayKhalti: adapter}, rec, rec, rec)
	return &fixture{ledger: led, store: store, inv: inv, adapter: adapter, rec: rec}
}

func initiated(t *testing.T, f *fixture) *model.Booking {
	t.Helper()
	pi, err := f.ledger.Initiate(context.Background(), &InitiateParams{
		UserID:      7,
		EventID:     1,
		SeatTokens:  []string{"A1", "A2"},
		AmountCents: 20000,
		Gateway:     model.GatewayKhalti,
		ProductName: "Concert",
	})
	require.NoError(t, err)
	return pi.Booking
}

func TestInitiate_CreatesAwaitingPaymentBooking(t *testing.T) {
	f := newFixture(t)

	pi, err := f.ledger.Initiate(context.Background(), &InitiateParams{
		UserID:      7,
		EventID:     1,
		SeatTokens:  []string{"A1", "A1", "A2"}, // duplicate collapses
		AmountCents: 20000,
		Gateway:     model.GatewayKhalti,
	})

	require.NoError(t, err)
	b := pi.Booking
	assert.Equal(t, model.BookingAwaitingPayment, b.Status)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, uint32(2), b.Quantity)
	assert.Equal(t, []string{"A1", "A2"}, b.SeatTokens)
	assert.NotEmpty(t, b.TransactionRef)
	assert.NotEmpty(t, pi.Intent.PaymentURL)
	assert.Equal(t, 1, f.rec.initiated)
	assert.Equal(t, 1, f.inv.holds)
}

func TestInitiate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Initiate(context.Background(), &InitiateParams{UserID: 7, EventID: 1, AmountCents: 100, Gateway: model.GatewayKhalti})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.ledger.Initiate(context.Background(), &InitiateParams{UserID: 7, EventID: 1, SeatTokens: []string{"A1"}, AmountCents: 100, Gateway: "paypal"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInitiate_SeatConflictLeavesNoBooking(t *testing.T) {
	f := newFixture(t)
	f.inv.holdErr = inventory.ErrSeatConflict

	_, err := f.ledger.Initiate(context.Background(), &InitiateParams{
		UserID:      7,
		EventID:     1,
		SeatTokens:  []string{"A1"},
		AmountCents: 10000,
		Gateway:     model.GatewayKhalti,
	})

	require.ErrorIs(t, err, inventory.ErrSeatConflict)
	assert.Empty(t, f.store.rows)
	assert.Equal(t, 0, f.rec.initiated)
}

func TestInitiate_FailedCompensationCancelsOrphanBooking(t *testing.T) {
	f := newFixture(t)
	f.inv.holdErr = inventory.ErrSeatConflict
	f.store.deleteErr = errors.New("db unavailable")

	_, err := f.ledger.Initiate(context.Background(), &InitiateParams{
		UserID:      7,
		EventID:     1,
		SeatTokens:  []string{"A1"},
		AmountCents: 10000,
		Gateway:     model.GatewayKhalti,
	})

	require.ErrorIs(t, err, inventory.ErrSeatConflict)
	// The row could not be deleted; it must not linger in
	// AWAITING_PAYMENT with no holds for the sweep to find.
	require.Len(t, f.store.rows, 1)
	for _, b := range f.store.rows {
		assert.Equal(t, model.BookingCancelled, b.Status)
	}
}

func TestInitiate_GatewayFailureReleasesSeats(t *testing.T) {
	f := newFixture(t)
	f.adapter.initiateErr = gateway.ErrTransient

	_, err := f.ledger.Initiate(context.Background(), &InitiateParams{
		UserID:      7,
		EventID:     1,
		SeatTokens:  []string{"A1"},
		AmountCents: 10000,
		Gateway:     model.GatewayKhalti,
	})

	require.Error(t, err)
	assert.Equal(t, 1, f.inv.released)
	// The booking row survives cancelled, for the audit trail.
	require.Len(t, f.store.rows, 1)
	for _, b := range f.store.rows {
		assert.Equal(t, model.BookingCancelled, b.Status)
	}
}

func TestConfirm_CompletedPaymentConfirmsBooking(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, GatewayTxnID: "GW-1", AmountCents: 20000}

	res, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{PIDX: "px1"})

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	assert.Equal(t, model.PaymentCompleted, res.Booking.PaymentStatus)
	require.NotNil(t, res.Booking.GatewayPaymentRef)
	assert.Equal(t, "GW-1", *res.Booking.GatewayPaymentRef)
	assert.Equal(t, 1, f.inv.finalized)
	assert.Equal(t, 1, f.rec.completed)
	assert.Equal(t, []uint32{2}, f.rec.awards)
	assert.Equal(t, 1, f.rec.notified)
}

func TestConfirm_ReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, GatewayTxnID: "GW-1", AmountCents: 20000}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	require.NoError(t, err)

	res, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, res.Outcome)

	// Side effects fired exactly once.
	assert.Equal(t, 1, f.inv.finalized)
	assert.Equal(t, 1, f.rec.completed)
	assert.Len(t, f.rec.awards, 1)
	assert.Equal(t, 1, f.rec.notified)
	// The replay never re-verified with the gateway.
	assert.Equal(t, 1, f.adapter.verifyCalls)
}

func TestConfirm_ConcurrentDuplicatesAwardOnce(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, GatewayTxnID: "GW-1", AmountCents: 20000}

	const callers = 16
	var wg sync.WaitGroup
	outcomes := make([]Outcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
			errs[n] = err
			if err == nil {
				outcomes[n] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for i, o := range outcomes {
		require.NoError(t, errs[i])
		if o == OutcomeConfirmed {
			confirmed++
		} else {
			assert.Equal(t, OutcomeAlreadyConfirmed, o)
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, f.inv.finalized)
	assert.Len(t, f.rec.awards, 1)
	assert.Equal(t, 1, f.rec.notified)
}

func TestConfirm_BadCallbackSignatureLeavesBookingOpen(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.authErr = gateway.ErrBadSignature

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{Callback: map[string]string{"signature": "forged"}})

	require.ErrorIs(t, err, gateway.ErrBadSignature)
	got, err := f.store.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingAwaitingPayment, got.Status)
	assert.Equal(t, 0, f.inv.released)
	assert.Equal(t, 0, f.adapter.verifyCalls)
}

func TestConfirm_ProofAmountMismatchCancels(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{AmountCents: 19999})

	require.ErrorIs(t, err, ErrAmountMismatch)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, model.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, 1, f.inv.released)
	assert.Equal(t, 0, f.adapter.verifyCalls)
}

func TestConfirm_VerificationAmountMismatchCancels(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 100}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})

	require.ErrorIs(t, err, ErrAmountMismatch)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, 1, f.inv.released)
}

func TestConfirm_MissingVerificationAmountFailsClosed(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	// A completed verification that carries no amount (absent or
	// unparseable in the gateway response) must not confirm.
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, GatewayTxnID: "GW-1", AmountCents: 0}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})

	require.ErrorIs(t, err, ErrAmountMismatch)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, model.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, 1, f.inv.released)
	assert.Equal(t, 0, f.inv.finalized)
	assert.Empty(t, f.rec.awards)
}

func TestConfirm_PendingReleasesNothing(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusPending, Reason: "not settled yet"}

	res, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})

	require.NoError(t, err)
	assert.Equal(t, OutcomePending, res.Outcome)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingAwaitingPayment, got.Status)
	assert.Equal(t, 0, f.inv.released)
	assert.Equal(t, 0, f.inv.finalized)
}

func TestConfirm_TransientVerifyKeepsHold(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verifyErr = gateway.ErrTransient

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})

	require.ErrorIs(t, err, gateway.ErrTransient)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingAwaitingPayment, got.Status)
	assert.Equal(t, 0, f.inv.released)
}

func TestConfirm_FailedVerificationCancels(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusFailed, Reason: "declined"}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})

	require.ErrorIs(t, err, ErrPaymentFailed)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, 1, f.inv.released)
	assert.Equal(t, []inventory.ReleaseReason{inventory.ReasonPaymentFailed}, f.inv.reasons)
}

func TestConfirmByRef_ResolvesBooking(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 20000}

	res, err := f.ledger.ConfirmByRef(context.Background(), b.TransactionRef, &gateway.Proof{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)

	_, err = f.ledger.ConfirmByRef(context.Background(), "TXN-unknown", &gateway.Proof{})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestAbandon_ReleasesAndCancels(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)

	require.NoError(t, f.ledger.Abandon(context.Background(), b.ID))

	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, []inventory.ReleaseReason{inventory.ReasonAbandoned}, f.inv.reasons)

	// Abandoning again is a no-op.
	require.NoError(t, f.ledger.Abandon(context.Background(), b.ID))
	assert.Equal(t, 1, f.inv.released)
}

func TestAbandon_RejectsPaidBooking(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 20000}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.Abandon(context.Background(), b.ID), ErrBookingCancelled)
}

func TestExpire_ReleasesExpiredBooking(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)

	released, err := f.ledger.Expire(context.Background(), b.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, released)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingCancelled, got.Status)
	assert.Equal(t, []inventory.ReleaseReason{inventory.ReasonExpired}, f.inv.reasons)
}

func TestExpire_ConfirmedBookingReleasesNothing(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 20000}

	_, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	require.NoError(t, err)

	released, err := f.ledger.Expire(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, 0, f.inv.released)
	got, _ := f.store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BookingConfirmed, got.Status)
}

func TestExpire_CancelledBookingWithStuckHoldsReleases(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)

	// The release fails mid-cancel; the booking goes CANCELLED but its
	// holds stay PENDING and keep blocking the seats.
	f.inv.releaseErr = errors.New("inventory unavailable")
	require.NoError(t, f.ledger.Abandon(context.Background(), b.ID))
	got, _ := f.store.GetByID(context.Background(), b.ID)
	require.Equal(t, model.BookingCancelled, got.Status)
	require.Equal(t, 0, f.inv.released)

	// The next sweep must settle them instead of skipping the
	// terminal booking.
	f.inv.releaseErr = nil
	released, err := f.ledger.Expire(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assert.Equal(t, []inventory.ReleaseReason{inventory.ReasonExpired}, f.inv.reasons)
}

func TestExpire_ConfirmedBookingWithStuckHoldsFinalizes(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 20000}

	// Finalize fails during confirmation; the booking is CONFIRMED but
	// its holds stay PENDING and expire into the sweep.
	f.inv.finalizeErr = errors.New("inventory unavailable")
	res, err := f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, res.Outcome)
	require.Equal(t, 0, f.inv.finalized)

	f.inv.finalizeErr = nil
	released, err := f.ledger.Expire(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
	assert.Equal(t, 1, f.inv.finalized)
	assert.Equal(t, 0, f.inv.released)
}

func TestExpire_VersusConfirmFirstWriterWins(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)
	f.adapter.verify = &gateway.Verification{Status: gateway.StatusCompleted, AmountCents: 20000}

	var wg sync.WaitGroup
	var confirmRes *ConfirmationResult
	var confirmErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		confirmRes, confirmErr = f.ledger.Confirm(context.Background(), b.ID, &gateway.Proof{})
	}()
	go func() {
		defer wg.Done()
		_, _ = f.ledger.Expire(context.Background(), b.ID)
	}()
	wg.Wait()

	got, _ := f.store.GetByID(context.Background(), b.ID)
	require.True(t, got.Terminal())
	if got.Status == model.BookingConfirmed {
		require.NoError(t, confirmErr)
		assert.Equal(t, OutcomeConfirmed, confirmRes.Outcome)
		assert.Equal(t, 0, f.inv.released)
	} else {
		// The reaper won; the late confirmation observed the
		// cancelled booking instead of reviving it.
		assert.ErrorIs(t, confirmErr, ErrBookingCancelled)
		assert.Equal(t, 0, f.inv.finalized)
		assert.Empty(t, f.rec.awards)
	}
}

func TestGet_ScopedToOwner(t *testing.T) {
	f := newFixture(t)
	b := initiated(t, f)

	got, err := f.ledger.Get(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.ledger.Get(context.Background(), b.ID, 8)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
