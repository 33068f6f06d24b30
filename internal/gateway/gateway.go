// Package gateway adapts the two external payment providers behind a
// single interface so the booking ledger never deals with
// provider-specific wire formats or currency units.  The eSewa adapter
// speaks the redirect-form protocol with an HMAC-signed field set; the
// Khalti adapter speaks bearer-authenticated REST.  All amounts cross
// the adapter boundary in minor units (paisa); each adapter converts
// to and from its provider's wire format.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ErrTransient wraps network failures and 5xx responses from a
// gateway.  Calls failing with it are retried with a fixed bounded
// attempt count; anything the gateway reports definitively (failed,
// cancelled, expired) is terminal and never retried.
var ErrTransient = errors.New("transient gateway error")

// ErrMissingSignature is returned when a signed callback arrives
// without a signature or without the signed field list.  Always a hard
// rejection.
var ErrMissingSignature = errors.New("callback missing signature or signed field names")

// ErrBadSignature is returned when a callback signature does not match
// the recomputed HMAC.
var ErrBadSignature = errors.New("callback signature mismatch")

// Status is the normalized payment status every adapter reports.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
)

// InitiateRequest carries everything an adapter needs to start a
// payment for a booking.
type InitiateRequest struct {
	BookingID      uint64
	TransactionRef string
	AmountCents    uint64
	Currency       string
	ProductName    string
}

// Intent is what the buyer's client needs to continue the payment:
// either a signed form to POST at the redirect gateway, or a hosted
// payment URL from the REST gateway.
type Intent struct {
	Gateway        model.Gateway
	TransactionRef string
	PaymentURL     string
	FormParams     map[string]string // eSewa: full signed field set
	PIDX           string            // Khalti: payment index for lookup
	ExpiresAt      string            // Khalti: link expiry, RFC3339
}

// Proof is the evidence of a payment outcome presented to Verify.  It
// comes either from a gateway callback (Callback holds the raw fields,
// signature included) or from a user-initiated poll (Callback is nil).
type Proof struct {
	Gateway        model.Gateway
	TransactionRef string
	PIDX           string
	AmountCents    uint64            // amount the proof claims, minor units; 0 when absent
	Callback       map[string]string // raw callback fields, nil for polls
}

// Verification is the gateway's ground truth for a payment, with the
// amount normalized back into minor units.
type Verification struct {
	Status       Status
	GatewayTxnID string
	AmountCents  uint64
	Reason       string // human-readable status message
	Raw          string // opaque gateway payload, recorded in the audit trail
}

// Adapter is implemented once per gateway family.
type Adapter interface {
	// Name returns the gateway tag this adapter serves.
	Name() model.Gateway

	// Initiate starts a payment and returns redirect/token data for
	// the buyer's client.
	Initiate(ctx context.Context, req *InitiateRequest) (*Intent, error)

	// AuthenticateCallback checks the integrity of a pushed
	// callback before its fields are trusted.  Gateways without a
	// signed callback accept unconditionally; their Verify step is
	// the ground truth.
	AuthenticateCallback(fields map[string]string) error

	// Verify asks the gateway for the authoritative payment status.
	Verify(ctx context.Context, proof *Proof) (*Verification, error)
}

// RetryPolicy bounds how adapters retry transient failures: a fixed
// attempt count with a fixed delay between attempts, mirroring the
// eventually-consistent status reads both providers document.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// do runs fn up to p.Attempts times, sleeping p.Delay between
// attempts, and retries only while the error is transient.
func (p RetryPolicy) do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !errors.Is(lastErr, ErrTransient) {
			return lastErr
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}
	}
	return lastErr
}
