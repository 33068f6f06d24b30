package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func esewaTestConfig(statusURL string) EsewaConfig {
	return EsewaConfig{
		ProductCode: "EPAYTEST",
		SecretKey:   "8gBm/:&EnhH.1/q",
		PaymentURL:  "https://rc-epay.example/form",
		StatusURL:   statusURL,
		SuccessURL:  "https://merchant.example/success",
		FailureURL:  "https://merchant.example/failure",
		Retry:       RetryPolicy{Attempts: 3, Delay: time.Millisecond},
	}
}

func TestEsewaInitiate_BuildsSignedForm(t *testing.T) {
	e := NewEsewa(esewaTestConfig(""), nil)

	intent, err := e.Initiate(context.Background(), &InitiateRequest{
		TransactionRef: "TXN-abc",
		AmountCents:    100000, // 1000.00 in major units
		Currency:       "NPR",
	})

	require.NoError(t, err)
	p := intent.FormParams
	assert.Equal(t, "1000", p["total_amount"])
	assert.Equal(t, "850", p["amount"])
	assert.Equal(t, "130", p["tax_amount"])
	assert.Equal(t, "20", p["product_service_charge"])
	assert.Equal(t, "0", p["product_delivery_charge"])
	assert.Equal(t, "TXN-abc", p["transaction_uuid"])
	assert.Equal(t, "EPAYTEST", p["product_code"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", p["signed_field_names"])
	assert.Equal(t, "https://rc-epay.example/form", intent.PaymentURL)

	// The signature must cover exactly the named fields in order.
	v := NewSignatureVerifier("8gBm/:&EnhH.1/q")
	want := v.Sign("total_amount=1000,transaction_uuid=TXN-abc,product_code=EPAYTEST")
	assert.Equal(t, want, p["signature"])

	// The form must round-trip through callback authentication.
	assert.NoError(t, e.AuthenticateCallback(p))
}

func TestEsewaAuthenticateCallback_RejectsTampering(t *testing.T) {
	e := NewEsewa(esewaTestConfig(""), nil)
	v := NewSignatureVerifier("8gBm/:&EnhH.1/q")

	fields := map[string]string{
		"total_amount":       "1000",
		"transaction_uuid":   "TXN-abc",
		"product_code":       "EPAYTEST",
		"signed_field_names": "total_amount,transaction_uuid,product_code",
	}
	fields["signature"] = v.Sign("total_amount=1000,transaction_uuid=TXN-abc,product_code=EPAYTEST")
	require.NoError(t, e.AuthenticateCallback(fields))

	fields["total_amount"] = "1" // pay one rupee, claim a thousand
	assert.ErrorIs(t, e.AuthenticateCallback(fields), ErrBadSignature)

	fields["total_amount"] = "1000"
	delete(fields, "signature")
	assert.ErrorIs(t, e.AuthenticateCallback(fields), ErrMissingSignature)

	fields["signature"] = v.Sign("total_amount=1000,transaction_uuid=TXN-abc,product_code=EPAYTEST")
	delete(fields, "signed_field_names")
	assert.ErrorIs(t, e.AuthenticateCallback(fields), ErrMissingSignature)
}

func TestEsewaVerify_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "TXN-abc", r.URL.Query().Get("transaction_uuid"))
		assert.Equal(t, "EPAYTEST", r.URL.Query().Get("product_code"))
		json.NewEncoder(w).Encode(map[string]any{
			"status":           "COMPLETE",
			"ref_id":           "0001AB",
			"transaction_uuid": "TXN-abc",
			"total_amount":     "1,000.0",
		})
	}))
	defer srv.Close()

	e := NewEsewa(esewaTestConfig(srv.URL), srv.Client())
	res, err := e.Verify(context.Background(), &Proof{TransactionRef: "TXN-abc", AmountCents: 100000})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "0001AB", res.GatewayTxnID)
	assert.Equal(t, uint64(100000), res.AmountCents)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEsewaVerify_BoundedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewEsewa(esewaTestConfig(srv.URL), srv.Client())
	_, err := e.Verify(context.Background(), &Proof{TransactionRef: "TXN-abc", AmountCents: 100000})

	require.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEsewaVerify_DefinitiveStatusStopsPolling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"status": "CANCELED", "total_amount": "1000"})
	}))
	defer srv.Close()

	e := NewEsewa(esewaTestConfig(srv.URL), srv.Client())
	res, err := e.Verify(context.Background(), &Proof{TransactionRef: "TXN-abc", AmountCents: 100000})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEsewaStatusMapping(t *testing.T) {
	assert.Equal(t, StatusCompleted, esewaStatus("COMPLETE"))
	assert.Equal(t, StatusPending, esewaStatus("PENDING"))
	assert.Equal(t, StatusFailed, esewaStatus("NOT_FOUND"))
	assert.Equal(t, StatusFailed, esewaStatus("AMBIGUOUS"))
	assert.Equal(t, StatusFailed, esewaStatus("CANCELED"))
}

func TestMajorUnits(t *testing.T) {
	assert.Equal(t, "1000", majorUnits(100000))
	assert.Equal(t, "10.50", majorUnits(1050))
	assert.Equal(t, "0.05", majorUnits(5))
	assert.Equal(t, "0", majorUnits(0))
}

func TestCentsFromMajor(t *testing.T) {
	assert.Equal(t, uint64(100000), CentsFromMajor("1000"))
	assert.Equal(t, uint64(100000), CentsFromMajor("1,000.0"))
	assert.Equal(t, uint64(1050), CentsFromMajor("10.5"))
	assert.Equal(t, uint64(1055), CentsFromMajor("10.55"))
	assert.Equal(t, uint64(0), CentsFromMajor(""))
	assert.Equal(t, uint64(0), CentsFromMajor("garbage"))
}
