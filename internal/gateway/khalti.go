package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// Khalti payment statuses as reported by the lookup endpoint.
const (
	khaltiCompleted    = "Completed"
	khaltiPending      = "Pending"
	khaltiInitiated    = "Initiated"
	khaltiExpired      = "Expired"
	khaltiUserCanceled = "User canceled"
)

const (
	khaltiInitiatePath = "/epayment/initiate/"
	khaltiLookupPath   = "/epayment/lookup/"
)

// KhaltiConfig holds credentials and endpoints for the bearer/REST
// gateway.
type KhaltiConfig struct {
	SecretKey  string // bearer key for the Authorization header
	BaseURL    string // API base, no trailing slash
	ReturnURL  string // where the buyer lands after paying
	WebsiteURL string // merchant site, required by the initiate API
	Retry      RetryPolicy
}

// Khalti implements Adapter for the bearer-token REST gateway.  It
// computes nothing outbound; both initiate and verify are
// authenticated POSTs.  The wire amounts are already in minor units,
// so no conversion happens here.
type Khalti struct {
	cfg    KhaltiConfig
	client *http.Client
}

// NewKhalti returns a Khalti adapter.  A nil client falls back to
// http.DefaultClient.
func NewKhalti(cfg KhaltiConfig, client *http.Client) *Khalti {
	if client == nil {
		client = http.DefaultClient
	}
	return &Khalti{cfg: cfg, client: client}
}

func (k *Khalti) Name() model.Gateway { return model.GatewayKhalti }

// khaltiInitiateResponse mirrors the initiate endpoint payload.
type khaltiInitiateResponse struct {
	PIDX       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// Initiate registers the purchase with the gateway and returns the
// hosted payment URL plus the pidx used for later lookups.
func (k *Khalti) Initiate(ctx context.Context, req *InitiateRequest) (*Intent, error) {
	payload := map[string]any{
		"return_url":          k.cfg.ReturnURL,
		"website_url":         k.cfg.WebsiteURL,
		"amount":              req.AmountCents,
		"purchase_order_id":   req.TransactionRef,
		"purchase_order_name": req.ProductName,
	}

	var ir khaltiInitiateResponse
	err := k.cfg.Retry.do(ctx, func() error {
		body, err := k.post(ctx, khaltiInitiatePath, payload)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &ir)
	})
	if err != nil {
		return nil, err
	}
	if ir.PIDX == "" || ir.PaymentURL == "" {
		return nil, fmt.Errorf("khalti initiate: incomplete response")
	}

	return &Intent{
		Gateway:        model.GatewayKhalti,
		TransactionRef: req.TransactionRef,
		PaymentURL:     ir.PaymentURL,
		PIDX:           ir.PIDX,
		ExpiresAt:      ir.ExpiresAt,
	}, nil
}

// AuthenticateCallback accepts unconditionally: the return redirect
// carries no signature, and Verify's lookup call is the ground truth.
func (k *Khalti) AuthenticateCallback(fields map[string]string) error { return nil }

// khaltiLookupResponse mirrors the lookup endpoint payload.
type khaltiLookupResponse struct {
	PIDX          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	TotalAmount   uint64 `json:"total_amount"`
	Fee           uint64 `json:"fee"`
	Refunded      bool   `json:"refunded"`
}

// Verify asks the lookup endpoint for the authoritative status of a
// pidx.  Transport failures are retried; a definitive status ends the
// call.
func (k *Khalti) Verify(ctx context.Context, proof *Proof) (*Verification, error) {
	if proof.PIDX == "" {
		return nil, fmt.Errorf("khalti verify: missing pidx")
	}

	var result *Verification
	err := k.cfg.Retry.do(ctx, func() error {
		body, err := k.post(ctx, khaltiLookupPath, map[string]any{"pidx": proof.PIDX})
		if err != nil {
			return err
		}
		var lr khaltiLookupResponse
		if err := json.Unmarshal(body, &lr); err != nil {
			return fmt.Errorf("%w: decode lookup body: %v", ErrTransient, err)
		}
		result = &Verification{
			Status:       khaltiStatus(lr.Status),
			GatewayTxnID: lr.TransactionID,
			AmountCents:  lr.TotalAmount,
			Reason:       khaltiStatusMessage(lr.Status),
			Raw:          string(body),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// post sends an authenticated JSON POST and returns the response body.
// 5xx and transport errors come back wrapped in ErrTransient; 4xx is a
// hard error carrying the gateway's detail message.
func (k *Khalti) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Key "+k.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransient, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: khalti returned %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var detail struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &detail)
		msg := detail.Detail
		if msg == "" {
			msg = detail.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("khalti returned %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("khalti: %s", msg)
	}
	return body, nil
}

func khaltiStatus(s string) Status {
	switch s {
	case khaltiCompleted:
		return StatusCompleted
	case khaltiPending, khaltiInitiated:
		return StatusPending
	default:
		return StatusFailed
	}
}

func khaltiStatusMessage(s string) string {
	switch s {
	case khaltiCompleted:
		return "payment completed"
	case khaltiPending:
		return "payment is pending"
	case khaltiInitiated:
		return "payment initiated"
	case khaltiExpired:
		return "payment link expired"
	case khaltiUserCanceled:
		return "payment cancelled by user"
	default:
		return "unknown payment status: " + s
	}
}
