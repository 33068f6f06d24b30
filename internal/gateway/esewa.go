package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// eSewa payment statuses as reported by the status endpoint.
const (
	esewaComplete  = "COMPLETE"
	esewaPending   = "PENDING"
	esewaCanceled  = "CANCELED"
	esewaNotFound  = "NOT_FOUND"
	esewaAmbiguous = "AMBIGUOUS"
)

// esewaSignedFields is the ordered field list signed on the outbound
// payment form.
const esewaSignedFields = "total_amount,transaction_uuid,product_code"

// EsewaConfig holds merchant credentials and endpoints for the
// redirect-form gateway.
type EsewaConfig struct {
	ProductCode string // merchant code, the product_code form field
	SecretKey   string // HMAC secret shared with the gateway
	PaymentURL  string // form POST target shown to the buyer
	StatusURL   string // transaction status endpoint
	SuccessURL  string // where the gateway redirects on success
	FailureURL  string // where the gateway redirects on failure
	Retry       RetryPolicy
}

// Esewa implements Adapter for the redirect-form gateway.  Outbound it
// signs an ordered field list; inbound its status read is eventually
// consistent, so Verify polls with bounded retries.
type Esewa struct {
	cfg      EsewaConfig
	client   *http.Client
	verifier *SignatureVerifier
}

// NewEsewa returns an eSewa adapter.  A nil client falls back to
// http.DefaultClient.
func NewEsewa(cfg EsewaConfig, client *http.Client) *Esewa {
	if client == nil {
		client = http.DefaultClient
	}
	return &Esewa{cfg: cfg, client: client, verifier: NewSignatureVerifier(cfg.SecretKey)}
}

func (e *Esewa) Name() model.Gateway { return model.GatewayEsewa }

// Initiate builds the signed form parameter set the buyer's browser
// POSTs to the gateway.  The amount breakdown (85% base, 13% tax, 2%
// service charge) follows the merchant agreement; the signature covers
// total_amount, transaction_uuid and product_code in that order.
func (e *Esewa) Initiate(ctx context.Context, req *InitiateRequest) (*Intent, error) {
	total := majorUnits(req.AmountCents)
	base := majorUnits(req.AmountCents * 85 / 100)
	tax := majorUnits(req.AmountCents * 13 / 100)
	service := majorUnits(req.AmountCents * 2 / 100)

	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		total, req.TransactionRef, e.cfg.ProductCode)

	params := map[string]string{
		"amount":                  base,
		"tax_amount":              tax,
		"total_amount":            total,
		"transaction_uuid":        req.TransactionRef,
		"product_code":            e.cfg.ProductCode,
		"product_service_charge":  service,
		"product_delivery_charge": "0",
		"success_url":             e.cfg.SuccessURL,
		"failure_url":             e.cfg.FailureURL,
		"signed_field_names":      esewaSignedFields,
		"signature":               e.verifier.Sign(message),
	}

	return &Intent{
		Gateway:        model.GatewayEsewa,
		TransactionRef: req.TransactionRef,
		PaymentURL:     e.cfg.PaymentURL,
		FormParams:     params,
	}, nil
}

// AuthenticateCallback checks the HMAC on a pushed callback.
func (e *Esewa) AuthenticateCallback(fields map[string]string) error {
	return e.verifier.VerifyCallback(fields)
}

// esewaStatusResponse mirrors the status endpoint payload.
type esewaStatusResponse struct {
	Status          string          `json:"status"`
	RefID           string          `json:"ref_id"`
	TransactionUUID string          `json:"transaction_uuid"`
	TotalAmount     json.Number     `json:"total_amount"`
	ProductCode     string          `json:"product_code"`
	Raw             json.RawMessage `json:"-"`
}

// Verify polls the status endpoint until it gets a decodable answer or
// runs out of attempts.  Only transport-level failures are retried; a
// definitive gateway status ends the poll immediately.
func (e *Esewa) Verify(ctx context.Context, proof *Proof) (*Verification, error) {
	q := url.Values{}
	q.Set("product_code", e.cfg.ProductCode)
	q.Set("total_amount", majorUnits(proof.AmountCents))
	q.Set("transaction_uuid", proof.TransactionRef)
	statusURL := e.cfg.StatusURL + "?" + q.Encode()

	var result *Verification
	err := e.cfg.Retry.do(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read status body: %v", ErrTransient, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status endpoint returned %d", ErrTransient, resp.StatusCode)
		}

		var sr esewaStatusResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return fmt.Errorf("%w: decode status body: %v", ErrTransient, err)
		}
		if sr.Status == "" {
			return fmt.Errorf("%w: status missing in response", ErrTransient)
		}

		result = &Verification{
			Status:       esewaStatus(sr.Status),
			GatewayTxnID: sr.RefID,
			AmountCents:  CentsFromMajor(sr.TotalAmount.String()),
			Reason:       esewaStatusMessage(sr.Status),
			Raw:          string(body),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// esewaStatus maps a gateway status string onto the normalized set.
// AMBIGUOUS and NOT_FOUND are treated as failures so the seats go back
// on sale; a refund dispute is handled out of band.
func esewaStatus(s string) Status {
	switch s {
	case esewaComplete:
		return StatusCompleted
	case esewaPending:
		return StatusPending
	default:
		return StatusFailed
	}
}

func esewaStatusMessage(s string) string {
	switch s {
	case esewaComplete:
		return "payment completed"
	case esewaPending:
		return "payment is being processed"
	case esewaNotFound:
		return "payment not found or expired"
	case esewaCanceled:
		return "payment was cancelled"
	case esewaAmbiguous:
		return "payment status unclear"
	default:
		return "unknown payment status: " + s
	}
}

// majorUnits renders a minor-unit amount the way the form protocol
// expects: whole numbers without decimals, fractions with two.
func majorUnits(cents uint64) string {
	if cents%100 == 0 {
		return strconv.FormatUint(cents/100, 10)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// CentsFromMajor parses a major-unit decimal string (possibly with
// thousands separators, which the status endpoint emits) into minor
// units.  Unparseable input yields 0 and the amount check upstream
// fails closed.
func CentsFromMajor(s string) uint64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0
	}
	cents := n * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0
		}
		cents += f
	}
	return cents
}
