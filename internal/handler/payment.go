package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/gateway"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// EsewaCallback handles POST /v1/payments/esewa/callback.  eSewa
// redirects the buyer back with a base64-encoded JSON payload in a
// "data" parameter; the frontend relays it here either as
// {"data": "<base64>"} or as the decoded field set directly.  The
// fields are authenticated against the HMAC signature before anything
// is trusted, then the payment is verified against the gateway's
// status API.
func (h *BookingHandler) EsewaCallback(c echo.Context) error {
	fields, err := esewaCallbackFields(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid callback payload"})
	}
	ref := fields["transaction_uuid"]
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing transaction_uuid"})
	}

	proof := &gateway.Proof{
		Gateway:        model.GatewayEsewa,
		TransactionRef: ref,
		AmountCents:    gateway.CentsFromMajor(fields["total_amount"]),
		Callback:       fields,
	}
	res, err := h.Ledger.ConfirmByRef(c.Request().Context(), ref, proof)
	return confirmResponse(c, res, err)
}

// KhaltiCallback handles POST /v1/payments/khalti/callback.  Khalti's
// return redirect carries pidx and purchase_order_id; the callback
// fields are advisory only, so there is no signature to check and the
// outcome always comes from the lookup API.
func (h *BookingHandler) KhaltiCallback(c echo.Context) error {
	var body struct {
		PIDX            string `json:"pidx"`
		PurchaseOrderID string `json:"purchase_order_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid callback payload"})
	}
	if body.PIDX == "" {
		body.PIDX = c.QueryParam("pidx")
	}
	if body.PurchaseOrderID == "" {
		body.PurchaseOrderID = c.QueryParam("purchase_order_id")
	}
	if body.PIDX == "" || body.PurchaseOrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing pidx or purchase_order_id"})
	}

	proof := &gateway.Proof{
		Gateway:        model.GatewayKhalti,
		TransactionRef: body.PurchaseOrderID,
		PIDX:           body.PIDX,
	}
	res, err := h.Ledger.ConfirmByRef(c.Request().Context(), body.PurchaseOrderID, proof)
	return confirmResponse(c, res, err)
}

// esewaCallbackFields extracts the raw callback field set, decoding
// the base64 "data" wrapper when present.
func esewaCallbackFields(c echo.Context) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return nil, err
	}
	if enc, ok := raw["data"].(string); ok && enc != "" {
		decoded, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, err
		}
		raw = nil
		if err := json.Unmarshal(decoded, &raw); err != nil {
			return nil, err
		}
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			fields[k] = t
		default:
			fields[k] = fmt.Sprint(t)
		}
	}
	return fields, nil
}
