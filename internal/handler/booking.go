package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/gateway"
	"github.com/iliyamo/event-ticketing/internal/inventory"
	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// BookingLedger is the ledger surface the HTTP layer drives.
// Implemented by *ledger.Ledger.
type BookingLedger interface {
	Initiate(ctx context.Context, p *ledger.InitiateParams) (*ledger.PaymentIntent, error)
	Confirm(ctx context.Context, bookingID uint64, proof *gateway.Proof) (*ledger.ConfirmationResult, error)
	ConfirmByRef(ctx context.Context, transactionRef string, proof *gateway.Proof) (*ledger.ConfirmationResult, error)
	Abandon(ctx context.Context, bookingID uint64) error
	Get(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
}

// Sweeper runs one expired-hold sweep on demand.  Implemented by
// *reaper.Reaper.
type Sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

// BookingHandler serves the booking lifecycle: initiation, payment
// confirmation (callback or poll), abandonment and status.  JWT
// authentication is performed by middleware on every route except the
// gateway callbacks, which authenticate cryptographically instead.
type BookingHandler struct {
	Ledger  BookingLedger
	Sweeper Sweeper
}

// NewBookingHandler constructs a BookingHandler.  sweeper may be nil;
// the manual sweep endpoint then reports 503.
func NewBookingHandler(l BookingLedger, sweeper Sweeper) *BookingHandler {
	if l == nil {
		panic("nil ledger passed to NewBookingHandler")
	}
	return &BookingHandler{Ledger: l, Sweeper: sweeper}
}

// Initiate handles POST /v1/bookings.  The body names the event, the
// seat tokens, the expected total in minor units and the gateway.  On
// success it returns 201 with the booking and the gateway redirect
// data (signed form fields for eSewa, a hosted payment URL for
// Khalti).  A seat already held or sold yields 409; an event without
// enough free capacity yields 422.
func (h *BookingHandler) Initiate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventID     uint64   `json:"event_id"`
		SeatTokens  []string `json:"seat_tokens"`
		AmountCents uint64   `json:"amount_cents"`
		Gateway     string   `json:"gateway"`
		ProductName string   `json:"product_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	intent, err := h.Ledger.Initiate(c.Request().Context(), &ledger.InitiateParams{
		UserID:      userID,
		EventID:     body.EventID,
		SeatTokens:  body.SeatTokens,
		AmountCents: body.AmountCents,
		Gateway:     model.Gateway(body.Gateway),
		ProductName: body.ProductName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, inventory.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, inventory.ErrSeatConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "one or more seats are already taken"})
		case errors.Is(err, inventory.ErrInsufficientCapacity):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event does not have enough free seats"})
		case errors.Is(err, gateway.ErrTransient):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not initiate booking"})
		}
	}

	payment := echo.Map{"gateway": intent.Intent.Gateway}
	if intent.Intent.PaymentURL != "" {
		payment["payment_url"] = intent.Intent.PaymentURL
	}
	if intent.Intent.FormParams != nil {
		payment["form_params"] = intent.Intent.FormParams
	}
	if intent.Intent.PIDX != "" {
		payment["pidx"] = intent.Intent.PIDX
	}
	if intent.Intent.ExpiresAt != "" {
		payment["expires_at"] = intent.Intent.ExpiresAt
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking": bookingJSON(intent.Booking),
		"payment": payment,
	})
}

// Confirm handles POST /v1/bookings/:id/confirm, the user-initiated
// poll path.  The body may carry a Khalti pidx captured from the
// return redirect; for eSewa the booking's own transaction reference
// drives the status lookup.  Replaying a settled confirmation returns
// 200 without side effects.
func (h *BookingHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	// Ownership gate before touching payment state.
	b, err := h.Ledger.Get(c.Request().Context(), id, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	var body struct {
		PIDX string `json:"pidx"`
	}
	_ = c.Bind(&body) // body is optional
	if b.Gateway == model.GatewayKhalti && body.PIDX == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pidx is required"})
	}

	res, err := h.Ledger.Confirm(c.Request().Context(), id, &gateway.Proof{PIDX: body.PIDX})
	return confirmResponse(c, res, err)
}

// Abandon handles POST /v1/bookings/:id/abandon: the buyer gives up on
// the payment and the seats go back on sale immediately instead of
// waiting out the hold.
func (h *BookingHandler) Abandon(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if _, err := h.Ledger.Get(c.Request().Context(), id, userID); err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	if err := h.Ledger.Abandon(c.Request().Context(), id); err != nil {
		if errors.Is(err, ledger.ErrBookingCancelled) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is already paid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not abandon booking"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/bookings/:id and returns the booking status,
// scoped to its owner.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Ledger.Get(c.Request().Context(), id, userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, bookingJSON(b))
}

// RunSweep handles POST /v1/admin/reaper/run (OWNER role): one manual
// expired-hold sweep, returning how many seats were released.
func (h *BookingHandler) RunSweep(c echo.Context) error {
	if h.Sweeper == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "reaper not configured"})
	}
	released, err := h.Sweeper.RunOnce(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed", "released": released})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// confirmResponse maps a confirmation result or error onto HTTP.  The
// pending outcomes (gateway not settled, gateway unreachable) share
// 202: nothing changed and the caller should retry.
func confirmResponse(c echo.Context, res *ledger.ConfirmationResult, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, ledger.ErrBookingCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking has been cancelled"})
		case errors.Is(err, ledger.ErrAmountMismatch),
			errors.Is(err, gateway.ErrBadSignature),
			errors.Is(err, gateway.ErrMissingSignature):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment verification failed"})
		case errors.Is(err, ledger.ErrPaymentFailed):
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed"})
		case errors.Is(err, gateway.ErrTransient):
			return c.JSON(http.StatusAccepted, echo.Map{
				"status":  ledger.OutcomePending,
				"message": "payment gateway unavailable, retry shortly",
			})
		case errors.Is(err, ledger.ErrValidation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not confirm payment"})
		}
	}
	if res.Outcome == ledger.OutcomePending {
		return c.JSON(http.StatusAccepted, echo.Map{
			"status":  res.Outcome,
			"message": res.Message,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  res.Outcome,
		"message": res.Message,
		"booking": bookingJSON(res.Booking),
	})
}
