package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// getUserID extracts the user_id placed in the context by the JWT
// middleware and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// bookingJSON shapes a booking for API responses.
func bookingJSON(b *model.Booking) echo.Map {
	m := echo.Map{
		"booking_id":         b.ID,
		"event_id":           b.EventID,
		"seat_tokens":        b.SeatTokens,
		"quantity":           b.Quantity,
		"total_amount_cents": b.TotalAmountCents,
		"currency":           b.Currency,
		"gateway":            b.Gateway,
		"transaction_ref":    b.TransactionRef,
		"status":             b.Status,
		"payment_status":     b.PaymentStatus,
	}
	if b.GatewayPaymentRef != nil {
		m["gateway_payment_ref"] = *b.GatewayPaymentRef
	}
	return m
}
