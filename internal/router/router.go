package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterBooking wires the booking lifecycle routes.
//
// The gateway callbacks live outside the JWT group: the payment
// provider cannot carry a user token, so those requests authenticate
// with the gateway's own signature (eSewa) or by verification against
// the gateway's lookup API (Khalti).  Everything else requires a valid
// access token, and the manual reaper sweep additionally requires the
// OWNER role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.POST("/v1/payments/esewa/callback", b.EsewaCallback)
	e.POST("/v1/payments/khalti/callback", b.KhaltiCallback)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "CUSTOMER"))
	if rlCfg.Enabled {
		auth.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}
	auth.POST("/bookings", b.Initiate)
	auth.POST("/bookings/:id/confirm", b.Confirm)
	auth.POST("/bookings/:id/abandon", b.Abandon)
	auth.GET("/bookings/:id", b.Get)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("OWNER"))
	admin.POST("/reaper/run", b.RunSweep)
}
