// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/config"
	"github.com/iliyamo/studio-class-booking/internal/handler"
	"github.com/iliyamo/studio-class-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// and carry no domain state.  Currently that is only the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the identity-provider endpoints.
// Unauthenticated operations live under /v1/auth; /v1/me requires a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate booking.Gate) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.BearerAuth(gate))
}

// RegisterCatalog registers the unauthenticated browse endpoints.
// They are read-only, so they sit behind the Redis response cache and
// the token-bucket rate limiter; with a nil Redis client both
// middlewares are no-ops.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	g := e.Group("/v1", limit, cache)
	g.GET("/activities", h.GetActivities)
	g.GET("/instructors", h.GetInstructors)
	g.GET("/sessions", h.GetSessions)
	g.GET("/sessions/:id", h.GetSession)
}

// RegisterBooking registers the reservation endpoints.  The reserve
// route deliberately has no auth middleware: the booking service
// authenticates the credential itself so identity is checked before
// capacity.  The read endpoints sit behind BearerAuth, and the
// per-session ledger is restricted to STAFF.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, gate booking.Gate) {
	e.POST("/v1/sessions/:id/reservations", h.Reserve)

	e.GET("/v1/reservations", h.MyReservations,
		middleware.BearerAuth(gate), middleware.RequireRole("MEMBER", "STAFF"))
	e.GET("/v1/sessions/:id/reservations", h.SessionLedger,
		middleware.BearerAuth(gate), middleware.RequireRole("STAFF"))
}
