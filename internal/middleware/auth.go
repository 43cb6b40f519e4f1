package middleware // middleware provides shared request processing for handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-class-booking/internal/booking"
	"github.com/iliyamo/studio-class-booking/internal/identity"
)

// BearerAuth returns an Echo middleware that resolves the request's
// Authorization header through the identity gate and stores the
// resulting identity in the context under "identity" (plus "user_id"
// and "role" for convenience).  Every gate failure maps to 401 with
// the gate's rejection reason; handlers behind this middleware can
// assume a known, active user.
//
// The reservation endpoint does NOT use this middleware: the booking
// service authenticates the raw credential itself so that identity is
// checked before any session state is touched.
func BearerAuth(gate booking.Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := c.Request().Header.Get("Authorization")
			ident, err := gate.Authenticate(c.Request().Context(), cred)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": RejectReason(err)})
			}
			c.Set("identity", ident)
			c.Set("user_id", ident.ID)
			c.Set("role", ident.Role)
			return next(c)
		}
	}
}

// RejectReason maps a gate error to the stable string reported to
// clients.  Unknown errors collapse to a generic reason so internal
// failures are not leaked.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, identity.ErrMissingCredential):
		return "missing bearer token"
	case errors.Is(err, identity.ErrMalformedCredential):
		return "malformed bearer token"
	case errors.Is(err, identity.ErrUndecodableCredential):
		return "invalid token"
	case errors.Is(err, identity.ErrUnknownIdentity):
		return "unknown identity"
	}
	return "unauthorized"
}
