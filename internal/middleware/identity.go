package middleware

// identity.go defines helpers shared across middleware files for
// reading the identity that BearerAuth stored in the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-class-booking/internal/model"
)

// CurrentIdentity returns the authenticated identity from context and
// whether one is present.
func CurrentIdentity(c echo.Context) (model.UserIdentity, bool) {
	v := c.Get("identity")
	if v == nil {
		return model.UserIdentity{}, false
	}
	ident, ok := v.(model.UserIdentity)
	return ident, ok
}

// userID returns the authenticated user id as a string, or "guest"
// when no user is authenticated.  Used by the rate limiter's key
// builder.
func userID(c echo.Context) string {
	if ident, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(ident.ID, 10)
	}
	return "guest"
}
