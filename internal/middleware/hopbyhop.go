package middleware

import (
	"github.com/labstack/echo/v4"

	"cors-relay/internal/headers"
)

// StripHopByHop returns an Echo middleware that removes hop-by-hop headers,
// including those named in Connection, from the inbound request before it
// reaches the relay.
func StripHopByHop() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			headers.StripHopByHop(c.Request().Header)
			return next(c)
		}
	}
}
