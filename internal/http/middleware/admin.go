package middleware

import (
	"crypto/subtle"
	"net/http"

	echo "github.com/labstack/echo/v4"
)

const HeaderAdminToken = "X-Admin-Token"

// AdminTokenMiddleware only lets through requests carrying the configured
// admin token.
func AdminTokenMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderAdminToken)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}
