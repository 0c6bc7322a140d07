package middleware

import (
	"strings"

	echo "github.com/labstack/echo/v4"
)

const (
	HeaderAPIKey = "X-API-Key"
	ctxAPIKey    = "api_key"
)

// APIKeyFromCtx returns the key stored by APIKeyMiddleware ("" when the
// caller sent none).
func APIKeyFromCtx(c echo.Context) string {
	k, _ := c.Get(ctxAPIKey).(string)
	return k
}

// APIKeyMiddleware picks up the caller's key from the X-API-Key header, or
// the apiKey query parameter for GET requests. It never rejects: a missing
// key means demo mode, and unknown keys are refused by the quota gate.
func APIKeyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
			if key == "" && c.Request().Method == "GET" {
				key = strings.TrimSpace(c.QueryParam("apiKey"))
			}
			if key != "" {
				c.Set(ctxAPIKey, key)
			}
			return next(c)
		}
	}
}
