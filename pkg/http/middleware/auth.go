package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// BearerAuth rejects requests whose Authorization header is not "Bearer <secret>".
// An empty secret rejects everything.
func BearerAuth(secret string) echo.MiddlewareFunc {
	want := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || len(want) == 0 || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), want) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "unauthorized",
				})
			}
			return next(c)
		}
	}
}
