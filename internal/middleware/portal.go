package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const contextKeyAccountID = "account_id"

// AccountIDFromContext returns the dashboard account set by PortalAuth.
func AccountIDFromContext(c echo.Context) string {
	id, _ := c.Get(contextKeyAccountID).(string)
	return id
}

// PortalAuth verifies the service-signed JWT the marketplace dashboard sends
// on key- and webhook-management calls.
func PortalAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid portal token")
			}

			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "portal token missing subject")
			}

			c.Set(contextKeyAccountID, sub)
			return next(c)
		}
	}
}
