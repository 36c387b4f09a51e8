package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type ctxKey string

const keyAdminSubject ctxKey = "admin_subject"

func SetAdminSubject(c echo.Context, sub string) { c.Set(string(keyAdminSubject), sub) }

// GetAdminSubject returns the subject of a verified admin token, if any.
func GetAdminSubject(c echo.Context) (string, bool) {
	s, ok := c.Get(string(keyAdminSubject)).(string)
	return s, ok
}

// GetRequestID returns the id assigned by the request id middleware.
func GetRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

func GetBearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty token")
	}
	return token, nil
}
