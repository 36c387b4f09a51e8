package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/helpers"
)

// ScopeCacheInvalidate allows dropping cached listings.
const ScopeCacheInvalidate = "cache:invalidate"

// AdminClaims are the claims of an operator token. Scope is a space separated list.
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether scope is granted.
func (c *AdminClaims) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}

// AdminMiddleware guards operator routes with HS256 tokens signed by a shared secret.
type AdminMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

func NewAdminMiddleware(secret string, logger *logrus.Logger) *AdminMiddleware {
	return &AdminMiddleware{secret: []byte(secret), logger: logger}
}

// RequireScope rejects requests without a valid token carrying scope. Without a configured
// secret every request is forbidden.
func (m *AdminMiddleware) RequireScope(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(m.secret) == 0 {
				return echo.NewHTTPError(http.StatusForbidden, "cache administration is disabled")
			}

			tokenString, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}

			claims, err := m.parse(tokenString)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).WithError(err).Warn("admin token rejected")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
			}
			if !claims.HasScope(scope) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient scope")
			}

			helpers.SetAdminSubject(c, claims.Subject)
			return next(c)
		}
	}
}

func (m *AdminMiddleware) parse(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}
