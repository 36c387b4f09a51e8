package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware paces the public API per client IP. Health and metrics are exempt.
type RateLimitMiddleware struct {
	perSec float64
	burst  int
	logger *logrus.Logger
}

func NewRateLimitMiddleware(perSec float64, burst int, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{perSec: perSec, burst: burst, logger: logger}
}

func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	if r.perSec <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := r.burst
	if burst < 1 {
		burst = int(r.perSec) + 1
	}

	return echoMiddleware.RateLimiterWithConfig(echoMiddleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		Store: echoMiddleware.NewRateLimiterMemoryStoreWithConfig(echoMiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(r.perSec),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "client could not be identified")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{"ip": identifier, "path": c.Path()}).Debug("rate limit exceeded")
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
