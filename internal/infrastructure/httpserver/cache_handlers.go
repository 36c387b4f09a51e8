package httpserver

import (
	"net/http"
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/helpers"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type invalidateRequest struct {
	Key string `json:"key" validate:"max=512"`
}

func (s *Server) invalidateCache(c echo.Context) error {
	var req invalidateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	key := strings.TrimSpace(req.Key)

	if err := s.properties.Invalidate(c.Request().Context(), key); err != nil {
		if s.logger != nil {
			s.logger.WithField("key", key).WithError(err).Error("cache invalidation failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to invalidate cache")
	}

	scope := key
	if scope == "" {
		scope = "all"
	}
	if s.logger != nil {
		sub, _ := helpers.GetAdminSubject(c)
		s.logger.WithFields(logrus.Fields{"key": scope, "admin": sub}).Info("cache invalidated")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invalidated": scope,
	})
}

func (s *Server) cacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"namespaces": s.properties.Stats(),
	})
}
