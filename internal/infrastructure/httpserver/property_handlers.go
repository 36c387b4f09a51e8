package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/helpers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/multicache"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPageSize applies when the limit query parameter is absent.
	DefaultPageSize = 12

	headerCache = "X-Cache"
)

type searchRequest struct {
	property.Filters
	Page  int `query:"page" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0"`
}

func (s *Server) searchProperties(c echo.Context) error {
	req, err := bindSearch(c)
	if err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	res, err := s.properties.Search(c.Request().Context(), req.Filters, property.Pagination{Page: req.Page, Limit: req.Limit})
	if err != nil {
		return s.propertyError(c, err)
	}
	setCacheHeader(c, res.Cache)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getProperty(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "property id is required")
	}

	res, err := s.properties.GetByID(c.Request().Context(), id)
	if err != nil {
		return s.propertyError(c, err)
	}
	setCacheHeader(c, res.Cache)
	return c.JSON(http.StatusOK, res)
}

// bindSearch reads filters from the query string. Optional numbers stay nil when absent.
func bindSearch(c echo.Context) (*searchRequest, error) {
	req := &searchRequest{Limit: DefaultPageSize}
	var (
		minPrice, maxPrice, minArea float64
		minBedrooms                 int
		typ, purpose, status        string
	)

	b := echo.QueryParamsBinder(c).FailFast(false)
	b.String("city", &req.City).
		String("neighborhood", &req.Neighborhood).
		String("state", &req.State).
		String("type", &typ).
		String("purpose", &purpose).
		String("status", &status).
		String("q", &req.Query).
		String("code", &req.Code).
		Float64("min_price", &minPrice).
		Float64("max_price", &maxPrice).
		Float64("min_area", &minArea).
		Int("min_bedrooms", &minBedrooms).
		Int("page", &req.Page).
		Int("limit", &req.Limit)
	if err := b.BindError(); err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
				"message": "invalid request",
				"fields":  map[string]string{be.Field: "must be a number"},
			})
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	req.Type = property.Type(strings.ToLower(typ))
	req.Purpose = property.Purpose(strings.ToLower(purpose))
	req.Status = property.Status(strings.ToLower(status))
	if c.QueryParam("min_price") != "" {
		req.MinPrice = &minPrice
	}
	if c.QueryParam("max_price") != "" {
		req.MaxPrice = &maxPrice
	}
	if c.QueryParam("min_area") != "" {
		req.MinArea = &minArea
	}
	if c.QueryParam("min_bedrooms") != "" {
		req.MinBedrooms = &minBedrooms
	}
	return req, nil
}

func setCacheHeader(c echo.Context, meta cachemeta.Meta) {
	c.Response().Header().Set(headerCache, string(meta.Layer))
}

// propertyError maps service errors onto HTTP statuses: unknown listings are 404, origin
// failures 502 and caller timeouts 504.
func (s *Server) propertyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, property.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "property not found")
	case multicache.IsFetchError(err):
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"request_id": helpers.GetRequestID(c),
				"path":       c.Path(),
			}).WithError(err).Warn("origin fetch failed")
		}
		return echo.NewHTTPError(http.StatusBadGateway, "property provider unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	default:
		if s.logger != nil {
			s.logger.WithField("request_id", helpers.GetRequestID(c)).WithError(err).Error("property lookup failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
