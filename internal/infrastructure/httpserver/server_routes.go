package httpserver

import (
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/middleware"
)

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	properties := api.Group("/properties")
	properties.GET("", s.searchProperties)
	properties.GET("/:id", s.getProperty)

	cache := api.Group("/cache")
	cache.GET("/stats", s.cacheStats)
	cache.POST("/invalidate", s.invalidateCache, s.middleware.Admin.RequireScope(middleware.ScopeCacheInvalidate))
}
