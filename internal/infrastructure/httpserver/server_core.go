package httpserver

import (
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	customMiddleware "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	TLSCertFile     string
	TLSKeyFile      string
	AllowedOrigins  []string
	Environment     string
	RateLimitPerSec float64
	RateLimitBurst  int
}

type ServerDeps struct {
	PropertyService ports.PropertyService
	HealthCheckers  []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	properties     ports.PropertyService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

// NewServer builds the API. An empty adminSecret disables the cache administration routes.
func NewServer(serverConfig *ServerConfig, adminSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		properties:     deps.PropertyService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			adminSecret,
			serverConfig.RateLimitPerSec,
			serverConfig.RateLimitBurst,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
