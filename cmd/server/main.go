package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/application/services"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/db"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/health"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/httpserver"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/memory"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/multicache"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/dwv"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/normalize"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/redis"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/repositories"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(cfg.Log)
	logger.WithField("providers", cfg.Providers.Active).Info("Starting property data layer...")

	ctx := context.Background()

	tracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.Server.Environment)
	if err != nil {
		logger.WithError(err).Warn("Tracing disabled: failed to create exporter")
	}

	cacheMetrics := observability.NewCacheMetrics(prometheus.DefaultRegisterer)
	providerMetrics := observability.NewProviderMetrics(prometheus.DefaultRegisterer)

	// The shared tier connects lazily; an unreachable Redis only degrades the cache.
	remote := redis.NewRedisCache(cfg.Redis, logger)
	if !remote.Configured() {
		logger.Info("REDIS_URL not set, running with the in-process cache only")
	}

	orchestrator := multicache.New(memory.NewCache(), remote, multicache.Options{
		Logger:      logger,
		Metrics:     cacheMetrics,
		EventBuffer: cfg.Cache.EventBuffer,
	})
	go watchDegradation(orchestrator.Events(), logger)

	tables := normalize.Default()
	registry := providers.NewRegistry(
		vista.NewNormalizer(tables, logger),
		dwv.NewNormalizer(tables, logger),
	)

	hcSlice := []ports.HealthChecker{health.NewRedisHealthChecker(remote)}

	var database *db.Database
	if cfg.Database.Enabled() {
		database, err = db.NewDatabase(ctx, &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		logger.Info("Connected to feed mirror database successfully")

		if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
			logger.Warn("Failed to run migrations:", err)
		}
		hcSlice = append(hcSlice, health.NewDBHealthChecker(database, isActive(cfg.Providers.Active, repositories.MirrorProviderName)))
	}

	active := make([]ports.PropertyProvider, 0, len(cfg.Providers.Active))
	for _, name := range cfg.Providers.Active {
		transport := upstream.Config{
			Name:             name,
			Timeout:          cfg.Providers.Timeout,
			RequestsPerSec:   cfg.Providers.RequestsPerSec,
			Burst:            cfg.Providers.Burst,
			BreakerFailures:  cfg.Providers.BreakerFailures,
			BreakerOpenAfter: cfg.Providers.BreakerOpenAfter,
		}
		switch name {
		case vista.ProviderName:
			client := vista.NewClient(cfg.Providers.Vista, transport, logger, providerMetrics)
			active = append(active, client)
			hcSlice = append(hcSlice, health.NewBreakerHealthChecker(client.Upstream()))
		case dwv.ProviderName:
			client := dwv.NewClient(cfg.Providers.DWV, transport, logger, providerMetrics)
			active = append(active, client)
			hcSlice = append(hcSlice, health.NewBreakerHealthChecker(client.Upstream()))
		case repositories.MirrorProviderName:
			active = append(active, repositories.NewFeedMirrorRepository(database))
		}
	}

	propertyService := services.NewPropertyService(orchestrator, active, registry, services.PropertyServiceConfig{
		ListTTL:      cfg.Cache.ListTTL,
		DetailTTL:    cfg.Cache.DetailTTL,
		MaxPageSize:  cfg.Cache.MaxPageSize,
		FetchTimeout: cfg.Providers.Timeout + 5*time.Second,
	}, logger, providerMetrics)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		TLSCertFile:     cfg.Server.TLSCertFile,
		TLSKeyFile:      cfg.Server.TLSKeyFile,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Environment:     cfg.Server.Environment,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	}

	deps := httpserver.ServerDeps{
		PropertyService: propertyService,
		HealthCheckers:  hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.Admin.CacheAdminSecret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// Let background Tier 2 writes finish before the client goes away.
	orchestrator.WaitForWrites()
	if err := remote.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close redis client")
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

// watchDegradation reports the moment the shared tier is given up on. Other events are
// already logged where they happen.
func watchDegradation(events <-chan multicache.Event, logger *logrus.Logger) {
	for ev := range events {
		if ev.Kind == multicache.EventTier2Unavailable {
			logger.WithFields(logrus.Fields{
				"namespace": ev.Namespace,
				"at":        ev.At,
			}).WithError(ev.Err).Error("shared cache tier disabled until restart")
		}
	}
}

func isActive(active []string, name string) bool {
	for _, a := range active {
		if a == name {
			return true
		}
	}
	return false
}
