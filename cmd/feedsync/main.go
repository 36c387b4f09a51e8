package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/KairamCabral/Site-imobiliaria-pharos-sub004/configs"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/application/services"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/db"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/dwv"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/normalize"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/upstream"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/repositories"
	"github.com/sirupsen/logrus"
)

// feedsync copies every listing of the configured live providers into the feed mirror table,
// then exits. Run it on a schedule; the API serves the mirror when "mirror" is an active provider.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if !cfg.Database.Enabled() {
		logger.Fatal("DB_HOST is required to sync the feed mirror")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDatabase(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	tables := normalize.Default()
	registry := providers.NewRegistry(
		vista.NewNormalizer(tables, logger),
		dwv.NewNormalizer(tables, logger),
	)
	metrics := observability.NewProviderMetrics(nil)

	syncer := services.NewFeedSyncService(
		repositories.NewFeedMirrorRepository(database),
		registry,
		services.FeedSyncConfig{PageSize: cfg.FeedSync.PageSize, MaxPages: cfg.FeedSync.MaxPages},
		logger,
		metrics,
	)

	failed := false
	for _, name := range cfg.FeedSync.Sources {
		source, err := newSource(name, cfg, logger, metrics)
		if err != nil {
			logger.WithField("provider", name).WithError(err).Error("Skipping feed source")
			failed = true
			continue
		}
		if _, err := syncer.Sync(ctx, source); err != nil {
			logger.WithField("provider", name).WithError(err).Error("Feed sync failed")
			failed = true
		}
	}

	if failed {
		_ = database.Close()
		os.Exit(1)
	}
}

func newSource(name string, cfg *config.Config, logger *logrus.Logger, metrics *observability.ProviderMetrics) (ports.PropertyProvider, error) {
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
		if cfg.Providers.Vista.BaseURL == "" {
			return nil, errors.New("VISTA_BASE_URL is required")
		}
		return vista.NewClient(cfg.Providers.Vista, transport, logger, metrics), nil
	case dwv.ProviderName:
		if cfg.Providers.DWV.BaseURL == "" {
			return nil, errors.New("DWV_BASE_URL is required")
		}
		return dwv.NewClient(cfg.Providers.DWV, transport, logger, metrics), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", name)
	}
}
