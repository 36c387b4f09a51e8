package services

import (
	"context"
	"fmt"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/sirupsen/logrus"
)

type FeedSyncConfig struct {
	PageSize int
	// MaxPages stops a sync early; zero walks every page.
	MaxPages int
}

// FeedSyncReport summarizes one provider sync.
type FeedSyncReport struct {
	Provider string
	Pages    int
	Stored   int
	Skipped  int
}

// FeedSyncService copies live provider payloads into the feed mirror.
type FeedSyncService struct {
	sink     ports.FeedMirrorWriter
	registry ports.NormalizerRegistry
	cfg      FeedSyncConfig
	logger   *logrus.Logger
	metrics  *observability.ProviderMetrics
	now      func() time.Time
}

func NewFeedSyncService(sink ports.FeedMirrorWriter, registry ports.NormalizerRegistry, cfg FeedSyncConfig, logger *logrus.Logger, metrics *observability.ProviderMetrics) *FeedSyncService {
	if cfg.PageSize < 1 {
		cfg.PageSize = defaultMaxPageSize
	}
	return &FeedSyncService{
		sink:     sink,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sync walks every page of source and upserts each record that normalizes. Records that do
// not normalize are skipped; a provider or storage failure aborts the sync.
func (s *FeedSyncService) Sync(ctx context.Context, source ports.PropertyProvider) (FeedSyncReport, error) {
	report := FeedSyncReport{Provider: source.Name()}

	for page := 1; s.cfg.MaxPages == 0 || page <= s.cfg.MaxPages; page++ {
		res, err := source.ListProperties(ctx, property.Filters{}, property.Pagination{Page: page, Limit: s.cfg.PageSize})
		if err != nil {
			return report, &ProviderError{Provider: source.Name(), Op: "list", Err: err}
		}
		report.Pages++

		for _, rec := range res.Items {
			batch := providers.NormalizeBatch(ctx, s.registry, []ports.RawRecord{rec}, s.logger, s.metrics)
			if len(batch.Properties) == 0 {
				report.Skipped++
				continue
			}
			p := batch.Properties[0]
			err := s.sink.Upsert(ctx, ports.FeedItem{
				Provider:     rec.Provider,
				ExternalID:   p.ID,
				Code:         p.Code,
				City:         p.Address.City,
				Neighborhood: p.Address.Neighborhood,
				Payload:      rec.Payload,
				UpdatedAt:    s.now(),
			})
			if err != nil {
				return report, fmt.Errorf("failed to store %s/%s: %w", rec.Provider, p.ID, err)
			}
			report.Stored++
		}

		if len(res.Items) == 0 || page*s.cfg.PageSize >= res.Total {
			break
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"provider": report.Provider,
			"pages":    report.Pages,
			"stored":   report.Stored,
			"skipped":  report.Skipped,
		}).Info("feed mirror synced")
	}
	return report, nil
}
