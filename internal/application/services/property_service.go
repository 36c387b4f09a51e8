package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/multicache"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/observability"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	ListNamespace   = "properties:list"
	DetailNamespace = "properties:detail"

	defaultMaxPageSize = 50
)

// ProviderError is an origin failure attributed to one provider.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type PropertyServiceConfig struct {
	ListTTL     time.Duration
	DetailTTL   time.Duration
	MaxPageSize int
	// FetchTimeout bounds one origin fetch. Fetches outlive the caller that started them.
	FetchTimeout time.Duration
}

type PropertyService struct {
	cache     *multicache.Orchestrator
	providers []ports.PropertyProvider
	registry  ports.NormalizerRegistry
	cfg       PropertyServiceConfig
	logger    *logrus.Logger
	metrics   *observability.ProviderMetrics
	tracer    trace.Tracer
}

// NewPropertyService builds the façade over the active providers, queried in the given order.
func NewPropertyService(
	cache *multicache.Orchestrator,
	active []ports.PropertyProvider,
	registry ports.NormalizerRegistry,
	cfg PropertyServiceConfig,
	logger *logrus.Logger,
	metrics *observability.ProviderMetrics,
) ports.PropertyService {
	if cfg.MaxPageSize < 1 {
		cfg.MaxPageSize = defaultMaxPageSize
	}
	return &PropertyService{
		cache:     cache,
		providers: active,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    observability.Tracer(),
	}
}

// listPage is the cached value of the list namespace.
type listPage struct {
	Properties []*property.Property `json:"properties"`
	Total      int                  `json:"total"`
}

type listKey struct {
	Filters    property.Filters    `json:"filters"`
	Pagination property.Pagination `json:"pagination"`
}

func (s *PropertyService) Search(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.SearchResult, error) {
	pagination = s.clamp(pagination)
	key := utils.StableKey(listKey{Filters: filters, Pagination: pagination})

	ctx, span := s.tracer.Start(ctx, "PropertyService.Search", trace.WithAttributes(
		attribute.Int("page", pagination.Page),
		attribute.Int("limit", pagination.Limit),
	))
	defer span.End()

	res, err := multicache.GetOrSet(ctx, s.cache, ListNamespace, key, s.cfg.ListTTL, func(ctx context.Context) (listPage, error) {
		return s.fetchList(ctx, filters, pagination)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("cache.layer", string(res.Meta.Layer)))

	props := res.Data.Properties
	if props == nil {
		props = []*property.Property{}
	}
	return &ports.SearchResult{
		Properties: props,
		Pagination: property.NewPageInfo(pagination, res.Data.Total),
		Cache:      res.Meta,
	}, nil
}

func (s *PropertyService) GetByID(ctx context.Context, id string) (*ports.DetailResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, property.ErrNotFound
	}

	ctx, span := s.tracer.Start(ctx, "PropertyService.GetByID", trace.WithAttributes(attribute.String("property.id", id)))
	defer span.End()

	res, err := multicache.GetOrSet(ctx, s.cache, DetailNamespace, id, s.cfg.DetailTTL, func(ctx context.Context) (*property.Property, error) {
		return s.fetchOne(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, property.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "get by id failed")
		}
		return nil, err
	}
	return &ports.DetailResult{Property: res.Data, Cache: res.Meta}, nil
}

// Invalidate drops key from both namespaces, or both namespaces wholesale when key is empty.
func (s *PropertyService) Invalidate(ctx context.Context, key string) error {
	var keys []string
	if key != "" {
		keys = []string{key}
	}
	var errs []error
	for _, ns := range []string{ListNamespace, DetailNamespace} {
		if err := s.cache.Invalidate(ctx, ns, keys...); err != nil {
			errs = append(errs, fmt.Errorf("failed to invalidate %s: %w", ns, err))
		}
	}
	return errors.Join(errs...)
}

func (s *PropertyService) Stats() []cachemeta.Stats {
	return []cachemeta.Stats{
		s.cache.Stats(ListNamespace, s.cfg.ListTTL),
		s.cache.Stats(DetailNamespace, s.cfg.DetailTTL),
	}
}

func (s *PropertyService) clamp(p property.Pagination) property.Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > s.cfg.MaxPageSize {
		p.Limit = s.cfg.MaxPageSize
	}
	return p
}

func (s *PropertyService) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.FetchTimeout)
}

// fetchList returns one page of the listings of every active provider, concatenated in
// provider order. A single provider is asked for the page directly. With several, each is read
// from its first page up to the end of the requested window, the windows are merged and
// deduplicated, and the page is cut from the merged list so it never exceeds the limit.
// Any provider failure fails the whole fetch so a partial page is never cached.
func (s *PropertyService) fetchList(ctx context.Context, filters property.Filters, pagination property.Pagination) (listPage, error) {
	ctx, cancel := s.withFetchTimeout(ctx)
	defer cancel()

	windows := make([]*ports.ListResult, len(s.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		i, p := i, p
		g.Go(func() error {
			var (
				res *ports.ListResult
				err error
			)
			if len(s.providers) == 1 {
				res, err = p.ListProperties(gctx, filters, pagination)
			} else {
				res, err = readWindow(gctx, p, filters, pagination.Limit, pagination.Offset()+pagination.Limit)
			}
			if err != nil {
				return &ProviderError{Provider: p.Name(), Op: "list", Err: err}
			}
			windows[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"page": pagination.Page, "limit": pagination.Limit}).WithError(err).Warn("listing fetch failed")
		}
		return listPage{}, err
	}

	out := listPage{Properties: []*property.Property{}}
	seen := make(map[string]struct{})
	for _, window := range windows {
		if window == nil {
			continue
		}
		out.Total += window.Total
		batch := providers.NormalizeBatch(ctx, s.registry, window.Items, s.logger, s.metrics)
		for _, p := range batch.Properties {
			id := p.Provider + "\x00" + p.ID
			if _, dup := seen[id]; dup {
				out.Total--
				continue
			}
			seen[id] = struct{}{}
			out.Properties = append(out.Properties, p)
		}
	}

	if len(s.providers) > 1 {
		from := min(pagination.Offset(), len(out.Properties))
		to := min(from+pagination.Limit, len(out.Properties))
		out.Properties = out.Properties[from:to]
	}
	return out, nil
}

// readWindow collects up to n listings of p from its first page on, reading pages of size
// limit so no request exceeds what the provider accepts.
func readWindow(ctx context.Context, p ports.PropertyProvider, filters property.Filters, limit, n int) (*ports.ListResult, error) {
	out := &ports.ListResult{Page: 1, Limit: n}
	for page := 1; len(out.Items) < n; page++ {
		res, err := p.ListProperties(ctx, filters, property.Pagination{Page: page, Limit: limit})
		if err != nil {
			return nil, err
		}
		out.Total = res.Total
		out.Items = append(out.Items, res.Items...)
		if len(res.Items) < limit || len(out.Items) >= res.Total {
			break
		}
	}
	if len(out.Items) > n {
		out.Items = out.Items[:n]
	}
	if out.Total < len(out.Items) {
		out.Total = len(out.Items)
	}
	return out, nil
}

// fetchOne asks providers in order and returns the first listing found. A provider error is
// reported only when no later provider has the listing.
func (s *PropertyService) fetchOne(ctx context.Context, id string) (*property.Property, error) {
	ctx, cancel := s.withFetchTimeout(ctx)
	defer cancel()

	var firstErr error
	for _, p := range s.providers {
		rec, err := p.GetProperty(ctx, id)
		if errors.Is(err, property.ErrNotFound) {
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = &ProviderError{Provider: p.Name(), Op: "get", Err: err}
			}
			continue
		}

		batch := providers.NormalizeBatch(ctx, s.registry, []ports.RawRecord{*rec}, s.logger, s.metrics)
		if len(batch.Properties) == 0 {
			if firstErr == nil {
				firstErr = &ProviderError{Provider: p.Name(), Op: "normalize", Err: fmt.Errorf("record %s could not be normalized", id)}
			}
			continue
		}
		return batch.Properties[0], nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, property.ErrNotFound
}

var _ ports.PropertyService = (*PropertyService)(nil)
