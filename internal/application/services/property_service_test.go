package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/application/services"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/memory"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/multicache"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/dwv"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/providers/vista"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/test/mocks"
	"github.com/stretchr/testify/require"
)

const (
	listTTL   = 5 * time.Minute
	detailTTL = 10 * time.Minute
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

type fixture struct {
	svc   ports.PropertyService
	cache *multicache.Orchestrator
	clock *fakeClock
}

func newFixture(t *testing.T, remote ports.RemoteCache, active ...ports.PropertyProvider) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := multicache.New(memory.NewCache(memory.WithClock(clock.Now)), remote, multicache.Options{Now: clock.Now})
	registry := providers.NewRegistry(vista.NewNormalizer(nil, nil), dwv.NewNormalizer(nil, nil))
	svc := services.NewPropertyService(cache, active, registry, services.PropertyServiceConfig{
		ListTTL:     listTTL,
		DetailTTL:   detailTTL,
		MaxPageSize: 50,
	}, nil, nil)
	return &fixture{svc: svc, cache: cache, clock: clock}
}

func vistaRecord(code, city string) ports.RawRecord {
	payload, _ := json.Marshal(map[string]any{
		"Codigo":     code,
		"Categoria":  "Apartamento",
		"Cidade":     city,
		"Bairro":     "Centro",
		"ValorVenda": "850000",
	})
	return ports.RawRecord{Provider: vista.ProviderName, Payload: payload}
}

func vistaProvider(records ...ports.RawRecord) *mocks.PropertyProviderMock {
	return &mocks.PropertyProviderMock{
		NameValue: "vista",
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			return &ports.ListResult{Items: records, Total: len(records), Page: p.Page, Limit: p.Limit}, nil
		},
	}
}

func TestSearch_MemoryHitThenOriginAfterTTL(t *testing.T) {
	provider := vistaProvider(vistaRecord("V1", "X"), vistaRecord("V2", "X"))
	f := newFixture(t, nil, provider)
	ctx := context.Background()
	filters := property.Filters{City: "X"}
	page := property.Pagination{Page: 1, Limit: 20}

	first, err := f.svc.Search(ctx, filters, page)
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, first.Cache.Layer)
	require.Len(t, first.Properties, 2)
	require.Equal(t, "V1", first.Properties[0].ID)
	require.Equal(t, 2, first.Pagination.Total)
	require.Equal(t, 1, first.Pagination.TotalPages)

	second, err := f.svc.Search(ctx, filters, page)
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerMemory, second.Cache.Layer)
	require.Equal(t, first.Properties, second.Properties)
	require.Equal(t, 1, provider.ListCalls())

	f.clock.Advance(listTTL + time.Second)
	third, err := f.svc.Search(ctx, filters, page)
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, third.Cache.Layer)
	require.Equal(t, 2, provider.ListCalls())
}

func TestSearch_ClampsPagination(t *testing.T) {
	var seen property.Pagination
	provider := &mocks.PropertyProviderMock{
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			seen = p
			return &ports.ListResult{Page: p.Page, Limit: p.Limit}, nil
		},
	}
	f := newFixture(t, nil, provider)

	res, err := f.svc.Search(context.Background(), property.Filters{}, property.Pagination{Page: -3, Limit: 500})
	require.NoError(t, err)
	require.Equal(t, property.Pagination{Page: 1, Limit: 50}, seen)
	require.Equal(t, 1, res.Pagination.Page)
	require.Equal(t, 50, res.Pagination.Limit)
	require.NotNil(t, res.Properties)
	require.Empty(t, res.Properties)

	_, err = f.svc.Search(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 0})
	require.NoError(t, err)
	require.Equal(t, 1, seen.Limit)
}

func TestSearch_EquivalentRequestsShareAnEntry(t *testing.T) {
	provider := vistaProvider(vistaRecord("V1", "X"))
	f := newFixture(t, nil, provider)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, property.Filters{City: "X"}, property.Pagination{Page: 0, Limit: 80})
	require.NoError(t, err)
	res, err := f.svc.Search(ctx, property.Filters{City: "X"}, property.Pagination{Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerMemory, res.Cache.Layer)
	require.Equal(t, 1, provider.ListCalls())
}

func TestSearch_MergesProvidersAndDropsDuplicates(t *testing.T) {
	live := vistaProvider(vistaRecord("V1", "X"), vistaRecord("V2", "X"))
	mirror := &mocks.PropertyProviderMock{
		NameValue: "mirror",
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			return &ports.ListResult{
				Items: []ports.RawRecord{
					vistaRecord("V1", "X"),
					{Provider: dwv.ProviderName, Payload: json.RawMessage(`{"id":"D1","code":"D1","title":"Casa"}`)},
					{Provider: "unknown", Payload: json.RawMessage(`{}`)},
				},
				Total: 3,
				Page:  p.Page,
				Limit: p.Limit,
			}, nil
		},
	}
	f := newFixture(t, nil, live, mirror)

	res, err := f.svc.Search(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)

	var ids []string
	for _, p := range res.Properties {
		ids = append(ids, p.Provider+"/"+p.ID)
	}
	require.Equal(t, []string{"vista/V1", "vista/V2", "dwv/D1"}, ids)
	require.Equal(t, 4, res.Pagination.Total)
}

func TestSearch_ProviderFailureIsNotCached(t *testing.T) {
	boom := errors.New("upstream 503")
	calls := 0
	provider := &mocks.PropertyProviderMock{
		NameValue: "vista",
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			calls++
			if calls == 1 {
				return nil, boom
			}
			return &ports.ListResult{Items: []ports.RawRecord{vistaRecord("V1", "X")}, Total: 1}, nil
		},
	}
	f := newFixture(t, nil, provider)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.Error(t, err)
	require.True(t, multicache.IsFetchError(err))
	var pe *services.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "vista", pe.Provider)
	require.Equal(t, "list", pe.Op)
	require.ErrorIs(t, err, boom)

	res, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, res.Cache.Layer)
	require.Len(t, res.Properties, 1)
}

func TestSearch_WritesThroughToRemote(t *testing.T) {
	var (
		mu      sync.Mutex
		written []string
		ttls    []time.Duration
	)
	remote := &mocks.RemoteCacheMock{
		SetFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			written = append(written, key)
			ttls = append(ttls, ttl)
			return nil
		},
	}
	f := newFixture(t, remote, vistaProvider(vistaRecord("V1", "X")))

	_, err := f.svc.Search(context.Background(), property.Filters{City: "X"}, property.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	f.cache.WaitForWrites()

	mu.Lock()
	require.Len(t, written, 1)
	require.True(t, strings.HasPrefix(written[0], services.ListNamespace+":"))
	require.Equal(t, []time.Duration{listTTL}, ttls)
	mu.Unlock()

	var patterns []string
	remote.ScanAndDeleteFn = func(_ context.Context, pattern string) (int, error) {
		patterns = append(patterns, pattern)
		return 1, nil
	}
	require.NoError(t, f.svc.Invalidate(context.Background(), ""))
	require.Equal(t, []string{services.ListNamespace + ":*", services.DetailNamespace + ":*"}, patterns)
}

func TestGetByID_TriesProvidersInOrder(t *testing.T) {
	live := &mocks.PropertyProviderMock{NameValue: "vista"}
	mirror := &mocks.PropertyProviderMock{
		NameValue: "mirror",
		GetPropertyFn: func(_ context.Context, id string) (*ports.RawRecord, error) {
			rec := vistaRecord(id, "Itajaí")
			return &rec, nil
		},
	}
	f := newFixture(t, nil, live, mirror)
	ctx := context.Background()

	res, err := f.svc.GetByID(ctx, "V7")
	require.NoError(t, err)
	require.Equal(t, "V7", res.Property.ID)
	require.Equal(t, "Itajaí", res.Property.Address.City)
	require.Equal(t, cachemeta.LayerOrigin, res.Cache.Layer)
	require.Equal(t, 1, live.GetCalls())

	res, err = f.svc.GetByID(ctx, "V7")
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerMemory, res.Cache.Layer)
	require.Equal(t, detailTTL, res.Cache.TTLRemaining)
	require.Equal(t, 1, mirror.GetCalls())
}

func TestGetByID_NotFound(t *testing.T) {
	provider := &mocks.PropertyProviderMock{NameValue: "vista"}
	f := newFixture(t, nil, provider)

	_, err := f.svc.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, property.ErrNotFound)

	_, err = f.svc.GetByID(context.Background(), "  ")
	require.ErrorIs(t, err, property.ErrNotFound)
	require.Equal(t, 1, provider.GetCalls())
}

func TestGetByID_ProviderErrorWhenNoOneHasIt(t *testing.T) {
	failing := &mocks.PropertyProviderMock{
		NameValue: "dwv",
		GetPropertyFn: func(context.Context, string) (*ports.RawRecord, error) {
			return nil, errors.New("timeout")
		},
	}
	f := newFixture(t, nil, failing, &mocks.PropertyProviderMock{NameValue: "vista"})

	_, err := f.svc.GetByID(context.Background(), "x")
	var pe *services.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "dwv", pe.Provider)
	require.False(t, errors.Is(err, property.ErrNotFound))
}

func TestGetByID_UnreadableRecord(t *testing.T) {
	provider := &mocks.PropertyProviderMock{
		NameValue: "vista",
		GetPropertyFn: func(context.Context, string) (*ports.RawRecord, error) {
			return &ports.RawRecord{Provider: "vista", Payload: json.RawMessage(`{"Categoria":"Casa"}`)}, nil
		},
	}
	f := newFixture(t, nil, provider)

	_, err := f.svc.GetByID(context.Background(), "x")
	var pe *services.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "normalize", pe.Op)
}

func TestInvalidate(t *testing.T) {
	provider := vistaProvider(vistaRecord("V1", "X"))
	provider.GetPropertyFn = func(_ context.Context, id string) (*ports.RawRecord, error) {
		rec := vistaRecord(id, "X")
		return &rec, nil
	}
	f := newFixture(t, nil, provider)
	ctx := context.Background()
	page := property.Pagination{Page: 1, Limit: 10}

	_, err := f.svc.Search(ctx, property.Filters{}, page)
	require.NoError(t, err)
	_, err = f.svc.GetByID(ctx, "V1")
	require.NoError(t, err)
	_, err = f.svc.GetByID(ctx, "V2")
	require.NoError(t, err)

	require.NoError(t, f.svc.Invalidate(ctx, "V1"))
	res, err := f.svc.GetByID(ctx, "V1")
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, res.Cache.Layer)
	res, err = f.svc.GetByID(ctx, "V2")
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerMemory, res.Cache.Layer)

	require.NoError(t, f.svc.Invalidate(ctx, ""))
	list, err := f.svc.Search(ctx, property.Filters{}, page)
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, list.Cache.Layer)
	res, err = f.svc.GetByID(ctx, "V2")
	require.NoError(t, err)
	require.Equal(t, cachemeta.LayerOrigin, res.Cache.Layer)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, f.svc.Invalidate(cancelled, ""), context.Canceled)
}

func TestStats(t *testing.T) {
	f := newFixture(t, nil, vistaProvider(vistaRecord("V1", "X")))
	_, err := f.svc.Search(context.Background(), property.Filters{}, property.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)

	stats := f.svc.Stats()
	require.Len(t, stats, 2)
	require.Equal(t, services.ListNamespace, stats[0].Namespace)
	require.Equal(t, listTTL.Milliseconds(), stats[0].TTLMs)
	require.Equal(t, 1, stats[0].Tier1.Size)
	require.False(t, stats[0].Tier2Enabled)
	require.True(t, strings.HasPrefix(stats[1].Namespace, "properties:"))
	require.Equal(t, detailTTL.Milliseconds(), stats[1].TTLMs)
}

func pagedProvider(name, prefix string, total int) *mocks.PropertyProviderMock {
	return &mocks.PropertyProviderMock{
		NameValue: name,
		ListPropertiesFn: func(_ context.Context, _ property.Filters, p property.Pagination) (*ports.ListResult, error) {
			var items []ports.RawRecord
			for i := p.Offset(); i < total && i < p.Offset()+p.Limit; i++ {
				items = append(items, vistaRecord(fmt.Sprintf("%s%d", prefix, i+1), "Itajaí"))
			}
			return &ports.ListResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
		},
	}
}

func TestSearch_PagesAcrossSeveralProviders(t *testing.T) {
	f := newFixture(t, nil, pagedProvider("vista", "A", 30), pagedProvider("mirror", "B", 30))
	ctx := context.Background()

	codes := func(res *ports.SearchResult) []string {
		out := make([]string, 0, len(res.Properties))
		for _, p := range res.Properties {
			out = append(out, p.Code)
		}
		return out
	}

	first, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, first.Properties, 20)
	require.Equal(t, "A1", first.Properties[0].Code)
	require.Equal(t, "A20", first.Properties[19].Code)
	require.Equal(t, 60, first.Pagination.Total)
	require.Equal(t, 3, first.Pagination.TotalPages)

	second, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 2, Limit: 20})
	require.NoError(t, err)
	require.Len(t, second.Properties, 20)
	require.Equal(t, "A21", second.Properties[0].Code)
	require.Equal(t, "B1", second.Properties[10].Code)
	require.True(t, second.Pagination.HasNext)

	third, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 3, Limit: 20})
	require.NoError(t, err)
	require.Len(t, third.Properties, 20)
	require.Equal(t, "B11", third.Properties[0].Code)
	require.Equal(t, "B30", third.Properties[19].Code)
	require.False(t, third.Pagination.HasNext)

	seen := make(map[string]bool)
	for _, page := range [][]string{codes(first), codes(second), codes(third)} {
		for _, code := range page {
			require.False(t, seen[code], code)
			seen[code] = true
		}
	}
	require.Len(t, seen, 60)

	empty, err := f.svc.Search(ctx, property.Filters{}, property.Pagination{Page: 4, Limit: 20})
	require.NoError(t, err)
	require.Empty(t, empty.Properties)
	require.Equal(t, 60, empty.Pagination.Total)
}
